package gate

import "time"

// Config holds the gate's decision thresholds. Passed in at construction so
// tests can exercise alternate thresholds; there are no package-level
// constants to fight.
type Config struct {
	// ImprovementThreshold is the minimum relative improvement the limiting
	// dimension must show.
	ImprovementThreshold float64

	// RegressionTolerance is the worst relative regression allowed on any
	// tracked dimension, not only the bottleneck.
	RegressionTolerance float64

	// ScaleLinearityFloor is the minimum aggregate scale linearity.
	ScaleLinearityFloor float64

	// ScaleMultipliers are the load steps for the scale test.
	ScaleMultipliers []int

	// Cooldown is the pause between consecutive sandbox runs.
	Cooldown time.Duration

	// ResultTTL bounds the retention window of persisted results.
	ResultTTL time.Duration
}

// DefaultConfig returns the production thresholds: 15% required improvement,
// 5% regression tolerance, 80% scale linearity, 24h result retention.
func DefaultConfig() Config {
	return Config{
		ImprovementThreshold: 0.15,
		RegressionTolerance:  0.05,
		ScaleLinearityFloor:  0.80,
		ScaleMultipliers:     []int{1, 5, 10},
		Cooldown:             2 * time.Second,
		ResultTTL:            24 * time.Hour,
	}
}
