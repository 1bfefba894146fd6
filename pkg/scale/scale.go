// Package scale verifies that a candidate workflow's throughput holds up as
// load multiplies.
package scale

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/agentops/evogate/pkg/models"
	"github.com/agentops/evogate/pkg/workflow"
)

// Runner is the slice of the experiment runner the tester needs.
type Runner interface {
	Run(ctx context.Context, wf workflow.Document, scenarios []models.Scenario, label string) (models.PerformanceMetrics, error)
}

// DefaultMultipliers are the standard load steps.
var DefaultMultipliers = []int{1, 5, 10}

// Tester runs a workflow at multiple load multipliers and measures how close
// throughput growth stays to linear.
type Tester struct {
	runner      Runner
	multipliers []int
	cooldown    time.Duration
	logger      *slog.Logger
}

// Option configures a Tester.
type Option func(*Tester)

// WithMultipliers overrides the tested load steps. The 1x step must be
// included; linearity is computed against it.
func WithMultipliers(multipliers []int) Option {
	return func(t *Tester) { t.multipliers = multipliers }
}

// WithCooldown sets the pause between runs. Back-to-back sandbox teardown and
// startup contend for the same resources; a short gap keeps measurements
// attributable to their own run.
func WithCooldown(d time.Duration) Option {
	return func(t *Tester) { t.cooldown = d }
}

// WithLogger sets the tester's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tester) { t.logger = logger }
}

// New creates a Tester.
func New(r Runner, opts ...Option) *Tester {
	t := &Tester{
		runner:      r,
		multipliers: DefaultMultipliers,
		cooldown:    2 * time.Second,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Run executes the workflow at each multiplier in increasing order. Load
// scales by replicating the scenario set in discrete, reproducible steps.
// A failed run contributes a zero-throughput point rather than aborting the
// test; cancellation is honored between runs, never mid-run.
func (t *Tester) Run(ctx context.Context, wf workflow.Document, baseScenarios []models.Scenario) (models.ScaleResult, error) {
	result := models.ScaleResult{
		PerMultiplier: make(map[string]float64),
	}

	for i, m := range t.multipliers {
		if i > 0 {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(t.cooldown):
			}
		}

		label := fmt.Sprintf("scale-%dx", m)
		scaled := models.ReplicateScenarios(baseScenarios, m)

		metrics, err := t.runner.Run(ctx, wf, scaled, label)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			t.logger.Warn("scale run degraded to zero metrics", "label", label, "error", err)
		}

		result.Points = append(result.Points, models.ScalePoint{
			Multiplier: m,
			Throughput: metrics.Throughput,
			TotalTasks: metrics.TotalTasks,
			Duration:   metrics.Duration,
		})
		t.logger.Info("scale step complete",
			"multiplier", m,
			"throughput", metrics.Throughput,
			"duration_seconds", metrics.Duration,
		)
	}

	computeLinearity(&result)
	return result, nil
}

// computeLinearity fills PerMultiplier and the aggregate mean. Linearity at
// multiplier m is actual throughput divided by the 1x throughput times m; the
// 1x step itself is excluded from the aggregate.
func computeLinearity(result *models.ScaleResult) {
	var base float64
	for _, p := range result.Points {
		if p.Multiplier == 1 {
			base = p.Throughput
			break
		}
	}

	var sum float64
	var n int
	for _, p := range result.Points {
		if p.Multiplier <= 1 {
			continue
		}
		var lin float64
		if base > 0 {
			lin = p.Throughput / (base * float64(p.Multiplier))
		}
		result.PerMultiplier[fmt.Sprintf("%dx", p.Multiplier)] = lin
		sum += lin
		n++
	}
	if n > 0 {
		result.Linearity = sum / float64(n)
	}
}
