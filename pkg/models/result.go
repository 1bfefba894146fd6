package models

import "time"

// ScalePoint holds the measurements from one scale-test multiplier.
type ScalePoint struct {
	Multiplier int     `json:"multiplier"`
	Throughput float64 `json:"throughput"`
	TotalTasks int64   `json:"total_tasks"`
	Duration   float64 `json:"duration_seconds"`
}

// ScaleResult aggregates the scale test across all tested multipliers.
// Linearity is the arithmetic mean of per-multiplier linearity over all
// multipliers above 1x.
type ScaleResult struct {
	Points        []ScalePoint       `json:"points"`
	PerMultiplier map[string]float64 `json:"linearity_per_multiplier"`
	Linearity     float64            `json:"linearity"`
}

// LinearityAt returns the linearity measured at a specific multiplier,
// or 0 when that multiplier was not tested.
func (s ScaleResult) LinearityAt(multiplier int) float64 {
	for _, p := range s.Points {
		if p.Multiplier == multiplier && multiplier > 1 {
			base := s.baseThroughput()
			if base <= 0 {
				return 0
			}
			return p.Throughput / (base * float64(multiplier))
		}
	}
	return 0
}

func (s ScaleResult) baseThroughput() float64 {
	for _, p := range s.Points {
		if p.Multiplier == 1 {
			return p.Throughput
		}
	}
	return 0
}

// ResultMetrics pairs the two runs a validation compares.
type ResultMetrics struct {
	Baseline  PerformanceMetrics `json:"baseline"`
	Candidate PerformanceMetrics `json:"candidate"`
}

// ValidationResult is the verdict for one proposal. Created once per validation
// call, immutable after creation, persisted and published exactly once.
//
// Field names are stable for interop with the result store and the publish
// channel; "improvement" stays singular to match existing subscribers.
type ValidationResult struct {
	ProposalID   string             `json:"proposal_id"`
	Approved     bool               `json:"approved"`
	Improvements map[string]float64 `json:"improvement"`
	Regressions  map[string]float64 `json:"regressions"`
	Metrics      ResultMetrics      `json:"metrics"`
	Scale        ScaleResult        `json:"scale"`
	Confidence   float64            `json:"confidence"`
	Reason       string             `json:"reason,omitempty"`
	Timestamp    time.Time          `json:"timestamp"`
}
