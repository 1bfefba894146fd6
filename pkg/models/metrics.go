package models

import "time"

// PerformanceMetrics is a complete measurement snapshot from one sandbox run.
// Produced once per run and immutable afterwards.
type PerformanceMetrics struct {
	Throughput     float64 `json:"throughput"`      // tasks per second
	Cost           float64 `json:"cost"`            // USD per 1000 tasks
	ErrorRate      float64 `json:"error_rate"`      // 0-1 ratio
	LatencyP95     float64 `json:"latency_p95"`     // seconds
	LatencyP99     float64 `json:"latency_p99"`     // seconds
	MemoryPeakMB   float64 `json:"memory_peak_mb"`
	TotalTasks     int64   `json:"total_tasks"`
	CompletedTasks int64   `json:"completed_tasks"`
	FailedTasks    int64   `json:"failed_tasks"`
	Duration       float64 `json:"duration_seconds"`
}

// ZeroMetrics returns an empty snapshot carrying only the measured wall-clock
// duration. Used as the degraded fallback when a run produced no parseable output.
func ZeroMetrics(duration time.Duration) PerformanceMetrics {
	return PerformanceMetrics{Duration: duration.Seconds()}
}

// IsZero reports whether the snapshot carries no measurements beyond duration.
func (m PerformanceMetrics) IsZero() bool {
	return m.Throughput == 0 && m.Cost == 0 && m.ErrorRate == 0 &&
		m.LatencyP95 == 0 && m.LatencyP99 == 0 && m.MemoryPeakMB == 0 &&
		m.TotalTasks == 0 && m.CompletedTasks == 0 && m.FailedTasks == 0
}

// Scenario is a single test case fed to the sandbox. The validator treats it as
// opaque data; only the sandbox runtime interprets it.
type Scenario map[string]any

// ReplicateScenarios repeats a scenario set n times, producing discrete,
// reproducible load steps for scale testing.
func ReplicateScenarios(base []Scenario, n int) []Scenario {
	if n <= 0 {
		return nil
	}
	out := make([]Scenario, 0, len(base)*n)
	for i := 0; i < n; i++ {
		out = append(out, base...)
	}
	return out
}
