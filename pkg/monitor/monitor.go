// Package monitor tracks agent performance across dimensions over time and
// answers which dimension currently limits scale.
package monitor

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/agentops/evogate/pkg/bottleneck"
	"github.com/agentops/evogate/pkg/dimension"
)

// Snapshot is one recorded set of measurements.
type Snapshot struct {
	Timestamp time.Time
	Metrics   map[string]float64
	Metadata  map[string]any
}

// Monitor keeps a bounded history of snapshots and the registry's current
// values. Safe for concurrent use.
type Monitor struct {
	mu          sync.Mutex
	registry    *dimension.Registry
	measured    map[string]bool
	history     []Snapshot
	historySize int
}

// New creates a monitor over a dimension registry.
func New(reg *dimension.Registry) *Monitor {
	return &Monitor{
		registry:    reg,
		measured:    make(map[string]bool),
		historySize: 1000,
	}
}

// Record stores a snapshot and updates the registry's current values.
// Metric names the registry does not track are kept in history but otherwise
// ignored.
func (m *Monitor) Record(metrics map[string]float64, metadata map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.history = append(m.history, Snapshot{
		Timestamp: time.Now(),
		Metrics:   metrics,
		Metadata:  metadata,
	})
	if len(m.history) > m.historySize {
		m.history = m.history[len(m.history)-m.historySize:]
	}

	for name, value := range metrics {
		if _, ok := m.registry.Get(name); ok {
			m.measured[name] = true
		}
		m.registry.Update(name, value)
	}
}

// IdentifyBottleneck returns the currently most constraining dimension.
// Only dimensions that have been measured at least once participate; a
// never-measured dimension reads as zero, which a target-bound dimension
// would misreport as maximal severity.
func (m *Monitor) IdentifyBottleneck() bottleneck.Bottleneck {
	m.mu.Lock()
	defer m.mu.Unlock()
	return bottleneck.Identify(m.measuredReadings())
}

func (m *Monitor) measuredReadings() []dimension.Reading {
	all := m.registry.Readings()
	out := make([]dimension.Reading, 0, len(all))
	for _, r := range all {
		if m.measured[r.Name] {
			out = append(out, r)
		}
	}
	return out
}

// ProjectAtScale estimates each dimension's value at a load multiplier.
// Growth models are per dimension: throughput and cost scale linearly,
// latency and error rate degrade mildly, memory grows sub-linearly, rate
// limit utilization saturates at 1.
func (m *Monitor) ProjectAtScale(multiplier float64) map[string]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	projections := make(map[string]float64)
	for _, r := range m.measuredReadings() {
		current := r.Current
		switch r.Name {
		case dimension.Throughput, dimension.Cost, dimension.TokenUsage:
			projections[r.Name] = current * multiplier
		case dimension.Latency, dimension.ErrorRate:
			degradation := 1 + (multiplier-1)*0.1
			projections[r.Name] = current * degradation
		case dimension.APIRateLimit:
			projections[r.Name] = min(current*multiplier, 1)
		case dimension.Memory:
			growth := 1 + (multiplier-1)*0.5
			projections[r.Name] = current * growth
		default:
			projections[r.Name] = current
		}
	}
	return projections
}

// Violation reports a projected value exceeding a dimension's max bound.
type Violation struct {
	Dimension string
	Projected float64
	Limit     float64
	Unit      string
}

// CheckConstraints flags projections that exceed configured max bounds.
func (m *Monitor) CheckConstraints(projections map[string]float64) []Violation {
	m.mu.Lock()
	defer m.mu.Unlock()

	var violations []Violation
	for _, r := range m.registry.Readings() {
		projected, ok := projections[r.Name]
		if !ok || r.Max <= 0 {
			continue
		}
		if projected > r.Max {
			violations = append(violations, Violation{
				Dimension: r.Name,
				Projected: projected,
				Limit:     r.Max,
				Unit:      r.Unit,
			})
		}
	}
	return violations
}

// Trend summarizes one dimension's movement over a window.
type Trend struct {
	Direction string // improving, degrading, stable, unknown
	First     float64
	Last      float64
	ChangePct float64
	Average   float64
	Samples   int
}

// Trends analyzes per-dimension movement across snapshots inside the window.
// Fewer than two samples for a dimension yields an unknown trend.
func (m *Monitor) Trends(window time.Duration) map[string]Trend {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-window)
	trends := make(map[string]Trend)

	for _, r := range m.registry.Readings() {
		var values []float64
		for _, s := range m.history {
			if s.Timestamp.Before(cutoff) {
				continue
			}
			if v, ok := s.Metrics[r.Name]; ok {
				values = append(values, v)
			}
		}
		if len(values) < 2 {
			trends[r.Name] = Trend{Direction: "unknown", Samples: len(values)}
			continue
		}

		first, last := values[0], values[len(values)-1]
		var sum float64
		for _, v := range values {
			sum += v
		}

		t := Trend{
			First:   first,
			Last:    last,
			Average: sum / float64(len(values)),
			Samples: len(values),
		}
		if first > 0 {
			t.ChangePct = (last - first) / first * 100
			rising := t.ChangePct > 5
			falling := t.ChangePct < -5
			if m.registry.Direction(r.Name) == dimension.LowerIsBetter {
				rising, falling = falling, rising
			}
			switch {
			case rising:
				t.Direction = "improving"
			case falling:
				t.Direction = "degrading"
			default:
				t.Direction = "stable"
			}
		} else {
			t.Direction = "unknown"
		}
		trends[r.Name] = t
	}
	return trends
}

// Summary renders a human-readable state report.
func (m *Monitor) Summary() string {
	b := m.IdentifyBottleneck()
	projections := m.ProjectAtScale(10)
	violations := m.CheckConstraints(projections)

	m.mu.Lock()
	readings := m.measuredReadings()
	m.mu.Unlock()

	status := "healthy"
	if len(violations) > 0 {
		status = "constrained"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Performance Summary (%s)\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&sb, "Status: %s\n\n", status)
	fmt.Fprintf(&sb, "Primary Bottleneck: %s\n", b.Name)
	fmt.Fprintf(&sb, "  Severity: %.1f%%\n", b.Severity*100)
	fmt.Fprintf(&sb, "  Current:  %.2f %s\n\n", b.Current, b.Unit)
	sb.WriteString("Dimensions:\n")
	for _, r := range readings {
		fmt.Fprintf(&sb, "  %-14s %10.2f %-15s (%.0f%% utilized)\n",
			r.Name, r.Current, r.Unit, r.Utilization()*100)
	}
	if len(violations) > 0 {
		sb.WriteString("\nProjected violations at 10x load:\n")
		for _, v := range violations {
			fmt.Fprintf(&sb, "  %s: %.2f exceeds max %.2f %s\n",
				v.Dimension, v.Projected, v.Limit, v.Unit)
		}
	}
	return sb.String()
}
