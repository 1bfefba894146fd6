package dimension

import "github.com/agentops/evogate/pkg/models"

// Dimension names tracked by the validator.
const (
	Throughput   = "throughput"
	Latency      = "latency"
	Cost         = "cost"
	ErrorRate    = "error_rate"
	Accuracy     = "accuracy"
	APIRateLimit = "api_rate_limit"
	TokenUsage   = "token_usage"
	Memory       = "memory"
)

// Registry holds the declared dimensions in a stable order. Iteration order is
// declaration order, which makes bottleneck tie-breaking deterministic.
type Registry struct {
	order    []string
	readings map[string]Reading
}

// DefaultRegistry declares the eight standard dimensions with their default
// bounds.
func DefaultRegistry() *Registry {
	r := &Registry{readings: make(map[string]Reading)}
	for _, d := range []Reading{
		{Name: Throughput, Dir: HigherIsBetter, Target: 100, Unit: "tasks/sec", Weight: 1},
		{Name: Latency, Dir: LowerIsBetter, Max: 10, Unit: "seconds", Weight: 1},
		{Name: Cost, Dir: LowerIsBetter, Max: 1.0, Unit: "USD/1000 tasks", Weight: 1},
		{Name: ErrorRate, Dir: LowerIsBetter, Max: 0.05, Unit: "ratio", Weight: 1},
		{Name: Accuracy, Dir: HigherIsBetter, Target: 0.95, Unit: "ratio", Weight: 1},
		{Name: APIRateLimit, Dir: LowerIsBetter, Max: 0.9, Unit: "ratio", Weight: 1},
		{Name: TokenUsage, Dir: LowerIsBetter, Max: 100000, Unit: "tokens", Weight: 1},
		{Name: Memory, Dir: LowerIsBetter, Max: 512, Unit: "MB", Weight: 1},
	} {
		r.Declare(d)
	}
	return r
}

// Declare registers a dimension, or replaces its configuration if the name is
// already declared (keeping its original position).
func (r *Registry) Declare(d Reading) {
	if _, ok := r.readings[d.Name]; !ok {
		r.order = append(r.order, d.Name)
	}
	r.readings[d.Name] = d
}

// Update sets the current value of a named dimension. Unknown names are
// ignored: callers may report more metrics than the registry tracks.
func (r *Registry) Update(name string, current float64) {
	d, ok := r.readings[name]
	if !ok {
		return
	}
	d.Current = current
	r.readings[d.Name] = d
}

// Get returns the reading for a name.
func (r *Registry) Get(name string) (Reading, bool) {
	d, ok := r.readings[name]
	return d, ok
}

// Readings returns all declared readings in declaration order.
func (r *Registry) Readings() []Reading {
	out := make([]Reading, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.readings[name])
	}
	return out
}

// Direction returns the declared direction for a name, defaulting to
// HigherIsBetter for unknown names.
func (r *Registry) Direction(name string) Direction {
	if d, ok := r.readings[name]; ok {
		return d.Dir
	}
	return HigherIsBetter
}

// ReadingsFromMetrics projects a run snapshot onto the five dimensions that a
// PerformanceMetrics measurement can populate, keeping the registry's declared
// bounds. The metrics snapshot itself is not modified.
func (r *Registry) ReadingsFromMetrics(m models.PerformanceMetrics) []Reading {
	values := map[string]float64{
		Throughput: m.Throughput,
		ErrorRate:  m.ErrorRate,
		Latency:    m.LatencyP95,
		Cost:       m.Cost,
		Memory:     m.MemoryPeakMB,
	}
	out := make([]Reading, 0, len(values))
	for _, name := range r.order {
		v, ok := values[name]
		if !ok {
			continue
		}
		d := r.readings[name]
		d.Current = v
		out = append(out, d)
	}
	return out
}

// MetricValue extracts the value of a named dimension from a metrics snapshot,
// returning 0 for dimensions a snapshot does not carry.
func MetricValue(m models.PerformanceMetrics, name string) float64 {
	switch name {
	case Throughput:
		return m.Throughput
	case Cost:
		return m.Cost
	case ErrorRate:
		return m.ErrorRate
	case Latency:
		return m.LatencyP95
	case Memory:
		return m.MemoryPeakMB
	}
	return 0
}
