// Package bottleneck selects the dimension that most constrains the system.
package bottleneck

import "github.com/agentops/evogate/pkg/dimension"

// Bottleneck identifies the most constraining dimension at a point in time.
// Severity is the raw utilization score; callers apply their own healthy
// threshold (the proposer skips proposal generation below 0.3).
type Bottleneck struct {
	Name     string
	Severity float64
	Current  float64
	Bound    float64
	Unit     string

	// All holds every dimension's utilization for reporting.
	All map[string]float64
}

// Identify picks the reading with the strictly maximum utilization. Ties are
// broken by declaration order: the readings slice must be in a stable,
// deterministic order, and the first maximum wins.
func Identify(readings []dimension.Reading) Bottleneck {
	b := Bottleneck{All: make(map[string]float64, len(readings))}
	best := -1.0
	for _, r := range readings {
		u := r.Utilization()
		b.All[r.Name] = u
		if u > best {
			best = u
			b.Name = r.Name
			b.Severity = u
			b.Current = r.Current
			b.Bound = r.Bound()
			b.Unit = r.Unit
		}
	}
	return b
}
