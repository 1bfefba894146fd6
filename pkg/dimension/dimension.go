package dimension

// Direction says whether larger values of a dimension are desirable.
type Direction int

const (
	HigherIsBetter Direction = iota
	LowerIsBetter
)

// Reading is the current state of one performance dimension. Target and Max
// are mutually informative bounds; at least one should be set for a meaningful
// utilization score. A reading is treated as immutable within a single
// utilization computation.
type Reading struct {
	Name    string
	Dir     Direction
	Current float64
	Target  float64 // 0 means unset
	Max     float64 // 0 means unset
	Min     float64
	Unit    string
	Weight  float64
}

// Utilization maps the current value to a constraint score. Scores are clamped
// to [0,1] with one deliberate exception: a LowerIsBetter dimension bounded
// only by a target may exceed 1 when far over target, signalling severity.
// A dimension with neither bound configured always reports 0.5 so it neither
// masks nor dominates bottleneck selection.
func (r Reading) Utilization() float64 {
	switch r.Dir {
	case HigherIsBetter:
		if r.Target > 0 {
			u := 1 - min(r.Current/r.Target, 1)
			return max(u, 0)
		}
		if r.Max > 0 {
			return clamp01(r.Current / r.Max)
		}
		return 0.5
	case LowerIsBetter:
		if r.Max > 0 {
			return min(max(r.Current/r.Max, 0), 1)
		}
		if r.Target > 0 {
			// Unclamped above 1: overshoot severity matters for ranking.
			return max((r.Current-r.Target)/r.Target, 0)
		}
		return 0.5
	}
	return 0.5
}

// Bound returns the configured bound a caller should report alongside the
// utilization: the target when set, otherwise the max.
func (r Reading) Bound() float64 {
	if r.Target > 0 {
		return r.Target
	}
	return r.Max
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}
