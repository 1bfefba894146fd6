// Package delta compares baseline and candidate metrics per dimension.
package delta

import (
	"github.com/agentops/evogate/pkg/dimension"
	"github.com/agentops/evogate/pkg/models"
)

// TrackedDimensions are the dimensions a metrics snapshot can populate, in
// stable order.
var TrackedDimensions = []string{
	dimension.Throughput,
	dimension.Cost,
	dimension.ErrorRate,
	dimension.Latency,
	dimension.Memory,
}

// Diff classifies each tracked dimension as improvement or regression with an
// absolute percentage. A zero baseline yields a zero change, which counts as
// neither improvement nor regression; the dimension is then absent from both
// maps. A dimension never appears in both.
func Diff(reg *dimension.Registry, baseline, candidate models.PerformanceMetrics) (improvements, regressions map[string]float64) {
	improvements = make(map[string]float64)
	regressions = make(map[string]float64)

	for _, name := range TrackedDimensions {
		base := dimension.MetricValue(baseline, name)
		cand := dimension.MetricValue(candidate, name)

		var pct float64
		if base != 0 {
			pct = (cand - base) / base
		}
		if pct == 0 {
			continue
		}

		if reg.Direction(name) == dimension.HigherIsBetter {
			if pct > 0 {
				improvements[name] = pct
			} else {
				regressions[name] = -pct
			}
		} else {
			if pct < 0 {
				improvements[name] = -pct
			} else {
				regressions[name] = pct
			}
		}
	}
	return improvements, regressions
}

// MaxRegression returns the worst regression, 0 when there are none.
func MaxRegression(regressions map[string]float64) float64 {
	var worst float64
	for _, v := range regressions {
		if v > worst {
			worst = v
		}
	}
	return worst
}

// MeanImprovement returns the average improvement, 0 when there are none.
func MeanImprovement(improvements map[string]float64) float64 {
	if len(improvements) == 0 {
		return 0
	}
	var sum float64
	for _, v := range improvements {
		sum += v
	}
	return sum / float64(len(improvements))
}
