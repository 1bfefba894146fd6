package gate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var validationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "evogate",
	Subsystem: "gate",
	Name:      "validations_total",
	Help:      "Completed validations by verdict.",
}, []string{"verdict"})

func observeVerdict(approved bool) {
	verdict := "rejected"
	if approved {
		verdict = "approved"
	}
	validationsTotal.WithLabelValues(verdict).Inc()
}
