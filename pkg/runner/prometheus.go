package runner

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "evogate",
		Subsystem: "sandbox",
		Name:      "run_duration_seconds",
		Help:      "Wall-clock duration of sandbox runs.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
	})
	runsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "evogate",
		Subsystem: "sandbox",
		Name:      "runs_total",
		Help:      "Total sandbox runs dispatched.",
	})
	runFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "evogate",
		Subsystem: "sandbox",
		Name:      "run_failures_total",
		Help:      "Sandbox runs that yielded no parseable metrics.",
	}, []string{"label"})
)

func observeRun(d time.Duration) {
	runsTotal.Inc()
	runDuration.Observe(d.Seconds())
}

func observeFailure(label string) {
	runFailures.WithLabelValues(label).Inc()
}
