// Package runner executes a workflow against test scenarios inside the
// sandbox and turns whatever came back into a metrics snapshot.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/agentops/evogate/pkg/models"
	"github.com/agentops/evogate/pkg/sandbox"
	"github.com/agentops/evogate/pkg/workflow"
)

// ErrSandboxExecution means an isolated run produced nothing parseable even
// after partial-output recovery. The run is still recorded as a zero-valued
// metrics snapshot so downstream analysis degrades instead of aborting.
var ErrSandboxExecution = errors.New("sandbox execution produced no parseable output")

// MetricsCache receives per-run snapshots for quick access by other
// components. Fire and forget; failures are logged, never fatal.
type MetricsCache interface {
	CacheMetrics(ctx context.Context, key string, m models.PerformanceMetrics, ttl time.Duration) error
}

// Runner measures a workflow in the sandbox.
type Runner struct {
	backend  sandbox.Backend
	limits   sandbox.ResourceLimits
	cache    MetricsCache
	cacheTTL time.Duration
	logger   *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithLimits overrides the default sandbox resource caps.
func WithLimits(limits sandbox.ResourceLimits) Option {
	return func(r *Runner) { r.limits = limits }
}

// WithCache enables per-run snapshot caching.
func WithCache(cache MetricsCache, ttl time.Duration) Option {
	return func(r *Runner) {
		r.cache = cache
		r.cacheTTL = ttl
	}
}

// WithLogger sets the runner's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// New creates a Runner on top of an execution backend.
func New(backend sandbox.Backend, opts ...Option) *Runner {
	r := &Runner{
		backend:  backend,
		limits:   sandbox.DefaultLimits(),
		cacheTTL: time.Hour,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the workflow against the scenarios under the given run label.
//
// Wall-clock duration is always recorded, whether or not the sandbox process
// completed. On abnormal termination, partial output is parsed before falling
// back to a zero-valued snapshot: partial data beats no data for a monitoring
// system that retries later. The error is non-nil only when nothing at all
// could be parsed, and even then the returned snapshot is usable.
func (r *Runner) Run(ctx context.Context, wf workflow.Document, scenarios []models.Scenario, label string) (models.PerformanceMetrics, error) {
	start := time.Now()
	res, execErr := r.backend.Execute(ctx, sandbox.RunSpec{
		Label:     label,
		Workflow:  wf,
		Scenarios: scenarios,
		Limits:    r.limits,
	})
	duration := time.Since(start)
	observeRun(duration)

	raw := res.Output
	if execErr != nil {
		if ctx.Err() != nil {
			return models.ZeroMetrics(duration), ctx.Err()
		}
		var sandboxErr *sandbox.ExecutionError
		if !errors.As(execErr, &sandboxErr) {
			observeFailure(label)
			return models.ZeroMetrics(duration), fmt.Errorf("%w: %v", ErrSandboxExecution, execErr)
		}
		r.logger.Warn("sandbox run failed, parsing partial metrics",
			"label", label, "error", sandboxErr.Err)
		raw = sandboxErr.Partial
	}

	metrics, parseErr := ParseOutput(raw, duration)
	if parseErr != nil {
		observeFailure(label)
		if execErr != nil {
			return metrics, fmt.Errorf("%w: %v", ErrSandboxExecution, execErr)
		}
		return metrics, fmt.Errorf("%w: run %s", ErrMalformedOutput, label)
	}

	if metrics.MemoryPeakMB == 0 && res.ObservedMemoryPeakMB > 0 {
		metrics.MemoryPeakMB = res.ObservedMemoryPeakMB
	}

	r.cacheSnapshot(ctx, label, metrics)

	r.logger.Info("sandbox run complete",
		"label", label,
		"throughput", metrics.Throughput,
		"error_rate", metrics.ErrorRate,
		"duration", duration,
	)
	return metrics, nil
}

func (r *Runner) cacheSnapshot(ctx context.Context, label string, m models.PerformanceMetrics) {
	if r.cache == nil {
		return
	}
	key := "sandbox:metrics:" + label
	if err := r.cache.CacheMetrics(ctx, key, m, r.cacheTTL); err != nil {
		r.logger.Warn("metrics cache write failed", "key", key, "error", err)
	}
}
