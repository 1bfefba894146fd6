// Package gate renders the approve/reject verdict for a workflow proposal.
//
// The gate drives the whole validation protocol: baseline run, bottleneck
// identification, candidate run, delta analysis, scale test, then a
// three-part decision rule. Runs within one validation are strictly
// sequential; independent proposals may validate concurrently because the
// only shared state is the append-only result store.
package gate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/agentops/evogate/pkg/bottleneck"
	"github.com/agentops/evogate/pkg/delta"
	"github.com/agentops/evogate/pkg/dimension"
	"github.com/agentops/evogate/pkg/models"
	"github.com/agentops/evogate/pkg/scale"
	"github.com/agentops/evogate/pkg/storage"
	"github.com/agentops/evogate/pkg/workflow"
)

// Runner is the slice of the experiment runner the gate needs.
type Runner interface {
	Run(ctx context.Context, wf workflow.Document, scenarios []models.Scenario, label string) (models.PerformanceMetrics, error)
}

// Request carries everything the gate needs to validate one proposal.
type Request struct {
	ProposalID       string
	CurrentWorkflow  workflow.Document
	ProposedWorkflow workflow.Document
	Scenarios        []models.Scenario

	// LimitingFactor optionally names a pre-identified bottleneck dimension,
	// skipping identification.
	LimitingFactor string
}

// Validator runs the gated validation protocol.
type Validator struct {
	cfg      Config
	runner   Runner
	scaler   *scale.Tester
	registry *dimension.Registry
	store    storage.Store
	logger   *slog.Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithStore enables result persistence and publishing.
func WithStore(store storage.Store) Option {
	return func(v *Validator) { v.store = store }
}

// WithRegistry replaces the default dimension registry.
func WithRegistry(reg *dimension.Registry) Option {
	return func(v *Validator) { v.registry = reg }
}

// WithLogger sets the validator's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Validator) { v.logger = logger }
}

// NewValidator wires a validator over an experiment runner.
func NewValidator(cfg Config, r Runner, opts ...Option) *Validator {
	v := &Validator{
		cfg:      cfg,
		runner:   r,
		registry: dimension.DefaultRegistry(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.scaler = scale.New(r,
		scale.WithMultipliers(cfg.ScaleMultipliers),
		scale.WithCooldown(cfg.Cooldown),
		scale.WithLogger(v.logger),
	)
	return v
}

// Validate runs the full protocol and returns the verdict. Per-run failures
// are recovered into degraded metrics so a single bad run does not abort the
// protocol; only cancellation propagates as an error. The result is persisted
// and published exactly once, after the verdict is finalized, never before.
func (v *Validator) Validate(ctx context.Context, req Request) (*models.ValidationResult, error) {
	log := v.logger.With("proposal_id", req.ProposalID)
	phase := PhaseIdentifyingBottleneck

	// Step 1: identify the limiting dimension, reusing the baseline run when
	// identification needed one.
	limiting := req.LimitingFactor
	var baseline models.PerformanceMetrics
	var haveBaseline bool

	if limiting == "" {
		log.Info("identifying performance bottleneck", "phase", phase)
		baseline = v.runRecovered(ctx, log, req.CurrentWorkflow, req.Scenarios, "baseline")
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		haveBaseline = true
		b := bottleneck.Identify(v.registry.ReadingsFromMetrics(baseline))
		limiting = b.Name
		log.Info("bottleneck identified", "dimension", b.Name, "severity", b.Severity)
	} else {
		log.Info("using pre-identified bottleneck", "phase", phase, "dimension", limiting)
	}

	// Step 2: baseline run, unless step 1 already produced it.
	phase = PhaseRunningBaseline
	if !haveBaseline {
		log.Info("running baseline", "phase", phase)
		baseline = v.runRecovered(ctx, log, req.CurrentWorkflow, req.Scenarios, "baseline")
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	// Step 3: candidate run.
	phase = PhaseRunningCandidate
	if err := v.pause(ctx); err != nil {
		return nil, err
	}
	log.Info("running candidate", "phase", phase)
	candidate := v.runRecovered(ctx, log, req.ProposedWorkflow, req.Scenarios, "candidate")
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Step 4: per-dimension deltas.
	phase = PhaseAnalyzingDelta
	improvements, regressions := delta.Diff(v.registry, baseline, candidate)
	log.Info("delta analyzed", "phase", phase,
		"improvements", len(improvements), "regressions", len(regressions),
		"limiting_improvement", improvements[limiting],
	)

	// Step 5: scale test. Linearity is computed against the 1x throughput
	// measured inside this same run family, not the earlier baseline run.
	phase = PhaseTestingScale
	if err := v.pause(ctx); err != nil {
		return nil, err
	}
	log.Info("testing scalability", "phase", phase, "multipliers", v.cfg.ScaleMultipliers)
	scaleRes, err := v.scaler.Run(ctx, req.ProposedWorkflow, req.Scenarios)
	if err != nil {
		return nil, err
	}

	// Step 6: the three-part gate.
	phase = PhaseDeciding
	approved, reason := v.decide(limiting, improvements, regressions, scaleRes)
	confidence := Confidence(improvements, regressions, scaleRes.Linearity)

	result := &models.ValidationResult{
		ProposalID:   req.ProposalID,
		Approved:     approved,
		Improvements: improvements,
		Regressions:  regressions,
		Metrics:      models.ResultMetrics{Baseline: baseline, Candidate: candidate},
		Scale:        scaleRes,
		Confidence:   confidence,
		Reason:       reason,
		Timestamp:    time.Now().UTC(),
	}

	if approved {
		phase = PhaseApproved
		log.Info("proposal approved", "phase", phase, "confidence", confidence)
	} else {
		phase = PhaseRejected
		log.Info("proposal rejected", "phase", phase, "reason", reason, "confidence", confidence)
	}
	observeVerdict(approved)

	v.persistAndPublish(ctx, log, result)
	return result, nil
}

// decide applies the three checks in priority order. The first failing check
// determines the reason; approval requires all three.
func (v *Validator) decide(limiting string, improvements, regressions map[string]float64, scaleRes models.ScaleResult) (bool, string) {
	bottleneckImproved := improvements[limiting] >= v.cfg.ImprovementThreshold
	worstRegression := delta.MaxRegression(regressions)
	noRegression := worstRegression <= v.cfg.RegressionTolerance
	scalesLinearly := scaleRes.Linearity >= v.cfg.ScaleLinearityFloor

	if bottleneckImproved && noRegression && scalesLinearly {
		return true, ""
	}
	switch {
	case !bottleneckImproved:
		return false, fmt.Sprintf("bottleneck improvement (%.1f%%) below %.0f%% threshold",
			improvements[limiting]*100, v.cfg.ImprovementThreshold*100)
	case !noRegression:
		return false, fmt.Sprintf("regression (%.1f%%) exceeds tolerance (%.0f%%)",
			worstRegression*100, v.cfg.RegressionTolerance*100)
	default:
		return false, fmt.Sprintf("scale linearity (%.1f%%) below %.0f%%",
			scaleRes.Linearity*100, v.cfg.ScaleLinearityFloor*100)
	}
}

// Confidence scores how consistent the evidence is, independent of the
// boolean verdict; it ranks multiple approved proposals. Always in [0,1].
func Confidence(improvements, regressions map[string]float64, linearity float64) float64 {
	confidence := 0.5
	confidence += min(delta.MeanImprovement(improvements)*0.3, 0.3)
	confidence -= min(delta.MaxRegression(regressions)*0.5, 0.3)
	confidence += linearity * 0.2
	return min(max(confidence, 0), 1)
}

// runRecovered executes one sandbox run and degrades failures to the
// zero-valued snapshot the runner already produced. Resource-limit kills are
// expected signal here, not validator errors: they surface as degraded
// metrics that the decision rule naturally penalizes.
func (v *Validator) runRecovered(ctx context.Context, log *slog.Logger, wf workflow.Document, scenarios []models.Scenario, label string) models.PerformanceMetrics {
	metrics, err := v.runner.Run(ctx, wf, scenarios, label)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		log.Warn("run degraded to zero metrics", "label", label, "error", err)
	}
	return metrics
}

// pause waits out the cooldown between sandbox runs, honoring cancellation.
// Cancellation is only observed here, between runs; a partially-measured
// run's metrics would be unreliable.
func (v *Validator) pause(ctx context.Context) error {
	if v.cfg.Cooldown <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(v.cfg.Cooldown):
		return nil
	}
}

// persistAndPublish stores the finalized result keyed by proposal id and
// notifies subscribers. Both effects happen once, after the verdict; failures
// are logged, never fatal to the verdict.
func (v *Validator) persistAndPublish(ctx context.Context, log *slog.Logger, res *models.ValidationResult) {
	if v.store == nil {
		return
	}
	if err := v.store.PutResult(ctx, res, v.cfg.ResultTTL); err != nil {
		log.Error("failed to persist validation result", "error", err)
	}
	payload, err := json.Marshal(res)
	if err != nil {
		log.Error("failed to encode validation result", "error", err)
		return
	}
	if err := v.store.Publish(ctx, storage.Channel, payload); err != nil {
		log.Error("failed to publish validation result", "error", err)
	}
}
