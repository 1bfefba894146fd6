// Package proposer generates optimization proposals targeting the current
// bottleneck and routes them through the validation gate before deployment.
package proposer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/agentops/evogate/pkg/gate"
	"github.com/agentops/evogate/pkg/models"
	"github.com/agentops/evogate/pkg/monitor"
	"github.com/agentops/evogate/pkg/workflow"
)

// Caller-programming errors raised by the deployment step. Always surfaced,
// never swallowed.
var (
	ErrProposalNotFound    = errors.New("proposal not found")
	ErrProposalNotApproved = errors.New("proposal not approved")
)

// Validator is the slice of the gate the engine needs.
type Validator interface {
	Validate(ctx context.Context, req gate.Request) (*models.ValidationResult, error)
}

// EngineConfig tunes the reflection loop.
type EngineConfig struct {
	// HealthyThreshold: below this bottleneck severity the system is treated
	// as healthy and no proposals are generated.
	HealthyThreshold float64

	// MaxPending bounds the retained proposal list.
	MaxPending int
}

// DefaultEngineConfig returns the standard tuning.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		HealthyThreshold: 0.3,
		MaxPending:       10,
	}
}

// Reflection records one ReflectAndPropose pass.
type Reflection struct {
	Timestamp  time.Time
	Bottleneck string
	Severity   float64
	Generated  int
	Approved   int
}

// Engine reflects on measured performance, proposes workflow changes, and
// tracks what was validated and deployed.
type Engine struct {
	monitor   *monitor.Monitor
	validator Validator
	cfg       EngineConfig
	logger    *slog.Logger

	mu          sync.Mutex
	proposals   []*models.Proposal
	deployed    []models.Deployment
	reflections []Reflection
}

// NewEngine wires an engine over a monitor and a validator.
func NewEngine(mon *monitor.Monitor, v Validator, cfg EngineConfig, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		monitor:   mon,
		validator: v,
		cfg:       cfg,
		logger:    logger,
	}
}

// ReflectAndPropose identifies the current bottleneck, generates proposals
// targeting it, and validates each through the gate when scenarios are
// supplied. Returns the approved proposals; an empty slice means the system
// is healthy or nothing passed the gate.
func (e *Engine) ReflectAndPropose(ctx context.Context, current workflow.Document, scenarios []models.Scenario) ([]*models.Proposal, error) {
	b := e.monitor.IdentifyBottleneck()
	e.logger.Info("reflection started", "bottleneck", b.Name, "severity", b.Severity)

	if b.Severity < e.cfg.HealthyThreshold {
		e.logger.Info("performance healthy, no optimization needed", "severity", b.Severity)
		e.recordReflection(b.Name, b.Severity, 0, 0)
		return nil, nil
	}

	generated := e.generate(current, b.Name)
	e.logger.Info("proposals generated", "count", len(generated))

	var approved []*models.Proposal
	for _, p := range generated {
		if len(scenarios) == 0 {
			// No scenarios means no sandbox evidence; hold the proposal as
			// pending rather than promoting it unvalidated.
			continue
		}
		result, err := e.validator.Validate(ctx, gate.Request{
			ProposalID:       p.ID,
			CurrentWorkflow:  current,
			ProposedWorkflow: workflow.Document(p.Modification),
			Scenarios:        scenarios,
			LimitingFactor:   p.TargetBottleneck,
		})
		if err != nil {
			return approved, fmt.Errorf("validate proposal %s: %w", p.ID, err)
		}
		p.Validation = result
		if result.Approved {
			approved = append(approved, p)
			e.logger.Info("proposal approved", "id", p.ID, "confidence", result.Confidence)
		} else {
			e.logger.Info("proposal rejected", "id", p.ID, "reason", result.Reason)
		}
	}

	e.retain(generated)
	e.recordReflection(b.Name, b.Severity, len(generated), len(approved))
	return approved, nil
}

// generate applies every strategy registered for the bottleneck dimension.
func (e *Engine) generate(current workflow.Document, bottleneckName string) []*models.Proposal {
	var out []*models.Proposal
	for _, strategy := range strategies[bottleneckName] {
		if p := strategy(current); p != nil {
			out = append(out, p)
		}
	}
	return out
}

func (e *Engine) retain(generated []*models.Proposal) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.proposals = append(e.proposals, generated...)
	if len(e.proposals) > e.cfg.MaxPending {
		e.proposals = e.proposals[len(e.proposals)-e.cfg.MaxPending:]
	}
}

func (e *Engine) recordReflection(name string, severity float64, generated, approved int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reflections = append(e.reflections, Reflection{
		Timestamp:  time.Now(),
		Bottleneck: name,
		Severity:   severity,
		Generated:  generated,
		Approved:   approved,
	})
}

// Deploy promotes an approved proposal. Asking for an untracked proposal or
// one whose last validation did not approve it is a caller error.
func (e *Engine) Deploy(proposalID string) (models.Deployment, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var found *models.Proposal
	for _, p := range e.proposals {
		if p.ID == proposalID {
			found = p
			break
		}
	}
	if found == nil {
		return models.Deployment{}, fmt.Errorf("%w: %s", ErrProposalNotFound, proposalID)
	}
	if !found.ApprovedForDeploy() {
		return models.Deployment{}, fmt.Errorf("%w: %s", ErrProposalNotApproved, proposalID)
	}

	d := models.Deployment{
		ProposalID:   found.ID,
		Type:         found.Type,
		Description:  found.Description,
		Modification: found.Modification,
		DeployedAt:   time.Now(),
	}
	e.deployed = append(e.deployed, d)
	e.logger.Info("proposal deployed", "id", found.ID, "type", found.Type)
	return d, nil
}

// Proposals returns the tracked proposals, newest last.
func (e *Engine) Proposals() []*models.Proposal {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*models.Proposal, len(e.proposals))
	copy(out, e.proposals)
	return out
}

// Deployments returns the deployment history.
func (e *Engine) Deployments() []models.Deployment {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.Deployment, len(e.deployed))
	copy(out, e.deployed)
	return out
}

// Reflections returns the reflection history.
func (e *Engine) Reflections() []Reflection {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Reflection, len(e.reflections))
	copy(out, e.reflections)
	return out
}
