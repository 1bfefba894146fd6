package models

import "time"

// OptimizationType classifies the kind of workflow change a proposal makes.
type OptimizationType string

const (
	OptParallelism     OptimizationType = "parallelism"
	OptBatching        OptimizationType = "batching"
	OptCaching         OptimizationType = "caching"
	OptRetryLogic      OptimizationType = "retry_logic"
	OptModelSwitch     OptimizationType = "model_switch"
	OptContext         OptimizationType = "context_optimization"
	OptRestructuring   OptimizationType = "workflow_restructuring"
)

// Proposal is a candidate workflow modification awaiting validation.
type Proposal struct {
	ID                  string            `json:"id"`
	Type                OptimizationType  `json:"type"`
	Description         string            `json:"description"`
	TargetBottleneck    string            `json:"target_bottleneck"`
	ExpectedImprovement float64           `json:"expected_improvement"`
	Modification        map[string]any    `json:"modification"`
	Confidence          float64           `json:"confidence"`
	CreatedAt           time.Time         `json:"created_at"`
	Validation          *ValidationResult `json:"validation,omitempty"`
}

// Approved reports whether the proposal's last validation approved it.
func (p *Proposal) ApprovedForDeploy() bool {
	return p.Validation != nil && p.Validation.Approved
}

// Deployment records a promoted proposal.
type Deployment struct {
	ProposalID   string           `json:"proposal_id"`
	Type         OptimizationType `json:"type"`
	Description  string           `json:"description"`
	Modification map[string]any   `json:"modification"`
	DeployedAt   time.Time        `json:"deployed_at"`
}
