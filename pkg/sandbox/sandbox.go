// Package sandbox defines the boundary to the isolated execution environment
// used to measure a workflow without affecting production.
package sandbox

import (
	"context"
	"fmt"

	"github.com/agentops/evogate/pkg/models"
	"github.com/agentops/evogate/pkg/workflow"
)

// ResourceLimits caps a sandbox run. Quantities use Kubernetes notation
// ("512Mi", "500m") so a runaway candidate cannot starve the host or other
// concurrent runs.
type ResourceLimits struct {
	Memory     string
	CPURequest string
	CPULimit   string
}

// DefaultLimits returns the standard sandbox caps.
func DefaultLimits() ResourceLimits {
	return ResourceLimits{
		Memory:     "512Mi",
		CPURequest: "250m",
		CPULimit:   "500m",
	}
}

// RunSpec describes one isolated run.
type RunSpec struct {
	// Label identifies the run ("baseline", "candidate", "scale-5x"). It is
	// embedded in the sandbox instance name, so concurrent validations with
	// distinct proposal ids never collide.
	Label     string
	Workflow  workflow.Document
	Scenarios []models.Scenario
	Limits    ResourceLimits
}

// Result is the raw outcome of a sandbox run.
type Result struct {
	// Output is whatever the sandboxed process wrote; the runner parses it
	// into structured metrics.
	Output []byte

	// ObservedMemoryPeakMB is the peak memory sampled from outside the
	// sandbox, 0 when the backend does not sample.
	ObservedMemoryPeakMB float64
}

// Backend executes a workflow in an isolated, resource-capped environment.
// Implementations must honor the supplied limits and guarantee teardown of the
// execution environment on every exit path.
type Backend interface {
	Execute(ctx context.Context, spec RunSpec) (Result, error)
}

// ExecutionError reports an abnormal sandbox termination. Partial holds
// whatever output existed at the time of failure; a zero-length Partial means
// nothing was recoverable.
type ExecutionError struct {
	Label   string
	Partial []byte
	Err     error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("sandbox run %q failed: %v", e.Label, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }
