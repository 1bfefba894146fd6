package proposer

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agentops/evogate/pkg/dimension"
	"github.com/agentops/evogate/pkg/models"
	"github.com/agentops/evogate/pkg/workflow"
)

// strategyFunc builds a candidate proposal from the current workflow, or
// returns nil when the optimization does not apply (already present, already
// maxed out).
type strategyFunc func(wf workflow.Document) *models.Proposal

// strategies maps a bottleneck dimension to the transforms that target it.
// A lookup table rather than branching logic keeps the set swappable without
// touching the gate.
var strategies = map[string][]strategyFunc{
	dimension.Throughput:   {proposeParallelism, proposeBatching},
	dimension.Latency:      {proposeCaching, proposeModelSwitch},
	dimension.APIRateLimit: {proposeRetryBackoff},
	dimension.Cost:         {proposeContextOptimization},
	dimension.ErrorRate:    {proposeInputValidation},
}

// Declared parameter paths. Transforms address documents through this schema
// only; there is no recursive parameter search.
const (
	pathParallelism = "config.parallelism"
	pathBatching    = "config.batching"
	pathCaching     = "config.caching"
	pathModel       = "config.model"
	pathRetry       = "config.retry"
	pathContext     = "config.context"
	pathValidation  = "config.validation"
)

func newProposalID(kind models.OptimizationType) string {
	return fmt.Sprintf("%s-%s", kind, uuid.New().String()[:8])
}

func proposeParallelism(wf workflow.Document) *models.Proposal {
	current := wf.GetInt(pathParallelism, 1)
	if current >= 4 {
		return nil
	}
	next := min(current*2, 8)
	modified, err := wf.Set(pathParallelism, next)
	if err != nil {
		return nil
	}
	return &models.Proposal{
		ID:                  newProposalID(models.OptParallelism),
		Type:                models.OptParallelism,
		Description:         fmt.Sprintf("Increase parallelism from %d to %d", current, next),
		TargetBottleneck:    dimension.Throughput,
		ExpectedImprovement: 0.3,
		Modification:        modified,
		Confidence:          0.85,
		CreatedAt:           time.Now(),
	}
}

func proposeBatching(wf workflow.Document) *models.Proposal {
	if _, ok := wf.Get(pathBatching); ok {
		return nil
	}
	modified, err := wf.Set(pathBatching, map[string]any{
		"batch_size":  10,
		"max_wait_ms": 100,
	})
	if err != nil {
		return nil
	}
	return &models.Proposal{
		ID:                  newProposalID(models.OptBatching),
		Type:                models.OptBatching,
		Description:         "Add request batching to reduce per-request overhead",
		TargetBottleneck:    dimension.Throughput,
		ExpectedImprovement: 0.25,
		Modification:        modified,
		Confidence:          0.75,
		CreatedAt:           time.Now(),
	}
}

func proposeCaching(wf workflow.Document) *models.Proposal {
	if v, ok := wf.Get(pathCaching); ok && v != nil {
		return nil
	}
	modified, err := wf.Set(pathCaching, map[string]any{
		"enabled":          true,
		"ttl_seconds":      300,
		"cache_key_fields": []any{"input_hash"},
	})
	if err != nil {
		return nil
	}
	return &models.Proposal{
		ID:                  newProposalID(models.OptCaching),
		Type:                models.OptCaching,
		Description:         "Add result caching to avoid redundant computations",
		TargetBottleneck:    dimension.Latency,
		ExpectedImprovement: 0.4,
		Modification:        modified,
		Confidence:          0.9,
		CreatedAt:           time.Now(),
	}
}

func proposeModelSwitch(wf workflow.Document) *models.Proposal {
	model := wf.GetString(pathModel, "")
	if !strings.Contains(strings.ToLower(model), "sonnet") {
		return nil
	}
	modified, err := wf.Set(pathModel, "haiku")
	if err != nil {
		return nil
	}
	return &models.Proposal{
		ID:                  newProposalID(models.OptModelSwitch),
		Type:                models.OptModelSwitch,
		Description:         "Switch to faster model variant",
		TargetBottleneck:    dimension.Latency,
		ExpectedImprovement: 0.35,
		Modification:        modified,
		Confidence:          0.7,
		CreatedAt:           time.Now(),
	}
}

func proposeRetryBackoff(wf workflow.Document) *models.Proposal {
	if _, ok := wf.Get(pathRetry); ok {
		return nil
	}
	modified, err := wf.Set(pathRetry, map[string]any{
		"enabled":       true,
		"max_retries":   3,
		"base_delay_ms": 1000,
		"max_delay_ms":  30000,
		"jitter":        true,
	})
	if err != nil {
		return nil
	}
	return &models.Proposal{
		ID:                  newProposalID(models.OptRetryLogic),
		Type:                models.OptRetryLogic,
		Description:         "Implement exponential backoff to reduce rate limit hits",
		TargetBottleneck:    dimension.APIRateLimit,
		ExpectedImprovement: 0.5,
		Modification:        modified,
		Confidence:          0.88,
		CreatedAt:           time.Now(),
	}
}

func proposeContextOptimization(wf workflow.Document) *models.Proposal {
	modified, err := wf.Set(pathContext, map[string]any{
		"max_tokens":        4000,
		"compression_ratio": 0.5,
		"summarize_older":   true,
	})
	if err != nil {
		return nil
	}
	return &models.Proposal{
		ID:                  newProposalID(models.OptContext),
		Type:                models.OptContext,
		Description:         "Optimize context window usage to reduce token costs",
		TargetBottleneck:    dimension.Cost,
		ExpectedImprovement: 0.2,
		Modification:        modified,
		Confidence:          0.82,
		CreatedAt:           time.Now(),
	}
}

func proposeInputValidation(wf workflow.Document) *models.Proposal {
	if _, ok := wf.Get(pathValidation); ok {
		return nil
	}
	modified, err := wf.Set(pathValidation, map[string]any{
		"enabled":     true,
		"strict_mode": true,
		"fail_fast":   true,
	})
	if err != nil {
		return nil
	}
	return &models.Proposal{
		ID:                  newProposalID(models.OptRestructuring),
		Type:                models.OptRestructuring,
		Description:         "Add input validation to catch errors early",
		TargetBottleneck:    dimension.ErrorRate,
		ExpectedImprovement: 0.45,
		Modification:        modified,
		Confidence:          0.92,
		CreatedAt:           time.Now(),
	}
}
