package gate

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/agentops/evogate/pkg/dimension"
	"github.com/agentops/evogate/pkg/models"
	"github.com/agentops/evogate/pkg/storage"
	"github.com/agentops/evogate/pkg/workflow"
)

// stubRunner serves canned metrics per run label. Scale labels derive
// throughput from the scenario count times perTask, which is linear scaling
// unless overridden per label.
type stubRunner struct {
	baseline  models.PerformanceMetrics
	candidate models.PerformanceMetrics
	perTask   float64
	overrides map[string]float64 // label -> throughput
	calls     map[string]int
}

func (s *stubRunner) Run(_ context.Context, _ workflow.Document, scenarios []models.Scenario, label string) (models.PerformanceMetrics, error) {
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[label]++

	switch label {
	case "baseline":
		return s.baseline, nil
	case "candidate":
		return s.candidate, nil
	}
	thr := float64(len(scenarios)) * s.perTask
	if v, ok := s.overrides[label]; ok {
		thr = v
	}
	return models.PerformanceMetrics{
		Throughput: thr,
		TotalTasks: int64(len(scenarios)),
		Duration:   1.0,
	}, nil
}

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.Cooldown = 0
	return cfg
}

func request() Request {
	return Request{
		ProposalID:       "test-proposal",
		CurrentWorkflow:  workflow.Document{"config": map[string]any{"parallelism": 1}},
		ProposedWorkflow: workflow.Document{"config": map[string]any{"parallelism": 2}},
		Scenarios:        []models.Scenario{{"a": 1}, {"b": 2}},
		LimitingFactor:   dimension.Throughput,
	}
}

func TestValidateApproves(t *testing.T) {
	r := &stubRunner{
		baseline:  models.PerformanceMetrics{Throughput: 10, Cost: 0.5, ErrorRate: 0.02, LatencyP95: 2, MemoryPeakMB: 200},
		candidate: models.PerformanceMetrics{Throughput: 12, Cost: 0.5, ErrorRate: 0.02, LatencyP95: 2, MemoryPeakMB: 200},
		perTask:   2.0,
	}
	v := NewValidator(fastConfig(), r)

	result, err := v.Validate(context.Background(), request())
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !result.Approved {
		t.Fatalf("Expected approval, got rejection: %s", result.Reason)
	}
	if result.Reason != "" {
		t.Errorf("Approved result should carry no reason, got %q", result.Reason)
	}
	if math.Abs(result.Improvements[dimension.Throughput]-0.2) > 1e-9 {
		t.Errorf("Expected 20%% throughput improvement, got %.4f", result.Improvements[dimension.Throughput])
	}
	if result.Confidence <= 0 || result.Confidence > 1 {
		t.Errorf("Confidence out of range: %.4f", result.Confidence)
	}
	if r.calls["baseline"] != 1 || r.calls["candidate"] != 1 {
		t.Errorf("Expected one baseline and one candidate run, got %v", r.calls)
	}
}

func TestValidateRejectsWeakImprovement(t *testing.T) {
	r := &stubRunner{
		baseline:  models.PerformanceMetrics{Throughput: 10, Cost: 0.5, ErrorRate: 0.02, LatencyP95: 2, MemoryPeakMB: 200},
		candidate: models.PerformanceMetrics{Throughput: 11, Cost: 0.5, ErrorRate: 0.02, LatencyP95: 2, MemoryPeakMB: 200},
		perTask:   2.0,
	}
	v := NewValidator(fastConfig(), r)

	result, err := v.Validate(context.Background(), request())
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if result.Approved {
		t.Fatal("Expected rejection for 10% improvement")
	}
	if !strings.Contains(result.Reason, "bottleneck improvement") {
		t.Errorf("Expected bottleneck reason, got %q", result.Reason)
	}
	if !strings.Contains(result.Reason, "10.0%") {
		t.Errorf("Expected measured percentage in reason, got %q", result.Reason)
	}
}

func TestValidateRejectsRegression(t *testing.T) {
	r := &stubRunner{
		baseline:  models.PerformanceMetrics{Throughput: 10, Cost: 0.50, ErrorRate: 0.02, LatencyP95: 2, MemoryPeakMB: 200},
		candidate: models.PerformanceMetrics{Throughput: 13, Cost: 0.60, ErrorRate: 0.02, LatencyP95: 2, MemoryPeakMB: 200},
		perTask:   2.0,
	}
	v := NewValidator(fastConfig(), r)

	result, err := v.Validate(context.Background(), request())
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if result.Approved {
		t.Fatal("Expected rejection for 20% cost regression")
	}
	if !strings.Contains(result.Reason, "regression") {
		t.Errorf("Expected regression reason, got %q", result.Reason)
	}
	if math.Abs(result.Regressions[dimension.Cost]-0.2) > 1e-9 {
		t.Errorf("Expected 20%% cost regression, got %.4f", result.Regressions[dimension.Cost])
	}
}

func TestValidateRejectsSublinearScaling(t *testing.T) {
	r := &stubRunner{
		baseline:  models.PerformanceMetrics{Throughput: 10, Cost: 0.5, ErrorRate: 0.02, LatencyP95: 2, MemoryPeakMB: 200},
		candidate: models.PerformanceMetrics{Throughput: 13, Cost: 0.5, ErrorRate: 0.02, LatencyP95: 2, MemoryPeakMB: 200},
		perTask:   2.0,
		overrides: map[string]float64{
			// 1x = 4.0; 5x should be 20, 10x should be 40
			"scale-5x":  12, // 0.6 linearity
			"scale-10x": 24, // 0.6 linearity
		},
	}
	v := NewValidator(fastConfig(), r)

	result, err := v.Validate(context.Background(), request())
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if result.Approved {
		t.Fatal("Expected rejection for sublinear scaling")
	}
	if !strings.Contains(result.Reason, "scale linearity") {
		t.Errorf("Expected linearity reason, got %q", result.Reason)
	}
	if math.Abs(result.Scale.Linearity-0.6) > 1e-9 {
		t.Errorf("Expected linearity 0.6, got %.4f", result.Scale.Linearity)
	}
}

func TestValidateIdentifiesBottleneckWhenUnspecified(t *testing.T) {
	r := &stubRunner{
		// Throughput 10 vs target 100: throughput is the bottleneck.
		baseline:  models.PerformanceMetrics{Throughput: 10, Cost: 0.1, ErrorRate: 0.001, LatencyP95: 0.5, MemoryPeakMB: 50},
		candidate: models.PerformanceMetrics{Throughput: 12, Cost: 0.1, ErrorRate: 0.001, LatencyP95: 0.5, MemoryPeakMB: 50},
		perTask:   2.0,
	}
	v := NewValidator(fastConfig(), r)

	req := request()
	req.LimitingFactor = ""
	result, err := v.Validate(context.Background(), req)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !result.Approved {
		t.Fatalf("Expected approval, got: %s", result.Reason)
	}
	// The identification run doubles as the baseline; no second baseline run.
	if r.calls["baseline"] != 1 {
		t.Errorf("Expected baseline run reused for identification, got %d runs", r.calls["baseline"])
	}
}

func TestValidatePersistsAndPublishesOnce(t *testing.T) {
	store := storage.NewMemoryStore()
	defer store.Close()
	events := store.Subscribe(storage.Channel)

	r := &stubRunner{
		baseline:  models.PerformanceMetrics{Throughput: 10, Cost: 0.5, ErrorRate: 0.02, LatencyP95: 2, MemoryPeakMB: 200},
		candidate: models.PerformanceMetrics{Throughput: 12, Cost: 0.5, ErrorRate: 0.02, LatencyP95: 2, MemoryPeakMB: 200},
		perTask:   2.0,
	}
	v := NewValidator(fastConfig(), r, WithStore(store))

	result, err := v.Validate(context.Background(), request())
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	stored, err := store.GetResult(context.Background(), "test-proposal")
	if err != nil {
		t.Fatalf("GetResult failed: %v", err)
	}
	if stored.Approved != result.Approved {
		t.Error("Stored verdict does not match returned verdict")
	}

	select {
	case payload := <-events:
		var published models.ValidationResult
		if err := json.Unmarshal(payload, &published); err != nil {
			t.Fatalf("Published payload not valid JSON: %v", err)
		}
		if published.ProposalID != "test-proposal" {
			t.Errorf("Expected published proposal test-proposal, got %s", published.ProposalID)
		}
	default:
		t.Fatal("Expected exactly one published event, got none")
	}
	select {
	case <-events:
		t.Fatal("Expected exactly one published event, got more")
	default:
	}
}

func TestValidateCancellation(t *testing.T) {
	r := &stubRunner{perTask: 2.0}
	v := NewValidator(DefaultConfig(), r) // real cooldown so cancellation is observed

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := v.Validate(ctx, request()); err == nil {
		t.Fatal("Expected error from canceled context")
	}
}

func TestConfidenceClamped(t *testing.T) {
	// Strong everything still caps at 1
	c := Confidence(map[string]float64{"throughput": 5.0}, nil, 1.0)
	if c > 1 {
		t.Errorf("Confidence above 1: %.4f", c)
	}
	// Heavy regression floors at 0
	c = Confidence(nil, map[string]float64{"cost": 10.0}, 0)
	if c < 0 {
		t.Errorf("Confidence below 0: %.4f", c)
	}

	// Neutral evidence: 0.5 base + 0.2 linearity
	c = Confidence(nil, nil, 1.0)
	if math.Abs(c-0.7) > 1e-9 {
		t.Errorf("Expected 0.7 for neutral evidence with perfect linearity, got %.4f", c)
	}
}

func TestDecideReasonPriority(t *testing.T) {
	v := NewValidator(fastConfig(), &stubRunner{perTask: 2})

	// All three fail: the bottleneck check wins.
	approved, reason := v.decide(dimension.Throughput,
		map[string]float64{dimension.Throughput: 0.01},
		map[string]float64{dimension.Cost: 0.5},
		models.ScaleResult{Linearity: 0.1},
	)
	if approved {
		t.Fatal("Expected rejection")
	}
	if !strings.Contains(reason, "bottleneck improvement") {
		t.Errorf("Expected bottleneck check to take priority, got %q", reason)
	}
}
