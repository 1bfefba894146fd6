package scale

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/agentops/evogate/pkg/models"
	"github.com/agentops/evogate/pkg/workflow"
)

// fakeRunner returns throughput proportional to the scenario count, which is
// exactly linear scaling.
type fakeRunner struct {
	perTask float64
	calls   []string
	failOn  string
}

func (f *fakeRunner) Run(_ context.Context, _ workflow.Document, scenarios []models.Scenario, label string) (models.PerformanceMetrics, error) {
	f.calls = append(f.calls, label)
	if label == f.failOn {
		return models.PerformanceMetrics{}, errors.New("sandbox blew up")
	}
	n := len(scenarios)
	return models.PerformanceMetrics{
		Throughput: float64(n) * f.perTask,
		TotalTasks: int64(n),
		Duration:   1.0,
	}, nil
}

func TestRunPerfectLinearity(t *testing.T) {
	r := &fakeRunner{perTask: 2.0}
	tester := New(r, WithCooldown(0))

	scenarios := []models.Scenario{{"a": 1}, {"b": 2}}
	result, err := tester.Run(context.Background(), workflow.Document{}, scenarios)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(result.Points) != 3 {
		t.Fatalf("Expected 3 points, got %d", len(result.Points))
	}
	if math.Abs(result.Linearity-1.0) > 1e-9 {
		t.Errorf("Expected linearity 1.0, got %.4f", result.Linearity)
	}
	for _, m := range []int{5, 10} {
		key := fmt.Sprintf("%dx", m)
		if lin := result.PerMultiplier[key]; math.Abs(lin-1.0) > 1e-9 {
			t.Errorf("Expected per-multiplier linearity 1.0 at %s, got %.4f", key, lin)
		}
	}
	if _, ok := result.PerMultiplier["1x"]; ok {
		t.Error("1x step should be excluded from per-multiplier linearity")
	}
}

// superlinearRunner gets more efficient per task once load rises, as a
// candidate with good batching would.
type superlinearRunner struct {
	baseTasks int
}

func (s *superlinearRunner) Run(_ context.Context, _ workflow.Document, scenarios []models.Scenario, _ string) (models.PerformanceMetrics, error) {
	n := len(scenarios)
	perTask := 2.0
	if n > s.baseTasks {
		perTask = 2.4
	}
	return models.PerformanceMetrics{
		Throughput: float64(n) * perTask,
		TotalTasks: int64(n),
		Duration:   1.0,
	}, nil
}

func TestRunSuperlinearReportsAboveOne(t *testing.T) {
	scenarios := []models.Scenario{{"a": 1}, {"b": 2}}
	tester := New(&superlinearRunner{baseTasks: len(scenarios)}, WithCooldown(0))

	result, err := tester.Run(context.Background(), workflow.Document{}, scenarios)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// 2.4/2.0 efficiency at every m>1 step; the mean is reported as-is,
	// not clamped to 1.
	if math.Abs(result.Linearity-1.2) > 1e-9 {
		t.Errorf("Expected linearity 1.2, got %.4f", result.Linearity)
	}
}

func TestRunLabelsAndLoadSteps(t *testing.T) {
	r := &fakeRunner{perTask: 1.0}
	tester := New(r, WithCooldown(0), WithMultipliers([]int{1, 3}))

	scenarios := []models.Scenario{{"a": 1}}
	result, err := tester.Run(context.Background(), workflow.Document{}, scenarios)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := []string{"scale-1x", "scale-3x"}
	if len(r.calls) != len(want) {
		t.Fatalf("Expected %d runs, got %d", len(want), len(r.calls))
	}
	for i, label := range want {
		if r.calls[i] != label {
			t.Errorf("Run %d: expected label %s, got %s", i, label, r.calls[i])
		}
	}
	if result.Points[1].TotalTasks != 3 {
		t.Errorf("Expected 3 tasks at 3x, got %d", result.Points[1].TotalTasks)
	}
}

func TestRunFailedStepBecomesZeroPoint(t *testing.T) {
	r := &fakeRunner{perTask: 2.0, failOn: "scale-5x"}
	tester := New(r, WithCooldown(0))

	result, err := tester.Run(context.Background(), workflow.Document{}, []models.Scenario{{"a": 1}})
	if err != nil {
		t.Fatalf("Run should not abort on a failed step: %v", err)
	}

	if len(result.Points) != 3 {
		t.Fatalf("Expected 3 points including the failed one, got %d", len(result.Points))
	}
	if result.Points[1].Throughput != 0 {
		t.Errorf("Expected zero throughput for failed 5x step, got %.2f", result.Points[1].Throughput)
	}
	// Mean of 0 (5x) and 1.0 (10x)
	if math.Abs(result.Linearity-0.5) > 1e-9 {
		t.Errorf("Expected linearity 0.5, got %.4f", result.Linearity)
	}
}

func TestRunZeroBaseThroughput(t *testing.T) {
	r := &fakeRunner{perTask: 2.0, failOn: "scale-1x"}
	tester := New(r, WithCooldown(0))

	result, err := tester.Run(context.Background(), workflow.Document{}, []models.Scenario{{"a": 1}})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Linearity != 0 {
		t.Errorf("Expected zero linearity with zero base throughput, got %.4f", result.Linearity)
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	r := &fakeRunner{perTask: 2.0}
	tester := New(r) // default 2s cooldown

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// First run executes, cancellation observed before the second.
	_, err := tester.Run(ctx, workflow.Document{}, []models.Scenario{{"a": 1}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if len(r.calls) != 1 {
		t.Errorf("Expected 1 run before cancellation, got %d", len(r.calls))
	}
}
