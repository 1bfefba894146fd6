// Demo of the full validation loop against a simulated sandbox: no cluster
// required. The simulated backend models how parallelism, batching, caching
// and model choice shift the measured metrics, so the gate has real deltas
// to judge.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/lmittmann/tint"

	"github.com/agentops/evogate/pkg/dimension"
	"github.com/agentops/evogate/pkg/gate"
	"github.com/agentops/evogate/pkg/models"
	"github.com/agentops/evogate/pkg/monitor"
	"github.com/agentops/evogate/pkg/proposer"
	"github.com/agentops/evogate/pkg/reporter"
	"github.com/agentops/evogate/pkg/runner"
	"github.com/agentops/evogate/pkg/sandbox"
	"github.com/agentops/evogate/pkg/storage"
	"github.com/agentops/evogate/pkg/workflow"
)

// simBackend pretends to be the sandbox. Throughput scales with the scenario
// count, so the scale test sees clean linearity; workflow config changes
// shift the simulated measurements the way they would on real hardware.
type simBackend struct{}

func (simBackend) Execute(_ context.Context, spec sandbox.RunSpec) (sandbox.Result, error) {
	factor := 1.0
	costFactor := 1.0

	if p := spec.Workflow.GetInt("config.parallelism", 1); p > 1 {
		factor *= 1 + 0.25*math.Log2(float64(p))
	}
	if _, ok := spec.Workflow.Get("config.batching"); ok {
		factor *= 1.08
		costFactor *= 0.92
	}
	if _, ok := spec.Workflow.Get("config.caching"); ok {
		factor *= 1.20
		costFactor *= 0.85
	}
	if spec.Workflow.GetString("config.model", "") == "haiku" {
		costFactor *= 0.30
	}

	tasks := int64(len(spec.Scenarios))
	metrics := models.PerformanceMetrics{
		Throughput:     float64(tasks) * 2.0 * factor,
		Cost:           0.50 * costFactor,
		ErrorRate:      0.02,
		LatencyP95:     2.0 / factor,
		LatencyP99:     3.0 / factor,
		MemoryPeakMB:   120 + float64(tasks)*2,
		TotalTasks:     tasks,
		CompletedTasks: tasks,
		Duration:       1.0,
	}

	payload, err := json.Marshal(map[string]any{"metrics": metrics})
	if err != nil {
		return sandbox.Result{}, err
	}
	// Interleave a log line the way a real sandbox image would.
	output := fmt.Sprintf("run %s: %d scenarios\n%s\n", spec.Label, tasks, payload)
	return sandbox.Result{Output: []byte(output)}, nil
}

func main() {
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: time.TimeOnly,
	}))
	slog.SetDefault(logger)

	ctx := context.Background()

	// Live readings showing a throughput-bound system.
	mon := monitor.New(dimension.DefaultRegistry())
	mon.Record(map[string]float64{
		dimension.Throughput: 20,
		dimension.Latency:    2.5,
		dimension.Cost:       0.45,
		dimension.ErrorRate:  0.02,
		dimension.Memory:     230,
	}, map[string]any{"source": "demo"})

	fmt.Println(mon.Summary())

	store := storage.NewMemoryStore()
	defer store.Close()
	verdicts := store.Subscribe(storage.Channel)

	run := runner.New(simBackend{},
		runner.WithCache(store, time.Hour),
		runner.WithLogger(logger),
	)

	gcfg := gate.DefaultConfig()
	gcfg.Cooldown = 0
	validator := gate.NewValidator(gcfg, run,
		gate.WithStore(store),
		gate.WithLogger(logger),
	)

	engine := proposer.NewEngine(mon, validator, proposer.DefaultEngineConfig(), logger)

	current := workflow.Document{
		"name": "research-pipeline",
		"config": map[string]any{
			"parallelism": 2,
			"model":       "sonnet",
		},
		"steps": []any{
			map[string]any{"id": "gather", "action": "search"},
			map[string]any{"id": "summarize", "action": "llm"},
		},
	}
	scenarios := []models.Scenario{
		{"query": "quarterly revenue trends", "depth": 2},
		{"query": "competitor pricing", "depth": 1},
		{"query": "supply chain risks", "depth": 3},
		{"query": "customer churn drivers", "depth": 2},
		{"query": "market entry options", "depth": 2},
	}

	approved, err := engine.ReflectAndPropose(ctx, current, scenarios)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\n=== Verdicts ===")
	for _, p := range engine.Proposals() {
		if p.Validation == nil {
			fmt.Printf("Proposal %s: not validated\n", p.ID)
			continue
		}
		if err := reporter.RenderResult(*p.Validation, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	if len(approved) > 0 {
		d, err := engine.Deploy(approved[0].ID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\nDeployed: %s (%s)\n", d.ProposalID, d.Description)
	} else {
		fmt.Println("\nNothing passed the gate")
	}

	// Drain whatever the validator published.
	fmt.Println("\n=== Published events ===")
	for {
		select {
		case payload := <-verdicts:
			var res models.ValidationResult
			if err := json.Unmarshal(payload, &res); err == nil {
				fmt.Printf("%s approved=%v confidence=%.2f\n", res.ProposalID, res.Approved, res.Confidence)
			}
		default:
			return
		}
	}
}
