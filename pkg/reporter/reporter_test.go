package reporter

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/agentops/evogate/pkg/models"
)

func sampleResults() []models.ValidationResult {
	return []models.ValidationResult{
		{
			ProposalID:   "parallelism-abc123",
			Approved:     true,
			Improvements: map[string]float64{"throughput": 0.22},
			Confidence:   0.78,
			Scale:        models.ScaleResult{Linearity: 0.95, Points: []models.ScalePoint{{Multiplier: 1}}},
			Timestamp:    time.Now(),
		},
		{
			ProposalID:  "batching-def456",
			Approved:    false,
			Regressions: map[string]float64{"memory": 0.12},
			Confidence:  0.41,
			Reason:      "regression (12.0%) exceeds tolerance (5%)",
			Timestamp:   time.Now(),
		},
	}
}

func TestGenerateStats(t *testing.T) {
	rep := New(FormatMarkdown)
	report, err := rep.Generate(sampleResults(), "research-pipeline")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if report.ApprovedCount != 1 || report.RejectedCount != 1 {
		t.Errorf("Expected 1 approved / 1 rejected, got %d / %d",
			report.ApprovedCount, report.RejectedCount)
	}
	if report.AvgConfidence != (0.78+0.41)/2 {
		t.Errorf("Expected avg confidence %.3f, got %.3f", (0.78+0.41)/2, report.AvgConfidence)
	}

	thr := report.DimensionWins["throughput"]
	if thr == nil || thr.Improvements != 1 || thr.BestImprovement != 0.22 {
		t.Errorf("Unexpected throughput stats: %+v", thr)
	}
	mem := report.DimensionWins["memory"]
	if mem == nil || mem.Regressions != 1 {
		t.Errorf("Unexpected memory stats: %+v", mem)
	}
}

func TestSortedDimensions(t *testing.T) {
	rep := New(FormatMarkdown)
	results := []models.ValidationResult{
		{
			ProposalID:   "caching-xyz789",
			Approved:     true,
			Improvements: map[string]float64{"throughput": 0.18, "latency": 0.25, "cost": 0.10},
			Regressions:  map[string]float64{"memory": 0.02},
			Confidence:   0.8,
			Timestamp:    time.Now(),
		},
	}
	report, err := rep.Generate(results, "research-pipeline")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	stats := report.SortedDimensions()
	want := []string{"cost", "latency", "memory", "throughput"}
	if len(stats) != len(want) {
		t.Fatalf("Expected %d dimension rows, got %d", len(want), len(stats))
	}
	for i, name := range want {
		if stats[i].Dimension != name {
			t.Errorf("Expected dimension %q at position %d, got %q", name, i, stats[i].Dimension)
		}
	}

	var buf bytes.Buffer
	if err := GenerateMarkdown(report, &buf); err != nil {
		t.Fatalf("GenerateMarkdown failed: %v", err)
	}
	out := buf.String()
	last := -1
	for _, name := range want {
		idx := strings.Index(out, "| "+name+" |")
		if idx < 0 {
			t.Fatalf("Markdown missing dimension row %q:\n%s", name, out)
		}
		if idx < last {
			t.Errorf("Dimension row %q out of order", name)
		}
		last = idx
	}
}

func TestGenerateMarkdown(t *testing.T) {
	rep := New(FormatMarkdown)
	report, _ := rep.Generate(sampleResults(), "research-pipeline")

	var buf bytes.Buffer
	if err := GenerateMarkdown(report, &buf); err != nil {
		t.Fatalf("GenerateMarkdown failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"# Validation Report: research-pipeline",
		"parallelism-abc123",
		"APPROVED",
		"REJECTED",
		"regression (12.0%) exceeds tolerance",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Markdown missing %q:\n%s", want, out)
		}
	}
}

func TestGenerateCSV(t *testing.T) {
	rep := New(FormatCSV)
	report, _ := rep.Generate(sampleResults(), "research-pipeline")

	var buf bytes.Buffer
	if err := GenerateCSV(report, &buf); err != nil {
		t.Fatalf("GenerateCSV failed: %v", err)
	}
	out := buf.String()

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if !strings.HasPrefix(lines[0], "Proposal ID,Verdict,Confidence") {
		t.Errorf("Unexpected CSV header: %s", lines[0])
	}
	if !strings.Contains(out, "throughput +22.0%") {
		t.Errorf("CSV missing improvement column:\n%s", out)
	}
	if !strings.Contains(out, "SUMMARY") {
		t.Error("CSV missing summary section")
	}
}

func TestRenderResult(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderResult(sampleResults()[0], &buf); err != nil {
		t.Fatalf("RenderResult failed: %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, "APPROVED") {
		t.Errorf("Expected verdict in output:\n%s", out)
	}
	if !strings.Contains(out, "improved throughput: +22.0%") {
		t.Errorf("Expected improvement line:\n%s", out)
	}
}
