package runner

import (
	"errors"
	"testing"
	"time"
)

func TestParseOutputWholeDocument(t *testing.T) {
	raw := []byte(`{"metrics": {"throughput": 12.5, "error_rate": 0.05, "duration_seconds": 99}}`)

	m, err := ParseOutput(raw, 3*time.Second)
	if err != nil {
		t.Fatalf("ParseOutput failed: %v", err)
	}
	if m.Throughput != 12.5 {
		t.Errorf("Expected throughput 12.5, got %.2f", m.Throughput)
	}
	// Measured duration overrides the self-reported one
	if m.Duration != 3.0 {
		t.Errorf("Expected duration 3.0, got %.2f", m.Duration)
	}
}

func TestParseOutputScansFromEnd(t *testing.T) {
	raw := []byte(`[INFO] sandbox starting
{"event": "progress", "done": 3}
{"metrics": {"throughput": 7.0}}
[INFO] sandbox exiting
`)

	m, err := ParseOutput(raw, time.Second)
	if err != nil {
		t.Fatalf("ParseOutput failed: %v", err)
	}
	if m.Throughput != 7.0 {
		t.Errorf("Expected throughput 7.0, got %.2f", m.Throughput)
	}
}

func TestParseOutputLastMetricsLineWins(t *testing.T) {
	raw := []byte(`{"metrics": {"throughput": 1.0}}
{"metrics": {"throughput": 2.0}}
`)

	m, err := ParseOutput(raw, time.Second)
	if err != nil {
		t.Fatalf("ParseOutput failed: %v", err)
	}
	if m.Throughput != 2.0 {
		t.Errorf("Expected last metrics line to win, got %.2f", m.Throughput)
	}
}

func TestParseOutputMalformed(t *testing.T) {
	for _, raw := range [][]byte{
		nil,
		[]byte(""),
		[]byte("plain text"),
		[]byte(`{"no_metrics_key": true}`),
		[]byte(`{"metrics": "not an object"`),
	} {
		m, err := ParseOutput(raw, 2*time.Second)
		if !errors.Is(err, ErrMalformedOutput) {
			t.Errorf("Expected ErrMalformedOutput for %q, got %v", raw, err)
		}
		if !m.IsZero() {
			t.Errorf("Expected zero metrics for %q", raw)
		}
		if m.Duration != 2.0 {
			t.Errorf("Expected duration 2.0 on fallback, got %.2f", m.Duration)
		}
	}
}

func TestParseOutputUnknownFieldsIgnored(t *testing.T) {
	raw := []byte(`{"metrics": {"throughput": 4.0, "gpu_seconds": 12.0}, "extra": []}`)

	m, err := ParseOutput(raw, time.Second)
	if err != nil {
		t.Fatalf("ParseOutput failed: %v", err)
	}
	if m.Throughput != 4.0 {
		t.Errorf("Expected throughput 4.0, got %.2f", m.Throughput)
	}
}
