package monitor

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/agentops/evogate/pkg/dimension"
)

func TestIdentifyBottleneckIgnoresUnmeasured(t *testing.T) {
	m := New(dimension.DefaultRegistry())
	// accuracy (target 0.95) is never measured; at zero it would look like
	// the worst dimension of all.
	m.Record(map[string]float64{
		dimension.Throughput: 30, // severity 0.7
		dimension.Latency:    1,
		dimension.ErrorRate:  0.005,
	}, nil)

	b := m.IdentifyBottleneck()
	if b.Name != dimension.Throughput {
		t.Errorf("Expected throughput bottleneck, got %s (severity %.2f)", b.Name, b.Severity)
	}
	if math.Abs(b.Severity-0.7) > 1e-9 {
		t.Errorf("Expected severity 0.7, got %.4f", b.Severity)
	}
}

func TestRecordIgnoresUnknownMetrics(t *testing.T) {
	m := New(dimension.DefaultRegistry())
	m.Record(map[string]float64{"bogus_metric": 9000, dimension.Latency: 2}, nil)

	b := m.IdentifyBottleneck()
	if b.Name != dimension.Latency {
		t.Errorf("Expected latency, got %s", b.Name)
	}
}

func TestProjectAtScale(t *testing.T) {
	m := New(dimension.DefaultRegistry())
	m.Record(map[string]float64{
		dimension.Throughput: 10,
		dimension.Latency:    2,
		dimension.Memory:     100,
		dimension.ErrorRate:  0.01,
	}, nil)

	p := m.ProjectAtScale(10)

	// Linear growth
	if math.Abs(p[dimension.Throughput]-100) > 1e-9 {
		t.Errorf("Expected throughput 100 at 10x, got %.2f", p[dimension.Throughput])
	}
	// Mild degradation: 1 + 9*0.1 = 1.9
	if math.Abs(p[dimension.Latency]-3.8) > 1e-9 {
		t.Errorf("Expected latency 3.8 at 10x, got %.2f", p[dimension.Latency])
	}
	// Sub-linear: 1 + 9*0.5 = 5.5
	if math.Abs(p[dimension.Memory]-550) > 1e-9 {
		t.Errorf("Expected memory 550 at 10x, got %.2f", p[dimension.Memory])
	}
	// Unmeasured dimensions are not projected
	if _, ok := p[dimension.Accuracy]; ok {
		t.Error("Unmeasured accuracy should not be projected")
	}
}

func TestCheckConstraints(t *testing.T) {
	m := New(dimension.DefaultRegistry())
	m.Record(map[string]float64{dimension.Memory: 100}, nil)

	// 100 MB at 10x -> 550 MB > 512 MB max
	violations := m.CheckConstraints(m.ProjectAtScale(10))
	if len(violations) != 1 {
		t.Fatalf("Expected 1 violation, got %d", len(violations))
	}
	v := violations[0]
	if v.Dimension != dimension.Memory {
		t.Errorf("Expected memory violation, got %s", v.Dimension)
	}
	if v.Limit != 512 {
		t.Errorf("Expected limit 512, got %.0f", v.Limit)
	}
}

func TestTrendsDirectionAware(t *testing.T) {
	m := New(dimension.DefaultRegistry())
	// Throughput rising, latency rising
	m.Record(map[string]float64{dimension.Throughput: 10, dimension.Latency: 1.0}, nil)
	m.Record(map[string]float64{dimension.Throughput: 12, dimension.Latency: 1.5}, nil)

	trends := m.Trends(time.Minute)

	if got := trends[dimension.Throughput].Direction; got != "improving" {
		t.Errorf("Rising throughput should be improving, got %s", got)
	}
	// Rising latency is bad
	if got := trends[dimension.Latency].Direction; got != "degrading" {
		t.Errorf("Rising latency should be degrading, got %s", got)
	}
	if got := trends[dimension.Memory].Direction; got != "unknown" {
		t.Errorf("Unmeasured memory should be unknown, got %s", got)
	}
}

func TestTrendsStableWithinBand(t *testing.T) {
	m := New(dimension.DefaultRegistry())
	m.Record(map[string]float64{dimension.Throughput: 100}, nil)
	m.Record(map[string]float64{dimension.Throughput: 103}, nil)

	trends := m.Trends(time.Minute)
	if got := trends[dimension.Throughput].Direction; got != "stable" {
		t.Errorf("3%% change should be stable, got %s", got)
	}
}

func TestHistoryBounded(t *testing.T) {
	m := New(dimension.DefaultRegistry())
	m.historySize = 10
	for i := 0; i < 25; i++ {
		m.Record(map[string]float64{dimension.Throughput: float64(i)}, nil)
	}
	if len(m.history) != 10 {
		t.Errorf("Expected history capped at 10, got %d", len(m.history))
	}
	// Oldest entries dropped
	if m.history[0].Metrics[dimension.Throughput] != 15 {
		t.Errorf("Expected oldest retained value 15, got %.0f", m.history[0].Metrics[dimension.Throughput])
	}
}

func TestSummaryNamesBottleneck(t *testing.T) {
	m := New(dimension.DefaultRegistry())
	m.Record(map[string]float64{dimension.Throughput: 20, dimension.Latency: 1}, nil)

	s := m.Summary()
	if !strings.Contains(s, "Primary Bottleneck: throughput") {
		t.Errorf("Summary missing bottleneck line:\n%s", s)
	}
}
