package bottleneck

import (
	"testing"

	"github.com/agentops/evogate/pkg/dimension"
)

func TestIdentifyPicksMaxUtilization(t *testing.T) {
	readings := []dimension.Reading{
		{Name: "throughput", Dir: dimension.HigherIsBetter, Current: 80, Target: 100}, // 0.2
		{Name: "memory", Dir: dimension.LowerIsBetter, Current: 460, Max: 512, Unit: "MB"}, // ~0.9
		{Name: "latency", Dir: dimension.LowerIsBetter, Current: 2, Max: 10}, // 0.2
	}

	b := Identify(readings)
	if b.Name != "memory" {
		t.Errorf("Expected memory bottleneck, got %s", b.Name)
	}
	if b.Current != 460 {
		t.Errorf("Expected current 460, got %.0f", b.Current)
	}
	if b.Bound != 512 {
		t.Errorf("Expected bound 512, got %.0f", b.Bound)
	}
	if b.Unit != "MB" {
		t.Errorf("Expected unit MB, got %s", b.Unit)
	}
	if len(b.All) != 3 {
		t.Errorf("Expected 3 utilization entries, got %d", len(b.All))
	}
}

func TestIdentifyTieBreaksByOrder(t *testing.T) {
	readings := []dimension.Reading{
		{Name: "first", Dir: dimension.LowerIsBetter, Current: 5, Max: 10},
		{Name: "second", Dir: dimension.LowerIsBetter, Current: 50, Max: 100},
	}

	// Both score 0.5; first declared wins.
	b := Identify(readings)
	if b.Name != "first" {
		t.Errorf("Expected tie broken by declaration order, got %s", b.Name)
	}
}

func TestIdentifyDeterministic(t *testing.T) {
	readings := []dimension.Reading{
		{Name: "a", Dir: dimension.LowerIsBetter, Current: 3, Max: 10},
		{Name: "b", Dir: dimension.LowerIsBetter, Current: 3, Max: 10},
		{Name: "c", Dir: dimension.LowerIsBetter, Current: 3, Max: 10},
	}
	first := Identify(readings).Name
	for i := 0; i < 50; i++ {
		if got := Identify(readings).Name; got != first {
			t.Fatalf("Identify not deterministic: %s then %s", first, got)
		}
	}
}

func TestIdentifyEmpty(t *testing.T) {
	b := Identify(nil)
	if b.Name != "" {
		t.Errorf("Expected empty bottleneck for no readings, got %s", b.Name)
	}
	if len(b.All) != 0 {
		t.Errorf("Expected empty All map, got %d entries", len(b.All))
	}
}
