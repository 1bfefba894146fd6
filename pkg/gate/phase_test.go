package gate

import "testing"

func TestPhaseTerminal(t *testing.T) {
	tests := []struct {
		phase    Phase
		terminal bool
	}{
		{PhaseIdentifyingBottleneck, false},
		{PhaseRunningBaseline, false},
		{PhaseRunningCandidate, false},
		{PhaseAnalyzingDelta, false},
		{PhaseTestingScale, false},
		{PhaseDeciding, false},
		{PhaseApproved, true},
		{PhaseRejected, true},
	}

	for _, tt := range tests {
		if got := tt.phase.Terminal(); got != tt.terminal {
			t.Errorf("Phase %s: expected Terminal() %v, got %v", tt.phase, tt.terminal, got)
		}
	}
}
