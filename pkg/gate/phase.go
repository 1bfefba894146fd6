package gate

// Phase names a step of the validation protocol. One validation walks the
// phases strictly forward; Approved and Rejected are terminal. There is no
// retry loop inside the gate: a rejected proposal must be regenerated and
// resubmitted by the proposal generator.
type Phase string

const (
	PhaseIdentifyingBottleneck Phase = "identifying_bottleneck"
	PhaseRunningBaseline       Phase = "running_baseline"
	PhaseRunningCandidate      Phase = "running_candidate"
	PhaseAnalyzingDelta        Phase = "analyzing_delta"
	PhaseTestingScale          Phase = "testing_scale"
	PhaseDeciding              Phase = "deciding"
	PhaseApproved              Phase = "approved"
	PhaseRejected              Phase = "rejected"
)

// Terminal reports whether the phase ends the protocol.
func (p Phase) Terminal() bool {
	return p == PhaseApproved || p == PhaseRejected
}
