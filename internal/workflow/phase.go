package workflow

import "fmt"

// Phase is a step of the customer workflow.
type Phase uint8

const (
	PhaseOpening Phase = iota + 1
	PhaseProfile
	PhaseUpload
	PhaseDiagnosisLoading
	PhaseDiagnosisResult
	PhaseProposalSelection
	PhaseSynthesisLoading
	PhaseSynthesisResult
)

var phaseCodes = map[Phase]string{
	PhaseOpening:           "1",
	PhaseProfile:           "2",
	PhaseUpload:            "3",
	PhaseDiagnosisLoading:  "4.1",
	PhaseDiagnosisResult:   "4.2",
	PhaseProposalSelection: "5",
	PhaseSynthesisLoading:  "6.1",
	PhaseSynthesisResult:   "6.2",
}

var phaseNames = map[Phase]string{
	PhaseOpening:           "opening",
	PhaseProfile:           "profile",
	PhaseUpload:            "upload",
	PhaseDiagnosisLoading:  "diagnosis_loading",
	PhaseDiagnosisResult:   "diagnosis_result",
	PhaseProposalSelection: "proposal_selection",
	PhaseSynthesisLoading:  "synthesis_loading",
	PhaseSynthesisResult:   "synthesis_result",
}

// Code is the screen number shown to the client, e.g. "4.1".
func (p Phase) Code() string {
	if c, ok := phaseCodes[p]; ok {
		return c
	}
	return "?"
}

func (p Phase) String() string {
	if n, ok := phaseNames[p]; ok {
		return n
	}
	return fmt.Sprintf("phase(%d)", uint8(p))
}

// Loading reports whether the phase waits on a remote call.
func (p Phase) Loading() bool {
	return p == PhaseDiagnosisLoading || p == PhaseSynthesisLoading
}

// ParsePhase accepts a screen code.
func ParsePhase(code string) (Phase, bool) {
	for p, c := range phaseCodes {
		if c == code {
			return p, true
		}
	}
	return 0, false
}

func (p Phase) MarshalText() ([]byte, error) {
	if _, ok := phaseCodes[p]; !ok {
		return nil, fmt.Errorf("workflow: unknown phase %d", uint8(p))
	}
	return []byte(p.Code()), nil
}

func (p *Phase) UnmarshalText(b []byte) error {
	parsed, ok := ParsePhase(string(b))
	if !ok {
		return fmt.Errorf("workflow: unknown phase %q", b)
	}
	*p = parsed
	return nil
}
