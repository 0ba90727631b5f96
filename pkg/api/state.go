package api

import "fmt"

// Phase is a state of the orchestration loop's state machine.
type Phase string

const (
	PhaseInit            Phase = "init"
	PhaseAwaitingBackend Phase = "awaiting_backend"
	PhaseExecutingTools  Phase = "executing_tools"
	PhaseDone            Phase = "done"
	PhaseAborted         Phase = "aborted"
)

// phaseTransitions lists the allowed outgoing transitions per phase.
// Done and Aborted are terminal.
var phaseTransitions = map[Phase][]Phase{
	PhaseInit:            {PhaseAwaitingBackend, PhaseAborted},
	PhaseAwaitingBackend: {PhaseExecutingTools, PhaseDone, PhaseAborted},
	PhaseExecutingTools:  {PhaseAwaitingBackend, PhaseAborted},
}

// ValidatePhaseTransition checks whether the loop may move from one phase
// to another.
func ValidatePhaseTransition(from, to Phase) error {
	for _, p := range phaseTransitions[from] {
		if p == to {
			return nil
		}
	}
	return fmt.Errorf("invalid phase transition from %s to %s", from, to)
}

// ValidateRunTransition checks whether a run status transition is valid.
// Completed, requires_action and aborted are terminal.
func ValidateRunTransition(from, to RunStatus) *APIError {
	valid := map[RunStatus][]RunStatus{
		"":                  {RunStatusInProgress},
		RunStatusInProgress: {RunStatusCompleted, RunStatusRequiresAction, RunStatusAborted},
	}

	for _, s := range valid[from] {
		if s == to {
			return nil
		}
	}

	return NewInvalidRequestError("status",
		fmt.Sprintf("invalid transition from %s to %s", from, to))
}
