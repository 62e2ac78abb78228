package session

// State is the top-level session state written to status.json. The
// stimulus process owns all transitions between Practice, Running and
// Break; the orchestrator only ever writes the initial Practice document
// and the terminal Aborted one.
type State string

const (
	Idle      State = "idle"
	Practice  State = "practice"
	Running   State = "running"
	Break     State = "break"
	Completed State = "completed"
	Aborted   State = "aborted"
)

// IsTerminal reports whether no further status writes are expected for
// this session. Terminal states are never downgraded: once a status
// document reads completed or aborted, only a fresh start replaces it.
func (s State) IsTerminal() bool {
	return s == Completed || s == Aborted
}

// Phase is the within-trial phase. It only carries meaning while the
// state is practice, running or break; observers render PhaseNone as
// "no active phase".
type Phase string

const (
	PhaseBaseline Phase = "baseline"
	PhaseCue      Phase = "cue"
	PhaseMI       Phase = "mi"
	PhaseRest     Phase = "rest"
	PhaseBreak    Phase = "break"
	PhaseNone     Phase = "none"
)
