package session

// Finalize transitions a status document to its terminal aborted form
// after an explicit stop or an abnormal process exit. It is a pure
// function: counters, elapsed time and the output file are preserved so
// the operator keeps visibility into how far the session got.
//
// Terminal inputs pass through untouched. The stimulus process writes its
// own completed document on normal exit, and its write can land
// milliseconds before the orchestrator's exit handler fires; this one-way
// rule is what keeps that race from downgrading a legitimate completed
// result to aborted.
func Finalize(prev Status) Status {
	if prev.State.IsTerminal() {
		return prev
	}
	next := prev
	next.State = Aborted
	next.Phase = PhaseNone
	return next
}
