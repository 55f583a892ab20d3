package anchor

import (
	"errors"
	"fmt"
)

// ErrTimeout is returned when the overall anchor-search wall-clock budget is
// breached. It is an expected outcome, not an invariant violation: callers
// match it with [errors.Is] and decide whether to retry with a larger budget.
// The sequential fallback path has already been attempted internally by the
// time this error surfaces.
var ErrTimeout = errors.New("anchor search timeout exceeded")

// timeoutError wraps ErrTimeout with the phase at which the budget breach was
// detected.
func timeoutError(phase string) error {
	return fmt.Errorf("%w (phase %q)", ErrTimeout, phase)
}

// InconsistencyError reports that the words actually present in the
// transcription at a candidate window did not equal the n-gram tokens used to
// find matches. This can only mean the finder indexed into the wrong window —
// a programming bug — so it is raised as a panic and must never be recovered
// into a degraded result.
type InconsistencyError struct {
	// Position is the transcription word index of the offending window.
	Position int

	// Expected is the n-gram the matcher searched for; Actual is what the
	// transcription holds at Position.
	Expected []string
	Actual   []string
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("anchor: n-gram mismatch at transcription position %d: searched %v, transcription holds %v",
		e.Position, e.Expected, e.Actual)
}
