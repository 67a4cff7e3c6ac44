package shaping

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tillerworks/tiller/pkg/altitude"
)

// ErrFrozen is returned by every mutating operation on a frozen session.
// Frozen is terminal; further work needs a new session.
var ErrFrozen = errors.New("session frozen")

// StateError reports an operation invoked from a state that does not
// permit it. The session is left unchanged.
type StateError struct {
	Op   string
	Have State
	Need State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s requires state %s, session is %s", e.Op, e.Need, e.Have)
}

// CompletenessError reports a reveal or freeze requested before the
// minimum required fields or conditions are present.
type CompletenessError struct {
	Missing []string
}

func (e *CompletenessError) Error() string {
	return "incomplete: " + strings.Join(e.Missing, ", ")
}

// AmbiguityError reports input that matched no recognized field prefix.
// The caller recovers by asking the clarifying question; nothing is
// guessed on the user's behalf.
type AmbiguityError struct {
	Line string
}

func (e *AmbiguityError) Error() string {
	return fmt.Sprintf("cannot classify input %q", e.Line)
}

// Question is the clarifying prompt to surface to the user.
func (e *AmbiguityError) Question() string {
	return "Is this tactical work-item detail (objective/scope/plan/acceptance) " +
		"or strategic spec detail (overview/problem/non-goal/phase/success)?"
}

// AltitudeMismatchError reports input routed to a different altitude than
// the one the session locked on first ingest.
type AltitudeMismatchError struct {
	Locked altitude.Level
	Got    altitude.Level
	Field  altitude.Field
}

func (e *AltitudeMismatchError) Error() string {
	return fmt.Sprintf("session is locked to %s; field %q belongs to %s", e.Locked, e.Field, e.Got)
}
