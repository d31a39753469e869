package lifecycle

import (
	"errors"
	"fmt"
	"strings"

	"intactcore/pkg/domain"
)

var (
	// ErrIllegalTransition is wrapped when the current status does not allow the transition.
	ErrIllegalTransition = errors.New("illegal transition")
	// ErrForbidden is wrapped when the actor or target lacks the required role.
	ErrForbidden = errors.New("forbidden")
	// ErrReasonRequired is wrapped when a transition needs a reason and none was given.
	ErrReasonRequired = errors.New("reason required")
	// ErrNotReady is wrapped when a readiness gate fails.
	ErrNotReady = errors.New("not ready")
	// ErrNoReviewer is wrapped when no eligible reviewer can be assigned.
	ErrNoReviewer = errors.New("no eligible reviewer")
)

// TransitionError describes a rejected transition.
type TransitionError struct {
	Transition Transition
	AC         string
	From       domain.Status
	Err        error
	Problems   []string
}

func (e *TransitionError) Error() string {
	from := string(e.From)
	if from == "" {
		from = "(none)"
	}
	msg := fmt.Sprintf("%s %s from %s: %v", e.Transition, e.AC, from, e.Err)
	if len(e.Problems) > 0 {
		msg += ": " + strings.Join(e.Problems, "; ")
	}
	return msg
}

func (e *TransitionError) Unwrap() error { return e.Err }
