// Package lifecycle drives publications and complexes through the curation
// workflow. A Manager validates each transition against the status table, the
// actor's roles and the readiness gates, records a lifecycle event and notifies
// listeners. Changes are applied to the releasable in place; callers run the
// manager inside a store transaction so a failing listener rolls everything back.
package lifecycle

import (
	"fmt"
	"slices"

	"intactcore/pkg/domain"
)

// Transition names a workflow operation.
type Transition string

// Workflow transitions.
const (
	Create            Transition = "create"
	Reserve           Transition = "reserve"
	CancelReservation Transition = "cancel_reservation"
	AssignToCurator   Transition = "assign_to_curator"
	DeclineAssignment Transition = "decline_assignment"
	ClaimOwnership    Transition = "claim_ownership"
	StartCuration     Transition = "start_curation"
	ReadyForChecking  Transition = "ready_for_checking"
	Reject            Transition = "reject"
	Accept            Transition = "accept"
	PutOnHold         Transition = "put_on_hold"
	RemoveOnHold      Transition = "remove_on_hold"
	ReadyForRelease   Transition = "ready_for_release"
	Release           Transition = "release"
	Discard           Transition = "discard"
	ChangeOwner       Transition = "change_owner"
	ChangeReviewer    Transition = "change_reviewer"
	Revert            Transition = "revert"
)

type transitionSpec struct {
	from   []domain.Status
	event  domain.EventType
	reason bool
	next   func(from domain.Status, onHold bool) domain.Status
}

func to(s domain.Status) func(domain.Status, bool) domain.Status {
	return func(domain.Status, bool) domain.Status { return s }
}

func unchanged(from domain.Status, _ bool) domain.Status { return from }

func except(excluded ...domain.Status) []domain.Status {
	var out []domain.Status
	for _, s := range domain.Statuses() {
		if !slices.Contains(excluded, s) {
			out = append(out, s)
		}
	}
	return out
}

// revertable maps a status to the one it is reverted to and the event that produced it.
var revertable = map[domain.Status]struct {
	previous domain.Status
	event    domain.EventType
}{
	domain.StatusReadyForChecking: {domain.StatusCurationInProgress, domain.EventReadyForChecking},
	domain.StatusAccepted:         {domain.StatusReadyForChecking, domain.EventAccepted},
	domain.StatusReadyForRelease:  {domain.StatusAccepted, domain.EventReadyForRelease},
	domain.StatusReleased:         {domain.StatusReadyForRelease, domain.EventReleased},
}

var transitions = map[Transition]transitionSpec{
	Create: {
		from:  []domain.Status{""},
		event: domain.EventCreated,
		next:  to(domain.StatusNew),
	},
	Reserve: {
		from:  []domain.Status{domain.StatusNew},
		event: domain.EventReserved,
		next:  to(domain.StatusReserved),
	},
	CancelReservation: {
		from:  []domain.Status{domain.StatusReserved},
		event: domain.EventAssignmentDeclined,
		next:  to(domain.StatusNew),
	},
	AssignToCurator: {
		from:  []domain.Status{domain.StatusNew, domain.StatusReserved},
		event: domain.EventAssigned,
		next:  to(domain.StatusAssigned),
	},
	DeclineAssignment: {
		from:  []domain.Status{domain.StatusAssigned},
		event: domain.EventAssignmentDeclined,
		next:  to(domain.StatusNew),
	},
	ClaimOwnership: {
		from:  []domain.Status{domain.StatusNew, domain.StatusReserved},
		event: domain.EventCurationStarted,
		next:  to(domain.StatusCurationInProgress),
	},
	StartCuration: {
		from:  []domain.Status{domain.StatusAssigned},
		event: domain.EventCurationStarted,
		next:  to(domain.StatusCurationInProgress),
	},
	ReadyForChecking: {
		from:  []domain.Status{domain.StatusCurationInProgress},
		event: domain.EventReadyForChecking,
		next:  to(domain.StatusReadyForChecking),
	},
	Reject: {
		from:   []domain.Status{domain.StatusReadyForChecking},
		event:  domain.EventRejected,
		reason: true,
		next:   to(domain.StatusCurationInProgress),
	},
	Accept: {
		from:  []domain.Status{domain.StatusReadyForChecking},
		event: domain.EventAccepted,
		next: func(_ domain.Status, onHold bool) domain.Status {
			if onHold {
				return domain.StatusAcceptedOnHold
			}
			return domain.StatusAccepted
		},
	},
	PutOnHold: {
		from:   except(domain.StatusDiscarded),
		event:  domain.EventPutOnHold,
		reason: true,
		next: func(from domain.Status, _ bool) domain.Status {
			switch from {
			case domain.StatusAccepted, domain.StatusReadyForRelease, domain.StatusReleased:
				return domain.StatusAcceptedOnHold
			}
			return from
		},
	},
	RemoveOnHold: {
		from:  except(domain.StatusDiscarded),
		event: domain.EventOnHoldRemoved,
		next: func(from domain.Status, _ bool) domain.Status {
			if from == domain.StatusAcceptedOnHold {
				return domain.StatusReadyForRelease
			}
			return from
		},
	},
	ReadyForRelease: {
		from:  []domain.Status{domain.StatusAccepted},
		event: domain.EventReadyForRelease,
		next:  to(domain.StatusReadyForRelease),
	},
	Release: {
		from:  []domain.Status{domain.StatusReadyForRelease},
		event: domain.EventReleased,
		next:  to(domain.StatusReleased),
	},
	Discard: {
		from:   except(domain.StatusReleased, domain.StatusDiscarded),
		event:  domain.EventDiscarded,
		reason: true,
		next:   to(domain.StatusDiscarded),
	},
	ChangeOwner: {
		from:  except(domain.StatusNew, domain.StatusDiscarded),
		event: domain.EventOwnerChanged,
		next:  unchanged,
	},
	ChangeReviewer: {
		from:  except(domain.StatusDiscarded),
		event: domain.EventReviewerChanged,
		next:  unchanged,
	},
	Revert: {
		from: []domain.Status{domain.StatusReadyForChecking, domain.StatusAccepted, domain.StatusReadyForRelease, domain.StatusReleased},
		next: func(from domain.Status, _ bool) domain.Status { return revertable[from].previous },
	},
}

// Transitions lists every transition in workflow order.
func Transitions() []Transition {
	return []Transition{
		Create, Reserve, CancelReservation, AssignToCurator, DeclineAssignment,
		ClaimOwnership, StartCuration, ReadyForChecking, Reject, Accept,
		PutOnHold, RemoveOnHold, ReadyForRelease, Release, Discard,
		ChangeOwner, ChangeReviewer, Revert,
	}
}

// ParseTransition validates a transition name.
func ParseTransition(v string) (Transition, error) {
	t := Transition(v)
	if _, ok := transitions[t]; !ok {
		return "", fmt.Errorf("unknown transition %q", v)
	}
	return t, nil
}

// AllowedFrom reports whether t may start from status s, ignoring role and gate checks.
func AllowedFrom(t Transition, s domain.Status) bool {
	spec, ok := transitions[t]
	return ok && slices.Contains(spec.from, s)
}

// Available lists the transitions that may start from status s.
func Available(s domain.Status) []Transition {
	var out []Transition
	for _, t := range Transitions() {
		if AllowedFrom(t, s) {
			out = append(out, t)
		}
	}
	return out
}

// CanMove reports whether some transition moves a releasable from one status
// to another. Staying in the same status is always allowed.
func CanMove(from, to domain.Status) bool {
	if from == to {
		return true
	}
	for _, spec := range transitions {
		if !slices.Contains(spec.from, from) {
			continue
		}
		if spec.next(from, false) == to || spec.next(from, true) == to {
			return true
		}
	}
	return false
}
