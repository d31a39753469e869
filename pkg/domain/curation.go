package domain

import (
	"fmt"
	"slices"
	"strconv"
	"time"
)

// Status is the curation workflow state of a releasable.
type Status string

// Curation statuses. The zero value means the releasable has not entered the workflow yet.
const (
	StatusNew                Status = "NEW"
	StatusReserved           Status = "RESERVED"
	StatusAssigned           Status = "ASSIGNED"
	StatusCurationInProgress Status = "CURATION_IN_PROGRESS"
	StatusReadyForChecking   Status = "READY_FOR_CHECKING"
	StatusAccepted           Status = "ACCEPTED"
	StatusAcceptedOnHold     Status = "ACCEPTED_ON_HOLD"
	StatusReadyForRelease    Status = "READY_FOR_RELEASE"
	StatusReleased           Status = "RELEASED"
	StatusDiscarded          Status = "DISCARDED"
)

var statusIdentifiers = map[Status]string{
	StatusNew:                "PL:0004",
	StatusReserved:           "PL:0005",
	StatusAssigned:           "PL:0006",
	StatusCurationInProgress: "PL:0007",
	StatusReadyForChecking:   "PL:0008",
	StatusAccepted:           "PL:0009",
	StatusAcceptedOnHold:     "PL:0010",
	StatusReadyForRelease:    "PL:0011",
	StatusReleased:           "PL:0012",
	StatusDiscarded:          "PL:0013",
}

// Statuses lists every status in workflow order.
func Statuses() []Status {
	return []Status{
		StatusNew, StatusReserved, StatusAssigned, StatusCurationInProgress,
		StatusReadyForChecking, StatusAccepted, StatusAcceptedOnHold,
		StatusReadyForRelease, StatusReleased, StatusDiscarded,
	}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := statusIdentifiers[s]
	return ok
}

// Identifier returns the PL: vocabulary identifier of the status.
func (s Status) Identifier() string { return statusIdentifiers[s] }

// Terminal reports whether no transition may leave s.
func (s Status) Terminal() bool { return s == StatusDiscarded }

// Rank orders statuses along the workflow; unknown statuses rank -1.
func (s Status) Rank() int { return slices.Index(Statuses(), s) }

// ParseStatus accepts a status name or its PL: identifier.
func ParseStatus(v string) (Status, error) {
	if s := Status(v); s.Valid() {
		return s, nil
	}
	for s, id := range statusIdentifiers {
		if id == v {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", v)
}

// EventType names a lifecycle event recorded on a releasable.
type EventType string

// Lifecycle event types.
const (
	EventCreated            EventType = "CREATED"
	EventReserved           EventType = "RESERVED"
	EventAssigned           EventType = "ASSIGNED"
	EventAssignmentDeclined EventType = "ASSIGNMENT_DECLINED"
	EventOwnerChanged       EventType = "OWNER_CHANGED"
	EventReviewerChanged    EventType = "REVIEWER_CHANGED"
	EventCurationStarted    EventType = "CURATION_STARTED"
	EventReadyForChecking   EventType = "READY_FOR_CHECKING"
	EventRejected           EventType = "REJECTED"
	EventAccepted           EventType = "ACCEPTED"
	EventPutOnHold          EventType = "PUT_ON_HOLD"
	EventOnHoldRemoved      EventType = "ON_HOLD_REMOVED"
	EventReadyForRelease    EventType = "READY_FOR_RELEASE"
	EventReleased           EventType = "RELEASED"
	EventDiscarded          EventType = "DISCARDED"
)

// Role grants a user permission to act in the workflow.
type Role string

// Roles known to the workflow.
const (
	RoleAdmin           Role = "ADMIN"
	RoleCurator         Role = "CURATOR"
	RoleReviewer        Role = "REVIEWER"
	RoleComplexCurator  Role = "COMPLEX_CURATOR"
	RoleComplexReviewer Role = "COMPLEX_REVIEWER"
)

// Preference keys read by the workflow.
const (
	PrefMentorReviewer       = "mentor.reviewer"
	PrefReviewerAvailability = "reviewer.availability"
)

// DefaultReviewerAvailability applies when a reviewer has not set a preference.
const DefaultReviewerAvailability = 100

// User is a curator, reviewer or administrator, identified by login.
type User struct {
	Login       string
	FirstName   string
	LastName    string
	Email       string
	Disabled    bool
	Roles       []Role
	Preferences map[string]string
	Created     time.Time
	Updated     time.Time

	stub bool
}

// UserStub returns a placeholder for a user known only by login.
func UserStub(login string) *User {
	return &User{Login: login, stub: true}
}

// IsStub reports whether the user is an unloaded reference.
func (u *User) IsStub() bool { return u.stub }

// HasRole reports whether the role was granted explicitly.
func (u *User) HasRole(role Role) bool {
	return u != nil && slices.Contains(u.Roles, role)
}

// Preference returns the raw preference value.
func (u *User) Preference(key string) (string, bool) {
	if u == nil || u.Preferences == nil {
		return "", false
	}
	v, ok := u.Preferences[key]
	return v, ok
}

// Mentor returns the login of the preferred reviewer, if any.
func (u *User) Mentor() string {
	v, _ := u.Preference(PrefMentorReviewer)
	return v
}

// ReviewerAvailability returns the weight used when picking reviewers, clamped to 0..100.
func (u *User) ReviewerAvailability() int {
	v, ok := u.Preference(PrefReviewerAvailability)
	if !ok {
		return DefaultReviewerAvailability
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return DefaultReviewerAvailability
	}
	return max(0, min(100, n))
}

// SameUser compares two users by login.
func SameUser(a, b *User) bool {
	return a != nil && b != nil && a.Login == b.Login
}

// LifecycleEvent is one entry of the curation history.
type LifecycleEvent struct {
	ID    string
	Event EventType
	Who   *User
	When  time.Time
	Note  string
}

// Curation holds the workflow state embedded in every releasable.
type Curation struct {
	Status          Status
	CurrentOwner    *User
	CurrentReviewer *User
	Events          []*LifecycleEvent
	OnHold          string
	ToBeReviewed    string
}

// LastEvent returns the most recent event or nil.
func (c *Curation) LastEvent() *LifecycleEvent {
	if len(c.Events) == 0 {
		return nil
	}
	return c.Events[len(c.Events)-1]
}

// LastEventOf returns the most recent event of the given type or nil.
func (c *Curation) LastEventOf(t EventType) *LifecycleEvent {
	for i := len(c.Events) - 1; i >= 0; i-- {
		if c.Events[i].Event == t {
			return c.Events[i]
		}
	}
	return nil
}

// RemoveLastEventOf drops the most recent event of the given type, reporting whether one existed.
func (c *Curation) RemoveLastEventOf(t EventType) bool {
	for i := len(c.Events) - 1; i >= 0; i-- {
		if c.Events[i].Event == t {
			c.Events = slices.Delete(c.Events, i, i+1)
			return true
		}
	}
	return false
}

// IsOnHold reports whether an on-hold reason is set.
func (c *Curation) IsOnHold() bool { return c.OnHold != "" }

// ReleasableKind distinguishes the two releasable entity kinds.
type ReleasableKind string

// Releasable kinds.
const (
	KindPublication ReleasableKind = "publication"
	KindComplex     ReleasableKind = "complex"
)

// ParseReleasableKind validates a kind name.
func ParseReleasableKind(v string) (ReleasableKind, error) {
	switch k := ReleasableKind(v); k {
	case KindPublication, KindComplex:
		return k, nil
	}
	return "", fmt.Errorf("unknown releasable kind %q", v)
}

// Releasable is an entity that passes through the curation lifecycle.
type Releasable interface {
	ReleasableAC() string
	ReleasableKind() ReleasableKind
	CurationState() *Curation
}

var (
	_ Releasable = (*Publication)(nil)
	_ Releasable = (*Complex)(nil)
)
