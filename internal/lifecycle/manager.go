package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"intactcore/internal/logging"
	"intactcore/pkg/domain"
)

// Request carries the inputs of a transition.
type Request struct {
	// Actor performs the transition and is recorded on the event.
	Actor *domain.User
	// Target is the user a transition assigns, for AssignToCurator, ChangeOwner and ChangeReviewer.
	Target *domain.User
	Reason string
	// Candidates are the users a reviewer may be picked from on ReadyForChecking.
	Candidates []*domain.User
}

// Notification describes an applied transition.
type Notification struct {
	Releasable       domain.Releasable
	Transition       Transition
	From             domain.Status
	To               domain.Status
	Event            *domain.LifecycleEvent
	Actor            *domain.User
	PreviousOwner    *domain.User
	PreviousReviewer *domain.User
	Reason           string
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source used for event timestamps.
func WithClock(now func() time.Time) Option { return func(m *Manager) { m.now = now } }

// WithIDGenerator overrides event identifiers.
func WithIDGenerator(fn func() string) Option { return func(m *Manager) { m.newID = fn } }

// WithListener appends a listener; listeners run in registration order.
func WithListener(l Listener) Option {
	return func(m *Manager) { m.listeners = append(m.listeners, l) }
}

// WithGate adds a readiness gate for a releasable kind.
func WithGate(kind domain.ReleasableKind, gate Gate) Option {
	return func(m *Manager) { m.gates[kind] = append(m.gates[kind], gate) }
}

// WithReviewerAssigner replaces the reviewer assignment strategy.
func WithReviewerAssigner(a ReviewerAssigner) Option { return func(m *Manager) { m.assigner = a } }

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option { return func(m *Manager) { m.log = log } }

// Manager applies workflow transitions. It holds no per-releasable state and
// is safe for concurrent use once constructed.
type Manager struct {
	now       func() time.Time
	newID     func() string
	listeners []Listener
	gates     map[domain.ReleasableKind][]Gate
	assigner  ReviewerAssigner
	log       *slog.Logger
}

// NewManager returns a manager with the built-in gates and a weighted reviewer assigner.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
		gates: map[domain.ReleasableKind][]Gate{
			domain.KindPublication: {PublicationGate},
			domain.KindComplex:     {ComplexGate},
		},
		assigner: NewWeightedAssigner(nil),
	}
	for _, o := range opts {
		o(m)
	}
	m.log = logging.OrDiscard(m.log).With(logging.Scope("lifecycle"))
	return m
}

// AddListener registers a listener after construction. It must not be called
// concurrently with Apply.
func (m *Manager) AddListener(l Listener) { m.listeners = append(m.listeners, l) }

func curatorRole(kind domain.ReleasableKind) domain.Role {
	if kind == domain.KindComplex {
		return domain.RoleComplexCurator
	}
	return domain.RoleCurator
}

func reviewerRole(kind domain.ReleasableKind) domain.Role {
	if kind == domain.KindComplex {
		return domain.RoleComplexReviewer
	}
	return domain.RoleReviewer
}

func hasRole(u *domain.User, role domain.Role) bool {
	return u != nil && !u.Disabled && (u.HasRole(role) || u.HasRole(domain.RoleAdmin))
}

func login(u *domain.User) string {
	if u == nil {
		return "(nobody)"
	}
	return u.Login
}

// Apply runs transition t on r. On error r is left untouched, except when a
// listener fails: the change has then been applied and the caller is expected
// to roll back its transaction.
func (m *Manager) Apply(ctx context.Context, t Transition, r domain.Releasable, req Request) (Notification, error) {
	if r == nil || r.CurationState() == nil {
		return Notification{}, fmt.Errorf("%s: nil releasable", t)
	}
	spec, ok := transitions[t]
	if !ok {
		return Notification{}, fmt.Errorf("unknown transition %q", t)
	}
	c := r.CurationState()
	kind := r.ReleasableKind()
	from := c.Status
	fail := func(err error, problems ...string) error {
		return &TransitionError{Transition: t, AC: r.ReleasableAC(), From: from, Err: err, Problems: problems}
	}

	if !AllowedFrom(t, from) {
		return Notification{}, fail(ErrIllegalTransition)
	}
	actor := req.Actor
	if actor == nil || actor.Disabled {
		return Notification{}, fail(ErrForbidden, fmt.Sprintf("actor %s may not act", login(actor)))
	}
	reason := strings.TrimSpace(req.Reason)
	if spec.reason && reason == "" {
		return Notification{}, fail(ErrReasonRequired)
	}
	if err := m.check(t, r, req, fail); err != nil {
		return Notification{}, err
	}

	var reviewer *domain.User
	if t == ReadyForChecking && c.CurrentReviewer == nil {
		picked, err := m.assigner.AssignReviewer(kind, c.CurrentOwner, req.Candidates)
		if err != nil {
			if !errors.Is(err, ErrNoReviewer) {
				err = fmt.Errorf("%w: %w", ErrNoReviewer, err)
			}
			return Notification{}, fail(err)
		}
		if picked == nil {
			return Notification{}, fail(ErrNoReviewer)
		}
		reviewer = picked
	}

	n := Notification{
		Releasable:       r,
		Transition:       t,
		From:             from,
		Actor:            actor,
		PreviousOwner:    c.CurrentOwner,
		PreviousReviewer: c.CurrentReviewer,
		Reason:           reason,
	}

	switch t {
	case Reserve:
		c.CurrentOwner = actor
	case CancelReservation, DeclineAssignment:
		c.CurrentOwner = nil
	case AssignToCurator, ChangeOwner:
		c.CurrentOwner = req.Target
	case ClaimOwnership:
		c.CurrentOwner = actor
		m.record(c, domain.EventAssigned, actor, reason)
	case ReadyForChecking:
		if reviewer != nil {
			c.CurrentReviewer = reviewer
		}
		c.ToBeReviewed = ""
	case Reject:
		c.CurrentReviewer = actor
		c.ToBeReviewed = reason
	case Accept:
		c.CurrentReviewer = actor
		c.ToBeReviewed = ""
	case ChangeReviewer:
		c.CurrentReviewer = req.Target
	case PutOnHold:
		c.OnHold = reason
	case RemoveOnHold:
		c.OnHold = ""
	case Release:
		if x, ok := r.(*domain.Complex); ok && c.LastEventOf(domain.EventReleased) != nil {
			x.Version = max(x.Version, 1) + 1
		}
	case Revert:
		c.RemoveLastEventOf(revertable[from].event)
		// a re-release bumped the version; the first release did not
		if x, ok := r.(*domain.Complex); ok && from == domain.StatusReleased && c.LastEventOf(domain.EventReleased) != nil && x.Version > 1 {
			x.Version--
		}
	}
	c.Status = spec.next(from, c.IsOnHold())
	if spec.event != "" {
		m.record(c, spec.event, actor, reason)
		n.Event = c.LastEvent()
	}
	n.To = c.Status

	for _, l := range m.listeners {
		if err := l.OnTransition(ctx, n); err != nil {
			m.log.WarnContext(ctx, "transition listener failed",
				slog.String("ac", r.ReleasableAC()), slog.String("transition", string(t)), logging.Error(err))
			return n, fmt.Errorf("%s %s: listener: %w", t, r.ReleasableAC(), err)
		}
	}
	return n, nil
}

// check applies the role and readiness requirements of t.
func (m *Manager) check(t Transition, r domain.Releasable, req Request, fail func(error, ...string) error) error {
	c := r.CurationState()
	kind := r.ReleasableKind()
	actor, target := req.Actor, req.Target
	curator, reviewer := curatorRole(kind), reviewerRole(kind)

	switch t {
	case Reserve, ClaimOwnership:
		if !hasRole(actor, curator) {
			return fail(ErrForbidden, fmt.Sprintf("%s is not a %s", actor.Login, curator))
		}
	case CancelReservation:
		if !domain.SameUser(actor, c.CurrentOwner) && !actor.HasRole(domain.RoleAdmin) {
			return fail(ErrForbidden, fmt.Sprintf("%s does not own the reservation", actor.Login))
		}
	case AssignToCurator, ChangeOwner:
		if !hasRole(target, curator) {
			return fail(ErrForbidden, fmt.Sprintf("target %s is not a %s", login(target), curator))
		}
	case DeclineAssignment, StartCuration, ReadyForChecking:
		if !domain.SameUser(actor, c.CurrentOwner) {
			return fail(ErrForbidden, fmt.Sprintf("%s is not the owner", actor.Login))
		}
	case Reject, Accept:
		if !hasRole(actor, reviewer) {
			return fail(ErrForbidden, fmt.Sprintf("%s is not a %s", actor.Login, reviewer))
		}
		if domain.SameUser(actor, c.CurrentOwner) {
			return fail(ErrForbidden, "owners may not review their own curation")
		}
	case ChangeReviewer:
		if !hasRole(target, reviewer) {
			return fail(ErrForbidden, fmt.Sprintf("target %s is not a %s", login(target), reviewer))
		}
		if domain.SameUser(target, c.CurrentOwner) {
			return fail(ErrForbidden, "the owner may not be the reviewer")
		}
	case RemoveOnHold:
		if !c.IsOnHold() {
			return fail(ErrIllegalTransition, "not on hold")
		}
	case Release:
		if c.IsOnHold() {
			return fail(ErrIllegalTransition, "on hold: "+c.OnHold)
		}
	case Revert:
		if c.LastEventOf(revertable[c.Status].event) == nil {
			return fail(ErrIllegalTransition, fmt.Sprintf("no %s event to revert", revertable[c.Status].event))
		}
	}

	if t == ReadyForChecking {
		var problems []string
		for _, g := range m.gates[kind] {
			problems = append(problems, g(r)...)
		}
		if len(problems) > 0 {
			return fail(ErrNotReady, problems...)
		}
	}
	return nil
}

func (m *Manager) record(c *domain.Curation, t domain.EventType, who *domain.User, note string) {
	c.Events = append(c.Events, &domain.LifecycleEvent{
		ID:    m.newID(),
		Event: t,
		Who:   who,
		When:  m.now(),
		Note:  note,
	})
}
