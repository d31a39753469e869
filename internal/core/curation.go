package core

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"intactcore/internal/graph"
	"intactcore/internal/lifecycle"
	"intactcore/internal/logging"
	"intactcore/pkg/domain"
)

// CurationRequest names the users of a transition by login.
type CurationRequest struct {
	Actor string
	// Target is required by AssignToCurator, ChangeOwner and ChangeReviewer.
	Target string
	Reason string
}

// Curate applies transition t to the releasable of the given kind inside a
// store transaction. Manager listeners run before commit and fail the
// transaction; post-commit listeners only see committed transitions. The
// returned notification references committed copies.
func (s *Service) Curate(ctx context.Context, kind domain.ReleasableKind, ac string, t lifecycle.Transition, req CurationRequest) (lifecycle.Notification, domain.Result, error) {
	var n lifecycle.Notification
	res, err := s.run(ctx, "curate", func(tx domain.Transaction) error {
		lreq, err := s.resolveRequest(tx, t, req)
		if err != nil {
			return err
		}
		apply := func(r domain.Releasable) error {
			var err error
			n, err = s.manager.Apply(ctx, t, r, lreq)
			return err
		}
		switch kind {
		case domain.KindPublication:
			_, err = tx.UpdatePublication(ac, func(p *domain.Publication) error { return apply(p) })
		case domain.KindComplex:
			_, err = tx.UpdateComplex(ac, func(x *domain.Complex) error { return apply(x) })
		default:
			err = fmt.Errorf("unknown releasable kind %q", kind)
		}
		if err != nil {
			return err
		}
		s.notifyAfterCommit(ctx, tx, &n)
		return nil
	})
	if err != nil {
		return lifecycle.Notification{}, res, err
	}
	return n, res, nil
}

func (s *Service) resolveRequest(tx domain.Transaction, t lifecycle.Transition, req CurationRequest) (lifecycle.Request, error) {
	actor, ok := tx.FindUser(req.Actor)
	if !ok {
		return lifecycle.Request{}, domain.NotFoundError{Entity: domain.EntityUser, ID: req.Actor}
	}
	out := lifecycle.Request{Actor: actor, Reason: req.Reason}
	if req.Target != "" {
		target, ok := tx.FindUser(req.Target)
		if !ok {
			return lifecycle.Request{}, domain.NotFoundError{Entity: domain.EntityUser, ID: req.Target}
		}
		out.Target = target
	}
	if t == lifecycle.ReadyForChecking {
		out.Candidates = tx.ListUsers()
	}
	return out, nil
}

// notifyAfterCommit swaps the transactional objects of n for detached copies
// of the state the transition produced and registers a hook running the
// post-commit listeners. Call it once the transaction's writes are done.
func (s *Service) notifyAfterCommit(ctx context.Context, tx domain.Transaction, n *lifecycle.Notification) {
	detach(n)
	tx.AfterCommit(func() {
		for _, l := range s.postCommit {
			if err := l.OnTransition(ctx, *n); err != nil {
				s.log.WarnContext(ctx, "post-commit listener failed",
					slog.String("ac", n.Releasable.ReleasableAC()),
					slog.String("transition", string(n.Transition)),
					logging.Error(err))
			}
		}
	})
}

func detach(n *lifecycle.Notification) {
	c := graph.NewDetachedCloner()
	if n.Releasable != nil {
		events := n.Releasable.CurationState().Events
		switch r := n.Releasable.(type) {
		case *domain.Publication:
			n.Releasable = c.Publication(r)
		case *domain.Complex:
			n.Releasable = c.Complex(r)
		}
		if n.Event != nil {
			n.Event = copiedEvent(c, events, n.Releasable.CurationState().Events, n.Event)
		}
	}
	n.Actor = c.User(n.Actor)
	n.PreviousOwner = c.User(n.PreviousOwner)
	n.PreviousReviewer = c.User(n.PreviousReviewer)
}

// copiedEvent returns the copy of e in copied, or a standalone copy when e was
// removed from the history, as a reverted event is.
func copiedEvent(c *graph.Cloner, events, copied []*domain.LifecycleEvent, e *domain.LifecycleEvent) *domain.LifecycleEvent {
	if i := slices.Index(events, e); i >= 0 && i < len(copied) {
		return copied[i]
	}
	cp := *e
	cp.Who = c.User(e.Who)
	return &cp
}

func (s *Service) releasable(kind domain.ReleasableKind, ac string) (domain.Releasable, bool) {
	switch kind {
	case domain.KindPublication:
		if p, ok := s.store.GetPublication(ac); ok {
			return p, true
		}
	case domain.KindComplex:
		if x, ok := s.store.GetComplex(ac); ok {
			return x, true
		}
	}
	return nil, false
}

// History returns the lifecycle events of a releasable, oldest first.
func (s *Service) History(kind domain.ReleasableKind, ac string) ([]*domain.LifecycleEvent, error) {
	r, ok := s.releasable(kind, ac)
	if !ok {
		entity := domain.EntityPublication
		if kind == domain.KindComplex {
			entity = domain.EntityComplex
		}
		return nil, domain.NotFoundError{Entity: entity, ID: ac}
	}
	return r.CurationState().Events, nil
}

// CopyPublication stores a copy of the publication's subtree under fresh
// accessions. Vocabulary terms and shared references are reused. The copy
// starts the workflow again: its curation state is reset and actor is
// recorded as its creator.
func (s *Service) CopyPublication(ctx context.Context, ac, actor string) (*domain.Publication, domain.Result, error) {
	var n lifecycle.Notification
	created, res, err := mutate(ctx, s, "copy_publication", (*graph.Cloner).Publication, func(tx domain.Transaction) (*domain.Publication, error) {
		src, ok := tx.FindPublication(ac)
		if !ok {
			return nil, domain.NotFoundError{Entity: domain.EntityPublication, ID: ac}
		}
		lreq, err := s.resolveRequest(tx, lifecycle.Create, CurationRequest{Actor: actor})
		if err != nil {
			return nil, err
		}
		cp := graph.NewCloner(graph.ExcludeACs(), graph.ShareCvObjects(), graph.ShareReferences()).Publication(src)
		cp.Curation = domain.Curation{}
		cp.Creator = actor
		if n, err = s.manager.Apply(ctx, lifecycle.Create, cp, lreq); err != nil {
			return nil, err
		}
		stored, err := tx.CreatePublication(cp)
		if err != nil {
			return nil, err
		}
		n.Releasable = stored
		s.notifyAfterCommit(ctx, tx, &n)
		return stored, nil
	})
	return created, res, err
}

// Reserve lets a curator reserve a new releasable.
func (s *Service) Reserve(ctx context.Context, kind domain.ReleasableKind, ac string, req CurationRequest) (lifecycle.Notification, domain.Result, error) {
	return s.Curate(ctx, kind, ac, lifecycle.Reserve, req)
}

// CancelReservation releases a reservation.
func (s *Service) CancelReservation(ctx context.Context, kind domain.ReleasableKind, ac string, req CurationRequest) (lifecycle.Notification, domain.Result, error) {
	return s.Curate(ctx, kind, ac, lifecycle.CancelReservation, req)
}

// AssignToCurator assigns the releasable to req.Target.
func (s *Service) AssignToCurator(ctx context.Context, kind domain.ReleasableKind, ac string, req CurationRequest) (lifecycle.Notification, domain.Result, error) {
	return s.Curate(ctx, kind, ac, lifecycle.AssignToCurator, req)
}

// DeclineAssignment returns an assigned releasable to NEW.
func (s *Service) DeclineAssignment(ctx context.Context, kind domain.ReleasableKind, ac string, req CurationRequest) (lifecycle.Notification, domain.Result, error) {
	return s.Curate(ctx, kind, ac, lifecycle.DeclineAssignment, req)
}

// ClaimOwnership makes the actor owner and starts curation.
func (s *Service) ClaimOwnership(ctx context.Context, kind domain.ReleasableKind, ac string, req CurationRequest) (lifecycle.Notification, domain.Result, error) {
	return s.Curate(ctx, kind, ac, lifecycle.ClaimOwnership, req)
}

// StartCuration starts curation of an assigned releasable.
func (s *Service) StartCuration(ctx context.Context, kind domain.ReleasableKind, ac string, req CurationRequest) (lifecycle.Notification, domain.Result, error) {
	return s.Curate(ctx, kind, ac, lifecycle.StartCuration, req)
}

// ReadyForChecking submits the curation for review, picking a reviewer among
// the stored users when none is set.
func (s *Service) ReadyForChecking(ctx context.Context, kind domain.ReleasableKind, ac string, req CurationRequest) (lifecycle.Notification, domain.Result, error) {
	return s.Curate(ctx, kind, ac, lifecycle.ReadyForChecking, req)
}

// Reject sends the curation back to its owner with req.Reason.
func (s *Service) Reject(ctx context.Context, kind domain.ReleasableKind, ac string, req CurationRequest) (lifecycle.Notification, domain.Result, error) {
	return s.Curate(ctx, kind, ac, lifecycle.Reject, req)
}

// Accept accepts the curation.
func (s *Service) Accept(ctx context.Context, kind domain.ReleasableKind, ac string, req CurationRequest) (lifecycle.Notification, domain.Result, error) {
	return s.Curate(ctx, kind, ac, lifecycle.Accept, req)
}

// PutOnHold sets an on-hold reason.
func (s *Service) PutOnHold(ctx context.Context, kind domain.ReleasableKind, ac string, req CurationRequest) (lifecycle.Notification, domain.Result, error) {
	return s.Curate(ctx, kind, ac, lifecycle.PutOnHold, req)
}

// RemoveOnHold clears the on-hold reason.
func (s *Service) RemoveOnHold(ctx context.Context, kind domain.ReleasableKind, ac string, req CurationRequest) (lifecycle.Notification, domain.Result, error) {
	return s.Curate(ctx, kind, ac, lifecycle.RemoveOnHold, req)
}

// ReadyForRelease marks an accepted releasable ready for release.
func (s *Service) ReadyForRelease(ctx context.Context, kind domain.ReleasableKind, ac string, req CurationRequest) (lifecycle.Notification, domain.Result, error) {
	return s.Curate(ctx, kind, ac, lifecycle.ReadyForRelease, req)
}

// Release releases the releasable.
func (s *Service) Release(ctx context.Context, kind domain.ReleasableKind, ac string, req CurationRequest) (lifecycle.Notification, domain.Result, error) {
	return s.Curate(ctx, kind, ac, lifecycle.Release, req)
}

// Discard discards the releasable with req.Reason.
func (s *Service) Discard(ctx context.Context, kind domain.ReleasableKind, ac string, req CurationRequest) (lifecycle.Notification, domain.Result, error) {
	return s.Curate(ctx, kind, ac, lifecycle.Discard, req)
}

// ChangeOwner hands the releasable to req.Target.
func (s *Service) ChangeOwner(ctx context.Context, kind domain.ReleasableKind, ac string, req CurationRequest) (lifecycle.Notification, domain.Result, error) {
	return s.Curate(ctx, kind, ac, lifecycle.ChangeOwner, req)
}

// ChangeReviewer replaces the reviewer with req.Target.
func (s *Service) ChangeReviewer(ctx context.Context, kind domain.ReleasableKind, ac string, req CurationRequest) (lifecycle.Notification, domain.Result, error) {
	return s.Curate(ctx, kind, ac, lifecycle.ChangeReviewer, req)
}

// Revert undoes the last reversible step.
func (s *Service) Revert(ctx context.Context, kind domain.ReleasableKind, ac string, req CurationRequest) (lifecycle.Notification, domain.Result, error) {
	return s.Curate(ctx, kind, ac, lifecycle.Revert, req)
}
