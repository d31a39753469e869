package lifecycle

import (
	"context"

	"intactcore/pkg/domain"
)

// Create enters r into the workflow as NEW.
func (m *Manager) Create(ctx context.Context, r domain.Releasable, actor *domain.User) (Notification, error) {
	return m.Apply(ctx, Create, r, Request{Actor: actor})
}

// Reserve makes actor the owner of a NEW releasable.
func (m *Manager) Reserve(ctx context.Context, r domain.Releasable, actor *domain.User) (Notification, error) {
	return m.Apply(ctx, Reserve, r, Request{Actor: actor})
}

// CancelReservation returns a reserved releasable to NEW.
func (m *Manager) CancelReservation(ctx context.Context, r domain.Releasable, actor *domain.User, reason string) (Notification, error) {
	return m.Apply(ctx, CancelReservation, r, Request{Actor: actor, Reason: reason})
}

// AssignToCurator hands r to target.
func (m *Manager) AssignToCurator(ctx context.Context, r domain.Releasable, actor, target *domain.User) (Notification, error) {
	return m.Apply(ctx, AssignToCurator, r, Request{Actor: actor, Target: target})
}

// DeclineAssignment lets the assigned curator refuse r.
func (m *Manager) DeclineAssignment(ctx context.Context, r domain.Releasable, actor *domain.User, reason string) (Notification, error) {
	return m.Apply(ctx, DeclineAssignment, r, Request{Actor: actor, Reason: reason})
}

// ClaimOwnership makes actor the owner and starts curation at once.
func (m *Manager) ClaimOwnership(ctx context.Context, r domain.Releasable, actor *domain.User) (Notification, error) {
	return m.Apply(ctx, ClaimOwnership, r, Request{Actor: actor})
}

// StartCuration starts curation of an assigned releasable.
func (m *Manager) StartCuration(ctx context.Context, r domain.Releasable, actor *domain.User) (Notification, error) {
	return m.Apply(ctx, StartCuration, r, Request{Actor: actor})
}

// ReadyForChecking sends r for review, assigning a reviewer from candidates when none is set.
func (m *Manager) ReadyForChecking(ctx context.Context, r domain.Releasable, actor *domain.User, note string, candidates []*domain.User) (Notification, error) {
	return m.Apply(ctx, ReadyForChecking, r, Request{Actor: actor, Reason: note, Candidates: candidates})
}

// Reject sends r back to curation.
func (m *Manager) Reject(ctx context.Context, r domain.Releasable, actor *domain.User, reason string) (Notification, error) {
	return m.Apply(ctx, Reject, r, Request{Actor: actor, Reason: reason})
}

// Accept approves the curation of r.
func (m *Manager) Accept(ctx context.Context, r domain.Releasable, actor *domain.User, note string) (Notification, error) {
	return m.Apply(ctx, Accept, r, Request{Actor: actor, Reason: note})
}

// PutOnHold blocks the release of r.
func (m *Manager) PutOnHold(ctx context.Context, r domain.Releasable, actor *domain.User, reason string) (Notification, error) {
	return m.Apply(ctx, PutOnHold, r, Request{Actor: actor, Reason: reason})
}

// RemoveOnHold lifts a hold.
func (m *Manager) RemoveOnHold(ctx context.Context, r domain.Releasable, actor *domain.User) (Notification, error) {
	return m.Apply(ctx, RemoveOnHold, r, Request{Actor: actor})
}

// ReadyForRelease queues an accepted releasable for the next release.
func (m *Manager) ReadyForRelease(ctx context.Context, r domain.Releasable, actor *domain.User) (Notification, error) {
	return m.Apply(ctx, ReadyForRelease, r, Request{Actor: actor})
}

// Release marks r as released.
func (m *Manager) Release(ctx context.Context, r domain.Releasable, actor *domain.User) (Notification, error) {
	return m.Apply(ctx, Release, r, Request{Actor: actor})
}

// Discard abandons r.
func (m *Manager) Discard(ctx context.Context, r domain.Releasable, actor *domain.User, reason string) (Notification, error) {
	return m.Apply(ctx, Discard, r, Request{Actor: actor, Reason: reason})
}

// ChangeOwner moves ownership to target.
func (m *Manager) ChangeOwner(ctx context.Context, r domain.Releasable, actor, target *domain.User, reason string) (Notification, error) {
	return m.Apply(ctx, ChangeOwner, r, Request{Actor: actor, Target: target, Reason: reason})
}

// ChangeReviewer moves the review to target.
func (m *Manager) ChangeReviewer(ctx context.Context, r domain.Releasable, actor, target *domain.User, reason string) (Notification, error) {
	return m.Apply(ctx, ChangeReviewer, r, Request{Actor: actor, Target: target, Reason: reason})
}

// Revert undoes the last status-producing event.
func (m *Manager) Revert(ctx context.Context, r domain.Releasable, actor *domain.User) (Notification, error) {
	return m.Apply(ctx, Revert, r, Request{Actor: actor})
}
