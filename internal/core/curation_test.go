package core

import (
	"context"
	"errors"
	"slices"
	"testing"

	"intactcore/internal/infra/persistence/memory"
	"intactcore/internal/lifecycle"
	"intactcore/pkg/domain"
)

func TestCuratePublicationToRelease(t *testing.T) {
	rec := &recorder{}
	svc := newTestService(t, WithPostCommitListener(rec))
	_, pub := seedPublication(t, svc)
	kind := domain.KindPublication

	n := curate(t, svc, kind, pub.AC, lifecycle.ClaimOwnership, CurationRequest{Actor: "alice"})
	if n.From != domain.StatusNew || n.To != domain.StatusCurationInProgress {
		t.Fatalf("claim moved %s -> %s", n.From, n.To)
	}
	n = curate(t, svc, kind, pub.AC, lifecycle.ReadyForChecking, CurationRequest{Actor: "alice"})
	if got := n.Releasable.CurationState().CurrentReviewer; got == nil || got.Login != "bob" {
		t.Fatalf("reviewer = %v, want bob", got)
	}
	curate(t, svc, kind, pub.AC, lifecycle.Accept, CurationRequest{Actor: "bob"})
	curate(t, svc, kind, pub.AC, lifecycle.ReadyForRelease, CurationRequest{Actor: "bob"})
	n = curate(t, svc, kind, pub.AC, lifecycle.Release, CurationRequest{Actor: "bob"})
	if n.To != domain.StatusReleased || n.Event == nil || n.Event.Event != domain.EventReleased {
		t.Fatalf("unexpected release notification: %+v", n)
	}

	stored, ok := svc.GetPublication(pub.AC)
	if !ok {
		t.Fatalf("publication %s missing", pub.AC)
	}
	if stored.Status != domain.StatusReleased || stored.CurrentOwner.Login != "alice" || stored.CurrentReviewer.Login != "bob" {
		t.Fatalf("unexpected curation state: %+v", stored.Curation)
	}
	history, err := svc.History(kind, pub.AC)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	want := []domain.EventType{
		domain.EventAssigned, domain.EventCurationStarted, domain.EventReadyForChecking,
		domain.EventAccepted, domain.EventReadyForRelease, domain.EventReleased,
	}
	if got := eventTypes(history); !slices.Equal(got, want) {
		t.Fatalf("history = %v, want %v", got, want)
	}
	if len(rec.got) != 5 {
		t.Fatalf("post-commit listener saw %d transitions, want 5", len(rec.got))
	}
}

func TestCurateNotificationHoldsCommittedCopy(t *testing.T) {
	rec := &recorder{}
	svc := newTestService(t, WithPostCommitListener(rec))
	_, pub := seedPublication(t, svc)

	n := curate(t, svc, domain.KindPublication, pub.AC, lifecycle.Reserve, CurationRequest{Actor: "alice"})
	p, ok := n.Releasable.(*domain.Publication)
	if !ok {
		t.Fatalf("releasable is %T", n.Releasable)
	}
	p.Status = domain.StatusDiscarded
	p.ShortLabel = "mutated"
	stored, _ := svc.GetPublication(pub.AC)
	if stored.Status != domain.StatusReserved || stored.ShortLabel != "smith-2024" {
		t.Fatalf("notification leaked committed state: %+v", stored)
	}
	if rec.got[0].Event == nil || rec.got[0].Event.Event != domain.EventReserved {
		t.Fatalf("listener event = %+v", rec.got[0].Event)
	}
}

func TestCurateListenerFailureRollsBack(t *testing.T) {
	rec := &recorder{}
	failing := lifecycle.ListenerFunc(func(context.Context, lifecycle.Notification) error {
		return errors.New("index unavailable")
	})
	svc := newTestService(t,
		WithManager(newTestManager(lifecycle.WithListener(failing))),
		WithPostCommitListener(rec),
	)
	_, pub := seedPublication(t, svc)

	_, _, err := svc.Reserve(context.Background(), domain.KindPublication, pub.AC, CurationRequest{Actor: "alice"})
	if err == nil {
		t.Fatalf("expected listener failure")
	}
	stored, _ := svc.GetPublication(pub.AC)
	if stored.Status != domain.StatusNew || stored.CurrentOwner != nil || len(stored.Events) != 0 {
		t.Fatalf("failed transition left state behind: %+v", stored.Curation)
	}
	if len(rec.got) != 0 {
		t.Fatalf("post-commit listener ran for a rolled back transition")
	}
}

func TestPostCommitListenerErrorIsIgnored(t *testing.T) {
	failing := lifecycle.ListenerFunc(func(context.Context, lifecycle.Notification) error {
		return errors.New("archive offline")
	})
	svc := newTestService(t, WithPostCommitListener(failing))
	_, pub := seedPublication(t, svc)

	if _, _, err := svc.Reserve(context.Background(), domain.KindPublication, pub.AC, CurationRequest{Actor: "alice"}); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	stored, _ := svc.GetPublication(pub.AC)
	if stored.Status != domain.StatusReserved {
		t.Fatalf("status = %s, want RESERVED", stored.Status)
	}
}

func TestCurateErrors(t *testing.T) {
	svc := newTestService(t)
	_, pub := seedPublication(t, svc)
	ctx := context.Background()

	if _, _, err := svc.Reserve(ctx, domain.KindPublication, pub.AC, CurationRequest{Actor: "nobody"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown actor: got %v", err)
	}
	if _, _, err := svc.AssignToCurator(ctx, domain.KindPublication, pub.AC, CurationRequest{Actor: "bob", Target: "nobody"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown target: got %v", err)
	}
	if _, _, err := svc.Reserve(ctx, domain.KindPublication, "EBI-404", CurationRequest{Actor: "alice"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown publication: got %v", err)
	}
	if _, _, err := svc.Reserve(ctx, domain.KindPublication, pub.AC, CurationRequest{Actor: "bob"}); !errors.Is(err, lifecycle.ErrForbidden) {
		t.Fatalf("reviewer reserving: got %v", err)
	}
	if _, _, err := svc.Curate(ctx, "dataset", pub.AC, lifecycle.Reserve, CurationRequest{Actor: "alice"}); err == nil {
		t.Fatalf("expected unknown kind error")
	}
	if _, _, err := svc.Release(ctx, domain.KindPublication, pub.AC, CurationRequest{Actor: "alice"}); !errors.Is(err, lifecycle.ErrIllegalTransition) {
		t.Fatalf("release from NEW: got %v", err)
	}
}

func TestReadyForCheckingRequiresInteractions(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	pub, _, err := svc.CreatePublication(ctx, &domain.Publication{ShortLabel: "empty", Curation: domain.Curation{Status: domain.StatusNew}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	curate(t, svc, domain.KindPublication, pub.AC, lifecycle.ClaimOwnership, CurationRequest{Actor: "alice"})
	_, _, err = svc.ReadyForChecking(ctx, domain.KindPublication, pub.AC, CurationRequest{Actor: "alice"})
	if !errors.Is(err, lifecycle.ErrNotReady) {
		t.Fatalf("expected not ready, got %v", err)
	}
}

func TestRejectAndRevert(t *testing.T) {
	svc := newTestService(t)
	_, pub := seedPublication(t, svc)
	kind := domain.KindPublication
	ctx := context.Background()

	curate(t, svc, kind, pub.AC, lifecycle.ClaimOwnership, CurationRequest{Actor: "alice"})
	curate(t, svc, kind, pub.AC, lifecycle.ReadyForChecking, CurationRequest{Actor: "alice"})
	if _, _, err := svc.Reject(ctx, kind, pub.AC, CurationRequest{Actor: "bob"}); !errors.Is(err, lifecycle.ErrReasonRequired) {
		t.Fatalf("reject without reason: got %v", err)
	}
	n := curate(t, svc, kind, pub.AC, lifecycle.Reject, CurationRequest{Actor: "bob", Reason: "missing figure 2"})
	if n.To != domain.StatusCurationInProgress {
		t.Fatalf("reject moved to %s", n.To)
	}
	stored, _ := svc.GetPublication(pub.AC)
	if stored.ToBeReviewed != "missing figure 2" {
		t.Fatalf("to be reviewed = %q", stored.ToBeReviewed)
	}

	curate(t, svc, kind, pub.AC, lifecycle.ReadyForChecking, CurationRequest{Actor: "alice"})
	n = curate(t, svc, kind, pub.AC, lifecycle.Revert, CurationRequest{Actor: "alice"})
	if n.To != domain.StatusCurationInProgress {
		t.Fatalf("revert moved to %s", n.To)
	}
}

func TestDiscardIsTerminal(t *testing.T) {
	svc := newTestService(t)
	_, pub := seedPublication(t, svc)
	ctx := context.Background()

	curate(t, svc, domain.KindPublication, pub.AC, lifecycle.Discard, CurationRequest{Actor: "alice", Reason: "duplicate"})
	_, _, err := svc.UpdatePublication(ctx, pub.AC, func(p *domain.Publication) error {
		p.Status = domain.StatusNew
		return nil
	})
	var blocked domain.RuleViolationError
	if !errors.As(err, &blocked) {
		t.Fatalf("expected rule violation, got %v", err)
	}
	if !hasViolation(blocked.Result, lifecycleTransitionRuleName, domain.SeverityBlock) {
		t.Fatalf("violations: %+v", blocked.Result.Violations)
	}
}

func TestDirectStatusEditsAreChecked(t *testing.T) {
	svc := newTestService(t)
	_, pub := seedPublication(t, svc)
	ctx := context.Background()

	_, res, err := svc.UpdatePublication(ctx, pub.AC, func(p *domain.Publication) error {
		p.Status = domain.StatusAssigned
		return nil
	})
	if err == nil {
		t.Fatalf("expected ownerless assignment to be blocked")
	}
	if !hasViolation(res, curationOwnershipRuleName, domain.SeverityBlock) {
		t.Fatalf("violations: %+v", res.Violations)
	}
	if hasViolation(res, lifecycleTransitionRuleName, domain.SeverityBlock) {
		t.Fatalf("NEW -> ASSIGNED is a legal move: %+v", res.Violations)
	}
}

func TestCurateComplex(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	x := &domain.Complex{
		ShortLabel: "mdm2-p53",
		Curation:   domain.Curation{Status: domain.StatusNew},
		Organism:   &domain.BioSource{ShortLabel: "human", TaxID: "9606"},
	}
	x.AddParticipant(&domain.Component{Interactor: &domain.Interactor{ShortLabel: "p53"}, Stoichiometry: 1})
	created, _, err := svc.CreateComplex(ctx, x)
	if err != nil {
		t.Fatalf("create complex: %v", err)
	}
	if created.ComplexAC == "" {
		t.Fatalf("complex accession was not minted")
	}
	if _, _, err := svc.ClaimOwnership(ctx, domain.KindComplex, created.AC, CurationRequest{Actor: "alice"}); !errors.Is(err, lifecycle.ErrForbidden) {
		t.Fatalf("publication curator on complex: got %v", err)
	}
	n := curate(t, svc, domain.KindComplex, created.AC, lifecycle.ClaimOwnership, CurationRequest{Actor: "carol"})
	if n.Releasable.ReleasableKind() != domain.KindComplex || n.To != domain.StatusCurationInProgress {
		t.Fatalf("unexpected notification: %+v", n)
	}
	history, err := svc.History(domain.KindComplex, created.AC)
	if err != nil || len(history) != 2 {
		t.Fatalf("history = %v, %v", history, err)
	}
}

func TestHistoryUnknown(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.History(domain.KindComplex, "EBI-404"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCopyPublication(t *testing.T) {
	rec := &recorder{}
	svc := newTestService(t, WithPostCommitListener(rec))
	pubmed, pub := seedPublication(t, svc)
	ctx := context.Background()
	curate(t, svc, domain.KindPublication, pub.AC, lifecycle.ClaimOwnership, CurationRequest{Actor: "alice"})

	cp, _, err := svc.CopyPublication(ctx, pub.AC, "alice")
	if err != nil {
		t.Fatalf("copy: %v", err)
	}
	if cp.AC == "" || cp.AC == pub.AC {
		t.Fatalf("copy accession = %q", cp.AC)
	}
	if cp.Status != domain.StatusNew || cp.CurrentOwner != nil || cp.Creator != "alice" {
		t.Fatalf("copy curation not reset: %+v", cp.Curation)
	}
	if got := eventTypes(cp.Events); !slices.Equal(got, []domain.EventType{domain.EventCreated}) {
		t.Fatalf("copy events = %v", got)
	}
	if len(cp.Experiments) != 1 || cp.Experiments[0].AC == pub.Experiments[0].AC {
		t.Fatalf("experiments were not copied under new accessions")
	}
	if cp.Xrefs[0].Database.AC != pubmed.AC {
		t.Fatalf("copy xref database = %s, want shared %s", cp.Xrefs[0].Database.AC, pubmed.AC)
	}
	last := rec.got[len(rec.got)-1]
	if last.Transition != lifecycle.Create || last.Releasable.ReleasableAC() != cp.AC {
		t.Fatalf("last notification = %+v", last)
	}
	if _, _, err := svc.CopyPublication(ctx, "EBI-404", "alice"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("copy of unknown publication: got %v", err)
	}
}

// interleavingStore commits between a transaction's commit and its
// after-commit hooks.
type interleavingStore struct {
	*memory.Store
	between func(ctx context.Context, st *memory.Store)
}

func (s *interleavingStore) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (domain.Result, error) {
	return s.Store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if between := s.between; between != nil {
			tx.AfterCommit(func() { between(ctx, s.Store) })
		}
		return fn(tx)
	})
}

func TestPostCommitListenersSeeTheCommittedTransition(t *testing.T) {
	store := &interleavingStore{Store: memory.NewStore(NewDefaultRulesEngine(), memory.WithClock(fixedClock))}
	var seen []string
	listener := lifecycle.ListenerFunc(func(_ context.Context, n lifecycle.Notification) error {
		p := n.Releasable.(*domain.Publication)
		seen = append(seen, p.ShortLabel+" "+string(p.Status)+" "+string(n.Event.Event))
		return nil
	})
	svc := newServiceOn(t, store, WithPostCommitListener(listener))
	_, pub := seedPublication(t, svc)

	store.between = func(ctx context.Context, st *memory.Store) {
		store.between = nil
		_, err := st.RunInTransaction(ctx, func(tx domain.Transaction) error {
			_, err := tx.UpdatePublication(pub.AC, func(p *domain.Publication) error {
				p.ShortLabel = "renamed"
				return nil
			})
			return err
		})
		if err != nil {
			t.Errorf("interleaved update: %v", err)
		}
	}
	n := curate(t, svc, domain.KindPublication, pub.AC, lifecycle.ClaimOwnership, CurationRequest{Actor: "alice"})

	want := pub.ShortLabel + " CURATION_IN_PROGRESS " + string(domain.EventCurationStarted)
	if len(seen) != 1 || seen[0] != want {
		t.Fatalf("listener saw %v, want %q", seen, want)
	}
	if stored, _ := svc.GetPublication(pub.AC); stored.ShortLabel != "renamed" {
		t.Fatalf("expected the interleaved update to commit, got %s", stored.ShortLabel)
	}
	n.Releasable.(*domain.Publication).ShortLabel = "edited"
	n.Actor.FirstName = "edited"
	if stored, _ := svc.GetPublication(pub.AC); stored.ShortLabel != "renamed" {
		t.Fatalf("returned notification aliases committed state")
	}
	if u, _ := svc.Store().GetUser("alice"); u.FirstName == "edited" {
		t.Fatalf("returned actor aliases committed state")
	}
}
