package core

import (
	"context"
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"intactcore/internal/infra/persistence/memory"
	"intactcore/internal/lifecycle"
	"intactcore/pkg/domain"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func newTestManager(opts ...lifecycle.Option) *lifecycle.Manager {
	seq := 0
	base := []lifecycle.Option{
		lifecycle.WithClock(fixedClock),
		lifecycle.WithIDGenerator(func() string { seq++; return fmt.Sprintf("ev-%d", seq) }),
		lifecycle.WithReviewerAssigner(lifecycle.NewWeightedAssigner(rand.NewPCG(1, 2))),
	}
	return lifecycle.NewManager(append(base, opts...)...)
}

// newTestService returns a service on a memory store running the default
// rules, seeded with a curator, a reviewer and a complex curator.
func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	return newServiceOn(t, memory.NewStore(NewDefaultRulesEngine(), memory.WithClock(fixedClock)), opts...)
}

func newServiceOn(t *testing.T, store domain.PersistentStore, opts ...Option) *Service {
	t.Helper()
	svc := NewService(store, append([]Option{WithManager(newTestManager())}, opts...)...)
	for _, u := range []*domain.User{
		{Login: "alice", Roles: []domain.Role{domain.RoleCurator}},
		{Login: "bob", Roles: []domain.Role{domain.RoleReviewer}},
		{Login: "carol", Roles: []domain.Role{domain.RoleComplexCurator, domain.RoleComplexReviewer}},
	} {
		if _, _, err := svc.SaveUser(context.Background(), u); err != nil {
			t.Fatalf("save user %s: %v", u.Login, err)
		}
	}
	return svc
}

// newPublication builds a NEW publication with one experiment holding one
// interaction, cross-referenced to pubmed.
func newPublication(pubmed *domain.CvObject) *domain.Publication {
	p := &domain.Publication{ShortLabel: "smith-2024", Curation: domain.Curation{Status: domain.StatusNew}}
	p.Xrefs = []domain.Xref{{Database: pubmed, PrimaryID: "12345"}}
	e := &domain.Experiment{ShortLabel: "smith-2024-1"}
	p.AddExperiment(e)
	in := &domain.Interaction{ShortLabel: "p53-mdm2"}
	e.AddInteraction(in)
	in.AddComponent(&domain.Component{Interactor: &domain.Interactor{ShortLabel: "p53"}, Stoichiometry: 1})
	in.AddComponent(&domain.Component{Interactor: &domain.Interactor{ShortLabel: "mdm2"}, Stoichiometry: 1})
	return p
}

// seedPublication stores the pubmed term and a publication and returns them.
func seedPublication(t *testing.T, svc *Service) (*domain.CvObject, *domain.Publication) {
	t.Helper()
	ctx := context.Background()
	pubmed, _, err := svc.CreateCvObject(ctx, &domain.CvObject{Class: domain.CvDatabase, Identifier: "MI:0446", ShortLabel: "pubmed"})
	if err != nil {
		t.Fatalf("create pubmed: %v", err)
	}
	pub, _, err := svc.CreatePublication(ctx, newPublication(pubmed))
	if err != nil {
		t.Fatalf("create publication: %v", err)
	}
	return pubmed, pub
}

func curate(t *testing.T, svc *Service, kind domain.ReleasableKind, ac string, tr lifecycle.Transition, req CurationRequest) lifecycle.Notification {
	t.Helper()
	n, _, err := svc.Curate(context.Background(), kind, ac, tr, req)
	if err != nil {
		t.Fatalf("%s %s: %v", tr, ac, err)
	}
	return n
}

func eventTypes(events []*domain.LifecycleEvent) []domain.EventType {
	out := make([]domain.EventType, 0, len(events))
	for _, e := range events {
		out = append(out, e.Event)
	}
	return out
}

func hasViolation(res domain.Result, rule string, sev domain.Severity) bool {
	for _, v := range res.Violations {
		if v.Rule == rule && v.Severity == sev {
			return true
		}
	}
	return false
}

// recorder collects notifications.
type recorder struct {
	got []lifecycle.Notification
}

func (r *recorder) OnTransition(_ context.Context, n lifecycle.Notification) error {
	r.got = append(r.got, n)
	return nil
}
