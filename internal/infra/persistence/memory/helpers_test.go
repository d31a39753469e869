package memory

import (
	"context"
	"testing"
	"time"

	"intactcore/pkg/domain"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func newTestStore(opts ...Option) *Store {
	return NewStore(nil, append([]Option{WithClock(fixedClock)}, opts...)...)
}

// newPublication builds a publication with one experiment holding one
// interaction between two copies of the same protein.
func newPublication(db *domain.CvObject) *domain.Publication {
	protein := &domain.Interactor{ShortLabel: "p53"}
	pub := &domain.Publication{ShortLabel: "smith-2024", Curation: domain.Curation{Status: domain.StatusNew}}
	pub.Xrefs = []domain.Xref{{Database: db, PrimaryID: "12345"}}
	exp := &domain.Experiment{ShortLabel: "smith-2024-1"}
	pub.AddExperiment(exp)
	in := &domain.Interaction{ShortLabel: "p53-p53"}
	exp.AddInteraction(in)
	in.AddComponent(&domain.Component{Interactor: protein, Stoichiometry: 1})
	in.AddComponent(&domain.Component{Interactor: protein, Stoichiometry: 1})
	return pub
}

func run(t *testing.T, s *Store, fn func(tx domain.Transaction) error) domain.Result {
	t.Helper()
	res, err := s.RunInTransaction(context.Background(), fn)
	if err != nil {
		t.Fatalf("run transaction: %v", err)
	}
	return res
}

// seed stores a database term and a publication graph and returns their accessions.
func seed(t *testing.T, s *Store) (dbAC, pubAC string) {
	t.Helper()
	run(t, s, func(tx domain.Transaction) error {
		db, err := tx.CreateCvObject(&domain.CvObject{Class: domain.CvDatabase, Identifier: "MI:0446", ShortLabel: "pubmed"})
		if err != nil {
			return err
		}
		pub, err := tx.CreatePublication(newPublication(db))
		if err != nil {
			return err
		}
		dbAC, pubAC = db.AC, pub.AC
		return nil
	})
	return dbAC, pubAC
}

type blockingRule struct{}

func (blockingRule) Name() string { return "block" }

func (blockingRule) Evaluate(context.Context, domain.RuleView, []domain.Change) (domain.Result, error) {
	return domain.Result{Violations: []domain.Violation{{Rule: "block", Severity: domain.SeverityBlock, Message: "no"}}}, nil
}

type warningRule struct{}

func (warningRule) Name() string { return "warn" }

func (warningRule) Evaluate(context.Context, domain.RuleView, []domain.Change) (domain.Result, error) {
	return domain.Result{Violations: []domain.Violation{{Rule: "warn", Severity: domain.SeverityWarn, Message: "careful"}}}, nil
}
