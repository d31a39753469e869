package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"intactcore/internal/lifecycle"
	"intactcore/pkg/domain"
)

func TestMetricsCountCommittedTransitions(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	svc := newTestService(t, WithMetrics(metrics))
	_, pub := seedPublication(t, svc)
	ctx := context.Background()

	curate(t, svc, domain.KindPublication, pub.AC, lifecycle.ClaimOwnership, CurationRequest{Actor: "alice"})
	if _, _, err := svc.Release(ctx, domain.KindPublication, pub.AC, CurationRequest{Actor: "alice"}); err == nil {
		t.Fatalf("expected release to fail")
	}

	claimed := metrics.transitions.WithLabelValues("publication", "claim_ownership", "NEW", "CURATION_IN_PROGRESS")
	if got := testutil.ToFloat64(claimed); got != 1 {
		t.Fatalf("claim transitions = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(metrics.transitions); got != 1 {
		t.Fatalf("transition series = %d, want 1", got)
	}
	// save_user, create_cv_object, create_publication, curate committed and curate failed
	if got := testutil.CollectAndCount(metrics.duration); got != 5 {
		t.Fatalf("duration series = %d, want 5", got)
	}
}

func TestMetricsObserveTransaction(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	res := domain.Result{Violations: []domain.Violation{
		{Rule: lifecycleTransitionRuleName, Severity: domain.SeverityBlock},
		{Rule: curationOwnershipRuleName, Severity: domain.SeverityWarn},
	}}
	metrics.ObserveTransaction("curate", 10*time.Millisecond, res, domain.RuleViolationError{Result: res})
	metrics.ObserveTransaction("curate", time.Millisecond, domain.Result{}, errors.New("disk full"))
	metrics.ObserveTransaction("curate", time.Millisecond, domain.Result{}, nil)

	if got := testutil.ToFloat64(metrics.violations.WithLabelValues(lifecycleTransitionRuleName, "block")); got != 1 {
		t.Fatalf("block violations = %v", got)
	}
	if got := testutil.ToFloat64(metrics.violations.WithLabelValues(curationOwnershipRuleName, "warn")); got != 1 {
		t.Fatalf("warn violations = %v", got)
	}
	if got := testutil.CollectAndCount(metrics.duration); got != 3 {
		t.Fatalf("duration series = %d, want one per outcome", got)
	}
}

func TestOutcome(t *testing.T) {
	if got := outcome(nil); got != OutcomeCommitted {
		t.Fatalf("nil -> %s", got)
	}
	wrapped := errors.Join(errors.New("ctx"), domain.RuleViolationError{})
	if got := outcome(wrapped); got != OutcomeBlocked {
		t.Fatalf("rule violation -> %s", got)
	}
	if got := outcome(errors.New("boom")); got != OutcomeFailed {
		t.Fatalf("error -> %s", got)
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.ObserveTransaction("noop", time.Second, domain.Result{}, nil)
	if err := m.OnTransition(context.Background(), lifecycle.Notification{}); err != nil {
		t.Fatalf("on transition: %v", err)
	}
}
