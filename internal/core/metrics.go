package core

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"intactcore/internal/lifecycle"
	"intactcore/pkg/domain"
)

// Transaction outcomes used as the outcome label.
const (
	OutcomeCommitted = "committed"
	OutcomeBlocked   = "blocked"
	OutcomeFailed    = "failed"
)

// Metrics records prometheus counters for curation transitions and rule
// violations and a histogram of transaction durations.
type Metrics struct {
	transitions *prometheus.CounterVec
	violations  *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewMetrics registers the collectors on reg. A nil reg registers on the
// default prometheus registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "intact",
				Name:      "lifecycle_transitions_total",
				Help:      "Committed curation transitions by releasable kind and status pair.",
			},
			[]string{"kind", "transition", "from", "to"},
		),
		violations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "intact",
				Name:      "rule_violations_total",
				Help:      "Rule violations reported on transactions by rule and severity.",
			},
			[]string{"rule", "severity"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "intact",
				Name:      "transaction_duration_seconds",
				Help:      "Duration of store transactions by operation and outcome.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation", "outcome"},
		),
	}
}

// OnTransition implements lifecycle.Listener. Register it as a post-commit
// listener so rolled back transitions are not counted.
func (m *Metrics) OnTransition(_ context.Context, n lifecycle.Notification) error {
	if m == nil || n.Releasable == nil {
		return nil
	}
	m.transitions.WithLabelValues(
		string(n.Releasable.ReleasableKind()),
		string(n.Transition),
		string(n.From),
		string(n.To),
	).Inc()
	return nil
}

// ObserveTransaction records the duration and violations of one transaction.
func (m *Metrics) ObserveTransaction(operation string, elapsed time.Duration, res domain.Result, err error) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(operation, outcome(err)).Observe(elapsed.Seconds())
	for _, v := range res.Violations {
		m.violations.WithLabelValues(v.Rule, string(v.Severity)).Inc()
	}
}

func outcome(err error) string {
	var blocked domain.RuleViolationError
	switch {
	case err == nil:
		return OutcomeCommitted
	case errors.As(err, &blocked):
		return OutcomeBlocked
	default:
		return OutcomeFailed
	}
}
