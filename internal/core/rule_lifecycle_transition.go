package core

import (
	"context"
	"fmt"

	"intactcore/internal/lifecycle"
	"intactcore/pkg/domain"
)

const lifecycleTransitionRuleName = "lifecycle_transition"

// LifecycleTransitionRule blocks curation statuses that no workflow transition
// could have produced: unknown statuses, moves out of DISCARDED and jumps
// between statuses that are not connected by a transition.
func LifecycleTransitionRule() domain.Rule {
	return lifecycleTransitionRule{}
}

type lifecycleTransitionRule struct{}

func (lifecycleTransitionRule) Name() string { return lifecycleTransitionRuleName }

func (lifecycleTransitionRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		before, after, ok := releasableChange(change)
		if !ok || after == nil {
			continue
		}
		kind := after.ReleasableKind()
		to := after.CurationState().Status
		block := func(format string, args ...any) {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     lifecycleTransitionRuleName,
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf(format, args...),
				Entity:   entityOf(after),
				EntityID: after.ReleasableAC(),
			})
		}
		if to != "" && !to.Valid() {
			block("%s %s is set to unknown status %s", kind, after.ReleasableAC(), to)
			continue
		}
		var from domain.Status
		if before != nil {
			from = before.CurationState().Status
		}
		if from == to {
			continue
		}
		if from.Terminal() {
			block("cannot move %s %s from terminal status %s to %s", kind, after.ReleasableAC(), from, to)
			continue
		}
		if !lifecycle.CanMove(from, to) {
			block("no transition moves %s %s from %s to %s", kind, after.ReleasableAC(), statusLabel(from), statusLabel(to))
		}
	}
	return res, nil
}

func statusLabel(s domain.Status) string {
	if s == "" {
		return "(none)"
	}
	return string(s)
}
