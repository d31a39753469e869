package core

import (
	"context"
	"fmt"

	"intactcore/pkg/domain"
)

const curationOwnershipRuleName = "curation_ownership"

// CurationOwnershipRule requires an owner once a releasable has been assigned
// and a reviewer once it is ready for checking. Discarded releasables are
// exempt. A reviewer who is also the owner is reported as a warning.
func CurationOwnershipRule() domain.Rule {
	return curationOwnershipRule{}
}

type curationOwnershipRule struct{}

func (curationOwnershipRule) Name() string { return curationOwnershipRuleName }

func (curationOwnershipRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		_, after, ok := releasableChange(change)
		if !ok || after == nil {
			continue
		}
		c := after.CurationState()
		if c.Status == "" || c.Status == domain.StatusDiscarded {
			continue
		}
		report := func(sev domain.Severity, format string, args ...any) {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     curationOwnershipRuleName,
				Severity: sev,
				Message:  fmt.Sprintf(format, args...),
				Entity:   entityOf(after),
				EntityID: after.ReleasableAC(),
			})
		}
		kind, ac := after.ReleasableKind(), after.ReleasableAC()
		if c.Status.Rank() >= domain.StatusAssigned.Rank() && c.CurrentOwner == nil {
			report(domain.SeverityBlock, "%s %s in status %s has no owner", kind, ac, c.Status)
		}
		if c.Status.Rank() >= domain.StatusReadyForChecking.Rank() && c.CurrentReviewer == nil {
			report(domain.SeverityBlock, "%s %s in status %s has no reviewer", kind, ac, c.Status)
		}
		if domain.SameUser(c.CurrentOwner, c.CurrentReviewer) {
			report(domain.SeverityWarn, "%s %s is reviewed by its owner %s", kind, ac, c.CurrentOwner.Login)
		}
	}
	return res, nil
}
