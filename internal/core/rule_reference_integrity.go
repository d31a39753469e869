package core

import (
	"context"
	"fmt"

	"intactcore/internal/graph"
	"intactcore/pkg/domain"
)

const referenceIntegrityRuleName = "reference_integrity"

// ReferenceIntegrityRule blocks created or updated roots whose graph reaches a
// root object absent from the transaction state, typically a stub carrying an
// unknown accession. Deleting a term, institution, biosource or interactor
// that a publication or complex still reaches is blocked as well.
func ReferenceIntegrityRule() domain.Rule {
	return referenceIntegrityRule{}
}

type referenceIntegrityRule struct{}

func (referenceIntegrityRule) Name() string { return referenceIntegrityRuleName }

type reference struct {
	entity domain.EntityType
	key    string
}

// referenceVisitor reports every root object reached during a walk.
type referenceVisitor struct {
	graph.BaseVisitor
	fn func(reference)
}

func (v referenceVisitor) report(entity domain.EntityType, key string) {
	if key != "" {
		v.fn(reference{entity: entity, key: key})
	}
}

func (v referenceVisitor) VisitInstitution(o *domain.Institution) {
	v.report(domain.EntityInstitution, o.AC)
}
func (v referenceVisitor) VisitCvObject(o *domain.CvObject)   { v.report(domain.EntityCvObject, o.AC) }
func (v referenceVisitor) VisitBioSource(o *domain.BioSource) { v.report(domain.EntityBioSource, o.AC) }
func (v referenceVisitor) VisitInteractor(o *domain.Interactor) {
	v.report(domain.EntityInteractor, o.AC)
}
func (v referenceVisitor) VisitPublication(o *domain.Publication) {
	v.report(domain.EntityPublication, o.AC)
}
func (v referenceVisitor) VisitExperiment(o *domain.Experiment) {
	v.report(domain.EntityExperiment, o.AC)
}
func (v referenceVisitor) VisitInteraction(o *domain.Interaction) {
	v.report(domain.EntityInteraction, o.AC)
}
func (v referenceVisitor) VisitComplex(o *domain.Complex) { v.report(domain.EntityComplex, o.AC) }
func (v referenceVisitor) VisitUser(o *domain.User)       { v.report(domain.EntityUser, o.Login) }

func exists(view domain.RuleView, ref reference) bool {
	var ok bool
	switch ref.entity {
	case domain.EntityInstitution:
		_, ok = view.FindInstitution(ref.key)
	case domain.EntityCvObject:
		_, ok = view.FindCvObject(ref.key)
	case domain.EntityBioSource:
		_, ok = view.FindBioSource(ref.key)
	case domain.EntityInteractor:
		_, ok = view.FindInteractor(ref.key)
	case domain.EntityPublication:
		_, ok = view.FindPublication(ref.key)
	case domain.EntityExperiment:
		_, ok = view.FindExperiment(ref.key)
	case domain.EntityInteraction:
		_, ok = view.FindInteraction(ref.key)
	case domain.EntityComplex:
		_, ok = view.FindComplex(ref.key)
	case domain.EntityUser:
		_, ok = view.FindUser(ref.key)
	default:
		ok = true
	}
	return ok
}

func (referenceIntegrityRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	block := func(entity domain.EntityType, id, format string, args ...any) {
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     referenceIntegrityRuleName,
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf(format, args...),
			Entity:   entity,
			EntityID: id,
		})
	}

	walker := graph.NewTraverser(graph.VisitStubs(), graph.FollowCvTree())
	reported := map[reference]bool{}
	deleted := map[reference]bool{}
	for _, change := range changes {
		if change.Action == domain.ActionDelete {
			switch change.Entity {
			case domain.EntityCvObject, domain.EntityInstitution, domain.EntityBioSource, domain.EntityInteractor:
				deleted[reference{entity: change.Entity, key: change.AC}] = true
			}
			continue
		}
		if change.After == nil {
			continue
		}
		walker.Traverse(change.After, referenceVisitor{fn: func(ref reference) {
			if reported[ref] || exists(view, ref) {
				return
			}
			reported[ref] = true
			block(change.Entity, change.AC, "%s %s references missing %s %s", change.Entity, change.AC, ref.entity, ref.key)
		}})
	}
	if len(deleted) == 0 {
		return res, nil
	}

	scan := graph.NewTraverser()
	check := func(entity domain.EntityType, ac string) func(reference) {
		return func(ref reference) {
			if !deleted[ref] || reported[ref] || exists(view, ref) {
				return
			}
			reported[ref] = true
			block(ref.entity, ref.key, "deleted %s %s is still referenced by %s %s", ref.entity, ref.key, entity, ac)
		}
	}
	for _, p := range view.ListPublications() {
		scan.Traverse(p, referenceVisitor{fn: check(domain.EntityPublication, p.AC)})
	}
	for _, x := range view.ListComplexes() {
		scan.Traverse(x, referenceVisitor{fn: check(domain.EntityComplex, x.AC)})
	}
	return res, nil
}
