// Package core wires the IntAct object model, the rules engine, the curation
// lifecycle and the persistence backends into a transactional service.
package core

import "intactcore/pkg/domain"

// NewDefaultRulesEngine builds a rules engine with the built-in policy set.
func NewDefaultRulesEngine() *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(LifecycleTransitionRule())
	engine.Register(CurationOwnershipRule())
	engine.Register(ReferenceIntegrityRule())
	return engine
}

// releasableChange extracts the releasable states of a change. before is nil
// for created roots and after is nil for deleted ones.
func releasableChange(change domain.Change) (before, after domain.Releasable, ok bool) {
	if change.Entity != domain.EntityPublication && change.Entity != domain.EntityComplex {
		return nil, nil, false
	}
	before = asReleasable(change.Before)
	after = asReleasable(change.After)
	return before, after, before != nil || after != nil
}

func asReleasable(v any) domain.Releasable {
	switch r := v.(type) {
	case *domain.Publication:
		if r != nil {
			return r
		}
	case *domain.Complex:
		if r != nil {
			return r
		}
	}
	return nil
}

func entityOf(r domain.Releasable) domain.EntityType {
	if r.ReleasableKind() == domain.KindComplex {
		return domain.EntityComplex
	}
	return domain.EntityPublication
}
