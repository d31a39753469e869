package graph

import (
	"testing"

	"intactcore/pkg/domain"
)

type countingVisitor struct {
	BaseVisitor
	components int
	features   int
	users      int
	events     int
	cvs        []string
}

func (v *countingVisitor) VisitComponent(*domain.Component)           { v.components++ }
func (v *countingVisitor) VisitFeature(*domain.Feature)               { v.features++ }
func (v *countingVisitor) VisitUser(*domain.User)                     { v.users++ }
func (v *countingVisitor) VisitLifecycleEvent(*domain.LifecycleEvent) { v.events++ }
func (v *countingVisitor) VisitCvObject(o *domain.CvObject)           { v.cvs = append(v.cvs, o.ShortLabel) }

func TestTraverseVisitsEachObjectOnce(t *testing.T) {
	f := newFixture()
	v := &countingVisitor{}
	Traverse(f.publication, v)
	if v.components != 2 || v.features != 2 {
		t.Fatalf("expected 2 components and 2 features, got %d and %d", v.components, v.features)
	}
	if v.users != 1 || v.events != 1 {
		t.Fatalf("expected one user and one event, got %d and %d", v.users, v.events)
	}
	if len(v.cvs) != 1 || v.cvs[0] != "intact" {
		t.Fatalf("cv tree should not be followed by default: %v", v.cvs)
	}
}

func TestTraverseFollowCvTree(t *testing.T) {
	f := newFixture()
	v := &countingVisitor{}
	NewTraverser(FollowCvTree()).Traverse(f.db, v)
	if len(v.cvs) != 2 {
		t.Fatalf("expected term and parent, got %v", v.cvs)
	}
}

func TestTraverseStubs(t *testing.T) {
	f := newFixture()
	f.experiment.HostOrganism = &domain.BioSource{IntactObject: domain.Stub("EBI-77")}

	if got := Collect[*domain.BioSource](NewTraverser(), f.experiment); len(got) != 1 {
		t.Fatalf("stub should be skipped, got %d biosources", len(got))
	}
	got := Collect[*domain.BioSource](NewTraverser(VisitStubs()), f.experiment)
	if len(got) != 2 {
		t.Fatalf("expected stub and loaded biosource, got %d", len(got))
	}
}

func TestTraverserSeenPersistsUntilReset(t *testing.T) {
	f := newFixture()
	tr := NewTraverser()
	first := Collect[*domain.Interaction](tr, f.publication)
	if len(first) != 1 {
		t.Fatalf("expected one interaction, got %d", len(first))
	}
	if again := Collect[*domain.Interaction](tr, f.interaction); len(again) != 0 {
		t.Fatalf("seen objects must not be revisited")
	}
	if !tr.Seen(f.featureB) {
		t.Fatalf("bound feature should be reached")
	}
	tr.Reset()
	if again := Collect[*domain.Interaction](tr, f.interaction); len(again) != 1 {
		t.Fatalf("reset should forget visited objects")
	}
}

func TestTraverseFromChildReachesRoot(t *testing.T) {
	f := newFixture()
	pubs := Collect[*domain.Publication](NewTraverser(), f.featureA)
	if len(pubs) != 1 || pubs[0] != f.publication {
		t.Fatalf("expected walk up to the publication, got %v", pubs)
	}
}
