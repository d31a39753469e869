package graph

import (
	"testing"

	"intactcore/pkg/domain"
)

func TestClonePreservesCyclesAndSharedIdentity(t *testing.T) {
	f := newFixture()
	cp := NewCloner().Publication(f.publication)

	if cp == f.publication {
		t.Fatalf("expected a new publication instance")
	}
	if cp.AC != "EBI-10" || cp.ShortLabel != "pub-1" {
		t.Fatalf("unexpected copy %+v", cp.IntactObject)
	}
	exp := cp.Experiments[0]
	if exp == f.experiment || exp.Publication != cp {
		t.Fatalf("experiment back reference must point at the copy")
	}
	in := exp.Interactions[0]
	if in.Experiments[0] != exp {
		t.Fatalf("interaction must reference the copied experiment")
	}
	bait, prey := in.Components[0], in.Components[1]
	if bait.Interaction != in || prey.Interaction != in {
		t.Fatalf("components must point at the copied interaction")
	}
	if bait.Interactor != prey.Interactor {
		t.Fatalf("shared interactor must stay shared in the copy")
	}
	if bait.Interactor == f.protein {
		t.Fatalf("interactor should be copied without ShareReferences")
	}
	fa, fb := bait.Features[0], prey.Features[0]
	if fa.Binds != fb || fb.Binds != fa {
		t.Fatalf("feature binding cycle must be preserved")
	}
	if cp.Owner != exp.Owner || cp.Owner != in.Owner {
		t.Fatalf("owner must be one copied instance")
	}
	if cp.CurrentOwner != cp.Events[0].Who {
		t.Fatalf("curation users must share the copied user")
	}
	if cp.Xrefs[0].Database == f.db {
		t.Fatalf("xref database should be copied")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	f := newFixture()
	cp := NewCloner().Publication(f.publication)
	cp.Experiments[0].Interactions[0].Components[0].Features[0].Ranges[0].ToEnd = 99
	cp.CurrentOwner.Preferences["k"] = "changed"
	cp.Events[0].Note = "changed"

	if f.featureA.Ranges[0].ToEnd != 5 {
		t.Fatalf("range mutation leaked into original")
	}
	if f.curator.Preferences["k"] != "v" {
		t.Fatalf("preference mutation leaked into original")
	}
	if f.publication.Events[0].Note != "" {
		t.Fatalf("event mutation leaked into original")
	}
}

func TestCloneExcludeACs(t *testing.T) {
	f := newFixture()
	stub := &domain.Experiment{IntactObject: domain.Stub("EBI-99")}
	f.publication.Experiments = append(f.publication.Experiments, stub)
	cx := &domain.Complex{IntactObject: domain.IntactObject{AC: "EBI-20"}, ComplexAC: "CPX-1", Version: 3}

	c := NewCloner(ExcludeACs())
	cp := c.Publication(f.publication)
	if cp.AC != "" || cp.Experiments[0].AC != "" || cp.Owner.AC != "" {
		t.Fatalf("accessions should be cleared")
	}
	if !cp.Experiments[1].IsStub() || cp.Experiments[1].AC != "EBI-99" {
		t.Fatalf("stubs keep their accession")
	}
	cc := c.Complex(cx)
	if cc.AC != "" || cc.ComplexAC != "" || cc.Version != 0 {
		t.Fatalf("complex identifiers should be cleared: %+v", cc)
	}
}

func TestCloneShareOptions(t *testing.T) {
	f := newFixture()
	cp := NewCloner(ShareCvObjects(), ShareReferences()).Publication(f.publication)
	if cp.Xrefs[0].Database != f.db {
		t.Fatalf("vocabulary terms should be shared")
	}
	if cp.Owner != f.owner || cp.CurrentOwner != f.curator {
		t.Fatalf("references should be shared")
	}
	if cp.Experiments[0] == f.experiment {
		t.Fatalf("owned children are always copied")
	}
}

func TestCloneCvTree(t *testing.T) {
	f := newFixture()
	flat := NewCloner().CvObject(f.db)
	if flat.Parents[0] != f.psiMi {
		t.Fatalf("without CloneCvTree parents are the originals")
	}
	tree := NewCloner(CloneCvTree()).CvObject(f.db)
	parent := tree.Parents[0]
	if parent == f.psiMi || parent.Children[0] != tree {
		t.Fatalf("tree copy must link copied parent and child")
	}
}

func TestDetachedClonerSharesNoTerm(t *testing.T) {
	f := newFixture()
	cp := NewDetachedCloner().Publication(f.publication)
	db := cp.Xrefs[0].Database
	if db == f.db || db.Parents[0] == f.psiMi {
		t.Fatalf("detached copy must not reference original terms")
	}
	db.Parents[0].ShortLabel = "changed"
	if f.psiMi.ShortLabel == "changed" {
		t.Fatalf("editing a detached copy changed the source graph")
	}
}

func TestCloneDispatchesOnType(t *testing.T) {
	f := newFixture()
	c := NewCloner()
	if got := c.Clone(f.interaction).(*domain.Interaction); got == f.interaction {
		t.Fatalf("expected copy")
	}
	if got := c.Clone("plain"); got != "plain" {
		t.Fatalf("unsupported values pass through, got %v", got)
	}
	first := c.Interaction(f.interaction)
	if c.Interaction(f.interaction) != first {
		t.Fatalf("memo should return the same copy within one cloner")
	}
	c.Reset()
	if c.Interaction(f.interaction) == first {
		t.Fatalf("reset should start a fresh copy")
	}
}
