package graph

import "intactcore/pkg/domain"

// Visitor receives every object reached by a Traverser.
type Visitor interface {
	VisitInstitution(*domain.Institution)
	VisitCvObject(*domain.CvObject)
	VisitBioSource(*domain.BioSource)
	VisitInteractor(*domain.Interactor)
	VisitPublication(*domain.Publication)
	VisitExperiment(*domain.Experiment)
	VisitInteraction(*domain.Interaction)
	VisitComponent(*domain.Component)
	VisitFeature(*domain.Feature)
	VisitComplex(*domain.Complex)
	VisitUser(*domain.User)
	VisitLifecycleEvent(*domain.LifecycleEvent)
}

// BaseVisitor implements Visitor with no-ops; embed it and override what you need.
type BaseVisitor struct{}

func (BaseVisitor) VisitInstitution(*domain.Institution)       {}
func (BaseVisitor) VisitCvObject(*domain.CvObject)             {}
func (BaseVisitor) VisitBioSource(*domain.BioSource)           {}
func (BaseVisitor) VisitInteractor(*domain.Interactor)         {}
func (BaseVisitor) VisitPublication(*domain.Publication)       {}
func (BaseVisitor) VisitExperiment(*domain.Experiment)         {}
func (BaseVisitor) VisitInteraction(*domain.Interaction)       {}
func (BaseVisitor) VisitComponent(*domain.Component)           {}
func (BaseVisitor) VisitFeature(*domain.Feature)               {}
func (BaseVisitor) VisitComplex(*domain.Complex)               {}
func (BaseVisitor) VisitUser(*domain.User)                     {}
func (BaseVisitor) VisitLifecycleEvent(*domain.LifecycleEvent) {}

// TraverseOption configures a Traverser.
type TraverseOption func(*Traverser)

// FollowCvTree descends into parents and children of vocabulary terms.
func FollowCvTree() TraverseOption { return func(t *Traverser) { t.followCvTree = true } }

// VisitStubs reports unloaded references to visitors. They are never descended into.
func VisitStubs() TraverseOption { return func(t *Traverser) { t.visitStubs = true } }

// Traverser walks the graph depth first, visiting each object before its
// relations and at most once. The set of visited objects persists across calls
// to Traverse until Reset, so several roots can be walked as one graph.
type Traverser struct {
	followCvTree bool
	visitStubs   bool
	visitors     []Visitor
	seen         map[any]struct{}
}

// NewTraverser returns a Traverser with the given options.
func NewTraverser(opts ...TraverseOption) *Traverser {
	t := &Traverser{seen: make(map[any]struct{})}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Traverse walks a graph once with default options.
func Traverse(root any, visitors ...Visitor) {
	NewTraverser().Traverse(root, visitors...)
}

// Reset forgets visited objects.
func (t *Traverser) Reset() { clear(t.seen) }

// Seen reports whether obj has been visited.
func (t *Traverser) Seen(obj any) bool {
	_, ok := t.seen[obj]
	return ok
}

// Traverse walks the graph reachable from root, calling every visitor for each
// object. Unsupported root types are ignored.
func (t *Traverser) Traverse(root any, visitors ...Visitor) {
	prev := t.visitors
	t.visitors = visitors
	defer func() { t.visitors = prev }()

	switch o := root.(type) {
	case *domain.Institution:
		t.institution(o)
	case *domain.CvObject:
		t.cvObject(o)
	case *domain.BioSource:
		t.bioSource(o)
	case *domain.Interactor:
		t.interactor(o)
	case *domain.Publication:
		t.publication(o)
	case *domain.Experiment:
		t.experiment(o)
	case *domain.Interaction:
		t.interaction(o)
	case *domain.Component:
		t.component(o)
	case *domain.Feature:
		t.feature(o)
	case *domain.Complex:
		t.complex(o)
	case *domain.User:
		t.user(o)
	}
}

// enter marks obj as visited. It returns false when obj was seen already or is
// a stub that must not be reported; descend tells whether to follow relations.
func (t *Traverser) enter(obj any, stub bool) (visit, descend bool) {
	if _, ok := t.seen[obj]; ok {
		return false, false
	}
	if stub && !t.visitStubs {
		return false, false
	}
	t.seen[obj] = struct{}{}
	return true, !stub
}

func (t *Traverser) annotated(a *domain.Annotated) {
	for _, x := range a.Xrefs {
		t.cvObject(x.Database)
		t.cvObject(x.Qualifier)
	}
	for _, al := range a.Aliases {
		t.cvObject(al.Type)
	}
	for _, an := range a.Annotations {
		t.cvObject(an.Topic)
	}
}

func (t *Traverser) curation(c *domain.Curation) {
	t.user(c.CurrentOwner)
	t.user(c.CurrentReviewer)
	for _, e := range c.Events {
		if e == nil {
			continue
		}
		if _, ok := t.seen[e]; ok {
			continue
		}
		t.seen[e] = struct{}{}
		for _, v := range t.visitors {
			v.VisitLifecycleEvent(e)
		}
		t.user(e.Who)
	}
}

func (t *Traverser) cvObject(o *domain.CvObject) {
	if o == nil {
		return
	}
	visit, descend := t.enter(o, o.IsStub())
	if !visit {
		return
	}
	for _, v := range t.visitors {
		v.VisitCvObject(o)
	}
	if !descend {
		return
	}
	t.annotated(&o.Annotated)
	if t.followCvTree {
		for _, p := range o.Parents {
			t.cvObject(p)
		}
		for _, c := range o.Children {
			t.cvObject(c)
		}
	}
}

func (t *Traverser) institution(o *domain.Institution) {
	if o == nil {
		return
	}
	visit, descend := t.enter(o, o.IsStub())
	if !visit {
		return
	}
	for _, v := range t.visitors {
		v.VisitInstitution(o)
	}
	if descend {
		t.annotated(&o.Annotated)
	}
}

func (t *Traverser) bioSource(o *domain.BioSource) {
	if o == nil {
		return
	}
	visit, descend := t.enter(o, o.IsStub())
	if !visit {
		return
	}
	for _, v := range t.visitors {
		v.VisitBioSource(o)
	}
	if !descend {
		return
	}
	t.annotated(&o.Annotated)
	t.cvObject(o.CellType)
	t.cvObject(o.Tissue)
}

func (t *Traverser) interactor(o *domain.Interactor) {
	if o == nil {
		return
	}
	visit, descend := t.enter(o, o.IsStub())
	if !visit {
		return
	}
	for _, v := range t.visitors {
		v.VisitInteractor(o)
	}
	if !descend {
		return
	}
	t.annotated(&o.Annotated)
	t.cvObject(o.Type)
	t.bioSource(o.BioSource)
}

func (t *Traverser) user(o *domain.User) {
	if o == nil {
		return
	}
	if visit, _ := t.enter(o, o.IsStub()); !visit {
		return
	}
	for _, v := range t.visitors {
		v.VisitUser(o)
	}
}

func (t *Traverser) publication(o *domain.Publication) {
	if o == nil {
		return
	}
	visit, descend := t.enter(o, o.IsStub())
	if !visit {
		return
	}
	for _, v := range t.visitors {
		v.VisitPublication(o)
	}
	if !descend {
		return
	}
	t.annotated(&o.Annotated)
	t.institution(o.Owner)
	t.curation(&o.Curation)
	for _, e := range o.Experiments {
		t.experiment(e)
	}
}

func (t *Traverser) experiment(o *domain.Experiment) {
	if o == nil {
		return
	}
	visit, descend := t.enter(o, o.IsStub())
	if !visit {
		return
	}
	for _, v := range t.visitors {
		v.VisitExperiment(o)
	}
	if !descend {
		return
	}
	t.annotated(&o.Annotated)
	t.publication(o.Publication)
	t.institution(o.Owner)
	t.bioSource(o.HostOrganism)
	t.cvObject(o.DetectionMethod)
	t.cvObject(o.ParticipantIdentification)
	for _, i := range o.Interactions {
		t.interaction(i)
	}
}

func (t *Traverser) interaction(o *domain.Interaction) {
	if o == nil {
		return
	}
	visit, descend := t.enter(o, o.IsStub())
	if !visit {
		return
	}
	for _, v := range t.visitors {
		v.VisitInteraction(o)
	}
	if !descend {
		return
	}
	t.annotated(&o.Annotated)
	t.institution(o.Owner)
	t.cvObject(o.InteractionType)
	for _, e := range o.Experiments {
		t.experiment(e)
	}
	for _, c := range o.Components {
		t.component(c)
	}
}

func (t *Traverser) component(o *domain.Component) {
	if o == nil {
		return
	}
	visit, descend := t.enter(o, o.IsStub())
	if !visit {
		return
	}
	for _, v := range t.visitors {
		v.VisitComponent(o)
	}
	if !descend {
		return
	}
	t.annotated(&o.Annotated)
	t.interaction(o.Interaction)
	t.complex(o.Complex)
	t.interactor(o.Interactor)
	for _, r := range o.ExperimentalRoles {
		t.cvObject(r)
	}
	t.cvObject(o.BiologicalRole)
	t.bioSource(o.ExpressedIn)
	for _, f := range o.Features {
		t.feature(f)
	}
}

func (t *Traverser) feature(o *domain.Feature) {
	if o == nil {
		return
	}
	visit, descend := t.enter(o, o.IsStub())
	if !visit {
		return
	}
	for _, v := range t.visitors {
		v.VisitFeature(o)
	}
	if !descend {
		return
	}
	t.annotated(&o.Annotated)
	t.component(o.Component)
	t.cvObject(o.Type)
	for _, r := range o.Ranges {
		t.cvObject(r.FromFuzzyType)
		t.cvObject(r.ToFuzzyType)
	}
	t.feature(o.Binds)
}

func (t *Traverser) complex(o *domain.Complex) {
	if o == nil {
		return
	}
	visit, descend := t.enter(o, o.IsStub())
	if !visit {
		return
	}
	for _, v := range t.visitors {
		v.VisitComplex(o)
	}
	if !descend {
		return
	}
	t.annotated(&o.Annotated)
	t.curation(&o.Curation)
	t.bioSource(o.Organism)
	t.cvObject(o.Type)
	t.cvObject(o.EvidenceType)
	for _, p := range o.Participants {
		t.component(p)
	}
}

// collector records every visited object in visiting order.
type collector struct {
	out []any
}

func (c *collector) VisitInstitution(o *domain.Institution)       { c.out = append(c.out, o) }
func (c *collector) VisitCvObject(o *domain.CvObject)             { c.out = append(c.out, o) }
func (c *collector) VisitBioSource(o *domain.BioSource)           { c.out = append(c.out, o) }
func (c *collector) VisitInteractor(o *domain.Interactor)         { c.out = append(c.out, o) }
func (c *collector) VisitPublication(o *domain.Publication)       { c.out = append(c.out, o) }
func (c *collector) VisitExperiment(o *domain.Experiment)         { c.out = append(c.out, o) }
func (c *collector) VisitInteraction(o *domain.Interaction)       { c.out = append(c.out, o) }
func (c *collector) VisitComponent(o *domain.Component)           { c.out = append(c.out, o) }
func (c *collector) VisitFeature(o *domain.Feature)               { c.out = append(c.out, o) }
func (c *collector) VisitComplex(o *domain.Complex)               { c.out = append(c.out, o) }
func (c *collector) VisitUser(o *domain.User)                     { c.out = append(c.out, o) }
func (c *collector) VisitLifecycleEvent(o *domain.LifecycleEvent) { c.out = append(c.out, o) }

// Collect walks roots with t and returns the reached objects of type T in
// visiting order.
func Collect[T any](t *Traverser, roots ...any) []T {
	c := &collector{}
	for _, r := range roots {
		t.Traverse(r, c)
	}
	var out []T
	for _, o := range c.out {
		if v, ok := o.(T); ok {
			out = append(out, v)
		}
	}
	return out
}
