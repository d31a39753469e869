// Package graph deep-copies and walks the cyclic IntAct object graph. Both the
// Cloner and the Traverser track objects by pointer identity, so shared
// references and back references survive a copy and cycles end a walk.
package graph

import (
	"maps"
	"slices"

	"intactcore/pkg/domain"
)

// CloneOption configures a Cloner.
type CloneOption func(*cloneOptions)

type cloneOptions struct {
	excludeACs      bool
	shareCvObjects  bool
	shareReferences bool
	cloneCvTree     bool
}

// ExcludeACs clears accessions and audit columns on every copied object, so the
// copy can be stored as new. Stubs keep their accession.
func ExcludeACs() CloneOption { return func(o *cloneOptions) { o.excludeACs = true } }

// ShareCvObjects reuses vocabulary terms instead of copying them.
func ShareCvObjects() CloneOption { return func(o *cloneOptions) { o.shareCvObjects = true } }

// ShareReferences reuses institutions, biosources, interactors and users.
func ShareReferences() CloneOption { return func(o *cloneOptions) { o.shareReferences = true } }

// CloneCvTree follows parents and children of copied terms. Without it the
// copied terms point at the original parents and children.
func CloneCvTree() CloneOption { return func(o *cloneOptions) { o.cloneCvTree = true } }

// Cloner deep-copies object graphs. Copies made by one Cloner share an identity
// memo: cloning two objects that reference the same third object yields copies
// referencing the same copy. Call Reset to start an unrelated copy.
// A Cloner is not safe for concurrent use.
type Cloner struct {
	opts cloneOptions
	memo map[any]any
}

// NewCloner returns a Cloner with the given options.
func NewCloner(opts ...CloneOption) *Cloner {
	c := &Cloner{memo: make(map[any]any)}
	for _, o := range opts {
		o(&c.opts)
	}
	return c
}

// NewDetachedCloner returns a Cloner whose copies share no pointer with the
// source graph, vocabulary parents and children included.
func NewDetachedCloner() *Cloner { return NewCloner(CloneCvTree()) }

// Reset forgets every copy made so far.
func (c *Cloner) Reset() { clear(c.memo) }

// Clone copies any supported object; other values are returned unchanged.
func (c *Cloner) Clone(v any) any {
	switch o := v.(type) {
	case *domain.Institution:
		return c.Institution(o)
	case *domain.CvObject:
		return c.CvObject(o)
	case *domain.BioSource:
		return c.BioSource(o)
	case *domain.Interactor:
		return c.Interactor(o)
	case *domain.Publication:
		return c.Publication(o)
	case *domain.Experiment:
		return c.Experiment(o)
	case *domain.Interaction:
		return c.Interaction(o)
	case *domain.Component:
		return c.Component(o)
	case *domain.Feature:
		return c.Feature(o)
	case *domain.Complex:
		return c.Complex(o)
	case *domain.User:
		return c.User(o)
	default:
		return v
	}
}

// lookup returns the memoised copy of src if there is one.
func lookup[T any](c *Cloner, src *T) (*T, bool) {
	if v, ok := c.memo[src]; ok {
		return v.(*T), true
	}
	return nil, false
}

// begin registers an empty copy of src before its fields are copied, so cycles
// back to src resolve to the copy. It reports whether the copy is complete,
// which is the case for stubs: they carry no loaded relations to follow.
func begin[T any](c *Cloner, src *T, stub bool) (*T, bool) {
	dst := new(T)
	c.memo[src] = dst
	if stub {
		*dst = *src
		return dst, true
	}
	return dst, false
}

func cloneAll[T any](src []*T, fn func(*T) *T) []*T {
	if src == nil {
		return nil
	}
	out := make([]*T, len(src))
	for i, v := range src {
		out[i] = fn(v)
	}
	return out
}

func (c *Cloner) base(o domain.IntactObject) domain.IntactObject {
	if c.opts.excludeACs {
		return domain.IntactObject{}
	}
	return o
}

func (c *Cloner) annotated(a domain.Annotated) domain.Annotated {
	var out domain.Annotated
	if a.Xrefs != nil {
		out.Xrefs = make([]domain.Xref, len(a.Xrefs))
		for i, x := range a.Xrefs {
			x.Database = c.CvObject(x.Database)
			x.Qualifier = c.CvObject(x.Qualifier)
			out.Xrefs[i] = x
		}
	}
	if a.Aliases != nil {
		out.Aliases = make([]domain.Alias, len(a.Aliases))
		for i, al := range a.Aliases {
			al.Type = c.CvObject(al.Type)
			out.Aliases[i] = al
		}
	}
	if a.Annotations != nil {
		out.Annotations = make([]domain.Annotation, len(a.Annotations))
		for i, an := range a.Annotations {
			an.Topic = c.CvObject(an.Topic)
			out.Annotations[i] = an
		}
	}
	return out
}

func (c *Cloner) curation(src domain.Curation) domain.Curation {
	out := src
	out.CurrentOwner = c.User(src.CurrentOwner)
	out.CurrentReviewer = c.User(src.CurrentReviewer)
	out.Events = nil
	if src.Events != nil {
		out.Events = make([]*domain.LifecycleEvent, len(src.Events))
		for i, e := range src.Events {
			if e == nil {
				continue
			}
			cp := *e
			cp.Who = c.User(e.Who)
			out.Events[i] = &cp
		}
	}
	return out
}

// CvObject copies a vocabulary term.
func (c *Cloner) CvObject(src *domain.CvObject) *domain.CvObject {
	if src == nil || c.opts.shareCvObjects {
		return src
	}
	if dst, ok := lookup(c, src); ok {
		return dst
	}
	dst, done := begin(c, src, src.IsStub())
	if done {
		return dst
	}
	dst.IntactObject = c.base(src.IntactObject)
	dst.Annotated = c.annotated(src.Annotated)
	dst.Class = src.Class
	dst.Identifier = src.Identifier
	dst.ShortLabel = src.ShortLabel
	dst.FullName = src.FullName
	if c.opts.cloneCvTree {
		dst.Parents = cloneAll(src.Parents, c.CvObject)
		dst.Children = cloneAll(src.Children, c.CvObject)
	} else {
		dst.Parents = slices.Clone(src.Parents)
		dst.Children = slices.Clone(src.Children)
	}
	return dst
}

// Institution copies an institution.
func (c *Cloner) Institution(src *domain.Institution) *domain.Institution {
	if src == nil || c.opts.shareReferences {
		return src
	}
	if dst, ok := lookup(c, src); ok {
		return dst
	}
	dst, done := begin(c, src, src.IsStub())
	if done {
		return dst
	}
	*dst = *src
	dst.IntactObject = c.base(src.IntactObject)
	dst.Annotated = c.annotated(src.Annotated)
	return dst
}

// BioSource copies a biosource.
func (c *Cloner) BioSource(src *domain.BioSource) *domain.BioSource {
	if src == nil || c.opts.shareReferences {
		return src
	}
	if dst, ok := lookup(c, src); ok {
		return dst
	}
	dst, done := begin(c, src, src.IsStub())
	if done {
		return dst
	}
	dst.IntactObject = c.base(src.IntactObject)
	dst.Annotated = c.annotated(src.Annotated)
	dst.ShortLabel = src.ShortLabel
	dst.FullName = src.FullName
	dst.TaxID = src.TaxID
	dst.CellType = c.CvObject(src.CellType)
	dst.Tissue = c.CvObject(src.Tissue)
	return dst
}

// Interactor copies an interactor.
func (c *Cloner) Interactor(src *domain.Interactor) *domain.Interactor {
	if src == nil || c.opts.shareReferences {
		return src
	}
	if dst, ok := lookup(c, src); ok {
		return dst
	}
	dst, done := begin(c, src, src.IsStub())
	if done {
		return dst
	}
	dst.IntactObject = c.base(src.IntactObject)
	dst.Annotated = c.annotated(src.Annotated)
	dst.ShortLabel = src.ShortLabel
	dst.FullName = src.FullName
	dst.Type = c.CvObject(src.Type)
	dst.BioSource = c.BioSource(src.BioSource)
	dst.Sequence = src.Sequence
	return dst
}

// User copies a user.
func (c *Cloner) User(src *domain.User) *domain.User {
	if src == nil || c.opts.shareReferences {
		return src
	}
	if dst, ok := lookup(c, src); ok {
		return dst
	}
	dst, done := begin(c, src, src.IsStub())
	if done {
		return dst
	}
	*dst = *src
	dst.Roles = slices.Clone(src.Roles)
	dst.Preferences = maps.Clone(src.Preferences)
	return dst
}

// Publication copies a publication with its experiments.
func (c *Cloner) Publication(src *domain.Publication) *domain.Publication {
	if src == nil {
		return nil
	}
	if dst, ok := lookup(c, src); ok {
		return dst
	}
	dst, done := begin(c, src, src.IsStub())
	if done {
		return dst
	}
	dst.IntactObject = c.base(src.IntactObject)
	dst.Annotated = c.annotated(src.Annotated)
	dst.Curation = c.curation(src.Curation)
	dst.ShortLabel = src.ShortLabel
	dst.FullName = src.FullName
	dst.Owner = c.Institution(src.Owner)
	dst.Experiments = cloneAll(src.Experiments, c.Experiment)
	return dst
}

// Experiment copies an experiment with its interactions.
func (c *Cloner) Experiment(src *domain.Experiment) *domain.Experiment {
	if src == nil {
		return nil
	}
	if dst, ok := lookup(c, src); ok {
		return dst
	}
	dst, done := begin(c, src, src.IsStub())
	if done {
		return dst
	}
	dst.IntactObject = c.base(src.IntactObject)
	dst.Annotated = c.annotated(src.Annotated)
	dst.ShortLabel = src.ShortLabel
	dst.FullName = src.FullName
	dst.Publication = c.Publication(src.Publication)
	dst.Owner = c.Institution(src.Owner)
	dst.HostOrganism = c.BioSource(src.HostOrganism)
	dst.DetectionMethod = c.CvObject(src.DetectionMethod)
	dst.ParticipantIdentification = c.CvObject(src.ParticipantIdentification)
	dst.Interactions = cloneAll(src.Interactions, c.Interaction)
	return dst
}

// Interaction copies an interaction with its components.
func (c *Cloner) Interaction(src *domain.Interaction) *domain.Interaction {
	if src == nil {
		return nil
	}
	if dst, ok := lookup(c, src); ok {
		return dst
	}
	dst, done := begin(c, src, src.IsStub())
	if done {
		return dst
	}
	dst.IntactObject = c.base(src.IntactObject)
	dst.Annotated = c.annotated(src.Annotated)
	dst.ShortLabel = src.ShortLabel
	dst.Owner = c.Institution(src.Owner)
	dst.InteractionType = c.CvObject(src.InteractionType)
	dst.Experiments = cloneAll(src.Experiments, c.Experiment)
	dst.Components = cloneAll(src.Components, c.Component)
	if src.KD != nil {
		kd := *src.KD
		dst.KD = &kd
	}
	dst.Negative = src.Negative
	return dst
}

// Component copies a participant with its features.
func (c *Cloner) Component(src *domain.Component) *domain.Component {
	if src == nil {
		return nil
	}
	if dst, ok := lookup(c, src); ok {
		return dst
	}
	dst, done := begin(c, src, src.IsStub())
	if done {
		return dst
	}
	dst.IntactObject = c.base(src.IntactObject)
	dst.Annotated = c.annotated(src.Annotated)
	dst.Interaction = c.Interaction(src.Interaction)
	dst.Complex = c.Complex(src.Complex)
	dst.Interactor = c.Interactor(src.Interactor)
	dst.ExperimentalRoles = cloneAll(src.ExperimentalRoles, c.CvObject)
	dst.BiologicalRole = c.CvObject(src.BiologicalRole)
	dst.ExpressedIn = c.BioSource(src.ExpressedIn)
	dst.Stoichiometry = src.Stoichiometry
	dst.Features = cloneAll(src.Features, c.Feature)
	return dst
}

// Feature copies a feature. A bound feature on another participant is copied
// too, so both sides of the binding end up in the copy.
func (c *Cloner) Feature(src *domain.Feature) *domain.Feature {
	if src == nil {
		return nil
	}
	if dst, ok := lookup(c, src); ok {
		return dst
	}
	dst, done := begin(c, src, src.IsStub())
	if done {
		return dst
	}
	dst.IntactObject = c.base(src.IntactObject)
	dst.Annotated = c.annotated(src.Annotated)
	dst.ShortLabel = src.ShortLabel
	dst.Component = c.Component(src.Component)
	dst.Type = c.CvObject(src.Type)
	if src.Ranges != nil {
		dst.Ranges = make([]domain.Range, len(src.Ranges))
		for i, r := range src.Ranges {
			r.FromFuzzyType = c.CvObject(r.FromFuzzyType)
			r.ToFuzzyType = c.CvObject(r.ToFuzzyType)
			dst.Ranges[i] = r
		}
	}
	dst.Binds = c.Feature(src.Binds)
	return dst
}

// Complex copies a complex with its participants.
func (c *Cloner) Complex(src *domain.Complex) *domain.Complex {
	if src == nil {
		return nil
	}
	if dst, ok := lookup(c, src); ok {
		return dst
	}
	dst, done := begin(c, src, src.IsStub())
	if done {
		return dst
	}
	dst.IntactObject = c.base(src.IntactObject)
	dst.Annotated = c.annotated(src.Annotated)
	dst.Curation = c.curation(src.Curation)
	dst.ShortLabel = src.ShortLabel
	dst.ComplexAC = src.ComplexAC
	dst.Version = src.Version
	if c.opts.excludeACs {
		dst.ComplexAC = ""
		dst.Version = 0
	}
	dst.Organism = c.BioSource(src.Organism)
	dst.Type = c.CvObject(src.Type)
	dst.EvidenceType = c.CvObject(src.EvidenceType)
	dst.Participants = cloneAll(src.Participants, c.Component)
	return dst
}
