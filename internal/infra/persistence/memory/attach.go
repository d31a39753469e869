package memory

import (
	"fmt"
	"slices"

	"intactcore/pkg/domain"
)

// attacher links objects reachable from a created or updated root into the
// transaction state. Objects without an accession receive one and, for root
// types, are registered as created. References carrying a known accession are
// replaced by the state's instance. Stubs with unknown accessions are left in
// place for the reference rule to report.
type attacher struct {
	tx   *transaction
	seen map[any]struct{}
}

func (tx *transaction) attacher() *attacher {
	return &attacher{tx: tx, seen: map[any]struct{}{}}
}

func (a *attacher) enter(p any) bool {
	if _, ok := a.seen[p]; ok {
		return false
	}
	a.seen[p] = struct{}{}
	return true
}

// stamp mints an accession when missing and fills the audit times of a new
// object. A minted accession already held by a root is refused.
func (a *attacher) stamp(o *domain.IntactObject) error {
	if o.AC == "" {
		ac, err := a.tx.store.acs.Next(a.tx.ctx)
		if err != nil {
			return err
		}
		if entity, ok := a.tx.st.taken(ac); ok {
			return fmt.Errorf("minted accession reissued: %w", domain.DuplicateError{Entity: entity, ID: ac})
		}
		o.AC = ac
	}
	if o.Created.IsZero() {
		o.Created = a.tx.now
	}
	o.Updated = a.tx.now
	return nil
}

// resolveRoot returns the state's instance for p and whether p is new and has
// just been registered.
func resolveRoot[T any, P interface {
	*T
	domain.Identifiable
}](a *attacher, p P, m map[string]P, entity domain.EntityType) (P, bool, error) {
	if p == nil {
		return nil, false, nil
	}
	obj := p.Identity()
	if obj.AC != "" {
		if cur, ok := m[obj.AC]; ok {
			return cur, false, nil
		}
		if obj.IsStub() {
			return p, false, nil
		}
	}
	if err := a.stamp(obj); err != nil {
		return nil, false, err
	}
	m[obj.AC] = p
	a.tx.record(domain.Change{Entity: entity, Action: domain.ActionCreate, AC: obj.AC, After: p})
	return p, true, nil
}

func (a *attacher) user(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	if cur, ok := a.tx.st.users[u.Login]; ok {
		return cur
	}
	return u
}

func (a *attacher) annotated(an *domain.Annotated) error {
	var err error
	for i := range an.Xrefs {
		x := &an.Xrefs[i]
		if x.Database, err = a.cv(x.Database); err != nil {
			return err
		}
		if x.Qualifier, err = a.cv(x.Qualifier); err != nil {
			return err
		}
	}
	for i := range an.Aliases {
		if an.Aliases[i].Type, err = a.cv(an.Aliases[i].Type); err != nil {
			return err
		}
	}
	for i := range an.Annotations {
		if an.Annotations[i].Topic, err = a.cv(an.Annotations[i].Topic); err != nil {
			return err
		}
	}
	return nil
}

func (a *attacher) curation(c *domain.Curation) {
	c.CurrentOwner = a.user(c.CurrentOwner)
	c.CurrentReviewer = a.user(c.CurrentReviewer)
	for _, e := range c.Events {
		if e != nil {
			e.Who = a.user(e.Who)
		}
	}
}

func (a *attacher) cvs(list []*domain.CvObject) error {
	for i, p := range list {
		cv, err := a.cv(p)
		if err != nil {
			return err
		}
		list[i] = cv
	}
	return nil
}

func (a *attacher) cv(p *domain.CvObject) (*domain.CvObject, error) {
	cv, isNew, err := resolveRoot(a, p, a.tx.st.cvs, domain.EntityCvObject)
	if err != nil || !isNew {
		return cv, err
	}
	return cv, a.cvBody(cv)
}

func (a *attacher) cvBody(cv *domain.CvObject) error {
	if !a.enter(cv) {
		return nil
	}
	if err := a.annotated(&cv.Annotated); err != nil {
		return err
	}
	if err := a.cvs(cv.Parents); err != nil {
		return err
	}
	if err := a.cvs(cv.Children); err != nil {
		return err
	}
	for _, p := range cv.Parents {
		if p != nil && p.Initialized() && !slices.Contains(p.Children, cv) {
			p.Children = append(p.Children, cv)
		}
	}
	for _, c := range cv.Children {
		if c != nil && c.Initialized() && !slices.Contains(c.Parents, cv) {
			c.Parents = append(c.Parents, cv)
		}
	}
	return nil
}

func (a *attacher) institution(p *domain.Institution) (*domain.Institution, error) {
	in, isNew, err := resolveRoot(a, p, a.tx.st.institutions, domain.EntityInstitution)
	if err != nil || !isNew {
		return in, err
	}
	return in, a.institutionBody(in)
}

func (a *attacher) institutionBody(in *domain.Institution) error {
	if !a.enter(in) {
		return nil
	}
	return a.annotated(&in.Annotated)
}

func (a *attacher) bioSource(p *domain.BioSource) (*domain.BioSource, error) {
	bs, isNew, err := resolveRoot(a, p, a.tx.st.biosources, domain.EntityBioSource)
	if err != nil || !isNew {
		return bs, err
	}
	return bs, a.bioSourceBody(bs)
}

func (a *attacher) bioSourceBody(bs *domain.BioSource) error {
	if !a.enter(bs) {
		return nil
	}
	if err := a.annotated(&bs.Annotated); err != nil {
		return err
	}
	var err error
	if bs.CellType, err = a.cv(bs.CellType); err != nil {
		return err
	}
	bs.Tissue, err = a.cv(bs.Tissue)
	return err
}

func (a *attacher) interactor(p *domain.Interactor) (*domain.Interactor, error) {
	it, isNew, err := resolveRoot(a, p, a.tx.st.interactors, domain.EntityInteractor)
	if err != nil || !isNew {
		return it, err
	}
	return it, a.interactorBody(it)
}

func (a *attacher) interactorBody(it *domain.Interactor) error {
	if !a.enter(it) {
		return nil
	}
	if err := a.annotated(&it.Annotated); err != nil {
		return err
	}
	var err error
	if it.Type, err = a.cv(it.Type); err != nil {
		return err
	}
	it.BioSource, err = a.bioSource(it.BioSource)
	return err
}

func (a *attacher) publication(p *domain.Publication) (*domain.Publication, error) {
	pub, isNew, err := resolveRoot(a, p, a.tx.st.publications, domain.EntityPublication)
	if err != nil || !isNew {
		return pub, err
	}
	return pub, a.publicationBody(pub)
}

func (a *attacher) publicationBody(p *domain.Publication) error {
	if !a.enter(p) {
		return nil
	}
	if err := a.annotated(&p.Annotated); err != nil {
		return err
	}
	a.curation(&p.Curation)
	var err error
	if p.Owner, err = a.institution(p.Owner); err != nil {
		return err
	}
	for i, e := range p.Experiments {
		exp, err := a.ownedExperiment(e)
		if err != nil {
			return err
		}
		p.Experiments[i] = exp
		if exp != nil && exp.Initialized() {
			exp.Publication = p
		}
	}
	return nil
}

// ownedExperiment resolves an experiment listed by its publication and
// descends into it unless it is a detached copy of a stored experiment.
func (a *attacher) ownedExperiment(p *domain.Experiment) (*domain.Experiment, error) {
	exp, isNew, err := resolveRoot(a, p, a.tx.st.experiments, domain.EntityExperiment)
	if err != nil || exp == nil || exp.IsStub() {
		return exp, err
	}
	if isNew || exp == p {
		return exp, a.experimentBody(exp)
	}
	return exp, nil
}

func (a *attacher) experiment(p *domain.Experiment) (*domain.Experiment, error) {
	exp, isNew, err := resolveRoot(a, p, a.tx.st.experiments, domain.EntityExperiment)
	if err != nil || !isNew {
		return exp, err
	}
	return exp, a.experimentBody(exp)
}

func (a *attacher) experimentBody(e *domain.Experiment) error {
	if !a.enter(e) {
		return nil
	}
	if err := a.annotated(&e.Annotated); err != nil {
		return err
	}
	var err error
	if e.Publication, err = a.publication(e.Publication); err != nil {
		return err
	}
	if p := e.Publication; p != nil && p.Initialized() && !slices.Contains(p.Experiments, e) {
		p.Experiments = append(p.Experiments, e)
	}
	if e.Owner, err = a.institution(e.Owner); err != nil {
		return err
	}
	if e.HostOrganism, err = a.bioSource(e.HostOrganism); err != nil {
		return err
	}
	if e.DetectionMethod, err = a.cv(e.DetectionMethod); err != nil {
		return err
	}
	if e.ParticipantIdentification, err = a.cv(e.ParticipantIdentification); err != nil {
		return err
	}
	for i, in := range e.Interactions {
		interaction, err := a.ownedInteraction(in)
		if err != nil {
			return err
		}
		e.Interactions[i] = interaction
		if interaction != nil && interaction.Initialized() && !slices.Contains(interaction.Experiments, e) {
			interaction.Experiments = append(interaction.Experiments, e)
		}
	}
	return nil
}

func (a *attacher) ownedInteraction(p *domain.Interaction) (*domain.Interaction, error) {
	in, isNew, err := resolveRoot(a, p, a.tx.st.interactions, domain.EntityInteraction)
	if err != nil || in == nil || in.IsStub() {
		return in, err
	}
	if isNew || in == p {
		return in, a.interactionBody(in)
	}
	return in, nil
}

func (a *attacher) interactionBody(in *domain.Interaction) error {
	if !a.enter(in) {
		return nil
	}
	if err := a.annotated(&in.Annotated); err != nil {
		return err
	}
	var err error
	if in.Owner, err = a.institution(in.Owner); err != nil {
		return err
	}
	if in.InteractionType, err = a.cv(in.InteractionType); err != nil {
		return err
	}
	for i, e := range in.Experiments {
		exp, err := a.experiment(e)
		if err != nil {
			return err
		}
		in.Experiments[i] = exp
		if exp != nil && exp.Initialized() && !slices.Contains(exp.Interactions, in) {
			exp.Interactions = append(exp.Interactions, in)
		}
	}
	for _, c := range in.Components {
		if err := a.component(c, in, nil); err != nil {
			return err
		}
	}
	return nil
}

func (a *attacher) complex(x *domain.Complex) error {
	if !a.enter(x) {
		return nil
	}
	if err := a.annotated(&x.Annotated); err != nil {
		return err
	}
	a.curation(&x.Curation)
	var err error
	if x.Organism, err = a.bioSource(x.Organism); err != nil {
		return err
	}
	if x.Type, err = a.cv(x.Type); err != nil {
		return err
	}
	if x.EvidenceType, err = a.cv(x.EvidenceType); err != nil {
		return err
	}
	for _, c := range x.Participants {
		if err := a.component(c, nil, x); err != nil {
			return err
		}
	}
	return nil
}

func (a *attacher) component(c *domain.Component, in *domain.Interaction, x *domain.Complex) error {
	if c == nil || c.IsStub() || !a.enter(c) {
		return nil
	}
	if err := a.stamp(&c.IntactObject); err != nil {
		return err
	}
	c.Interaction, c.Complex = in, x
	if err := a.annotated(&c.Annotated); err != nil {
		return err
	}
	var err error
	if c.Interactor, err = a.interactor(c.Interactor); err != nil {
		return err
	}
	if err := a.cvs(c.ExperimentalRoles); err != nil {
		return err
	}
	if c.BiologicalRole, err = a.cv(c.BiologicalRole); err != nil {
		return err
	}
	if c.ExpressedIn, err = a.bioSource(c.ExpressedIn); err != nil {
		return err
	}
	for _, f := range c.Features {
		if err := a.feature(f, c); err != nil {
			return err
		}
	}
	return nil
}

func (a *attacher) feature(f *domain.Feature, c *domain.Component) error {
	if f == nil || f.IsStub() || !a.enter(f) {
		return nil
	}
	if err := a.stamp(&f.IntactObject); err != nil {
		return err
	}
	f.Component = c
	if err := a.annotated(&f.Annotated); err != nil {
		return err
	}
	var err error
	if f.Type, err = a.cv(f.Type); err != nil {
		return err
	}
	for i := range f.Ranges {
		r := &f.Ranges[i]
		if r.FromFuzzyType, err = a.cv(r.FromFuzzyType); err != nil {
			return err
		}
		if r.ToFuzzyType, err = a.cv(r.ToFuzzyType); err != nil {
			return err
		}
	}
	if b := f.Binds; b != nil && !b.IsStub() && b.AC == "" {
		return a.stamp(&b.IntactObject)
	}
	return nil
}
