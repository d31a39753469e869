package records

import (
	"maps"
	"slices"

	"intactcore/internal/graph"
	"intactcore/pkg/domain"
)

// acOf returns the accession of p or "" for nil.
func acOf[T any, P interface {
	*T
	domain.Identifiable
}](p P) string {
	if p == nil {
		return ""
	}
	return p.Identity().AC
}

func acsOf[T any, P interface {
	*T
	domain.Identifiable
}](ps []P) []string {
	if len(ps) == 0 {
		return nil
	}
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		if ac := acOf(p); ac != "" {
			out = append(out, ac)
		}
	}
	return out
}

func loginOf(u *domain.User) string {
	if u == nil {
		return ""
	}
	return u.Login
}

func base(o domain.IntactObject, a domain.Annotated) Base {
	b := Base{AC: o.AC, Created: o.Created, Updated: o.Updated, Creator: o.Creator, Updator: o.Updator}
	for _, x := range a.Xrefs {
		b.Xrefs = append(b.Xrefs, XrefValue{
			DatabaseAC:  acOf(x.Database),
			QualifierAC: acOf(x.Qualifier),
			PrimaryID:   x.PrimaryID,
			SecondaryID: x.SecondaryID,
			Version:     x.Version,
		})
	}
	for _, al := range a.Aliases {
		b.Aliases = append(b.Aliases, AliasValue{TypeAC: acOf(al.Type), Name: al.Name})
	}
	for _, an := range a.Annotations {
		b.Annotations = append(b.Annotations, AnnotationValue{TopicAC: acOf(an.Topic), Text: an.Text})
	}
	return b
}

func curation(c domain.Curation) CurationValue {
	v := CurationValue{
		Status:        string(c.Status),
		OwnerLogin:    loginOf(c.CurrentOwner),
		ReviewerLogin: loginOf(c.CurrentReviewer),
		OnHold:        c.OnHold,
		ToBeReviewed:  c.ToBeReviewed,
	}
	for _, e := range c.Events {
		if e == nil {
			continue
		}
		v.Events = append(v.Events, EventValue{ID: e.ID, Event: string(e.Event), Who: loginOf(e.Who), When: e.When, Note: e.Note})
	}
	return v
}

// FromInstitution flattens an institution.
func FromInstitution(o *domain.Institution) InstitutionRecord {
	return InstitutionRecord{
		Base:          base(o.IntactObject, o.Annotated),
		ShortLabel:    o.ShortLabel,
		FullName:      o.FullName,
		URL:           o.URL,
		PostalAddress: o.PostalAddress,
	}
}

// FromCvObject flattens a term. Only parents are stored; children are derived.
func FromCvObject(o *domain.CvObject) CvObjectRecord {
	return CvObjectRecord{
		Base:       base(o.IntactObject, o.Annotated),
		Class:      string(o.Class),
		Identifier: o.Identifier,
		ShortLabel: o.ShortLabel,
		FullName:   o.FullName,
		ParentACs:  acsOf(o.Parents),
	}
}

// FromBioSource flattens a biosource.
func FromBioSource(o *domain.BioSource) BioSourceRecord {
	return BioSourceRecord{
		Base:       base(o.IntactObject, o.Annotated),
		ShortLabel: o.ShortLabel,
		FullName:   o.FullName,
		TaxID:      o.TaxID,
		CellTypeAC: acOf(o.CellType),
		TissueAC:   acOf(o.Tissue),
	}
}

// FromInteractor flattens an interactor.
func FromInteractor(o *domain.Interactor) InteractorRecord {
	return InteractorRecord{
		Base:        base(o.IntactObject, o.Annotated),
		ShortLabel:  o.ShortLabel,
		FullName:    o.FullName,
		TypeAC:      acOf(o.Type),
		BioSourceAC: acOf(o.BioSource),
		Sequence:    o.Sequence,
	}
}

// FromPublication flattens a publication without its experiments.
func FromPublication(o *domain.Publication) PublicationRecord {
	return PublicationRecord{
		Base:          base(o.IntactObject, o.Annotated),
		CurationValue: curation(o.Curation),
		ShortLabel:    o.ShortLabel,
		FullName:      o.FullName,
		OwnerAC:       acOf(o.Owner),
		ExperimentACs: acsOf(o.Experiments),
	}
}

// FromExperiment flattens an experiment without its interactions.
func FromExperiment(o *domain.Experiment) ExperimentRecord {
	return ExperimentRecord{
		Base:                        base(o.IntactObject, o.Annotated),
		ShortLabel:                  o.ShortLabel,
		FullName:                    o.FullName,
		PublicationAC:               acOf(o.Publication),
		OwnerAC:                     acOf(o.Owner),
		HostOrganismAC:              acOf(o.HostOrganism),
		DetectionMethodAC:           acOf(o.DetectionMethod),
		ParticipantIdentificationAC: acOf(o.ParticipantIdentification),
		InteractionACs:              acsOf(o.Interactions),
	}
}

// FromInteraction flattens an interaction without its components.
func FromInteraction(o *domain.Interaction) InteractionRecord {
	r := InteractionRecord{
		Base:              base(o.IntactObject, o.Annotated),
		ShortLabel:        o.ShortLabel,
		OwnerAC:           acOf(o.Owner),
		InteractionTypeAC: acOf(o.InteractionType),
		ExperimentACs:     acsOf(o.Experiments),
		Negative:          o.Negative,
	}
	if o.KD != nil {
		kd := *o.KD
		r.KD = &kd
	}
	return r
}

// FromComponent flattens a participant at the given rank of its parent.
func FromComponent(o *domain.Component, rank int) ComponentRecord {
	return ComponentRecord{
		Base:                base(o.IntactObject, o.Annotated),
		InteractionAC:       acOf(o.Interaction),
		ParentComplexAC:     acOf(o.Complex),
		Rank:                rank,
		InteractorAC:        acOf(o.Interactor),
		ExperimentalRoleACs: acsOf(o.ExperimentalRoles),
		BiologicalRoleAC:    acOf(o.BiologicalRole),
		ExpressedInAC:       acOf(o.ExpressedIn),
		Stoichiometry:       o.Stoichiometry,
	}
}

// FromFeature flattens a feature at the given rank of its component.
func FromFeature(o *domain.Feature, rank int) FeatureRecord {
	r := FeatureRecord{
		Base:        base(o.IntactObject, o.Annotated),
		ComponentAC: acOf(o.Component),
		Rank:        rank,
		ShortLabel:  o.ShortLabel,
		TypeAC:      acOf(o.Type),
		BindsAC:     acOf(o.Binds),
	}
	for _, rg := range o.Ranges {
		r.Ranges = append(r.Ranges, RangeValue{
			FromFuzzyAC:  acOf(rg.FromFuzzyType),
			ToFuzzyAC:    acOf(rg.ToFuzzyType),
			FromStart:    rg.FromStart,
			FromEnd:      rg.FromEnd,
			ToStart:      rg.ToStart,
			ToEnd:        rg.ToEnd,
			Undetermined: rg.Undetermined,
		})
	}
	return r
}

// FromComplex flattens a complex without its participants.
func FromComplex(o *domain.Complex) ComplexRecord {
	return ComplexRecord{
		Base:           base(o.IntactObject, o.Annotated),
		CurationValue:  curation(o.Curation),
		ShortLabel:     o.ShortLabel,
		ComplexAC:      o.ComplexAC,
		Version:        o.Version,
		OrganismAC:     acOf(o.Organism),
		TypeAC:         acOf(o.Type),
		EvidenceTypeAC: acOf(o.EvidenceType),
	}
}

// FromUser flattens a user.
func FromUser(u *domain.User) UserRecord {
	r := UserRecord{
		Login:       u.Login,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Email:       u.Email,
		Disabled:    u.Disabled,
		Preferences: maps.Clone(u.Preferences),
		Created:     u.Created,
		Updated:     u.Updated,
	}
	for _, role := range u.Roles {
		r.Roles = append(r.Roles, string(role))
	}
	return r
}

// Bundler is a graph visitor that flattens every visited object into a Bundle.
// Components are emitted with their interaction or complex and features with
// their component, so ranks follow the owner's order.
type Bundler struct {
	Bundle Bundle
}

var _ graph.Visitor = (*Bundler)(nil)

func (b *Bundler) VisitInstitution(o *domain.Institution) {
	b.Bundle.Institutions = append(b.Bundle.Institutions, FromInstitution(o))
}

func (b *Bundler) VisitCvObject(o *domain.CvObject) {
	b.Bundle.CvObjects = append(b.Bundle.CvObjects, FromCvObject(o))
}

func (b *Bundler) VisitBioSource(o *domain.BioSource) {
	b.Bundle.BioSources = append(b.Bundle.BioSources, FromBioSource(o))
}

func (b *Bundler) VisitInteractor(o *domain.Interactor) {
	b.Bundle.Interactors = append(b.Bundle.Interactors, FromInteractor(o))
}

func (b *Bundler) VisitPublication(o *domain.Publication) {
	b.Bundle.Publications = append(b.Bundle.Publications, FromPublication(o))
}

func (b *Bundler) VisitExperiment(o *domain.Experiment) {
	b.Bundle.Experiments = append(b.Bundle.Experiments, FromExperiment(o))
}

func (b *Bundler) VisitInteraction(o *domain.Interaction) {
	b.Bundle.Interactions = append(b.Bundle.Interactions, FromInteraction(o))
	b.components(o.Components)
}

func (b *Bundler) VisitComplex(o *domain.Complex) {
	b.Bundle.Complexes = append(b.Bundle.Complexes, FromComplex(o))
	b.components(o.Participants)
}

func (b *Bundler) components(cs []*domain.Component) {
	comps, feats := Owned(cs)
	b.Bundle.Components = append(b.Bundle.Components, comps...)
	b.Bundle.Features = append(b.Bundle.Features, feats...)
}

// Owned flattens the participants of one interaction or complex and their
// features, ranked by position. Stubs are skipped.
func Owned(cs []*domain.Component) ([]ComponentRecord, []FeatureRecord) {
	var comps []ComponentRecord
	var feats []FeatureRecord
	for i, c := range cs {
		if c == nil || c.IsStub() {
			continue
		}
		comps = append(comps, FromComponent(c, i))
		for j, f := range c.Features {
			if f == nil || f.IsStub() {
				continue
			}
			feats = append(feats, FromFeature(f, j))
		}
	}
	return comps, feats
}

func (b *Bundler) VisitComponent(*domain.Component)           {}
func (b *Bundler) VisitFeature(*domain.Feature)               {}
func (b *Bundler) VisitLifecycleEvent(*domain.LifecycleEvent) {}

func (b *Bundler) VisitUser(u *domain.User) {
	b.Bundle.Users = append(b.Bundle.Users, FromUser(u))
}

// Export flattens everything reachable from the roots, sorted.
func Export(roots ...any) Bundle {
	b := &Bundler{}
	t := graph.NewTraverser()
	for _, r := range roots {
		t.Traverse(r, b)
	}
	b.Bundle.Sort()
	return b.Bundle
}

// Flatten exports the complete content of a view.
func Flatten(view domain.TransactionView) Bundle {
	var roots []any
	roots = appendRoots(roots, view.ListInstitutions())
	roots = appendRoots(roots, view.ListCvObjects())
	roots = appendRoots(roots, view.ListBioSources())
	roots = appendRoots(roots, view.ListInteractors())
	roots = appendRoots(roots, view.ListPublications())
	roots = appendRoots(roots, view.ListExperiments())
	roots = appendRoots(roots, view.ListInteractions())
	roots = appendRoots(roots, view.ListComplexes())
	roots = appendRoots(roots, view.ListUsers())
	return Export(roots...)
}

func appendRoots[T any](roots []any, items []*T) []any {
	roots = slices.Grow(roots, len(items))
	for _, it := range items {
		roots = append(roots, it)
	}
	return roots
}
