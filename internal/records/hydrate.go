package records

import (
	"cmp"
	"fmt"
	"maps"
	"slices"

	"intactcore/pkg/domain"
)

// Graph is a hydrated bundle: every root object by key. References to rows
// absent from the bundle resolve to one stub per accession.
type Graph struct {
	Institutions map[string]*domain.Institution
	CvObjects    map[string]*domain.CvObject
	BioSources   map[string]*domain.BioSource
	Interactors  map[string]*domain.Interactor
	Publications map[string]*domain.Publication
	Experiments  map[string]*domain.Experiment
	Interactions map[string]*domain.Interaction
	Complexes    map[string]*domain.Complex
	Users        map[string]*domain.User
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		Institutions: map[string]*domain.Institution{},
		CvObjects:    map[string]*domain.CvObject{},
		BioSources:   map[string]*domain.BioSource{},
		Interactors:  map[string]*domain.Interactor{},
		Publications: map[string]*domain.Publication{},
		Experiments:  map[string]*domain.Experiment{},
		Interactions: map[string]*domain.Interaction{},
		Complexes:    map[string]*domain.Complex{},
		Users:        map[string]*domain.User{},
	}
}

type resolver struct {
	g        *Graph
	stubs    map[string]any
	users    map[string]*domain.User
	features map[string]*domain.Feature
}

func resolve[T any](r *resolver, loaded map[string]*T, ac string, stub func(string) *T) *T {
	if ac == "" {
		return nil
	}
	if v, ok := loaded[ac]; ok {
		return v
	}
	if v, ok := r.stubs[ac]; ok {
		if t, ok := v.(*T); ok {
			return t
		}
	}
	s := stub(ac)
	r.stubs[ac] = s
	return s
}

func (r *resolver) cv(ac string) *domain.CvObject {
	return resolve(r, r.g.CvObjects, ac, func(ac string) *domain.CvObject {
		return &domain.CvObject{IntactObject: domain.Stub(ac)}
	})
}

func (r *resolver) cvs(acs []string) []*domain.CvObject {
	if len(acs) == 0 {
		return nil
	}
	out := make([]*domain.CvObject, len(acs))
	for i, ac := range acs {
		out[i] = r.cv(ac)
	}
	return out
}

func (r *resolver) institution(ac string) *domain.Institution {
	return resolve(r, r.g.Institutions, ac, func(ac string) *domain.Institution {
		return &domain.Institution{IntactObject: domain.Stub(ac)}
	})
}

func (r *resolver) bioSource(ac string) *domain.BioSource {
	return resolve(r, r.g.BioSources, ac, func(ac string) *domain.BioSource {
		return &domain.BioSource{IntactObject: domain.Stub(ac)}
	})
}

func (r *resolver) interactor(ac string) *domain.Interactor {
	return resolve(r, r.g.Interactors, ac, func(ac string) *domain.Interactor {
		return &domain.Interactor{IntactObject: domain.Stub(ac)}
	})
}

func (r *resolver) publication(ac string) *domain.Publication {
	return resolve(r, r.g.Publications, ac, func(ac string) *domain.Publication {
		return &domain.Publication{IntactObject: domain.Stub(ac)}
	})
}

func (r *resolver) experiment(ac string) *domain.Experiment {
	return resolve(r, r.g.Experiments, ac, func(ac string) *domain.Experiment {
		return &domain.Experiment{IntactObject: domain.Stub(ac)}
	})
}

func (r *resolver) interaction(ac string) *domain.Interaction {
	return resolve(r, r.g.Interactions, ac, func(ac string) *domain.Interaction {
		return &domain.Interaction{IntactObject: domain.Stub(ac)}
	})
}

func (r *resolver) feature(ac string) *domain.Feature {
	return resolve(r, r.features, ac, func(ac string) *domain.Feature {
		return &domain.Feature{IntactObject: domain.Stub(ac)}
	})
}

func (r *resolver) user(login string) *domain.User {
	if login == "" {
		return nil
	}
	if u, ok := r.g.Users[login]; ok {
		return u
	}
	if u, ok := r.users[login]; ok {
		return u
	}
	u := domain.UserStub(login)
	r.users[login] = u
	return u
}

func object(b Base) domain.IntactObject {
	return domain.IntactObject{AC: b.AC, Created: b.Created, Updated: b.Updated, Creator: b.Creator, Updator: b.Updator}
}

func (r *resolver) annotated(b Base) domain.Annotated {
	var a domain.Annotated
	for _, x := range b.Xrefs {
		a.Xrefs = append(a.Xrefs, domain.Xref{
			Database:    r.cv(x.DatabaseAC),
			Qualifier:   r.cv(x.QualifierAC),
			PrimaryID:   x.PrimaryID,
			SecondaryID: x.SecondaryID,
			Version:     x.Version,
		})
	}
	for _, al := range b.Aliases {
		a.Aliases = append(a.Aliases, domain.Alias{Type: r.cv(al.TypeAC), Name: al.Name})
	}
	for _, an := range b.Annotations {
		a.Annotations = append(a.Annotations, domain.Annotation{Topic: r.cv(an.TopicAC), Text: an.Text})
	}
	return a
}

func (r *resolver) curation(v CurationValue) domain.Curation {
	c := domain.Curation{
		Status:          domain.Status(v.Status),
		CurrentOwner:    r.user(v.OwnerLogin),
		CurrentReviewer: r.user(v.ReviewerLogin),
		OnHold:          v.OnHold,
		ToBeReviewed:    v.ToBeReviewed,
	}
	for _, e := range v.Events {
		c.Events = append(c.Events, &domain.LifecycleEvent{
			ID:    e.ID,
			Event: domain.EventType(e.Event),
			Who:   r.user(e.Who),
			When:  e.When,
			Note:  e.Note,
		})
	}
	return c
}

func put[T any](m map[string]*T, key string, v *T, entity domain.EntityType) error {
	if key == "" {
		return fmt.Errorf("%s row without key", entity)
	}
	if _, ok := m[key]; ok {
		return domain.DuplicateError{Entity: entity, ID: key}
	}
	m[key] = v
	return nil
}

// Hydrate rebuilds the object graph from b. Rows are first instantiated, then
// linked, so rows may reference each other in any order.
func Hydrate(b Bundle) (*Graph, error) {
	g := NewGraph()
	r := &resolver{g: g, stubs: map[string]any{}, users: map[string]*domain.User{}, features: map[string]*domain.Feature{}}

	for _, u := range b.Users {
		user := &domain.User{
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
			user.Roles = append(user.Roles, domain.Role(role))
		}
		if err := put(g.Users, u.Login, user, domain.EntityUser); err != nil {
			return nil, err
		}
	}
	for _, row := range b.CvObjects {
		if err := put(g.CvObjects, row.AC, &domain.CvObject{IntactObject: object(row.Base)}, domain.EntityCvObject); err != nil {
			return nil, err
		}
	}
	for _, row := range b.Institutions {
		if err := put(g.Institutions, row.AC, &domain.Institution{IntactObject: object(row.Base)}, domain.EntityInstitution); err != nil {
			return nil, err
		}
	}
	for _, row := range b.BioSources {
		if err := put(g.BioSources, row.AC, &domain.BioSource{IntactObject: object(row.Base)}, domain.EntityBioSource); err != nil {
			return nil, err
		}
	}
	for _, row := range b.Interactors {
		if err := put(g.Interactors, row.AC, &domain.Interactor{IntactObject: object(row.Base)}, domain.EntityInteractor); err != nil {
			return nil, err
		}
	}
	for _, row := range b.Publications {
		if err := put(g.Publications, row.AC, &domain.Publication{IntactObject: object(row.Base)}, domain.EntityPublication); err != nil {
			return nil, err
		}
	}
	for _, row := range b.Experiments {
		if err := put(g.Experiments, row.AC, &domain.Experiment{IntactObject: object(row.Base)}, domain.EntityExperiment); err != nil {
			return nil, err
		}
	}
	for _, row := range b.Interactions {
		if err := put(g.Interactions, row.AC, &domain.Interaction{IntactObject: object(row.Base)}, domain.EntityInteraction); err != nil {
			return nil, err
		}
	}
	for _, row := range b.Complexes {
		if err := put(g.Complexes, row.AC, &domain.Complex{IntactObject: object(row.Base)}, domain.EntityComplex); err != nil {
			return nil, err
		}
	}
	components := make(map[string]*domain.Component, len(b.Components))
	for _, row := range b.Components {
		if err := put(components, row.AC, &domain.Component{IntactObject: object(row.Base)}, "component"); err != nil {
			return nil, err
		}
	}
	for _, row := range b.Features {
		if err := put(r.features, row.AC, &domain.Feature{IntactObject: object(row.Base)}, "feature"); err != nil {
			return nil, err
		}
	}

	for _, row := range b.CvObjects {
		o := g.CvObjects[row.AC]
		o.Annotated = r.annotated(row.Base)
		o.Class = domain.CvClass(row.Class)
		o.Identifier = row.Identifier
		o.ShortLabel = row.ShortLabel
		o.FullName = row.FullName
		for _, pac := range row.ParentACs {
			parent := r.cv(pac)
			o.Parents = append(o.Parents, parent)
			if parent.Initialized() {
				parent.Children = append(parent.Children, o)
			}
		}
	}
	for _, row := range b.Institutions {
		o := g.Institutions[row.AC]
		o.Annotated = r.annotated(row.Base)
		o.ShortLabel = row.ShortLabel
		o.FullName = row.FullName
		o.URL = row.URL
		o.PostalAddress = row.PostalAddress
	}
	for _, row := range b.BioSources {
		o := g.BioSources[row.AC]
		o.Annotated = r.annotated(row.Base)
		o.ShortLabel = row.ShortLabel
		o.FullName = row.FullName
		o.TaxID = row.TaxID
		o.CellType = r.cv(row.CellTypeAC)
		o.Tissue = r.cv(row.TissueAC)
	}
	for _, row := range b.Interactors {
		o := g.Interactors[row.AC]
		o.Annotated = r.annotated(row.Base)
		o.ShortLabel = row.ShortLabel
		o.FullName = row.FullName
		o.Type = r.cv(row.TypeAC)
		o.BioSource = r.bioSource(row.BioSourceAC)
		o.Sequence = row.Sequence
	}
	for _, row := range b.Publications {
		o := g.Publications[row.AC]
		o.Annotated = r.annotated(row.Base)
		o.Curation = r.curation(row.CurationValue)
		o.ShortLabel = row.ShortLabel
		o.FullName = row.FullName
		o.Owner = r.institution(row.OwnerAC)
		for _, ac := range row.ExperimentACs {
			o.Experiments = append(o.Experiments, r.experiment(ac))
		}
	}
	for _, row := range b.Experiments {
		o := g.Experiments[row.AC]
		o.Annotated = r.annotated(row.Base)
		o.ShortLabel = row.ShortLabel
		o.FullName = row.FullName
		o.Publication = r.publication(row.PublicationAC)
		o.Owner = r.institution(row.OwnerAC)
		o.HostOrganism = r.bioSource(row.HostOrganismAC)
		o.DetectionMethod = r.cv(row.DetectionMethodAC)
		o.ParticipantIdentification = r.cv(row.ParticipantIdentificationAC)
		for _, ac := range row.InteractionACs {
			o.Interactions = append(o.Interactions, r.interaction(ac))
		}
	}
	for _, row := range b.Interactions {
		o := g.Interactions[row.AC]
		o.Annotated = r.annotated(row.Base)
		o.ShortLabel = row.ShortLabel
		o.Owner = r.institution(row.OwnerAC)
		o.InteractionType = r.cv(row.InteractionTypeAC)
		for _, ac := range row.ExperimentACs {
			o.Experiments = append(o.Experiments, r.experiment(ac))
		}
		if row.KD != nil {
			kd := *row.KD
			o.KD = &kd
		}
		o.Negative = row.Negative
	}
	for _, row := range b.Complexes {
		o := g.Complexes[row.AC]
		o.Annotated = r.annotated(row.Base)
		o.Curation = r.curation(row.CurationValue)
		o.ShortLabel = row.ShortLabel
		o.ComplexAC = row.ComplexAC
		o.Version = row.Version
		o.Organism = r.bioSource(row.OrganismAC)
		o.Type = r.cv(row.TypeAC)
		o.EvidenceType = r.cv(row.EvidenceTypeAC)
	}

	rows := slices.Clone(b.Components)
	slices.SortStableFunc(rows, func(x, y ComponentRecord) int { return cmp.Compare(x.Rank, y.Rank) })
	for _, row := range rows {
		o := components[row.AC]
		o.Annotated = r.annotated(row.Base)
		o.Interactor = r.interactor(row.InteractorAC)
		o.ExperimentalRoles = r.cvs(row.ExperimentalRoleACs)
		o.BiologicalRole = r.cv(row.BiologicalRoleAC)
		o.ExpressedIn = r.bioSource(row.ExpressedInAC)
		o.Stoichiometry = row.Stoichiometry
		switch {
		case row.InteractionAC != "" && row.ParentComplexAC != "":
			return nil, fmt.Errorf("component %s belongs to interaction %s and complex %s", row.AC, row.InteractionAC, row.ParentComplexAC)
		case row.InteractionAC != "":
			parent, ok := g.Interactions[row.InteractionAC]
			if !ok {
				return nil, fmt.Errorf("component %s: %w", row.AC, domain.NotFoundError{Entity: domain.EntityInteraction, ID: row.InteractionAC})
			}
			parent.AddComponent(o)
		case row.ParentComplexAC != "":
			parent, ok := g.Complexes[row.ParentComplexAC]
			if !ok {
				return nil, fmt.Errorf("component %s: %w", row.AC, domain.NotFoundError{Entity: domain.EntityComplex, ID: row.ParentComplexAC})
			}
			parent.AddParticipant(o)
		default:
			return nil, fmt.Errorf("component %s has no interaction or complex", row.AC)
		}
	}

	frows := slices.Clone(b.Features)
	slices.SortStableFunc(frows, func(x, y FeatureRecord) int { return cmp.Compare(x.Rank, y.Rank) })
	for _, row := range frows {
		o := r.features[row.AC]
		parent, ok := components[row.ComponentAC]
		if !ok {
			return nil, fmt.Errorf("feature %s: component %s: %w", row.AC, row.ComponentAC, domain.ErrNotFound)
		}
		o.Annotated = r.annotated(row.Base)
		o.ShortLabel = row.ShortLabel
		o.Type = r.cv(row.TypeAC)
		o.Binds = r.feature(row.BindsAC)
		for _, rg := range row.Ranges {
			o.Ranges = append(o.Ranges, domain.Range{
				FromFuzzyType: r.cv(rg.FromFuzzyAC),
				ToFuzzyType:   r.cv(rg.ToFuzzyAC),
				FromStart:     rg.FromStart,
				FromEnd:       rg.FromEnd,
				ToStart:       rg.ToStart,
				ToEnd:         rg.ToEnd,
				Undetermined:  rg.Undetermined,
			})
		}
		parent.AddFeature(o)
	}
	return g, nil
}
