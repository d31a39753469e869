package memory

import (
	"cmp"
	"maps"
	"slices"

	"intactcore/internal/accession"
	"intactcore/internal/graph"
	"intactcore/internal/records"
	"intactcore/pkg/domain"
)

// state holds every root object by key. Components and features are reached
// through their interaction or complex.
type state struct {
	institutions map[string]*domain.Institution
	cvs          map[string]*domain.CvObject
	biosources   map[string]*domain.BioSource
	interactors  map[string]*domain.Interactor
	publications map[string]*domain.Publication
	experiments  map[string]*domain.Experiment
	interactions map[string]*domain.Interaction
	complexes    map[string]*domain.Complex
	users        map[string]*domain.User
}

func newState() *state {
	return &state{
		institutions: map[string]*domain.Institution{},
		cvs:          map[string]*domain.CvObject{},
		biosources:   map[string]*domain.BioSource{},
		interactors:  map[string]*domain.Interactor{},
		publications: map[string]*domain.Publication{},
		experiments:  map[string]*domain.Experiment{},
		interactions: map[string]*domain.Interaction{},
		complexes:    map[string]*domain.Complex{},
		users:        map[string]*domain.User{},
	}
}

func stateFromGraph(g *records.Graph) *state {
	return &state{
		institutions: g.Institutions,
		cvs:          g.CvObjects,
		biosources:   g.BioSources,
		interactors:  g.Interactors,
		publications: g.Publications,
		experiments:  g.Experiments,
		interactions: g.Interactions,
		complexes:    g.Complexes,
		users:        g.Users,
	}
}

func cloneMap[T any](m map[string]*T, fn func(*T) *T) map[string]*T {
	out := make(map[string]*T, len(m))
	for k, v := range m {
		out[k] = fn(v)
	}
	return out
}

// clone deep-copies the state through one cloner, so every reference in the
// copy points at the copied instance.
func (s *state) clone() *state {
	c := graph.NewCloner(graph.CloneCvTree())
	return &state{
		cvs:          cloneMap(s.cvs, c.CvObject),
		users:        cloneMap(s.users, c.User),
		institutions: cloneMap(s.institutions, c.Institution),
		biosources:   cloneMap(s.biosources, c.BioSource),
		interactors:  cloneMap(s.interactors, c.Interactor),
		publications: cloneMap(s.publications, c.Publication),
		experiments:  cloneMap(s.experiments, c.Experiment),
		interactions: cloneMap(s.interactions, c.Interaction),
		complexes:    cloneMap(s.complexes, c.Complex),
	}
}

// taken reports the type of the root holding ac, if any.
func (s *state) taken(ac string) (domain.EntityType, bool) {
	switch {
	case s.institutions[ac] != nil:
		return domain.EntityInstitution, true
	case s.cvs[ac] != nil:
		return domain.EntityCvObject, true
	case s.biosources[ac] != nil:
		return domain.EntityBioSource, true
	case s.interactors[ac] != nil:
		return domain.EntityInteractor, true
	case s.publications[ac] != nil:
		return domain.EntityPublication, true
	case s.experiments[ac] != nil:
		return domain.EntityExperiment, true
	case s.interactions[ac] != nil:
		return domain.EntityInteraction, true
	case s.complexes[ac] != nil:
		return domain.EntityComplex, true
	}
	return "", false
}

// compareAC orders accessions by prefix, then numerically.
func compareAC(a, b string) int {
	pa, na, errA := accession.Parse(a)
	pb, nb, errB := accession.Parse(b)
	if errA != nil || errB != nil {
		return cmp.Compare(a, b)
	}
	return cmp.Or(cmp.Compare(pa, pb), cmp.Compare(na, nb))
}

func sorted[T any](m map[string]*T) []*T {
	keys := slices.SortedFunc(maps.Keys(m), compareAC)
	out := make([]*T, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

func find[T any](m map[string]*T, key string) (*T, bool) {
	v, ok := m[key]
	return v, ok
}

// view is the read-only face of a state.
type view struct {
	st *state
}

var _ domain.TransactionView = view{}

func (v view) FindInstitution(ac string) (*domain.Institution, bool) {
	return find(v.st.institutions, ac)
}
func (v view) FindCvObject(ac string) (*domain.CvObject, bool) { return find(v.st.cvs, ac) }
func (v view) FindBioSource(ac string) (*domain.BioSource, bool) {
	return find(v.st.biosources, ac)
}
func (v view) FindInteractor(ac string) (*domain.Interactor, bool) {
	return find(v.st.interactors, ac)
}
func (v view) FindPublication(ac string) (*domain.Publication, bool) {
	return find(v.st.publications, ac)
}
func (v view) FindExperiment(ac string) (*domain.Experiment, bool) {
	return find(v.st.experiments, ac)
}
func (v view) FindInteraction(ac string) (*domain.Interaction, bool) {
	return find(v.st.interactions, ac)
}
func (v view) FindComplex(ac string) (*domain.Complex, bool) { return find(v.st.complexes, ac) }
func (v view) FindUser(login string) (*domain.User, bool)   { return find(v.st.users, login) }

// FindCvByIdentifier returns the term of class with the given identifier. When
// several match, the lowest accession wins.
func (v view) FindCvByIdentifier(class domain.CvClass, identifier string) (*domain.CvObject, bool) {
	var best *domain.CvObject
	for _, cv := range v.st.cvs {
		if cv.Class != class || cv.Identifier != identifier {
			continue
		}
		if best == nil || compareAC(cv.AC, best.AC) < 0 {
			best = cv
		}
	}
	return best, best != nil
}

func (v view) ListInstitutions() []*domain.Institution { return sorted(v.st.institutions) }
func (v view) ListCvObjects() []*domain.CvObject       { return sorted(v.st.cvs) }
func (v view) ListBioSources() []*domain.BioSource     { return sorted(v.st.biosources) }
func (v view) ListInteractors() []*domain.Interactor   { return sorted(v.st.interactors) }
func (v view) ListPublications() []*domain.Publication { return sorted(v.st.publications) }
func (v view) ListExperiments() []*domain.Experiment   { return sorted(v.st.experiments) }
func (v view) ListInteractions() []*domain.Interaction { return sorted(v.st.interactions) }
func (v view) ListComplexes() []*domain.Complex        { return sorted(v.st.complexes) }

func (v view) ListUsers() []*domain.User {
	keys := slices.Sorted(maps.Keys(v.st.users))
	out := make([]*domain.User, 0, len(keys))
	for _, k := range keys {
		out = append(out, v.st.users[k])
	}
	return out
}

// maxNumbers returns the highest accession number minted with prefix and the
// highest complex accession number found in the state.
func (s *state) maxNumbers(prefix string) (acMax, cpxMax int64) {
	track := func(ac string) {
		if p, n, err := accession.Parse(ac); err == nil && p == prefix && n > acMax {
			acMax = n
		}
	}
	each := func(o *domain.IntactObject) { track(o.AC) }
	for _, o := range s.institutions {
		each(&o.IntactObject)
	}
	for _, o := range s.cvs {
		each(&o.IntactObject)
	}
	for _, o := range s.biosources {
		each(&o.IntactObject)
	}
	for _, o := range s.interactors {
		each(&o.IntactObject)
	}
	for _, o := range s.publications {
		each(&o.IntactObject)
	}
	for _, o := range s.experiments {
		each(&o.IntactObject)
	}
	components := func(cs []*domain.Component) {
		for _, c := range cs {
			if c == nil {
				continue
			}
			each(&c.IntactObject)
			for _, f := range c.Features {
				if f != nil {
					each(&f.IntactObject)
				}
			}
		}
	}
	for _, o := range s.interactions {
		each(&o.IntactObject)
		components(o.Components)
	}
	for _, o := range s.complexes {
		each(&o.IntactObject)
		components(o.Participants)
		if p, n, err := accession.Parse(o.ComplexAC); err == nil && p == accession.ComplexPrefix && n > cpxMax {
			cpxMax = n
		}
	}
	return acMax, cpxMax
}
