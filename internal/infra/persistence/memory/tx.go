package memory

import (
	"context"
	"errors"
	"slices"
	"time"

	"intactcore/internal/graph"
	"intactcore/pkg/domain"
)

var _ domain.Transaction = (*transaction)(nil)

// transaction mutates a private copy of the store state. Finders and lists
// are served by the embedded view over that copy.
type transaction struct {
	view
	ctx     context.Context
	store   *Store
	changes []domain.Change
	now     time.Time
	hooks   []func()
}

func (tx *transaction) record(c domain.Change) {
	tx.changes = append(tx.changes, c)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() domain.TransactionView { return tx.view }

// AfterCommit registers fn to run once the transaction is durable.
func (tx *transaction) AfterCommit(fn func()) {
	if fn != nil {
		tx.hooks = append(tx.hooks, fn)
	}
}

type rootPtr[T any] interface {
	*T
	domain.Identifiable
}

// shallow copies the struct behind p. The event list of releasables is
// copied too so the lifecycle history recorded in Before stays intact.
func shallow[T any, P rootPtr[T]](p P) P {
	v := *p
	before := P(&v)
	if r, ok := any(before).(domain.Releasable); ok {
		c := r.CurationState()
		c.Events = slices.Clone(c.Events)
	}
	return before
}

func create[T any, P rootPtr[T]](tx *transaction, p P, m map[string]P, entity domain.EntityType,
	clone func(*graph.Cloner, P) P, body func(*attacher, P) error) (P, error) {
	if p == nil {
		return nil, errors.New("create " + string(entity) + ": nil object")
	}
	if p.Identity().IsStub() {
		return nil, errors.New("create " + string(entity) + ": cannot create a stub")
	}
	if ac := p.Identity().AC; ac != "" {
		if _, ok := m[ac]; ok {
			return nil, domain.DuplicateError{Entity: entity, ID: ac}
		}
	}
	a := tx.attacher()
	cp, _, err := resolveRoot(a, clone(graph.NewCloner(), p), m, entity)
	if err != nil {
		return nil, err
	}
	if err := body(a, cp); err != nil {
		return nil, err
	}
	return cp, nil
}

func update[T any, P rootPtr[T]](tx *transaction, ac string, m map[string]P, entity domain.EntityType,
	mutator func(P) error, body func(*attacher, P) error) (P, error) {
	cur, ok := m[ac]
	if !ok {
		return nil, domain.NotFoundError{Entity: entity, ID: ac}
	}
	before := shallow(cur)
	if err := mutator(cur); err != nil {
		return nil, err
	}
	obj := cur.Identity()
	obj.AC = ac
	obj.Updated = tx.now
	if err := body(tx.attacher(), cur); err != nil {
		return nil, err
	}
	tx.record(domain.Change{Entity: entity, Action: domain.ActionUpdate, AC: ac, Before: before, After: cur})
	return cur, nil
}

// touch records an update of a root modified as a side effect of a delete.
func touch[T any, P rootPtr[T]](tx *transaction, p P, entity domain.EntityType, edit func(P)) {
	before := shallow(p)
	edit(p)
	p.Identity().Updated = tx.now
	tx.record(domain.Change{Entity: entity, Action: domain.ActionUpdate, AC: p.Identity().AC, Before: before, After: p})
}

func remove[T any, P rootPtr[T]](tx *transaction, ac string, m map[string]P, entity domain.EntityType) (P, error) {
	cur, ok := m[ac]
	if !ok {
		return nil, domain.NotFoundError{Entity: entity, ID: ac}
	}
	delete(m, ac)
	tx.record(domain.Change{Entity: entity, Action: domain.ActionDelete, AC: ac, Before: cur})
	return cur, nil
}

func without[T comparable](list []T, v T) []T {
	return slices.DeleteFunc(list, func(x T) bool { return x == v })
}

// CreateInstitution stores a copy of in and returns the stored instance.
func (tx *transaction) CreateInstitution(in *domain.Institution) (*domain.Institution, error) {
	return create(tx, in, tx.st.institutions, domain.EntityInstitution, (*graph.Cloner).Institution, (*attacher).institutionBody)
}

// UpdateInstitution applies mutator to the stored institution.
func (tx *transaction) UpdateInstitution(ac string, mutator func(*domain.Institution) error) (*domain.Institution, error) {
	return update(tx, ac, tx.st.institutions, domain.EntityInstitution, mutator, (*attacher).institutionBody)
}

// DeleteInstitution removes the institution. References to it are left for the rules to report.
func (tx *transaction) DeleteInstitution(ac string) error {
	_, err := remove(tx, ac, tx.st.institutions, domain.EntityInstitution)
	return err
}

// CreateCvObject stores a copy of cv and links it to its parents and children.
func (tx *transaction) CreateCvObject(cv *domain.CvObject) (*domain.CvObject, error) {
	return create(tx, cv, tx.st.cvs, domain.EntityCvObject, (*graph.Cloner).CvObject, (*attacher).cvBody)
}

// UpdateCvObject applies mutator to the stored term.
func (tx *transaction) UpdateCvObject(ac string, mutator func(*domain.CvObject) error) (*domain.CvObject, error) {
	return update(tx, ac, tx.st.cvs, domain.EntityCvObject, mutator, (*attacher).cvBody)
}

// DeleteCvObject removes the term and unlinks it from its parents and children.
func (tx *transaction) DeleteCvObject(ac string) error {
	cv, err := remove(tx, ac, tx.st.cvs, domain.EntityCvObject)
	if err != nil {
		return err
	}
	for _, p := range cv.Parents {
		if cur, ok := tx.st.cvs[p.AC]; ok && cur == p {
			touch(tx, p, domain.EntityCvObject, func(p *domain.CvObject) { p.Children = without(p.Children, cv) })
		}
	}
	for _, c := range cv.Children {
		if cur, ok := tx.st.cvs[c.AC]; ok && cur == c {
			touch(tx, c, domain.EntityCvObject, func(c *domain.CvObject) { c.Parents = without(c.Parents, cv) })
		}
	}
	return nil
}

// CreateBioSource stores a copy of bs.
func (tx *transaction) CreateBioSource(bs *domain.BioSource) (*domain.BioSource, error) {
	return create(tx, bs, tx.st.biosources, domain.EntityBioSource, (*graph.Cloner).BioSource, (*attacher).bioSourceBody)
}

// UpdateBioSource applies mutator to the stored organism.
func (tx *transaction) UpdateBioSource(ac string, mutator func(*domain.BioSource) error) (*domain.BioSource, error) {
	return update(tx, ac, tx.st.biosources, domain.EntityBioSource, mutator, (*attacher).bioSourceBody)
}

// DeleteBioSource removes the organism.
func (tx *transaction) DeleteBioSource(ac string) error {
	_, err := remove(tx, ac, tx.st.biosources, domain.EntityBioSource)
	return err
}

// CreateInteractor stores a copy of it.
func (tx *transaction) CreateInteractor(it *domain.Interactor) (*domain.Interactor, error) {
	return create(tx, it, tx.st.interactors, domain.EntityInteractor, (*graph.Cloner).Interactor, (*attacher).interactorBody)
}

// UpdateInteractor applies mutator to the stored interactor.
func (tx *transaction) UpdateInteractor(ac string, mutator func(*domain.Interactor) error) (*domain.Interactor, error) {
	return update(tx, ac, tx.st.interactors, domain.EntityInteractor, mutator, (*attacher).interactorBody)
}

// DeleteInteractor removes the interactor.
func (tx *transaction) DeleteInteractor(ac string) error {
	_, err := remove(tx, ac, tx.st.interactors, domain.EntityInteractor)
	return err
}

// CreatePublication stores a copy of p together with the experiments,
// interactions, participants and features it owns.
func (tx *transaction) CreatePublication(p *domain.Publication) (*domain.Publication, error) {
	return create(tx, p, tx.st.publications, domain.EntityPublication, (*graph.Cloner).Publication, (*attacher).publicationBody)
}

// UpdatePublication applies mutator to the stored publication.
func (tx *transaction) UpdatePublication(ac string, mutator func(*domain.Publication) error) (*domain.Publication, error) {
	return update(tx, ac, tx.st.publications, domain.EntityPublication, mutator, (*attacher).publicationBody)
}

// DeletePublication removes the publication and its experiments. Interactions
// left without any experiment are removed as well.
func (tx *transaction) DeletePublication(ac string) error {
	p, ok := tx.st.publications[ac]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityPublication, ID: ac}
	}
	for _, e := range p.Experiments {
		if cur, ok := tx.st.experiments[e.AC]; !ok || cur != e {
			continue
		}
		delete(tx.st.experiments, e.AC)
		tx.record(domain.Change{Entity: domain.EntityExperiment, Action: domain.ActionDelete, AC: e.AC, Before: e})
		for _, in := range e.Interactions {
			if cur, ok := tx.st.interactions[in.AC]; !ok || cur != in {
				continue
			}
			in.Experiments = without(in.Experiments, e)
			if len(in.Experiments) == 0 {
				delete(tx.st.interactions, in.AC)
				tx.record(domain.Change{Entity: domain.EntityInteraction, Action: domain.ActionDelete, AC: in.AC, Before: in})
			}
		}
	}
	_, err := remove(tx, ac, tx.st.publications, domain.EntityPublication)
	return err
}

// CreateExperiment stores a copy of e and adds it to its publication.
func (tx *transaction) CreateExperiment(e *domain.Experiment) (*domain.Experiment, error) {
	return create(tx, e, tx.st.experiments, domain.EntityExperiment, (*graph.Cloner).Experiment, (*attacher).experimentBody)
}

// UpdateExperiment applies mutator to the stored experiment.
func (tx *transaction) UpdateExperiment(ac string, mutator func(*domain.Experiment) error) (*domain.Experiment, error) {
	return update(tx, ac, tx.st.experiments, domain.EntityExperiment, mutator, (*attacher).experimentBody)
}

// DeleteExperiment removes the experiment from the store, its publication
// and its interactions.
func (tx *transaction) DeleteExperiment(ac string) error {
	e, err := remove(tx, ac, tx.st.experiments, domain.EntityExperiment)
	if err != nil {
		return err
	}
	if p := e.Publication; p != nil {
		if cur, ok := tx.st.publications[p.AC]; ok && cur == p {
			touch(tx, p, domain.EntityPublication, func(p *domain.Publication) { p.Experiments = without(p.Experiments, e) })
		}
	}
	for _, in := range e.Interactions {
		if cur, ok := tx.st.interactions[in.AC]; ok && cur == in {
			touch(tx, in, domain.EntityInteraction, func(in *domain.Interaction) { in.Experiments = without(in.Experiments, e) })
		}
	}
	return nil
}

// CreateInteraction stores a copy of in and adds it to its experiments.
func (tx *transaction) CreateInteraction(in *domain.Interaction) (*domain.Interaction, error) {
	return create(tx, in, tx.st.interactions, domain.EntityInteraction, (*graph.Cloner).Interaction, (*attacher).interactionBody)
}

// UpdateInteraction applies mutator to the stored interaction.
func (tx *transaction) UpdateInteraction(ac string, mutator func(*domain.Interaction) error) (*domain.Interaction, error) {
	return update(tx, ac, tx.st.interactions, domain.EntityInteraction, mutator, (*attacher).interactionBody)
}

// DeleteInteraction removes the interaction and its participants.
func (tx *transaction) DeleteInteraction(ac string) error {
	in, err := remove(tx, ac, tx.st.interactions, domain.EntityInteraction)
	if err != nil {
		return err
	}
	for _, e := range in.Experiments {
		if cur, ok := tx.st.experiments[e.AC]; ok && cur == e {
			touch(tx, e, domain.EntityExperiment, func(e *domain.Experiment) { e.Interactions = without(e.Interactions, in) })
		}
	}
	return nil
}

// CreateComplex stores a copy of x, minting its complex accession when missing.
func (tx *transaction) CreateComplex(x *domain.Complex) (*domain.Complex, error) {
	return create(tx, x, tx.st.complexes, domain.EntityComplex, (*graph.Cloner).Complex, func(a *attacher, x *domain.Complex) error {
		if x.ComplexAC == "" {
			cpx, err := tx.store.cpx.Next(tx.ctx)
			if err != nil {
				return err
			}
			x.ComplexAC = cpx
		}
		if x.Version == 0 {
			x.Version = 1
		}
		return a.complex(x)
	})
}

// UpdateComplex applies mutator to the stored complex.
func (tx *transaction) UpdateComplex(ac string, mutator func(*domain.Complex) error) (*domain.Complex, error) {
	return update(tx, ac, tx.st.complexes, domain.EntityComplex, mutator, (*attacher).complex)
}

// DeleteComplex removes the complex and its participants.
func (tx *transaction) DeleteComplex(ac string) error {
	_, err := remove(tx, ac, tx.st.complexes, domain.EntityComplex)
	return err
}

// SaveUser inserts or replaces the user with u's login. Replacing keeps the
// stored instance so releasables pointing at it see the new values.
func (tx *transaction) SaveUser(u *domain.User) (*domain.User, error) {
	if u == nil || u.Login == "" {
		return nil, errors.New("save user: login required")
	}
	if u.IsStub() {
		return nil, errors.New("save user: cannot save a stub")
	}
	cp := graph.NewCloner().User(u)
	cp.Updated = tx.now
	if existing, ok := tx.st.users[u.Login]; ok {
		before := *existing
		cp.Created = existing.Created
		*existing = *cp
		tx.record(domain.Change{Entity: domain.EntityUser, Action: domain.ActionUpdate, AC: u.Login, Before: &before, After: existing})
		return existing, nil
	}
	if cp.Created.IsZero() {
		cp.Created = tx.now
	}
	tx.st.users[cp.Login] = cp
	tx.record(domain.Change{Entity: domain.EntityUser, Action: domain.ActionCreate, AC: cp.Login, After: cp})
	return cp, nil
}

// DeleteUser removes the user.
func (tx *transaction) DeleteUser(login string) error {
	before, ok := tx.st.users[login]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityUser, ID: login}
	}
	delete(tx.st.users, login)
	tx.record(domain.Change{Entity: domain.EntityUser, Action: domain.ActionDelete, AC: login, Before: before})
	return nil
}
