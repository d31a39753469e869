package domain

import "context"

// TransactionView provides read-only access to snapshot data. Returned pointers
// belong to the snapshot the view was taken from.
type TransactionView interface {
	RuleView
	FindCvByIdentifier(class CvClass, identifier string) (*CvObject, bool)
	ListInstitutions() []*Institution
	ListCvObjects() []*CvObject
	ListBioSources() []*BioSource
	ListInteractors() []*Interactor
	ListExperiments() []*Experiment
	ListInteractions() []*Interaction
	ListUsers() []*User
}

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope. Objects returned by the finders live in
// the transaction's private copy of the graph; changes made to them are only
// recorded when applied through an Update mutator.
type Transaction interface {
	TransactionView
	Snapshot() TransactionView
	CreateInstitution(*Institution) (*Institution, error)
	UpdateInstitution(ac string, mutator func(*Institution) error) (*Institution, error)
	DeleteInstitution(ac string) error
	CreateCvObject(*CvObject) (*CvObject, error)
	UpdateCvObject(ac string, mutator func(*CvObject) error) (*CvObject, error)
	DeleteCvObject(ac string) error
	CreateBioSource(*BioSource) (*BioSource, error)
	UpdateBioSource(ac string, mutator func(*BioSource) error) (*BioSource, error)
	DeleteBioSource(ac string) error
	CreateInteractor(*Interactor) (*Interactor, error)
	UpdateInteractor(ac string, mutator func(*Interactor) error) (*Interactor, error)
	DeleteInteractor(ac string) error
	CreatePublication(*Publication) (*Publication, error)
	UpdatePublication(ac string, mutator func(*Publication) error) (*Publication, error)
	DeletePublication(ac string) error
	CreateExperiment(*Experiment) (*Experiment, error)
	UpdateExperiment(ac string, mutator func(*Experiment) error) (*Experiment, error)
	DeleteExperiment(ac string) error
	CreateInteraction(*Interaction) (*Interaction, error)
	UpdateInteraction(ac string, mutator func(*Interaction) error) (*Interaction, error)
	DeleteInteraction(ac string) error
	CreateComplex(*Complex) (*Complex, error)
	UpdateComplex(ac string, mutator func(*Complex) error) (*Complex, error)
	DeleteComplex(ac string) error
	SaveUser(*User) (*User, error)
	DeleteUser(login string) error
	// AfterCommit registers fn to run once the transaction has been committed
	// and persisted. Hooks of a rolled back transaction never run.
	AfterCommit(fn func())
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers. Getters
// return deep copies of committed state.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetPublication(ac string) (*Publication, bool)
	GetComplex(ac string) (*Complex, bool)
	GetCvObject(ac string) (*CvObject, bool)
	GetUser(login string) (*User, bool)
	ListPublications() []*Publication
	ListComplexes() []*Complex
}
