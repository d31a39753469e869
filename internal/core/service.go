package core

import (
	"context"
	"log/slog"
	"time"

	"intactcore/internal/graph"
	"intactcore/internal/infra/persistence/memory"
	"intactcore/internal/lifecycle"
	"intactcore/internal/logging"
	"intactcore/pkg/domain"
)

// Service exposes higher-level transactional CRUD and curation operations over
// a persistent store. Objects returned by the service are copies; mutating
// them has no effect on stored state.
type Service struct {
	store      domain.PersistentStore
	manager    *lifecycle.Manager
	cache      *CvCache
	metrics    *Metrics
	postCommit []lifecycle.Listener
	log        *slog.Logger
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used by the service and its default manager.
func WithLogger(log *slog.Logger) Option { return func(s *Service) { s.log = log } }

// WithManager replaces the lifecycle manager. Listeners registered on it run
// inside the curation transaction, before commit.
func WithManager(m *lifecycle.Manager) Option { return func(s *Service) { s.manager = m } }

// WithCvCache attaches a term cache that is purged after vocabulary commits.
func WithCvCache(c *CvCache) Option { return func(s *Service) { s.cache = c } }

// WithMetrics records transaction and transition metrics.
func WithMetrics(m *Metrics) Option { return func(s *Service) { s.metrics = m } }

// WithPostCommitListener appends a listener notified once a curation
// transaction has been committed. Its errors are logged and never undo the
// transition.
func WithPostCommitListener(l lifecycle.Listener) Option {
	return func(s *Service) { s.postCommit = append(s.postCommit, l) }
}

// WithClock overrides the time source used to measure transactions.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// NewService constructs a service backed by the supplied store. Committed
// transitions are logged at info level.
func NewService(store domain.PersistentStore, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	s.log = logging.OrDiscard(s.log)
	if s.manager == nil {
		s.manager = lifecycle.NewManager(lifecycle.WithLogger(s.log))
	}
	listeners := []lifecycle.Listener{lifecycle.NewLogListener(s.log)}
	if s.metrics != nil {
		listeners = append(listeners, s.metrics)
	}
	s.postCommit = append(listeners, s.postCommit...)
	s.log = s.log.With(logging.Scope("core"))
	return s
}

// NewInMemoryService creates a service and in-memory store with the given rules engine.
func NewInMemoryService(engine *domain.RulesEngine, opts ...Option) *Service {
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() domain.PersistentStore { return s.store }

// Manager returns the lifecycle manager applying curation transitions.
func (s *Service) Manager() *lifecycle.Manager { return s.manager }

// CvCache returns the attached term cache, or nil.
func (s *Service) CvCache() *CvCache { return s.cache }

// run executes fn in a store transaction and records its outcome.
func (s *Service) run(ctx context.Context, op string, fn func(domain.Transaction) error) (domain.Result, error) {
	start := s.now()
	res, err := s.store.RunInTransaction(ctx, fn)
	s.metrics.ObserveTransaction(op, s.now().Sub(start), res, err)
	if err != nil {
		s.log.DebugContext(ctx, "transaction failed", slog.String("operation", op), logging.Error(err))
	}
	return res, err
}

// mutate runs fn and returns a copy of the object it produced.
func mutate[T any](ctx context.Context, s *Service, op string, clone func(*graph.Cloner, *T) *T, fn func(domain.Transaction) (*T, error)) (*T, domain.Result, error) {
	var out *T
	res, err := s.run(ctx, op, func(tx domain.Transaction) error {
		v, err := fn(tx)
		if err != nil {
			return err
		}
		out = clone(graph.NewDetachedCloner(), v)
		return nil
	})
	if err != nil {
		return nil, res, err
	}
	return out, res, nil
}

func (s *Service) purgeCvCacheAfter(tx domain.Transaction) {
	if s.cache != nil {
		tx.AfterCommit(s.cache.Purge)
	}
}

// CreateInstitution persists a new institution.
func (s *Service) CreateInstitution(ctx context.Context, in *domain.Institution) (*domain.Institution, domain.Result, error) {
	return mutate(ctx, s, "create_institution", (*graph.Cloner).Institution, func(tx domain.Transaction) (*domain.Institution, error) {
		return tx.CreateInstitution(in)
	})
}

// UpdateInstitution mutates an institution using the provided mutator.
func (s *Service) UpdateInstitution(ctx context.Context, ac string, mutator func(*domain.Institution) error) (*domain.Institution, domain.Result, error) {
	return mutate(ctx, s, "update_institution", (*graph.Cloner).Institution, func(tx domain.Transaction) (*domain.Institution, error) {
		return tx.UpdateInstitution(ac, mutator)
	})
}

// DeleteInstitution removes an institution.
func (s *Service) DeleteInstitution(ctx context.Context, ac string) (domain.Result, error) {
	return s.run(ctx, "delete_institution", func(tx domain.Transaction) error {
		return tx.DeleteInstitution(ac)
	})
}

// CreateCvObject persists a new vocabulary term.
func (s *Service) CreateCvObject(ctx context.Context, cv *domain.CvObject) (*domain.CvObject, domain.Result, error) {
	return mutate(ctx, s, "create_cv_object", (*graph.Cloner).CvObject, func(tx domain.Transaction) (*domain.CvObject, error) {
		s.purgeCvCacheAfter(tx)
		return tx.CreateCvObject(cv)
	})
}

// UpdateCvObject mutates a vocabulary term using the provided mutator.
func (s *Service) UpdateCvObject(ctx context.Context, ac string, mutator func(*domain.CvObject) error) (*domain.CvObject, domain.Result, error) {
	return mutate(ctx, s, "update_cv_object", (*graph.Cloner).CvObject, func(tx domain.Transaction) (*domain.CvObject, error) {
		s.purgeCvCacheAfter(tx)
		return tx.UpdateCvObject(ac, mutator)
	})
}

// DeleteCvObject removes a vocabulary term.
func (s *Service) DeleteCvObject(ctx context.Context, ac string) (domain.Result, error) {
	return s.run(ctx, "delete_cv_object", func(tx domain.Transaction) error {
		s.purgeCvCacheAfter(tx)
		return tx.DeleteCvObject(ac)
	})
}

// CreateBioSource persists a new biosource.
func (s *Service) CreateBioSource(ctx context.Context, bs *domain.BioSource) (*domain.BioSource, domain.Result, error) {
	return mutate(ctx, s, "create_biosource", (*graph.Cloner).BioSource, func(tx domain.Transaction) (*domain.BioSource, error) {
		return tx.CreateBioSource(bs)
	})
}

// UpdateBioSource mutates a biosource using the provided mutator.
func (s *Service) UpdateBioSource(ctx context.Context, ac string, mutator func(*domain.BioSource) error) (*domain.BioSource, domain.Result, error) {
	return mutate(ctx, s, "update_biosource", (*graph.Cloner).BioSource, func(tx domain.Transaction) (*domain.BioSource, error) {
		return tx.UpdateBioSource(ac, mutator)
	})
}

// DeleteBioSource removes a biosource.
func (s *Service) DeleteBioSource(ctx context.Context, ac string) (domain.Result, error) {
	return s.run(ctx, "delete_biosource", func(tx domain.Transaction) error {
		return tx.DeleteBioSource(ac)
	})
}

// CreateInteractor persists a new interactor.
func (s *Service) CreateInteractor(ctx context.Context, it *domain.Interactor) (*domain.Interactor, domain.Result, error) {
	return mutate(ctx, s, "create_interactor", (*graph.Cloner).Interactor, func(tx domain.Transaction) (*domain.Interactor, error) {
		return tx.CreateInteractor(it)
	})
}

// UpdateInteractor mutates an interactor using the provided mutator.
func (s *Service) UpdateInteractor(ctx context.Context, ac string, mutator func(*domain.Interactor) error) (*domain.Interactor, domain.Result, error) {
	return mutate(ctx, s, "update_interactor", (*graph.Cloner).Interactor, func(tx domain.Transaction) (*domain.Interactor, error) {
		return tx.UpdateInteractor(ac, mutator)
	})
}

// DeleteInteractor removes an interactor.
func (s *Service) DeleteInteractor(ctx context.Context, ac string) (domain.Result, error) {
	return s.run(ctx, "delete_interactor", func(tx domain.Transaction) error {
		return tx.DeleteInteractor(ac)
	})
}

// CreatePublication persists a new publication with the experiments it owns.
func (s *Service) CreatePublication(ctx context.Context, p *domain.Publication) (*domain.Publication, domain.Result, error) {
	return mutate(ctx, s, "create_publication", (*graph.Cloner).Publication, func(tx domain.Transaction) (*domain.Publication, error) {
		return tx.CreatePublication(p)
	})
}

// UpdatePublication mutates a publication using the provided mutator.
func (s *Service) UpdatePublication(ctx context.Context, ac string, mutator func(*domain.Publication) error) (*domain.Publication, domain.Result, error) {
	return mutate(ctx, s, "update_publication", (*graph.Cloner).Publication, func(tx domain.Transaction) (*domain.Publication, error) {
		return tx.UpdatePublication(ac, mutator)
	})
}

// DeletePublication removes a publication and its experiments.
func (s *Service) DeletePublication(ctx context.Context, ac string) (domain.Result, error) {
	return s.run(ctx, "delete_publication", func(tx domain.Transaction) error {
		return tx.DeletePublication(ac)
	})
}

// CreateExperiment persists a new experiment.
func (s *Service) CreateExperiment(ctx context.Context, e *domain.Experiment) (*domain.Experiment, domain.Result, error) {
	return mutate(ctx, s, "create_experiment", (*graph.Cloner).Experiment, func(tx domain.Transaction) (*domain.Experiment, error) {
		return tx.CreateExperiment(e)
	})
}

// UpdateExperiment mutates an experiment using the provided mutator.
func (s *Service) UpdateExperiment(ctx context.Context, ac string, mutator func(*domain.Experiment) error) (*domain.Experiment, domain.Result, error) {
	return mutate(ctx, s, "update_experiment", (*graph.Cloner).Experiment, func(tx domain.Transaction) (*domain.Experiment, error) {
		return tx.UpdateExperiment(ac, mutator)
	})
}

// DeleteExperiment removes an experiment.
func (s *Service) DeleteExperiment(ctx context.Context, ac string) (domain.Result, error) {
	return s.run(ctx, "delete_experiment", func(tx domain.Transaction) error {
		return tx.DeleteExperiment(ac)
	})
}

// CreateInteraction persists a new interaction.
func (s *Service) CreateInteraction(ctx context.Context, in *domain.Interaction) (*domain.Interaction, domain.Result, error) {
	return mutate(ctx, s, "create_interaction", (*graph.Cloner).Interaction, func(tx domain.Transaction) (*domain.Interaction, error) {
		return tx.CreateInteraction(in)
	})
}

// UpdateInteraction mutates an interaction using the provided mutator.
func (s *Service) UpdateInteraction(ctx context.Context, ac string, mutator func(*domain.Interaction) error) (*domain.Interaction, domain.Result, error) {
	return mutate(ctx, s, "update_interaction", (*graph.Cloner).Interaction, func(tx domain.Transaction) (*domain.Interaction, error) {
		return tx.UpdateInteraction(ac, mutator)
	})
}

// DeleteInteraction removes an interaction.
func (s *Service) DeleteInteraction(ctx context.Context, ac string) (domain.Result, error) {
	return s.run(ctx, "delete_interaction", func(tx domain.Transaction) error {
		return tx.DeleteInteraction(ac)
	})
}

// CreateComplex persists a new complex.
func (s *Service) CreateComplex(ctx context.Context, x *domain.Complex) (*domain.Complex, domain.Result, error) {
	return mutate(ctx, s, "create_complex", (*graph.Cloner).Complex, func(tx domain.Transaction) (*domain.Complex, error) {
		return tx.CreateComplex(x)
	})
}

// UpdateComplex mutates a complex using the provided mutator.
func (s *Service) UpdateComplex(ctx context.Context, ac string, mutator func(*domain.Complex) error) (*domain.Complex, domain.Result, error) {
	return mutate(ctx, s, "update_complex", (*graph.Cloner).Complex, func(tx domain.Transaction) (*domain.Complex, error) {
		return tx.UpdateComplex(ac, mutator)
	})
}

// DeleteComplex removes a complex.
func (s *Service) DeleteComplex(ctx context.Context, ac string) (domain.Result, error) {
	return s.run(ctx, "delete_complex", func(tx domain.Transaction) error {
		return tx.DeleteComplex(ac)
	})
}

// SaveUser creates or replaces a user.
func (s *Service) SaveUser(ctx context.Context, u *domain.User) (*domain.User, domain.Result, error) {
	return mutate(ctx, s, "save_user", (*graph.Cloner).User, func(tx domain.Transaction) (*domain.User, error) {
		return tx.SaveUser(u)
	})
}

// DeleteUser removes a user.
func (s *Service) DeleteUser(ctx context.Context, login string) (domain.Result, error) {
	return s.run(ctx, "delete_user", func(tx domain.Transaction) error {
		return tx.DeleteUser(login)
	})
}

// GetPublication returns a copy of the committed publication.
func (s *Service) GetPublication(ac string) (*domain.Publication, bool) {
	return s.store.GetPublication(ac)
}

// GetComplex returns a copy of the committed complex.
func (s *Service) GetComplex(ac string) (*domain.Complex, bool) { return s.store.GetComplex(ac) }

// GetCvObject returns a copy of the committed term.
func (s *Service) GetCvObject(ac string) (*domain.CvObject, bool) { return s.store.GetCvObject(ac) }

// GetUser returns a copy of the committed user.
func (s *Service) GetUser(login string) (*domain.User, bool) { return s.store.GetUser(login) }

// ListPublications returns copies of every committed publication.
func (s *Service) ListPublications() []*domain.Publication { return s.store.ListPublications() }

// ListComplexes returns copies of every committed complex.
func (s *Service) ListComplexes() []*domain.Complex { return s.store.ListComplexes() }
