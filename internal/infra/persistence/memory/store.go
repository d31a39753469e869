// Package memory provides an in-memory implementation of the core persistence
// store used for tests and ephemeral environments. The durable backends embed
// it and persist each committed transaction through a Persister.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"intactcore/internal/accession"
	"intactcore/internal/graph"
	"intactcore/internal/logging"
	"intactcore/internal/records"
	"intactcore/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

// Persister writes the outcome of a transaction before it becomes visible.
// view exposes the post-transaction state; changes lists the recorded
// mutations in order. A returned error rolls the transaction back.
type Persister func(ctx context.Context, view domain.TransactionView, changes []domain.Change) error

// Store keeps the object graph in memory and applies transactions atomically.
type Store struct {
	mu      sync.RWMutex
	state   *state
	engine  *domain.RulesEngine
	nowFn   func() time.Time
	acSeq   accession.Sequence
	cpxSeq  accession.Sequence
	acs     *accession.Generator
	cpx     *accession.Generator
	persist Persister
	log     *slog.Logger
}

type options struct {
	acSeq   accession.Sequence
	cpxSeq  accession.Sequence
	prefix  string
	nowFn   func() time.Time
	persist Persister
	log     *slog.Logger
}

// Option configures a Store.
type Option func(*options)

// WithSequences replaces the default process-local accession sequences.
func WithSequences(ac, complexAC accession.Sequence) Option {
	return func(o *options) { o.acSeq, o.cpxSeq = ac, complexAC }
}

// WithACPrefix sets the installation prefix of minted accessions.
func WithACPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

// WithClock overrides the time source used to stamp audit columns.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.nowFn = now }
}

// WithPersister installs the hook that makes commits durable.
func WithPersister(p Persister) Option {
	return func(o *options) { o.persist = p }
}

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) { o.log = log }
}

// NewStore constructs an empty memory store bound to the provided rules engine.
func NewStore(engine *domain.RulesEngine, opts ...Option) *Store {
	o := options{nowFn: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(&o)
	}
	if o.acSeq == nil {
		o.acSeq = accession.NewMemorySequence(1)
	}
	if o.cpxSeq == nil {
		o.cpxSeq = accession.NewMemorySequence(1)
	}
	return &Store{
		state:   newState(),
		engine:  engine,
		nowFn:   o.nowFn,
		acSeq:   o.acSeq,
		cpxSeq:  o.cpxSeq,
		acs:     accession.NewGenerator(o.prefix, o.acSeq),
		cpx:     accession.NewComplexGenerator(o.cpxSeq),
		persist: o.persist,
		log:     logging.OrDiscard(o.log).With(logging.Scope("memory")),
	}
}

// SetPersister replaces the persist hook. Durable backends call it once
// before serving transactions.
func (s *Store) SetPersister(p Persister) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persist = p
}

// RulesEngine exposes the configured rules engine.
func (s *Store) RulesEngine() *domain.RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc exposes the time source used for audit columns.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// ACPrefix returns the prefix of accessions minted by the store.
func (s *Store) ACPrefix() string { return s.acs.Prefix() }

// NextAC mints an accession outside of any transaction, for records kept
// elsewhere that must share the installation's accession space.
func (s *Store) NextAC(ctx context.Context) (string, error) { return s.acs.Next(ctx) }

// RunInTransaction executes fn within a transactional copy of the store
// state. The copy replaces the committed state only when fn succeeds, no rule
// blocks and the persister accepts the changes.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx domain.Transaction) error) (domain.Result, error) {
	if err := ctx.Err(); err != nil {
		return domain.Result{}, err
	}
	var tx *transaction
	result, err := func() (domain.Result, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		tx = &transaction{
			ctx:   ctx,
			store: s,
			view:  view{s.state.clone()},
			now:   s.nowFn(),
		}
		return s.commit(ctx, tx, fn)
	}()
	if err != nil {
		return result, err
	}
	for _, hook := range tx.hooks {
		hook()
	}
	return result, nil
}

func (s *Store) commit(ctx context.Context, tx *transaction, fn func(tx domain.Transaction) error) (domain.Result, error) {
	if err := fn(tx); err != nil {
		return domain.Result{}, err
	}

	var result domain.Result
	if s.engine != nil {
		res, err := s.engine.Evaluate(ctx, view{tx.st}, tx.changes)
		if err != nil {
			return domain.Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
		for _, v := range res.Violations {
			s.log.Warn("rule violation", "rule", v.Rule, "severity", v.Severity, "entity", v.Entity, "ac", v.EntityID, "message", v.Message)
		}
	}

	if s.persist != nil && len(tx.changes) > 0 {
		if err := s.persist(ctx, view{tx.st}, tx.changes); err != nil {
			s.log.Error("persist transaction", logging.Error(err), "changes", len(tx.changes))
			return result, fmt.Errorf("persist: %w", err)
		}
	}

	s.state = tx.st
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(ctx context.Context, fn func(domain.TransactionView) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()
	return fn(view{snapshot})
}

func get[T any](s *Store, m func(*state) map[string]*T, key string, clone func(*graph.Cloner, *T) *T) (*T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := m(s.state)[key]
	if !ok {
		return nil, false
	}
	return clone(graph.NewDetachedCloner(), v), true
}

// GetPublication returns a deep copy of the committed publication.
func (s *Store) GetPublication(ac string) (*domain.Publication, bool) {
	return get(s, func(st *state) map[string]*domain.Publication { return st.publications }, ac, (*graph.Cloner).Publication)
}

// GetComplex returns a deep copy of the committed complex.
func (s *Store) GetComplex(ac string) (*domain.Complex, bool) {
	return get(s, func(st *state) map[string]*domain.Complex { return st.complexes }, ac, (*graph.Cloner).Complex)
}

// GetCvObject returns a deep copy of the committed term.
func (s *Store) GetCvObject(ac string) (*domain.CvObject, bool) {
	return get(s, func(st *state) map[string]*domain.CvObject { return st.cvs }, ac, (*graph.Cloner).CvObject)
}

// GetUser returns a copy of the committed user.
func (s *Store) GetUser(login string) (*domain.User, bool) {
	return get(s, func(st *state) map[string]*domain.User { return st.users }, login, (*graph.Cloner).User)
}

func list[T any](s *Store, items func(view) []*T, clone func(*graph.Cloner, *T) *T) []*T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := graph.NewDetachedCloner()
	src := items(view{s.state})
	out := make([]*T, 0, len(src))
	for _, v := range src {
		out = append(out, clone(c, v))
	}
	return out
}

// ListPublications returns copies of every publication ordered by accession.
func (s *Store) ListPublications() []*domain.Publication {
	return list(s, view.ListPublications, (*graph.Cloner).Publication)
}

// ListComplexes returns copies of every complex ordered by accession.
func (s *Store) ListComplexes() []*domain.Complex {
	return list(s, view.ListComplexes, (*graph.Cloner).Complex)
}

// ExportState flattens the committed state into records.
func (s *Store) ExportState() records.Bundle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return records.Flatten(view{s.state})
}

// ImportState replaces the committed state with the hydrated bundle and moves
// the accession sequences past every accession it contains.
func (s *Store) ImportState(ctx context.Context, b records.Bundle) error {
	g, err := records.Hydrate(b)
	if err != nil {
		return fmt.Errorf("import state: %w", err)
	}
	st := stateFromGraph(g)
	acMax, cpxMax := st.maxNumbers(s.acs.Prefix())

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := accession.Advance(ctx, s.acSeq, acMax); err != nil {
		return fmt.Errorf("advance accession sequence: %w", err)
	}
	if err := accession.Advance(ctx, s.cpxSeq, cpxMax); err != nil {
		return fmt.Errorf("advance complex sequence: %w", err)
	}
	s.state = st
	s.log.Debug("state imported", "records", b.Len(), "max_ac", acMax, "max_complex_ac", cpxMax)
	return nil
}
