// Package postgres provides a PostgreSQL-backed persistent store that mirrors
// the in-memory semantics. The schema is managed by goose migrations; every
// committed transaction upserts or deletes the rows of the roots it changed.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"intactcore/internal/accession"
	"intactcore/internal/infra/persistence/memory"
	"intactcore/internal/logging"
	"intactcore/internal/records"
	"intactcore/pkg/domain"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

// DefaultDSN is used when no DSN is configured.
const DefaultDSN = "postgres://localhost/intact?sslmode=disable"

// Store persists state to PostgreSQL while reusing the in-memory implementation for transactions.
type Store struct {
	*memory.Store
	pool *pgxpool.Pool
	db   *bun.DB
	log  *slog.Logger
}

type options struct {
	prefix         string
	blockSize      int
	nowFn          func() time.Time
	log            *slog.Logger
	skipMigrations bool
	acSeq          accession.BlockSequence
	cpxSeq         accession.Sequence
}

// Option configures a Store.
type Option func(*options)

// WithACPrefix sets the installation prefix of minted accessions.
func WithACPrefix(prefix string) Option { return func(o *options) { o.prefix = prefix } }

// WithBlockSize reserves accession numbers in blocks of n.
func WithBlockSize(n int) Option { return func(o *options) { o.blockSize = n } }

// WithClock overrides the time source used for audit columns.
func WithClock(now func() time.Time) Option { return func(o *options) { o.nowFn = now } }

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option { return func(o *options) { o.log = log } }

// WithoutMigrations skips applying migrations on open.
func WithoutMigrations() Option { return func(o *options) { o.skipMigrations = true } }

// WithSequences replaces the database sequences, for tests.
func WithSequences(ac accession.BlockSequence, complexAC accession.Sequence) Option {
	return func(o *options) { o.acSeq, o.cpxSeq = ac, complexAC }
}

// NewStore connects to dsn (falls back to DefaultDSN), applies pending
// migrations and hydrates the in-memory store from the tables.
func NewStore(ctx context.Context, dsn string, engine *domain.RulesEngine, opts ...Option) (*Store, error) {
	if dsn == "" {
		dsn = DefaultDSN
	}
	o := collect(opts)
	log := logging.OrDiscard(o.log).With(logging.Scope("postgres"))

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pgx config: %w", err)
	}
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	log.Info("database pool created", slog.String("host", poolConfig.ConnConfig.Host), slog.String("database", poolConfig.ConnConfig.Database))

	sqldb := stdlib.OpenDBFromPool(pool)
	if !o.skipMigrations {
		if err := Migrate(ctx, sqldb); err != nil {
			pool.Close()
			return nil, err
		}
	}
	if o.acSeq == nil {
		o.acSeq = NewSequence(pool, ACSequence)
	}
	if o.cpxSeq == nil {
		o.cpxSeq = NewSequence(pool, ComplexSequence)
	}
	s, err := Open(ctx, sqldb, engine, append(opts, WithSequences(o.acSeq, o.cpxSeq))...)
	if err != nil {
		pool.Close()
		return nil, err
	}
	s.pool = pool
	return s, nil
}

func collect(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Open builds a store on an existing database handle without touching the
// schema. Sequences default to process-local ones unless WithSequences is given.
func Open(ctx context.Context, sqldb *sql.DB, engine *domain.RulesEngine, opts ...Option) (*Store, error) {
	o := collect(opts)
	log := logging.OrDiscard(o.log).With(logging.Scope("postgres"))

	db := bun.NewDB(sqldb, pgdialect.New())
	if log.Enabled(ctx, slog.LevelDebug) {
		db.AddQueryHook(&queryLoggingHook{log: log})
	}

	memOpts := []memory.Option{memory.WithACPrefix(o.prefix), memory.WithLogger(o.log)}
	if o.acSeq != nil || o.cpxSeq != nil {
		var ac accession.Sequence
		if o.acSeq != nil {
			ac = accession.Pooled(o.acSeq, o.blockSize)
		}
		memOpts = append(memOpts, memory.WithSequences(ac, o.cpxSeq))
	}
	if o.nowFn != nil {
		memOpts = append(memOpts, memory.WithClock(o.nowFn))
	}
	s := &Store{Store: memory.NewStore(engine, memOpts...), db: db, log: log}
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	s.SetPersister(s.persist)
	return s, nil
}

func (s *Store) load(ctx context.Context) error {
	var b records.Bundle
	tables := []struct {
		name string
		rows any
	}{
		{"institutions", &b.Institutions},
		{"cv objects", &b.CvObjects},
		{"biosources", &b.BioSources},
		{"interactors", &b.Interactors},
		{"publications", &b.Publications},
		{"experiments", &b.Experiments},
		{"interactions", &b.Interactions},
		{"components", &b.Components},
		{"features", &b.Features},
		{"complexes", &b.Complexes},
		{"users", &b.Users},
	}
	for _, t := range tables {
		if err := s.db.NewSelect().Model(t.rows).Scan(ctx); err != nil {
			return fmt.Errorf("load %s: %w", t.name, err)
		}
	}
	if err := s.ImportState(ctx, b); err != nil {
		return err
	}
	s.log.Info("state loaded", "records", b.Len())
	return nil
}

// DB exposes the bun handle for integration testing hooks.
func (s *Store) DB() *bun.DB { return s.db }

// Close releases the database handle and pool.
func (s *Store) Close() error {
	err := s.db.Close()
	if s.pool != nil {
		s.pool.Close()
	}
	return err
}

// queryLoggingHook implements bun.QueryHook for query logging.
type queryLoggingHook struct {
	log *slog.Logger
}

func (h *queryLoggingHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *queryLoggingHook) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	duration := time.Since(event.StartTime)
	if event.Err != nil && event.Err != sql.ErrNoRows {
		h.log.Error("query error", slog.String("query", event.Query), slog.Duration("duration", duration), logging.Error(event.Err))
		return
	}
	h.log.Debug("query", slog.String("query", event.Query), slog.Duration("duration", duration))
}
