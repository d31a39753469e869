// Package sqlite persists the in-memory store to a single SQLite table of JSON
// buckets, one bucket per record table, rewritten after every commit that
// touched it. Accession sequences live in a second table.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"intactcore/internal/accession"
	"intactcore/internal/infra/persistence/memory"
	"intactcore/internal/logging"
	"intactcore/internal/records"
	"intactcore/pkg/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// DefaultPath is used when no database path is configured.
const DefaultPath = "intact.db"

var _ domain.PersistentStore = (*Store)(nil)

// Store is a memory store whose commits are written to SQLite.
type Store struct {
	*memory.Store
	db   *sql.DB
	path string
	log  *slog.Logger
}

type options struct {
	prefix    string
	blockSize int
	nowFn     func() time.Time
	log       *slog.Logger
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

type bucket struct {
	name string
	rows func(*records.Bundle) any
}

var buckets = []bucket{
	{"institutions", func(b *records.Bundle) any { return &b.Institutions }},
	{"cv_objects", func(b *records.Bundle) any { return &b.CvObjects }},
	{"biosources", func(b *records.Bundle) any { return &b.BioSources }},
	{"interactors", func(b *records.Bundle) any { return &b.Interactors }},
	{"publications", func(b *records.Bundle) any { return &b.Publications }},
	{"experiments", func(b *records.Bundle) any { return &b.Experiments }},
	{"interactions", func(b *records.Bundle) any { return &b.Interactions }},
	{"components", func(b *records.Bundle) any { return &b.Components }},
	{"features", func(b *records.Bundle) any { return &b.Features }},
	{"complexes", func(b *records.Bundle) any { return &b.Complexes }},
	{"users", func(b *records.Bundle) any { return &b.Users }},
}

// entityBuckets lists the buckets a change to an entity type rewrites.
var entityBuckets = map[domain.EntityType][]string{
	domain.EntityInstitution: {"institutions"},
	domain.EntityCvObject:    {"cv_objects"},
	domain.EntityBioSource:   {"biosources"},
	domain.EntityInteractor:  {"interactors"},
	domain.EntityPublication: {"publications"},
	domain.EntityExperiment:  {"experiments"},
	domain.EntityInteraction: {"interactions", "components", "features"},
	domain.EntityComplex:     {"complexes", "components", "features"},
	domain.EntityUser:        {"users"},
}

// NewStore opens (creating if needed) the database at path and loads its state.
func NewStore(path string, engine *domain.RulesEngine, opts ...Option) (*Store, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if path == "" {
		path = DefaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// sequence updates and bucket writes share one connection so they never contend for the file lock
	db.SetMaxOpenConns(1)
	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	log := logging.OrDiscard(o.log).With(logging.Scope("sqlite"))
	memOpts := []memory.Option{
		memory.WithSequences(
			accession.Pooled(NewSequence(db, ACSequence), o.blockSize),
			NewSequence(db, ComplexSequence),
		),
		memory.WithACPrefix(o.prefix),
		memory.WithLogger(o.log),
	}
	if o.nowFn != nil {
		memOpts = append(memOpts, memory.WithClock(o.nowFn))
	}
	s := &Store{Store: memory.NewStore(engine, memOpts...), db: db, path: path, log: log}
	if err := s.load(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.SetPersister(s.persist)
	return s, nil
}

func ensureSchema(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		return fmt.Errorf("create state table: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS sequences (
		name TEXT PRIMARY KEY,
		value INTEGER NOT NULL
	)`); err != nil {
		return fmt.Errorf("create sequences table: %w", err)
	}
	return nil
}

func (s *Store) load(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT bucket, payload FROM state`)
	if err != nil {
		return fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()
	payloads := map[string][]byte{}
	for rows.Next() {
		var name string
		var payload []byte
		if err := rows.Scan(&name, &payload); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		payloads[name] = payload
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("read state: %w", err)
	}
	if len(payloads) == 0 {
		return nil
	}
	var bundle records.Bundle
	for _, b := range buckets {
		payload, ok := payloads[b.name]
		if !ok {
			continue
		}
		if err := json.Unmarshal(payload, b.rows(&bundle)); err != nil {
			return fmt.Errorf("decode %s: %w", b.name, err)
		}
	}
	if err := s.ImportState(ctx, bundle); err != nil {
		return err
	}
	s.log.Info("state loaded", "path", s.path, "records", bundle.Len())
	return nil
}

func touched(changes []domain.Change) map[string]bool {
	out := map[string]bool{}
	for _, c := range changes {
		for _, name := range entityBuckets[c.Entity] {
			out[name] = true
		}
	}
	return out
}

func (s *Store) persist(ctx context.Context, view domain.TransactionView, changes []domain.Change) (retErr error) {
	dirty := touched(changes)
	bundle := records.Flatten(view)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, b := range buckets {
		if !dirty[b.name] {
			continue
		}
		data, err := json.Marshal(b.rows(&bundle))
		if err != nil {
			return fmt.Errorf("encode %s: %w", b.name, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, b.name, data); err != nil {
			return fmt.Errorf("upsert %s: %w", b.name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.log.Debug("state persisted", "buckets", len(dirty), "changes", len(changes))
	return nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }
