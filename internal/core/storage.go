package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"intactcore/internal/config"
	"intactcore/internal/infra/persistence/memory"
	"intactcore/internal/infra/persistence/postgres"
	"intactcore/internal/infra/persistence/sqlite"
	"intactcore/pkg/domain"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// OpenPersistentStore selects a backend from cfg.Storage.Driver, defaulting to
// sqlite. Close the returned store with CloseStore.
func OpenPersistentStore(ctx context.Context, cfg *config.Config, engine *domain.RulesEngine, log *slog.Logger) (domain.PersistentStore, error) {
	driver := StorageDriver(cfg.Storage.Driver)
	if driver == "" {
		driver = StorageSQLite
	}
	switch driver {
	case StorageMemory:
		return memory.NewStore(engine,
			memory.WithACPrefix(cfg.Accession.Prefix),
			memory.WithLogger(log),
		), nil
	case StorageSQLite:
		store, err := sqlite.NewStore(cfg.Storage.SQLite.Path, engine,
			sqlite.WithACPrefix(cfg.Accession.Prefix),
			sqlite.WithBlockSize(cfg.Accession.BlockSize),
			sqlite.WithLogger(log),
		)
		if err != nil {
			return nil, err
		}
		return store, nil
	case StoragePostgres:
		opts := []postgres.Option{
			postgres.WithACPrefix(cfg.Accession.Prefix),
			postgres.WithBlockSize(cfg.Accession.BlockSize),
			postgres.WithLogger(log),
		}
		if !cfg.Storage.Postgres.Migrations {
			opts = append(opts, postgres.WithoutMigrations())
		}
		store, err := postgres.NewStore(ctx, cfg.Storage.Postgres.DSN, engine, opts...)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}

// CloseStore releases the resources of stores backed by a database.
func CloseStore(store domain.PersistentStore) error {
	if c, ok := store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
