package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"intactcore/internal/accession"
)

// Names of the sequences kept in the sequences table.
const (
	ACSequence      = "intact_ac_seq"
	ComplexSequence = "complex_ac_seq"
)

// Sequence is an accession sequence stored in the sequences table. The row
// holds the last value handed out.
type Sequence struct {
	db   *sql.DB
	name string
}

var (
	_ accession.BlockSequence = (*Sequence)(nil)
	_ accession.Advancer      = (*Sequence)(nil)
)

// NewSequence returns the named sequence. The row is created on first use.
func NewSequence(db *sql.DB, name string) *Sequence {
	return &Sequence{db: db, name: name}
}

// Next implements accession.Sequence.
func (s *Sequence) Next(ctx context.Context) (int64, error) {
	return s.Reserve(ctx, 1)
}

// Reserve implements accession.BlockSequence.
func (s *Sequence) Reserve(ctx context.Context, n int64) (int64, error) {
	if n < 1 {
		return 0, fmt.Errorf("sequence %s: reserve count must be positive, got %d", s.name, n)
	}
	var v int64
	err := s.db.QueryRowContext(ctx, `INSERT INTO sequences(name, value) VALUES(?, ?)
		ON CONFLICT(name) DO UPDATE SET value = value + excluded.value
		RETURNING value`, s.name, n).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("sequence %s: %w", s.name, err)
	}
	return v, nil
}

// AdvanceTo implements accession.Advancer.
func (s *Sequence) AdvanceTo(ctx context.Context, n int64) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO sequences(name, value) VALUES(?, ?)
		ON CONFLICT(name) DO UPDATE SET value = max(value, excluded.value)`, s.name, n)
	if err != nil {
		return fmt.Errorf("advance sequence %s: %w", s.name, err)
	}
	return nil
}
