package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"intactcore/internal/accession"
)

// Names of the rows in the intact_sequence table.
const (
	ACSequence      = "intact_ac_seq"
	ComplexSequence = "complex_ac_seq"
)

// Querier is the subset of pgxpool.Pool used by sequences.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Sequence draws values from a row of the intact_sequence table, which holds
// the last value handed out.
type Sequence struct {
	q    Querier
	name string
}

var (
	_ accession.BlockSequence = (*Sequence)(nil)
	_ accession.Advancer      = (*Sequence)(nil)
)

// NewSequence returns the named sequence. The row is created on first use.
func NewSequence(q Querier, name string) *Sequence {
	return &Sequence{q: q, name: name}
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
	err := s.q.QueryRow(ctx, `INSERT INTO intact_sequence (name, value) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET value = intact_sequence.value + EXCLUDED.value
		RETURNING value`, s.name, n).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("sequence %s: %w", s.name, err)
	}
	return v, nil
}

// AdvanceTo implements accession.Advancer.
func (s *Sequence) AdvanceTo(ctx context.Context, n int64) error {
	var v int64
	err := s.q.QueryRow(ctx, `INSERT INTO intact_sequence (name, value) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET value = GREATEST(intact_sequence.value, EXCLUDED.value)
		RETURNING value`, s.name, n).Scan(&v)
	if err != nil {
		return fmt.Errorf("advance sequence %s: %w", s.name, err)
	}
	return nil
}
