// Package accession generates the identifiers stable across IntAct releases:
// object accessions such as EBI-12345 and complex accessions such as CPX-123.
package accession

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// DefaultPrefix is the installation prefix used when none is configured.
const DefaultPrefix = "EBI"

// ComplexPrefix prefixes complex accessions regardless of installation.
const ComplexPrefix = "CPX"

// ErrMalformedAC is returned by Parse for strings that are not PREFIX-n.
var ErrMalformedAC = errors.New("malformed accession")

// Sequence hands out strictly increasing positive numbers.
type Sequence interface {
	Next(ctx context.Context) (int64, error)
}

// BlockSequence can hand out n consecutive values in one call. Reserve
// returns the last value of the reserved range.
type BlockSequence interface {
	Sequence
	Reserve(ctx context.Context, n int64) (int64, error)
}

// Advancer moves a sequence so that every later value is greater than n.
type Advancer interface {
	AdvanceTo(ctx context.Context, n int64) error
}

// MemorySequence is a process-local sequence.
type MemorySequence struct {
	last atomic.Int64
}

var (
	_ BlockSequence = (*MemorySequence)(nil)
	_ Advancer      = (*MemorySequence)(nil)
)

// NewMemorySequence returns a sequence whose first value is start.
func NewMemorySequence(start int64) *MemorySequence {
	s := &MemorySequence{}
	s.last.Store(start - 1)
	return s
}

// Next implements Sequence.
func (s *MemorySequence) Next(ctx context.Context) (int64, error) {
	return s.Reserve(ctx, 1)
}

// Reserve implements BlockSequence.
func (s *MemorySequence) Reserve(ctx context.Context, n int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, fmt.Errorf("reserve %d values: count must be positive", n)
	}
	return s.last.Add(n), nil
}

// AdvanceTo implements Advancer.
func (s *MemorySequence) AdvanceTo(ctx context.Context, n int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for {
		last := s.last.Load()
		if last >= n || s.last.CompareAndSwap(last, n) {
			return nil
		}
	}
}

// pooled reserves blocks of values from an underlying sequence that stores
// the last value handed out, so the backing store is hit once per block and
// changing the block size never reissues a value.
type pooled struct {
	mu   sync.Mutex
	seq  BlockSequence
	size int64
	next int64
	max  int64
}

// Pooled wraps seq so that values are reserved size at a time. A size below
// 2 returns seq unchanged.
func Pooled(seq BlockSequence, size int) Sequence {
	if size < 2 {
		return seq
	}
	return &pooled{seq: seq, size: int64(size)}
}

func (p *pooled) Next(ctx context.Context) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.next == 0 || p.next > p.max {
		last, err := p.seq.Reserve(ctx, p.size)
		if err != nil {
			return 0, fmt.Errorf("reserve block: %w", err)
		}
		if last < p.size {
			return 0, fmt.Errorf("sequence returned block end %d below block size %d", last, p.size)
		}
		p.next = last - p.size + 1
		p.max = last
	}
	v := p.next
	p.next++
	return v, nil
}

// AdvanceTo advances the backing sequence and skips the locally reserved
// values that are not greater than n.
func (p *pooled) AdvanceTo(ctx context.Context, n int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if a, ok := p.seq.(Advancer); ok {
		if err := a.AdvanceTo(ctx, n); err != nil {
			return err
		}
	}
	if p.next != 0 && p.next <= n {
		if n < p.max {
			p.next = n + 1
		} else {
			p.next = 0
		}
	}
	return nil
}

// Advance moves seq past n. Sequences that cannot be advanced are left alone.
func Advance(ctx context.Context, seq Sequence, n int64) error {
	a, ok := seq.(Advancer)
	if !ok || n < 1 {
		return nil
	}
	return a.AdvanceTo(ctx, n)
}

// Generator renders sequence values as prefixed accessions.
type Generator struct {
	prefix string
	seq    Sequence
}

// NewGenerator returns a generator for prefix. An empty prefix selects DefaultPrefix.
func NewGenerator(prefix string, seq Sequence) *Generator {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Generator{prefix: strings.ToUpper(prefix), seq: seq}
}

// NewComplexGenerator returns a generator of CPX- accessions.
func NewComplexGenerator(seq Sequence) *Generator {
	return &Generator{prefix: ComplexPrefix, seq: seq}
}

// Prefix returns the configured prefix.
func (g *Generator) Prefix() string { return g.prefix }

// Next returns the next accession.
func (g *Generator) Next(ctx context.Context) (string, error) {
	n, err := g.seq.Next(ctx)
	if err != nil {
		return "", fmt.Errorf("next %s accession: %w", g.prefix, err)
	}
	return Format(g.prefix, n), nil
}

// Owns reports whether ac was minted with this generator's prefix.
func (g *Generator) Owns(ac string) bool {
	prefix, _, err := Parse(ac)
	return err == nil && prefix == g.prefix
}

// Format renders prefix and number as an accession.
func Format(prefix string, n int64) string {
	return prefix + "-" + strconv.FormatInt(n, 10)
}

// Parse splits an accession into its prefix and number.
func Parse(ac string) (string, int64, error) {
	i := strings.LastIndexByte(ac, '-')
	if i <= 0 || i == len(ac)-1 {
		return "", 0, fmt.Errorf("%w: %q", ErrMalformedAC, ac)
	}
	n, err := strconv.ParseInt(ac[i+1:], 10, 64)
	if err != nil || n < 1 {
		return "", 0, fmt.Errorf("%w: %q", ErrMalformedAC, ac)
	}
	return ac[:i], n, nil
}
