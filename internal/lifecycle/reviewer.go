package lifecycle

import (
	"cmp"
	"math/rand/v2"
	"slices"
	"sync"

	"intactcore/pkg/domain"
)

// ReviewerAssigner picks a reviewer for a releasable about to be checked.
type ReviewerAssigner interface {
	AssignReviewer(kind domain.ReleasableKind, owner *domain.User, candidates []*domain.User) (*domain.User, error)
}

// WeightedAssigner prefers the owner's mentor and otherwise draws a reviewer
// with probability proportional to their availability preference.
type WeightedAssigner struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewWeightedAssigner draws from src, or from a randomly seeded source when nil.
func NewWeightedAssigner(src rand.Source) *WeightedAssigner {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &WeightedAssigner{rnd: rand.New(src)}
}

// Eligible filters candidates down to enabled reviewers of the kind other than the owner.
func Eligible(kind domain.ReleasableKind, owner *domain.User, candidates []*domain.User) []*domain.User {
	var out []*domain.User
	for _, u := range candidates {
		if u == nil || domain.SameUser(u, owner) || !hasRole(u, reviewerRole(kind)) {
			continue
		}
		out = append(out, u)
	}
	slices.SortFunc(out, func(a, b *domain.User) int { return cmp.Compare(a.Login, b.Login) })
	return slices.CompactFunc(out, func(a, b *domain.User) bool { return a.Login == b.Login })
}

// AssignReviewer implements ReviewerAssigner.
func (a *WeightedAssigner) AssignReviewer(kind domain.ReleasableKind, owner *domain.User, candidates []*domain.User) (*domain.User, error) {
	eligible := Eligible(kind, owner, candidates)
	if mentor := owner.Mentor(); mentor != "" {
		for _, u := range eligible {
			if u.Login == mentor {
				return u, nil
			}
		}
	}
	total := 0
	for _, u := range eligible {
		total += u.ReviewerAvailability()
	}
	if total == 0 {
		return nil, ErrNoReviewer
	}
	a.mu.Lock()
	pick := a.rnd.IntN(total)
	a.mu.Unlock()
	for _, u := range eligible {
		pick -= u.ReviewerAvailability()
		if pick < 0 {
			return u, nil
		}
	}
	return nil, ErrNoReviewer
}
