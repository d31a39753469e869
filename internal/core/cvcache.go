package core

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"intactcore/pkg/domain"
)

// DefaultCvCacheSize bounds each index of a CvCache built with size <= 0.
const DefaultCvCacheSize = 1024

type cvKey struct {
	class domain.CvClass
	value string
}

// CvCache keeps recently used vocabulary terms in front of a store, indexed by
// class and identifier and by class and short label. Cached terms are shared
// and must be treated as read-only. The Service purges the cache after every
// committed transaction that created, updated or deleted a term.
type CvCache struct {
	store        domain.PersistentStore
	byIdentifier *lru.Cache[cvKey, *domain.CvObject]
	byLabel      *lru.Cache[cvKey, *domain.CvObject]
}

// NewCvCache builds a cache holding up to size terms per index.
func NewCvCache(store domain.PersistentStore, size int) (*CvCache, error) {
	if size <= 0 {
		size = DefaultCvCacheSize
	}
	byIdentifier, err := lru.New[cvKey, *domain.CvObject](size)
	if err != nil {
		return nil, fmt.Errorf("cv cache: %w", err)
	}
	byLabel, err := lru.New[cvKey, *domain.CvObject](size)
	if err != nil {
		return nil, fmt.Errorf("cv cache: %w", err)
	}
	return &CvCache{store: store, byIdentifier: byIdentifier, byLabel: byLabel}, nil
}

// ByIdentifier returns the term of class with the given identifier, e.g. MI:0326.
func (c *CvCache) ByIdentifier(ctx context.Context, class domain.CvClass, identifier string) (*domain.CvObject, bool, error) {
	key := cvKey{class: class, value: identifier}
	if cv, ok := c.byIdentifier.Get(key); ok {
		return cv, true, nil
	}
	var found *domain.CvObject
	err := c.store.View(ctx, func(v domain.TransactionView) error {
		found, _ = v.FindCvByIdentifier(class, identifier)
		return nil
	})
	if err != nil || found == nil {
		return nil, false, err
	}
	c.add(found)
	return found, true, nil
}

// ByLabel returns the term of class with the given short label.
func (c *CvCache) ByLabel(ctx context.Context, class domain.CvClass, label string) (*domain.CvObject, bool, error) {
	key := cvKey{class: class, value: label}
	if cv, ok := c.byLabel.Get(key); ok {
		return cv, true, nil
	}
	var found *domain.CvObject
	err := c.store.View(ctx, func(v domain.TransactionView) error {
		for _, cv := range v.ListCvObjects() {
			if cv.Class == class && cv.ShortLabel == label {
				found = cv
				return nil
			}
		}
		return nil
	})
	if err != nil || found == nil {
		return nil, false, err
	}
	c.add(found)
	return found, true, nil
}

func (c *CvCache) add(cv *domain.CvObject) {
	if cv.Identifier != "" {
		c.byIdentifier.Add(cvKey{class: cv.Class, value: cv.Identifier}, cv)
	}
	if cv.ShortLabel != "" {
		c.byLabel.Add(cvKey{class: cv.Class, value: cv.ShortLabel}, cv)
	}
}

// Len returns the number of cached identifier entries.
func (c *CvCache) Len() int { return c.byIdentifier.Len() }

// Purge drops every cached term.
func (c *CvCache) Purge() {
	c.byIdentifier.Purge()
	c.byLabel.Purge()
}
