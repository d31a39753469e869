package core

import (
	"context"
	"testing"

	"intactcore/pkg/domain"
)

func TestCvCacheLookupsAndPurge(t *testing.T) {
	svc := newTestService(t)
	cache, err := NewCvCache(svc.Store(), 8)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	svc = NewService(svc.Store(), WithCvCache(cache))
	ctx := context.Background()

	cv, _, err := svc.CreateCvObject(ctx, &domain.CvObject{Class: domain.CvDetectionMethod, Identifier: "MI:0018", ShortLabel: "two hybrid"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, ok, err := cache.ByIdentifier(ctx, domain.CvDetectionMethod, "MI:0018")
	if err != nil || !ok || got.AC != cv.AC {
		t.Fatalf("by identifier = %v, %v, %v", got, ok, err)
	}
	if cache.Len() != 1 {
		t.Fatalf("len = %d, want 1", cache.Len())
	}
	byLabel, ok, err := cache.ByLabel(ctx, domain.CvDetectionMethod, "two hybrid")
	if err != nil || !ok || byLabel != got {
		t.Fatalf("by label = %v, %v, %v", byLabel, ok, err)
	}
	if _, ok, _ := cache.ByIdentifier(ctx, domain.CvTopic, "MI:0018"); ok {
		t.Fatalf("lookup ignored the class")
	}

	if _, _, err := svc.UpdateCvObject(ctx, cv.AC, func(c *domain.CvObject) error {
		c.ShortLabel = "2h"
		return nil
	}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if cache.Len() != 0 {
		t.Fatalf("cache not purged after commit")
	}
	got, _, _ = cache.ByIdentifier(ctx, domain.CvDetectionMethod, "MI:0018")
	if got.ShortLabel != "2h" {
		t.Fatalf("stale term %q", got.ShortLabel)
	}
	if _, ok, _ := cache.ByLabel(ctx, domain.CvDetectionMethod, "two hybrid"); ok {
		t.Fatalf("old label still resolves")
	}
}

func TestCvCacheKeptOnRollback(t *testing.T) {
	svc := newTestService(t)
	cache, err := NewCvCache(svc.Store(), 0)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	svc = NewService(svc.Store(), WithCvCache(cache))
	ctx := context.Background()

	cv, _, err := svc.CreateCvObject(ctx, &domain.CvObject{Class: domain.CvTopic, Identifier: "MI:0612", ShortLabel: "comment"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, _, err := cache.ByIdentifier(ctx, domain.CvTopic, "MI:0612"); err != nil {
		t.Fatalf("lookup: %v", err)
	}
	_, _, err = svc.UpdateCvObject(ctx, cv.AC, func(c *domain.CvObject) error {
		c.Parents = []*domain.CvObject{{IntactObject: domain.Stub("EBI-404")}}
		return nil
	})
	if err == nil {
		t.Fatalf("expected dangling parent to be blocked")
	}
	if cache.Len() != 1 {
		t.Fatalf("rolled back transaction purged the cache")
	}
}
