package memory

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"intactcore/internal/blob/core"
)

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := New()
	if store.Driver() != core.DriverMemory {
		t.Fatalf("unexpected driver %s", store.Driver())
	}
	md := map[string]string{"ac": "EBI-1"}
	info, err := store.Put(ctx, "releases/publication/EBI-1/a.json", bytes.NewBufferString("{}"), core.PutOptions{ContentType: "application/json", Metadata: md})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	md["ac"] = "changed"
	if info.Size != 2 || info.ETag == "" {
		t.Fatalf("unexpected info %+v", info)
	}

	got, r, err := store.Get(ctx, info.Key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(r)
	if string(body) != "{}" || got.Metadata["ac"] != "EBI-1" {
		t.Fatalf("unexpected blob %q %+v", body, got)
	}

	if _, err := store.Put(ctx, info.Key, bytes.NewBufferString("x"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	if _, err := store.Put(ctx, "../escape", bytes.NewBufferString("x"), core.PutOptions{}); err == nil {
		t.Fatalf("expected invalid key error")
	}
	if _, err := store.PresignURL(ctx, info.Key, core.SignedURLOptions{}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected unsupported presign, got %v", err)
	}
}

func TestStoreListAndDelete(t *testing.T) {
	ctx := context.Background()
	store := New()
	for _, key := range []string{"b/2", "a/1", "b/1"} {
		if _, err := store.Put(ctx, key, bytes.NewBufferString(key), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	list, err := store.List(ctx, "b/")
	if err != nil || len(list) != 2 || list[0].Key != "b/1" || list[1].Key != "b/2" {
		t.Fatalf("unexpected list %+v %v", list, err)
	}
	if ok, _ := store.Delete(ctx, "b/1"); !ok {
		t.Fatalf("expected delete to report existing blob")
	}
	if ok, _ := store.Delete(ctx, "b/1"); ok {
		t.Fatalf("expected second delete to report missing blob")
	}
	if _, err := store.Head(ctx, "b/1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, _, err := store.Get(ctx, "b/1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
