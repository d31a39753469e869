package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"intactcore/internal/blob/core"
)

func TestMockStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMock()
	if store.Driver() != core.DriverS3 || store.Bucket() != MockBucket {
		t.Fatalf("unexpected store %s %s", store.Driver(), store.Bucket())
	}

	key := "releases/publication/EBI-1/x.json"
	info, err := store.Put(ctx, key, bytes.NewReader([]byte(`{"ac":"EBI-1"}`)), core.PutOptions{ContentType: "application/json", Metadata: map[string]string{"status": "released"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 14 || info.ContentType != "application/json" || info.ETag == "" {
		t.Fatalf("unexpected info %+v", info)
	}
	if info.Metadata["status"] != "released" {
		t.Fatalf("expected metadata to round trip, got %v", info.Metadata)
	}

	got, rc, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != `{"ac":"EBI-1"}` || got.Size != 14 {
		t.Fatalf("unexpected blob %q %+v", body, got)
	}

	if _, err := store.Put(ctx, key, bytes.NewReader([]byte("x")), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}

	url, err := store.PresignURL(ctx, key, core.SignedURLOptions{})
	if err != nil || !strings.Contains(url, "X-Amz-Signature") {
		t.Fatalf("presign: %s %v", url, err)
	}
	if _, err := store.PresignURL(ctx, key, core.SignedURLOptions{Method: "PUT"}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected unsupported, got %v", err)
	}
}

func TestMockStoreListDeleteMissing(t *testing.T) {
	ctx := context.Background()
	store := NewMock()
	for _, key := range []string{"b/2", "a/1", "b/1"} {
		if _, err := store.Put(ctx, key, bytes.NewReader([]byte(key)), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	list, err := store.List(ctx, "b/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Key != "b/1" || list[1].Key != "b/2" || list[0].Size != 3 {
		t.Fatalf("unexpected list %+v", list)
	}
	if ok, err := store.Delete(ctx, "b/1"); err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if ok, err := store.Delete(ctx, "b/1"); err != nil || ok {
		t.Fatalf("second delete: %v %v", ok, err)
	}
	if _, err := store.Head(ctx, "b/1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from head, got %v", err)
	}
	if _, _, err := store.Get(ctx, "b/1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from get, got %v", err)
	}
}

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected bucket error")
	}
	store, err := New(context.Background(), Config{Bucket: "b", AccessKeyID: "a", SecretAccessKey: "s", Endpoint: "http://localhost:9000", PathStyle: true})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if store.Bucket() != "b" {
		t.Fatalf("unexpected bucket %s", store.Bucket())
	}
}

func TestDecodeChunked(t *testing.T) {
	payload := "5;chunk-signature=abc\r\nhello\r\n6\r\n world\r\n0\r\nx-amz-checksum-crc32:AAAA\r\n\r\n"
	got, err := decodeChunked([]byte(payload))
	if err != nil || string(got) != "hello world" {
		t.Fatalf("decode: %q %v", got, err)
	}
	if _, err := decodeChunked([]byte("zz\r\n")); err == nil {
		t.Fatalf("expected size error")
	}
}
