// Package core defines the blob storage contract shared by the drivers.
package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"time"
)

// Driver identifies a concrete blob storage backend implementation.
type Driver string

const (
	DriverFilesystem Driver = "fs"     // local directory (default)
	DriverS3         Driver = "s3"     // S3 / MinIO compatible
	DriverMemory     Driver = "memory" // process memory (tests)
)

// ParseDriver validates a driver name; the empty string selects the filesystem.
func ParseDriver(v string) (Driver, error) {
	switch d := Driver(v); d {
	case "":
		return DriverFilesystem, nil
	case DriverFilesystem, DriverS3, DriverMemory:
		return d, nil
	}
	return "", fmt.Errorf("unknown blob driver %q", v)
}

// PutOptions specifies optional parameters for Put.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// SignedURLOptions holds options for generating a pre-signed URL.
type SignedURLOptions struct {
	Method string        // only GET is supported
	Expiry time.Duration // default 15m
}

// Info describes a stored blob.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size_bytes"`
	ContentType  string            `json:"content_type,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
}

// Store is a write-once key/value blob store. Put fails with ErrExists when
// the key is taken; Get and Head fail with ErrNotFound for missing keys. List
// is ordered by key.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Head(ctx context.Context, key string) (Info, error)
	Delete(ctx context.Context, key string) (bool, error)
	List(ctx context.Context, prefix string) ([]Info, error)
	PresignURL(ctx context.Context, key string, opts SignedURLOptions) (string, error)
	Driver() Driver
}

var (
	// ErrUnsupported is returned when an optional capability is not available.
	ErrUnsupported = errors.New("blob: unsupported operation")
	// ErrNotFound is wrapped when a key does not exist.
	ErrNotFound = errors.New("blob: not found")
	// ErrExists is wrapped when writing a key that already exists.
	ErrExists = errors.New("blob: already exists")
)

// NotFound wraps ErrNotFound with the key.
func NotFound(key string) error { return fmt.Errorf("%w: %s", ErrNotFound, key) }

// Exists wraps ErrExists with the key.
func Exists(key string) error { return fmt.Errorf("%w: %s", ErrExists, key) }

// CloneMetadata copies user metadata.
func CloneMetadata(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	return maps.Clone(in)
}

// ValidKey rejects empty keys, absolute keys and keys escaping their root.
func ValidKey(key string) error {
	switch {
	case strings.TrimSpace(key) == "":
		return fmt.Errorf("blob: empty key")
	case strings.HasPrefix(key, "/"):
		return fmt.Errorf("blob: absolute key %q", key)
	case slices.Contains(strings.Split(key, "/"), ".."):
		return fmt.Errorf("blob: key %q escapes its root", key)
	}
	return nil
}
