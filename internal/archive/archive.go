// Package archive writes a JSON snapshot of every released publication or
// complex to blob storage, under releases/<kind>/<ac>/<id>.json.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"time"

	"github.com/google/uuid"

	"intactcore/internal/blob"
	"intactcore/internal/lifecycle"
	"intactcore/internal/logging"
	"intactcore/internal/records"
	"intactcore/pkg/domain"
)

// Prefix is the key prefix of every release document.
const Prefix = "releases"

// Release is the stored document.
type Release struct {
	ID         string                `json:"id"`
	Kind       domain.ReleasableKind `json:"kind"`
	AC         string                `json:"ac"`
	Version    int                   `json:"version,omitempty"`
	ReleasedBy string                `json:"released_by,omitempty"`
	ReleasedAt time.Time             `json:"released_at"`
	Records    records.Bundle        `json:"records"`
}

// Archiver stores release documents. It is meant to run after the releasing
// transaction committed.
type Archiver struct {
	store blob.Store
	newID func() string
	now   func() time.Time
	log   *slog.Logger
}

// Option configures an Archiver.
type Option func(*Archiver)

// WithClock overrides the release timestamp source.
func WithClock(now func() time.Time) Option { return func(a *Archiver) { a.now = now } }

// WithIDGenerator overrides document identifiers.
func WithIDGenerator(fn func() string) Option { return func(a *Archiver) { a.newID = fn } }

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option { return func(a *Archiver) { a.log = log } }

// New returns an archiver writing to store.
func New(store blob.Store, opts ...Option) *Archiver {
	a := &Archiver{
		store: store,
		newID: uuid.NewString,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(a)
	}
	a.log = logging.OrDiscard(a.log).With(logging.Scope("archive"))
	return a
}

// Dir returns the key prefix holding the releases of one releasable.
func Dir(kind domain.ReleasableKind, ac string) string {
	return path.Join(Prefix, string(kind), ac) + "/"
}

// OnTransition implements lifecycle.Listener; only transitions into RELEASED
// are archived.
func (a *Archiver) OnTransition(ctx context.Context, n lifecycle.Notification) error {
	if n.To != domain.StatusReleased || n.From == domain.StatusReleased {
		return nil
	}
	_, err := a.Archive(ctx, n.Releasable, n.Actor)
	return err
}

// Archive stores a snapshot of r and returns the blob key.
func (a *Archiver) Archive(ctx context.Context, r domain.Releasable, actor *domain.User) (string, error) {
	rel := Release{
		ID:         a.newID(),
		Kind:       r.ReleasableKind(),
		AC:         r.ReleasableAC(),
		ReleasedAt: a.now(),
		Records:    records.Export(r),
	}
	if actor != nil {
		rel.ReleasedBy = actor.Login
	}
	if x, ok := r.(*domain.Complex); ok {
		rel.Version = x.Version
	}
	body, err := json.MarshalIndent(rel, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode release %s: %w", rel.AC, err)
	}
	key := Dir(rel.Kind, rel.AC) + rel.ID + ".json"
	md := map[string]string{"ac": rel.AC, "kind": string(rel.Kind)}
	if rel.Version > 0 {
		md["version"] = strconv.Itoa(rel.Version)
	}
	if _, err := a.store.Put(ctx, key, bytes.NewReader(body), blob.PutOptions{ContentType: "application/json", Metadata: md}); err != nil {
		a.log.ErrorContext(ctx, "release archive failed", slog.String("ac", rel.AC), logging.Error(err))
		return "", fmt.Errorf("store release %s: %w", rel.AC, err)
	}
	a.log.InfoContext(ctx, "release archived", slog.String("ac", rel.AC), slog.String("key", key), slog.Int("records", rel.Records.Len()))
	return key, nil
}

// List returns the archived releases of one releasable, ordered by key.
func (a *Archiver) List(ctx context.Context, kind domain.ReleasableKind, ac string) ([]blob.Info, error) {
	return a.store.List(ctx, Dir(kind, ac))
}

// URL returns a link to one release document, valid for expiry where the
// blob driver signs links. Drivers without links fail with blob.ErrUnsupported.
func (a *Archiver) URL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if _, err := a.store.Head(ctx, key); err != nil {
		return "", err
	}
	u, err := a.store.PresignURL(ctx, key, blob.SignedURLOptions{Method: http.MethodGet, Expiry: expiry})
	if err != nil {
		return "", fmt.Errorf("link release %s: %w", key, err)
	}
	return u, nil
}

// Load reads one release document.
func (a *Archiver) Load(ctx context.Context, key string) (Release, error) {
	_, rc, err := a.store.Get(ctx, key)
	if err != nil {
		return Release{}, err
	}
	defer func() { _ = rc.Close() }()
	b, err := io.ReadAll(rc)
	if err != nil {
		return Release{}, fmt.Errorf("read release %s: %w", key, err)
	}
	var rel Release
	if err := json.Unmarshal(b, &rel); err != nil {
		return Release{}, fmt.Errorf("decode release %s: %w", key, err)
	}
	return rel, nil
}

var _ lifecycle.Listener = (*Archiver)(nil)
