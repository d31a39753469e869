package lifecycle

import (
	"context"
	"log/slog"

	"intactcore/internal/logging"
)

// Listener is notified after a transition has been applied. Returning an error
// fails the transition.
type Listener interface {
	OnTransition(ctx context.Context, n Notification) error
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ctx context.Context, n Notification) error

// OnTransition implements Listener.
func (f ListenerFunc) OnTransition(ctx context.Context, n Notification) error { return f(ctx, n) }

// NewLogListener logs every transition at info level.
func NewLogListener(log *slog.Logger) Listener {
	log = logging.OrDiscard(log).With(logging.Scope("lifecycle"))
	return ListenerFunc(func(ctx context.Context, n Notification) error {
		attrs := []slog.Attr{
			slog.String("kind", string(n.Releasable.ReleasableKind())),
			slog.String("ac", n.Releasable.ReleasableAC()),
			slog.String("transition", string(n.Transition)),
			slog.String("from", string(n.From)),
			slog.String("to", string(n.To)),
		}
		if n.Actor != nil {
			attrs = append(attrs, slog.String("actor", n.Actor.Login))
		}
		if n.Reason != "" {
			attrs = append(attrs, slog.String("reason", n.Reason))
		}
		log.LogAttrs(ctx, slog.LevelInfo, "lifecycle transition", attrs...)
		return nil
	})
}
