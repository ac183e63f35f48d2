// Package rtlog wraps log/slog with the extension-identity fields every
// actor and dispatcher log line carries: extension id, name, version, and
// (for per-call lines) a call correlation id. It does not replace slog's
// API, it just fixes the attribute set callers would otherwise have to
// repeat at every call site.
package rtlog

import (
	"context"
	"log/slog"
	"os"

	"github.com/klyx-dev/extensionrt/manifest"
)

// Base is the process-wide logger every Extension derives its own
// extension-scoped logger from. Callers of cmd/extensiond may replace it
// before loading any extension.
var Base = slog.New(slog.NewTextHandler(os.Stderr, nil))

// ForExtension returns a logger with id/name/version fields bound, used
// for every log line an actor or dispatcher emits on behalf of m.
func ForExtension(m manifest.Manifest) *slog.Logger {
	return Base.With(
		slog.String("extension_id", m.ID),
		slog.String("extension_name", m.Name),
		slog.String("extension_version", m.Version),
	)
}

// WithCall binds a call correlation id (spec §4.E's reply-channel call),
// used to tie a multi-line actor call together in logs.
func WithCall(logger *slog.Logger, callID string) *slog.Logger {
	return logger.With(slog.String("call_id", callID))
}

// GuestPanic logs a panic recovered at the actor's call boundary (spec
// §4.E: "a panic inside guest code is caught at the call boundary, tagged
// with extension name and id").
func GuestPanic(ctx context.Context, logger *slog.Logger, recovered any) {
	logger.ErrorContext(ctx, "recovered panic in guest call", slog.Any("panic", recovered))
}
