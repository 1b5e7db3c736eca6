package provider

import (
	"context"
	"fmt"

	"github.com/remote-storage-gateway/internal/config"
	"github.com/remote-storage-gateway/internal/streams"
)

// Provider is the uniform contract every storage backend adapter
// implements. Adapters hold only immutable configuration, so a single
// instance is safe for concurrent use; the Upload probe-then-act sequence
// is the one read-then-write window and is not protected against
// concurrent writers from other clients.
type Provider interface {
	// Name returns the backend name the adapter is registered under.
	Name() string

	// Metadata returns exactly one record for a file path, or the
	// immediate children for a directory path.
	Metadata(ctx context.Context, path string) ([]*Metadata, error)

	// Download returns a lazily consumed stream of file content. A
	// non-empty revision selects that specific version when it differs
	// from the path's current version identifier.
	Download(ctx context.Context, path, revision string) (streams.Stream, error)

	// Upload creates the file if absent, otherwise updates it in place.
	// The returned bool reports whether the create branch was taken.
	Upload(ctx context.Context, src streams.Stream, path string) (*Metadata, bool, error)

	// Delete removes the file at path.
	Delete(ctx context.Context, path string) error

	// Revisions returns the ordered version history, newest first. The
	// result always has at least one entry (the current version), even on
	// backends without version history.
	Revisions(ctx context.Context, path string) ([]*Revision, error)
}

// New returns the adapter registered under the given backend name.
func New(backend string, cfg *config.Config) (Provider, error) {
	switch backend {
	case "box":
		return NewBoxProvider(cfg.Box)
	case "owncloud":
		return NewOwnCloudProvider(cfg.OwnCloud)
	default:
		return nil, fmt.Errorf("unknown backend: %s", backend)
	}
}
