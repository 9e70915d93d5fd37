package ports

import (
	"context"

	"github.com/aretw0/patchbay/pkg/domain"
)

// SnapshotSource loads a complete graph from some backing store.
// This allows patch files, fixtures and memory graphs to be used interchangeably.
type SnapshotSource interface {
	Load(ctx context.Context) (*domain.Snapshot, error)
}

// Watchable defines an interface for sources that can notify about backend changes.
// This is typically used for hot-reload of patch files.
type Watchable interface {
	// Watch returns a channel that is signaled when the underlying graph changes.
	// It abstracts away the specific event details, signaling only that a reload is required.
	Watch(ctx context.Context) (<-chan struct{}, error)
}

// SnapshotStore is a SnapshotSource that can also persist a snapshot.
type SnapshotStore interface {
	SnapshotSource
	Save(ctx context.Context, snap *domain.Snapshot) error
}
