package ports

import (
	"context"

	"github.com/aretw0/patchbay/pkg/domain"
)

// DefaultFeedCapacity is the number of console entries a feed retains.
const DefaultFeedCapacity = 50

// LogFeed is a LogSink that also retains the most recent entries.
type LogFeed interface {
	LogSink

	// Recent returns up to n retained entries, oldest first.
	// A non-positive n returns everything retained.
	Recent(ctx context.Context, n int) ([]domain.LogEntry, error)

	// Clear drops all retained entries.
	Clear(ctx context.Context) error
}
