package ports

import (
	"context"
	"fmt"
	"testing"

	"github.com/aretw0/patchbay/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunLogFeedContract runs a suite of tests to verify that a LogFeed implementation
// adheres to the defined interface contract. The feed must start empty and be
// configured with DefaultFeedCapacity.
func RunLogFeedContract(t *testing.T, feed LogFeed) {
	ctx := context.Background()

	t.Run("Log and Recent", func(t *testing.T) {
		require.NoError(t, feed.Clear(ctx))

		feed.Log(domain.NewLogEntry(domain.LogInfo, "", "first"))
		feed.Log(domain.NewLogEntry(domain.LogError, "n1", "second"))

		entries, err := feed.Recent(ctx, 0)
		require.NoError(t, err, "Recent should not return error")
		require.Len(t, entries, 2)
		assert.Equal(t, "first", entries[0].Message)
		assert.Equal(t, domain.LogError, entries[1].Level)
		assert.Equal(t, "n1", entries[1].NodeID)
	})

	t.Run("Recent Limit", func(t *testing.T) {
		require.NoError(t, feed.Clear(ctx))
		for i := 0; i < 5; i++ {
			feed.Log(domain.NewLogEntry(domain.LogInfo, "", fmt.Sprintf("line %d", i)))
		}

		entries, err := feed.Recent(ctx, 2)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "line 3", entries[0].Message)
		assert.Equal(t, "line 4", entries[1].Message)
	})

	t.Run("Capacity", func(t *testing.T) {
		require.NoError(t, feed.Clear(ctx))
		for i := 0; i < DefaultFeedCapacity+10; i++ {
			feed.Log(domain.NewLogEntry(domain.LogInfo, "", fmt.Sprintf("line %d", i)))
		}

		entries, err := feed.Recent(ctx, 0)
		require.NoError(t, err)
		require.Len(t, entries, DefaultFeedCapacity, "feed must retain only the most recent entries")
		assert.Equal(t, "line 10", entries[0].Message)
		assert.Equal(t, fmt.Sprintf("line %d", DefaultFeedCapacity+9), entries[len(entries)-1].Message)
	})

	t.Run("Clear", func(t *testing.T) {
		feed.Log(domain.NewLogEntry(domain.LogSuccess, "", "done"))
		require.NoError(t, feed.Clear(ctx))

		entries, err := feed.Recent(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}
