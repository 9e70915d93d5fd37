// Package file persists patches and node previews on the local filesystem.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aretw0/patchbay/pkg/domain"
)

// DefaultSnapshotPath is where a session snapshot is kept when no path is given.
var DefaultSnapshotPath = filepath.Join(".patchbay", "snapshot.json")

// SnapshotStore saves and loads a whole patch as a JSON document.
// It implements ports.SnapshotSource.
type SnapshotStore struct {
	Path string
}

// NewSnapshotStore creates a store at path, or DefaultSnapshotPath when empty.
func NewSnapshotStore(path string) *SnapshotStore {
	if path == "" {
		path = DefaultSnapshotPath
	}
	return &SnapshotStore{Path: path}
}

// Save writes the snapshot, replacing the previous file atomically.
func (s *SnapshotStore) Save(ctx context.Context, snap *domain.Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0755); err != nil {
		return fmt.Errorf("failed to ensure snapshot directory: %w", err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot file: %w", err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		return fmt.Errorf("failed to replace snapshot file: %w", err)
	}
	return nil
}

// Load reads the snapshot. A missing file yields an empty patch.
func (s *SnapshotStore) Load(ctx context.Context) (*domain.Snapshot, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return &domain.Snapshot{}, nil
		}
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}
