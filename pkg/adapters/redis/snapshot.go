package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/patchbay/pkg/domain"
	"github.com/aretw0/patchbay/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// ErrStaleSnapshot is returned when saving a version older than the stored one.
var ErrStaleSnapshot = errors.New("snapshot is older than the stored one")

const lockTTL = 5 * time.Second

// SnapshotStore keeps one patch under a key shared by several processes.
// It implements ports.SnapshotStore. Writes are serialized with a lock and
// never move the stored version backwards.
type SnapshotStore struct {
	client *backend.Client
	prefix string
	name   string
	locker ports.DistributedLocker
}

// NewSnapshotStore stores the patch called name.
func NewSnapshotStore(client *backend.Client, name string) *SnapshotStore {
	return &SnapshotStore{
		client: client,
		prefix: defaultPrefix,
		name:   name,
		locker: NewLocker(client, defaultPrefix),
	}
}

func (s *SnapshotStore) key() string {
	return s.prefix + "patch:" + s.name
}

// Save writes snap unless a newer version is already stored.
func (s *SnapshotStore) Save(ctx context.Context, snap *domain.Snapshot) error {
	unlock, err := s.locker.Lock(ctx, "patch:"+s.name, lockTTL)
	if err != nil {
		return err
	}
	defer unlock(context.WithoutCancel(ctx))

	current, err := s.Load(ctx)
	if err != nil {
		return err
	}
	if current.Version > snap.Version {
		return fmt.Errorf("%w: stored %d, got %d", ErrStaleSnapshot, current.Version, snap.Version)
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.key(), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Load reads the stored patch. A missing key yields an empty patch.
func (s *SnapshotStore) Load(ctx context.Context) (*domain.Snapshot, error) {
	val, err := s.client.Get(ctx, s.key()).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return &domain.Snapshot{}, nil
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal([]byte(val), &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}
