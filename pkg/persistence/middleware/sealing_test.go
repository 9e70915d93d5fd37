package middleware_test

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"io"
	"strings"
	"testing"

	"github.com/aretw0/patchbay/pkg/adapters/memory"
	"github.com/aretw0/patchbay/pkg/domain"
	"github.com/aretw0/patchbay/pkg/persistence/middleware"
	"github.com/aretw0/patchbay/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is a SnapshotStore over a memory source.
type memStore struct{ *memory.Source }

func (s memStore) Save(_ context.Context, snap *domain.Snapshot) error {
	s.Set(snap)
	return nil
}

func newStore() memStore {
	return memStore{memory.NewSource(&domain.Snapshot{})}
}

func generateKey(t *testing.T) []byte {
	k := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, k); err != nil {
		t.Fatal(err)
	}
	return k
}

func seal(t *testing.T, next ports.SnapshotStore, active []byte, fallback ...[]byte) ports.SnapshotStore {
	t.Helper()
	mw, err := middleware.NewSealingMiddleware(middleware.SealingConfig{ActiveKey: active, FallbackKeys: fallback})
	require.NoError(t, err)
	return mw(next)
}

func patch(script string) *domain.Snapshot {
	return &domain.Snapshot{
		Version: 7,
		Nodes:   []domain.Node{{ID: "n", DefinitionID: "TEX_NOISE", Script: script, Params: map[string]float64{"k": 1}}},
	}
}

func TestSealingMiddleware_Roundtrip(t *testing.T) {
	ctx := context.Background()
	underlying := newStore()
	secure := seal(t, underlying, generateKey(t))

	require.NoError(t, secure.Save(ctx, patch("return 'my-secret-sauce'")))

	stored, err := underlying.Load(ctx)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stored.Nodes[0].Script, middleware.SealedPrefix))
	assert.NotContains(t, stored.Nodes[0].Script, "secret")
	assert.Equal(t, uint64(7), stored.Version, "version stays readable")
	assert.Equal(t, 1.0, stored.Nodes[0].Params["k"])

	loaded, err := secure.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "return 'my-secret-sauce'", loaded.Nodes[0].Script)
}

func TestSealingMiddleware_KeyRotation(t *testing.T) {
	ctx := context.Background()
	underlying := newStore()
	oldKey, newKey := generateKey(t), generateKey(t)

	require.NoError(t, seal(t, underlying, oldKey).Save(ctx, patch("old")))

	rotated := seal(t, underlying, newKey, oldKey)
	loaded, err := rotated.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "old", loaded.Nodes[0].Script)

	require.NoError(t, rotated.Save(ctx, patch("new")))
	_, err = seal(t, underlying, oldKey).Load(ctx)
	assert.Error(t, err, "old key alone cannot open scripts sealed with the new key")
}

func TestSealingMiddleware_RejectsPlainScripts(t *testing.T) {
	ctx := context.Background()
	underlying := newStore()
	require.NoError(t, underlying.Save(ctx, patch("return 1")))

	_, err := seal(t, underlying, generateKey(t)).Load(ctx)
	assert.ErrorIs(t, err, middleware.ErrNotSealed)
}

func TestSealingMiddleware_EmptyStore(t *testing.T) {
	snap, err := seal(t, newStore(), generateKey(t)).Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Nodes)
}

func TestNewSealingMiddleware_InvalidKey(t *testing.T) {
	_, err := middleware.NewSealingMiddleware(middleware.SealingConfig{ActiveKey: []byte("short-key")})
	assert.Error(t, err)
}

func TestParseKey(t *testing.T) {
	key := generateKey(t)
	got, err := middleware.ParseKey(base64.StdEncoding.EncodeToString(key))
	require.NoError(t, err)
	assert.Equal(t, key, got)

	_, err = middleware.ParseKey("c2hvcnQ=")
	assert.Error(t, err)
}

func TestChain(t *testing.T) {
	var order []string
	tag := func(name string) middleware.Middleware {
		return func(next ports.SnapshotStore) ports.SnapshotStore {
			return tagged{next, func() { order = append(order, name) }}
		}
	}
	store := middleware.Chain(newStore(), tag("outer"), tag("inner"))
	require.NoError(t, store.Save(context.Background(), patch("x")))
	assert.Equal(t, []string{"outer", "inner"}, order)
}

type tagged struct {
	ports.SnapshotStore
	mark func()
}

func (s tagged) Save(ctx context.Context, snap *domain.Snapshot) error {
	s.mark()
	return s.SnapshotStore.Save(ctx, snap)
}
