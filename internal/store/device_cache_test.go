package store_test

import (
	"context"
	"errors"
	"testing"

	"heatmanager-data/internal/domain"
	"heatmanager-data/internal/store"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testDevice(id, name string) *domain.DeviceInfo {
	return &domain.DeviceInfo{
		ID:    domain.EntityID{ID: id, EntityType: domain.EntityTypeDevice},
		Name:  name,
		Type:  "thermostat",
		Label: name,
	}
}

func TestDeviceCache_PutThenGet(t *testing.T) {
	kv := newFakeKV()
	cache := store.NewDeviceCache(kv, zap.NewNop())
	ctx := context.Background()

	cache.Put(ctx, testDevice("dev-1", "Thermostat EG"))

	got, ok := cache.Get(ctx, "dev-1")
	require.True(t, ok)
	require.Equal(t, "dev-1", got.ID.ID)
	require.Equal(t, "Thermostat EG", got.Name)
}

func TestDeviceCache_MissOnUnknownDevice(t *testing.T) {
	cache := store.NewDeviceCache(newFakeKV(), zap.NewNop())

	_, ok := cache.Get(context.Background(), "dev-unknown")
	require.False(t, ok)
}

func TestDeviceCache_FailureIsAMiss(t *testing.T) {
	kv := newFakeKV()
	kv.err = errors.New("connection refused")
	cache := store.NewDeviceCache(kv, zap.NewNop())
	ctx := context.Background()

	cache.Put(ctx, testDevice("dev-1", "Thermostat EG"))
	_, ok := cache.Get(ctx, "dev-1")
	require.False(t, ok)
}

func TestDeviceCache_CorruptEntryDropped(t *testing.T) {
	kv := newFakeKV()
	cache := store.NewDeviceCache(kv, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "tb:device:dev-1", "{not json", 0))

	_, ok := cache.Get(ctx, "dev-1")
	require.False(t, ok)

	_, err := kv.Get(ctx, "tb:device:dev-1")
	require.ErrorIs(t, err, store.ErrMiss)
}

func TestDeviceCache_NilCacheIsNoop(t *testing.T) {
	cache := store.NewDeviceCache(nil, zap.NewNop())
	ctx := context.Background()

	cache.Put(ctx, testDevice("dev-1", "Thermostat EG"))
	_, ok := cache.Get(ctx, "dev-1")
	require.False(t, ok)
	cache.Invalidate(ctx, "dev-1")
}
