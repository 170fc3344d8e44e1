package store

import (
	"context"
	"encoding/json"
	"time"

	"heatmanager-data/internal/domain"

	"go.uber.org/zap"
)

// DefaultDeviceTTL bounds how stale a cached device detail may get
// between synchronization runs.
const DefaultDeviceTTL = 5 * time.Minute

// DeviceCache keeps ThingsBoard device details in the KV store so a
// device referenced by many assets (or many runs in close succession)
// is fetched once. Every operation is best-effort: a cache failure is
// a miss, never an error.
type DeviceCache struct {
	kv     KV
	ttl    time.Duration
	logger *zap.Logger
}

func NewDeviceCache(kv KV, logger *zap.Logger) *DeviceCache {
	return &DeviceCache{kv: kv, ttl: DefaultDeviceTTL, logger: logger}
}

func deviceKey(deviceID string) string { return "tb:device:" + deviceID }

func (c *DeviceCache) Get(ctx context.Context, deviceID string) (*domain.DeviceInfo, bool) {
	if c == nil || c.kv == nil {
		return nil, false
	}
	raw, err := c.kv.Get(ctx, deviceKey(deviceID))
	if err != nil {
		if err != ErrMiss {
			c.logger.Debug("device cache get failed", zap.String("device_id", deviceID), zap.Error(err))
		}
		return nil, false
	}
	var device domain.DeviceInfo
	if err := json.Unmarshal([]byte(raw), &device); err != nil {
		c.logger.Warn("device cache entry corrupt, dropping", zap.String("device_id", deviceID), zap.Error(err))
		_ = c.kv.Delete(ctx, deviceKey(deviceID))
		return nil, false
	}
	return &device, true
}

func (c *DeviceCache) Put(ctx context.Context, device *domain.DeviceInfo) {
	if c == nil || c.kv == nil || device == nil || device.ID.ID == "" {
		return
	}
	raw, err := json.Marshal(device)
	if err != nil {
		return
	}
	if err := c.kv.Set(ctx, deviceKey(device.ID.ID), string(raw), c.ttl); err != nil {
		c.logger.Debug("device cache put failed", zap.String("device_id", device.ID.ID), zap.Error(err))
	}
}

func (c *DeviceCache) Invalidate(ctx context.Context, deviceID string) {
	if c == nil || c.kv == nil {
		return
	}
	_ = c.kv.Delete(ctx, deviceKey(deviceID))
}
