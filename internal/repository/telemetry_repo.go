package repository

import (
	"context"

	"heatmanager-data/internal/domain"
)

// Telemetry keys the dashboard aggregation reads.
const (
	KeySensorTemperature = "sensorTemperature"
	KeyRelativeHumidity  = "relativeHumidity"
	KeyTargetTemperature = "targetTemperature"
)

// LatestTelemetryRepository reads the newest per-key value of an
// entity from the platform's reporting tables. A missing key or an
// entity without data yields (nil, nil): absence is expected, not an
// error.
type LatestTelemetryRepository interface {
	Latest(ctx context.Context, entityID, key string) (*domain.Value, error)
}
