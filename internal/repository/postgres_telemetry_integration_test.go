//go:build integration
// +build integration

package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"heatmanager-data/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func seedTelemetryKey(t *testing.T, db *sql.DB, key string) int64 {
	t.Helper()
	var keyID int64
	err := db.QueryRow(`SELECT key_id FROM ts_kv_dictionary WHERE key = $1`, key).Scan(&keyID)
	if err == sql.ErrNoRows {
		err = db.QueryRow(
			`INSERT INTO ts_kv_dictionary (key) VALUES ($1) RETURNING key_id`, key).Scan(&keyID)
	}
	require.NoError(t, err)
	return keyID
}

func TestPostgresLatestTelemetryRepository_LatestPicksNewestRow(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	repo := NewPostgresLatestTelemetryRepository(db)
	ctx := context.Background()
	entityID := uuid.NewString()
	keyID := seedTelemetryKey(t, db, KeySensorTemperature)
	defer db.Exec(`DELETE FROM ts_kv WHERE entity_id = $1`, entityID)

	now := time.Now().UnixMilli()
	_, err := db.Exec(
		`INSERT INTO ts_kv (entity_id, key, ts, dbl_v) VALUES ($1, $2, $3, $4)`,
		entityID, keyID, now-60_000, 19.5)
	require.NoError(t, err)
	_, err = db.Exec(
		`INSERT INTO ts_kv (entity_id, key, ts, dbl_v) VALUES ($1, $2, $3, $4)`,
		entityID, keyID, now, 21.3)
	require.NoError(t, err)

	value, err := repo.Latest(ctx, entityID, KeySensorTemperature)
	require.NoError(t, err)
	require.NotNil(t, value)
	require.Equal(t, domain.KindDouble, value.Kind)
	require.Equal(t, 21.3, value.Double)
}

func TestPostgresLatestTelemetryRepository_TypedColumns(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	repo := NewPostgresLatestTelemetryRepository(db)
	ctx := context.Background()
	entityID := uuid.NewString()
	keyID := seedTelemetryKey(t, db, KeyTargetTemperature)
	defer db.Exec(`DELETE FROM ts_kv WHERE entity_id = $1`, entityID)

	_, err := db.Exec(
		`INSERT INTO ts_kv (entity_id, key, ts, str_v) VALUES ($1, $2, $3, $4)`,
		entityID, keyID, time.Now().UnixMilli(), "21.5")
	require.NoError(t, err)

	value, err := repo.Latest(ctx, entityID, KeyTargetTemperature)
	require.NoError(t, err)
	require.NotNil(t, value)
	require.Equal(t, domain.KindString, value.Kind)

	f, ok := value.Float64()
	require.True(t, ok)
	require.Equal(t, 21.5, f)
}

func TestPostgresLatestTelemetryRepository_AbsenceIsNotAnError(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	repo := NewPostgresLatestTelemetryRepository(db)
	ctx := context.Background()

	// entity with no rows
	seedTelemetryKey(t, db, KeyRelativeHumidity)
	value, err := repo.Latest(ctx, uuid.NewString(), KeyRelativeHumidity)
	require.NoError(t, err)
	require.Nil(t, value)

	// key missing from the dictionary entirely
	value, err = repo.Latest(ctx, uuid.NewString(), "neverRecordedKey")
	require.NoError(t, err)
	require.Nil(t, value)
}
