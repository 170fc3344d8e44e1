package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"heatmanager-data/internal/domain"
)

// PostgresLatestTelemetryRepository reads ThingsBoard's ts_kv tables.
// ts_kv_dictionary maps key names to numeric ids; ts_kv stores one
// typed column per value kind, exactly one of which is non-NULL.
type PostgresLatestTelemetryRepository struct {
	db *sql.DB

	mu     sync.Mutex
	keyIDs map[string]int64 // dictionary ids are immutable once assigned
}

func NewPostgresLatestTelemetryRepository(db *sql.DB) *PostgresLatestTelemetryRepository {
	return &PostgresLatestTelemetryRepository{db: db, keyIDs: make(map[string]int64)}
}

var _ LatestTelemetryRepository = (*PostgresLatestTelemetryRepository)(nil)

func (r *PostgresLatestTelemetryRepository) keyID(ctx context.Context, key string) (int64, bool, error) {
	r.mu.Lock()
	id, ok := r.keyIDs[key]
	r.mu.Unlock()
	if ok {
		return id, true, nil
	}

	err := r.db.QueryRowContext(ctx, `
		SELECT key_id
		FROM ts_kv_dictionary
		WHERE key = $1
		LIMIT 1
	`, key).Scan(&id)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("lookup key %q: %w", key, err)
	}

	r.mu.Lock()
	r.keyIDs[key] = id
	r.mu.Unlock()
	return id, true, nil
}

func (r *PostgresLatestTelemetryRepository) Latest(ctx context.Context, entityID, key string) (*domain.Value, error) {
	keyID, ok, err := r.keyID(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	var (
		boolV sql.NullBool
		strV  sql.NullString
		longV sql.NullInt64
		dblV  sql.NullFloat64
		jsonV sql.NullString
	)
	err = r.db.QueryRowContext(ctx, `
		SELECT bool_v, str_v, long_v, dbl_v, json_v
		FROM ts_kv
		WHERE entity_id = $1
		  AND key = $2
		ORDER BY ts DESC
		LIMIT 1
	`, entityID, keyID).Scan(&boolV, &strV, &longV, &dblV, &jsonV)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("latest %q for %s: %w", key, entityID, err)
	}

	switch {
	case boolV.Valid:
		v := domain.BoolValue(boolV.Bool)
		return &v, nil
	case strV.Valid:
		v := domain.StringValue(strV.String)
		return &v, nil
	case longV.Valid:
		v := domain.LongValue(longV.Int64)
		return &v, nil
	case dblV.Valid:
		v := domain.DoubleValue(dblV.Float64)
		return &v, nil
	case jsonV.Valid:
		v := domain.JSONValue(json.RawMessage(jsonV.String))
		return &v, nil
	}
	// row exists but every column is NULL; treat as absent
	return nil, nil
}
