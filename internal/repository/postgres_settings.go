package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// PostgresCustomerSettingsRepository stores tree snapshots in the
// customer_settings table (customer_id, tbtoken, tree, tree_updated).
type PostgresCustomerSettingsRepository struct {
	db *sql.DB
}

func NewPostgresCustomerSettingsRepository(db *sql.DB) *PostgresCustomerSettingsRepository {
	return &PostgresCustomerSettingsRepository{db: db}
}

var _ CustomerSettingsRepository = (*PostgresCustomerSettingsRepository)(nil)

// SaveTree upserts with an explicit UPDATE-then-INSERT inside one
// transaction: the settings row carries columns owned by other parts
// of the system (tbtoken among them), so a blind INSERT .. ON CONFLICT
// replacing the row is not an option.
func (r *PostgresCustomerSettingsRepository) SaveTree(ctx context.Context, customerID string, tree json.RawMessage) error {
	if customerID == "" {
		return fmt.Errorf("customer_id is required")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save tree: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE customer_settings
		SET tree = $1, tree_updated = NOW()
		WHERE customer_id = $2
	`, string(tree), customerID)
	if err != nil {
		return fmt.Errorf("update tree: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update tree: %w", err)
	}
	if rows == 0 {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO customer_settings (customer_id, tree, tree_updated)
			VALUES ($1, $2, NOW())
		`, customerID, string(tree)); err != nil {
			return fmt.Errorf("insert tree: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save tree: %w", err)
	}
	return nil
}

func (r *PostgresCustomerSettingsRepository) GetTree(ctx context.Context, customerID string) (*TreeSnapshot, error) {
	if customerID == "" {
		return nil, fmt.Errorf("customer_id is required")
	}

	var (
		tree    sql.NullString
		updated sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT tree, tree_updated
		FROM customer_settings
		WHERE customer_id = $1
	`, customerID).Scan(&tree, &updated)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("tree for customer %s: %w", customerID, ErrNotFound)
		}
		return nil, fmt.Errorf("get tree: %w", err)
	}
	if !tree.Valid || tree.String == "" {
		return nil, fmt.Errorf("tree for customer %s: %w", customerID, ErrNotFound)
	}

	snapshot := &TreeSnapshot{
		CustomerID: customerID,
		Tree:       json.RawMessage(tree.String),
	}
	if updated.Valid {
		snapshot.UpdatedAt = updated.Time
	}
	return snapshot, nil
}

func (r *PostgresCustomerSettingsRepository) GetToken(ctx context.Context, customerID string) (string, error) {
	if customerID == "" {
		return "", fmt.Errorf("customer_id is required")
	}

	var token sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT tbtoken
		FROM customer_settings
		WHERE customer_id = $1
	`, customerID).Scan(&token)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", fmt.Errorf("token for customer %s: %w", customerID, ErrNotFound)
		}
		return "", fmt.Errorf("get token: %w", err)
	}
	if !token.Valid || strings.TrimSpace(token.String) == "" {
		return "", fmt.Errorf("token for customer %s: %w", customerID, ErrNotFound)
	}
	return strings.TrimSpace(token.String), nil
}
