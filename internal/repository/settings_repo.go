package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when a customer has no settings row, no
// stored tree, or no stored token.
var ErrNotFound = errors.New("not found")

// TreeSnapshot is the persisted structure tree of one customer.
type TreeSnapshot struct {
	CustomerID string
	Tree       json.RawMessage
	UpdatedAt  time.Time
}

// CustomerSettingsRepository persists the per-customer structure
// snapshot and resolves the customer's platform token.
type CustomerSettingsRepository interface {
	// SaveTree overwrites the customer's tree snapshot. The previous
	// snapshot stays untouched when the write fails.
	SaveTree(ctx context.Context, customerID string, tree json.RawMessage) error
	// GetTree returns the last persisted snapshot.
	GetTree(ctx context.Context, customerID string) (*TreeSnapshot, error)
	// GetToken returns the customer's stored ThingsBoard token.
	GetToken(ctx context.Context, customerID string) (string, error)
}
