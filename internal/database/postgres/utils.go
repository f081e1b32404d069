// Package postgres implements the persistent repositories on PostgreSQL
// using raw SQL over pgx. JSON-shaped configuration is stored in JSONB
// columns and (un)marshalled explicitly at the boundary.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/syncline/syncline/internal/logger"
)

// SafeRollback rolls back a transaction and logs any error that isn't ErrTxClosed
func SafeRollback(ctx context.Context, tx pgx.Tx) {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		logger.FromContext(ctx).Error("Failed to rollback transaction", "error", err)
	}
}

// rowScanner is satisfied by both pgx.Row and pgx.Rows so single-row and
// multi-row queries share one scan function per repository.
type rowScanner interface {
	Scan(dest ...any) error
}

// marshalJSON marshals a value destined for a JSONB column. A nil value
// becomes the given empty literal so NOT NULL defaults stay intact.
func marshalJSON(v any, empty string) ([]byte, error) {
	if v == nil {
		return []byte(empty), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal jsonb value: %w", err)
	}
	return b, nil
}

// unmarshalJSON fills dest from a JSONB column, tolerating NULL
func unmarshalJSON(data []byte, dest any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dest)
}
