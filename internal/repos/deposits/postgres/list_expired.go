package postgres

import (
	"context"
	"fmt"
	"time"
)

// ListExpired returns candidates only; callers re-check under the row lock.
func (r *depositsRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id
		FROM deposit_requests
		WHERE status = 'PENDING' AND expires_at <= $1
		ORDER BY expires_at
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list expired deposits: %w", err)
	}
	//nolint:errcheck
	defer rows.Close()

	var out []string

	for rows.Next() {
		var id string

		err = rows.Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("scan deposit id: %w", err)
		}

		out = append(out, id)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate expired deposits: %w", err)
	}

	return out, nil
}
