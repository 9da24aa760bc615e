package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/alert-dashboard/internal/repository"
)

// GetPriority returns the stored order, or an empty slice if none was set.
func (db *DB) GetPriority(ctx context.Context, userID int64) ([]string, error) {
	var raw string
	err := db.conn.QueryRowContext(ctx,
		`SELECT tickers FROM priorities WHERE user_id = ?`,
		userID,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("sqlite: getting priority for %d: %w", userID, err)
	}

	tickers, err := repository.DecodeTickers([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("sqlite: priority for %d: %w", userID, err)
	}
	return tickers, nil
}

// SetPriority replaces the whole list.
func (db *DB) SetPriority(ctx context.Context, userID int64, tickers []string) error {
	raw, err := repository.EncodeTickers(tickers)
	if err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO priorities (user_id, tickers, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET
		     tickers    = excluded.tickers,
		     updated_at = excluded.updated_at`,
		userID,
		string(raw),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: setting priority for %d: %w", userID, err)
	}
	return nil
}
