package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sakif/alert-dashboard/internal/repository"
)

func (db *DB) GetPriority(ctx context.Context, userID int64) ([]string, error) {
	var raw []byte
	err := db.pool.QueryRow(ctx,
		`SELECT tickers FROM priorities WHERE user_id = $1`,
		userID,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("postgres: getting priority for %d: %w", userID, err)
	}

	tickers, err := repository.DecodeTickers(raw)
	if err != nil {
		return nil, fmt.Errorf("postgres: priority for %d: %w", userID, err)
	}
	return tickers, nil
}

func (db *DB) SetPriority(ctx context.Context, userID int64, tickers []string) error {
	raw, err := repository.EncodeTickers(tickers)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO priorities (user_id, tickers)
		 VALUES ($1, $2::jsonb)
		 ON CONFLICT (user_id) DO UPDATE SET
		     tickers    = EXCLUDED.tickers,
		     updated_at = now()`,
		userID, string(raw),
	)
	if err != nil {
		return fmt.Errorf("postgres: setting priority for %d: %w", userID, err)
	}
	return nil
}
