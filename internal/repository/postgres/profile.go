package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/sakif/alert-dashboard/internal/apperror"
	"github.com/sakif/alert-dashboard/internal/model"
)

// TouchProfile upserts the name fields only; budgets keep their values.
func (db *DB) TouchProfile(ctx context.Context, p model.Profile) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO profiles (user_id, username, first_name, last_name)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id) DO UPDATE SET
		     username   = EXCLUDED.username,
		     first_name = EXCLUDED.first_name,
		     last_name  = EXCLUDED.last_name,
		     updated_at = now()`,
		p.UserID, p.Username, p.FirstName, p.LastName,
	)
	if err != nil {
		return fmt.Errorf("postgres: touching profile %d: %w", p.UserID, err)
	}
	return nil
}

func (db *DB) GetProfile(ctx context.Context, userID int64) (*model.Profile, error) {
	var (
		p           model.Profile
		weekly, dip string
	)
	err := db.pool.QueryRow(ctx,
		`SELECT user_id, username, first_name, last_name,
		        weekly_budget::text, dip_budget::text, created_at, updated_at
		 FROM profiles WHERE user_id = $1`,
		userID,
	).Scan(&p.UserID, &p.Username, &p.FirstName, &p.LastName, &weekly, &dip, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("profile", strconv.FormatInt(userID, 10))
		}
		return nil, fmt.Errorf("postgres: getting profile %d: %w", userID, err)
	}

	if p.WeeklyBudget, err = parseNumeric(weekly); err != nil {
		return nil, err
	}
	if p.DipBudget, err = parseNumeric(dip); err != nil {
		return nil, err
	}
	return &p, nil
}

// SetBudgets writes both budgets in a single statement.
func (db *DB) SetBudgets(ctx context.Context, userID int64, weekly, dip decimal.Decimal) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO profiles (user_id, weekly_budget, dip_budget)
		 VALUES ($1, $2::numeric, $3::numeric)
		 ON CONFLICT (user_id) DO UPDATE SET
		     weekly_budget = EXCLUDED.weekly_budget,
		     dip_budget    = EXCLUDED.dip_budget,
		     updated_at    = now()`,
		userID, weekly.String(), dip.String(),
	)
	if err != nil {
		return fmt.Errorf("postgres: setting budgets for %d: %w", userID, err)
	}
	return nil
}
