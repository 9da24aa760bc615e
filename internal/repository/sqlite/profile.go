package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sakif/alert-dashboard/internal/apperror"
	"github.com/sakif/alert-dashboard/internal/model"
)

// TouchProfile makes sure the user has a profile row and mirrors the latest
// Telegram names into it.
//
// UPSERT IN ONE STATEMENT:
// INSERT ... ON CONFLICT(user_id) DO UPDATE runs atomically, so two first
// requests from the same user racing each other cannot both INSERT. Only the
// name columns are listed in DO UPDATE; budgets are left untouched.
//
// We avoid INSERT OR REPLACE here: REPLACE deletes the old row first, which
// would reset the budgets and cascade-delete the user's rules.
func (db *DB) TouchProfile(ctx context.Context, p model.Profile) error {
	now := time.Now().UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO profiles (user_id, username, first_name, last_name, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET
		     username   = excluded.username,
		     first_name = excluded.first_name,
		     last_name  = excluded.last_name,
		     updated_at = excluded.updated_at`,
		p.UserID,
		p.Username,
		p.FirstName,
		p.LastName,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("sqlite: touching profile %d: %w", p.UserID, err)
	}
	return nil
}

// GetProfile returns apperror.ErrNotFound if no profile exists for userID.
func (db *DB) GetProfile(ctx context.Context, userID int64) (*model.Profile, error) {
	var p model.Profile

	err := db.conn.QueryRowContext(ctx,
		`SELECT user_id, username, first_name, last_name, weekly_budget, dip_budget, created_at, updated_at
		 FROM profiles WHERE user_id = ?`,
		userID,
	).Scan(
		&p.UserID,
		&p.Username,
		&p.FirstName,
		&p.LastName,
		&p.WeeklyBudget,
		&p.DipBudget,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("profile", strconv.FormatInt(userID, 10))
		}
		return nil, fmt.Errorf("sqlite: getting profile %d: %w", userID, err)
	}

	return &p, nil
}

// SetBudgets writes both budgets in one statement, so concurrent calls end
// with one caller's pair, never one field from each.
func (db *DB) SetBudgets(ctx context.Context, userID int64, weekly, dip decimal.Decimal) error {
	now := time.Now().UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO profiles (user_id, weekly_budget, dip_budget, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET
		     weekly_budget = excluded.weekly_budget,
		     dip_budget    = excluded.dip_budget,
		     updated_at    = excluded.updated_at`,
		userID,
		weekly.String(),
		dip.String(),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("sqlite: setting budgets for %d: %w", userID, err)
	}
	return nil
}
