package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sakif/alert-dashboard/internal/model"
	"github.com/sakif/alert-dashboard/internal/repository"
)

func (db *DB) ListAlerts(ctx context.Context, userID int64) ([]model.AlertRule, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT user_id, ticker, drop_pct::text, enabled, updated_at
		 FROM alert_rules
		 WHERE user_id = $1
		 ORDER BY ticker ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing alerts for %d: %w", userID, err)
	}
	defer rows.Close()

	rules := []model.AlertRule{}
	for rows.Next() {
		var (
			r    model.AlertRule
			drop string
		)
		if err := rows.Scan(&r.UserID, &r.Ticker, &drop, &r.Enabled, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scanning alert row: %w", err)
		}
		if r.DropPct, err = parseNumeric(drop); err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating alerts: %w", err)
	}
	return rules, nil
}

func (db *DB) UpsertAlert(ctx context.Context, rule *model.AlertRule) error {
	err := db.pool.QueryRow(ctx,
		`INSERT INTO alert_rules (user_id, ticker, drop_pct, enabled)
		 VALUES ($1, $2, $3::numeric, $4)
		 ON CONFLICT (user_id, ticker) DO UPDATE SET
		     drop_pct   = EXCLUDED.drop_pct,
		     enabled    = EXCLUDED.enabled,
		     updated_at = now()
		 RETURNING updated_at`,
		rule.UserID, rule.Ticker, rule.DropPct.String(), rule.Enabled,
	).Scan(&rule.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres: upserting alert %s for %d: %w", rule.Ticker, rule.UserID, err)
	}
	return nil
}

func (db *DB) DeleteAlert(ctx context.Context, userID int64, ticker string) error {
	return db.deleteByKey(ctx, "alert_rules", userID, ticker)
}

func (db *DB) ListDca(ctx context.Context, userID int64) ([]model.DcaRule, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT user_id, ticker, levels, updated_at
		 FROM dca_rules
		 WHERE user_id = $1
		 ORDER BY ticker ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing dca rules for %d: %w", userID, err)
	}
	defer rows.Close()

	rules := []model.DcaRule{}
	for rows.Next() {
		var (
			r   model.DcaRule
			raw []byte
		)
		if err := rows.Scan(&r.UserID, &r.Ticker, &raw, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scanning dca row: %w", err)
		}
		if r.Levels, err = repository.DecodeLevels(raw); err != nil {
			return nil, fmt.Errorf("postgres: dca rule %s: %w", r.Ticker, err)
		}
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating dca rules: %w", err)
	}
	return rules, nil
}

// UpsertDca stores the ladder as a JSONB array. JSONB keeps array element
// order, so levels come back in the order they were written.
func (db *DB) UpsertDca(ctx context.Context, rule *model.DcaRule) error {
	levels, err := repository.EncodeLevels(rule.Levels)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}

	err = db.pool.QueryRow(ctx,
		`INSERT INTO dca_rules (user_id, ticker, levels)
		 VALUES ($1, $2, $3::jsonb)
		 ON CONFLICT (user_id, ticker) DO UPDATE SET
		     levels     = EXCLUDED.levels,
		     updated_at = now()
		 RETURNING updated_at`,
		rule.UserID, rule.Ticker, string(levels),
	).Scan(&rule.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres: upserting dca %s for %d: %w", rule.Ticker, rule.UserID, err)
	}
	return nil
}

func (db *DB) DeleteDca(ctx context.Context, userID int64, ticker string) error {
	return db.deleteByKey(ctx, "dca_rules", userID, ticker)
}

func (db *DB) ListPlan(ctx context.Context, userID int64) ([]model.PlanItem, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT user_id, ticker, amount::text, updated_at
		 FROM plan_items
		 WHERE user_id = $1
		 ORDER BY ticker ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing plan for %d: %w", userID, err)
	}

	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.PlanItem, error) {
		var (
			it     model.PlanItem
			amount string
		)
		if err := row.Scan(&it.UserID, &it.Ticker, &amount, &it.UpdatedAt); err != nil {
			return it, err
		}
		d, perr := parseNumeric(amount)
		it.Amount = d
		return it, perr
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: reading plan rows: %w", err)
	}
	if items == nil {
		items = []model.PlanItem{}
	}
	return items, nil
}

func (db *DB) UpsertPlanItem(ctx context.Context, item *model.PlanItem) error {
	err := db.pool.QueryRow(ctx,
		`INSERT INTO plan_items (user_id, ticker, amount)
		 VALUES ($1, $2, $3::numeric)
		 ON CONFLICT (user_id, ticker) DO UPDATE SET
		     amount     = EXCLUDED.amount,
		     updated_at = now()
		 RETURNING updated_at`,
		item.UserID, item.Ticker, item.Amount.String(),
	).Scan(&item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres: upserting plan line %s for %d: %w", item.Ticker, item.UserID, err)
	}
	return nil
}

func (db *DB) DeletePlanItem(ctx context.Context, userID int64, ticker string) error {
	return db.deleteByKey(ctx, "plan_items", userID, ticker)
}

// deleteByKey removes one (user_id, ticker) row. table is always one of the
// constant names above, never user input.
func (db *DB) deleteByKey(ctx context.Context, table string, userID int64, ticker string) error {
	_, err := db.pool.Exec(ctx,
		`DELETE FROM `+table+` WHERE user_id = $1 AND ticker = $2`,
		userID, ticker,
	)
	if err != nil {
		return fmt.Errorf("postgres: deleting %s %s for %d: %w", table, ticker, userID, err)
	}
	return nil
}
