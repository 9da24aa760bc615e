package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/sakif/alert-dashboard/internal/model"
	"github.com/sakif/alert-dashboard/internal/repository"
)

// ListAlerts returns the user's alert rules ordered by ticker.
func (db *DB) ListAlerts(ctx context.Context, userID int64) ([]model.AlertRule, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT user_id, ticker, drop_pct, enabled, updated_at
		 FROM alert_rules
		 WHERE user_id = ?
		 ORDER BY ticker ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing alerts for %d: %w", userID, err)
	}
	defer rows.Close()

	rules := []model.AlertRule{}
	for rows.Next() {
		var r model.AlertRule
		if err := rows.Scan(&r.UserID, &r.Ticker, &r.DropPct, &r.Enabled, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning alert row: %w", err)
		}
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating alerts: %w", err)
	}

	return rules, nil
}

// UpsertAlert inserts the rule or fully replaces drop_pct/enabled of the
// existing (user_id, ticker) row.
func (db *DB) UpsertAlert(ctx context.Context, rule *model.AlertRule) error {
	rule.UpdatedAt = time.Now().UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO alert_rules (user_id, ticker, drop_pct, enabled, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, ticker) DO UPDATE SET
		     drop_pct   = excluded.drop_pct,
		     enabled    = excluded.enabled,
		     updated_at = excluded.updated_at`,
		rule.UserID,
		rule.Ticker,
		rule.DropPct.String(),
		rule.Enabled,
		rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: upserting alert %s for %d: %w", rule.Ticker, rule.UserID, err)
	}
	return nil
}

// DeleteAlert removes the rule. Deleting a missing rule is not an error.
func (db *DB) DeleteAlert(ctx context.Context, userID int64, ticker string) error {
	_, err := db.conn.ExecContext(ctx,
		`DELETE FROM alert_rules WHERE user_id = ? AND ticker = ?`,
		userID, ticker,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting alert %s for %d: %w", ticker, userID, err)
	}
	return nil
}

// ListDca returns the user's DCA ladders ordered by ticker.
func (db *DB) ListDca(ctx context.Context, userID int64) ([]model.DcaRule, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT user_id, ticker, levels, updated_at
		 FROM dca_rules
		 WHERE user_id = ?
		 ORDER BY ticker ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing dca rules for %d: %w", userID, err)
	}
	defer rows.Close()

	rules := []model.DcaRule{}
	for rows.Next() {
		var (
			r   model.DcaRule
			raw string
		)
		if err := rows.Scan(&r.UserID, &r.Ticker, &raw, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning dca row: %w", err)
		}
		if r.Levels, err = repository.DecodeLevels([]byte(raw)); err != nil {
			return nil, fmt.Errorf("sqlite: dca rule %s: %w", r.Ticker, err)
		}
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating dca rules: %w", err)
	}

	return rules, nil
}

// UpsertDca replaces the whole ladder for (user_id, ticker) in one statement.
func (db *DB) UpsertDca(ctx context.Context, rule *model.DcaRule) error {
	levels, err := repository.EncodeLevels(rule.Levels)
	if err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}
	rule.UpdatedAt = time.Now().UTC()

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO dca_rules (user_id, ticker, levels, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (user_id, ticker) DO UPDATE SET
		     levels     = excluded.levels,
		     updated_at = excluded.updated_at`,
		rule.UserID,
		rule.Ticker,
		string(levels),
		rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: upserting dca %s for %d: %w", rule.Ticker, rule.UserID, err)
	}
	return nil
}

func (db *DB) DeleteDca(ctx context.Context, userID int64, ticker string) error {
	_, err := db.conn.ExecContext(ctx,
		`DELETE FROM dca_rules WHERE user_id = ? AND ticker = ?`,
		userID, ticker,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting dca %s for %d: %w", ticker, userID, err)
	}
	return nil
}

// ListPlan returns the Monday plan lines ordered by ticker.
func (db *DB) ListPlan(ctx context.Context, userID int64) ([]model.PlanItem, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT user_id, ticker, amount, updated_at
		 FROM plan_items
		 WHERE user_id = ?
		 ORDER BY ticker ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing plan for %d: %w", userID, err)
	}
	defer rows.Close()

	items := []model.PlanItem{}
	for rows.Next() {
		var it model.PlanItem
		if err := rows.Scan(&it.UserID, &it.Ticker, &it.Amount, &it.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning plan row: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating plan: %w", err)
	}

	return items, nil
}

func (db *DB) UpsertPlanItem(ctx context.Context, item *model.PlanItem) error {
	item.UpdatedAt = time.Now().UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO plan_items (user_id, ticker, amount, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (user_id, ticker) DO UPDATE SET
		     amount     = excluded.amount,
		     updated_at = excluded.updated_at`,
		item.UserID,
		item.Ticker,
		item.Amount.String(),
		item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: upserting plan line %s for %d: %w", item.Ticker, item.UserID, err)
	}
	return nil
}

func (db *DB) DeletePlanItem(ctx context.Context, userID int64, ticker string) error {
	_, err := db.conn.ExecContext(ctx,
		`DELETE FROM plan_items WHERE user_id = ? AND ticker = ?`,
		userID, ticker,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting plan line %s for %d: %w", ticker, userID, err)
	}
	return nil
}
