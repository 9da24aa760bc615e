// Package service contains the business logic layer of the application.
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// ConfigService takes a repository.ConfigRepository (interface), not a
// concrete store, so tests pass a mock and main.go picks SQLite or Postgres.
//
// Every method takes the auth.Identity produced by the launch-data verifier.
// There is no method that accepts a bare user id: the only way to address a
// user's rows is to present a verified identity for that user.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sakif/alert-dashboard/internal/apperror"
	"github.com/sakif/alert-dashboard/internal/auth"
	"github.com/sakif/alert-dashboard/internal/model"
	"github.com/sakif/alert-dashboard/internal/repository"
)

// ConfigService manages a user's budgets, alerts, DCA ladders, Monday plan
// and priority list.
type ConfigService struct {
	repo   repository.ConfigRepository
	logger *slog.Logger
}

func NewConfigService(repo repository.ConfigRepository, logger *slog.Logger) *ConfigService {
	return &ConfigService{
		repo:   repo,
		logger: logger,
	}
}

// begin runs before every operation: it rejects identities that did not come
// out of the verifier and upserts the profile row, mirroring the latest
// Telegram names into it.
func (s *ConfigService) begin(ctx context.Context, id auth.Identity) error {
	if err := requireIdentity(id); err != nil {
		return err
	}

	err := s.repo.TouchProfile(ctx, model.Profile{
		UserID:    id.UserID,
		Username:  id.Username,
		FirstName: id.FirstName,
		LastName:  id.LastName,
	})
	if err != nil {
		return s.storageError(ctx, "loading profile", id.UserID, err)
	}
	return nil
}

func requireIdentity(id auth.Identity) error {
	if !id.Verified() || id.UserID <= 0 {
		return apperror.Unauthenticated(apperror.KindMissingInput, "request is not authenticated")
	}
	return nil
}

// storageError wraps a repository failure and logs it with the reference the
// client will see.
func (s *ConfigService) storageError(ctx context.Context, op string, userID int64, err error) error {
	appErr := apperror.Storage(op, err)
	s.logger.ErrorContext(ctx, "storage operation failed",
		slog.String("op", op),
		slog.Int64("user_id", userID),
		slog.String("ref", appErr.Ref),
		slog.String("error", err.Error()),
	)
	return appErr
}

// =========================================================================
// PROFILE & BUDGETS
// =========================================================================

// GetProfile returns the stored profile, or zero budgets if nothing was saved.
func (s *ConfigService) GetProfile(ctx context.Context, id auth.Identity) (model.Profile, error) {
	if err := s.begin(ctx, id); err != nil {
		return model.Profile{}, err
	}

	p, err := s.repo.GetProfile(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return model.DefaultProfile(id.UserID), nil
		}
		return model.Profile{}, s.storageError(ctx, "loading profile", id.UserID, err)
	}
	return *p, nil
}

// SetBudgets replaces both budgets. Both values are validated before anything
// is written.
func (s *ConfigService) SetBudgets(ctx context.Context, id auth.Identity, weekly, dip string) (model.Profile, error) {
	if err := requireIdentity(id); err != nil {
		return model.Profile{}, err
	}

	weeklyAmt, err := parseNonNegative("weekly", weekly)
	if err != nil {
		return model.Profile{}, err
	}
	dipAmt, err := parseNonNegative("dip", dip)
	if err != nil {
		return model.Profile{}, err
	}

	if err := s.begin(ctx, id); err != nil {
		return model.Profile{}, err
	}
	if err := s.repo.SetBudgets(ctx, id.UserID, weeklyAmt, dipAmt); err != nil {
		return model.Profile{}, s.storageError(ctx, "saving budgets", id.UserID, err)
	}

	s.logger.InfoContext(ctx, "budgets updated",
		slog.Int64("user_id", id.UserID),
		slog.String("weekly", weeklyAmt.String()),
		slog.String("dip", dipAmt.String()),
	)

	p, err := s.repo.GetProfile(ctx, id.UserID)
	if err != nil {
		return model.Profile{}, s.storageError(ctx, "loading profile", id.UserID, err)
	}
	return *p, nil
}

// =========================================================================
// ALERTS
// =========================================================================

// ListAlerts returns the user's alert rules sorted by ticker.
func (s *ConfigService) ListAlerts(ctx context.Context, id auth.Identity) ([]model.AlertRule, error) {
	if err := s.begin(ctx, id); err != nil {
		return nil, err
	}
	rules, err := s.repo.ListAlerts(ctx, id.UserID)
	if err != nil {
		return nil, s.storageError(ctx, "loading alerts", id.UserID, err)
	}
	return rules, nil
}

// UpsertAlert creates or fully replaces the rule for ticker.
func (s *ConfigService) UpsertAlert(ctx context.Context, id auth.Identity, ticker, dropPct string, enabled bool) (model.AlertRule, error) {
	if err := requireIdentity(id); err != nil {
		return model.AlertRule{}, err
	}

	ticker, err := normalizeTicker(ticker)
	if err != nil {
		return model.AlertRule{}, err
	}
	drop, err := parseNonNegative("drop_pct", dropPct)
	if err != nil {
		return model.AlertRule{}, err
	}

	if err := s.begin(ctx, id); err != nil {
		return model.AlertRule{}, err
	}

	rule := model.AlertRule{UserID: id.UserID, Ticker: ticker, DropPct: drop, Enabled: enabled}
	if err := s.repo.UpsertAlert(ctx, &rule); err != nil {
		return model.AlertRule{}, s.storageError(ctx, "saving alert", id.UserID, err)
	}

	s.logger.InfoContext(ctx, "alert saved",
		slog.Int64("user_id", id.UserID),
		slog.String("ticker", ticker),
		slog.String("drop_pct", drop.String()),
		slog.Bool("enabled", enabled),
	)
	return rule, nil
}

// DeleteAlert removes the rule for ticker; a missing rule is not an error.
func (s *ConfigService) DeleteAlert(ctx context.Context, id auth.Identity, ticker string) error {
	return s.deleteByTicker(ctx, id, ticker, "deleting alert", s.repo.DeleteAlert)
}

// =========================================================================
// DCA
// =========================================================================

func (s *ConfigService) ListDca(ctx context.Context, id auth.Identity) ([]model.DcaRule, error) {
	if err := s.begin(ctx, id); err != nil {
		return nil, err
	}
	rules, err := s.repo.ListDca(ctx, id.UserID)
	if err != nil {
		return nil, s.storageError(ctx, "loading dca rules", id.UserID, err)
	}
	return rules, nil
}

// UpsertDca replaces the whole ladder for ticker with the levels parsed from
// levelsText ("15:15 25:25 35:40"). A malformed token rejects the call and
// the stored ladder stays as it was.
func (s *ConfigService) UpsertDca(ctx context.Context, id auth.Identity, ticker, levelsText string) (model.DcaRule, error) {
	if err := requireIdentity(id); err != nil {
		return model.DcaRule{}, err
	}

	ticker, err := normalizeTicker(ticker)
	if err != nil {
		return model.DcaRule{}, err
	}
	levels, err := parseLevels(levelsText)
	if err != nil {
		return model.DcaRule{}, err
	}

	if err := s.begin(ctx, id); err != nil {
		return model.DcaRule{}, err
	}

	rule := model.DcaRule{UserID: id.UserID, Ticker: ticker, Levels: levels}
	if err := s.repo.UpsertDca(ctx, &rule); err != nil {
		return model.DcaRule{}, s.storageError(ctx, "saving dca rule", id.UserID, err)
	}

	s.logger.InfoContext(ctx, "dca rule saved",
		slog.Int64("user_id", id.UserID),
		slog.String("ticker", ticker),
		slog.Int("levels", len(levels)),
	)
	return rule, nil
}

func (s *ConfigService) DeleteDca(ctx context.Context, id auth.Identity, ticker string) error {
	return s.deleteByTicker(ctx, id, ticker, "deleting dca rule", s.repo.DeleteDca)
}

// =========================================================================
// MONDAY PLAN
// =========================================================================

// ListMondayPlan returns the plan lines and their total.
func (s *ConfigService) ListMondayPlan(ctx context.Context, id auth.Identity) (model.MondayPlan, error) {
	if err := s.begin(ctx, id); err != nil {
		return model.MondayPlan{}, err
	}
	items, err := s.repo.ListPlan(ctx, id.UserID)
	if err != nil {
		return model.MondayPlan{}, s.storageError(ctx, "loading monday plan", id.UserID, err)
	}
	return model.NewMondayPlan(items), nil
}

func (s *ConfigService) UpsertMondayPlanLine(ctx context.Context, id auth.Identity, ticker, amount string) (model.PlanItem, error) {
	if err := requireIdentity(id); err != nil {
		return model.PlanItem{}, err
	}

	ticker, err := normalizeTicker(ticker)
	if err != nil {
		return model.PlanItem{}, err
	}
	amt, err := parseNonNegative("amount", amount)
	if err != nil {
		return model.PlanItem{}, err
	}

	if err := s.begin(ctx, id); err != nil {
		return model.PlanItem{}, err
	}

	item := model.PlanItem{UserID: id.UserID, Ticker: ticker, Amount: amt}
	if err := s.repo.UpsertPlanItem(ctx, &item); err != nil {
		return model.PlanItem{}, s.storageError(ctx, "saving plan line", id.UserID, err)
	}

	s.logger.InfoContext(ctx, "plan line saved",
		slog.Int64("user_id", id.UserID),
		slog.String("ticker", ticker),
		slog.String("amount", amt.String()),
	)
	return item, nil
}

func (s *ConfigService) DeleteMondayPlanLine(ctx context.Context, id auth.Identity, ticker string) error {
	return s.deleteByTicker(ctx, id, ticker, "deleting plan line", s.repo.DeletePlanItem)
}

// =========================================================================
// PRIORITY
// =========================================================================

// GetPriority returns the ticker order, empty if never set.
func (s *ConfigService) GetPriority(ctx context.Context, id auth.Identity) ([]string, error) {
	if err := s.begin(ctx, id); err != nil {
		return nil, err
	}
	order, err := s.repo.GetPriority(ctx, id.UserID)
	if err != nil {
		return nil, s.storageError(ctx, "loading priority", id.UserID, err)
	}
	return order, nil
}

// SetPriority replaces the list with the tickers in orderText, upper-cased,
// in order, duplicates kept. Empty text clears the list.
func (s *ConfigService) SetPriority(ctx context.Context, id auth.Identity, orderText string) ([]string, error) {
	if err := s.begin(ctx, id); err != nil {
		return nil, err
	}

	order := parseOrder(orderText)
	if err := s.repo.SetPriority(ctx, id.UserID, order); err != nil {
		return nil, s.storageError(ctx, "saving priority", id.UserID, err)
	}

	s.logger.InfoContext(ctx, "priority saved",
		slog.Int64("user_id", id.UserID),
		slog.Int("tickers", len(order)),
	)
	return order, nil
}

// deleteByTicker is shared by the three keyed deletes.
func (s *ConfigService) deleteByTicker(
	ctx context.Context,
	id auth.Identity,
	rawTicker, op string,
	del func(ctx context.Context, userID int64, ticker string) error,
) error {
	if err := requireIdentity(id); err != nil {
		return err
	}
	ticker, err := normalizeTicker(rawTicker)
	if err != nil {
		return err
	}
	if err := s.begin(ctx, id); err != nil {
		return err
	}
	if err := del(ctx, id.UserID, ticker); err != nil {
		return s.storageError(ctx, op, id.UserID, err)
	}
	return nil
}
