// Package repository declares the storage contract the service layer talks to.
//
// Every write method is a single atomic insert-or-replace (or delete) keyed
// by the natural key of the record, so repeating a call with the same input
// leaves the same stored state and two racing writers end in
// last-write-wins without mixing fields.
package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/sakif/alert-dashboard/internal/model"
)

type ProfileRepository interface {
	// TouchProfile creates the profile with zero budgets if it does not
	// exist and overwrites the username/name fields either way.
	TouchProfile(ctx context.Context, p model.Profile) error
	// GetProfile returns apperror.ErrNotFound if the user has no row.
	GetProfile(ctx context.Context, userID int64) (*model.Profile, error)
	SetBudgets(ctx context.Context, userID int64, weekly, dip decimal.Decimal) error
}

type AlertRepository interface {
	// ListAlerts returns the user's rules ordered by ticker ascending.
	ListAlerts(ctx context.Context, userID int64) ([]model.AlertRule, error)
	UpsertAlert(ctx context.Context, rule *model.AlertRule) error
	// DeleteAlert is a no-op when the rule does not exist.
	DeleteAlert(ctx context.Context, userID int64, ticker string) error
}

type DcaRepository interface {
	ListDca(ctx context.Context, userID int64) ([]model.DcaRule, error)
	UpsertDca(ctx context.Context, rule *model.DcaRule) error
	DeleteDca(ctx context.Context, userID int64, ticker string) error
}

type PlanRepository interface {
	ListPlan(ctx context.Context, userID int64) ([]model.PlanItem, error)
	UpsertPlanItem(ctx context.Context, item *model.PlanItem) error
	DeletePlanItem(ctx context.Context, userID int64, ticker string) error
}

type PriorityRepository interface {
	// GetPriority returns an empty, non-nil slice when nothing is stored.
	GetPriority(ctx context.Context, userID int64) ([]string, error)
	SetPriority(ctx context.Context, userID int64, tickers []string) error
}

// ConfigRepository is everything the dashboard stores for a user.
// Both repository/sqlite and repository/postgres implement it.
type ConfigRepository interface {
	ProfileRepository
	AlertRepository
	DcaRepository
	PlanRepository
	PriorityRepository

	Ping(ctx context.Context) error
	Close() error
}
