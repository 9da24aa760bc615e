// Package model defines the data structures used throughout the application.
// These shapes are also the contract with the alerting bot, which reads the
// same tables.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Profile is the per-user row, keyed by the Telegram user id.
//
// Username and the name fields mirror the most recent verified launch
// payload and are overwritten on every authenticated call. Telegram omits
// them for some accounts, so an empty string means "not provided".
type Profile struct {
	UserID       int64           `json:"userId"`
	Username     string          `json:"username"`
	FirstName    string          `json:"firstName"`
	LastName     string          `json:"lastName"`
	WeeklyBudget decimal.Decimal `json:"weeklyBudget"`
	DipBudget    decimal.Decimal `json:"dipBudget"`
	CreatedAt    time.Time       `json:"createdAt,omitzero"`
	UpdatedAt    time.Time       `json:"updatedAt,omitzero"`
}

// DefaultProfile is what a user sees before anything was stored.
func DefaultProfile(userID int64) Profile {
	return Profile{
		UserID:       userID,
		WeeklyBudget: decimal.Zero,
		DipBudget:    decimal.Zero,
	}
}
