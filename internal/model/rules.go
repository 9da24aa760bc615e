package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AlertRule fires when Ticker drops DropPct percent. One per (user, ticker).
type AlertRule struct {
	UserID    int64           `json:"-"`
	Ticker    string          `json:"ticker"`
	DropPct   decimal.Decimal `json:"dropPct"`
	Enabled   bool            `json:"enabled"`
	UpdatedAt time.Time       `json:"updatedAt,omitzero"`
}

// DcaLevel buys Amount once the ticker is DropPct percent down.
type DcaLevel struct {
	DropPct decimal.Decimal `json:"dropPct"`
	Amount  decimal.Decimal `json:"amount"`
}

// DcaRule is an ordered ladder of levels. Levels keep the order the user
// typed them in; they are not sorted by drop.
type DcaRule struct {
	UserID    int64      `json:"-"`
	Ticker    string     `json:"ticker"`
	Levels    []DcaLevel `json:"levels"`
	UpdatedAt time.Time  `json:"updatedAt,omitzero"`
}

// PlanItem is one line of the weekly (Monday) fixed purchase plan.
type PlanItem struct {
	UserID    int64           `json:"-"`
	Ticker    string          `json:"ticker"`
	Amount    decimal.Decimal `json:"amount"`
	UpdatedAt time.Time       `json:"updatedAt,omitzero"`
}

// MondayPlan is the read-side view of all plan lines plus their sum.
type MondayPlan struct {
	Items []PlanItem      `json:"items"`
	Total decimal.Decimal `json:"total"`
}

// NewMondayPlan sums items into a MondayPlan.
func NewMondayPlan(items []PlanItem) MondayPlan {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Amount)
	}
	if items == nil {
		items = []PlanItem{}
	}
	return MondayPlan{Items: items, Total: total}
}
