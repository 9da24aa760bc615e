package repository

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sakif/alert-dashboard/internal/model"
)

// storedLevel is the on-disk shape of one DCA level inside the levels JSON
// array. The bot reads this column, so the keys are part of the contract:
//
//	[{"drop_pct":"15","amount":"15"},{"drop_pct":"25","amount":"25"}]
type storedLevel struct {
	DropPct decimal.Decimal `json:"drop_pct"`
	Amount  decimal.Decimal `json:"amount"`
}

// EncodeLevels serialises levels as a JSON array, preserving order.
func EncodeLevels(levels []model.DcaLevel) ([]byte, error) {
	rows := make([]storedLevel, len(levels))
	for i, l := range levels {
		rows[i] = storedLevel{DropPct: l.DropPct, Amount: l.Amount}
	}
	b, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("encoding dca levels: %w", err)
	}
	return b, nil
}

// DecodeLevels is the inverse of EncodeLevels.
func DecodeLevels(raw []byte) ([]model.DcaLevel, error) {
	var rows []storedLevel
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("decoding dca levels: %w", err)
	}
	levels := make([]model.DcaLevel, len(rows))
	for i, r := range rows {
		levels[i] = model.DcaLevel{DropPct: r.DropPct, Amount: r.Amount}
	}
	return levels, nil
}

// EncodeTickers serialises a priority list as a JSON array of strings.
func EncodeTickers(tickers []string) ([]byte, error) {
	if tickers == nil {
		tickers = []string{}
	}
	b, err := json.Marshal(tickers)
	if err != nil {
		return nil, fmt.Errorf("encoding priority list: %w", err)
	}
	return b, nil
}

// DecodeTickers is the inverse of EncodeTickers; never returns nil on success.
func DecodeTickers(raw []byte) ([]string, error) {
	tickers := []string{}
	if err := json.Unmarshal(raw, &tickers); err != nil {
		return nil, fmt.Errorf("decoding priority list: %w", err)
	}
	if tickers == nil {
		tickers = []string{}
	}
	return tickers, nil
}
