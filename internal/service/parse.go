package service

import (
	"fmt"
	"math/big"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/sakif/alert-dashboard/internal/apperror"
	"github.com/sakif/alert-dashboard/internal/model"
)

// LevelSeparator splits a DCA token into drop and amount: "15:20" buys 20
// once the ticker is 15% down.
const LevelSeparator = ":"

// Amounts and percentages must fit NUMERIC(20,4): at most 16 integer digits
// and 4 decimal places. Both stores then hold exactly what the caller sent.
const (
	maxScale     = 4
	maxIntDigits = 16
)

// normalizeTicker is the canonical form used as a storage key.
func normalizeTicker(raw string) (string, error) {
	ticker := strings.ToUpper(strings.TrimSpace(raw))
	if ticker == "" {
		return "", apperror.ValidationFailed("ticker", apperror.KindEmptyTicker, "ticker is required")
	}
	return ticker, nil
}

// splitList splits free text on whitespace and commas, dropping empty tokens.
func splitList(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
}

// parseNonNegative parses a decimal >= 0. Negative input is rejected, never
// clamped to zero.
func parseNonNegative(field, raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, apperror.ValidationFailed(field, apperror.KindBadNumber,
			fmt.Sprintf("%s must be a number, got %q", field, raw))
	}
	if d.IsNegative() {
		return decimal.Decimal{}, apperror.ValidationFailed(field, apperror.KindBadNumber,
			fmt.Sprintf("%s must not be negative", field))
	}
	d, ok := fitNumeric(d)
	if !ok {
		return decimal.Decimal{}, apperror.ValidationFailed(field, apperror.KindBadNumber,
			fmt.Sprintf("%s must be below 1e%d with at most %d decimal places", field, maxIntDigits, maxScale))
	}
	return d, nil
}

// fitNumeric strips trailing zeros and checks d against maxIntDigits and
// maxScale. It only looks at the coefficient digits and the exponent, so
// input like 1e300000000 is rejected without expanding it.
func fitNumeric(d decimal.Decimal) (decimal.Decimal, bool) {
	if d.IsZero() {
		return decimal.Zero, true
	}

	digits := d.Coefficient().String()
	trimmed := strings.TrimRight(digits, "0")
	exp := int64(d.Exponent()) + int64(len(digits)-len(trimmed))

	if exp < -maxScale {
		return decimal.Decimal{}, false
	}
	if int64(len(trimmed))+exp > maxIntDigits {
		return decimal.Decimal{}, false
	}

	coef, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return decimal.Decimal{}, false
	}
	return decimal.NewFromBigInt(coef, int32(exp)), true
}

// parseLevels turns "15:15 25:25, 35:40" into levels in input order.
// One bad token rejects the whole text.
func parseLevels(text string) ([]model.DcaLevel, error) {
	tokens := splitList(text)
	if len(tokens) == 0 {
		return nil, apperror.ValidationFailed("levels", apperror.KindBadLevelFormat,
			"at least one level is required, e.g. 15:20")
	}

	levels := make([]model.DcaLevel, 0, len(tokens))
	for _, tok := range tokens {
		level, ok := parseLevel(tok)
		if !ok {
			return nil, apperror.ValidationFailed("levels", apperror.KindBadLevelFormat,
				fmt.Sprintf("bad level %q, expected drop%samount like 15%s20", tok, LevelSeparator, LevelSeparator))
		}
		levels = append(levels, level)
	}
	return levels, nil
}

func parseLevel(tok string) (model.DcaLevel, bool) {
	dropText, amountText, found := strings.Cut(tok, LevelSeparator)
	if !found {
		return model.DcaLevel{}, false
	}
	drop, ok := parseLevelPart(dropText)
	if !ok {
		return model.DcaLevel{}, false
	}
	amount, ok := parseLevelPart(amountText)
	if !ok {
		return model.DcaLevel{}, false
	}
	return model.DcaLevel{DropPct: drop, Amount: amount}, true
}

func parseLevelPart(text string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(text)
	if err != nil || d.IsNegative() {
		return decimal.Decimal{}, false
	}
	return fitNumeric(d)
}

// parseOrder upper-cases each token and keeps order and duplicates.
func parseOrder(text string) []string {
	tokens := splitList(text)
	order := make([]string, len(tokens))
	for i, tok := range tokens {
		order[i] = strings.ToUpper(tok)
	}
	return order
}
