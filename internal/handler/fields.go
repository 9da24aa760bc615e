package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// numberText accepts a JSON number or a JSON string and keeps the text as
// written, so 12.50 and "12.50" both reach the service unchanged and no
// value goes through a float64. Parsing and range checks stay in the service.
type numberText string

func (n *numberText) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*n = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = numberText(s)
		return nil
	}

	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return errors.New("expected a number or a string")
	}
	*n = numberText(num.String())
	return nil
}

// listText accepts "nvda qqq" or ["nvda","qqq"]; both become the same free
// text the service splits on whitespace and commas.
type listText string

func (l *listText) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var items []string
		if err := json.Unmarshal(b, &items); err != nil {
			return err
		}
		*l = listText(strings.Join(items, " "))
		return nil
	}

	var s *string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s != nil {
		*l = listText(*s)
	}
	return nil
}
