package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/alert-dashboard/internal/apperror"
)

func TestWriteError_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"unauthenticated", apperror.Unauthenticated(apperror.KindBadSignature, "bad"), http.StatusUnauthorized, "unauthenticated"},
		{"validation", apperror.ValidationFailed("ticker", apperror.KindEmptyTicker, "ticker is required"), http.StatusBadRequest, "validation_error"},
		{"not found", apperror.NotFound("profile", "1"), http.StatusNotFound, "not_found"},
		{"storage", apperror.Storage("saving alert", errors.New("locked")), http.StatusServiceUnavailable, "storage_unavailable"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeError(rr, tt.err)

			assert.Equal(t, tt.wantStatus, rr.Code)
			var body ErrorResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
			assert.Equal(t, tt.wantError, body.Error)
		})
	}
}

func TestWriteError_StorageIncludesRefNotCause(t *testing.T) {
	err := apperror.Storage("saving alert", errors.New("database is locked"))
	rr := httptest.NewRecorder()
	writeError(rr, err)

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, err.Ref, body.Ref)
	assert.Equal(t, "storage", body.Kind)
	assert.NotContains(t, body.Message, "locked")
}

func TestNumberText(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: `12.50`, want: "12.50"},
		{in: `"12.50"`, want: "12.50"},
		{in: `-3`, want: "-3"},
		{in: `null`, want: ""},
		{in: `true`, wantErr: true},
	}
	for _, tt := range tests {
		var n numberText
		err := json.Unmarshal([]byte(tt.in), &n)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, string(n), tt.in)
	}
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	rr := httptest.NewRecorder()
	NewHealthHandler(pinger{}, logger).HandleHealth(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	rr = httptest.NewRecorder()
	NewHealthHandler(pinger{err: errors.New("down")}, logger).HandleHealth(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
