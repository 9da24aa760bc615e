package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/alert-dashboard/internal/apperror"
)

// InitDataHeader and InitDataQueryParam are the two places the dashboard
// script may put the raw launch payload. Both are treated the same.
const (
	InitDataHeader     = "X-Telegram-Init-Data"
	InitDataQueryParam = "initData"
)

// contextKey is an unexported type used for context keys in this package.
// Only this package can create a key of this type, so nothing else can
// read or shadow the Identity stored under it.
type contextKey string

const identityKey contextKey = "identity"

// RequireInitData is a middleware that enforces a verified launch payload on
// every request it wraps.
//
// On success the Identity is stored in the request context; on failure the
// chain stops with 401 and a JSON body carrying the failure kind, e.g.
//
//	{"error":"unauthenticated","kind":"bad-signature","message":"bad initData signature"}
func RequireInitData(v *Verifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := v.Verify(rawInitData(r))
			if err != nil {
				logger.Warn("initData rejected",
					slog.String("path", r.URL.Path),
					slog.String("kind", string(apperror.KindOf(err))),
				)
				writeUnauthorized(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// IdentityFromContext retrieves the verified Identity set by RequireInitData.
// Returns (Identity{}, false) outside a protected route.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && id.Verified()
}

// WithIdentity returns a copy of ctx carrying id. An unverified Identity is
// stored but IdentityFromContext will not return it.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// rawInitData prefers the header and falls back to the query parameter.
func rawInitData(r *http.Request) string {
	if v := r.Header.Get(InitDataHeader); v != "" {
		return v
	}
	return r.URL.Query().Get(InitDataQueryParam)
}

func writeUnauthorized(w http.ResponseWriter, err error) {
	body := map[string]string{
		"error":   "unauthenticated",
		"kind":    string(apperror.KindMissingInput),
		"message": "valid Telegram initData required",
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		body["kind"] = string(appErr.Kind)
		body["message"] = appErr.Message
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(body)
}
