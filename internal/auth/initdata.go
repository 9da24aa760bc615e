// Package auth verifies Telegram Mini App launch payloads ("initData").
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. Telegram opens the dashboard inside the client and hands the page a
//     signed, URL-encoded string (Telegram.WebApp.initData)
//  2. The page sends that string with every API call, either in the
//     X-Telegram-Init-Data header or the initData query parameter
//  3. RequireInitData verifies the signature and puts the Identity in the
//     request context
//  4. Handlers pass that Identity to the service layer, which keys all
//     stored configuration by Identity.UserID
//
// There is no session and no cookie: the payload itself is the credential,
// and it is re-verified on every request. No network call is involved.
//
// SIGNATURE SCHEME (Telegram's "Validating data received via the Mini App"):
//
//	secret       = HMAC_SHA256(key="WebAppData", msg=bot_token)
//	check_string = sorted "key=value" pairs (without hash) joined by "\n"
//	hash         = hex(HMAC_SHA256(key=secret, msg=check_string))
//
// Deriving the secret as a plain SHA-256 of the token is NOT the same scheme
// and would accept nothing Telegram signs.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sakif/alert-dashboard/internal/apperror"
)

// webAppDataKey is the fixed domain-separation key Telegram documents for
// deriving the Mini App signing secret from the bot token.
const webAppDataKey = "WebAppData"

// Identity is the authenticated Telegram user behind a request.
//
// Only Verifier.Verify produces a verified Identity. A value assembled by hand
// (Identity{UserID: 42}) reports Verified() == false and the service layer
// refuses it, so a client-supplied id can never reach the store.
type Identity struct {
	UserID    int64     `json:"userId"`
	Username  string    `json:"username,omitempty"`
	FirstName string    `json:"firstName,omitempty"`
	LastName  string    `json:"lastName,omitempty"`
	AuthDate  time.Time `json:"authDate,omitzero"`

	verified bool
}

// Verified reports whether the Identity came out of Verifier.Verify.
func (id Identity) Verified() bool {
	return id.verified && id.UserID > 0
}

// telegramUser is the part of the "user" JSON object we read.
// ID is a pointer so a missing field can be told apart from zero.
type telegramUser struct {
	ID        *int64 `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Verifier checks initData signatures for one bot.
// It holds only the derived secret; Verify is safe for concurrent use.
type Verifier struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier)

// WithMaxAge rejects payloads whose auth_date is older than d.
// Zero (the default) disables the check.
func WithMaxAge(d time.Duration) VerifierOption {
	return func(v *Verifier) {
		v.maxAge = d
	}
}

// withClock overrides time.Now. Used by the tests in this package.
func withClock(now func() time.Time) VerifierOption {
	return func(v *Verifier) {
		v.now = now
	}
}

// NewVerifier derives the signing secret from the bot token.
func NewVerifier(botToken string, opts ...VerifierOption) (*Verifier, error) {
	if strings.TrimSpace(botToken) == "" {
		return nil, errors.New("auth: bot token must not be empty")
	}

	v := &Verifier{
		secret: deriveSecret(botToken),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Verify authenticates a raw initData string and extracts the Identity.
//
// Every failure is an *apperror.AppError wrapping ErrUnauthenticated with one
// of the kinds missing-input, bad-signature, no-user, malformed-user or
// expired. There is no anonymous fallback.
func (v *Verifier) Verify(initData string) (Identity, error) {
	if initData == "" || !strings.Contains(initData, "hash=") {
		return Identity{}, apperror.Unauthenticated(apperror.KindMissingInput, "missing initData")
	}

	pairs, err := parsePairs(initData)
	if err != nil {
		return Identity{}, apperror.Unauthenticated(apperror.KindMissingInput, "initData is not valid URL encoding")
	}

	received := pairs["hash"]
	delete(pairs, "hash")

	candidate := sign(v.secret, checkString(pairs))

	// hmac.Equal is constant-time; a plain == would leak how many leading
	// bytes matched and let an attacker forge the hash byte by byte.
	if !hmac.Equal([]byte(candidate), []byte(received)) {
		return Identity{}, apperror.Unauthenticated(apperror.KindBadSignature, "bad initData signature")
	}

	authDate := parseAuthDate(pairs["auth_date"])
	if v.maxAge > 0 {
		if authDate.IsZero() || v.now().Sub(authDate) > v.maxAge {
			return Identity{}, apperror.Unauthenticated(apperror.KindExpired, "initData has expired, reopen the app")
		}
	}

	rawUser := pairs["user"]
	if rawUser == "" {
		return Identity{}, apperror.Unauthenticated(apperror.KindNoUser, "no user in initData")
	}

	var u telegramUser
	if err := json.Unmarshal([]byte(rawUser), &u); err != nil {
		return Identity{}, apperror.Unauthenticated(apperror.KindMalformedUser, "initData user is not valid JSON")
	}
	if u.ID == nil || *u.ID <= 0 {
		return Identity{}, apperror.Unauthenticated(apperror.KindMalformedUser, "initData user has no valid id")
	}

	return Identity{
		UserID:    *u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		AuthDate:  authDate,
		verified:  true,
	}, nil
}

// Sign produces a signed initData string for values, the way Telegram does.
// Any "hash" already in values is ignored. Used by tests and cmd/initdata.
func Sign(botToken string, values url.Values) string {
	pairs := make(map[string]string, len(values))
	for k := range values {
		if k == "hash" {
			continue
		}
		pairs[k] = values.Get(k)
	}

	out := url.Values{}
	for k, val := range pairs {
		out.Set(k, val)
	}
	out.Set("hash", sign(deriveSecret(botToken), checkString(pairs)))
	return out.Encode()
}

func deriveSecret(botToken string) []byte {
	mac := hmac.New(sha256.New, []byte(webAppDataKey))
	mac.Write([]byte(botToken))
	return mac.Sum(nil)
}

func sign(secret []byte, message string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

// checkString builds the canonical data-check-string: keys sorted
// lexicographically, one "key=value" per line, no trailing newline.
func checkString(pairs map[string]string) string {
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = k + "=" + pairs[k]
	}
	return strings.Join(lines, "\n")
}

// parsePairs decodes "&"-joined key=value pairs. A pair without "=" gets an
// empty value, empty segments are skipped and the last duplicate wins.
//
// url.ParseQuery is not used because it keeps every duplicate and rejects
// segments containing ";", neither of which matches what the client signs.
func parsePairs(raw string) (map[string]string, error) {
	pairs := make(map[string]string)
	for _, segment := range strings.Split(raw, "&") {
		if segment == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(segment, "=")

		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			return nil, err
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return nil, err
		}
		pairs[key] = value
	}
	return pairs, nil
}

func parseAuthDate(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || secs <= 0 {
		return time.Time{}
	}
	return time.Unix(secs, 0)
}
