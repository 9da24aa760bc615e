package auth

import (
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/alert-dashboard/internal/apperror"
)

const (
	testBotToken = "123456:TEST-token"

	// goldenInitData was signed independently of this package with the
	// documented algorithm, using testBotToken. Pair order is deliberately
	// not sorted.
	goldenInitData = "user=%7B%22id%22%3A42%2C%22first_name%22%3A%22Ana%22%2C%22last_name%22%3A%22Lopez%22%2C%22username%22%3A%22ana_l%22%7D" +
		"&query_id=AAHdF6IQAAAAAN0XohDhrOrc&auth_date=1700000000" +
		"&hash=4737ab6b3247faa54650a387a09be350b4076f7af1908ace6c3550f1ffdf23c5"

	// goldenPlainSHAHash is the hash the same payload gets when the secret is
	// derived as SHA256(token) instead of HMAC("WebAppData", token).
	goldenPlainSHAHash = "8be3d832a61e7b300b8b1534a1c4995d7abbd9bf2a5c49360760ad70c9eb3ab1"
)

func newTestVerifier(t *testing.T, opts ...VerifierOption) *Verifier {
	t.Helper()
	v, err := NewVerifier(testBotToken, opts...)
	require.NoError(t, err)
	return v
}

// signedPayload returns a payload for user JSON signed with testBotToken.
func signedPayload(user string, extra map[string]string) string {
	values := url.Values{}
	values.Set("auth_date", "1700000000")
	values.Set("query_id", "AAHdF6IQAAAAAN0XohDhrOrc")
	if user != "" {
		values.Set("user", user)
	}
	for k, v := range extra {
		values.Set(k, v)
	}
	return Sign(testBotToken, values)
}

func requireKind(t *testing.T, err error, want apperror.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrUnauthenticated), "error %v should wrap ErrUnauthenticated", err)
	assert.Equal(t, want, apperror.KindOf(err))
}

func TestNewVerifier_EmptyToken(t *testing.T) {
	_, err := NewVerifier("  ")
	require.Error(t, err)
}

func TestVerify_GoldenPayload(t *testing.T) {
	v := newTestVerifier(t)

	id, err := v.Verify(goldenInitData)
	require.NoError(t, err)

	assert.Equal(t, int64(42), id.UserID)
	assert.Equal(t, "ana_l", id.Username)
	assert.Equal(t, "Ana", id.FirstName)
	assert.Equal(t, "Lopez", id.LastName)
	assert.Equal(t, time.Unix(1700000000, 0), id.AuthDate)
	assert.True(t, id.Verified())
}

func TestVerify_RejectsPlainSHA256Secret(t *testing.T) {
	v := newTestVerifier(t)

	raw := strings.Replace(goldenInitData,
		"hash=4737ab6b3247faa54650a387a09be350b4076f7af1908ace6c3550f1ffdf23c5",
		"hash="+goldenPlainSHAHash, 1)

	_, err := v.Verify(raw)
	requireKind(t, err, apperror.KindBadSignature)
}

func TestVerify_OrderIndependent(t *testing.T) {
	v := newTestVerifier(t)

	// Reassemble the golden payload in several pair orders.
	segments := strings.Split(goldenInitData, "&")
	orders := [][]int{{0, 1, 2, 3}, {3, 2, 1, 0}, {1, 3, 0, 2}, {2, 0, 3, 1}}

	for _, order := range orders {
		parts := make([]string, len(order))
		for i, idx := range order {
			parts[i] = segments[idx]
		}
		id, err := v.Verify(strings.Join(parts, "&"))
		require.NoError(t, err, "order %v", order)
		assert.Equal(t, int64(42), id.UserID)
	}
}

func TestCheckString_SortedNoTrailingNewline(t *testing.T) {
	got := checkString(map[string]string{
		"user":      `{"id":1}`,
		"auth_date": "1",
		"query_id":  "q",
	})
	assert.Equal(t, "auth_date=1\nquery_id=q\nuser={\"id\":1}", got)
}

func TestVerify_FlippedHashCharacter(t *testing.T) {
	v := newTestVerifier(t)

	idx := strings.Index(goldenInitData, "hash=") + len("hash=")
	hash := goldenInitData[idx:]

	for i := 0; i < len(hash); i++ {
		flipped := []byte(hash)
		if flipped[i] == '0' {
			flipped[i] = '1'
		} else {
			flipped[i] = '0'
		}
		_, err := v.Verify(goldenInitData[:idx] + string(flipped))
		requireKind(t, err, apperror.KindBadSignature)
	}
}

func TestVerify_TamperedValue(t *testing.T) {
	v := newTestVerifier(t)

	raw := strings.Replace(goldenInitData, "%22id%22%3A42", "%22id%22%3A43", 1)
	_, err := v.Verify(raw)
	requireKind(t, err, apperror.KindBadSignature)
}

func TestVerify_WrongBotToken(t *testing.T) {
	v, err := NewVerifier("654321:OTHER-token")
	require.NoError(t, err)

	_, err = v.Verify(goldenInitData)
	requireKind(t, err, apperror.KindBadSignature)
}

func TestVerify_Failures(t *testing.T) {
	v := newTestVerifier(t)

	tests := []struct {
		name     string
		initData string
		wantKind apperror.Kind
	}{
		{
			name:     "empty input",
			initData: "",
			wantKind: apperror.KindMissingInput,
		},
		{
			name:     "no hash component",
			initData: "auth_date=1700000000&user=%7B%22id%22%3A1%7D",
			wantKind: apperror.KindMissingInput,
		},
		{
			name:     "broken percent escape",
			initData: "user=%ZZ&hash=abc",
			wantKind: apperror.KindMissingInput,
		},
		{
			name:     "empty hash",
			initData: "auth_date=1700000000&hash=",
			wantKind: apperror.KindBadSignature,
		},
		{
			name:     "signed but no user",
			initData: signedPayload("", nil),
			wantKind: apperror.KindNoUser,
		},
		{
			name:     "signed but empty user",
			initData: signedPayload("", map[string]string{"user": ""}),
			wantKind: apperror.KindNoUser,
		},
		{
			name:     "user is not JSON",
			initData: signedPayload("not-json", nil),
			wantKind: apperror.KindMalformedUser,
		},
		{
			name:     "user without id",
			initData: signedPayload(`{"first_name":"Ana"}`, nil),
			wantKind: apperror.KindMalformedUser,
		},
		{
			name:     "user id is a string",
			initData: signedPayload(`{"id":"42"}`, nil),
			wantKind: apperror.KindMalformedUser,
		},
		{
			name:     "user id is fractional",
			initData: signedPayload(`{"id":4.5}`, nil),
			wantKind: apperror.KindMalformedUser,
		},
		{
			name:     "user id is zero",
			initData: signedPayload(`{"id":0}`, nil),
			wantKind: apperror.KindMalformedUser,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := v.Verify(tt.initData)
			requireKind(t, err, tt.wantKind)
			assert.False(t, id.Verified(), "failed verification must not yield a usable identity")
		})
	}
}

func TestVerify_DuplicateKeyLastWins(t *testing.T) {
	v := newTestVerifier(t)

	// Signed with user id 7; an earlier duplicate "user" pair is overridden.
	signed := signedPayload(`{"id":7}`, nil)
	raw := "user=%7B%22id%22%3A999%7D&" + signed

	id, err := v.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id.UserID)
}

func TestVerify_OptionalProfileFields(t *testing.T) {
	v := newTestVerifier(t)

	id, err := v.Verify(signedPayload(`{"id":9001}`, nil))
	require.NoError(t, err)

	assert.Equal(t, int64(9001), id.UserID)
	assert.Empty(t, id.Username)
	assert.Empty(t, id.FirstName)
	assert.Empty(t, id.LastName)
}

func TestVerify_UnicodeAndSpaces(t *testing.T) {
	v := newTestVerifier(t)

	id, err := v.Verify(signedPayload(`{"id":5,"first_name":"José María","last_name":"Núñez"}`, nil))
	require.NoError(t, err)
	assert.Equal(t, "José María", id.FirstName)
	assert.Equal(t, "Núñez", id.LastName)
}

func TestVerify_MaxAge(t *testing.T) {
	signedAt := time.Unix(1700000000, 0)

	t.Run("fresh payload passes", func(t *testing.T) {
		v := newTestVerifier(t, WithMaxAge(time.Hour), withClock(func() time.Time {
			return signedAt.Add(30 * time.Minute)
		}))
		_, err := v.Verify(goldenInitData)
		require.NoError(t, err)
	})

	t.Run("stale payload is rejected", func(t *testing.T) {
		v := newTestVerifier(t, WithMaxAge(time.Hour), withClock(func() time.Time {
			return signedAt.Add(2 * time.Hour)
		}))
		_, err := v.Verify(goldenInitData)
		requireKind(t, err, apperror.KindExpired)
	})

	t.Run("missing auth_date is rejected when enforced", func(t *testing.T) {
		v := newTestVerifier(t, WithMaxAge(time.Hour))
		raw := Sign(testBotToken, url.Values{"user": {`{"id":1}`}})
		_, err := v.Verify(raw)
		requireKind(t, err, apperror.KindExpired)
	})

	t.Run("disabled by default", func(t *testing.T) {
		v := newTestVerifier(t)
		raw := Sign(testBotToken, url.Values{"user": {`{"id":1}`}})
		_, err := v.Verify(raw)
		require.NoError(t, err)
	})
}

func TestSign_IgnoresExistingHash(t *testing.T) {
	v := newTestVerifier(t)

	raw := Sign(testBotToken, url.Values{
		"user": {`{"id":3}`},
		"hash": {"deadbeef"},
	})
	id, err := v.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(3), id.UserID)
}

func TestIdentity_HandBuiltIsNotVerified(t *testing.T) {
	id := Identity{UserID: 42, Username: "mallory"}
	assert.False(t, id.Verified())
}
