package tokens

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func fixedIssuer(secret string, ttl time.Duration, at *time.Time) *Issuer {
	return &Issuer{Secret: []byte(secret), TTL: ttl, Now: func() time.Time { return *at }}
}

func TestIssuer_RoundTrip(t *testing.T) {
	t.Parallel()

	now := t0
	iss := fixedIssuer("test-secret", time.Hour, &now)
	tok, err := iss.Issue("user-1", "a@miuegypt.edu.eg", []string{"STUDENT"})
	require.NoError(t, err)

	claims, err := iss.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "a@miuegypt.edu.eg", claims.Email)
	assert.Equal(t, []string{"STUDENT"}, claims.Roles)
	assert.True(t, claims.ExpiresAt.Time.Equal(t0.Add(time.Hour)))
}

func TestIssuer_ExpiryBoundary(t *testing.T) {
	t.Parallel()

	now := t0
	iss := fixedIssuer("test-secret", time.Hour, &now)
	tok, err := iss.Issue("user-1", "a@b.c", nil)
	require.NoError(t, err)

	now = t0.Add(time.Hour - 2*time.Second)
	_, err = iss.Verify(tok)
	require.NoError(t, err)

	now = t0.Add(time.Hour + 2*time.Second)
	_, err = iss.Verify(tok)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestIssuer_SubSecondIssueLivesFullTTL(t *testing.T) {
	t.Parallel()

	issued := t0.Add(700 * time.Millisecond)
	now := issued
	iss := fixedIssuer("test-secret", time.Minute, &now)
	tok, err := iss.Issue("user-1", "a@b.c", nil)
	require.NoError(t, err)

	now = issued.Add(time.Minute - 300*time.Millisecond)
	claims, err := iss.Verify(tok)
	require.NoError(t, err)
	assert.True(t, claims.ExpiresAt.Time.Equal(t0.Add(time.Minute+time.Second)))

	now = issued.Add(time.Minute + time.Second)
	_, err = iss.Verify(tok)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestIssuer_WrongSecret(t *testing.T) {
	t.Parallel()

	now := t0
	tok, err := fixedIssuer("secret-a", time.Hour, &now).Issue("u", "e@x.y", nil)
	require.NoError(t, err)

	_, err = fixedIssuer("secret-b", time.Hour, &now).Verify(tok)
	assert.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestIssuer_Malformed(t *testing.T) {
	t.Parallel()

	now := t0
	iss := fixedIssuer("test-secret", time.Hour, &now)
	for _, tok := range []string{"", "abc", "a.b.c", strings.Repeat("x", 40)} {
		_, err := iss.Verify(tok)
		assert.ErrorIs(t, err, ErrMalformed, tok)
	}
}

func TestIssuer_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	now := t0
	iss := fixedIssuer("test-secret", time.Hour, &now)
	claims := Claims{
		UserID: "u",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(t0.Add(time.Hour)),
		},
	}

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = iss.Verify(hs512)
	assert.Error(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = iss.Verify(none)
	assert.Error(t, err)
}

func TestIssuer_RequiresExpiry(t *testing.T) {
	t.Parallel()

	now := t0
	iss := fixedIssuer("test-secret", time.Hour, &now)
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: "u"}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = iss.Verify(tok)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestIssuer_EmptySecret(t *testing.T) {
	t.Parallel()

	_, err := NewIssuer(nil, time.Hour).Issue("u", "e", nil)
	assert.Error(t, err)
}

func TestDecode_IgnoresSignatureAndExpiry(t *testing.T) {
	t.Parallel()

	now := t0
	tok, err := fixedIssuer("secret-a", time.Minute, &now).Issue("user-9", "d@x.y", []string{"DOCTOR"})
	require.NoError(t, err)

	claims, err := Decode(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-9", claims.UserID)
	assert.Equal(t, []string{"DOCTOR"}, claims.Roles)

	_, err = Decode("garbage")
	assert.ErrorIs(t, err, ErrMalformed)
}
