package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCodec(t *testing.T, lifetime time.Duration) *TokenCodec {
	t.Helper()
	c, err := NewTokenCodec([]byte("super-secret"), lifetime)
	require.NoError(t, err)
	return c
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestIssueAndVerify_Success(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t, time.Hour)

	tok, err := codec.Issue(123)
	require.NoError(t, err)

	claims, err := codec.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "123", claims.Subject)
	assert.NotEmpty(t, claims.ID)

	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(123), id)
}

func TestIssue_ClaimsTimestamps(t *testing.T) {
	t.Parallel()

	issuedAt := time.Unix(1_700_000_000, 0)
	codec := newTestCodec(t, 86400*time.Second).WithClock(fixedClock(issuedAt))

	tok, err := codec.Issue(7)
	require.NoError(t, err)

	claims, err := codec.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, issuedAt.Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, issuedAt.Unix()+86400, claims.ExpiresAt.Unix())
}

func TestVerify_ExpiryBoundary(t *testing.T) {
	t.Parallel()

	issuedAt := time.Unix(1_700_000_000, 0)
	lifetime := 10 * time.Second
	issuer := newTestCodec(t, lifetime).WithClock(fixedClock(issuedAt))

	tok, err := issuer.Issue(42)
	require.NoError(t, err)

	before := issuer.WithClock(fixedClock(issuedAt.Add(lifetime - time.Second)))
	claims, err := before.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)

	atExpiry := issuer.WithClock(fixedClock(issuedAt.Add(lifetime)))
	_, err = atExpiry.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	after := issuer.WithClock(fixedClock(issuedAt.Add(lifetime + time.Hour)))
	_, err = after.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := newTestCodec(t, time.Hour).Issue(2)
	require.NoError(t, err)

	other, err := NewTokenCodec([]byte("wrong-secret"), time.Hour)
	require.NoError(t, err)

	_, err = other.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t, time.Hour)
	for _, tok := range []string{"", "not.a.jwt", "abc", strings.Repeat("x", 300)} {
		_, err := codec.Verify(tok)
		assert.ErrorIs(t, err, ErrInvalidToken, tok)
	}
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t, time.Hour)
	claims := jwt.RegisteredClaims{
		Subject:   "1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = codec.Verify(none)
	assert.ErrorIs(t, err, ErrInvalidToken)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("super-secret"))
	require.NoError(t, err)
	_, err = codec.Verify(hs512)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_RequiresExpiryAndNumericSubject(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t, time.Hour)
	secret := []byte("super-secret")

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "1"}).SignedString(secret)
	require.NoError(t, err)
	_, err = codec.Verify(noExp)
	assert.ErrorIs(t, err, ErrInvalidToken)

	badSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(secret)
	require.NoError(t, err)
	_, err = codec.Verify(badSub)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewTokenCodec_RejectsBadConfig(t *testing.T) {
	t.Parallel()

	_, err := NewTokenCodec(nil, time.Hour)
	assert.Error(t, err)

	_, err = NewTokenCodec([]byte("k"), 0)
	assert.Error(t, err)
}

func TestVerifyUserID(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t, time.Hour)
	tok, err := codec.Issue(99)
	require.NoError(t, err)

	id, err := codec.VerifyUserID(tok)
	require.NoError(t, err)
	assert.Equal(t, int64(99), id)

	_, err = codec.VerifyUserID("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
