package identity

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockedTokens(t *testing.T) (*Tokens, redismock.ClientMock) {
	t.Helper()
	client, mock := redismock.NewClientMock()
	tokens, err := NewTokens(TokenConfig{
		Secret: []byte("test-secret-test-secret-test-sec"),
		Issuer: "sgisi-core",
		TTL:    time.Hour,
	}, client)
	require.NoError(t, err)
	return tokens, mock
}

func TestTokens_RevokedSessionRejected(t *testing.T) {
	tokens, mock := newMockedTokens(t)

	raw, err := tokens.Issue(&User{ID: "user-1", Email: "ana@example.com"})
	require.NoError(t, err)

	mock.Regexp().ExpectExists(`session:revoked:.+`).SetVal(1)

	_, err = tokens.Validate(context.Background(), raw)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokens_RevocationCheckFailsClosed(t *testing.T) {
	tokens, mock := newMockedTokens(t)

	raw, err := tokens.Issue(&User{ID: "user-1", Email: "ana@example.com"})
	require.NoError(t, err)

	mock.Regexp().ExpectExists(`session:revoked:.+`).SetVal(0)
	_, err = tokens.Validate(context.Background(), raw)
	require.NoError(t, err)

	// a redis outage must not let sessions through unchecked
	mock.Regexp().ExpectExists(`session:revoked:.+`).SetErr(errors.New("connection refused"))
	_, err = tokens.Validate(context.Background(), raw)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnauthenticated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokens_RevokeStoresUntilExpiry(t *testing.T) {
	tokens, mock := newMockedTokens(t)

	claims := &Claims{}
	claims.ID = "jti-1"
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(30 * time.Minute))

	// the TTL is computed from the clock, so match on key only
	mock.CustomMatch(func(expected, actual []interface{}) error {
		if len(actual) < 2 || actual[1] != "session:revoked:jti-1" {
			return fmt.Errorf("unexpected revocation key in %v", actual)
		}
		return nil
	}).ExpectSet("session:revoked:jti-1", "1", 30*time.Minute).SetVal("OK")

	require.NoError(t, tokens.Revoke(context.Background(), claims))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokens_RevokeExpiredIsNoop(t *testing.T) {
	tokens, mock := newMockedTokens(t)

	claims := &Claims{}
	claims.ID = "jti-2"
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	// already past expiry, nothing to store
	require.NoError(t, tokens.Revoke(context.Background(), claims))
	assert.NoError(t, mock.ExpectationsWereMet())
}
