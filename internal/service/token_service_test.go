package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloghive/auth-service/internal/models"
)

func newTokenService(accessTTL time.Duration) *TokenService {
	return NewTokenService(TokenConfig{
		Secret:             "test-secret",
		Issuer:             "bloghive-auth",
		AccessTokenExpiry:  accessTTL,
		RefreshTokenExpiry: 24 * time.Hour,
	})
}

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := newTokenService(time.Hour)
	user := &models.User{ID: 42, Username: "alice", Email: "alice@example.com", Role: models.RoleAdmin}

	signed, err := svc.IssueAccessToken(user)
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(signed)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, []string{"ROLE_ADMIN"}, claims.Authorities)
	assert.Equal(t, "bloghive-auth", claims.Issuer)
}

func TestAccessTokensDistinctPerIssuance(t *testing.T) {
	svc := newTokenService(time.Hour)
	user := &models.User{ID: 7, Username: "carol", Role: models.RoleUser}

	// Back-to-back issuances land in the same wall-clock second; the jti
	// claim must still make the tokens differ.
	first, err := svc.IssueAccessToken(user)
	require.NoError(t, err)
	second, err := svc.IssueAccessToken(user)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	firstClaims, err := svc.ValidateAccessToken(first)
	require.NoError(t, err)
	secondClaims, err := svc.ValidateAccessToken(second)
	require.NoError(t, err)
	assert.NotEmpty(t, firstClaims.ID)
	assert.NotEqual(t, firstClaims.ID, secondClaims.ID)
}

func TestAccessTokenExpiryRejected(t *testing.T) {
	svc := newTokenService(-time.Minute)
	user := &models.User{ID: 1, Username: "bob", Role: models.RoleUser}

	signed, err := svc.IssueAccessToken(user)
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(signed)
	assert.Error(t, err)
}

func TestAccessTokenWrongSecretRejected(t *testing.T) {
	issuer := newTokenService(time.Hour)
	user := &models.User{ID: 1, Username: "bob", Role: models.RoleUser}

	signed, err := issuer.IssueAccessToken(user)
	require.NoError(t, err)

	other := NewTokenService(TokenConfig{Secret: "different-secret", AccessTokenExpiry: time.Hour, RefreshTokenExpiry: 24 * time.Hour})
	_, err = other.ValidateAccessToken(signed)
	assert.Error(t, err)
}

func TestAccessTokenGarbageRejected(t *testing.T) {
	svc := newTokenService(time.Hour)

	_, err := svc.ValidateAccessToken("not-a-token")
	assert.Error(t, err)
}

func TestRefreshTokenValues(t *testing.T) {
	svc := newTokenService(time.Hour)

	first, err := svc.NewRefreshTokenValue()
	require.NoError(t, err)
	second, err := svc.NewRefreshTokenValue()
	require.NoError(t, err)

	// 32 random bytes base64url encoded without padding.
	assert.Len(t, first, 43)
	assert.NotEqual(t, first, second)
}
