package tokens

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	accessSecret  = []byte("test-jwt-secret")
	refreshSecret = []byte("test-refresh-secret")
)

func TestSignAccess_SetsExpectedClaims(t *testing.T) {
	t.Parallel()

	userID := uuid.NewString()
	exp := time.Now().Add(15 * time.Minute).UTC()

	token, err := SignAccess(userID, "ada", accessSecret, exp)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := AccessClaimsFromToken(token, accessSecret)
	require.NoError(t, err)

	assert.Equal(t, userID, claims.Subject)
	assert.Equal(t, "ada", claims.Username)
	assert.Equal(t, TypeAccess, claims.TokenType)
	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, exp, claims.ExpiresAt.Time, time.Second)
}

func TestSignRefresh_SetsExpectedClaims(t *testing.T) {
	t.Parallel()

	userID := uuid.NewString()
	exp := time.Now().Add(24 * time.Hour).UTC()

	token, err := SignRefresh(userID, refreshSecret, exp)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := RefreshClaimsFromToken(token, refreshSecret)
	require.NoError(t, err)

	assert.Equal(t, userID, claims.Subject)
	assert.Equal(t, TypeRefresh, claims.TokenType)
	assert.NotEmpty(t, claims.ID)
	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, exp, claims.ExpiresAt.Time, time.Second)
}

func TestClaimsFromToken_WrongSecret(t *testing.T) {
	t.Parallel()

	token, err := SignAccess(uuid.NewString(), "ada", accessSecret, time.Now().Add(time.Hour))
	require.NoError(t, err)

	_, err = AccessClaimsFromToken(token, []byte("other-secret"))
	require.Error(t, err)
}

func TestClaimsFromToken_KindMismatch(t *testing.T) {
	t.Parallel()

	// Same secret for both kinds so only the typ claim can reject.
	secret := []byte("shared-secret")

	access, err := SignAccess(uuid.NewString(), "ada", secret, time.Now().Add(time.Hour))
	require.NoError(t, err)
	_, err = RefreshClaimsFromToken(access, secret)
	require.Error(t, err)

	refresh, err := SignRefresh(uuid.NewString(), secret, time.Now().Add(time.Hour))
	require.NoError(t, err)
	_, err = AccessClaimsFromToken(refresh, secret)
	require.Error(t, err)
}

func TestClaimsFromToken_Expired(t *testing.T) {
	t.Parallel()

	token, err := SignAccess(uuid.NewString(), "ada", accessSecret, time.Now().Add(-time.Minute))
	require.NoError(t, err)

	_, err = AccessClaimsFromToken(token, accessSecret)
	require.Error(t, err)
}

func TestClaimsFromToken_Garbage(t *testing.T) {
	t.Parallel()

	_, err := AccessClaimsFromToken("not-a-jwt", accessSecret)
	require.Error(t, err)
	_, err = RefreshClaimsFromToken("not-a-jwt", refreshSecret)
	require.Error(t, err)
}
