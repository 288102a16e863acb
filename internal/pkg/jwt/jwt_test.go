package jwt

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/workforce-engine/internal/domain/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessToken_RoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret", time.Hour, 5*time.Minute)

	token, expiresAt, err := svc.GenerateAccessToken("user-1", "emp-1", identity.RoleManager)
	require.NoError(t, err)
	assert.Greater(t, expiresAt, time.Now().Unix())

	decoded, err := svc.JWTAuth().Decode(token)
	require.NoError(t, err)
	raw, err := decoded.AsMap(context.Background())
	require.NoError(t, err)

	claims, err := ClaimsFromMap(raw)
	require.NoError(t, err)
	assert.Equal(t, Claims{UserID: "user-1", EmployeeID: "emp-1", Role: identity.RoleManager, Type: TokenTypeAccess}, claims)
}

func TestSSEToken(t *testing.T) {
	svc := NewJWTService("test-secret", time.Hour, 5*time.Minute)

	token, expiresIn, err := svc.GenerateSSEToken("user-1", "", identity.RoleHR)
	require.NoError(t, err)
	assert.Equal(t, 300, expiresIn)

	claims, err := svc.ValidateSSEToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Empty(t, claims.EmployeeID)

	access, _, err := svc.GenerateAccessToken("user-1", "", identity.RoleHR)
	require.NoError(t, err)
	_, err = svc.ValidateSSEToken(access)
	assert.Error(t, err, "access tokens are not accepted on the stream")
}

func TestSSEToken_Expired(t *testing.T) {
	svc := NewJWTService("test-secret", time.Hour, 5*time.Minute)
	svc.now = func() time.Time { return time.Now().Add(-time.Hour) }

	token, _, err := svc.GenerateSSEToken("user-1", "", identity.RoleHR)
	require.NoError(t, err)

	_, err = svc.ValidateSSEToken(token)
	assert.Error(t, err)
}
