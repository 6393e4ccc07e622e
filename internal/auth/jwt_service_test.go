package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/model"
)

func testUser(role model.Role) *model.User {
	return &model.User{ID: "user-1", Name: "Asha", Email: "asha@example.com", Role: role}
}

func TestJWTService_IssueVerify(t *testing.T) {
	svc, err := NewJWTService("test-secret")
	require.NoError(t, err)

	token, issued, err := svc.Issue(testUser(model.RoleAdmin))
	require.NoError(t, err)
	assert.Equal(t, TokenTTL, issued.ExpiresAt.Sub(issued.IssuedAt.Time))

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "asha@example.com", claims.Email)
	assert.Equal(t, model.RoleAdmin, claims.Role)
	assert.True(t, claims.IsAdmin())
}

func TestJWTService_Verify(t *testing.T) {
	svc, err := NewJWTService("test-secret")
	require.NoError(t, err)
	other, err := NewJWTService("other-secret")
	require.NoError(t, err)
	past, err := NewJWTService("test-secret", WithClock(func() time.Time {
		return time.Now().Add(-8 * 24 * time.Hour)
	}))
	require.NoError(t, err)

	valid, _, err := svc.Issue(testUser(model.RoleCustomer))
	require.NoError(t, err)
	foreign, _, err := other.Issue(testUser(model.RoleCustomer))
	require.NoError(t, err)
	expired, _, err := past.Issue(testUser(model.RoleCustomer))
	require.NoError(t, err)

	parts := strings.Split(valid, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"id": "user-1", "role": "admin"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"id": "user-1", "role": "admin", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	badRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id": "user-1", "role": "root", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	noID, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": "customer", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		reason TokenReason
	}{
		{"empty", "", ReasonMalformed},
		{"garbage", "not-a-jwt", ReasonMalformed},
		{"wrong secret", foreign, ReasonMalformed},
		{"tampered payload", tampered, ReasonMalformed},
		{"alg none", none, ReasonMalformed},
		{"other hmac", hs512, ReasonMalformed},
		{"unknown role", badRole, ReasonMalformed},
		{"missing id", noID, ReasonMalformed},
		{"expired", expired, ReasonExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := svc.Verify(tt.token)
			assert.Nil(t, claims)

			var te *TokenError
			require.True(t, errors.As(err, &te))
			assert.Equal(t, tt.reason, te.Reason)
			assert.Equal(t, tt.reason == ReasonExpired, IsExpired(err))
		})
	}
}

func TestNewJWTService_EphemeralSecret(t *testing.T) {
	a, err := NewJWTService("")
	require.NoError(t, err)
	b, err := NewJWTService("")
	require.NoError(t, err)

	token, _, err := a.Issue(testUser(model.RoleCustomer))
	require.NoError(t, err)

	_, err = a.Verify(token)
	assert.NoError(t, err)
	_, err = b.Verify(token)
	assert.Error(t, err, "each process gets its own secret")
}
