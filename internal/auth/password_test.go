package auth

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	apperrors "storefront/internal/errors"
)

func TestPasswordHasher(t *testing.T) {
	h, err := NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)

	hash, err := h.Hash("password123")
	require.NoError(t, err)
	assert.NotEqual(t, "password123", hash)

	assert.True(t, h.Compare(hash, "password123"))
	assert.False(t, h.Compare(hash, "password124"))
	assert.False(t, h.Compare("", "password123"))

	h.CompareDummy("anything")
}

func TestPasswordHasher_TooLong(t *testing.T) {
	h, err := NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)

	_, err = h.Hash(strings.Repeat("a", MaxPasswordBytes))
	assert.NoError(t, err)

	_, err = h.Hash(strings.Repeat("a", MaxPasswordBytes+1))
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestNewPasswordHasher_Cost(t *testing.T) {
	tests := []struct {
		name     string
		cost     int
		expected int
	}{
		{"default", 0, DefaultBcryptCost},
		{"too low", 1, bcrypt.MinCost},
		{"in range", 5, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := NewPasswordHasher(tt.cost)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, h.cost)
		})
	}
}

func TestSessionCookies(t *testing.T) {
	c := NewSessionCookie("tok", true)
	assert.Equal(t, CookieName, c.Name)
	assert.Equal(t, "tok", c.Value)
	assert.Equal(t, 7*24*60*60, c.MaxAge)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, "/", c.Path)

	cleared := ExpiredSessionCookie(false)
	assert.Equal(t, CookieName, cleared.Name)
	assert.Empty(t, cleared.Value)
	assert.Less(t, cleared.MaxAge, 0)
	assert.Equal(t, int64(0), cleared.Expires.Unix())
	assert.False(t, cleared.Secure)
}
