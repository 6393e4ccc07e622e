package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// MaxAssertionTTL bounds how far in the future an assertion may expire.
const MaxAssertionTTL = 5 * time.Minute

// ErrFederationDisabled is returned when no federation secret is configured.
var ErrFederationDisabled = errors.New("federated sign-in is not configured")

// AssertionClaims is the identity asserted by the OAuth bridge after it has
// completed a provider login (Google, Facebook).
type AssertionClaims struct {
	Provider string `json:"provider"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	jwt.RegisteredClaims
}

// AssertionVerifier checks assertions signed by the OAuth bridge.
type AssertionVerifier struct {
	secret []byte
}

// NewAssertionVerifier creates a verifier. An empty secret disables federation.
func NewAssertionVerifier(secret string) *AssertionVerifier {
	return &AssertionVerifier{secret: []byte(secret)}
}

// Enabled reports whether federated sign-in is configured.
func (v *AssertionVerifier) Enabled() bool {
	return len(v.secret) > 0
}

// Verify validates an assertion. The subject claim carries the provider's
// user id.
func (v *AssertionVerifier) Verify(assertion string) (*AssertionClaims, error) {
	if !v.Enabled() {
		return nil, ErrFederationDisabled
	}

	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &AssertionClaims{}
	token, err := parser.ParseWithClaims(assertion, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, &TokenError{Reason: ReasonMalformed, Err: err}
	}
	if !token.Valid {
		return nil, &TokenError{Reason: ReasonMalformed, Err: errors.New("invalid assertion")}
	}

	if claims.ExpiresAt == nil {
		return nil, &TokenError{Reason: ReasonMalformed, Err: errors.New("assertion has no expiry")}
	}
	if time.Until(claims.ExpiresAt.Time) > MaxAssertionTTL {
		return nil, &TokenError{Reason: ReasonMalformed, Err: errors.New("assertion lifetime too long")}
	}

	claims.Provider = strings.ToLower(strings.TrimSpace(claims.Provider))
	claims.Email = strings.TrimSpace(claims.Email)
	if claims.Provider == "" || claims.Subject == "" || claims.Email == "" {
		return nil, &TokenError{Reason: ReasonMalformed, Err: errors.New("assertion is missing identity fields")}
	}
	return claims, nil
}
