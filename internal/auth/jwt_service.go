package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"storefront/internal/model"
)

// TokenTTL is the lifetime of a session token.
const TokenTTL = 7 * 24 * time.Hour

// Claims represents JWT claims carried by the auth-token cookie.
type Claims struct {
	UserID string     `json:"id"`
	Email  string     `json:"email"`
	Role   model.Role `json:"role"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the token holder may enter admin routes.
func (c *Claims) IsAdmin() bool {
	return c.Role == model.RoleAdmin
}

// TokenReason says why a token was rejected.
type TokenReason string

const (
	ReasonMalformed TokenReason = "malformed"
	ReasonExpired   TokenReason = "expired"
)

// TokenError is returned by Verify for any token that must not be trusted.
type TokenError struct {
	Reason TokenReason
	Err    error
}

func (e *TokenError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("token %s: %v", e.Reason, e.Err)
	}
	return "token " + string(e.Reason)
}

func (e *TokenError) Unwrap() error { return e.Err }

// IsExpired reports whether err is a TokenError for an expired token.
func IsExpired(err error) bool {
	var te *TokenError
	return errors.As(err, &te) && te.Reason == ReasonExpired
}

// Option configures a JWTService.
type Option func(*JWTService)

// WithClock overrides the time source used to stamp issued tokens.
func WithClock(now func() time.Time) Option {
	return func(s *JWTService) { s.now = now }
}

// WithLogger sets the logger used for startup warnings.
func WithLogger(log *zap.Logger) Option {
	return func(s *JWTService) { s.log = log }
}

// JWTService handles JWT token generation and validation.
type JWTService struct {
	secret []byte
	now    func() time.Time
	log    *zap.Logger
}

// NewJWTService creates a new JWT service with the given secret. An empty
// secret is replaced by a random one that lives as long as the process.
func NewJWTService(secret string, opts ...Option) (*JWTService, error) {
	s := &JWTService{
		secret: []byte(secret),
		now:    time.Now,
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if len(s.secret) == 0 {
		s.secret = make([]byte, 32)
		if _, err := rand.Read(s.secret); err != nil {
			return nil, fmt.Errorf("generate signing secret: %w", err)
		}
		s.log.Warn("JWT_SECRET is not set; using an ephemeral secret, sessions will not survive a restart")
	}
	return s, nil
}

// Issue signs a token for user valid for TokenTTL.
func (s *JWTService) Issue(user *model.User) (string, *Claims, error) {
	now := s.now()
	claims := &Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// Verify validates a token and returns its claims. Every failure is a
// *TokenError.
func (s *JWTService) Verify(tokenString string) (*Claims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) && ve.Errors == jwt.ValidationErrorExpired {
			return nil, &TokenError{Reason: ReasonExpired, Err: err}
		}
		return nil, &TokenError{Reason: ReasonMalformed, Err: err}
	}
	if !token.Valid {
		return nil, &TokenError{Reason: ReasonMalformed, Err: errors.New("invalid token")}
	}
	if claims.UserID == "" || !claims.Role.Valid() {
		return nil, &TokenError{Reason: ReasonMalformed, Err: errors.New("missing identity claims")}
	}
	return claims, nil
}
