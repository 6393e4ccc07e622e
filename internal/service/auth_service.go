package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/auth"
	apperrors "storefront/internal/errors"
	"storefront/internal/model"
	"storefront/internal/repository"
)

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Issue(user *model.User) (string, *auth.Claims, error)
}

// AssertionVerifier checks federated identity assertions.
type AssertionVerifier interface {
	Enabled() bool
	Verify(assertion string) (*auth.AssertionClaims, error)
}

// RegisterInput is the payload for creating a password account.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Session is a signed-in user with its token.
type Session struct {
	User  *model.User
	Token string
}

// AuthService handles authentication operations.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*model.User, error)
	Login(ctx context.Context, email, password string) (*Session, error)
	SignInFederated(ctx context.Context, assertion string) (*Session, error)
	Me(ctx context.Context, userID string) (*model.User, error)
	FederationEnabled() bool
}

type authService struct {
	users     repository.UserRepository
	identity  IdentityResolver
	hasher    *auth.PasswordHasher
	tokens    TokenIssuer
	assertion AssertionVerifier
}

// NewAuthService creates a new authentication service.
func NewAuthService(users repository.UserRepository, identity IdentityResolver, hasher *auth.PasswordHasher, tokens TokenIssuer, assertion AssertionVerifier) AuthService {
	return &authService{
		users:     users,
		identity:  identity,
		hasher:    hasher,
		tokens:    tokens,
		assertion: assertion,
	}
}

// Register creates a customer account with a hashed password.
func (s *authService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return nil, apperrors.Validation("Name, email, and password are required")
	}
	if err := validate.Var(in.Email, "email"); err != nil {
		return nil, apperrors.Validation("Invalid email address")
	}

	hashed, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.users.Create(ctx, &model.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: &hashed,
		Role:         model.RoleCustomer,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Login verifies a password and issues a session token.
func (s *authService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperrors.Validation("Email and password are required")
	}

	user, err := s.identity.ResolveIdentity(ctx, LocalCredentials{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	return s.session(user)
}

// SignInFederated verifies an OAuth bridge assertion, creating or linking the
// user, and issues a session token.
func (s *authService) SignInFederated(ctx context.Context, assertion string) (*Session, error) {
	if !s.assertion.Enabled() {
		return nil, apperrors.NotFound("Federated sign-in is not enabled")
	}
	if strings.TrimSpace(assertion) == "" {
		return nil, apperrors.Validation("Assertion is required")
	}

	claims, err := s.assertion.Verify(assertion)
	if err != nil {
		return nil, apperrors.Unauthenticated("Invalid identity assertion")
	}

	user, err := s.identity.ResolveIdentity(ctx, FederatedAssertion{
		Provider: claims.Provider,
		Subject:  claims.Subject,
		Email:    claims.Email,
		Name:     claims.Name,
	})
	if err != nil {
		return nil, err
	}
	return s.session(user)
}

// Me returns the current user by id.
func (s *authService) Me(ctx context.Context, userID string) (*model.User, error) {
	return s.users.FindByID(ctx, userID)
}

func (s *authService) FederationEnabled() bool {
	return s.assertion.Enabled()
}

func (s *authService) session(user *model.User) (*Session, error) {
	token, _, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &Session{User: user, Token: token}, nil
}
