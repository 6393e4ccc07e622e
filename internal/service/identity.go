package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"storefront/internal/auth"
	apperrors "storefront/internal/errors"
	"storefront/internal/metrics"
	"storefront/internal/model"
	"storefront/internal/repository"
)

// ErrInvalidCredentials is returned for any failed password sign-in.
var ErrInvalidCredentials = apperrors.Unauthenticated("Invalid email or password")

// Credentials is proof of identity presented at sign-in.
type Credentials interface {
	method() string
}

// LocalCredentials is an email and password pair.
type LocalCredentials struct {
	Email    string
	Password string
}

func (LocalCredentials) method() string { return "local" }

// FederatedAssertion is an identity vouched for by an external provider.
type FederatedAssertion struct {
	Provider string
	Subject  string
	Email    string
	Name     string
}

func (FederatedAssertion) method() string { return "federated" }

// IdentityResolver turns credentials into a stored user.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, creds Credentials) (*model.User, error)
}

type identityResolver struct {
	users  repository.UserRepository
	hasher *auth.PasswordHasher
	log    *zap.Logger
}

// NewIdentityResolver creates a resolver over the users repository.
func NewIdentityResolver(users repository.UserRepository, hasher *auth.PasswordHasher, log *zap.Logger) IdentityResolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &identityResolver{users: users, hasher: hasher, log: log}
}

func (r *identityResolver) ResolveIdentity(ctx context.Context, creds Credentials) (*model.User, error) {
	var (
		user *model.User
		err  error
	)
	switch c := creds.(type) {
	case LocalCredentials:
		user, err = r.resolveLocal(ctx, c)
	case FederatedAssertion:
		user, err = r.resolveFederated(ctx, c)
	default:
		return nil, fmt.Errorf("unsupported credentials %T", creds)
	}

	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	metrics.RecordAuthAttempt(creds.method(), outcome)
	return user, err
}

func (r *identityResolver) resolveLocal(ctx context.Context, c LocalCredentials) (*model.User, error) {
	user, err := r.users.FindByEmail(ctx, c.Email)
	if errors.Is(err, repository.ErrUserNotFound) {
		r.hasher.CompareDummy(c.Password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !user.HasPassword() {
		r.hasher.CompareDummy(c.Password)
		return nil, ErrInvalidCredentials
	}
	if !r.hasher.Compare(*user.PasswordHash, c.Password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (r *identityResolver) resolveFederated(ctx context.Context, c FederatedAssertion) (*model.User, error) {
	if c.Provider == "" || c.Subject == "" || c.Email == "" {
		return nil, apperrors.Validation("Incomplete identity assertion")
	}

	user, err := r.users.FindByEmail(ctx, c.Email)
	if errors.Is(err, repository.ErrUserNotFound) {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			name = c.Email
		}
		created, err := r.users.Create(ctx, &model.User{
			Name:       name,
			Email:      c.Email,
			Role:       model.RoleCustomer,
			Provider:   c.Provider,
			ProviderID: c.Subject,
		})
		// Lost a race with another first sign-in for the same email.
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return r.resolveFederated(ctx, c)
		}
		if err != nil {
			return nil, err
		}
		r.log.Info("created federated user", zap.String("user_id", created.ID), zap.String("provider", c.Provider))
		return created, nil
	}
	if err != nil {
		return nil, err
	}

	if user.Provider == "" {
		return r.users.LinkProvider(ctx, user.ID, c.Provider, c.Subject)
	}
	return user, nil
}
