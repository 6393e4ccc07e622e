package repository

import (
	"context"

	apperrors "storefront/internal/errors"
	"storefront/internal/model"
	"storefront/internal/store"
)

var (
	// ErrUserNotFound is returned when no user matches.
	ErrUserNotFound = apperrors.NotFound("User not found")
	// ErrDuplicateEmail is returned when the email is already registered.
	ErrDuplicateEmail = apperrors.Conflict("User with this email already exists")
)

// UserRepository defines persistence operations.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	LinkProvider(ctx context.Context, id, provider, providerID string) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
}

type userRepository struct {
	users store.Collection[model.User]
}

// NewUserRepository builds a repository over the users collection.
func NewUserRepository(users store.Collection[model.User]) UserRepository {
	return &userRepository{users: users}
}

// Create inserts user unless its email is taken. The lookup and the append
// happen under one exclusive lock.
func (r *userRepository) Create(ctx context.Context, user *model.User) (*model.User, error) {
	var created model.User
	err := r.users.Mutate(ctx, func(items []model.User) ([]model.User, bool, error) {
		for i := range items {
			if items[i].Email == user.Email {
				return nil, false, ErrDuplicateEmail
			}
		}
		created = *user
		if created.ID == "" {
			created.ID = model.NewUserID()
		}
		if created.CreatedAt.IsZero() {
			created.CreatedAt = model.Now()
		}
		return append(items, created), true, nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	user, found, err := r.users.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrUserNotFound
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	users, err := r.users.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].Email == email {
			return &users[i], nil
		}
	}
	return nil, ErrUserNotFound
}

// LinkProvider records the federated identity on an existing user.
func (r *userRepository) LinkProvider(ctx context.Context, id, provider, providerID string) (*model.User, error) {
	var linked *model.User
	err := r.users.Mutate(ctx, func(items []model.User) ([]model.User, bool, error) {
		for i := range items {
			if items[i].ID != id {
				continue
			}
			if items[i].Provider == provider && items[i].ProviderID == providerID {
				u := items[i]
				linked = &u
				return items, false, nil
			}
			items[i].Provider = provider
			items[i].ProviderID = providerID
			u := items[i]
			linked = &u
			return items, true, nil
		}
		return nil, false, ErrUserNotFound
	})
	if err != nil {
		return nil, err
	}
	return linked, nil
}

func (r *userRepository) List(ctx context.Context) ([]model.User, error) {
	return r.users.List(ctx)
}
