package repository

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "storefront/internal/errors"
	"storefront/internal/model"
	"storefront/internal/store"
)

func newUserRepo(t *testing.T) UserRepository {
	t.Helper()
	backend := store.NewFileBackend(filepath.Join(t.TempDir(), "users.json"))
	users := store.NewCollection[model.User, *model.User](backend, store.NewLockSet(5*time.Second), store.Options[model.User]{
		Name:     "users",
		IDPrefix: model.UserIDPrefix,
	})
	return NewUserRepository(users)
}

func strPtr(s string) *string { return &s }

func TestUserRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := newUserRepo(t)

	created, err := repo.Create(ctx, &model.User{
		Name:         "Asha",
		Email:        "asha@example.com",
		PasswordHash: strPtr("hash"),
		Role:         model.RoleCustomer,
	})
	require.NoError(t, err)
	assert.Contains(t, created.ID, model.UserIDPrefix)
	assert.False(t, created.CreatedAt.IsZero())

	byEmail, err := repo.FindByEmail(ctx, "asha@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	byID, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", byID.Email)

	_, err = repo.FindByEmail(ctx, "ASHA@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound, "emails match as stored")

	_, err = repo.FindByID(ctx, "user-missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repo := newUserRepo(t)

	_, err := repo.Create(ctx, &model.User{Name: "A", Email: "a@example.com", Role: model.RoleCustomer})
	require.NoError(t, err)

	_, err = repo.Create(ctx, &model.User{Name: "B", Email: "a@example.com", Role: model.RoleCustomer})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
}

func TestUserRepository_ConcurrentDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repo := newUserRepo(t)

	const n = 10
	var created, conflicts atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Create(ctx, &model.User{Name: "Same", Email: "same@example.com", Role: model.RoleCustomer})
			switch {
			case err == nil:
				created.Add(1)
			case errors.Is(err, ErrDuplicateEmail):
				conflicts.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, created.Load())
	assert.EqualValues(t, n-1, conflicts.Load())

	users, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestUserRepository_LinkProvider(t *testing.T) {
	ctx := context.Background()
	repo := newUserRepo(t)

	user, err := repo.Create(ctx, &model.User{Name: "A", Email: "a@example.com", PasswordHash: strPtr("hash"), Role: model.RoleCustomer})
	require.NoError(t, err)

	linked, err := repo.LinkProvider(ctx, user.ID, "google", "g-1")
	require.NoError(t, err)
	assert.Equal(t, "google", linked.Provider)
	assert.Equal(t, "g-1", linked.ProviderID)
	assert.True(t, linked.HasPassword(), "linking keeps the password")

	again, err := repo.LinkProvider(ctx, user.ID, "google", "g-1")
	require.NoError(t, err)
	assert.Equal(t, linked.ID, again.ID)

	stored, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "google", stored.Provider)

	_, err = repo.LinkProvider(ctx, "user-missing", "google", "g-2")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
