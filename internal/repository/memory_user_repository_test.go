package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maputo/user-service/internal/domain"
)

func newUser(username, email string) *domain.User {
	return &domain.User{
		UserID:      "1234567890",
		Username:    username,
		Email:       email,
		JoinDate:    time.Now(),
		Role:        domain.RoleUser,
		Authorities: domain.RoleUser.Authorities(),
		Active:      true,
		NotBlocked:  true,
	}
}

func TestMemoryUserRepository_SaveAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepository()

	rick := newUser("rick", "rick@citadel.io")
	require.NoError(t, repo.Save(ctx, rick))
	assert.Equal(t, int64(1), rick.ID)

	found, err := repo.FindByUsername(ctx, "rick")
	require.NoError(t, err)
	assert.Equal(t, "rick@citadel.io", found.Email)

	found, err = repo.FindByEmail(ctx, "RICK@citadel.io")
	require.NoError(t, err)
	assert.Equal(t, "rick", found.Username)

	_, err = repo.FindByUsername(ctx, "morty")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryUserRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepository()
	require.NoError(t, repo.Save(ctx, newUser("rick", "rick@citadel.io")))

	found, err := repo.FindByUsername(ctx, "rick")
	require.NoError(t, err)
	found.Authorities[0] = "user:delete"
	found.FirstName = "Evil"

	again, err := repo.FindByUsername(ctx, "rick")
	require.NoError(t, err)
	assert.Equal(t, []string{"user:read"}, again.Authorities)
	assert.Empty(t, again.FirstName)
}

func TestMemoryUserRepository_UpdateAndDuplicates(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepository()

	rick := newUser("rick", "rick@citadel.io")
	morty := newUser("morty", "morty@citadel.io")
	require.NoError(t, repo.Save(ctx, rick))
	require.NoError(t, repo.Save(ctx, morty))

	assert.ErrorIs(t, repo.Save(ctx, newUser("rick", "other@citadel.io")), ErrDuplicate)

	morty.Email = "rick@citadel.io"
	assert.ErrorIs(t, repo.Save(ctx, morty), ErrDuplicate)

	rick.FirstName = "Rick"
	require.NoError(t, repo.Save(ctx, rick))
	found, err := repo.FindByUsername(ctx, "rick")
	require.NoError(t, err)
	assert.Equal(t, "Rick", found.FirstName)

	ghost := newUser("ghost", "ghost@citadel.io")
	ghost.ID = 99
	assert.ErrorIs(t, repo.Save(ctx, ghost), ErrNotFound)
}

func TestMemoryUserRepository_FindAllAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepository()
	for _, name := range []string{"rick", "morty", "summer"} {
		require.NoError(t, repo.Save(ctx, newUser(name, name+"@citadel.io")))
	}

	users, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "rick", users[0].Username)
	assert.Equal(t, "summer", users[2].Username)

	require.NoError(t, repo.DeleteByID(ctx, users[1].ID))
	assert.ErrorIs(t, repo.DeleteByID(ctx, users[1].ID), ErrNotFound)

	users, err = repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}
