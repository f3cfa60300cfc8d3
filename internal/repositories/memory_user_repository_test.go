package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/anonto42/pawfolio/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func seedUser(t *testing.T, repo *MemoryUserRepository, name string) *models.User {
	t.Helper()
	u := &models.User{ExternalID: "ext-" + name, Username: name, Email: name + "@example.com"}
	require.NoError(t, repo.CreateUser(context.Background(), u))
	return u
}

func TestMemoryUserRepository_CreateUser(t *testing.T) {
	repo := NewMemoryUserRepository()
	u := seedUser(t, repo, "milo")

	assert.False(t, u.ID.IsZero())
	assert.Equal(t, models.RoleUser, u.Role)
	assert.True(t, u.IsActive)
	assert.NotNil(t, u.Following)
	assert.NotNil(t, u.Followers)

	dupes := []*models.User{
		{ExternalID: "ext-milo", Username: "other", Email: "other@example.com"},
		{ExternalID: "ext-2", Username: "milo", Email: "x@example.com"},
		{ExternalID: "ext-3", Username: "luna", Email: "milo@example.com"},
	}
	for _, d := range dupes {
		assert.ErrorIs(t, repo.CreateUser(context.Background(), d), ErrDuplicateUser)
	}

	got, err := repo.GetUserByExternalID(context.Background(), "ext-milo")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = repo.GetUserByID(context.Background(), primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestMemoryUserRepository_ReturnsCopies(t *testing.T) {
	repo := NewMemoryUserRepository()
	u := seedUser(t, repo, "milo")

	got, err := repo.GetUserByID(context.Background(), u.ID)
	require.NoError(t, err)
	got.Following = append(got.Following, primitive.NewObjectID())

	again, err := repo.GetUserByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Empty(t, again.Following)
}

func TestMemoryUserRepository_TransactionCommitsOnSuccess(t *testing.T) {
	repo := NewMemoryUserRepository()
	a := seedUser(t, repo, "a")
	b := seedUser(t, repo, "b")

	err := repo.WithinTransaction(context.Background(), func(ctx context.Context, tx UserTx) error {
		subject, err := tx.GetUserByID(ctx, a.ID)
		require.NoError(t, err)
		target, err := tx.GetUserByID(ctx, b.ID)
		require.NoError(t, err)
		subject.Follow(target)
		require.NoError(t, tx.SaveRelationships(ctx, subject))
		require.NoError(t, tx.SaveRelationships(ctx, target))

		// staged writes are visible inside the transaction
		reread, err := tx.GetUserByID(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, []primitive.ObjectID{b.ID}, reread.Following)
		return nil
	})
	require.NoError(t, err)

	gotA, _ := repo.GetUserByID(context.Background(), a.ID)
	gotB, _ := repo.GetUserByID(context.Background(), b.ID)
	assert.Equal(t, []primitive.ObjectID{b.ID}, gotA.Following)
	assert.Equal(t, []primitive.ObjectID{a.ID}, gotB.Followers)
}

func TestMemoryUserRepository_TransactionDiscardsOnError(t *testing.T) {
	repo := NewMemoryUserRepository()
	a := seedUser(t, repo, "a")
	b := seedUser(t, repo, "b")
	abort := errors.New("abort")

	err := repo.WithinTransaction(context.Background(), func(ctx context.Context, tx UserTx) error {
		subject, _ := tx.GetUserByID(ctx, a.ID)
		target, _ := tx.GetUserByID(ctx, b.ID)
		subject.Follow(target)
		require.NoError(t, tx.SaveRelationships(ctx, subject))
		return abort
	})
	assert.ErrorIs(t, err, abort)

	gotA, _ := repo.GetUserByID(context.Background(), a.ID)
	assert.Empty(t, gotA.Following)
}

func TestMemoryUserRepository_TransactionReleasesLockOnPanic(t *testing.T) {
	repo := NewMemoryUserRepository()
	seedUser(t, repo, "a")

	assert.Panics(t, func() {
		_ = repo.WithinTransaction(context.Background(), func(ctx context.Context, tx UserTx) error {
			panic("boom")
		})
	})

	// the store is usable again
	_, err := repo.GetUserByExternalID(context.Background(), "ext-a")
	assert.NoError(t, err)
}

func TestMemoryUserRepository_CancelledContext(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := repo.WithinTransaction(ctx, func(ctx context.Context, tx UserTx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestMemoryUserRepository_GetUsersByIDsKeepsOrder(t *testing.T) {
	repo := NewMemoryUserRepository()
	a := seedUser(t, repo, "a")
	b := seedUser(t, repo, "b")

	users, err := repo.GetUsersByIDs(context.Background(), []primitive.ObjectID{b.ID, primitive.NewObjectID(), a.ID})
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "b", users[0].Username)
	assert.Equal(t, "a", users[1].Username)
}
