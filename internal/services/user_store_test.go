package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/isdelr/blog-api/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"), 5)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

func newTestStore(t *testing.T) *SQLUserStore {
	t.Helper()
	return NewSQLUserStore(newTestDB(t), 3*time.Second)
}

func TestSQLUserStore_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	display := "Alice"
	id, err := store.Create(ctx, NewUser{
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "hash",
		DisplayName:  &display,
	})
	require.NoError(t, err)
	assert.Positive(t, id)

	user, err := store.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, "hash", user.PasswordHash)
	require.NotNil(t, user.DisplayName)
	assert.Equal(t, "Alice", *user.DisplayName)
	assert.Nil(t, user.Bio)
	assert.Nil(t, user.DeletedAt)
	assert.False(t, user.CreatedAt.IsZero())
	assert.Equal(t, user.CreatedAt, user.UpdatedAt)

	_, err = store.GetByID(ctx, id+100)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestSQLUserStore_Exists(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.Create(ctx, NewUser{Username: "alice", Email: "alice@example.com", PasswordHash: "h"})
	require.NoError(t, err)

	ok, err := store.EmailExists(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.EmailExists(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.UsernameExists(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.UsernameExists(ctx, "Alice")
	require.NoError(t, err)
	assert.False(t, ok, "usernames are case-sensitive")
}

func TestSQLUserStore_CreateDuplicate(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.Create(ctx, NewUser{Username: "alice", Email: "alice@example.com", PasswordHash: "h"})
	require.NoError(t, err)

	_, err = store.Create(ctx, NewUser{Username: "bob", Email: "alice@example.com", PasswordHash: "h"})
	assert.ErrorIs(t, err, ErrDuplicateUser)

	_, err = store.Create(ctx, NewUser{Username: "alice", Email: "other@example.com", PasswordHash: "h"})
	assert.ErrorIs(t, err, ErrDuplicateUser)
}

func TestSQLUserStore_SoftDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	id, err := store.Create(ctx, NewUser{Username: "alice", Email: "alice@example.com", PasswordHash: "h"})
	require.NoError(t, err)

	_, err = store.GetActiveByEmail(ctx, "alice@example.com")
	require.NoError(t, err)

	require.NoError(t, store.SoftDelete(ctx, id))
	assert.ErrorIs(t, store.SoftDelete(ctx, id), ErrUserNotFound, "already deleted")

	_, err = store.GetActiveByEmail(ctx, "alice@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = store.GetActiveByID(ctx, id)
	assert.ErrorIs(t, err, ErrUserNotFound)

	user, err := store.GetByID(ctx, id)
	require.NoError(t, err, "row is kept")
	require.NotNil(t, user.DeletedAt)

	ok, err := store.EmailExists(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, ok, "soft-deleted rows still reserve their email")
}

func TestSQLUserStore_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	display := "Alice"
	id, err := store.Create(ctx, NewUser{Username: "alice", Email: "alice@example.com", PasswordHash: "h", DisplayName: &display})
	require.NoError(t, err)

	bio := "writes about Go"
	pic := "https://cdn.example.com/alice.png"
	user, err := store.UpdateProfile(ctx, id, ProfileUpdate{Bio: &bio, ProfilePictureURL: &pic})
	require.NoError(t, err)
	require.NotNil(t, user.Bio)
	assert.Equal(t, bio, *user.Bio)
	assert.Equal(t, pic, *user.ProfilePictureURL)
	require.NotNil(t, user.DisplayName, "untouched field keeps its value")
	assert.Equal(t, "Alice", *user.DisplayName)

	empty := ""
	user, err = store.UpdateProfile(ctx, id, ProfileUpdate{DisplayName: &empty})
	require.NoError(t, err)
	assert.Nil(t, user.DisplayName)

	require.NoError(t, store.SoftDelete(ctx, id))
	_, err = store.UpdateProfile(ctx, id, ProfileUpdate{Bio: &bio})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestSQLUserStore_CountUsers(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	counts, err := store.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, UserCounts{}, counts)

	id, err := store.Create(ctx, NewUser{Username: "alice", Email: "alice@example.com", PasswordHash: "h"})
	require.NoError(t, err)
	_, err = store.Create(ctx, NewUser{Username: "bob", Email: "bob@example.com", PasswordHash: "h"})
	require.NoError(t, err)
	require.NoError(t, store.SoftDelete(ctx, id))

	counts, err = store.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, UserCounts{Active: 1, Deleted: 1}, counts)
}

func TestSQLUserStore_TimeoutSurfacesAsError(t *testing.T) {
	store := newTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.EmailExists(ctx, "alice@example.com")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUserNotFound)
}
