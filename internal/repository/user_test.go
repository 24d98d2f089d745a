package repository

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/prian3003/gotchu-auth/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to open in-memory database")

	require.NoError(t, db.AutoMigrate(&models.User{}))
	return db
}

func seedUser(t *testing.T, repo UserRepository, username, email string) *models.User {
	t.Helper()

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
		Plan:         models.PlanFree,
		IsActive:     true,
	}
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}

func TestCreateAndFindByID(t *testing.T) {
	repo := NewUserRepository(setupTestDB(t))
	created := seedUser(t, repo, "alice", "alice@example.com")

	found, err := repo.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", found.Username)
	assert.Equal(t, "alice@example.com", found.Email)
	assert.True(t, found.IsActive)
	assert.Equal(t, models.PlanFree, found.Plan)
}

func TestFindByUsernameCaseInsensitive(t *testing.T) {
	repo := NewUserRepository(setupTestDB(t))
	seedUser(t, repo, "alice", "alice@example.com")

	found, err := repo.FindByUsername(context.Background(), "ALICE")
	require.NoError(t, err)
	assert.Equal(t, "alice", found.Username)
}

func TestFindByEmailCaseInsensitive(t *testing.T) {
	repo := NewUserRepository(setupTestDB(t))
	seedUser(t, repo, "alice", "alice@example.com")

	found, err := repo.FindByEmail(context.Background(), "Alice@Example.COM")
	require.NoError(t, err)
	assert.Equal(t, "alice", found.Username)
}

func TestFindByIdentifier(t *testing.T) {
	repo := NewUserRepository(setupTestDB(t))
	seedUser(t, repo, "alice", "alice@example.com")

	byUsername, err := repo.FindByIdentifier(context.Background(), "alice")
	require.NoError(t, err)

	byEmail, err := repo.FindByIdentifier(context.Background(), "alice@example.com")
	require.NoError(t, err)

	assert.Equal(t, byUsername.ID, byEmail.ID)
}

func TestFindNotFound(t *testing.T) {
	repo := NewUserRepository(setupTestDB(t))

	_, err := repo.FindByUsername(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.FindByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.FindByIdentifier(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.FindByID(context.Background(), 12345)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDuplicateUsernameRejected(t *testing.T) {
	repo := NewUserRepository(setupTestDB(t))
	seedUser(t, repo, "alice", "alice@example.com")

	err := repo.Create(context.Background(), &models.User{
		Username:     "alice",
		Email:        "other@example.com",
		PasswordHash: "x",
		IsActive:     true,
	})
	assert.Error(t, err, "unique index should reject duplicate username")
}

func TestUpdate(t *testing.T) {
	repo := NewUserRepository(setupTestDB(t))
	user := seedUser(t, repo, "alice", "alice@example.com")

	user.Plan = models.PlanPremium
	user.IsActive = false
	require.NoError(t, repo.Update(context.Background(), user))

	found, err := repo.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PlanPremium, found.Plan)
	assert.False(t, found.IsActive)
}

func TestUpdateLastLogin(t *testing.T) {
	repo := NewUserRepository(setupTestDB(t))
	user := seedUser(t, repo, "alice", "alice@example.com")
	require.Nil(t, user.LastLoginAt)

	at := time.Now().Truncate(time.Second)
	require.NoError(t, repo.UpdateLastLogin(context.Background(), user.ID, at))

	found, err := repo.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	require.NotNil(t, found.LastLoginAt)
	assert.WithinDuration(t, at, *found.LastLoginAt, time.Second)
}
