package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/qcdash/backend/internal/domain/identity"
	"github.com/qcdash/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestUser(t *testing.T, repo *GormUserRepository, name, email string, role identity.Role) *identity.User {
	t.Helper()
	u, err := identity.NewUser(name, email, "secret123", role)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func TestGormUserRepository_CreateAndFind(t *testing.T) {
	repo := NewGormUserRepository(setupTestDB(t))
	ctx := context.Background()

	u := createTestUser(t, repo, "alice", "Alice@Example.com", identity.RoleManager)

	byID, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Name)
	assert.Equal(t, "alice@example.com", byID.Email)
	assert.Equal(t, identity.RoleManager, byID.Role)
	assert.True(t, byID.VerifyPassword("secret123"))

	byEmail, err := repo.FindByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	byName, err := repo.FindByName(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byName.ID)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormUserRepository_DuplicateEmail(t *testing.T) {
	repo := NewGormUserRepository(setupTestDB(t))
	createTestUser(t, repo, "alice", "alice@example.com", identity.RoleInspector)

	dup, err := identity.NewUser("alice2", "alice@example.com", "secret123", identity.RoleInspector)
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Create(context.Background(), dup), shared.ErrAlreadyExists)
}

func TestGormUserRepository_Exists(t *testing.T) {
	repo := NewGormUserRepository(setupTestDB(t))
	ctx := context.Background()
	createTestUser(t, repo, "bob", "bob@example.com", identity.RoleInspector)

	ok, err := repo.ExistsByName(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.ExistsByEmail(ctx, "BOB@example.com")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.ExistsByName(ctx, "carol")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGormUserRepository_FindAllAndRoles(t *testing.T) {
	repo := NewGormUserRepository(setupTestDB(t))
	ctx := context.Background()
	admin := createTestUser(t, repo, "zed", "zed@example.com", identity.RoleAdmin)
	manager := createTestUser(t, repo, "mia", "mia@example.com", identity.RoleManager)
	createTestUser(t, repo, "ian", "ian@example.com", identity.RoleInspector)

	all, total, err := repo.FindAll(ctx, identity.NewUserFilter())
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, all, 3)
	assert.Equal(t, "ian", all[0].Name)

	role := identity.RoleAdmin
	admins, total, err := repo.FindAll(ctx, identity.UserFilter{Role: &role, Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, admin.ID, admins[0].ID)

	found, _, err := repo.FindAll(ctx, identity.UserFilter{Keyword: "MI", Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, manager.ID, found[0].ID)

	recipients, err := repo.FindByRoles(ctx, identity.RoleAdmin, identity.RoleManager)
	require.NoError(t, err)
	assert.Len(t, recipients, 2)

	byIDs, err := repo.FindByIDs(ctx, []uuid.UUID{admin.ID, uuid.New()})
	require.NoError(t, err)
	assert.Len(t, byIDs, 1)
}

func TestGormUserRepository_ResetToken(t *testing.T) {
	repo := NewGormUserRepository(setupTestDB(t))
	ctx := context.Background()
	u := createTestUser(t, repo, "dana", "dana@example.com", identity.RoleInspector)

	token, err := u.IssueResetToken(time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.Update(ctx, u))

	found, err := repo.FindByResetTokenHash(ctx, identity.HashResetToken(token))
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)
	assert.True(t, found.ResetTokenValid(token, time.Now()))

	_, err = repo.FindByResetTokenHash(ctx, "")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormUserRepository_Delete(t *testing.T) {
	repo := NewGormUserRepository(setupTestDB(t))
	ctx := context.Background()
	u := createTestUser(t, repo, "erin", "erin@example.com", identity.RoleInspector)

	require.NoError(t, repo.Delete(ctx, u.ID))
	assert.ErrorIs(t, repo.Delete(ctx, u.ID), shared.ErrNotFound)
}

func TestGormUserRepository_FindAllOrdering(t *testing.T) {
	repo := NewGormUserRepository(setupTestDB(t))
	ctx := context.Background()
	createTestUser(t, repo, "amy", "zz@example.com", identity.RoleInspector)
	createTestUser(t, repo, "bob", "aa@example.com", identity.RoleAdmin)

	filter := identity.NewUserFilter()
	filter.OrderBy, filter.OrderDir = "email", "asc"
	users, _, err := repo.FindAll(ctx, filter)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "bob", users[0].Name)

	filter.OrderBy, filter.OrderDir = "password_hash", "desc"
	users, _, err = repo.FindAll(ctx, filter)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "bob", users[0].Name, "unlisted fields fall back to name")
}

func TestGormUserRepository_KeywordTreatsWildcardsLiterally(t *testing.T) {
	repo := NewGormUserRepository(setupTestDB(t))
	ctx := context.Background()
	createTestUser(t, repo, "qa_lead", "lead@example.com", identity.RoleManager)
	createTestUser(t, repo, "qaxlead", "other@example.com", identity.RoleInspector)

	filter := identity.NewUserFilter()
	filter.Keyword = "qa_"
	users, total, err := repo.FindAll(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, users, 1)
	assert.Equal(t, "qa_lead", users[0].Name)
}
