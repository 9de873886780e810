package identity

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/qcdash/backend/internal/domain/identity"
	"github.com/qcdash/backend/internal/domain/shared"
	"github.com/qcdash/backend/internal/infrastructure/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestUserService(repo *MockUserRepository) (*UserService, *auth.InMemoryTokenBlacklist) {
	bl := auth.NewInMemoryTokenBlacklist()
	return NewUserService(repo, bl, newTestJWTService(), zap.NewNop()), bl
}

func strPtr(s string) *string { return &s }

func TestUserService_List(t *testing.T) {
	ctx := context.Background()
	repo := new(MockUserRepository)
	svc, _ := newTestUserService(repo)
	u := newTestUser(t, "alice", identity.RoleInspector)

	repo.On("FindAll", ctx, mock.MatchedBy(func(f identity.UserFilter) bool {
		return f.Keyword == "ali" && f.Role != nil && *f.Role == identity.RoleInspector && f.Page == 1 && f.PageSize == 10
	})).Return([]*identity.User{u}, int64(1), nil)

	users, total, err := svc.List(ctx, ListUsersQuery{Search: " ali ", Role: "inspector"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].Name)
}

func TestUserService_Update_Self(t *testing.T) {
	ctx := context.Background()
	repo := new(MockUserRepository)
	svc, _ := newTestUserService(repo)
	u := newTestUser(t, "alice", identity.RoleInspector)
	oldHash := u.PasswordHash

	repo.On("FindByID", ctx, u.ID).Return(u, nil)
	repo.On("Update", ctx, u).Return(nil)

	resp, err := svc.Update(ctx, Actor{ID: u.ID, Role: identity.RoleInspector}, u.ID, UpdateUserInput{
		Department: strPtr("Paint shop"),
		Password:   strPtr("ignored-password"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Paint shop", resp.Department)
	assert.Equal(t, oldHash, u.PasswordHash, "password is never changed through update")
}

func TestUserService_Update_Forbidden(t *testing.T) {
	ctx := context.Background()
	repo := new(MockUserRepository)
	svc, _ := newTestUserService(repo)

	_, err := svc.Update(ctx, Actor{ID: uuid.New(), Role: identity.RoleManager}, uuid.New(), UpdateUserInput{})
	assert.ErrorIs(t, err, ErrNotAuthorizedToUpdate)
	assert.Equal(t, "Not authorized to update this user", err.Error())
	repo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestUserService_Update_RoleChange(t *testing.T) {
	ctx := context.Background()

	t.Run("self promotion is rejected", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc, _ := newTestUserService(repo)
		u := newTestUser(t, "alice", identity.RoleInspector)
		repo.On("FindByID", ctx, u.ID).Return(u, nil)

		_, err := svc.Update(ctx, Actor{ID: u.ID, Role: identity.RoleInspector}, u.ID, UpdateUserInput{Role: strPtr("admin")})
		assert.ErrorIs(t, err, ErrRoleChangeForbidden)
		assert.Equal(t, identity.RoleInspector, u.Role)
	})

	t.Run("admin changes role", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc, _ := newTestUserService(repo)
		u := newTestUser(t, "alice", identity.RoleInspector)
		repo.On("FindByID", ctx, u.ID).Return(u, nil)
		repo.On("Update", ctx, u).Return(nil)

		resp, err := svc.Update(ctx, Actor{ID: uuid.New(), Role: identity.RoleAdmin}, u.ID, UpdateUserInput{Role: strPtr("manager")})
		require.NoError(t, err)
		assert.Equal(t, "manager", resp.Role)
	})
}

func TestUserService_Update_NameTaken(t *testing.T) {
	ctx := context.Background()
	repo := new(MockUserRepository)
	svc, _ := newTestUserService(repo)
	u := newTestUser(t, "alice", identity.RoleInspector)

	repo.On("FindByID", ctx, u.ID).Return(u, nil)
	repo.On("ExistsByName", ctx, "bob").Return(true, nil)

	_, err := svc.Update(ctx, Actor{ID: u.ID}, u.ID, UpdateUserInput{Name: strPtr("bob")})
	assert.ErrorIs(t, err, ErrNameExists)
}

func TestUserService_Delete(t *testing.T) {
	ctx := context.Background()
	repo := new(MockUserRepository)
	svc, bl := newTestUserService(repo)
	admin := Actor{ID: uuid.New(), Role: identity.RoleAdmin}
	u := newTestUser(t, "alice", identity.RoleInspector)

	repo.On("FindByID", ctx, u.ID).Return(u, nil)
	repo.On("Delete", ctx, u.ID).Return(nil)

	require.NoError(t, svc.Delete(ctx, admin, u.ID))
	invalidated, err := bl.IsUserTokenInvalidated(ctx, u.ID.String(), time.Now().Add(-time.Second))
	require.NoError(t, err)
	assert.True(t, invalidated)
}

func TestUserService_Delete_Self(t *testing.T) {
	repo := new(MockUserRepository)
	svc, _ := newTestUserService(repo)
	admin := Actor{ID: uuid.New(), Role: identity.RoleAdmin}

	err := svc.Delete(context.Background(), admin, admin.ID)
	assert.ErrorIs(t, err, ErrCannotDeleteSelf)
}

func TestUserService_Delete_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := new(MockUserRepository)
	svc, _ := newTestUserService(repo)
	id := uuid.New()

	repo.On("FindByID", ctx, id).Return(nil, shared.ErrNotFound)

	err := svc.Delete(ctx, Actor{ID: uuid.New(), Role: identity.RoleAdmin}, id)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}
