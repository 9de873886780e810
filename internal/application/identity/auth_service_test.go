package identity

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/qcdash/backend/internal/domain/identity"
	"github.com/qcdash/backend/internal/domain/shared"
	"github.com/qcdash/backend/internal/infrastructure/auth"
	"github.com/qcdash/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockUserRepository is a mock implementation of identity.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindByName(ctx context.Context, name string) (*identity.User, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindByResetTokenHash(ctx context.Context, hash string) (*identity.User, error) {
	args := m.Called(ctx, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindAll(ctx context.Context, filter identity.UserFilter) ([]*identity.User, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*identity.User), args.Get(1).(int64), args.Error(2)
}

func (m *MockUserRepository) FindByRoles(ctx context.Context, roles ...identity.Role) ([]*identity.User, error) {
	args := m.Called(ctx, roles)
	return args.Get(0).([]*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*identity.User, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]*identity.User), args.Error(1)
}

func (m *MockUserRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

type recordingMailer struct {
	to, subject, body string
	err               error
}

func (m *recordingMailer) Send(_ context.Context, to, subject, body string) error {
	m.to, m.subject, m.body = to, subject, body
	return m.err
}

func newTestJWTService() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:     "test-secret-key-at-least-32-chars",
		Issuer:     "qc-test",
		Expiration: 30 * 24 * time.Hour,
	})
}

func newTestAuthService(repo *MockUserRepository, mailer Mailer) (*AuthService, *auth.InMemoryTokenBlacklist) {
	bl := auth.NewInMemoryTokenBlacklist()
	return NewAuthService(repo, newTestJWTService(), bl, mailer, "http://localhost:3000/", zap.NewNop()), bl
}

func newTestUser(t *testing.T, name string, role identity.Role) *identity.User {
	t.Helper()
	u, err := identity.NewUser(name, name+"@example.com", "secret123", role)
	require.NoError(t, err)
	return u
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()
	repo := new(MockUserRepository)
	svc, _ := newTestAuthService(repo, nil)

	repo.On("ExistsByEmail", ctx, "alice@example.com").Return(false, nil)
	repo.On("ExistsByName", ctx, "alice").Return(false, nil)
	repo.On("Create", ctx, mock.AnythingOfType("*identity.User")).Return(nil)

	result, err := svc.Register(ctx, RegisterInput{
		Name:       "alice",
		Email:      " Alice@Example.com ",
		Password:   "secret123",
		Department: "Assembly",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.NotEmpty(t, result.TokenID)
	assert.Equal(t, "alice@example.com", result.User.Email)
	assert.Equal(t, "inspector", result.User.Role)
	assert.Equal(t, "Assembly", result.User.Department)
	repo.AssertExpectations(t)
}

func TestAuthService_Register_Duplicates(t *testing.T) {
	ctx := context.Background()

	t.Run("email taken", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc, _ := newTestAuthService(repo, nil)
		repo.On("ExistsByEmail", ctx, "alice@example.com").Return(true, nil)

		_, err := svc.Register(ctx, RegisterInput{Name: "alice", Email: "alice@example.com", Password: "secret123"})
		assert.ErrorIs(t, err, ErrEmailExists)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("name taken", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc, _ := newTestAuthService(repo, nil)
		repo.On("ExistsByEmail", ctx, "alice@example.com").Return(false, nil)
		repo.On("ExistsByName", ctx, "alice").Return(true, nil)

		_, err := svc.Register(ctx, RegisterInput{Name: "alice", Email: "alice@example.com", Password: "secret123"})
		assert.ErrorIs(t, err, ErrNameExists)
	})
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	repo := new(MockUserRepository)
	svc, _ := newTestAuthService(repo, nil)
	user := newTestUser(t, "bob", identity.RoleManager)

	repo.On("FindByName", ctx, "bob").Return(user, nil)
	repo.On("FindByName", ctx, "nobody").Return(nil, shared.ErrNotFound)

	result, err := svc.Login(ctx, LoginInput{Name: "bob", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, result.User.ID)

	claims, err := newTestJWTService().ValidateToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, "manager", claims.Role)

	_, err = svc.Login(ctx, LoginInput{Name: "bob", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, LoginInput{Name: "nobody", Password: "secret123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_Logout(t *testing.T) {
	ctx := context.Background()
	repo := new(MockUserRepository)
	svc, bl := newTestAuthService(repo, nil)

	err := svc.Logout(ctx, LogoutInput{UserID: uuid.New(), TokenJTI: "jti-1", ExpiresAt: time.Now().Add(time.Hour)})
	require.NoError(t, err)

	revoked, err := bl.IsBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	// already expired tokens need no revocation
	require.NoError(t, svc.Logout(ctx, LogoutInput{TokenJTI: "jti-2", ExpiresAt: time.Now().Add(-time.Minute)}))
	revoked, _ = bl.IsBlacklisted(ctx, "jti-2")
	assert.False(t, revoked)
}

func TestAuthService_ForgotPassword(t *testing.T) {
	ctx := context.Background()
	repo := new(MockUserRepository)
	mailer := &recordingMailer{}
	svc, _ := newTestAuthService(repo, mailer)
	user := newTestUser(t, "carol", identity.RoleInspector)

	repo.On("FindByEmail", ctx, "carol@example.com").Return(user, nil)
	repo.On("Update", ctx, user).Return(nil).Once()

	require.NoError(t, svc.ForgotPassword(ctx, ForgotPasswordInput{Email: "Carol@example.com"}))
	assert.Equal(t, "carol@example.com", mailer.to)
	require.Contains(t, mailer.body, "http://localhost:3000/reset-password/")

	idx := strings.Index(mailer.body, "/reset-password/")
	token := strings.TrimSpace(mailer.body[idx+len("/reset-password/"):])
	assert.Len(t, token, 64)
	assert.Equal(t, identity.HashResetToken(token), user.ResetPasswordTokenHash)
	assert.True(t, user.ResetTokenValid(token, time.Now()))
	repo.AssertExpectations(t)
}

func TestAuthService_ForgotPassword_UnknownEmail(t *testing.T) {
	ctx := context.Background()
	repo := new(MockUserRepository)
	svc, _ := newTestAuthService(repo, &recordingMailer{})

	repo.On("FindByEmail", ctx, "ghost@example.com").Return(nil, shared.ErrNotFound)

	err := svc.ForgotPassword(ctx, ForgotPasswordInput{Email: "ghost@example.com"})
	assert.ErrorIs(t, err, ErrUnknownEmail)
}

func TestAuthService_ForgotPassword_SendFailureClearsToken(t *testing.T) {
	ctx := context.Background()
	repo := new(MockUserRepository)
	mailer := &recordingMailer{err: errors.New("smtp down")}
	svc, _ := newTestAuthService(repo, mailer)
	user := newTestUser(t, "dave", identity.RoleInspector)

	repo.On("FindByEmail", ctx, "dave@example.com").Return(user, nil)
	repo.On("Update", ctx, user).Return(nil).Twice()

	err := svc.ForgotPassword(ctx, ForgotPasswordInput{Email: "dave@example.com"})
	assert.ErrorIs(t, err, ErrEmailNotSent)
	assert.Empty(t, user.ResetPasswordTokenHash)
	assert.Nil(t, user.ResetPasswordExpiresAt)
	repo.AssertExpectations(t)
}

func TestAuthService_ResetPassword(t *testing.T) {
	ctx := context.Background()
	repo := new(MockUserRepository)
	svc, bl := newTestAuthService(repo, nil)
	user := newTestUser(t, "erin", identity.RoleInspector)

	token, err := user.IssueResetToken(time.Now())
	require.NoError(t, err)

	repo.On("FindByResetTokenHash", ctx, identity.HashResetToken(token)).Return(user, nil)
	repo.On("Update", ctx, user).Return(nil)

	result, err := svc.ResetPassword(ctx, ResetPasswordInput{Token: token, Password: "brand-new-pw"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.True(t, user.VerifyPassword("brand-new-pw"))
	assert.Empty(t, user.ResetPasswordTokenHash)

	invalidated, err := bl.IsUserTokenInvalidated(ctx, user.ID.String(), time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.True(t, invalidated)
}

func TestAuthService_ResetPassword_Invalid(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown token", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc, _ := newTestAuthService(repo, nil)
		repo.On("FindByResetTokenHash", ctx, identity.HashResetToken("nope")).Return(nil, shared.ErrNotFound)

		_, err := svc.ResetPassword(ctx, ResetPasswordInput{Token: "nope", Password: "brand-new-pw"})
		assert.ErrorIs(t, err, ErrInvalidResetToken)
	})

	t.Run("expired token", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc, _ := newTestAuthService(repo, nil)
		user := newTestUser(t, "frank", identity.RoleInspector)
		token, err := user.IssueResetToken(time.Now().Add(-time.Hour))
		require.NoError(t, err)
		repo.On("FindByResetTokenHash", ctx, identity.HashResetToken(token)).Return(user, nil)

		_, err = svc.ResetPassword(ctx, ResetPasswordInput{Token: token, Password: "brand-new-pw"})
		assert.ErrorIs(t, err, ErrInvalidResetToken)
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})
}
