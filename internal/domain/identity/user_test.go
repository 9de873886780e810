package identity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	t.Run("creates inspector by default", func(t *testing.T) {
		user, err := NewUser("  Jane Doe ", "Jane@Example.com", "secret1", "")

		require.NoError(t, err)
		assert.Equal(t, "Jane Doe", user.Name)
		assert.Equal(t, "jane@example.com", user.Email)
		assert.Equal(t, RoleInspector, user.Role)
		assert.NotEmpty(t, user.PasswordHash)
		assert.True(t, user.VerifyPassword("secret1"))
		assert.False(t, user.VerifyPassword("wrong"))

		events := user.GetDomainEvents()
		require.Len(t, events, 1)
		_, ok := events[0].(*UserRegisteredEvent)
		assert.True(t, ok)
	})

	t.Run("rejects short password", func(t *testing.T) {
		_, err := NewUser("jane", "jane@example.com", "12345", RoleManager)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "at least 6")
	})

	t.Run("rejects invalid email", func(t *testing.T) {
		_, err := NewUser("jane", "not-an-email", "secret1", RoleManager)
		assert.Error(t, err)
	})

	t.Run("rejects unknown role", func(t *testing.T) {
		_, err := NewUser("jane", "jane@example.com", "secret1", Role("owner"))
		assert.Error(t, err)
	})

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := NewUser("   ", "jane@example.com", "secret1", RoleAdmin)
		assert.Error(t, err)
	})
}

func TestUser_ResetToken(t *testing.T) {
	user, err := NewUser("jane", "jane@example.com", "secret1", RoleAdmin)
	require.NoError(t, err)

	now := time.Now()
	token, err := user.IssueResetToken(now)
	require.NoError(t, err)
	assert.Len(t, token, 64)
	assert.NotEqual(t, token, user.ResetPasswordTokenHash)
	assert.Equal(t, HashResetToken(token), user.ResetPasswordTokenHash)

	assert.True(t, user.ResetTokenValid(token, now.Add(5*time.Minute)))
	assert.False(t, user.ResetTokenValid(token, now.Add(16*time.Minute)))
	assert.False(t, user.ResetTokenValid("other", now))

	require.NoError(t, user.SetPassword("newsecret"))
	assert.Empty(t, user.ResetPasswordTokenHash)
	assert.Nil(t, user.ResetPasswordExpiresAt)
	assert.True(t, user.VerifyPassword("newsecret"))
}

func TestRole(t *testing.T) {
	assert.True(t, RoleManager.ReceivesAlerts())
	assert.True(t, RoleAdmin.ReceivesAlerts())
	assert.False(t, RoleInspector.ReceivesAlerts())
	assert.False(t, Role("guest").IsValid())
}

func TestUser_SetRole(t *testing.T) {
	user, err := NewUser("jane", "jane@example.com", "secret1", RoleInspector)
	require.NoError(t, err)

	require.NoError(t, user.SetRole(RoleManager))
	assert.Equal(t, RoleManager, user.Role)
	assert.Equal(t, 2, user.Version)
	assert.Error(t, user.SetRole("boss"))
}
