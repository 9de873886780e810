package handler_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuth_RegisterSetsCookie(t *testing.T) {
	env := newTestEnv(t)

	w := env.json(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name": "alice", "email": "alice@example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	cookie := w.Header().Get("Set-Cookie")
	assert.True(t, strings.HasPrefix(cookie, "token="), cookie)
	assert.Contains(t, cookie, "HttpOnly")

	var res struct {
		User struct {
			Name string `json:"name"`
			Role string `json:"role"`
		} `json:"user"`
		Token string `json:"token"`
	}
	decodeData(t, w, &res)
	assert.Equal(t, "alice", res.User.Name)
	assert.Equal(t, "inspector", res.User.Role)
	assert.NotEmpty(t, res.Token)
}

func TestAuth_RegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	w := env.json(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name": "bob", "email": "not-an-email", "password": "123",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	e := decodeEnvelope(t, w)
	require.NotNil(t, e.Error)
	assert.Equal(t, "ERR_VALIDATION", e.Error.Code)

	fields := map[string]string{}
	for _, d := range e.Error.Details {
		fields[d.Field] = d.Message
	}
	assert.Equal(t, "Invalid email format", fields["email"])
	assert.Equal(t, "Must be at least 6 characters", fields["password"])
}

func TestAuth_RegisterDuplicateName(t *testing.T) {
	env := newTestEnv(t)
	env.register("carol", "")

	w := env.json(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name": "carol", "email": "other@example.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "NAME_EXISTS", errorCode(t, w))
}

func TestAuth_LoginAndMe(t *testing.T) {
	env := newTestEnv(t)
	env.register("dave", "manager")

	w := env.json(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"name": "dave", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", errorCode(t, w))

	w = env.json(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"name": "dave", "password": "secret123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login struct {
		Token string `json:"token"`
	}
	decodeData(t, w, &login)

	w = env.json(http.MethodGet, "/api/v1/auth/me", login.Token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var me struct {
		Name string `json:"name"`
		Role string `json:"role"`
	}
	decodeData(t, w, &me)
	assert.Equal(t, "dave", me.Name)
	assert.Equal(t, "manager", me.Role)
}

func TestAuth_MeRequiresToken(t *testing.T) {
	env := newTestEnv(t)

	w := env.json(http.MethodGet, "/api/v1/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_LogoutRevokesToken(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("erin", "")

	w := env.json(http.MethodPost, "/api/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Set-Cookie"), "token=;")

	w = env.json(http.MethodGet, "/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "ERR_TOKEN_REVOKED", errorCode(t, w))
}

func TestAuth_ResetPasswordWithUnknownToken(t *testing.T) {
	env := newTestEnv(t)

	w := env.json(http.MethodPut, "/api/v1/auth/reset-password/not-a-real-token", "", map[string]string{"password": "newsecret"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_TOKEN", errorCode(t, w))
}

func TestUsers_AdminOnly(t *testing.T) {
	env := newTestEnv(t)
	admin := env.register("root", "admin")
	inspector := env.register("frank", "")

	w := env.json(http.MethodGet, "/api/v1/users", inspector, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.json(http.MethodGet, "/api/v1/users?page_size=1", admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	e := decodeEnvelope(t, w)
	require.NotNil(t, e.Meta)
	assert.Equal(t, int64(2), e.Meta.Total)
	assert.Equal(t, 1, e.Meta.PageSize)

	w = env.json(http.MethodGet, "/api/v1/users/not-a-uuid", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
