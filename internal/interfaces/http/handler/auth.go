package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	identityapp "github.com/qcdash/backend/internal/application/identity"
	"github.com/qcdash/backend/internal/infrastructure/config"
	"github.com/qcdash/backend/internal/interfaces/http/dto"
	"github.com/qcdash/backend/internal/interfaces/http/middleware"
)

// AuthHandler handles registration, login and password reset
type AuthHandler struct {
	BaseHandler
	authService *identityapp.AuthService
	cookie      config.CookieConfig
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService *identityapp.AuthService, cookie config.CookieConfig) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cookie:      cookie,
	}
}

// Register godoc
// @ID           registerUser
// @Summary      Register a user
// @Description  Create an account and sign in. The token is also set as an httpOnly cookie.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body identityapp.RegisterInput true "Registration details"
// @Success      201 {object} APIResponse[identityapp.AuthResult]
// @Failure      400 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req identityapp.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.authService.Register(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.setCookie(c, result.Token)
	h.Created(c, result)
}

// Login godoc
// @ID           loginUser
// @Summary      User login
// @Description  Authenticate with name and password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body identityapp.LoginInput true "Login credentials"
// @Success      200 {object} APIResponse[identityapp.AuthResult]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req identityapp.LoginInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.setCookie(c, result.Token)
	h.Success(c, result)
}

// Logout godoc
// @ID           logoutUser
// @Summary      Log out
// @Description  Revoke the current token and clear the auth cookie
// @Tags         auth
// @Produce      json
// @Success      200 {object} APIResponse[dto.MessageResponse]
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.GetJWTClaims(c)
	if claims == nil {
		h.Unauthorized(c, "Not authorized to access this route")
		return
	}
	userID, err := claims.GetUserUUID()
	if err != nil {
		h.Unauthorized(c, "Not authorized to access this route")
		return
	}

	input := identityapp.LogoutInput{UserID: userID, TokenJTI: claims.ID}
	if claims.ExpiresAt != nil {
		input.ExpiresAt = claims.ExpiresAt.Time
	}
	if err := h.authService.Logout(c.Request.Context(), input); err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.clearCookie(c)
	h.Success(c, dto.MessageResponse{Message: "Logged out successfully"})
}

// Me godoc
// @ID           getCurrentUser
// @Summary      Get current user
// @Tags         auth
// @Produce      json
// @Success      200 {object} APIResponse[identityapp.UserResponse]
// @Failure      401 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	user, err := h.authService.Me(c.Request.Context(), actor)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, user)
}

// ForgotPassword godoc
// @ID           forgotPassword
// @Summary      Request a password reset
// @Description  Mail a reset link that expires in 15 minutes
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body identityapp.ForgotPasswordInput true "Account email"
// @Success      200 {object} APIResponse[dto.MessageResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req identityapp.ForgotPasswordInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	if err := h.authService.ForgotPassword(c.Request.Context(), req); err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, dto.MessageResponse{Message: "Email sent"})
}

// ResetPassword godoc
// @ID           resetPassword
// @Summary      Reset a password
// @Description  Set a new password using the mailed token and sign in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        token path string true "Reset token"
// @Param        request body identityapp.ResetPasswordInput true "New password"
// @Success      200 {object} APIResponse[identityapp.AuthResult]
// @Failure      400 {object} ErrorResponse
// @Router       /auth/reset-password/{token} [put]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req identityapp.ResetPasswordInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	req.Token = c.Param("token")

	result, err := h.authService.ResetPassword(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.setCookie(c, result.Token)
	h.Success(c, result)
}

func (h *AuthHandler) setCookie(c *gin.Context, token string) {
	c.SetSameSite(sameSite(h.cookie.SameSite))
	c.SetCookie(h.cookieName(), token, int(h.cookie.MaxAge.Seconds()),
		h.cookiePath(), h.cookie.Domain, h.cookie.Secure, h.cookie.HTTPOnly)
}

func (h *AuthHandler) clearCookie(c *gin.Context) {
	c.SetSameSite(sameSite(h.cookie.SameSite))
	c.SetCookie(h.cookieName(), "", -1, h.cookiePath(), h.cookie.Domain, h.cookie.Secure, h.cookie.HTTPOnly)
}

func (h *AuthHandler) cookieName() string {
	if h.cookie.Name == "" {
		return "token"
	}
	return h.cookie.Name
}

func (h *AuthHandler) cookiePath() string {
	if h.cookie.Path == "" {
		return "/"
	}
	return h.cookie.Path
}

func sameSite(s string) http.SameSite {
	switch strings.ToLower(s) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
