// Package identity handles registration, sessions and user management.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/qcdash/backend/internal/domain/identity"
	"github.com/qcdash/backend/internal/domain/shared"
	"github.com/qcdash/backend/internal/infrastructure/auth"
	"go.uber.org/zap"
)

var (
	ErrInvalidCredentials = shared.NewDomainError("INVALID_CREDENTIALS", "Invalid credentials")
	ErrEmailExists        = shared.NewDomainError("EMAIL_EXISTS", "User with this email already exists")
	ErrNameExists         = shared.NewDomainError("NAME_EXISTS", "User with this name already exists")
	ErrUnknownEmail       = shared.NewDomainError("NOT_FOUND", "There is no user with that email")
	ErrInvalidResetToken  = shared.NewDomainError("INVALID_TOKEN", "Invalid or expired reset token")
	ErrEmailNotSent       = shared.NewDomainError("EMAIL_NOT_SENT", "Email could not be sent")
)

// Mailer sends plain text mail
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// AuthService handles authentication operations
type AuthService struct {
	userRepo   identity.UserRepository
	jwtService *auth.JWTService
	blacklist  auth.TokenBlacklist
	mailer     Mailer
	clientURL  string
	logger     *zap.Logger
	now        func() time.Time
}

// NewAuthService creates a new authentication service.
// clientURL is the frontend base used in reset links.
func NewAuthService(
	userRepo identity.UserRepository,
	jwtService *auth.JWTService,
	blacklist auth.TokenBlacklist,
	mailer Mailer,
	clientURL string,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		jwtService: jwtService,
		blacklist:  blacklist,
		mailer:     mailer,
		clientURL:  strings.TrimRight(clientURL, "/"),
		logger:     logger,
		now:        time.Now,
	}
}

// Register creates an account and signs it in
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	exists, err := s.userRepo.ExistsByEmail(ctx, strings.ToLower(strings.TrimSpace(input.Email)))
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailExists
	}
	exists, err = s.userRepo.ExistsByName(ctx, strings.TrimSpace(input.Name))
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrNameExists
	}

	user, err := identity.NewUser(input.Name, input.Email, input.Password, identity.Role(input.Role))
	if err != nil {
		return nil, err
	}
	if input.Department != "" {
		user.SetDepartment(input.Department)
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return nil, ErrNameExists
		}
		return nil, err
	}

	s.logger.Info("User registered",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)))
	return s.issue(user)
}

// Login authenticates a user by name and password
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	user, err := s.userRepo.FindByName(ctx, strings.TrimSpace(input.Name))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("Login for unknown user", zap.String("name", input.Name))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.VerifyPassword(input.Password) {
		s.logger.Warn("Invalid password attempt", zap.String("user_id", user.ID.String()))
		return nil, ErrInvalidCredentials
	}

	s.logger.Info("User logged in", zap.String("user_id", user.ID.String()))
	return s.issue(user)
}

// Logout revokes the session token until it would have expired
func (s *AuthService) Logout(ctx context.Context, input LogoutInput) error {
	if input.TokenJTI == "" || s.blacklist == nil {
		return nil
	}
	ttl := input.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.blacklist.AddToBlacklist(ctx, input.TokenJTI, ttl); err != nil {
		s.logger.Error("Failed to revoke token", zap.String("user_id", input.UserID.String()), zap.Error(err))
		return err
	}
	s.logger.Info("User logged out", zap.String("user_id", input.UserID.String()))
	return nil
}

// Me returns the authenticated user
func (s *AuthService) Me(ctx context.Context, actor Actor) (*UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	resp := ToUserResponse(user)
	return &resp, nil
}

// ForgotPassword mails a one-time reset link valid for identity.ResetTokenTTL
func (s *AuthService) ForgotPassword(ctx context.Context, input ForgotPasswordInput) error {
	user, err := s.userRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(input.Email)))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return ErrUnknownEmail
		}
		return err
	}

	token, err := user.IssueResetToken(s.now())
	if err != nil {
		return err
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return err
	}

	link := fmt.Sprintf("%s/reset-password/%s", s.clientURL, token)
	body := fmt.Sprintf("You are receiving this email because you (or someone else) requested a password reset.\n\n"+
		"Open the following link to choose a new password. It expires in %d minutes:\n\n%s\n",
		int(identity.ResetTokenTTL.Minutes()), link)

	if err := s.mailer.Send(ctx, user.Email, "Password reset token", body); err != nil {
		s.logger.Error("Failed to send reset email", zap.String("user_id", user.ID.String()), zap.Error(err))
		user.ClearResetToken()
		if uerr := s.userRepo.Update(ctx, user); uerr != nil {
			s.logger.Error("Failed to clear reset token", zap.String("user_id", user.ID.String()), zap.Error(uerr))
		}
		return ErrEmailNotSent
	}

	s.logger.Info("Password reset requested", zap.String("user_id", user.ID.String()))
	return nil
}

// ResetPassword sets a new password from a mailed token and signs the user in.
// Sessions issued before the reset are invalidated.
func (s *AuthService) ResetPassword(ctx context.Context, input ResetPasswordInput) (*AuthResult, error) {
	if input.Token == "" {
		return nil, ErrInvalidResetToken
	}
	user, err := s.userRepo.FindByResetTokenHash(ctx, identity.HashResetToken(input.Token))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrInvalidResetToken
		}
		return nil, err
	}
	if !user.ResetTokenValid(input.Token, s.now()) {
		return nil, ErrInvalidResetToken
	}
	if err := user.SetPassword(input.Password); err != nil {
		return nil, err
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	if s.blacklist != nil {
		if err := s.blacklist.InvalidateUser(ctx, user.ID.String(), s.jwtService.Expiration()); err != nil {
			s.logger.Error("Failed to invalidate old sessions", zap.String("user_id", user.ID.String()), zap.Error(err))
		}
	}

	s.logger.Info("Password reset", zap.String("user_id", user.ID.String()))
	return s.issue(user)
}

func (s *AuthService) issue(user *identity.User) (*AuthResult, error) {
	token, err := s.jwtService.GenerateToken(user.ID, user.Name, string(user.Role))
	if err != nil {
		s.logger.Error("Failed to generate token", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to generate authentication token")
	}
	return &AuthResult{
		User:      ToUserResponse(user),
		Token:     token.Value,
		TokenID:   token.ID,
		ExpiresAt: token.ExpiresAt,
	}, nil
}
