package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/qcdash/backend/internal/domain/identity"
	"github.com/qcdash/backend/internal/domain/shared"
	"github.com/qcdash/backend/internal/infrastructure/auth"
	"go.uber.org/zap"
)

var (
	ErrNotAuthorizedToUpdate = shared.NewDomainError("FORBIDDEN", "Not authorized to update this user")
	ErrRoleChangeForbidden   = shared.NewDomainError("FORBIDDEN", "Only administrators can change roles")
	ErrCannotDeleteSelf      = shared.NewDomainError("CANNOT_DELETE_SELF", "You cannot delete your own account")
)

// UserService handles user management operations
type UserService struct {
	userRepo   identity.UserRepository
	blacklist  auth.TokenBlacklist
	jwtService *auth.JWTService
	logger     *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(
	userRepo identity.UserRepository,
	blacklist auth.TokenBlacklist,
	jwtService *auth.JWTService,
	logger *zap.Logger,
) *UserService {
	return &UserService{
		userRepo:   userRepo,
		blacklist:  blacklist,
		jwtService: jwtService,
		logger:     logger,
	}
}

// List returns users matching the query
func (s *UserService) List(ctx context.Context, q ListUsersQuery) ([]UserResponse, int64, error) {
	filter := identity.NewUserFilter()
	filter.Keyword = strings.TrimSpace(q.Search)
	if q.Role != "" {
		role := identity.Role(q.Role)
		filter.Role = &role
	}
	if q.Page > 0 {
		filter.Page = q.Page
	}
	if q.PageSize > 0 {
		filter.PageSize = q.PageSize
	}
	filter.OrderBy = q.OrderBy
	filter.OrderDir = q.OrderDir

	users, total, err := s.userRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return ToUserResponses(users), total, nil
}

// GetByID returns one user
func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToUserResponse(user)
	return &resp, nil
}

// Update changes a user's profile. Users may edit themselves; admins may edit
// anyone and are the only ones allowed to change a role.
func (s *UserService) Update(ctx context.Context, actor Actor, id uuid.UUID, input UpdateUserInput) (*UserResponse, error) {
	if actor.ID != id && !actor.IsAdmin() {
		return nil, ErrNotAuthorizedToUpdate
	}
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil && strings.TrimSpace(*input.Name) != user.Name {
		taken, err := s.userRepo.ExistsByName(ctx, strings.TrimSpace(*input.Name))
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrNameExists
		}
		if err := user.Rename(*input.Name); err != nil {
			return nil, err
		}
	}
	if input.Email != nil && strings.ToLower(strings.TrimSpace(*input.Email)) != user.Email {
		taken, err := s.userRepo.ExistsByEmail(ctx, strings.ToLower(strings.TrimSpace(*input.Email)))
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrEmailExists
		}
		if err := user.SetEmail(*input.Email); err != nil {
			return nil, err
		}
	}
	if input.Role != nil && identity.Role(*input.Role) != user.Role {
		if !actor.IsAdmin() {
			return nil, ErrRoleChangeForbidden
		}
		if err := user.SetRole(identity.Role(*input.Role)); err != nil {
			return nil, err
		}
	}
	if input.Department != nil {
		user.SetDepartment(*input.Department)
	}
	if input.Password != nil {
		s.logger.Debug("Ignoring password in user update", zap.String("user_id", id.String()))
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return nil, shared.NewDomainError("ALREADY_EXISTS", "User with this name or email already exists")
		}
		return nil, err
	}

	s.logger.Info("User updated",
		zap.String("user_id", id.String()),
		zap.String("by", actor.ID.String()))
	resp := ToUserResponse(user)
	return &resp, nil
}

// Delete removes a user and invalidates their sessions
func (s *UserService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	if actor.ID == id {
		return ErrCannotDeleteSelf
	}
	if _, err := s.userRepo.FindByID(ctx, id); err != nil {
		return err
	}
	if err := s.userRepo.Delete(ctx, id); err != nil {
		return err
	}
	if s.blacklist != nil {
		if err := s.blacklist.InvalidateUser(ctx, id.String(), s.jwtService.Expiration()); err != nil {
			s.logger.Error("Failed to invalidate sessions of deleted user", zap.String("user_id", id.String()), zap.Error(err))
		}
	}
	s.logger.Info("User deleted", zap.String("user_id", id.String()), zap.String("by", actor.ID.String()))
	return nil
}
