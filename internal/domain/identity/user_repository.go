package identity

import (
	"context"

	"github.com/google/uuid"
)

// UserRepository defines the interface for user persistence
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByName(ctx context.Context, name string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	// FindByResetTokenHash finds the user holding the given reset token hash
	FindByResetTokenHash(ctx context.Context, hash string) (*User, error)
	FindAll(ctx context.Context, filter UserFilter) ([]*User, int64, error)
	// FindByRoles lists users having any of the given roles
	FindByRoles(ctx context.Context, roles ...Role) ([]*User, error)
	// FindByIDs loads users by ID; missing IDs are skipped
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*User, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// UserFilter contains filter options for querying users
type UserFilter struct {
	Keyword  string
	Role     *Role
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
}

// NewUserFilter creates a new UserFilter with default values
func NewUserFilter() UserFilter {
	return UserFilter{
		Page:     1,
		PageSize: 10,
	}
}
