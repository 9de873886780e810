package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/qcdash/backend/internal/domain/identity"
)

// RegisterInput contains the input for self registration
type RegisterInput struct {
	Name       string `json:"name" binding:"required,min=2,max=50"`
	Email      string `json:"email" binding:"required,email,max=200"`
	Password   string `json:"password" binding:"required,min=6,max=72"`
	Role       string `json:"role" binding:"omitempty,oneof=admin manager inspector"`
	Department string `json:"department" binding:"omitempty,max=100"`
}

// LoginInput contains the input for user login
type LoginInput struct {
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LogoutInput identifies the session being closed
type LogoutInput struct {
	UserID    uuid.UUID
	TokenJTI  string
	ExpiresAt time.Time
}

// ForgotPasswordInput starts a password reset
type ForgotPasswordInput struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordInput completes a password reset
type ResetPasswordInput struct {
	Token    string `json:"-"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

// UpdateUserInput contains the fields a user may change.
// Password is accepted on the wire but never applied.
type UpdateUserInput struct {
	Name       *string `json:"name" binding:"omitempty,min=2,max=50"`
	Email      *string `json:"email" binding:"omitempty,email,max=200"`
	Role       *string `json:"role" binding:"omitempty,oneof=admin manager inspector"`
	Department *string `json:"department" binding:"omitempty,max=100"`
	Password   *string `json:"password,omitempty"`
}

// ListUsersQuery filters the user list
type ListUsersQuery struct {
	Search   string `form:"search"`
	Role     string `form:"role" binding:"omitempty,oneof=admin manager inspector"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// Actor is the authenticated caller
type Actor struct {
	ID   uuid.UUID
	Role identity.Role
}

// IsAdmin reports whether the caller is an administrator
func (a Actor) IsAdmin() bool { return a.Role == identity.RoleAdmin }

// UserResponse is the public view of a user
type UserResponse struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	Department string    `json:"department,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// AuthResult is returned by register, login and reset password
type AuthResult struct {
	User      UserResponse `json:"user"`
	Token     string       `json:"token"`
	TokenID   string       `json:"-"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// ToUserResponse converts a domain user
func ToUserResponse(u *identity.User) UserResponse {
	return UserResponse{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Role:       string(u.Role),
		Department: u.Department,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

// ToUserResponses converts a slice of domain users
func ToUserResponses(users []*identity.User) []UserResponse {
	out := make([]UserResponse, len(users))
	for i, u := range users {
		out[i] = ToUserResponse(u)
	}
	return out
}
