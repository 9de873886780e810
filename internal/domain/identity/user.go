package identity

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"time"

	"github.com/qcdash/backend/internal/domain/shared"
	"golang.org/x/crypto/bcrypt"
)

// ErrUserInUse is returned when inspections or defects still reference the user
var ErrUserInUse = shared.NewDomainError("USER_IN_USE", "User has recorded inspections or defects and cannot be deleted")

// Role is the access level of a user
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleManager   Role = "manager"
	RoleInspector Role = "inspector"
)

// IsValid reports whether the role is known
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleInspector:
		return true
	}
	return false
}

// ReceivesAlerts reports whether users with this role are notified of alerts
func (r Role) ReceivesAlerts() bool {
	return r == RoleAdmin || r == RoleManager
}

// ResetTokenTTL is how long a password reset token stays valid
const ResetTokenTTL = 15 * time.Minute

var bcryptCost = bcrypt.DefaultCost

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// User is an account of the quality control dashboard
type User struct {
	shared.BaseAggregateRoot
	Name                   string
	Email                  string
	PasswordHash           string
	Role                   Role
	Department             string
	ResetPasswordTokenHash string
	ResetPasswordExpiresAt *time.Time
}

// NewUser creates a user with a hashed password. An empty role defaults to inspector.
func NewUser(name, email, password string, role Role) (*User, error) {
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return nil, err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if role == "" {
		role = RoleInspector
	}
	if !role.IsValid() {
		return nil, shared.NewDomainError("INVALID_ROLE", "Role must be one of admin, manager, inspector")
	}

	user := &User{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Email:             email,
		Role:              role,
	}
	if err := user.applyPassword(password); err != nil {
		return nil, err
	}

	user.AddDomainEvent(NewUserRegisteredEvent(user))
	return user, nil
}

// SetDepartment sets the user's department
func (u *User) SetDepartment(department string) {
	u.Department = strings.TrimSpace(department)
	u.IncrementVersion()
}

// Rename changes the display name
func (u *User) Rename(name string) error {
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return err
	}
	u.Name = name
	u.IncrementVersion()
	return nil
}

// SetEmail changes the email address
func (u *User) SetEmail(email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validateEmail(email); err != nil {
		return err
	}
	u.Email = email
	u.IncrementVersion()
	return nil
}

// SetRole changes the user's role
func (u *User) SetRole(role Role) error {
	if !role.IsValid() {
		return shared.NewDomainError("INVALID_ROLE", "Role must be one of admin, manager, inspector")
	}
	u.Role = role
	u.IncrementVersion()
	return nil
}

// SetPassword replaces the password and clears any pending reset token
func (u *User) SetPassword(password string) error {
	if err := u.applyPassword(password); err != nil {
		return err
	}
	u.ClearResetToken()
	u.IncrementVersion()
	return nil
}

// VerifyPassword verifies if the provided password matches
func (u *User) VerifyPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// IssueResetToken generates a one-time token. Only its SHA-256 hash is kept
// on the user; the plain token is returned to be mailed.
func (u *User) IssueResetToken(now time.Time) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", shared.NewDomainError("TOKEN_GENERATION_ERROR", "Failed to generate reset token")
	}
	token := hex.EncodeToString(raw)

	expires := now.Add(ResetTokenTTL)
	u.ResetPasswordTokenHash = HashResetToken(token)
	u.ResetPasswordExpiresAt = &expires
	u.IncrementVersion()
	return token, nil
}

// ClearResetToken drops the pending reset token
func (u *User) ClearResetToken() {
	u.ResetPasswordTokenHash = ""
	u.ResetPasswordExpiresAt = nil
}

// ResetTokenValid reports whether the given plain token matches and has not expired
func (u *User) ResetTokenValid(token string, now time.Time) bool {
	if u.ResetPasswordTokenHash == "" || u.ResetPasswordExpiresAt == nil {
		return false
	}
	if now.After(*u.ResetPasswordExpiresAt) {
		return false
	}
	return u.ResetPasswordTokenHash == HashResetToken(token)
}

// IsAdmin reports whether the user is an administrator
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// HashResetToken returns the hex SHA-256 of a reset token
func HashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (u *User) applyPassword(password string) error {
	if err := validatePassword(password); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}
	u.PasswordHash = string(hash)
	return nil
}

func validateName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Please add a name")
	}
	if len(name) < 2 {
		return shared.NewDomainError("INVALID_NAME", "Name must be at least 2 characters")
	}
	if len(name) > 50 {
		return shared.NewDomainError("INVALID_NAME", "Name cannot exceed 50 characters")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 6 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password must be at least 6 characters")
	}
	if len(password) > 72 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password cannot exceed 72 characters")
	}
	return nil
}

func validateEmail(email string) error {
	if len(email) > 200 {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot exceed 200 characters")
	}
	if !emailRegex.MatchString(email) {
		return shared.NewDomainError("INVALID_EMAIL", "Please add a valid email")
	}
	return nil
}
