package models

import (
	"time"

	"github.com/qcdash/backend/internal/domain/identity"
)

// UserModel is the persistence model for the User domain entity.
type UserModel struct {
	AggregateModel
	Name                   string        `gorm:"type:varchar(50);not null;uniqueIndex"`
	Email                  string        `gorm:"type:varchar(255);not null;uniqueIndex"`
	PasswordHash           string        `gorm:"type:varchar(255);not null"`
	Role                   identity.Role `gorm:"type:varchar(20);not null;default:'inspector';index"`
	Department             string        `gorm:"type:varchar(100)"`
	ResetPasswordTokenHash string        `gorm:"type:varchar(64);index"`
	ResetPasswordExpiresAt *time.Time
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts the persistence model to a domain User entity.
func (m *UserModel) ToDomain() *identity.User {
	return &identity.User{
		BaseAggregateRoot:      m.ToAggregateRoot(),
		Name:                   m.Name,
		Email:                  m.Email,
		PasswordHash:           m.PasswordHash,
		Role:                   m.Role,
		Department:             m.Department,
		ResetPasswordTokenHash: m.ResetPasswordTokenHash,
		ResetPasswordExpiresAt: m.ResetPasswordExpiresAt,
	}
}

// FromDomain populates the persistence model from a domain User entity.
func (m *UserModel) FromDomain(u *identity.User) {
	m.FromDomainAggregateRoot(u.BaseAggregateRoot)
	m.Name = u.Name
	m.Email = u.Email
	m.PasswordHash = u.PasswordHash
	m.Role = u.Role
	m.Department = u.Department
	m.ResetPasswordTokenHash = u.ResetPasswordTokenHash
	m.ResetPasswordExpiresAt = u.ResetPasswordExpiresAt
}

// UserModelFromDomain creates a new persistence model from a domain User entity.
func UserModelFromDomain(u *identity.User) *UserModel {
	m := &UserModel{}
	m.FromDomain(u)
	return m
}
