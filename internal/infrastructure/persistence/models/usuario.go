package models

import (
	"time"

	"github.com/sgi/backend/internal/domain/usuario"
)

// UsuarioModel is the persistence model for the Usuario domain entity.
type UsuarioModel struct {
	BaseModel
	Username       string       `gorm:"type:varchar(50);not null;uniqueIndex"`
	Email          string       `gorm:"type:varchar(200)"`
	Name           string       `gorm:"type:varchar(200)"`
	PasswordHash   string       `gorm:"type:varchar(255);not null"`
	Role           usuario.Role `gorm:"type:varchar(20);not null"`
	Active         bool         `gorm:"not null;default:true"`
	LastLoginAt    *time.Time
	FailedAttempts int `gorm:"not null;default:0"`
	LockedUntil    *time.Time
}

// TableName returns the table name for GORM
func (UsuarioModel) TableName() string {
	return "usuarios"
}

// ToDomain converts the persistence model to a domain Usuario entity.
func (m *UsuarioModel) ToDomain() *usuario.Usuario {
	return &usuario.Usuario{
		BaseEntity:     m.BaseModel.ToDomain(),
		Username:       m.Username,
		Email:          m.Email,
		Name:           m.Name,
		PasswordHash:   m.PasswordHash,
		Role:           m.Role,
		Active:         m.Active,
		LastLoginAt:    m.LastLoginAt,
		FailedAttempts: m.FailedAttempts,
		LockedUntil:    m.LockedUntil,
	}
}

// FromDomain populates the persistence model from a domain Usuario entity.
func (m *UsuarioModel) FromDomain(u *usuario.Usuario) {
	m.FromDomainBaseEntity(u.BaseEntity)
	m.Username = u.Username
	m.Email = u.Email
	m.Name = u.Name
	m.PasswordHash = u.PasswordHash
	m.Role = u.Role
	m.Active = u.Active
	m.LastLoginAt = u.LastLoginAt
	m.FailedAttempts = u.FailedAttempts
	m.LockedUntil = u.LockedUntil
}

// UsuarioModelFromDomain creates a new persistence model from a domain Usuario entity.
func UsuarioModelFromDomain(u *usuario.Usuario) *UsuarioModel {
	m := &UsuarioModel{}
	m.FromDomain(u)
	return m
}
