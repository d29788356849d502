// Package usuario models the back-office users that log into SGI
package usuario

import (
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sgi/backend/internal/domain/shared"
)

// Role grants access levels
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleOperador Role = "OPERADOR"
)

// IsValid reports whether r is a known role
func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleOperador
}

const bcryptCost = bcrypt.DefaultCost

// MinPasswordLength is the shortest accepted password
const MinPasswordLength = 8

var usernameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9._\-]{2,49}$`)

// Usuario is a person allowed to operate the system
type Usuario struct {
	shared.BaseEntity
	Username       string
	Email          string
	Name           string
	PasswordHash   string
	Role           Role
	Active         bool
	LastLoginAt    *time.Time
	FailedAttempts int
	LockedUntil    *time.Time
}

// NewUsuario creates an active user with a hashed password
func NewUsuario(username, email, name, password string, role Role) (*Usuario, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if !usernameRegex.MatchString(username) {
		return nil, shared.NewDomainError("INVALID_USERNAME",
			"El usuario debe tener entre 3 y 50 caracteres alfanuméricos")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if err := shared.ValidateEmail(email); err != nil {
		return nil, err
	}
	if !role.IsValid() {
		return nil, shared.NewDomainError("INVALID_ROLE", "Rol inválido")
	}
	u := &Usuario{
		BaseEntity: shared.NewBaseEntity(),
		Username:   username,
		Email:      email,
		Name:       strings.TrimSpace(name),
		Role:       role,
		Active:     true,
	}
	if err := u.SetPassword(password); err != nil {
		return nil, err
	}
	return u, nil
}

// SetPassword validates and hashes a new password
func (u *Usuario) SetPassword(password string) error {
	if len(password) < MinPasswordLength {
		return shared.NewDomainError("WEAK_PASSWORD", "La contraseña debe tener al menos 8 caracteres")
	}
	if len(password) > 72 {
		return shared.NewDomainError("WEAK_PASSWORD", "La contraseña no puede superar los 72 caracteres")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return shared.NewDomainError("PASSWORD_HASH_ERROR", "No se pudo procesar la contraseña")
	}
	u.PasswordHash = hash
	u.Touch()
	return nil
}

// ChangePassword replaces the password after checking the current one
func (u *Usuario) ChangePassword(current, next string) error {
	if !u.VerifyPassword(current) {
		return shared.NewDomainError("INVALID_PASSWORD", "La contraseña actual es incorrecta")
	}
	if current == next {
		return shared.NewDomainError("SAME_PASSWORD", "La nueva contraseña debe ser distinta de la actual")
	}
	return u.SetPassword(next)
}

// VerifyPassword checks a clear text password against the stored hash
func (u *Usuario) VerifyPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// CanLogin reports whether the user may authenticate at now
func (u *Usuario) CanLogin(now time.Time) bool {
	if !u.Active {
		return false
	}
	return u.LockedUntil == nil || !now.Before(*u.LockedUntil)
}

// RecordLoginSuccess resets failures and stamps the login time
func (u *Usuario) RecordLoginSuccess(now time.Time) {
	u.LastLoginAt = &now
	u.FailedAttempts = 0
	u.LockedUntil = nil
	u.Touch()
}

// RecordLoginFailure counts a failed attempt and locks the account for
// lockFor once maxAttempts is reached. It returns true when it locked.
func (u *Usuario) RecordLoginFailure(now time.Time, maxAttempts int, lockFor time.Duration) bool {
	u.FailedAttempts++
	u.Touch()
	if maxAttempts > 0 && u.FailedAttempts >= maxAttempts {
		until := now.Add(lockFor)
		u.LockedUntil = &until
		u.FailedAttempts = 0
		return true
	}
	return false
}

// IsAdmin reports whether the user has the ADMIN role
func (u *Usuario) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// HashPassword returns the bcrypt hash of password
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
