package auth

import (
	"errors"
	"time"
)

// Role represents an authorisation tier in the system.
type Role string

const (
	// RoleAdmin has full control: tenants, users, and all token operations.
	RoleAdmin Role = "ADMIN"

	// RoleManager administers a single tenant's users.
	RoleManager Role = "MANAGER"

	// RoleCustomer is a self-service account created via registration.
	RoleCustomer Role = "CUSTOMER"
)

// ValidRoles is the set of roles a user account may hold.
var ValidRoles = []Role{RoleAdmin, RoleManager, RoleCustomer}

// IsValidRole returns true if the role is a recognised user role.
func IsValidRole(r Role) bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// User represents an identity record.
type User struct {
	ID           int64     `json:"id"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Email        string    `json:"email"`
	Age          int       `json:"age"`
	PasswordHash string    `json:"-"` // never serialised
	Role         Role      `json:"role"`
	TenantID     *int64    `json:"tenantId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Tenant represents an organisation that users may belong to.
type Tenant struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RefreshTokenRecord is a persisted session grant. Its id doubles as the
// JWT ID of the refresh token minted against it; deleting the record
// revokes that token regardless of its cryptographic validity.
type RefreshTokenRecord struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Sentinel errors for auth operations.
var (
	ErrInvalidCredentials = errors.New("email or password is incorrect")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailExists        = errors.New("user with this email already exists")
	ErrTenantNotFound     = errors.New("tenant not found")
	ErrTokenNotFound      = errors.New("refresh token record not found")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrKeyUnavailable     = errors.New("signing key unavailable")
)
