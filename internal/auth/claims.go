package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Role is the account type carried by a token
type Role string

const (
	RoleAdmin    Role = "Admin"
	RoleManager  Role = "Manager"
	RoleClerk    Role = "Clerk"
	RoleCustomer Role = "Customer"
)

// StaffRoles may manage orders, scheduling and routes
var StaffRoles = []Role{RoleAdmin, RoleManager, RoleClerk}

// ManagerRoles may delete routes and manage time slots
var ManagerRoles = []Role{RoleAdmin, RoleManager}

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleClerk, RoleCustomer:
		return true
	}
	return false
}

// IsStaff reports whether r is a staff role
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleManager || r == RoleClerk
}

// ErrInvalidToken is returned for tokens that cannot be decoded or verified
var ErrInvalidToken = errors.New("invalid token")

// Identity is the signed in user
type Identity struct {
	Role        Role   `json:"role"`
	PhoneNumber string `json:"phone_number"`
	Name        string `json:"name"`
}

// HasRole reports whether the identity has one of roles
func (i Identity) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}
	return false
}

// Claims is the token payload
type Claims struct {
	Role        Role   `json:"role"`
	PhoneNumber string `json:"phone_number"`
	Name        string `json:"name"`
	jwt.RegisteredClaims
}

// Identity extracts the user from the claims
func (c *Claims) Identity() Identity {
	return Identity{
		Role:        c.Role,
		PhoneNumber: c.PhoneNumber,
		Name:        c.Name,
	}
}

func (c *Claims) validate() error {
	if !c.Role.Valid() {
		return errors.Wrapf(ErrInvalidToken, "unknown role %q", c.Role)
	}
	return nil
}
