package auth

import (
	"context"
	"time"
)

// User is a staff account able to create or review pass requests. Accounts are
// provisioned by an external admin process; this service only reads them.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	FullName     string    `json:"full_name"`
	RoleCode     string    `json:"role_code,omitempty"`
	UnitID       string    `json:"unit_id,omitempty"`
	Active       bool      `json:"active"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Principal is an authenticated caller with its role code resolved once at the
// authorization boundary.
type Principal struct {
	UserID   string
	RoleCode string
	UnitID   string
	Active   bool
	Role     Role
}

// NewPrincipal resolves the role code and returns a ready-to-use principal.
func NewPrincipal(userID, roleCode, unitID string, active bool) Principal {
	return Principal{
		UserID:   userID,
		RoleCode: roleCode,
		UnitID:   unitID,
		Active:   active,
		Role:     ResolveRole(roleCode),
	}
}

// PrincipalFromUser builds a principal from a directory record.
func PrincipalFromUser(u User) Principal {
	return NewPrincipal(u.ID, u.RoleCode, u.UnitID, u.Active)
}

// Directory is the read-only view of the user table the workflow needs:
// authentication lookups and role-holder fan-out for notifications.
type Directory interface {
	UserByID(ctx context.Context, id string) (User, error)
	UserByUsername(ctx context.Context, username string) (User, error)
	// ActiveRoleHolders returns the ids of active users whose role code equals
	// the given code.
	ActiveRoleHolders(ctx context.Context, roleCode string) ([]string, error)
}
