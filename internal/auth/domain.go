package auth

import (
	"time"

	"github.com/lattice-cms/lattice/internal/shared"
)

// Administrator is a backend account. Administrators carry a role name and
// may be flagged as super admin, which bypasses permission resolution.
type Administrator struct {
	ID           int64
	Username     string
	PasswordHash string
	RoleName     string
	SuperAdmin   bool
	IsActive     bool
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SiteUser is a front-facing account scoped to content contribution.
type SiteUser struct {
	ID           int64
	Username     string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Actor converts an administrator record into the shared actor identity.
func (a *Administrator) Actor() *shared.Actor {
	return &shared.Actor{
		Kind:       shared.ActorAdministrator,
		ID:         a.ID,
		Username:   a.Username,
		Role:       a.RoleName,
		SuperAdmin: a.SuperAdmin,
	}
}

// Actor converts a site user record into the shared actor identity.
func (u *SiteUser) Actor() *shared.Actor {
	return &shared.Actor{
		Kind:     shared.ActorUser,
		ID:       u.ID,
		Username: u.Username,
	}
}
