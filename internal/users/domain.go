package users

import (
	"time"

	"github.com/lattice-cms/lattice/internal/shared"
)

// Account is the administration view over both principal kinds.
type Account struct {
	Kind        shared.ActorKind
	ID          int64
	Username    string
	RoleName    string
	SuperAdmin  bool
	IsActive    bool
	LastLoginAt *time.Time
	CreatedAt   time.Time
}

// NewAccount carries the fields needed to create a principal.
type NewAccount struct {
	Kind     shared.ActorKind
	Username string
	Password string
	RoleName string
}
