package rbac

import (
	"fmt"
	"time"

	"github.com/lattice-cms/lattice/internal/authz"
	"github.com/lattice-cms/lattice/internal/shared"
)

// SubjectKind identifies who a grant or assignment belongs to.
type SubjectKind string

const (
	SubjectAdministrator SubjectKind = "administrator"
	SubjectUser          SubjectKind = "user"
	SubjectRole          SubjectKind = "role"
)

// Valid reports whether the kind is one of the known subject kinds.
func (k SubjectKind) Valid() bool {
	switch k {
	case SubjectAdministrator, SubjectUser, SubjectRole:
		return true
	}
	return false
}

// Subject is the holder of grants: an actor directly, or a role that
// actors acquire through assignments.
type Subject struct {
	Kind SubjectKind
	ID   int64
}

// ActorKey renders the cache key form for actor subjects. Role subjects
// have no single cache key; changes to them fan out to every holder.
func (s Subject) ActorKey() string {
	return fmt.Sprintf("%s:%d", s.Kind, s.ID)
}

// Role groups capabilities under a name administrators can assign.
type Role struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Grant attaches one capability to a subject at a scope. SiteID 0 means
// global scope; ChannelID 0 means the grant covers the whole site.
type Grant struct {
	Subject    Subject
	SiteID     int64
	ChannelID  int64
	Capability authz.Capability
	CreatedAt  time.Time
}

// Assignment links an actor to a role. SiteID 0 makes the assignment
// effective everywhere; a positive SiteID limits it to one site.
type Assignment struct {
	ActorKind shared.ActorKind
	ActorID   int64
	RoleID    int64
	SiteID    int64
	CreatedAt time.Time
}
