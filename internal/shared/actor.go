package shared

import "strconv"

// ActorKind distinguishes the two account variants known to the system.
type ActorKind string

const (
	// ActorAdministrator is a back-office administrator account.
	ActorAdministrator ActorKind = "administrator"
	// ActorUser is a front-facing site user account.
	ActorUser ActorKind = "user"
)

// Actor identifies an authenticated administrator or site user. The zero
// value represents the anonymous caller.
type Actor struct {
	Kind       ActorKind
	ID         int64
	Username   string
	Role       string
	SuperAdmin bool
}

// Authenticated reports whether the actor carries a valid identity.
func (a *Actor) Authenticated() bool {
	return a != nil && a.ID > 0 && (a.Kind == ActorAdministrator || a.Kind == ActorUser)
}

// Key returns the stable cache/storage key for the actor.
func (a *Actor) Key() string {
	if a == nil {
		return ""
	}
	return string(a.Kind) + ":" + strconv.FormatInt(a.ID, 10)
}
