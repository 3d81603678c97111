package shared

import (
	"errors"
	"fmt"
)

// Terminal error kinds shared by the authorization and workflow core. All of
// them end the calling request; none is retried internally.
var (
	// ErrUnauthenticated indicates the caller carries no valid actor.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrForbidden indicates an authenticated actor lacks the capability.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidTransition indicates a workflow move that is not legal from
	// the current check state.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrStoreUnavailable indicates backing persistence failed or timed out.
	// It is the only unexpected kind and maps to a 5xx outcome.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrNotFound indicates a resource that does not exist. Use
	// NotFoundError when the failing hierarchy level matters.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrDuplicate indicates a unique constraint violation.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrValidationFailed indicates a malformed or contradictory request.
	ErrValidationFailed = errors.New("validation failed")
	// ErrConflict indicates an optimistic concurrency conflict on a
	// versioned row.
	ErrConflict = errors.New("version conflict")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// NotFoundLevel names the hierarchy level that failed to resolve.
type NotFoundLevel string

const (
	// NotFoundSite means the site does not exist.
	NotFoundSite NotFoundLevel = "site"
	// NotFoundChannel means the channel does not exist or belongs to a
	// different site.
	NotFoundChannel NotFoundLevel = "channel"
	// NotFoundContent means the content does not exist or belongs to a
	// different channel.
	NotFoundContent NotFoundLevel = "content"
)

// NotFoundError reports which level of a site/channel/content chain could
// not be resolved. Mismatched identities fail with this error rather than
// ErrForbidden so tenant isolation fails closed with the right reason.
type NotFoundError struct {
	Level     NotFoundLevel
	SiteID    int64
	ChannelID int64
	ContentID int64
}

func (e *NotFoundError) Error() string {
	switch e.Level {
	case NotFoundChannel:
		return fmt.Sprintf("channel %d not found in site %d", e.ChannelID, e.SiteID)
	case NotFoundContent:
		return fmt.Sprintf("content %d not found in site %d channel %d", e.ContentID, e.SiteID, e.ChannelID)
	default:
		return fmt.Sprintf("site %d not found", e.SiteID)
	}
}

// Unwrap lets errors.Is(err, ErrNotFound) match all hierarchy failures.
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ErrorCode returns the machine-distinguishable code for an error kind.
func ErrorCode(err error) string {
	var nf *NotFoundError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.As(err, &nf):
		return "not_found." + string(nf.Level)
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrStoreUnavailable):
		return "store_unavailable"
	default:
		return "internal"
	}
}
