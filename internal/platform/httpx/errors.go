// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/lattice-cms/lattice/internal/shared"
)

// ErrValidation indicates a malformed or invalid request body.
var ErrValidation = errors.New("validation failed")

// RespondError maps domain errors to HTTP responses using RFC7807. The
// expected kinds map to 4xx; StoreUnavailable is the only unexpected kind
// and maps to 503 so callers can tell "we don't know" from "forbidden".
func RespondError(w http.ResponseWriter, err error) {
	code := shared.ErrorCode(err)
	switch {
	case errors.Is(err, shared.ErrUnauthenticated):
		ProblemCode(w, http.StatusUnauthorized, "Unauthenticated", err.Error(), code)
	case errors.Is(err, shared.ErrNotFound):
		ProblemCode(w, http.StatusNotFound, "Not Found", err.Error(), code)
	case errors.Is(err, shared.ErrForbidden):
		ProblemCode(w, http.StatusForbidden, "Forbidden", err.Error(), code)
	case errors.Is(err, shared.ErrInvalidTransition):
		ProblemCode(w, http.StatusConflict, "Invalid Transition", err.Error(), code)
	case errors.Is(err, shared.ErrDuplicate):
		ProblemCode(w, http.StatusConflict, "Duplicate", err.Error(), code)
	case errors.Is(err, shared.ErrConflict):
		ProblemCode(w, http.StatusConflict, "Version Conflict", err.Error(), "conflict")
	case errors.Is(err, ErrValidation), errors.Is(err, shared.ErrValidationFailed):
		ProblemCode(w, http.StatusBadRequest, "Validation Failed", err.Error(), "validation")
	case errors.Is(err, shared.ErrInvalidCredentials):
		ProblemCode(w, http.StatusUnauthorized, "Invalid Credentials", err.Error(), "invalid_credentials")
	case errors.Is(err, shared.ErrStoreUnavailable):
		ProblemCode(w, http.StatusServiceUnavailable, "Store Unavailable", "", code)
	default:
		ProblemCode(w, http.StatusInternalServerError, "Internal Error", "", "internal")
	}
}
