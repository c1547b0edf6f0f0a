package catalog

import (
	"errors"
	"fmt"
)

// ErrInvalidCredentials is returned by Login when the backend rejects
// the email/password pair. Callers re-prompt instead of aborting.
var ErrInvalidCredentials = errors.New("catalog: invalid credentials")

// APIError is a structured error body returned by the catalog backend
// ({"error": ..., "message": ...}).
type APIError struct {
	Kind       string
	Message    string
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("catalog: api error %q (%s, http %d)", e.Message, e.Kind, e.StatusCode)
}

// authFailureMessages are the backend's token-rejection reasons. Any
// of them triggers transparent recovery in the session manager; other
// API errors surface to the caller.
var authFailureMessages = map[string]bool{
	"Signature verification failed.": true,
	"The token has expired":          true,
	"Token not provided":             true,
}

// AuthFailure reports whether the error is a recoverable token
// rejection.
func (e *APIError) AuthFailure() bool {
	return authFailureMessages[e.Message]
}
