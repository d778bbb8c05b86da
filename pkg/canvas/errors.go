package canvas

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is returned for any non-2xx Canvas response that survives the
// transport's retry policy.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("canvas: request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("canvas: %s (status %d)", e.Message, e.StatusCode)
}

// IsAuthError reports whether err is a 401/403 from Canvas. Not recoverable
// locally; callers abort the current run.
func IsAuthError(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) &&
		(ae.StatusCode == http.StatusUnauthorized || ae.StatusCode == http.StatusForbidden)
}

// IsNotFound reports whether err is a 404. During part resolution this means
// "this section does not have this resource" and is non-fatal.
func IsNotFound(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.StatusCode == http.StatusNotFound
}
