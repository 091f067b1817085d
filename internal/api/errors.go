package api

import (
	"fmt"
	"net/http"

	"github.com/leszmonitor/dashboard/internal/domain"
)

// RequestError is returned for any non-2xx response. The caller never sees a
// partially parsed body on failure.
type RequestError struct {
	Status int
	URL    string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request to %s failed with status %d", e.URL, e.Status)
}

// Unwrap maps a 401 onto domain.ErrUnauthenticated so a rejected token is
// handled by the same route-boundary redirect as a missing one.
func (e *RequestError) Unwrap() error {
	if e.Status == http.StatusUnauthorized {
		return domain.ErrUnauthenticated
	}
	return nil
}
