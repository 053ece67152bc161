package ado

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx response from Azure DevOps.
type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("ado: HTTP %d %s", e.StatusCode, e.Status)
	}
	return fmt.Sprintf("ado: HTTP %d %s: %s", e.StatusCode, e.Status, e.Body)
}

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
