package qbit

import "fmt"

// APIError represents an error response from the qBittorrent Web API.
type APIError struct {
	StatusCode int
	Endpoint   string
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("qbittorrent %s: status %d: %s", e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("qbittorrent %s: status %d", e.Endpoint, e.StatusCode)
}

// IsAuthError returns true if the API rejected the session cookie.
func (e *APIError) IsAuthError() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}
