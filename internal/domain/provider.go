package domain

import (
	"fmt"
	"net/http"
)

// ProviderError describes a failed call to an upstream model provider.
// Err is the domain sentinel the failure maps to.
type ProviderError struct {
	Provider string
	Status   int // HTTP status; 0 when the request never got a response
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("%s API error %d: %s: %v", e.Provider, e.Status, e.Message, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Retryable reports whether repeating the call may succeed: transport failures,
// timeouts, throttling and server errors.
func (e *ProviderError) Retryable() bool {
	switch {
	case e.Status == 0:
		return true
	case e.Status == http.StatusRequestTimeout, e.Status == http.StatusTooManyRequests:
		return true
	default:
		return e.Status >= http.StatusInternalServerError
	}
}
