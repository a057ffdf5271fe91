package llm

import "fmt"

// APIError represents a failed language-model call: transport failure,
// non-2xx status, or a response without a usable completion.
type APIError struct {
	Provider   Provider
	StatusCode int // Zero when no HTTP response was received
	Message    string
	Cause      error
}

func (e *APIError) Error() string {
	prefix := fmt.Sprintf("%s API error", e.Provider)
	if e.StatusCode != 0 {
		prefix = fmt.Sprintf("%s (status %d)", prefix, e.StatusCode)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Cause
}
