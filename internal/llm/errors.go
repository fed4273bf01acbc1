package llm

import "fmt"

// TransportError reports that a request never got a response from the provider.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s request failed: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// APIError reports a non-success response from a reachable provider.
type APIError struct {
	Provider   string
	StatusCode int
	// Message is the server-reported message, empty when the body carried none.
	Message string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "Check server logs for details."
	}
	return fmt.Sprintf("API Error: %d. %s", e.StatusCode, msg)
}
