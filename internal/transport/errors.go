package transport

import (
	"fmt"
	"strings"
)

// APIError is returned for a response with a non-2xx status
type APIError struct {
	StatusCode int
	Status     string
	URL        string
	RequestID  string
	Body       string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("api request failed: %s for url %s", e.Status, e.URL)
	if body := strings.TrimSpace(e.Body); body != "" {
		msg += ": " + body
	}
	return msg
}

// TransportError is returned when the endpoint could not be reached
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DecodeError is returned when a 2xx body is not a JSON array of records
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding response from %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
