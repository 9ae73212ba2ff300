package energiek

import (
	"errors"
	"fmt"
)

// errNoMarketPrice marks the expected 422 "Geen marktprijs gevonden"
// response. It never leaves the package; GetMarketPrices folds it into a nil
// payload.
var errNoMarketPrice = errors.New("no market price found")

// AuthError indicates the remote rejected or required authentication:
// bad credentials, a missing XSRF token, or an expired session. Callers
// should re-login before retrying.
type AuthError struct {
	Message string
	// Status is the HTTP status that triggered the error, 0 when the error
	// did not come from a response.
	Status int
}

func (e *AuthError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("authentication failed: %d", e.Status)
	}
	return e.Message
}

// RequestError indicates a failed request: a transport error, an unexpected
// HTTP status, or a response missing expected data. Data held by the caller
// should be considered stale.
type RequestError struct {
	Message string
	// Status is the HTTP status that triggered the error, 0 when the error
	// did not come from a response.
	Status int
	Err    error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Status != 0 {
		return fmt.Sprintf("request failed: %d", e.Status)
	}
	return e.Message
}

func (e *RequestError) Unwrap() error {
	return e.Err
}
