package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnauthorized is returned when the backend answered 401 or when an
// authenticated call is attempted without a session.
var ErrUnauthorized = errors.New("unauthorized")

// TransportError means the request never produced an HTTP response.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: request failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ServerError is a non-2xx response. Message is set when the body was a
// structured {"error": ...} or {"message": ...} document; Body always holds the
// raw text.
type ServerError struct {
	Op         string
	StatusCode int
	Body       string
	Message    string
}

func (e *ServerError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %d: %s", e.Op, e.StatusCode, e.Message)
	}
	if e.Body != "" {
		return fmt.Sprintf("%s: %d: %s", e.Op, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s: API error %d", e.Op, e.StatusCode)
}

// Structured reports whether the server supplied a machine-readable reason.
func (e *ServerError) Structured() bool { return e.Message != "" }

func newServerError(op string, status int, body []byte) *ServerError {
	se := &ServerError{
		Op:         op,
		StatusCode: status,
		Body:       strings.TrimSpace(string(body)),
	}
	var doc struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &doc); err == nil {
		if doc.Error != "" {
			se.Message = doc.Error
		} else {
			se.Message = doc.Message
		}
	}
	return se
}

// Reason returns the server's structured reason for err, or fallback when
// there is none.
func Reason(err error, fallback string) string {
	var se *ServerError
	if errors.As(err, &se) && se.Structured() {
		return se.Message
	}
	return fallback
}

// IsStatus reports whether err is a ServerError with the given status code.
func IsStatus(err error, status int) bool {
	var se *ServerError
	return errors.As(err, &se) && se.StatusCode == status
}
