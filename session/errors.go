package session

import (
	"errors"
	"fmt"
)

// Kinds of failure. Every error returned by the client matches exactly one
// of these with errors.Is.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrLoginUnavailable   = errors.New("login unavailable")
	ErrValidationFailed   = errors.New("validation failed")
	ErrSessionExpired     = errors.New("session expired")
	ErrTransportFailure   = errors.New("transport failure")
)

var errNoRefreshToken = errors.New("no refresh token stored")

var defaultMessages = map[error]string{
	ErrInvalidCredentials: "Invalid username or password.",
	ErrLoginUnavailable:   "Login is unavailable right now. Please try again later.",
	ErrValidationFailed:   "Registration failed.",
	ErrSessionExpired:     "Your session has expired. Please log in again.",
	ErrTransportFailure:   "Unable to reach the server. Please check your connection and try again.",
}

// Error is returned by every Client operation. Message is the text taken from
// the backend response, when there was one.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%v: %s: %v", e.Kind, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%v: %s", e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	}
	return fmt.Sprint(e.Kind)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Kind returns the kind of err, or nil when err was not produced by a Client.
func Kind(err error) error {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return nil
}

// Message returns text suitable for showing to a user.
func Message(err error) string {
	var se *Error
	if !errors.As(err, &se) {
		return err.Error()
	}
	if se.Message != "" {
		return se.Message
	}
	if msg, ok := defaultMessages[se.Kind]; ok {
		return msg
	}
	return se.Error()
}
