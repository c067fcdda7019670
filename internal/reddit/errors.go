package reddit

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotAuthenticated is returned when a request needs a user but the session has none
var ErrNotAuthenticated = errors.New("reddit: session is not authenticated")

// RemoteError is one [code, message] pair reported by the API
type RemoteError struct {
	Code    string
	Message string
}

func (e RemoteError) String() string {
	return e.Code + ": " + e.Message
}

// AuthError is returned when the API rejects a login
type AuthError struct {
	Status int
	Errors []RemoteError
	Reason string
}

func (e *AuthError) Error() string {
	if len(e.Errors) > 0 {
		return "login failed: API errored with: " + joinRemoteErrors(e.Errors)
	}
	if e.Reason != "" {
		return "login failed: " + e.Reason
	}
	return fmt.Sprintf("login failed: status %d", e.Status)
}

// Codes returns the remote error codes
func (e *AuthError) Codes() []string {
	codes := make([]string, 0, len(e.Errors))
	for _, re := range e.Errors {
		codes = append(codes, re.Code)
	}
	return codes
}

// ExitCode lets the CLI turn a rejected login into a distinct process status
func (e *AuthError) ExitCode() int { return 2 }

// APIError is returned when an authenticated response carries remote errors
type APIError struct {
	Status  int
	Errors  []RemoteError
	Message string // top-level "error" field
}

func (e *APIError) Error() string {
	var parts []string
	if len(e.Errors) > 0 {
		parts = append(parts, joinRemoteErrors(e.Errors))
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if len(parts) == 0 {
		return fmt.Sprintf("API errored with status %d", e.Status)
	}
	return "API errored with: " + strings.Join(parts, ", ")
}

// ExitCode lets the CLI turn an API failure into a distinct process status
func (e *APIError) ExitCode() int { return 3 }

func joinRemoteErrors(errs []RemoteError) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.String())
	}
	return strings.Join(parts, ", ")
}

// parseRemoteErrors converts the API's [[code, message, field?], ...] list
func parseRemoteErrors(raw [][]any) []RemoteError {
	out := make([]RemoteError, 0, len(raw))
	for _, entry := range raw {
		var re RemoteError
		if len(entry) > 0 {
			re.Code = fmt.Sprint(entry[0])
		}
		if len(entry) > 1 {
			re.Message = fmt.Sprint(entry[1])
		}
		out = append(out, re)
	}
	return out
}
