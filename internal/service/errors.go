package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrInvalidCredentials indicates that provided login credentials are incorrect.
	// Unknown usernames and wrong passwords are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrStoreUnavailable wraps infrastructure failures of the user or session store.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrUserAlreadyExists is returned when attempting to register with an existing username.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrUserNotFound is returned by provisioning operations on an unknown username.
	ErrUserNotFound = errors.New("user not found")
	// ErrSessionRequired is the error form of a redirect to the login entry point.
	ErrSessionRequired = errors.New("session required")
)

// Form field names reported in validation errors.
const (
	FieldUsername        = "username"
	FieldPassword        = "password"
	FieldNewPassword     = "new_password"
	FieldConfirmPassword = "confirm_password"
)

// User-facing messages.
const (
	MsgUsernameRequired   = "Please enter username."
	MsgPasswordRequired   = "Please enter your password."
	MsgInvalidCredentials = "Invalid username or password."
	MsgNewPasswordEmpty   = "Please enter the new password."
	MsgConfirmEmpty       = "Please confirm the password."
	MsgPasswordMismatch   = "Password did not match."
	MsgStoreUnavailable   = "Oops! Something went wrong. Please try again later."
)

// MsgPasswordTooShort renders the minimum length rule.
func MsgPasswordTooShort(min int) string {
	return fmt.Sprintf("Password must have atleast %d characters.", min)
}

// MsgPasswordTooLong renders the maximum length rule.
func MsgPasswordTooLong(max int) string {
	return fmt.Sprintf("Password must have at most %d bytes.", max)
}

// ValidationError reports per-field problems with submitted input.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func storeUnavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}
