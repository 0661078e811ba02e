package identity

import (
	"errors"
	"fmt"
)

type AuthCode string

const (
	CodeInvalidCredentials  AuthCode = "invalid-credentials"
	CodeInvalidEmail        AuthCode = "invalid-email"
	CodeWeakPassword        AuthCode = "weak-password"
	CodeEmailInUse          AuthCode = "email-already-in-use"
	CodePopupClosed         AuthCode = "popup-closed-by-user"
	CodePopupBlocked        AuthCode = "popup-blocked"
	CodeOperationNotAllowed AuthCode = "operation-not-allowed"
	CodeInvalidToken        AuthCode = "invalid-token"
	CodeUnknown             AuthCode = "unknown"
)

var messages = map[AuthCode]string{
	CodeInvalidCredentials:  "Invalid email or password. Please check your credentials.",
	CodeInvalidEmail:        "Please enter a valid email address.",
	CodeWeakPassword:        "Password should be at least 6 characters.",
	CodeEmailInUse:          "This email is already registered. Try logging in.",
	CodePopupClosed:         "Sign-in window was closed before finishing.",
	CodePopupBlocked:        "Sign-in popup was blocked. Redirecting instead.",
	CodeOperationNotAllowed: "This sign-in method is not enabled.",
	CodeInvalidToken:        "Your session has expired. Please sign in again.",
}

const unknownMessage = "An unexpected error occurred. Please try again."

// MessageFor returns the user-facing text for code. Unknown codes get a
// generic message.
func MessageFor(code AuthCode) string {
	if msg, ok := messages[code]; ok {
		return msg
	}
	return unknownMessage
}

// AuthError is an identity failure mapped to a fixed user-facing message.
type AuthError struct {
	Code    AuthCode
	Message string
	Err     error
}

func NewAuthError(code AuthCode, err error) *AuthError {
	return &AuthError{Code: code, Message: MessageFor(code), Err: err}
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth/%s: %v", e.Code, e.Err)
	}
	return "auth/" + string(e.Code)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Is matches any AuthError with the same code.
func (e *AuthError) Is(target error) bool {
	var other *AuthError
	if errors.As(target, &other) {
		return other.Code == e.Code
	}
	return false
}

// AsAuthError maps any error onto the taxonomy; foreign errors become
// CodeUnknown.
func AsAuthError(err error) *AuthError {
	if err == nil {
		return nil
	}
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr
	}
	return NewAuthError(CodeUnknown, err)
}

func HasCode(err error, code AuthCode) bool {
	var authErr *AuthError
	return errors.As(err, &authErr) && authErr.Code == code
}
