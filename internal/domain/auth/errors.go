package auth

import "fmt"

// AuthError reports a failed login: a transport failure (Err set), a non-2xx
// answer (StatusCode set) or a success body without an access token.
type AuthError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *AuthError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("auth: login failed: %s: %v", e.Message, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("auth: login failed (status %d): %s", e.StatusCode, e.Message)
	default:
		return "auth: login failed: " + e.Message
	}
}

func (e *AuthError) Unwrap() error {
	return e.Err
}
