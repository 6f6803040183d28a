// errors.go
// Error taxonomy for the remote boundary. Stores convert these into
// user-displayable state; nothing here is fatal to the process.

package remote

import (
	"errors"
	"fmt"
)

// RemoteWriteError wraps a failed document write.
type RemoteWriteError struct {
	Path string
	Err  error
}

func (e *RemoteWriteError) Error() string {
	return fmt.Sprintf("remote write failed for %s: %v", e.Path, e.Err)
}

func (e *RemoteWriteError) Unwrap() error { return e.Err }

// UploadError wraps a failed blob upload.
type UploadError struct {
	Object string
	Err    error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload failed for %s: %v", e.Object, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// ProfileLoadError wraps a failed profile fetch-or-create.
type ProfileLoadError struct {
	UID string
	Err error
}

func (e *ProfileLoadError) Error() string {
	return fmt.Sprintf("failed to load profile for %s: %v", e.UID, e.Err)
}

func (e *ProfileLoadError) Unwrap() error { return e.Err }

// Provider error codes surfaced by AuthError.
const (
	AuthCodeInvalidCredentials = "INVALID_CREDENTIALS"
	AuthCodeEmailInUse         = "EMAIL_EXISTS"
	AuthCodeWeakPassword       = "WEAK_PASSWORD"
	AuthCodeNetwork            = "NETWORK"
	AuthCodeUnknown            = "UNKNOWN"
)

// AuthError is an identity-provider failure with a stable code.
type AuthError struct {
	Code string
	Err  error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%s): %v", e.Code, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// UserMessage returns a string safe to show in the UI.
func (e *AuthError) UserMessage() string {
	switch e.Code {
	case AuthCodeInvalidCredentials:
		return "Invalid email or password"
	case AuthCodeEmailInUse:
		return "An account with this email already exists"
	case AuthCodeWeakPassword:
		return "Password is too weak"
	case AuthCodeNetwork:
		return "Network error, please try again"
	default:
		return "Something went wrong, please try again"
	}
}

// AuthUserMessage extracts a displayable message from any error returned
// across the identity boundary.
func AuthUserMessage(err error) string {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.UserMessage()
	}
	return "Something went wrong, please try again"
}
