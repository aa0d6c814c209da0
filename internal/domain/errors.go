package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrUploadNotStarted = errors.New("upload not started")
	ErrUploadSuperseded = errors.New("upload superseded")
	ErrInvalidDataURL   = errors.New("invalid data url")
	ErrSourceNotAllowed = errors.New("source host not allowed")
)

// ValidationError reports a missing or malformed request field. It is never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// RemoteCallError is returned by the retrying client once a call cannot succeed.
type RemoteCallError struct {
	Status    int
	Code      int
	Message   string
	Attempts  int
	Retryable bool
	Err       error
}

func (e *RemoteCallError) Error() string {
	switch {
	case e.Retryable && e.Status != 0:
		return fmt.Sprintf("remote call failed with status %d after %d attempts", e.Status, e.Attempts)
	case e.Retryable && e.Err != nil:
		return fmt.Sprintf("remote call failed after %d attempts: %v", e.Attempts, e.Err)
	case e.Retryable:
		return fmt.Sprintf("remote call failed after %d attempts", e.Attempts)
	}
	code := e.Code
	if code == 0 {
		code = e.Status
	}
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = fmt.Sprintf("unknown remote error (status %d)", e.Status)
	}
	return fmt.Sprintf("remote error (code %d): %s", code, msg)
}

func (e *RemoteCallError) Unwrap() error { return e.Err }

// SchemaValidationError names the first path of a structured response that
// does not satisfy the declared contract.
type SchemaValidationError struct {
	Path   string
	Reason string
}

func (e *SchemaValidationError) Error() string {
	if e.Path == "" {
		return "schema validation: " + e.Reason
	}
	return fmt.Sprintf("schema validation: %s: %s", e.Path, e.Reason)
}

// UploadError names the asset key that blocked the upload gate.
type UploadError struct {
	Key AssetKey
	Err error
}

func (e *UploadError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("upload %s failed", e.Key)
	}
	return fmt.Sprintf("upload %s failed: %v", e.Key, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// AuthError is raised when token issuance or verification fails.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return "auth: " + e.Reason
	}
	return fmt.Sprintf("auth: %s: %v", e.Reason, e.Err)
}

func (e *AuthError) Unwrap() error {
	if e.Err == nil {
		return ErrUnauthorized
	}
	return e.Err
}

// ImageGenerationError is returned when the image model answers without an image.
type ImageGenerationError struct {
	Reason string
}

func (e *ImageGenerationError) Error() string {
	return "image generation: " + e.Reason
}
