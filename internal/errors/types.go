package errors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidType      = errors.New("invalid provider kind")
	ErrInvalidOperation = errors.New("invalid operation for provider kind")
	ErrImageError       = errors.New("image operation reported errors")
	ErrRuntimeFailed    = errors.New("runtime operation failed")
	ErrCommandFailed    = errors.New("cloud CLI command failed")
	ErrConfigInvalid    = errors.New("configuration invalid")
)

// CloudError is the normalized failure returned by every provider.
type CloudError struct {
	Type        error
	Provider    string
	Operation   string
	Context     string
	Cause       string
	Suggestion  string
	OriginalErr error
}

func (e *CloudError) Error() string {
	if e.OriginalErr != nil {
		return e.OriginalErr.Error()
	}
	return e.Type.Error()
}

func (e *CloudError) Unwrap() error {
	return e.OriginalErr
}

// Is reports a match against the error kind so callers can use errors.Is(err, ErrImageError).
func (e *CloudError) Is(target error) bool {
	return e.Type == target
}

func NewCloudError(errorType error, context, cause, suggestion string, originalErr error) *CloudError {
	return &CloudError{
		Type:        errorType,
		Context:     context,
		Cause:       cause,
		Suggestion:  suggestion,
		OriginalErr: originalErr,
	}
}

// NewInvalidTypeError reports a provider kind outside the supported set.
func NewInvalidTypeError(value string, valid []string) *CloudError {
	err := NewCloudError(ErrInvalidType,
		fmt.Sprintf("Unknown provider kind %q", value),
		"Must be one of: "+strings.Join(valid, ", "),
		"Set the provider kind to one of the supported values",
		fmt.Errorf("invalid provider kind (%s); must be one of: [%s]", value, strings.Join(valid, " ")),
	)
	err.Provider = value
	return err
}

// NewInvalidOperationError reports an operation the provider kind cannot perform.
func NewInvalidOperationError(operation, provider string) *CloudError {
	err := NewCloudError(ErrInvalidOperation,
		fmt.Sprintf("Cannot %s with provider %s", operation, provider),
		fmt.Sprintf("Provider %s does not support %s", provider, operation),
		"Use a provider kind that supports this operation",
		fmt.Errorf("invalid provider kind (%s) for operation %s", provider, operation),
	)
	err.Provider = provider
	err.Operation = operation
	return err
}

// NewImageError reports the concatenated error records of an image action.
func NewImageError(action, image, message string) *CloudError {
	err := NewCloudError(ErrImageError,
		fmt.Sprintf("Failed to %s image %s", action, image),
		message,
		"Check the image name and registry credentials",
		fmt.Errorf("error %sing image %s: %s", action, image, message),
	)
	err.Operation = action
	return err
}

func NewRuntimeError(context, cause, suggestion string, originalErr error) *CloudError {
	return NewCloudError(ErrRuntimeFailed, context, cause, suggestion, originalErr)
}

func NewCommandError(context, cause, suggestion string, originalErr error) *CloudError {
	return NewCloudError(ErrCommandFailed, context, cause, suggestion, originalErr)
}

func NewConfigError(context, cause, suggestion string, originalErr error) *CloudError {
	return NewCloudError(ErrConfigInvalid, context, cause, suggestion, originalErr)
}
