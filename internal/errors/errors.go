package errors

import (
	stderrors "errors"
	"fmt"
)

// DocError carries an error code plus the category, severity, and
// retryability derived from it. Call sites construct these through New,
// Wrap, or the per-category helpers below.
type DocError struct {
	Code     string
	Message  string
	Category Category
	Severity Severity

	// Details holds extra context (file path, folder) for logs.
	Details map[string]string

	Cause     error
	Retryable bool
}

func (e *DocError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *DocError) Unwrap() error {
	return e.Cause
}

// Is matches by code, so errors.Is treats two errors with the same code
// as the same error regardless of message.
func (e *DocError) Is(target error) bool {
	if t, ok := target.(*DocError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail records a key-value pair on the error and returns it.
func (e *DocError) WithDetail(key, value string) *DocError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New builds a DocError for code. Category, severity, and the retryable
// flag all follow from the code, never from the caller.
func New(code string, message string, cause error) *DocError {
	return &DocError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap attaches a code to an existing error, reusing its message.
// Returns nil for a nil error so it can wrap return values directly.
func Wrap(code string, err error) *DocError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError marks a bad or unparseable configuration.
func ConfigError(message string, cause error) *DocError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// IOError marks a file that cannot be read.
func IOError(message string, cause error) *DocError {
	return New(ErrCodeFileNotFound, message, cause)
}

// CollaboratorError marks a failure of an external collaborator, such
// as the conversion service. These are retryable.
func CollaboratorError(message string, cause error) *DocError {
	return New(ErrCodeConversionService, message, cause)
}

// InternalError marks an unexpected failure with no better code.
func InternalError(message string, cause error) *DocError {
	return New(ErrCodeInternal, message, cause)
}

// IsRetryable reports whether any DocError in err's chain is marked
// retryable. Non-DocError errors are never retryable.
func IsRetryable(err error) bool {
	var de *DocError
	if stderrors.As(err, &de) {
		return de.Retryable
	}
	return false
}

// IsFatal reports whether any DocError in err's chain has fatal
// severity. Fatal errors abort the current run.
func IsFatal(err error) bool {
	var de *DocError
	if stderrors.As(err, &de) {
		return de.Severity == SeverityFatal
	}
	return false
}

// GetCode returns the code of the first DocError in err's chain, or
// the empty string when there is none.
func GetCode(err error) string {
	var de *DocError
	if stderrors.As(err, &de) {
		return de.Code
	}
	return ""
}
