package errors

import (
	stderrors "errors"
	"fmt"
)

// Error is the structured error type for the retrieval engine.
// It maps the engine's error taxonomy (config, embedding, cache IO,
// cache decode, provider) onto stable codes so callers can distinguish
// "no results found" from "the engine failed", and recoverable cache
// failures from fatal build/query failures.
type Error struct {
	// Code is the unique error code (e.g. "ERR_201_CACHE_IO").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Provider, ...).
	Category Category

	// Cause is the underlying error, if any.
	Cause error

	// Retryable indicates if the failing operation can be retried.
	Retryable bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches target errors by code, enabling errors.Is with sentinel
// *Error values.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a new Error with the given code and message.
// Category and retryable flag are derived from the code.
func New(code string, message string, cause error) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Newf creates a new Error with a formatted message.
func Newf(code string, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Wrap creates an Error from an existing error, keeping its message.
// Returns nil if err is nil.
func Wrap(code string, err error) *Error {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// Config creates a configuration error. Configuration errors are
// caught when parameters are supplied, never at query time.
func Config(message string) *Error {
	return New(ErrCodeConfigInvalid, message, nil)
}

// Embedding creates an embedding provider error. Fatal for index
// builds and for query-vector generation.
func Embedding(message string, cause error) *Error {
	return New(ErrCodeEmbedProvider, message, cause)
}

// CacheIO creates a cache read/write error.
func CacheIO(message string, cause error) *Error {
	return New(ErrCodeCacheIO, message, cause)
}

// CacheDecode creates a cache deserialization error.
func CacheDecode(message string, cause error) *Error {
	return New(ErrCodeCacheDecode, message, cause)
}

// HasCode reports whether err or any error in its chain carries the
// given engine error code.
func HasCode(err error, code string) bool {
	var e *Error
	if !stderrors.As(err, &e) {
		return false
	}
	for e != nil {
		if e.Code == code {
			return true
		}
		var next *Error
		if !stderrors.As(e.Cause, &next) {
			return false
		}
		e = next
	}
	return false
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Retryable
	}
	return false
}
