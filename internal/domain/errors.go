package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the domain layer.
var (
	// Configuration errors: raised synchronously, never retried.
	ErrBackendNotFound        = fmt.Errorf("backend not found")
	ErrNoBackendForCapability = fmt.Errorf("no backend registered for capability")
	ErrConfigLoad             = fmt.Errorf("failed to load configuration")

	// Capability mismatch: a resolved backend does not implement the
	// structured-completion operation. Never retried.
	ErrCapabilityMismatch = fmt.Errorf("backend does not support structured completion")

	// Transient completion errors: retried by the pipeline up to the
	// bounded policy, then propagated as-is.
	ErrBackendUnavailable = fmt.Errorf("backend unavailable")
	ErrRateLimit          = fmt.Errorf("rate limit exceeded")
	ErrContextOverflow    = fmt.Errorf("context window exceeded")
	ErrInvalidJSON        = fmt.Errorf("completion is not valid JSON")

	// Absorbed conditions.
	ErrAuthInvalid = fmt.Errorf("authentication failed")
	ErrKeyStore    = fmt.Errorf("key store operation failed")

	ErrInvalidInput = fmt.Errorf("invalid input")
)

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op     string // operation name (e.g. "Selector.Resolve")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsRetryableError reports whether err is a transient error that may
// succeed on retry. Configuration and capability-mismatch errors are not.
func IsRetryableError(err error) bool {
	return errors.Is(err, ErrRateLimit) ||
		errors.Is(err, ErrBackendUnavailable) ||
		errors.Is(err, ErrContextOverflow) ||
		errors.Is(err, ErrInvalidJSON)
}

// ErrorCode is a machine-parseable error category for monitoring.
type ErrorCode string

// Error codes. Every sentinel error maps to exactly one code.
const (
	CodeUnknown              ErrorCode = "UNKNOWN"
	CodeBackendNotFound      ErrorCode = "BACKEND_NOT_FOUND"
	CodeNoBackendForCap      ErrorCode = "NO_BACKEND_FOR_CAPABILITY"
	CodeCapabilityMismatch   ErrorCode = "CAPABILITY_MISMATCH"
	CodeBackendUnavailable   ErrorCode = "BACKEND_UNAVAILABLE"
	CodeRateLimit            ErrorCode = "RATE_LIMIT"
	CodeContextOverflow      ErrorCode = "CONTEXT_OVERFLOW"
	CodeInvalidJSON          ErrorCode = "INVALID_JSON"
	CodeAuthInvalid          ErrorCode = "AUTH_INVALID"
	CodeKeyStore             ErrorCode = "KEY_STORE"
	CodeConfigLoad           ErrorCode = "CONFIG_LOAD"
	CodeInvalidInput         ErrorCode = "INVALID_INPUT"
)

// errorCodeMap maps sentinel errors to their machine-parseable codes.
var errorCodeMap = map[error]ErrorCode{
	ErrBackendNotFound:        CodeBackendNotFound,
	ErrNoBackendForCapability: CodeNoBackendForCap,
	ErrCapabilityMismatch:     CodeCapabilityMismatch,
	ErrBackendUnavailable:     CodeBackendUnavailable,
	ErrRateLimit:              CodeRateLimit,
	ErrContextOverflow:        CodeContextOverflow,
	ErrInvalidJSON:            CodeInvalidJSON,
	ErrAuthInvalid:            CodeAuthInvalid,
	ErrKeyStore:               CodeKeyStore,
	ErrConfigLoad:             CodeConfigLoad,
	ErrInvalidInput:           CodeInvalidInput,
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// It unwraps DomainError and uses errors.Is to match sentinel errors.
// Returns CodeUnknown if no matching sentinel is found.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}

	if code, ok := errorCodeMap[err]; ok {
		return code
	}

	var de *DomainError
	if errors.As(err, &de) {
		if code, ok := errorCodeMap[de.Err]; ok {
			return code
		}
	}

	for sentinel, code := range errorCodeMap {
		if errors.Is(err, sentinel) {
			return code
		}
	}

	return CodeUnknown
}
