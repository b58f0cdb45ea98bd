package types

import "fmt"

// ErrorCode represents a unified error code across the framework.
type ErrorCode string

const (
	// ErrConfiguration 配置错误：未知 persona、缺失必填字段。致命，不重试。
	ErrConfiguration ErrorCode = "CONFIGURATION"
	// ErrGeneration 外部生成/评分调用失败。在 persona 级别被隔离。
	ErrGeneration ErrorCode = "GENERATION"
	// ErrRateLimited 上游限流（429 等）。终止后续 persona 处理。
	ErrRateLimited ErrorCode = "RATE_LIMITED"
	// ErrQuotaExceeded 配额用尽（RESOURCE_EXHAUSTED 等）。与 ErrRateLimited 同等处理。
	ErrQuotaExceeded ErrorCode = "QUOTA_EXCEEDED"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	PersonaID string    `json:"persona_id,omitempty"`
	Cause     error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithPersona tags the error with the persona it occurred under.
func (e *Error) WithPersona(personaID string) *Error {
	e.PersonaID = personaID
	return e
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ""
}
