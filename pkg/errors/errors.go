// Package errors provides structured error handling for PromptFit
package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gitai-reporter/promptfit/pkg/types"
)

// ErrorCode represents specific error codes
type ErrorCode string

const (
	// Fitting errors
	ErrCodeChunking           ErrorCode = "CHUNKING_ERROR"
	ErrCodeValidation         ErrorCode = "VALIDATION_ERROR"
	ErrCodeTokenLimitExceeded ErrorCode = "TOKEN_LIMIT_EXCEEDED"
	ErrCodeStrategy           ErrorCode = "STRATEGY_ERROR"

	// Configuration errors
	ErrCodeConfigInvalid ErrorCode = "CONFIG_INVALID"

	// Ambient errors
	ErrCodeTimeout          ErrorCode = "TIMEOUT"
	ErrCodeTokenCountFailed ErrorCode = "TOKEN_COUNT_FAILED"
	ErrCodeCache            ErrorCode = "CACHE_ERROR"
)

// PromptFitError represents a structured error in PromptFit
type PromptFitError struct {
	Type    types.ErrorType        `json:"type"`
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *PromptFitError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (caused by: %v)", e.Code, e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *PromptFitError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *PromptFitError) WithDetail(key string, value interface{}) *PromptFitError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new PromptFit error
func New(errType types.ErrorType, code ErrorCode, message string) *PromptFitError {
	return &PromptFitError{
		Type:    errType,
		Code:    code,
		Message: message,
	}
}

// NewWithCause creates a new PromptFit error with a cause
func NewWithCause(errType types.ErrorType, code ErrorCode, message string, cause error) *PromptFitError {
	return &PromptFitError{
		Type:    errType,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewChunkingError signals that a strategy could not structurally chunk
// content
func NewChunkingError(message string) *PromptFitError {
	return New(types.ErrorTypeValidation, ErrCodeChunking, message)
}

// NewValidationError signals a failed data-integrity check
func NewValidationError(message string) *PromptFitError {
	return New(types.ErrorTypeValidation, ErrCodeValidation, message)
}

// NewTokenLimitExceededError is the terminal error raised when every fallback
// strategy failed to fit content within the budget. It carries the names of
// every attempted strategy and the underlying error types.
func NewTokenLimitExceededError(attempts []types.StrategyAttempt) *PromptFitError {
	strategies := make([]string, 0, len(attempts))
	causes := make(map[string]string, len(attempts))
	for _, attempt := range attempts {
		strategies = append(strategies, string(attempt.Strategy))
		causes[string(attempt.Strategy)] = attempt.Error
	}
	return New(types.ErrorTypeInternal, ErrCodeTokenLimitExceeded,
		fmt.Sprintf("all fitting strategies failed: %s", strings.Join(strategies, ", "))).
		WithDetail("strategies_attempted", strategies).
		WithDetail("strategy_errors", causes)
}

// NewStrategyError signals one recoverable strategy attempt failure
func NewStrategyError(strategy types.StrategyType, cause error) *PromptFitError {
	return NewWithCause(types.ErrorTypeInternal, ErrCodeStrategy,
		fmt.Sprintf("strategy %s failed", strategy), cause).
		WithDetail("strategy", string(strategy))
}

// NewConfigError signals invalid settings; raised at construction time
func NewConfigError(message string) *PromptFitError {
	return New(types.ErrorTypeValidation, ErrCodeConfigInvalid, message)
}

// NewTimeoutError signals that an operation exceeded its deadline
func NewTimeoutError(operation string) *PromptFitError {
	return New(types.ErrorTypeInternal, ErrCodeTimeout,
		fmt.Sprintf("%s operation timed out", operation)).
		WithDetail("operation", operation)
}

// NewTokenCountError signals a token counting service failure
func NewTokenCountError(cause error) *PromptFitError {
	return NewWithCause(types.ErrorTypeExternal, ErrCodeTokenCountFailed,
		"token counting failed", cause)
}

// NewCacheError signals a cache backend failure
func NewCacheError(message string, cause error) *PromptFitError {
	return NewWithCause(types.ErrorTypeInternal, ErrCodeCache, message, cause)
}

// WrapError wraps an error as a PromptFitError
func WrapError(err error, errType types.ErrorType, code ErrorCode, message string) *PromptFitError {
	return NewWithCause(errType, code, message, err)
}

// IsCode reports whether err is a PromptFitError with the given code
func IsCode(err error, code ErrorCode) bool {
	var pfErr *PromptFitError
	if errors.As(err, &pfErr) {
		return pfErr.Code == code
	}
	return false
}

// IsChunkingError reports whether err is a chunking error
func IsChunkingError(err error) bool {
	return IsCode(err, ErrCodeChunking)
}

// IsValidationError reports whether err is an integrity validation error
func IsValidationError(err error) bool {
	return IsCode(err, ErrCodeValidation)
}

// IsTokenLimitExceeded reports whether err is the terminal fallback error
func IsTokenLimitExceeded(err error) bool {
	return IsCode(err, ErrCodeTokenLimitExceeded)
}

// IsConfigError reports whether err is a configuration error
func IsConfigError(err error) bool {
	return IsCode(err, ErrCodeConfigInvalid)
}

// GetPromptFitError extracts a PromptFitError from an error chain
func GetPromptFitError(err error) *PromptFitError {
	var pfErr *PromptFitError
	if errors.As(err, &pfErr) {
		return pfErr
	}
	return nil
}

// StrategiesAttempted returns the attempted strategy names carried by a
// terminal token-limit error, or nil for other errors
func StrategiesAttempted(err error) []string {
	pfErr := GetPromptFitError(err)
	if pfErr == nil || pfErr.Code != ErrCodeTokenLimitExceeded {
		return nil
	}
	strategies, _ := pfErr.Details["strategies_attempted"].([]string)
	return strategies
}

// ErrorList represents a list of errors
type ErrorList struct {
	Errors []*PromptFitError `json:"errors"`
}

// Error implements the error interface
func (el *ErrorList) Error() string {
	var messages []string
	for _, err := range el.Errors {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// Add adds an error to the list
func (el *ErrorList) Add(err *PromptFitError) {
	el.Errors = append(el.Errors, err)
}

// HasErrors returns true if there are errors
func (el *ErrorList) HasErrors() bool {
	return len(el.Errors) > 0
}

// ToError returns the ErrorList as an error if it has errors, otherwise nil
func (el *ErrorList) ToError() error {
	if el.HasErrors() {
		return el
	}
	return nil
}

// NewErrorList creates a new error list
func NewErrorList() *ErrorList {
	return &ErrorList{
		Errors: make([]*PromptFitError, 0),
	}
}
