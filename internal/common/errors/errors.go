// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Entity resolution errors
	ErrCodeAmbiguousEntity      ErrorCode = "AMBIGUOUS_ENTITY"
	ErrCodeUnknownEntity        ErrorCode = "UNKNOWN_ENTITY"
	ErrCodeDirectoryUnavailable ErrorCode = "DIRECTORY_UNAVAILABLE"

	// Intent classification errors
	ErrCodeInvalidWeights     ErrorCode = "INVALID_WEIGHTS"
	ErrCodeIntentUnsupported  ErrorCode = "INTENT_UNSUPPORTED"
	ErrCodeQueryValidation    ErrorCode = "QUERY_VALIDATION_FAILED"

	// Analytics provider errors
	ErrCodeProviderConnectionFailed ErrorCode = "PROVIDER_CONNECTION_FAILED"
	ErrCodeProviderTimeout          ErrorCode = "PROVIDER_TIMEOUT"
	ErrCodeProviderRateLimited      ErrorCode = "PROVIDER_RATE_LIMITED"
	ErrCodeDataUnavailable          ErrorCode = "DATA_UNAVAILABLE"

	// Storage errors
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeDatabaseInsertFailed     ErrorCode = "DATABASE_INSERT_FAILED"
	ErrCodeSessionLoadFailed        ErrorCode = "SESSION_LOAD_FAILED"

	// Insight augmentation errors
	ErrCodeLLMTimeout         ErrorCode = "LLM_TIMEOUT"
	ErrCodeLLMSynthesisFailed ErrorCode = "LLM_SYNTHESIS_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	if e.ErrorVariables != nil {
		for k, v := range e.ErrorVariables {
			vars[k] = v
		}
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewAmbiguousEntityError creates a non-retryable resolution error carrying
// the ranked candidates for a clarification prompt.
func NewAmbiguousEntityError(mention string, candidates []string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAmbiguousEntity,
		Message:   "Instrument mention matched multiple symbols",
		Details:   fmt.Sprintf("mention: %s", mention),
		Retryable: false,
		Metadata: map[string]interface{}{
			"mention":    mention,
			"candidates": candidates,
		},
		Timestamp: time.Now().UTC(),
	}
}

// NewUnknownEntityError creates a non-retryable resolution error.
func NewUnknownEntityError(mention, reason string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnknownEntity,
		Message:   "Instrument mention could not be resolved",
		Details:   fmt.Sprintf("mention: %s, reason: %s", mention, reason),
		Retryable: false,
		Metadata:  map[string]interface{}{"mention": mention},
		Timestamp: time.Now().UTC(),
	}
}

// NewDirectoryUnavailableError creates a retryable directory fetch error.
func NewDirectoryUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDirectoryUnavailable,
		Message:   "Symbol directory could not be loaded",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidWeightsError creates a non-retryable weight parsing error.
func NewInvalidWeightsError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidWeights,
		Message:   "Portfolio weights could not be parsed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewIntentUnsupportedError creates a non-retryable classification error.
func NewIntentUnsupportedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeIntentUnsupported,
		Message:   "Query does not map to a supported intent",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryValidationError creates a non-retryable payload validation error.
func NewQueryValidationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryValidation,
		Message:   "Query payload validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewProviderConnectionFailedError creates a retryable provider connection error.
func NewProviderConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeProviderConnectionFailed,
		Message:   "Analytics provider connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewProviderTimeoutError creates a retryable provider timeout error.
func NewProviderTimeoutError(operation string) *StandardError {
	return &StandardError{
		Code:      ErrCodeProviderTimeout,
		Message:   "Analytics provider request timeout",
		Details:   fmt.Sprintf("operation: %s", operation),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewProviderRateLimitedError creates a retryable rate limit error.
func NewProviderRateLimitedError(operation string) *StandardError {
	return &StandardError{
		Code:      ErrCodeProviderRateLimited,
		Message:   "Analytics provider rate limit exceeded",
		Details:   fmt.Sprintf("operation: %s", operation),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDataUnavailableError creates a non-retryable missing data error.
func NewDataUnavailableError(symbol, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDataUnavailable,
		Message:   "Provider has no data for the requested instrument",
		Details:   fmt.Sprintf("symbol: %s, %s", symbol, details),
		Retryable: false,
		Metadata:  map[string]interface{}{"symbol": symbol},
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseInsertFailedError creates a retryable database insert error.
func NewDatabaseInsertFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseInsertFailed,
		Message:   "Database insert operation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSessionLoadFailedError creates a retryable session store error.
func NewSessionLoadFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionLoadFailed,
		Message:   "Session context could not be loaded",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewLLMTimeoutError creates a retryable LLM timeout error.
func NewLLMTimeoutError() *StandardError {
	return &StandardError{
		Code:      ErrCodeLLMTimeout,
		Message:   "Commentary synthesis timeout",
		Details:   "LLM call exceeded timeout threshold",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewLLMSynthesisFailedError creates a retryable LLM synthesis error.
func NewLLMSynthesisFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeLLMSynthesisFailed,
		Message:   "Commentary synthesis API error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// Generic constructors

func NewBusinessRuleError(message, details string) *StandardError {
	return &StandardError{
		Code:      "BUSINESS_RULE_VIOLATION",
		Message:   message,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "EXTERNAL_SERVICE_ERROR",
		Message:   fmt.Sprintf("External service '%s' error", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewTimeoutError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "TIMEOUT_ERROR",
		Message:   fmt.Sprintf("Service '%s' timeout", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewResourceNotFoundError(service, details string) *StandardError {
	return &StandardError{
		Code:      "RESOURCE_NOT_FOUND",
		Message:   fmt.Sprintf("Resource not found in %s", service),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewAuthenticationError(details string) *StandardError {
	return &StandardError{
		Code:      "AUTHENTICATION_ERROR",
		Message:   "Authentication failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes (same as internal).
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeAmbiguousEntity:          "AMBIGUOUS_ENTITY",
	ErrCodeUnknownEntity:            "UNKNOWN_ENTITY",
	ErrCodeDirectoryUnavailable:     "DIRECTORY_UNAVAILABLE",
	ErrCodeInvalidWeights:           "INVALID_WEIGHTS",
	ErrCodeIntentUnsupported:        "INTENT_UNSUPPORTED",
	ErrCodeQueryValidation:          "QUERY_VALIDATION_FAILED",
	ErrCodeProviderConnectionFailed: "PROVIDER_CONNECTION_FAILED",
	ErrCodeProviderTimeout:          "PROVIDER_TIMEOUT",
	ErrCodeProviderRateLimited:      "PROVIDER_RATE_LIMITED",
	ErrCodeDataUnavailable:          "DATA_UNAVAILABLE",
	ErrCodeDatabaseConnectionFailed: "DATABASE_CONNECTION_FAILED",
	ErrCodeDatabaseInsertFailed:     "DATABASE_INSERT_FAILED",
	ErrCodeSessionLoadFailed:        "SESSION_LOAD_FAILED",
	ErrCodeLLMTimeout:               "LLM_TIMEOUT",
	ErrCodeLLMSynthesisFailed:       "LLM_SYNTHESIS_FAILED",
}

// GetRetryCount returns the recommended retry count per error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDirectoryUnavailable,
		ErrCodeProviderConnectionFailed,
		ErrCodeDatabaseConnectionFailed,
		ErrCodeDatabaseInsertFailed,
		ErrCodeSessionLoadFailed,
		ErrCodeLLMSynthesisFailed:
		return 3 // Retryable technical errors

	case ErrCodeProviderTimeout,
		ErrCodeProviderRateLimited:
		return 2 // Partial retry for timeouts

	case ErrCodeLLMTimeout:
		return 1 // As per BPMN boundary event

	default:
		return 0 // Business errors: no retry
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code) // Fallback
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	errorVars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		errorVars[k] = v
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: errorVars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "ENTITY") || strings.Contains(codeStr, "DIRECTORY"):
		return "RESOLUTION"
	case strings.Contains(codeStr, "WEIGHTS") || strings.Contains(codeStr, "INTENT") || strings.Contains(codeStr, "VALIDATION"):
		return "INTENT"
	case strings.Contains(codeStr, "PROVIDER") || strings.Contains(codeStr, "DATA_UNAVAILABLE"):
		return "PROVIDER"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "SESSION"):
		return "STORAGE"
	case strings.Contains(codeStr, "LLM"):
		return "AI"
	default:
		return "OTHER"
	}
}
