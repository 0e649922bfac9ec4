package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.  The
// prefix before the underscore names the owning module.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Sentinel codes.
const (
	CodeOK      ErrorCode = "OK"
	CodeUnknown ErrorCode = "UNKNOWN"
)

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
)

// Provider Error Codes
const (
	ErrCodeProviderAuth             ErrorCode = "PRV_001"
	ErrCodeProviderTransient        ErrorCode = "PRV_002"
	ErrCodeProviderRateLimited      ErrorCode = "PRV_003"
	ErrCodeProviderRejected         ErrorCode = "PRV_004"
	ErrCodeProviderRetriesExhausted ErrorCode = "PRV_005"
	ErrCodeProviderMalformed        ErrorCode = "PRV_006"
)

// Gap Analysis Error Codes
const (
	ErrCodeNormalization       ErrorCode = "GAP_001"
	ErrCodeDuplicateKeyword    ErrorCode = "GAP_002"
	ErrCodeInternalConsistency ErrorCode = "GAP_003"
	ErrCodePrimaryUnavailable  ErrorCode = "GAP_004"
	ErrCodeAnalysisNotFound    ErrorCode = "GAP_005"
	ErrCodeInvalidDomain       ErrorCode = "GAP_006"
)

// Storage / Messaging Error Codes
const (
	ErrCodeStorage        ErrorCode = "STO_001"
	ErrCodeStoreClosed    ErrorCode = "STO_002"
	ErrCodeMessagePublish ErrorCode = "MSG_001"
)

// Aliases kept for call sites that read better with the short names.
const (
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeSerialization:      http.StatusInternalServerError,

	ErrCodeProviderAuth:             http.StatusBadGateway,
	ErrCodeProviderTransient:        http.StatusBadGateway,
	ErrCodeProviderRateLimited:      http.StatusTooManyRequests,
	ErrCodeProviderRejected:         http.StatusBadGateway,
	ErrCodeProviderRetriesExhausted: http.StatusBadGateway,
	ErrCodeProviderMalformed:        http.StatusBadGateway,

	ErrCodeNormalization:       http.StatusUnprocessableEntity,
	ErrCodeDuplicateKeyword:    http.StatusUnprocessableEntity,
	ErrCodeInternalConsistency: http.StatusInternalServerError,
	ErrCodePrimaryUnavailable:  http.StatusBadGateway,
	ErrCodeAnalysisNotFound:    http.StatusNotFound,
	ErrCodeInvalidDomain:       http.StatusBadRequest,

	ErrCodeStorage:        http.StatusInternalServerError,
	ErrCodeStoreClosed:    http.StatusServiceUnavailable,
	ErrCodeMessagePublish: http.StatusServiceUnavailable,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",

	ErrCodeProviderAuth:             "ranking provider authentication failed",
	ErrCodeProviderTransient:        "ranking provider temporarily unavailable",
	ErrCodeProviderRateLimited:      "ranking provider rate limited",
	ErrCodeProviderRejected:         "ranking provider rejected the request",
	ErrCodeProviderRetriesExhausted: "ranking provider retries exhausted",
	ErrCodeProviderMalformed:        "malformed ranking provider response",

	ErrCodeNormalization:       "ranking record normalized with warnings",
	ErrCodeDuplicateKeyword:    "duplicate keyword in domain set",
	ErrCodeInternalConsistency: "gap engine internal consistency violation",
	ErrCodePrimaryUnavailable:  "primary domain rankings unavailable",
	ErrCodeAnalysisNotFound:    "analysis not found",
	ErrCodeInvalidDomain:       "invalid domain",

	ErrCodeStorage:        "storage operation failed",
	ErrCodeStoreClosed:    "store is closed",
	ErrCodeMessagePublish: "failed to publish message",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 1 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}

//Personal.AI order the ending
