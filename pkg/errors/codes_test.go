package errors

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCode_String(t *testing.T) {
	assert.Equal(t, "COMMON_001", ErrCodeInternal.String())
	assert.Equal(t, "PRV_001", ErrCodeProviderAuth.String())
}

func TestHTTPStatusForCode(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		expected int
	}{
		{ErrCodeInternal, 500},
		{ErrCodeBadRequest, 400},
		{ErrCodeNotFound, 404},
		{ErrCodeValidation, 400},
		{ErrCodeProviderAuth, 502},
		{ErrCodeProviderRateLimited, 429},
		{ErrCodePrimaryUnavailable, 502},
		{ErrCodeInternalConsistency, 500},
		{ErrCodeAnalysisNotFound, 404},
		{ErrCodeStorage, 500},
		{ErrorCode("UNKNOWN"), 500},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, HTTPStatusForCode(tt.code), string(tt.code))
	}
}

func TestDefaultMessageForCode(t *testing.T) {
	assert.Equal(t, "internal server error", DefaultMessageForCode(ErrCodeInternal))
	assert.Equal(t, "duplicate keyword in domain set", DefaultMessageForCode(ErrCodeDuplicateKeyword))
	assert.Equal(t, "unknown error", DefaultMessageForCode(ErrorCode("NOPE")))
}

func TestIsClientError(t *testing.T) {
	assert.True(t, IsClientError(ErrCodeBadRequest))
	assert.True(t, IsClientError(ErrCodeInvalidDomain))
	assert.False(t, IsClientError(ErrCodeInternal))
}

func TestIsServerError(t *testing.T) {
	assert.True(t, IsServerError(ErrCodeInternal))
	assert.True(t, IsServerError(ErrCodeProviderTransient))
	assert.False(t, IsServerError(ErrCodeBadRequest))
}

func TestModuleForCode(t *testing.T) {
	assert.Equal(t, "COMMON", ModuleForCode(ErrCodeInternal))
	assert.Equal(t, "PRV", ModuleForCode(ErrCodeProviderRetriesExhausted))
	assert.Equal(t, "GAP", ModuleForCode(ErrCodeInternalConsistency))
	assert.Equal(t, "STO", ModuleForCode(ErrCodeStorage))
	assert.Equal(t, "UNKNOWN", ModuleForCode(CodeUnknown))
}

func TestEveryCodeHasStatusAndMessage(t *testing.T) {
	format := regexp.MustCompile(`^[A-Z]+_\d{3}$`)
	for code := range ErrorCodeHTTPStatus {
		assert.Regexp(t, format, string(code))
		_, ok := ErrorCodeMessage[code]
		assert.True(t, ok, "missing default message for %s", code)
	}
}

//Personal.AI order the ending
