// Package handlers holds the gin handlers of the keyword gap API.
package handlers

import (
	stderrors "errors"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/KeyGap-Intelligence/pkg/errors"
)

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// maskedCodes never expose their message or detail to clients.
var maskedCodes = map[errors.ErrorCode]bool{
	errors.ErrCodeInternal:            true,
	errors.ErrCodeSerialization:       true,
	errors.ErrCodeStorage:             true,
	errors.ErrCodeInternalConsistency: true,
	errors.CodeUnknown:                true,
}

// respondError maps err to a status via errors.HTTPStatusForCode and aborts
// with an ErrorResponse.
func respondError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	resp := ErrorResponse{Code: code.String(), Message: errors.DefaultMessageForCode(code)}
	if !maskedCodes[code] {
		var ae *errors.AppError
		if stderrors.As(err, &ae) {
			resp.Message = ae.Message
			resp.Detail = ae.Detail
		}
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(errors.HTTPStatusForCode(code), resp)
}

// badRequest reports a body that failed binding or validation.
func badRequest(c *gin.Context, err error) {
	respondError(c, errors.New(errors.ErrCodeValidation, "invalid request body").WithDetail(err.Error()))
}

//Personal.AI order the ending
