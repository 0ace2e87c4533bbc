package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/justsurfingit/Placement-Tracker/internal/common"
	"go.uber.org/zap"
)

func statusFor(code common.Code) int {
	switch code {
	case common.CodeValidation:
		return http.StatusBadRequest
	case common.CodeInvariant:
		return http.StatusUnprocessableEntity
	case common.CodeExtraction:
		return http.StatusBadGateway
	case common.CodeStore:
		return http.StatusConflict
	case common.CodeNotFound:
		return http.StatusNotFound
	case common.CodeUnauthorized:
		return http.StatusUnauthorized
	case common.CodeRateLimited:
		return http.StatusTooManyRequests
	case common.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the {"error": {...}} envelope and aborts the chain.
// Internal errors are logged and their details are not sent to the client.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	code := common.CodeOf(err)
	body := gin.H{"code": code}

	var appErr *common.Error
	switch {
	case code == common.CodeInternal:
		log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		body["message"] = "internal server error"
	case errors.As(err, &appErr):
		body["message"] = appErr.Message
		if len(appErr.Fields) > 0 {
			body["fields"] = appErr.Fields
		}
		if code == common.CodeStore || code == common.CodeExtraction {
			log.Warn("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		}
	}
	c.AbortWithStatusJSON(statusFor(code), gin.H{"error": body})
}

// bindError turns a gin binding failure into a validation error, listing the
// offending fields when the validator reports them.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		return common.NewValidationError("invalid request body", fields)
	}
	return common.NewValidationError("Invalid JSON format: "+err.Error(), nil)
}
