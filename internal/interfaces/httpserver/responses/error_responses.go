package responses

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"focusnote/scan-api/internal/utils/platformerrors"
)

// ErrorResponse represents an error response with platform error details
type ErrorResponse struct {
	Code          string         `json:"code"`
	Type          string         `json:"type,omitempty"`
	Error         string         `json:"error"`
	Message       string         `json:"message,omitempty"`
	Details       map[string]any `json:"details,omitempty"`
	ErrorInstance error          `json:"-"`
	RequestID     string         `json:"request_id,omitempty"`
}

// upstreamDetailKeys are the error context fields safe to echo back to
// clients when a dependency fails.
var upstreamDetailKeys = []string{"operation", "upstream_status", "upstream_body"}

// HandleError handles domain errors and returns appropriate HTTP responses
func HandleError(reqCtx *gin.Context, err error, message string) {
	var domainErr *platformerrors.PlatformError
	if errors.As(err, &domainErr) {
		statusCode := platformerrors.ErrorTypeToHTTPStatus(domainErr.GetErrorType())

		errorMessage := domainErr.Message
		if errorMessage == "" {
			errorMessage = message
		}

		errResp := ErrorResponse{
			Code:          domainErr.GetUUID(),
			Type:          string(domainErr.GetErrorType()),
			Error:         errorMessage,
			Message:       errorMessage,
			ErrorInstance: domainErr,
			RequestID:     domainErr.GetRequestID(),
		}
		if domainErr.GetErrorType() == platformerrors.ErrorTypeExternal {
			errResp.Details = upstreamDetails(domainErr)
		}

		_ = reqCtx.Error(err)
		reqCtx.AbortWithStatusJSON(statusCode, errResp)
		return
	}

	errResp := ErrorResponse{
		Error:         message,
		Message:       message,
		ErrorInstance: err,
		RequestID:     platformerrors.RequestIDFromContext(reqCtx.Request.Context()),
	}
	_ = reqCtx.Error(err)
	reqCtx.AbortWithStatusJSON(http.StatusInternalServerError, errResp)
}

// HandleNewError creates a new typed error at the route layer and handles it
func HandleNewError(reqCtx *gin.Context, errorType platformerrors.ErrorType, message string, uuid string) {
	ctx := reqCtx.Request.Context()
	err := platformerrors.NewError(ctx, platformerrors.LayerRoute, errorType, message, nil, uuid)

	errResp := ErrorResponse{
		Code:          err.GetUUID(),
		Type:          string(err.GetErrorType()),
		Error:         message,
		Message:       message,
		ErrorInstance: err,
		RequestID:     err.GetRequestID(),
	}

	reqCtx.AbortWithStatusJSON(platformerrors.ErrorTypeToHTTPStatus(err.GetErrorType()), errResp)
}

func upstreamDetails(err *platformerrors.PlatformError) map[string]any {
	if len(err.Context) == 0 {
		return nil
	}
	details := make(map[string]any, len(upstreamDetailKeys))
	for _, key := range upstreamDetailKeys {
		if v, ok := err.Context[key]; ok {
			details[key] = v
		}
	}
	if len(details) == 0 {
		return nil
	}
	return details
}
