package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sigfarma/internal/core/apperror"
	"sigfarma/pkg/logger"
)

// ErrorHandler renders the last gin error as {code, message, details}.
// Internal causes are logged and never sent to the client.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		ctx := c.Request.Context()

		appErr, ok := apperror.AsAppError(err)
		if !ok {
			logger.Error(ctx, "unhandled error", "error", err)
			appErr = apperror.NewInternal(err)
		}

		switch {
		case apperror.IsFatal(appErr):
			logger.Error(ctx, "stock invariant violated", "details", appErr.Details)
		case appErr.Err != nil:
			logger.Error(ctx, "request error", "code", appErr.Code, "cause", appErr.Err)
		}

		details := appErr.Details
		if appErr.HTTPStatus >= http.StatusInternalServerError {
			if details == nil {
				details = map[string]any{}
			}
			details["request_id"] = c.GetString(ctxRequestID)
		}

		body := gin.H{
			"code":    appErr.Code,
			"message": appErr.Message,
			"details": details,
		}
		failIdempotency(c, appErr.HTTPStatus, body)
		c.JSON(appErr.HTTPStatus, body)
	}
}
