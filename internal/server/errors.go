package server

import (
	"context"
	"errors"
	"net/http"

	sgerrors "sheetgenie/internal/errors"
	"sheetgenie/internal/logging"

	"github.com/gin-gonic/gin"
)

// statusClientClosed is the non-standard status logged when the caller went away.
const statusClientClosed = 499

func statusFor(err error) int {
	switch {
	case errors.Is(err, context.Canceled):
		return statusClientClosed
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return sgerrors.HTTPStatus(err)
	}
}

// fail writes the uniform error body and records err on the gin context.
func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	logger := logging.FromContext(c.Request.Context(), s.logger)
	if status >= http.StatusInternalServerError {
		logger.Error("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
	} else {
		logger.Warn("%s %s rejected: %v", c.Request.Method, c.FullPath(), err)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, errorResponse{
		Success: false,
		Error:   err.Error(),
		Code:    string(sgerrors.CodeOf(err)),
	})
}

func invalidRequest(err error) error {
	return sgerrors.Wrap(sgerrors.CodeInvalidRequest, err, "invalid request: %v", err)
}
