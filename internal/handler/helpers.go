package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/wayfarerhq/wayfarer/internal/middleware"
	"github.com/wayfarerhq/wayfarer/internal/pkg/errcode"
	apperrors "github.com/wayfarerhq/wayfarer/internal/pkg/errors"
	"github.com/wayfarerhq/wayfarer/internal/pkg/response"
)

// handleError maps the engine's error taxonomy onto HTTP statuses and
// body codes. Anything unrecognized is reported as internal without
// leaking detail to the client.
func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestID, _ := c.Get(middleware.ContextRequestIDKey)
	logutil.GetLogger(c.Request.Context()).Warn("request failed",
		zap.Any("request_id", requestID),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	switch {
	case errors.Is(err, apperrors.ErrInvalid):
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, err.Error())
	case errors.Is(err, apperrors.ErrRateLimited):
		response.Error(c, http.StatusTooManyRequests, errcode.ErrRateLimited, "the model is rate limited, try again shortly")
	case errors.Is(err, apperrors.ErrUpstream):
		response.Error(c, http.StatusBadGateway, errcode.ErrUpstream, "the model is unavailable, try again shortly")
	case errors.Is(err, apperrors.ErrNotFound):
		response.Error(c, http.StatusNotFound, errcode.ErrNotFound, "not found")
	case errors.Is(err, apperrors.ErrTooMany):
		response.Error(c, http.StatusTooManyRequests, errcode.ErrTooMany, http.StatusText(http.StatusTooManyRequests))
	default:
		response.Error(c, http.StatusInternalServerError, errcode.ErrInternal, "internal error")
	}
}
