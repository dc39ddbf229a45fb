package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/graphmind-ai/graphmind"
	"github.com/graphmind-ai/graphmind/pkg/server/dto"
)

// writeError maps engine errors to HTTP status codes.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	code := "internal_error"

	switch {
	case errors.Is(err, graphmind.ErrGraphNotFound),
		errors.Is(err, graphmind.ErrNodeNotFound),
		errors.Is(err, graphmind.ErrSessionNotFound),
		errors.Is(err, graphmind.ErrStatusNotFound):
		status = http.StatusNotFound
		code = "not_found"
	case errors.Is(err, graphmind.ErrInvalidUpload),
		errors.Is(err, graphmind.ErrUnsupportedFormat):
		status = http.StatusBadRequest
		code = "invalid_request"
	case errors.Is(err, graphmind.ErrGenerationFailed):
		status = http.StatusBadGateway
		code = "generation_failed"
	}

	c.JSON(status, dto.ErrorResponse{
		Error:   code,
		Message: err.Error(),
		Code:    status,
	})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{
		Error:   "invalid_request",
		Message: err.Error(),
	})
}
