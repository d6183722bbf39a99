package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nhle/career-planner/internal/planner"
)

// Error codes carried in ErrorResponse.Code.
const (
	CodeUnauthorized  = "unauthorized"
	CodeNotFound      = "not_found"
	CodeValidation    = "validation_failed"
	CodeQuotaExceeded = "quota_exceeded"
	CodeBadRequest    = "bad_request"
	CodeInternal      = "internal"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`

	// Field names the rejected input on validation errors.
	Field string `json:"field,omitempty"`

	// Resource and Limit describe the ceiling on quota errors.
	Resource string `json:"resource,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// writeError maps a planner error to its status code and body.
func (s *Server) writeError(c *gin.Context, err error) {
	var (
		verr *planner.ValidationError
		qerr *planner.QuotaError
	)
	switch {
	case errors.Is(err, planner.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: err.Error(), Code: CodeUnauthorized})
	case errors.Is(err, planner.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: CodeNotFound})
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: verr.Message, Code: CodeValidation, Field: verr.Field})
	case errors.As(err, &qerr):
		c.JSON(http.StatusPaymentRequired, ErrorResponse{
			Error:    qerr.Error(),
			Code:     CodeQuotaExceeded,
			Resource: string(qerr.Resource),
			Limit:    qerr.Limit,
		})
	default:
		s.logger.Error("api.request.failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error", Code: CodeInternal})
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: CodeBadRequest})
}
