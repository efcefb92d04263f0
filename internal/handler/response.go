package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const requestIDHeader = "X-Request-Id"

type apiResponse struct {
	Code      int            `json:"code"`
	Message   string         `json:"message"`
	RequestID string         `json:"request_id,omitempty"`
	Data      any            `json:"data,omitempty"`
	Meta      map[string]any `json:"meta,omitempty"`
}

func Ok(c *gin.Context, data any, meta map[string]any) {
	c.JSON(http.StatusOK, apiResponse{
		Code:      0,
		Message:   "ok",
		RequestID: requestID(c),
		Data:      data,
		Meta:      meta,
	})
}

// Error writes the envelope with code equal to the HTTP status.
func Error(c *gin.Context, status int, message string, meta map[string]any) {
	c.JSON(status, apiResponse{
		Code:      status,
		Message:   message,
		RequestID: requestID(c),
		Meta:      meta,
	})
}

// requestID echoes the caller's X-Request-Id so botctl output can be matched to server logs.
func requestID(c *gin.Context) string {
	if c == nil || c.Request == nil {
		return ""
	}
	if id := c.GetHeader(requestIDHeader); id != "" {
		c.Header(requestIDHeader, id)
		return id
	}
	return ""
}
