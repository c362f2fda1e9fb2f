package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/leonardotrapani/diarscribe/internal/apperr"
)

// response is the JSON envelope the page script reads.
type response struct {
	Success bool     `json:"success"`
	Files   []string `json:"files,omitempty"`
	Skipped []string `json:"skipped,omitempty"`
	BatchID string   `json:"batch_id,omitempty"`
	Message string   `json:"message,omitempty"`
	Code    string   `json:"code,omitempty"`
}

func respondFiles(c *gin.Context, files []string) {
	c.JSON(http.StatusOK, response{Success: true, Files: files})
}

// respondError derives the status from an AppError, else 500.
func respondError(c *gin.Context, err error) {
	if appErr, ok := apperr.As(err); ok {
		c.JSON(appErr.HTTPStatus(), response{Message: appErr.Message, Code: string(appErr.Code)})
		return
	}
	c.JSON(http.StatusInternalServerError, response{Message: err.Error()})
}

func respondMessage(c *gin.Context, status int, msg string) {
	c.JSON(status, response{Message: msg})
}
