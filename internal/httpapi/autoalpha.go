package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sipkl/internal/autoalpha"
)

// AutoAlphaResponse is the trigger response body.
type AutoAlphaResponse struct {
	Message         string `json:"message"`
	Processed       int    `json:"processed"`
	Date            string `json:"date"`
	TotalStudents   *int   `json:"totalStudents,omitempty"`
	AlreadyAttended *int   `json:"alreadyAttended,omitempty"`
	CurrentHour     *int   `json:"currentHour,omitempty"`
	Time            string `json:"time"`
}

// NewAutoAlphaResponse shapes a reconciler result for JSON output.
func NewAutoAlphaResponse(res autoalpha.Result) AutoAlphaResponse {
	out := AutoAlphaResponse{
		Message:   res.Message,
		Processed: res.Processed,
		Date:      res.Date.String(),
		Time:      res.Time.Format(time.RFC3339),
	}
	if res.TooEarly {
		hour := res.CurrentHour
		out.CurrentHour = &hour
		return out
	}
	total, already := res.TotalStudents, res.AlreadyAttended
	out.TotalStudents = &total
	out.AlreadyAttended = &already
	return out
}

func (h *handler) autoAlpha(c *gin.Context) {
	res, err := h.deps.Reconciler.Run(c.Request.Context())
	switch {
	case errors.Is(err, autoalpha.ErrRunInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": "Auto alpha is already running", "details": err.Error()})
		return
	case err != nil:
		h.logger.Error("Auto alpha trigger failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to run auto alpha", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, NewAutoAlphaResponse(res))
}
