package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sipkl/internal/attendance"
	"sipkl/internal/auth"
	"sipkl/internal/importer"
	"sipkl/internal/pkl"
)

type checkInBody struct {
	Status   pkl.Status `json:"status" binding:"required"`
	Note     string     `json:"keterangan"`
	Lat      *float64   `json:"lat"`
	Lng      *float64   `json:"lng"`
	Location string     `json:"lokasi"`
}

func (h *handler) checkIn(c *gin.Context) {
	var body checkInBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if (body.Lat == nil) != (body.Lng == nil) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lng must be sent together"})
		return
	}

	session, _ := auth.FromContext(c.Request.Context())
	rec, err := h.deps.Attendance.CheckIn(c.Request.Context(), attendance.CheckInRequest{
		StudentID: session.Subject,
		Status:    body.Status,
		Note:      body.Note,
		Lat:       body.Lat,
		Lng:       body.Lng,
		Location:  body.Location,
	})
	switch {
	case errors.Is(err, attendance.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, attendance.ErrStudentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, attendance.ErrAlreadyCheckedIn):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil:
		h.logger.Error("Check-in failed", zap.String("student_id", session.Subject), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record attendance", "details": err.Error()})
	default:
		c.JSON(http.StatusCreated, rec)
	}
}

func (h *handler) listAttendance(c *gin.Context) {
	day := h.deps.Attendance.Today()
	if v := c.Query("date"); v != "" {
		parsed, err := pkl.ParseDay(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		day = parsed
	}

	records, err := h.deps.Attendance.ListByDate(c.Request.Context(), day)
	if err != nil {
		h.logger.Error("Listing attendance failed", zap.String("date", day.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list attendance", "details": err.Error()})
		return
	}
	if records == nil {
		records = []pkl.AttendanceRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"date": day, "records": records})
}

func (h *handler) listStudents(c *gin.Context) {
	students, err := h.deps.Students.ListStudents(c.Request.Context())
	if err != nil {
		h.logger.Error("Listing students failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list students", "details": err.Error()})
		return
	}
	if students == nil {
		students = []pkl.Student{}
	}
	c.JSON(http.StatusOK, gin.H{"students": students})
}

func (h *handler) importStudents(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file field required"})
		return
	}
	defer file.Close()

	parsed, err := importer.Parse(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	n, err := importer.Load(c.Request.Context(), h.deps.Students, parsed.Students)
	if err != nil {
		h.logger.Error("Student import failed", zap.Int("written", n), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to import students", "details": err.Error(), "imported": n})
		return
	}

	rowErrors := make([]string, 0, len(parsed.Errors))
	for _, re := range parsed.Errors {
		rowErrors = append(rowErrors, re.Error())
	}
	h.logger.Info("Students imported", zap.Int("imported", n), zap.Int("rejected", len(rowErrors)))
	c.JSON(http.StatusOK, gin.H{"imported": n, "rejected": rowErrors})
}
