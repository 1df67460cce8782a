// Package httpapi exposes the check-in, listing and auto alpha trigger routes.
package httpapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"sipkl/internal/attendance"
	"sipkl/internal/auth"
	"sipkl/internal/autoalpha"
	"sipkl/internal/importer"
	"sipkl/internal/pkl"
)

// AutoAlphaPath is the trigger route hit by the external cron.
const AutoAlphaPath = "/api/auto-alpha"

// Reconciler runs one auto alpha pass.
type Reconciler interface {
	Run(ctx context.Context) (autoalpha.Result, error)
}

// Attendance is the check-in surface used by the handlers.
type Attendance interface {
	Today() pkl.Day
	CheckIn(ctx context.Context, req attendance.CheckInRequest) (pkl.AttendanceRecord, error)
	ListByDate(ctx context.Context, day pkl.Day) ([]pkl.AttendanceRecord, error)
}

// Students is the directory surface used by the admin routes.
type Students interface {
	importer.Upserter
	ListStudents(ctx context.Context) ([]pkl.Student, error)
}

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) bool

// Deps wires the router.
type Deps struct {
	Reconciler Reconciler
	Attendance Attendance
	Students   Students
	Health     map[string]HealthCheck
	Logger     *zap.Logger

	SigningKey string
	Issuer     string
	CronSecret string

	// Middleware runs before every route, after recovery.
	Middleware []gin.HandlerFunc
}

type handler struct {
	deps   Deps
	logger *zap.Logger
}

// NewRouter builds the gin engine with all routes registered.
func NewRouter(deps Deps) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	h := &handler{deps: deps, logger: deps.Logger}

	r := gin.New()
	r.Use(deps.Middleware...)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", h.healthz)

	trigger := auth.CronOrAdmin(deps.CronSecret, deps.SigningKey, deps.Issuer)
	r.POST(AutoAlphaPath, trigger, h.autoAlpha)
	r.GET(AutoAlphaPath, trigger, h.autoAlpha)

	v1 := r.Group("/v1", auth.Authenticate(deps.SigningKey, deps.Issuer))
	v1.POST("/attendance", auth.Require(auth.RoleSiswa), h.checkIn)
	v1.GET("/attendance", auth.Require(auth.RoleGuru), h.listAttendance)
	v1.GET("/students", auth.Require(auth.RoleGuru), h.listStudents)
	v1.POST("/students/import", auth.Require(auth.RoleAdmin), h.importStudents)

	return r
}

func (h *handler) healthz(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{"status": "ok"}
	for name, check := range h.deps.Health {
		healthy := check(c.Request.Context())
		body[name] = healthy
		if !healthy {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}
