package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"sipkl/internal/clock"
	"sipkl/internal/metrics"
	"sipkl/internal/pkl"
)

var (
	// ErrAlreadyCheckedIn is returned when the student already has a record for the day.
	ErrAlreadyCheckedIn = errors.New("attendance already recorded for this day")
	// ErrInvalidStatus is returned for unknown statuses and for Alpha, which only the reconciler writes.
	ErrInvalidStatus = errors.New("status must be Hadir, Sakit or Izin")
	// ErrStudentNotFound is returned when the student id is not enrolled.
	ErrStudentNotFound = errors.New("student not found")
)

// Store is what the check-in flow needs from persistence.
type Store interface {
	GetStudent(ctx context.Context, id string) (*pkl.Student, error)
	GetForStudent(ctx context.Context, studentID string, day pkl.Day) (*pkl.AttendanceRecord, error)
	Insert(ctx context.Context, rec pkl.AttendanceRecord) (pkl.AttendanceRecord, error)
	ListByDate(ctx context.Context, day pkl.Day) ([]pkl.AttendanceRecord, error)
}

// Backend is the full persistence surface, implemented by Repository and Memory.
type Backend interface {
	Store
	ListStudents(ctx context.Context) ([]pkl.Student, error)
	UpsertStudent(ctx context.Context, s pkl.Student) error
	AttendanceStudentIDs(ctx context.Context, day pkl.Day) ([]string, error)
	InsertMany(ctx context.Context, records []pkl.AttendanceRecord) (int, error)
}

var (
	_ Backend = (*Repository)(nil)
	_ Backend = (*Memory)(nil)
)

// Geocoder turns coordinates into a street address.
type Geocoder interface {
	Reverse(ctx context.Context, lat, lng float64) (string, error)
}

// CheckInRequest is a student's own attendance submission for today.
type CheckInRequest struct {
	StudentID string
	Status    pkl.Status
	Note      string
	Lat       *float64
	Lng       *float64
	Location  string
}

// Service handles student check-ins and daily listings.
type Service struct {
	store  Store
	geo    Geocoder
	clock  clock.Clock
	loc    *time.Location
	logger *zap.Logger
}

// NewService creates a service. geo may be nil.
func NewService(store Store, geo Geocoder, clk clock.Clock, loc *time.Location, logger *zap.Logger) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{store: store, geo: geo, clock: clk, loc: loc, logger: logger}
}

// Today returns the current local calendar date.
func (s *Service) Today() pkl.Day {
	return pkl.DayOf(s.clock.Now().In(s.loc))
}

// CheckIn records today's attendance for a student.
func (s *Service) CheckIn(ctx context.Context, req CheckInRequest) (pkl.AttendanceRecord, error) {
	if !req.Status.Valid() || req.Status == pkl.StatusAlpha {
		return pkl.AttendanceRecord{}, ErrInvalidStatus
	}

	now := s.clock.Now().In(s.loc)
	day := pkl.DayOf(now)

	existing, err := s.store.GetForStudent(ctx, req.StudentID, day)
	if err != nil {
		return pkl.AttendanceRecord{}, err
	}
	if existing != nil {
		return pkl.AttendanceRecord{}, ErrAlreadyCheckedIn
	}

	student, err := s.store.GetStudent(ctx, req.StudentID)
	if err != nil {
		return pkl.AttendanceRecord{}, err
	}
	if student == nil {
		return pkl.AttendanceRecord{}, ErrStudentNotFound
	}

	rec := pkl.NewRecord(*student, day, req.Status)
	rec.Note = req.Note
	rec.Time = now.Format("15:04:05")
	rec.Location = s.resolveLocation(ctx, req)

	saved, err := s.store.Insert(ctx, rec)
	if err != nil {
		return pkl.AttendanceRecord{}, err
	}

	metrics.CheckIns.WithLabelValues(string(saved.Status)).Inc()
	s.logger.Info("Student checked in",
		zap.String("student_id", saved.StudentID),
		zap.String("status", string(saved.Status)),
		zap.String("date", saved.Date.String()))
	return saved, nil
}

// ListByDate returns every record written for day.
func (s *Service) ListByDate(ctx context.Context, day pkl.Day) ([]pkl.AttendanceRecord, error) {
	return s.store.ListByDate(ctx, day)
}

func (s *Service) resolveLocation(ctx context.Context, req CheckInRequest) *string {
	if req.Lat == nil || req.Lng == nil {
		if req.Location == "" {
			return nil
		}
		loc := req.Location
		return &loc
	}

	coords := fmt.Sprintf("%.6f,%.6f", *req.Lat, *req.Lng)
	if s.geo == nil {
		return &coords
	}
	addr, err := s.geo.Reverse(ctx, *req.Lat, *req.Lng)
	if err != nil {
		s.logger.Warn("Reverse geocoding failed, keeping coordinates",
			zap.String("student_id", req.StudentID), zap.Error(err))
		return &coords
	}
	if addr == "" {
		return &coords
	}
	loc := addr + " (" + coords + ")"
	return &loc
}
