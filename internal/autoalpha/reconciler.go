// Package autoalpha marks every student without an attendance record as
// Alpha once the daily cutoff hour has passed.
package autoalpha

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

// ErrRunInProgress is returned when another run holds the lock for today.
var ErrRunInProgress = errors.New("auto alpha run already in progress")

// StudentDirectory lists enrolled students.
type StudentDirectory interface {
	ListStudents(ctx context.Context) ([]pkl.Student, error)
}

// Store reads and appends attendance records.
type Store interface {
	AttendanceStudentIDs(ctx context.Context, day pkl.Day) ([]string, error)
	InsertMany(ctx context.Context, records []pkl.AttendanceRecord) (int, error)
}

// Locker guards a run against an overlapping one. ok is false when the lock
// is held elsewhere.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(), ok bool, err error)
}

// WriteError reports a failed batch insert. Retrying is safe: the store skips
// rows that already exist for the student and day.
type WriteError struct {
	Attempted int
	Err       error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("insert %d alpha records: %v", e.Attempted, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Result summarizes one run.
type Result struct {
	Message         string
	TooEarly        bool
	Date            pkl.Day
	Time            time.Time
	CurrentHour     int
	TotalStudents   int
	AlreadyAttended int
	Processed       int
}

// Options configures a Reconciler.
type Options struct {
	CutoffHour int
	Location   *time.Location
	LockTTL    time.Duration
}

// Reconciler runs the daily auto alpha pass.
type Reconciler struct {
	students StudentDirectory
	store    Store
	locker   Locker
	clock    clock.Clock
	opts     Options
	logger   *zap.Logger
}

// New creates a reconciler. locker may be nil.
func New(students StudentDirectory, store Store, locker Locker, clk clock.Clock, opts Options, logger *zap.Logger) *Reconciler {
	if clk == nil {
		clk = clock.System{}
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 2 * time.Minute
	}
	return &Reconciler{
		students: students,
		store:    store,
		locker:   locker,
		clock:    clk,
		opts:     opts,
		logger:   logger,
	}
}

// Note is the keterangan written on every record this reconciler creates.
func (r *Reconciler) Note() string {
	return fmt.Sprintf("Tidak absen sampai pukul %02d:00 (Auto Alpha)", r.opts.CutoffHour)
}

// Run marks today's missing students as Alpha. Before the cutoff hour it
// returns a TooEarly result without touching any store.
func (r *Reconciler) Run(ctx context.Context) (Result, error) {
	now := r.clock.Now().In(r.opts.Location)
	today := pkl.DayOf(now)
	res := Result{Date: today, Time: now, CurrentHour: now.Hour()}

	if now.Hour() < r.opts.CutoffHour {
		res.TooEarly = true
		res.Message = fmt.Sprintf("Too early: auto alpha runs from %02d:00 local time", r.opts.CutoffHour)
		metrics.AutoAlphaRuns.WithLabelValues(metrics.OutcomeTooEarly).Inc()
		r.logger.Info("Auto alpha skipped, before cutoff",
			zap.Int("hour", now.Hour()), zap.Int("cutoff_hour", r.opts.CutoffHour))
		return res, nil
	}

	unlock, err := r.lock(ctx, today)
	if err != nil {
		metrics.AutoAlphaRuns.WithLabelValues(metrics.OutcomeBusy).Inc()
		return res, err
	}
	defer unlock()

	res, err = r.reconcile(ctx, res)
	if err != nil {
		metrics.AutoAlphaRuns.WithLabelValues(metrics.OutcomeFailed).Inc()
		return res, err
	}
	metrics.AutoAlphaRuns.WithLabelValues(metrics.OutcomeCompleted).Inc()
	metrics.AutoAlphaMarked.Add(float64(res.Processed))
	return res, nil
}

func (r *Reconciler) reconcile(ctx context.Context, res Result) (Result, error) {
	students, err := r.students.ListStudents(ctx)
	if err != nil {
		r.logger.Error("Failed to load students", zap.Error(err))
		return res, fmt.Errorf("fetch students: %w", err)
	}

	ids, err := r.store.AttendanceStudentIDs(ctx, res.Date)
	if err != nil {
		r.logger.Error("Failed to load attendance", zap.String("date", res.Date.String()), zap.Error(err))
		return res, fmt.Errorf("fetch attendance for %s: %w", res.Date, err)
	}

	attended := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		attended[id] = struct{}{}
	}

	note := r.Note()
	clockTime := res.Time.Format("15:04:05")
	var missing []pkl.AttendanceRecord
	already := 0
	for _, s := range students {
		if _, ok := attended[s.ID]; ok {
			already++
			continue
		}
		rec := pkl.NewRecord(s, res.Date, pkl.StatusAlpha)
		rec.Note = note
		rec.Time = clockTime
		missing = append(missing, rec)
	}

	res.TotalStudents = len(students)
	res.AlreadyAttended = already

	if len(missing) > 0 {
		inserted, err := r.store.InsertMany(ctx, missing)
		if err != nil {
			r.logger.Error("Failed to insert alpha records",
				zap.String("date", res.Date.String()), zap.Int("attempted", len(missing)), zap.Error(err))
			return res, &WriteError{Attempted: len(missing), Err: err}
		}
		if inserted < len(missing) {
			r.logger.Warn("Some students got a record while the run was in flight",
				zap.Int("attempted", len(missing)), zap.Int("inserted", inserted))
		}
		res.Processed = inserted
	}

	if res.Processed == 0 {
		res.Message = "All students already have attendance for today"
	} else {
		res.Message = fmt.Sprintf("Marked %d students as Alpha", res.Processed)
	}

	r.logger.Info("Auto alpha completed",
		zap.String("date", res.Date.String()),
		zap.Int("total_students", res.TotalStudents),
		zap.Int("already_attended", res.AlreadyAttended),
		zap.Int("processed", res.Processed))
	return res, nil
}

func (r *Reconciler) lock(ctx context.Context, day pkl.Day) (func(), error) {
	if r.locker == nil {
		return func() {}, nil
	}
	unlock, ok, err := r.locker.TryLock(ctx, "sipkl:auto-alpha:"+day.String(), r.opts.LockTTL)
	if err != nil {
		// The (student_id, date) constraint still prevents duplicates without the lock.
		r.logger.Warn("Auto alpha lock unavailable, continuing without it", zap.Error(err))
		return func() {}, nil
	}
	if !ok {
		r.logger.Info("Auto alpha already running", zap.String("date", day.String()))
		return nil, ErrRunInProgress
	}
	return unlock, nil
}
