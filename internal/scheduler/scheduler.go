package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"sipkl/internal/clock"
	"sipkl/internal/config"
	"sipkl/internal/queue"
)

// Daily enqueues an auto alpha job once a day at a fixed local wall-clock time.
type Daily struct {
	hour   int
	minute int
	loc    *time.Location
	clock  clock.Clock
	queue  queue.Queue
	logger *zap.Logger

	after func(time.Duration) <-chan time.Time
}

// NewDaily parses at (HH:MM) and returns a scheduler publishing to q.
func NewDaily(at string, loc *time.Location, clk clock.Clock, q queue.Queue, logger *zap.Logger) (*Daily, error) {
	hour, minute, err := config.ParseClock(at)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.UTC
	}
	if clk == nil {
		clk = clock.System{}
	}
	return &Daily{
		hour:   hour,
		minute: minute,
		loc:    loc,
		clock:  clk,
		queue:  q,
		logger: logger,
		after:  time.After,
	}, nil
}

// NextRun returns the first fire time strictly after now.
func (d *Daily) NextRun(now time.Time) time.Time {
	local := now.In(d.loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), d.hour, d.minute, 0, 0, d.loc)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Run blocks, publishing one job per day, until ctx is cancelled.
func (d *Daily) Run(ctx context.Context) error {
	d.logger.Info("Starting daily auto alpha scheduler",
		zap.String("at", fmt.Sprintf("%02d:%02d", d.hour, d.minute)),
		zap.String("zone", d.loc.String()))

	for ctx.Err() == nil {
		now := d.clock.Now()
		next := d.NextRun(now)
		d.logger.Debug("Next auto alpha run scheduled", zap.Time("at", next))

		select {
		case <-ctx.Done():
		case <-d.after(next.Sub(now)):
			d.enqueue(ctx, next)
		}
	}
	d.logger.Info("Daily auto alpha scheduler stopped")
	return ctx.Err()
}

func (d *Daily) enqueue(ctx context.Context, scheduledFor time.Time) {
	body, _ := json.Marshal(map[string]any{
		"source":        "scheduler",
		"scheduled_for": scheduledFor,
	})
	if err := d.queue.Publish(ctx, queue.Message{Type: queue.TypeAutoAlpha, Body: body}); err != nil {
		d.logger.Error("Failed to enqueue auto alpha job", zap.Error(err))
		return
	}
	d.logger.Info("Auto alpha job enqueued", zap.Time("scheduled_for", scheduledFor))
}
