package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/workforce-engine/internal/pkg/clock"
)

// StaleFinalizer closes attendance records left open on earlier days.
type StaleFinalizer interface {
	FinalizeStaleAttendance(ctx context.Context, before time.Time) (int, error)
}

// minFinalizeAfter keeps yesterday's record open for a check-out after midnight.
const minFinalizeAfter = 24 * time.Hour

type AttendanceJobs struct {
	finalizer     StaleFinalizer
	clock         clock.Clock
	location      *time.Location
	interval      time.Duration
	finalizeAfter time.Duration
}

func NewAttendanceJobs(finalizer StaleFinalizer, clk clock.Clock, location *time.Location, interval, finalizeAfter time.Duration) *AttendanceJobs {
	if location == nil {
		location = time.UTC
	}
	if interval <= 0 {
		interval = time.Hour
	}
	if finalizeAfter < minFinalizeAfter {
		finalizeAfter = minFinalizeAfter
	}
	return &AttendanceJobs{
		finalizer:     finalizer,
		clock:         clk,
		location:      location,
		interval:      interval,
		finalizeAfter: finalizeAfter,
	}
}

func (j *AttendanceJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob("finalize_stale_attendance", j.interval, j.FinalizeStaleAttendance)
}

// FinalizeStaleAttendance finalizes open records dated before the day that
// was current finalizeAfter ago in the configured location. With the default
// grace a shift started yesterday stays open until midnight tonight. Running
// it more than once a day is harmless.
func (j *AttendanceJobs) FinalizeStaleAttendance(ctx context.Context) error {
	cutoff := j.clock.Now().Add(-j.finalizeAfter).In(j.location)

	closed, err := j.finalizer.FinalizeStaleAttendance(ctx, cutoff)
	if err != nil {
		return err
	}

	if closed > 0 {
		slog.Info("Cron: Finalized stale attendance records",
			"count", closed,
			"dated_before", cutoff.Format(time.DateOnly))
	}
	return nil
}
