// Package jobs runs periodic background work on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// SlotCounter reports filled and vacant slots for a month.
type SlotCounter interface {
	CountSlotsInMonth(ctx context.Context, month string) (filled, vacant int, err error)
}

// VacancyGauge receives the vacancy figure.
type VacancyGauge interface {
	SetVacantSlots(month string, n int)
}

// VacancyReport counts vacant slots in the current month.
type VacancyReport struct {
	slots   SlotCounter
	gauge   VacancyGauge
	log     *slog.Logger
	now     func() time.Time
	timeout time.Duration
}

// NewVacancyReport constructs the job. gauge may be nil.
func NewVacancyReport(slots SlotCounter, gauge VacancyGauge, logger *slog.Logger, loc *time.Location) *VacancyReport {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &VacancyReport{
		slots:   slots,
		gauge:   gauge,
		log:     logger,
		now:     func() time.Time { return time.Now().In(loc) },
		timeout: 30 * time.Second,
	}
}

// Run performs one sweep and returns the vacancy count.
func (j *VacancyReport) Run(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	month := fmt.Sprintf("%02d", int(j.now().Month()))
	filled, vacant, err := j.slots.CountSlotsInMonth(ctx, month)
	if err != nil {
		j.log.Error("vacancy report failed", "month", month, "err", err)
		return 0, err
	}
	if j.gauge != nil {
		j.gauge.SetVacantSlots(month, vacant)
	}
	j.log.Info("vacancy report", "month", month, "filled", filled, "vacant", vacant)
	return vacant, nil
}

// Scheduler wraps a cron runner bound to a parent context.
type Scheduler struct {
	cron *cron.Cron
	ctx  context.Context
}

// NewScheduler creates a scheduler whose jobs receive ctx.
func NewScheduler(ctx context.Context, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{cron: cron.New(cron.WithLocation(loc)), ctx: ctx}
}

// Add registers the vacancy report on a standard five-field cron spec.
func (s *Scheduler) Add(spec string, job *VacancyReport) error {
	if _, err := s.cron.AddFunc(spec, func() { _, _ = job.Run(s.ctx) }); err != nil {
		return fmt.Errorf("schedule %q: %w", spec, err)
	}
	return nil
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
