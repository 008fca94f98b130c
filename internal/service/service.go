// Package service implements the scheduling rules, validation, and
// orchestration between HTTP handlers and the repository layer.
package service

import (
	"errors"
	"log/slog"
	"time"

	"github.com/Shivanand-hulikatti/volunteer-scheduling/internal/repository"
)

// Recorder receives allocation outcomes for metrics.
type Recorder interface {
	Allocation(op, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) Allocation(string, string) {}

// Services bundles every service built over one store.
type Services struct {
	Allocator  *Allocator
	Events     *EventService
	Users      *UserService
	Ledger     *LedgerService
	Dashboards *DashboardService
}

// New wires all services against store. rec may be nil.
func New(store repository.Store, logger *slog.Logger, rec Recorder) *Services {
	return &Services{
		Allocator:  NewAllocator(store, logger, rec),
		Events:     NewEventService(store),
		Users:      NewUserService(store),
		Ledger:     NewLedgerService(store),
		Dashboards: NewDashboardService(store, store, store),
	}
}

func utcNow() time.Time { return time.Now().UTC() }

// outcome names an operation result for logs and metrics.
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var e *Error
	if errors.As(err, &e) {
		return string(e.Kind)
	}
	return "error"
}
