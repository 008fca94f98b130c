// Package repository implements persistence for events, slots, volunteers and
// justifications. Postgres is the durable implementation; Memory serves tests
// and single-process demos with the same contract.
package repository

import (
	"context"
	"errors"

	"github.com/Shivanand-hulikatti/volunteer-scheduling/internal/model"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write violates a uniqueness constraint,
// such as a duplicate slot order within an event or a duplicate username.
var ErrConflict = errors.New("conflict")

// AllocationStore is the storage port used by the slot allocator.
type AllocationStore interface {
	// SlotByOrder returns the slot (eventID, order) together with its owning
	// event. The event's Slots field is not populated.
	SlotByOrder(ctx context.Context, eventID int64, order int) (*model.Slot, *model.Event, error)
	User(ctx context.Context, id int64) (*model.User, error)
	CountUserSlotsInMonth(ctx context.Context, userID int64, month string) (int, error)
	UserHasSlotOnDay(ctx context.Context, userID int64, month, day string) (bool, error)
	// ClaimSlot sets the occupant only if the slot is still vacant and
	// reports whether a row was changed.
	ClaimSlot(ctx context.Context, slotID, userID int64) (bool, error)
	OwnedSlot(ctx context.Context, eventID int64, order int, userID int64) (*model.Slot, error)
	AppendJustification(ctx context.Context, j *model.Justification) error
	// ClearSlot vacates the slot only if userID still occupies it.
	ClearSlot(ctx context.Context, slotID, userID int64) (bool, error)
}

// Allocations adds per-user serialisation on top of AllocationStore.
type Allocations interface {
	AllocationStore
	// WithUserLock runs fn inside a single unit of work that is serialised
	// against every other WithUserLock call for the same user. Writes made
	// through the store passed to fn are discarded when fn returns an error.
	WithUserLock(ctx context.Context, userID int64, fn func(AllocationStore) error) error
}

// EventStore persists events and their slot templates.
type EventStore interface {
	CreateEvent(ctx context.Context, ev *model.Event) error
	GetEvent(ctx context.Context, id int64) (*model.Event, error)
	ListEvents(ctx context.Context, month string) ([]model.Event, error)
	// UpdateEvent writes the scalar fields of ev. When slots is non-nil the
	// event's slots are reconciled against it: drafts whose ID names an
	// existing slot of the event are updated in place, the rest are inserted
	// vacant, and existing slots missing from the drafts are deleted.
	UpdateEvent(ctx context.Context, ev *model.Event, slots *[]model.SlotDraft) (*model.Event, error)
	DeleteEvent(ctx context.Context, id int64) error
	CountSlotsInMonth(ctx context.Context, month string) (filled, vacant int, err error)
}

// UserStore persists the volunteer directory.
type UserStore interface {
	CreateUser(ctx context.Context, u *model.User) error
	User(ctx context.Context, id int64) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	UpdateUser(ctx context.Context, u *model.User) error
	CountUsers(ctx context.Context) (active, inactive int, err error)
}

// LedgerStore reads the append-only justification history.
type LedgerStore interface {
	AppendJustification(ctx context.Context, j *model.Justification) error
	// ListJustifications returns entries newest first. limit <= 0 means all.
	ListJustifications(ctx context.Context, limit int) ([]model.Justification, error)
	ListJustificationsByEvent(ctx context.Context, eventID int64) ([]model.Justification, error)
}

// Store is everything the service layer needs.
type Store interface {
	Allocations
	EventStore
	UserStore
	LedgerStore
}
