package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/volunteer-scheduling/internal/ids"
	"github.com/Shivanand-hulikatti/volunteer-scheduling/internal/model"
	"github.com/Shivanand-hulikatti/volunteer-scheduling/internal/repository"
)

// Allocator decides whether a volunteer may occupy or vacate a slot.
//
// Each Claim and Release runs inside the store's per-user unit of work, so a
// user's quota and same-day checks cannot be raced by that user's other
// requests. The conditional write in ClaimSlot settles races between
// different users on the same slot.
type Allocator struct {
	store repository.Allocations
	log   *slog.Logger
	rec   Recorder
	now   func() time.Time
}

// NewAllocator constructs an Allocator. logger and rec may be nil.
func NewAllocator(store repository.Allocations, logger *slog.Logger, rec Recorder) *Allocator {
	if logger == nil {
		logger = slog.Default()
	}
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Allocator{store: store, log: logger, rec: rec, now: utcNow}
}

// Claim assigns the slot (eventID, order) to userID. Checks run in a fixed
// order and the first failure is returned.
func (a *Allocator) Claim(ctx context.Context, eventID int64, order int, userID int64) (*model.Slot, error) {
	var claimed *model.Slot
	err := a.store.WithUserLock(ctx, userID, func(tx repository.AllocationStore) error {
		slot, ev, err := tx.SlotByOrder(ctx, eventID, order)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrSlotNotFound
			}
			return fmt.Errorf("load slot: %w", err)
		}
		if !slot.Vacant() {
			return ErrSlotOccupied
		}

		user, err := tx.User(ctx, userID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("load user: %w", err)
		}

		held, err := tx.CountUserSlotsInMonth(ctx, userID, ev.Month)
		if err != nil {
			return err
		}
		if held >= user.MonthlyQuota {
			return QuotaExceeded(user.MonthlyQuota)
		}

		busy, err := tx.UserHasSlotOnDay(ctx, userID, ev.Month, ev.Day)
		if err != nil {
			return err
		}
		if busy {
			return ErrSameDayConflict
		}

		if !CanClaim(*user, *slot) {
			return ErrNotEligibleForFunction
		}

		ok, err := tx.ClaimSlot(ctx, slot.ID, userID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrSlotOccupied
		}

		slot.OccupantUserID = &userID
		slot.OccupantUsername = user.Username
		claimed = slot
		return nil
	})
	a.report(ctx, "claim", eventID, order, userID, err)
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// Release vacates the slot held by userID and records the justification.
// Slots that do not exist and slots held by someone else are reported the
// same way.
func (a *Allocator) Release(ctx context.Context, eventID int64, order int, userID int64, justification string) (*model.Slot, error) {
	reason := strings.TrimSpace(justification)
	if reason == "" {
		a.report(ctx, "release", eventID, order, userID, ErrJustificationRequired)
		return nil, ErrJustificationRequired
	}

	var released *model.Slot
	err := a.store.WithUserLock(ctx, userID, func(tx repository.AllocationStore) error {
		slot, err := tx.OwnedSlot(ctx, eventID, order, userID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrSlotNotOwnedByUser
			}
			return fmt.Errorf("load slot: %w", err)
		}

		now := a.now()
		entry := &model.Justification{
			ID:        ids.New(now),
			UserID:    userID,
			EventID:   eventID,
			SlotOrder: order,
			Reason:    reason,
			Timestamp: now,
		}
		if err := tx.AppendJustification(ctx, entry); err != nil {
			return err
		}

		ok, err := tx.ClearSlot(ctx, slot.ID, userID)
		if err != nil {
			return err
		}
		if !ok {
			// Someone released it first; the append above is rolled back.
			return ErrSlotNotOwnedByUser
		}

		slot.OccupantUserID = nil
		slot.OccupantUsername = ""
		released = slot
		return nil
	})
	a.report(ctx, "release", eventID, order, userID, err)
	if err != nil {
		return nil, err
	}
	return released, nil
}

func (a *Allocator) report(ctx context.Context, op string, eventID int64, order int, userID int64, err error) {
	result := outcome(err)
	a.rec.Allocation(op, result)

	level := slog.LevelInfo
	switch {
	case err == nil:
	case KindOf(err) != "":
		level = slog.LevelDebug
	default:
		level = slog.LevelError
	}
	attrs := []any{"op", op, "event_id", eventID, "slot_order", order, "user_id", userID, "outcome", result}
	if err != nil && KindOf(err) == "" {
		attrs = append(attrs, "err", err)
	}
	a.log.Log(ctx, level, "slot allocation", attrs...)
}
