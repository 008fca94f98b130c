package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Shivanand-hulikatti/volunteer-scheduling/internal/model"
	"github.com/Shivanand-hulikatti/volunteer-scheduling/internal/repository"
)

// EventService manages events and their slot templates. It validates
// structure only; occupancy belongs to the Allocator.
type EventService struct {
	events repository.EventStore
}

// NewEventService constructs an EventService.
func NewEventService(events repository.EventStore) *EventService {
	return &EventService{events: events}
}

// CreateEvent validates the request and stores the event with vacant slots.
func (s *EventService) CreateEvent(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	ev := &model.Event{
		Month:       strings.TrimSpace(req.Month),
		Day:         strings.TrimSpace(req.Day),
		Time:        strings.TrimSpace(req.Time),
		Description: strings.TrimSpace(req.Description),
		Location:    strings.TrimSpace(req.Location),
	}
	if err := validateSchedule(ev.Month, ev.Day, ev.Time); err != nil {
		return nil, err
	}
	if err := validateDrafts(req.Slots); err != nil {
		return nil, err
	}

	ev.Slots = make([]model.Slot, 0, len(req.Slots))
	for _, d := range req.Slots {
		ev.Slots = append(ev.Slots, model.Slot{Order: d.Order, Function: strings.TrimSpace(d.Function)})
	}

	if err := s.events.CreateEvent(ctx, ev); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrInvalidSlotOrder
		}
		return nil, fmt.Errorf("create event: %w", err)
	}
	return ev, nil
}

// GetEvent returns a single event with its slots.
func (s *EventService) GetEvent(ctx context.Context, id int64) (*model.Event, error) {
	ev, err := s.events.GetEvent(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return ev, nil
}

// ListEvents returns all events, or only those in month when it is set.
func (s *EventService) ListEvents(ctx context.Context, month string) ([]model.Event, error) {
	month = strings.TrimSpace(month)
	if month != "" {
		if _, ok := twoDigit(month, 1, 12); !ok {
			return nil, invalid(KindInvalidEventData, "month must be a two-digit value between 01 and 12")
		}
	}
	events, err := s.events.ListEvents(ctx, month)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// UpdateEvent applies a partial update. When the patch carries a slot list
// the existing slots are reconciled against it; occupants of kept slots are
// preserved.
func (s *EventService) UpdateEvent(ctx context.Context, id int64, patch model.UpdateEventRequest) (*model.Event, error) {
	current, err := s.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}

	next := *current
	next.Slots = nil
	setTrimmed(&next.Month, patch.Month)
	setTrimmed(&next.Day, patch.Day)
	setTrimmed(&next.Time, patch.Time)
	setTrimmed(&next.Description, patch.Description)
	setTrimmed(&next.Location, patch.Location)
	if err := validateSchedule(next.Month, next.Day, next.Time); err != nil {
		return nil, err
	}

	var drafts *[]model.SlotDraft
	if patch.Slots != nil {
		if err := validateDrafts(*patch.Slots); err != nil {
			return nil, err
		}
		cleaned := make([]model.SlotDraft, 0, len(*patch.Slots))
		for _, d := range *patch.Slots {
			d.Function = strings.TrimSpace(d.Function)
			cleaned = append(cleaned, d)
		}
		drafts = &cleaned
	}

	updated, err := s.events.UpdateEvent(ctx, &next, drafts)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrEventNotFound
		case errors.Is(err, repository.ErrConflict):
			return nil, ErrInvalidSlotOrder
		}
		return nil, fmt.Errorf("update event: %w", err)
	}
	return updated, nil
}

// DeleteEvent removes the event and its slots. Justifications are kept.
func (s *EventService) DeleteEvent(ctx context.Context, id int64) error {
	if err := s.events.DeleteEvent(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrEventNotFound
		}
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

// ─── Validation ───────────────────────────────────────────────────────────────

func validateSchedule(month, day, clock string) error {
	if _, ok := twoDigit(month, 1, 12); !ok {
		return invalid(KindInvalidEventData, "month must be a two-digit value between 01 and 12")
	}
	if _, ok := twoDigit(day, 1, 31); !ok {
		return invalid(KindInvalidEventData, "day must be a two-digit value between 01 and 31")
	}
	if !validClock(clock) {
		return invalid(KindInvalidEventData, "time must use the HH:MM format")
	}
	return nil
}

func validateDrafts(drafts []model.SlotDraft) error {
	seen := make(map[int]bool, len(drafts))
	ids := make(map[int64]bool, len(drafts))
	for _, d := range drafts {
		if d.Order < model.MinSlotOrder || d.Order > model.MaxSlotOrder {
			return invalid(KindInvalidSlotOrder, "slot order %d is outside %d-%d", d.Order, model.MinSlotOrder, model.MaxSlotOrder)
		}
		if seen[d.Order] {
			return invalid(KindInvalidSlotOrder, "slot order %d is used more than once", d.Order)
		}
		seen[d.Order] = true
		if d.ID > 0 {
			if ids[d.ID] {
				return invalid(KindInvalidEventData, "slot id %d is listed more than once", d.ID)
			}
			ids[d.ID] = true
		}
	}
	return nil
}

// twoDigit parses a fixed-width two-digit string within [lo, hi].
func twoDigit(v string, lo, hi int) (int, bool) {
	if len(v) != 2 || v[0] < '0' || v[0] > '9' || v[1] < '0' || v[1] > '9' {
		return 0, false
	}
	n, _ := strconv.Atoi(v)
	return n, n >= lo && n <= hi
}

func validClock(v string) bool {
	hh, mm, ok := strings.Cut(v, ":")
	if !ok {
		return false
	}
	if _, ok := twoDigit(hh, 0, 23); !ok {
		return false
	}
	_, ok = twoDigit(mm, 0, 59)
	return ok
}

func setTrimmed(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}
