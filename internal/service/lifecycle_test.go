package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Shivanand-hulikatti/volunteer-scheduling/internal/model"
)

func strPtr(s string) *string { return &s }

func TestCreateEventValidation(t *testing.T) {
	cases := []struct {
		name string
		req  model.CreateEventRequest
		want error
	}{
		{"month zero", model.CreateEventRequest{Month: "00", Day: "01", Time: "10:00"}, ErrInvalidEventData},
		{"month thirteen", model.CreateEventRequest{Month: "13", Day: "01", Time: "10:00"}, ErrInvalidEventData},
		{"single digit month", model.CreateEventRequest{Month: "5", Day: "01", Time: "10:00"}, ErrInvalidEventData},
		{"day 32", model.CreateEventRequest{Month: "05", Day: "32", Time: "10:00"}, ErrInvalidEventData},
		{"non numeric day", model.CreateEventRequest{Month: "05", Day: "aa", Time: "10:00"}, ErrInvalidEventData},
		{"bad time", model.CreateEventRequest{Month: "05", Day: "01", Time: "25:00"}, ErrInvalidEventData},
		{"order zero", model.CreateEventRequest{Month: "05", Day: "01", Time: "10:00",
			Slots: []model.SlotDraft{{Order: 0}}}, ErrInvalidSlotOrder},
		{"order eleven", model.CreateEventRequest{Month: "05", Day: "01", Time: "10:00",
			Slots: []model.SlotDraft{{Order: 11}}}, ErrInvalidSlotOrder},
		{"duplicate order", model.CreateEventRequest{Month: "05", Day: "01", Time: "10:00",
			Slots: []model.SlotDraft{{Order: 2}, {Order: 2}}}, ErrInvalidSlotOrder},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.Events.CreateEvent(context.Background(), tc.req)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			events, _ := f.svc.Events.ListEvents(context.Background(), "")
			if len(events) != 0 {
				t.Fatalf("rejected event was stored")
			}
		})
	}
}

func TestCreateEventStoresVacantSlots(t *testing.T) {
	f := newFixture(t)
	ev, err := f.svc.Events.CreateEvent(context.Background(), model.CreateEventRequest{
		Month: "05", Day: "01", Time: "10:00", Description: " Missa ",
		Slots: []model.SlotDraft{{Order: 10, Function: "Camera"}, {Order: 1, Function: "Foto"}},
	})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if ev.Description != "Missa" {
		t.Fatalf("expected trimmed description, got %q", ev.Description)
	}

	got, err := f.svc.Events.GetEvent(context.Background(), ev.ID)
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	if len(got.Slots) != 2 || got.Slots[0].Order != 1 || got.Slots[1].Order != 10 {
		t.Fatalf("expected slots ordered by order, got %+v", got.Slots)
	}
	for _, s := range got.Slots {
		if !s.Vacant() {
			t.Fatalf("new slot %d is occupied", s.Order)
		}
	}
}

func TestUpdateEventScalarOnlyKeepsSlots(t *testing.T) {
	f := newFixture(t)
	ev := f.event("05", "10", "Camera", "Foto")
	u := f.user("ana", 2, false)
	if err := f.claim(ev, 1, u); err != nil {
		t.Fatalf("Claim: %v", err)
	}

	got, err := f.svc.Events.UpdateEvent(context.Background(), ev.ID, model.UpdateEventRequest{
		Location: strPtr("Capela"),
	})
	if err != nil {
		t.Fatalf("UpdateEvent: %v", err)
	}
	if got.Location != "Capela" || got.Month != "05" || len(got.Slots) != 2 {
		t.Fatalf("unexpected event: %+v", got)
	}
	if got.Slots[0].OccupantUserID == nil {
		t.Fatalf("occupant lost on scalar update")
	}
}

func TestUpdateEventReconcilesSlots(t *testing.T) {
	f := newFixture(t)
	ev := f.event("05", "10", "Camera", "Foto", "Som")
	u := f.user("ana", 2, false)
	if err := f.claim(ev, 2, u); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	kept := ev.Slots[1]

	// The occupied slot moves to order 1; an unknown id is created fresh.
	slots := []model.SlotDraft{
		{ID: kept.ID, Order: 1, Function: "Foto"},
		{ID: 9999, Order: 2, Function: "Projecao"},
		{Order: 3, Function: "Acompanhante"},
	}
	got, err := f.svc.Events.UpdateEvent(context.Background(), ev.ID, model.UpdateEventRequest{Slots: &slots})
	if err != nil {
		t.Fatalf("UpdateEvent: %v", err)
	}
	if len(got.Slots) != 3 {
		t.Fatalf("expected 3 slots, got %+v", got.Slots)
	}
	if got.Slots[0].ID != kept.ID || got.Slots[0].OccupantUserID == nil || *got.Slots[0].OccupantUserID != u.ID {
		t.Fatalf("kept slot should retain occupant: %+v", got.Slots[0])
	}
	for _, s := range got.Slots[1:] {
		if !s.Vacant() {
			t.Fatalf("new slot %d should be vacant", s.Order)
		}
		if s.ID == ev.Slots[0].ID || s.ID == ev.Slots[2].ID {
			t.Fatalf("slot %d should have been deleted", s.ID)
		}
	}
}

func TestUpdateEventErrors(t *testing.T) {
	f := newFixture(t)
	ev := f.event("05", "10", "Camera")

	if _, err := f.svc.Events.UpdateEvent(context.Background(), ev.ID+1, model.UpdateEventRequest{}); !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}
	if _, err := f.svc.Events.UpdateEvent(context.Background(), ev.ID, model.UpdateEventRequest{Day: strPtr("40")}); !errors.Is(err, ErrInvalidEventData) {
		t.Fatalf("expected ErrInvalidEventData, got %v", err)
	}
	bad := []model.SlotDraft{{Order: 11}}
	if _, err := f.svc.Events.UpdateEvent(context.Background(), ev.ID, model.UpdateEventRequest{Slots: &bad}); !errors.Is(err, ErrInvalidSlotOrder) {
		t.Fatalf("expected ErrInvalidSlotOrder, got %v", err)
	}
}

func TestDeleteEventRetainsJustifications(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.event("05", "10", "Camera")
	u := f.user("ana", 2, false)
	if err := f.claim(ev, 1, u); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if _, err := f.svc.Allocator.Release(ctx, ev.ID, 1, u.ID, "sick"); err != nil {
		t.Fatalf("Release: %v", err)
	}

	if err := f.svc.Events.DeleteEvent(ctx, ev.ID); err != nil {
		t.Fatalf("DeleteEvent: %v", err)
	}
	if err := f.svc.Events.DeleteEvent(ctx, ev.ID); !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}
	if _, err := f.svc.Events.GetEvent(ctx, ev.ID); !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}
	entries, err := f.svc.Ledger.ListByEvent(ctx, ev.ID)
	if err != nil {
		t.Fatalf("ListByEvent: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected retained justification, got %d", len(entries))
	}
}

func TestListEventsByMonth(t *testing.T) {
	f := newFixture(t)
	f.event("05", "12", "Camera")
	f.event("05", "02", "Camera")
	f.event("06", "01", "Camera")

	may, err := f.svc.Events.ListEvents(context.Background(), "05")
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(may) != 2 || may[0].Day != "02" {
		t.Fatalf("expected May events ordered by day, got %+v", may)
	}
	if _, err := f.svc.Events.ListEvents(context.Background(), "5"); !errors.Is(err, ErrInvalidEventData) {
		t.Fatalf("expected ErrInvalidEventData, got %v", err)
	}
}

func TestUpdateEventRejectsRepeatedSlotID(t *testing.T) {
	f := newFixture(t)
	ev := f.event("05", "10", "Camera")
	id := ev.Slots[0].ID

	slots := []model.SlotDraft{
		{ID: id, Order: 1, Function: "A"},
		{ID: id, Order: 2, Function: "B"},
	}
	if _, err := f.svc.Events.UpdateEvent(context.Background(), ev.ID, model.UpdateEventRequest{Slots: &slots}); !errors.Is(err, ErrInvalidEventData) {
		t.Fatalf("expected ErrInvalidEventData, got %v", err)
	}

	got, err := f.svc.Events.GetEvent(context.Background(), ev.ID)
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	if len(got.Slots) != 1 || got.Slots[0].Order != 1 || got.Slots[0].Function != "Camera" {
		t.Fatalf("event should be unchanged: %+v", got.Slots)
	}
}
