package repository

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/volunteer-scheduling/internal/model"
)

func seedEvent(t *testing.T, m *Memory, month, day string, functions ...string) *model.Event {
	t.Helper()
	ev := &model.Event{Month: month, Day: day, Time: "19:00"}
	for i, fn := range functions {
		ev.Slots = append(ev.Slots, model.Slot{Order: i + 1, Function: fn})
	}
	if err := m.CreateEvent(context.Background(), ev); err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	return ev
}

func seedUser(t *testing.T, m *Memory, name string) *model.User {
	t.Helper()
	u := &model.User{Username: name, Role: model.RoleUser, MonthlyQuota: 2, Active: true}
	if err := m.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u
}

func TestMemoryClaimIsCompareAndSwap(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	ev := seedEvent(t, m, "03", "10", "Leitor")
	ana := seedUser(t, m, "ana")
	bia := seedUser(t, m, "bia")

	ok, err := m.ClaimSlot(ctx, ev.Slots[0].ID, ana.ID)
	if err != nil || !ok {
		t.Fatalf("first claim: ok=%v err=%v", ok, err)
	}
	ok, err = m.ClaimSlot(ctx, ev.Slots[0].ID, bia.ID)
	if err != nil || ok {
		t.Fatalf("second claim should not change the row: ok=%v err=%v", ok, err)
	}

	got, err := m.GetEvent(ctx, ev.ID)
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	if got.Slots[0].OccupantUsername != "ana" {
		t.Fatalf("unexpected occupant %q", got.Slots[0].OccupantUsername)
	}
}

func TestMemoryWithUserLockRollsBack(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	ev := seedEvent(t, m, "03", "10", "Leitor")
	ana := seedUser(t, m, "ana")
	if _, err := m.ClaimSlot(ctx, ev.Slots[0].ID, ana.ID); err != nil {
		t.Fatalf("ClaimSlot: %v", err)
	}

	boom := errors.New("boom")
	err := m.WithUserLock(ctx, ana.ID, func(tx AllocationStore) error {
		if err := tx.AppendJustification(ctx, &model.Justification{
			ID: "01", UserID: ana.ID, EventID: ev.ID, SlotOrder: 1, Reason: "sick", Timestamp: time.Now(),
		}); err != nil {
			return err
		}
		if _, err := tx.ClearSlot(ctx, ev.Slots[0].ID, ana.ID); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	got, _ := m.GetEvent(ctx, ev.ID)
	if got.Slots[0].Vacant() {
		t.Fatalf("clear should have been undone")
	}
	entries, _ := m.ListJustifications(ctx, 0)
	if len(entries) != 0 {
		t.Fatalf("justification should have been undone, got %d", len(entries))
	}
}

func TestMemoryWithUserLockHonoursCancelledContext(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := m.WithUserLock(ctx, 1, func(AllocationStore) error {
		called = true
		return nil
	})
	if !errors.Is(err, context.Canceled) || called {
		t.Fatalf("expected cancellation before fn, err=%v called=%v", err, called)
	}
}

func TestMemoryConcurrentClaimsSingleWinner(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	ev := seedEvent(t, m, "03", "10", "Leitor")

	const claimants = 32
	users := make([]*model.User, claimants)
	for i := range users {
		users[i] = seedUser(t, m, string(rune('a'+i%26))+string(rune('A'+i/26)))
	}

	var wins atomic.Int32
	var wg sync.WaitGroup
	for _, u := range users {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			ok, err := m.ClaimSlot(ctx, ev.Slots[0].ID, id)
			if err != nil {
				t.Errorf("ClaimSlot: %v", err)
			}
			if ok {
				wins.Add(1)
			}
		}(u.ID)
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins.Load())
	}
}

func TestMemoryCountsAndSameDay(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	march := seedEvent(t, m, "03", "10", "Leitor", "Salmista")
	april := seedEvent(t, m, "04", "10", "Leitor")
	ana := seedUser(t, m, "ana")

	for _, id := range []int64{march.Slots[0].ID, april.Slots[0].ID} {
		if _, err := m.ClaimSlot(ctx, id, ana.ID); err != nil {
			t.Fatalf("ClaimSlot: %v", err)
		}
	}

	n, _ := m.CountUserSlotsInMonth(ctx, ana.ID, "03")
	if n != 1 {
		t.Fatalf("expected 1 slot in March, got %d", n)
	}
	same, _ := m.UserHasSlotOnDay(ctx, ana.ID, "03", "10")
	if !same {
		t.Fatalf("expected same-day slot on 03/10")
	}
	same, _ = m.UserHasSlotOnDay(ctx, ana.ID, "03", "11")
	if same {
		t.Fatalf("unexpected same-day slot on 03/11")
	}

	filled, vacant, _ := m.CountSlotsInMonth(ctx, "03")
	if filled != 1 || vacant != 1 {
		t.Fatalf("unexpected counts filled=%d vacant=%d", filled, vacant)
	}
}

func TestMemoryCreateEventRejectsDuplicateOrders(t *testing.T) {
	m := NewMemory()
	ev := &model.Event{Month: "03", Day: "10", Time: "19:00", Slots: []model.Slot{{Order: 1}, {Order: 1}}}
	if err := m.CreateEvent(context.Background(), ev); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestMemoryUpdateEventReconciles(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	ev := seedEvent(t, m, "03", "10", "Leitor", "Salmista")
	ana := seedUser(t, m, "ana")
	if _, err := m.ClaimSlot(ctx, ev.Slots[1].ID, ana.ID); err != nil {
		t.Fatalf("ClaimSlot: %v", err)
	}

	// Keep the occupied slot but move it to order 1, drop the other, add a new one.
	drafts := []model.SlotDraft{
		{ID: ev.Slots[1].ID, Order: 1, Function: "Salmista"},
		{Order: 2, Function: "Acompanhante"},
	}
	ev.Description = "Missa"
	got, err := m.UpdateEvent(ctx, ev, &drafts)
	if err != nil {
		t.Fatalf("UpdateEvent: %v", err)
	}
	if got.Description != "Missa" || len(got.Slots) != 2 {
		t.Fatalf("unexpected event: %+v", got)
	}
	if got.Slots[0].ID != ev.Slots[1].ID || got.Slots[0].OccupantUsername != "ana" {
		t.Fatalf("kept slot lost its occupant: %+v", got.Slots[0])
	}
	if !got.Slots[1].Vacant() || got.Slots[1].Function != "Acompanhante" {
		t.Fatalf("new slot should be vacant: %+v", got.Slots[1])
	}

	dup := []model.SlotDraft{{Order: 3}, {Order: 3}}
	if _, err := m.UpdateEvent(ctx, ev, &dup); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestMemoryDeleteEventKeepsJustifications(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	ev := seedEvent(t, m, "03", "10", "Leitor")
	ana := seedUser(t, m, "ana")
	if err := m.AppendJustification(ctx, &model.Justification{
		ID: "01", UserID: ana.ID, EventID: ev.ID, SlotOrder: 1, Reason: "sick", Timestamp: time.Now(),
	}); err != nil {
		t.Fatalf("AppendJustification: %v", err)
	}

	if err := m.DeleteEvent(ctx, ev.ID); err != nil {
		t.Fatalf("DeleteEvent: %v", err)
	}
	if _, err := m.GetEvent(ctx, ev.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	entries, _ := m.ListJustificationsByEvent(ctx, ev.ID)
	if len(entries) != 1 || entries[0].Username != "ana" {
		t.Fatalf("history should survive deletion: %+v", entries)
	}
	if err := m.DeleteEvent(ctx, ev.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestMemoryJustificationsNewestFirst(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	ana := seedUser(t, m, "ana")
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"01", "02", "03"} {
		if err := m.AppendJustification(ctx, &model.Justification{
			ID: id, UserID: ana.ID, EventID: 1, SlotOrder: 1, Reason: "r", Timestamp: base.Add(time.Duration(i) * time.Hour),
		}); err != nil {
			t.Fatalf("AppendJustification: %v", err)
		}
	}

	out, _ := m.ListJustifications(ctx, 2)
	if len(out) != 2 || out[0].ID != "03" || out[1].ID != "02" {
		t.Fatalf("unexpected order: %+v", out)
	}
}

func TestMemoryUsers(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	seedUser(t, m, "bia")
	ana := seedUser(t, m, "ana")

	if err := m.CreateUser(ctx, &model.User{Username: "ana"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	ana.Active = false
	if err := m.UpdateUser(ctx, ana); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	users, _ := m.ListUsers(ctx)
	if len(users) != 2 || users[0].Username != "ana" {
		t.Fatalf("expected users sorted by name: %+v", users)
	}
	active, inactive, _ := m.CountUsers(ctx)
	if active != 1 || inactive != 1 {
		t.Fatalf("unexpected counts active=%d inactive=%d", active, inactive)
	}
	if err := m.UpdateUser(ctx, &model.User{ID: 99}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
