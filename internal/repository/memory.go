package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Shivanand-hulikatti/volunteer-scheduling/internal/model"
)

var _ Store = (*Memory)(nil)

// Memory implements Store in process. A single mutex guards all state, so
// WithUserLock serialises every unit of work, not only those of one user.
type Memory struct {
	mu             sync.Mutex
	now            func() time.Time
	nextEventID    int64
	nextSlotID     int64
	nextUserID     int64
	events         map[int64]*model.Event
	slots          map[int64]*model.Slot
	users          map[int64]*model.User
	justifications []model.Justification
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{
		now:    func() time.Time { return time.Now().UTC() },
		events: make(map[int64]*model.Event),
		slots:  make(map[int64]*model.Slot),
		users:  make(map[int64]*model.User),
	}
}

// memTx executes allocation operations with m.mu already held and records
// how to undo each write.
type memTx struct {
	m    *Memory
	undo []func()
}

func (tx *memTx) rollback() {
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
}

func (tx *memTx) SlotByOrder(_ context.Context, eventID int64, order int) (*model.Slot, *model.Event, error) {
	ev, ok := tx.m.events[eventID]
	if !ok {
		return nil, nil, ErrNotFound
	}
	s := tx.m.slotByOrder(eventID, order)
	if s == nil {
		return nil, nil, ErrNotFound
	}
	slot := copySlot(*s)
	event := *ev
	event.Slots = nil
	return &slot, &event, nil
}

func (tx *memTx) User(_ context.Context, id int64) (*model.User, error) {
	u, ok := tx.m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *u
	return &out, nil
}

func (tx *memTx) CountUserSlotsInMonth(_ context.Context, userID int64, month string) (int, error) {
	n := 0
	for _, s := range tx.m.slots {
		if occupiedBy(s, userID) && tx.m.events[s.EventID].Month == month {
			n++
		}
	}
	return n, nil
}

func (tx *memTx) UserHasSlotOnDay(_ context.Context, userID int64, month, day string) (bool, error) {
	for _, s := range tx.m.slots {
		if !occupiedBy(s, userID) {
			continue
		}
		ev := tx.m.events[s.EventID]
		if ev.Month == month && ev.Day == day {
			return true, nil
		}
	}
	return false, nil
}

func (tx *memTx) ClaimSlot(_ context.Context, slotID, userID int64) (bool, error) {
	s, ok := tx.m.slots[slotID]
	if !ok || s.OccupantUserID != nil {
		return false, nil
	}
	id := userID
	s.OccupantUserID = &id
	tx.undo = append(tx.undo, func() { s.OccupantUserID = nil })
	return true, nil
}

func (tx *memTx) OwnedSlot(_ context.Context, eventID int64, order int, userID int64) (*model.Slot, error) {
	s := tx.m.slotByOrder(eventID, order)
	if s == nil || !occupiedBy(s, userID) {
		return nil, ErrNotFound
	}
	out := copySlot(*s)
	return &out, nil
}

func (tx *memTx) AppendJustification(_ context.Context, j *model.Justification) error {
	if j.ID == "" {
		return fmt.Errorf("insert justification: missing id")
	}
	n := len(tx.m.justifications)
	entry := *j
	entry.Username = ""
	tx.m.justifications = append(tx.m.justifications, entry)
	tx.undo = append(tx.undo, func() { tx.m.justifications = tx.m.justifications[:n] })
	return nil
}

func (tx *memTx) ClearSlot(_ context.Context, slotID, userID int64) (bool, error) {
	s, ok := tx.m.slots[slotID]
	if !ok || !occupiedBy(s, userID) {
		return false, nil
	}
	prev := s.OccupantUserID
	s.OccupantUserID = nil
	tx.undo = append(tx.undo, func() { s.OccupantUserID = prev })
	return true, nil
}

// ─── AllocationStore without an explicit unit of work ─────────────────────────

func (m *Memory) SlotByOrder(ctx context.Context, eventID int64, order int) (*model.Slot, *model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{m: m}).SlotByOrder(ctx, eventID, order)
}

func (m *Memory) User(ctx context.Context, id int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{m: m}).User(ctx, id)
}

func (m *Memory) CountUserSlotsInMonth(ctx context.Context, userID int64, month string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{m: m}).CountUserSlotsInMonth(ctx, userID, month)
}

func (m *Memory) UserHasSlotOnDay(ctx context.Context, userID int64, month, day string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{m: m}).UserHasSlotOnDay(ctx, userID, month, day)
}

func (m *Memory) ClaimSlot(ctx context.Context, slotID, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{m: m}).ClaimSlot(ctx, slotID, userID)
}

func (m *Memory) OwnedSlot(ctx context.Context, eventID int64, order int, userID int64) (*model.Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{m: m}).OwnedSlot(ctx, eventID, order, userID)
}

func (m *Memory) AppendJustification(ctx context.Context, j *model.Justification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{m: m}).AppendJustification(ctx, j)
}

func (m *Memory) ClearSlot(ctx context.Context, slotID, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{m: m}).ClearSlot(ctx, slotID, userID)
}

// WithUserLock runs fn while holding the store mutex and undoes its writes
// if it fails.
func (m *Memory) WithUserLock(ctx context.Context, _ int64, fn func(AllocationStore) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &memTx{m: m}
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

// ─── Events ───────────────────────────────────────────────────────────────────

func (m *Memory) CreateEvent(_ context.Context, ev *model.Event) error {
	if err := uniqueOrders(ev.Slots); err != nil {
		return fmt.Errorf("insert slot: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextEventID++
	ev.ID = m.nextEventID
	ev.CreatedAt = m.now()
	stored := *ev
	stored.Slots = nil
	m.events[ev.ID] = &stored

	for i := range ev.Slots {
		m.nextSlotID++
		slot := &ev.Slots[i]
		slot.ID = m.nextSlotID
		slot.EventID = ev.ID
		slot.OccupantUserID = nil
		slot.OccupantUsername = ""
		s := *slot
		m.slots[s.ID] = &s
	}
	return nil
}

func (m *Memory) GetEvent(_ context.Context, id int64) (*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := m.assemble(ev)
	return &out, nil
}

func (m *Memory) ListEvents(_ context.Context, month string) ([]model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Event
	for _, ev := range m.events {
		if month != "" && ev.Month != month {
			continue
		}
		out = append(out, m.assemble(ev))
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (m *Memory) UpdateEvent(_ context.Context, ev *model.Event, drafts *[]model.SlotDraft) (*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.events[ev.ID]
	if !ok {
		return nil, ErrNotFound
	}

	if drafts != nil {
		next := make([]model.Slot, 0, len(*drafts))
		for _, d := range *drafts {
			next = append(next, model.Slot{Order: d.Order})
		}
		if err := uniqueOrders(next); err != nil {
			return nil, fmt.Errorf("commit transaction: %w", err)
		}
	}

	stored.Month = ev.Month
	stored.Day = ev.Day
	stored.Time = ev.Time
	stored.Description = ev.Description
	stored.Location = ev.Location

	if drafts != nil {
		var existing []int64
		for id, s := range m.slots {
			if s.EventID == ev.ID {
				existing = append(existing, id)
			}
		}
		keep := keptSlotIDs(existing, *drafts)
		for _, id := range existing {
			if !keep[id] {
				delete(m.slots, id)
			}
		}
		for _, d := range *drafts {
			if keep[d.ID] {
				s := m.slots[d.ID]
				s.Order = d.Order
				s.Function = d.Function
				continue
			}
			m.nextSlotID++
			m.slots[m.nextSlotID] = &model.Slot{
				ID:       m.nextSlotID,
				EventID:  ev.ID,
				Order:    d.Order,
				Function: d.Function,
			}
		}
	}

	out := m.assemble(stored)
	return &out, nil
}

func (m *Memory) DeleteEvent(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[id]; !ok {
		return ErrNotFound
	}
	delete(m.events, id)
	for sid, s := range m.slots {
		if s.EventID == id {
			delete(m.slots, sid)
		}
	}
	return nil
}

func (m *Memory) CountSlotsInMonth(_ context.Context, month string) (filled, vacant int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.slots {
		if m.events[s.EventID].Month != month {
			continue
		}
		if s.OccupantUserID != nil {
			filled++
		} else {
			vacant++
		}
	}
	return filled, vacant, nil
}

// ─── Users ────────────────────────────────────────────────────────────────────

func (m *Memory) CreateUser(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == u.Username {
			return fmt.Errorf("insert user: %w", ErrConflict)
		}
	}
	m.nextUserID++
	u.ID = m.nextUserID
	u.CreatedAt = m.now()
	stored := *u
	m.users[u.ID] = &stored
	return nil
}

func (m *Memory) ListUsers(_ context.Context) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (m *Memory) UpdateUser(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.users[u.ID]
	if !ok {
		return ErrNotFound
	}
	stored.Role = u.Role
	stored.MonthlyQuota = u.MonthlyQuota
	stored.CompanionEligible = u.CompanionEligible
	stored.Active = u.Active
	return nil
}

func (m *Memory) CountUsers(_ context.Context) (active, inactive int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Active {
			active++
		} else {
			inactive++
		}
	}
	return active, inactive, nil
}

// ─── Justifications ───────────────────────────────────────────────────────────

func (m *Memory) ListJustifications(_ context.Context, limit int) ([]model.Justification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.justificationsWhere(func(model.Justification) bool { return true })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) ListJustificationsByEvent(_ context.Context, eventID int64) ([]model.Justification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.justificationsWhere(func(j model.Justification) bool { return j.EventID == eventID }), nil
}

func (m *Memory) justificationsWhere(keep func(model.Justification) bool) []model.Justification {
	var out []model.Justification
	for _, j := range m.justifications {
		if !keep(j) {
			continue
		}
		if u, ok := m.users[j.UserID]; ok {
			j.Username = u.Username
		}
		out = append(out, j)
	}
	sort.SliceStable(out, func(i, k int) bool {
		if !out[i].Timestamp.Equal(out[k].Timestamp) {
			return out[i].Timestamp.After(out[k].Timestamp)
		}
		return out[i].ID > out[k].ID
	})
	return out
}

// ─── helpers ──────────────────────────────────────────────────────────────────

func (m *Memory) slotByOrder(eventID int64, order int) *model.Slot {
	for _, s := range m.slots {
		if s.EventID == eventID && s.Order == order {
			return s
		}
	}
	return nil
}

func (m *Memory) assemble(ev *model.Event) model.Event {
	out := *ev
	out.Slots = []model.Slot{}
	for _, s := range m.slots {
		if s.EventID != ev.ID {
			continue
		}
		slot := copySlot(*s)
		if slot.OccupantUserID != nil {
			if u, ok := m.users[*slot.OccupantUserID]; ok {
				slot.OccupantUsername = u.Username
			}
		}
		out.Slots = append(out.Slots, slot)
	}
	sort.Slice(out.Slots, func(i, j int) bool { return out.Slots[i].Order < out.Slots[j].Order })
	return out
}

func uniqueOrders(slots []model.Slot) error {
	seen := make(map[int]bool, len(slots))
	for _, s := range slots {
		if seen[s.Order] {
			return ErrConflict
		}
		seen[s.Order] = true
	}
	return nil
}

func occupiedBy(s *model.Slot, userID int64) bool {
	return s.OccupantUserID != nil && *s.OccupantUserID == userID
}

func copySlot(s model.Slot) model.Slot {
	if s.OccupantUserID != nil {
		id := *s.OccupantUserID
		s.OccupantUserID = &id
	}
	return s
}
