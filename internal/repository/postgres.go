package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Shivanand-hulikatti/volunteer-scheduling/internal/model"
)

const uniqueViolation = "23505"

var _ Store = (*Postgres)(nil)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Postgres implements Store on top of database/sql with the pgx driver.
type Postgres struct {
	pgAllocations
	db *sql.DB
}

// NewPostgres constructs a Postgres store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{pgAllocations: pgAllocations{q: db}, db: db}
}

// pgAllocations runs the allocation queries against a pool or a transaction.
type pgAllocations struct {
	q querier
}

func (p pgAllocations) SlotByOrder(ctx context.Context, eventID int64, order int) (*model.Slot, *model.Event, error) {
	var (
		s        model.Slot
		e        model.Event
		occupant sql.NullInt64
	)
	err := p.q.QueryRowContext(ctx,
		`SELECT s.id, s.event_id, s.slot_order, s.function, s.user_id,
		        e.id, e.month, e.day, e.time, e.description, e.location, e.created_at
		 FROM slots s
		 JOIN events e ON e.id = s.event_id
		 WHERE s.event_id = $1 AND s.slot_order = $2`,
		eventID, order,
	).Scan(&s.ID, &s.EventID, &s.Order, &s.Function, &occupant,
		&e.ID, &e.Month, &e.Day, &e.Time, &e.Description, &e.Location, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("get slot: %w", err)
	}
	s.OccupantUserID = nullableID(occupant)
	return &s, &e, nil
}

func (p pgAllocations) User(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	err := p.q.QueryRowContext(ctx,
		`SELECT id, username, role, monthly_quota, companion_eligible, active, created_at
		 FROM users WHERE id = $1`,
		id,
	).Scan(&u.ID, &u.Username, &u.Role, &u.MonthlyQuota, &u.CompanionEligible, &u.Active, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (p pgAllocations) CountUserSlotsInMonth(ctx context.Context, userID int64, month string) (int, error) {
	var n int
	err := p.q.QueryRowContext(ctx,
		`SELECT COUNT(*)
		 FROM slots s
		 JOIN events e ON e.id = s.event_id
		 WHERE s.user_id = $1 AND e.month = $2`,
		userID, month,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count monthly slots: %w", err)
	}
	return n, nil
}

func (p pgAllocations) UserHasSlotOnDay(ctx context.Context, userID int64, month, day string) (bool, error) {
	var exists bool
	err := p.q.QueryRowContext(ctx,
		`SELECT EXISTS (
		     SELECT 1
		     FROM slots s
		     JOIN events e ON e.id = s.event_id
		     WHERE s.user_id = $1 AND e.month = $2 AND e.day = $3
		 )`,
		userID, month, day,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check same-day slots: %w", err)
	}
	return exists, nil
}

// ClaimSlot is the compare-and-swap that decides races between claimants:
// the row only changes while user_id is still NULL.
func (p pgAllocations) ClaimSlot(ctx context.Context, slotID, userID int64) (bool, error) {
	res, err := p.q.ExecContext(ctx,
		`UPDATE slots SET user_id = $2 WHERE id = $1 AND user_id IS NULL`,
		slotID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("claim slot: %w", err)
	}
	return affected(res)
}

func (p pgAllocations) OwnedSlot(ctx context.Context, eventID int64, order int, userID int64) (*model.Slot, error) {
	var (
		s        model.Slot
		occupant sql.NullInt64
	)
	err := p.q.QueryRowContext(ctx,
		`SELECT id, event_id, slot_order, function, user_id
		 FROM slots
		 WHERE event_id = $1 AND slot_order = $2 AND user_id = $3`,
		eventID, order, userID,
	).Scan(&s.ID, &s.EventID, &s.Order, &s.Function, &occupant)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get owned slot: %w", err)
	}
	s.OccupantUserID = nullableID(occupant)
	return &s, nil
}

func (p pgAllocations) AppendJustification(ctx context.Context, j *model.Justification) error {
	_, err := p.q.ExecContext(ctx,
		`INSERT INTO justifications (id, user_id, event_id, slot_order, justification, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		j.ID, j.UserID, j.EventID, j.SlotOrder, j.Reason, j.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert justification: %w", err)
	}
	return nil
}

func (p pgAllocations) ClearSlot(ctx context.Context, slotID, userID int64) (bool, error) {
	res, err := p.q.ExecContext(ctx,
		`UPDATE slots SET user_id = NULL WHERE id = $1 AND user_id = $2`,
		slotID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("clear slot: %w", err)
	}
	return affected(res)
}

// WithUserLock runs fn in a transaction holding a transaction-scoped
// advisory lock keyed by the user id. Concurrent claims by the same user
// queue on the lock, so the quota and same-day reads inside fn cannot be
// invalidated by that user's other in-flight claims.
func (s *Postgres) WithUserLock(ctx context.Context, userID int64, fn func(AllocationStore) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, userID); err != nil {
		return fmt.Errorf("acquire user lock: %w", err)
	}
	if err = fn(pgAllocations{q: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ─── Events ───────────────────────────────────────────────────────────────────

// CreateEvent inserts the event and its slots in one transaction and fills
// in the generated identifiers.
func (s *Postgres) CreateEvent(ctx context.Context, ev *model.Event) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	err = tx.QueryRowContext(ctx,
		`INSERT INTO events (month, day, time, description, location)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		ev.Month, ev.Day, ev.Time, ev.Description, ev.Location,
	).Scan(&ev.ID, &ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	for i := range ev.Slots {
		slot := &ev.Slots[i]
		slot.EventID = ev.ID
		slot.OccupantUserID = nil
		if err = insertSlot(ctx, tx, slot); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return commitError(err)
	}
	return nil
}

const eventWithSlotsQuery = `
	SELECT e.id, e.month, e.day, e.time, e.description, e.location, e.created_at,
	       s.id, s.slot_order, s.function, s.user_id, u.username
	FROM events e
	LEFT JOIN slots s ON s.event_id = e.id
	LEFT JOIN users u ON u.id = s.user_id`

// GetEvent returns a single event with its slots ordered by slot order.
func (s *Postgres) GetEvent(ctx context.Context, id int64) (*model.Event, error) {
	events, err := s.queryEvents(ctx,
		eventWithSlotsQuery+`
		WHERE e.id = $1
		ORDER BY s.slot_order`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	if len(events) == 0 {
		return nil, ErrNotFound
	}
	return &events[0], nil
}

// ListEvents returns events for the month (all months when empty) ordered by
// day and time.
func (s *Postgres) ListEvents(ctx context.Context, month string) ([]model.Event, error) {
	events, err := s.queryEvents(ctx,
		eventWithSlotsQuery+`
		WHERE ($1 = '' OR e.month = $1)
		ORDER BY e.day, e.time, e.id, s.slot_order`,
		month,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

func (s *Postgres) queryEvents(ctx context.Context, query string, args ...any) ([]model.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var (
			e        model.Event
			slotID   sql.NullInt64
			order    sql.NullInt64
			function sql.NullString
			occupant sql.NullInt64
			username sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Month, &e.Day, &e.Time, &e.Description, &e.Location, &e.CreatedAt,
			&slotID, &order, &function, &occupant, &username); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if n := len(events); n == 0 || events[n-1].ID != e.ID {
			e.Slots = []model.Slot{}
			events = append(events, e)
		}
		if !slotID.Valid {
			continue
		}
		last := &events[len(events)-1]
		last.Slots = append(last.Slots, model.Slot{
			ID:               slotID.Int64,
			EventID:          e.ID,
			Order:            int(order.Int64),
			Function:         function.String,
			OccupantUserID:   nullableID(occupant),
			OccupantUsername: username.String,
		})
	}
	return events, rows.Err()
}

// UpdateEvent writes scalar fields and, when slots is non-nil, reconciles
// the slot list inside the same transaction.
func (s *Postgres) UpdateEvent(ctx context.Context, ev *model.Event, slots *[]model.SlotDraft) (_ *model.Event, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`UPDATE events
		 SET month = $2, day = $3, time = $4, description = $5, location = $6
		 WHERE id = $1`,
		ev.ID, ev.Month, ev.Day, ev.Time, ev.Description, ev.Location,
	)
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	ok, err := affected(res)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}

	if slots != nil {
		if err = reconcileSlots(ctx, tx, ev.ID, *slots); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, commitError(err)
	}
	return s.GetEvent(ctx, ev.ID)
}

func reconcileSlots(ctx context.Context, tx *sql.Tx, eventID int64, drafts []model.SlotDraft) error {
	rows, err := tx.QueryContext(ctx, `SELECT id FROM slots WHERE event_id = $1 ORDER BY id`, eventID)
	if err != nil {
		return fmt.Errorf("list slots: %w", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scan slot id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("list slots: %w", err)
	}
	rows.Close()

	keep := keptSlotIDs(ids, drafts)
	for _, id := range ids {
		if keep[id] {
			continue
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM slots WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete slot: %w", err)
		}
	}

	for _, d := range drafts {
		if keep[d.ID] {
			if _, err := tx.ExecContext(ctx,
				`UPDATE slots SET slot_order = $2, function = $3 WHERE id = $1`,
				d.ID, d.Order, d.Function,
			); err != nil {
				return mapWriteError("update slot", err)
			}
			continue
		}
		slot := model.Slot{EventID: eventID, Order: d.Order, Function: d.Function}
		if err := insertSlot(ctx, tx, &slot); err != nil {
			return err
		}
	}
	return nil
}

// keptSlotIDs returns the existing slot ids that some draft refers to.
func keptSlotIDs(existing []int64, drafts []model.SlotDraft) map[int64]bool {
	known := make(map[int64]bool, len(existing))
	for _, id := range existing {
		known[id] = true
	}
	keep := make(map[int64]bool, len(drafts))
	for _, d := range drafts {
		if d.ID > 0 && known[d.ID] {
			keep[d.ID] = true
		}
	}
	return keep
}

func insertSlot(ctx context.Context, tx *sql.Tx, slot *model.Slot) error {
	err := tx.QueryRowContext(ctx,
		`INSERT INTO slots (event_id, slot_order, function)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		slot.EventID, slot.Order, slot.Function,
	).Scan(&slot.ID)
	if err != nil {
		return mapWriteError("insert slot", err)
	}
	return nil
}

// DeleteEvent removes the event; slots cascade, justifications remain.
func (s *Postgres) DeleteEvent(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	ok, err := affected(res)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) CountSlotsInMonth(ctx context.Context, month string) (filled, vacant int, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FILTER (WHERE s.user_id IS NOT NULL),
		        COUNT(*) FILTER (WHERE s.user_id IS NULL)
		 FROM slots s
		 JOIN events e ON e.id = s.event_id
		 WHERE e.month = $1`,
		month,
	).Scan(&filled, &vacant)
	if err != nil {
		return 0, 0, fmt.Errorf("count slots: %w", err)
	}
	return filled, vacant, nil
}

// ─── Users ────────────────────────────────────────────────────────────────────

func (s *Postgres) CreateUser(ctx context.Context, u *model.User) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO users (username, role, monthly_quota, companion_eligible, active)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		u.Username, u.Role, u.MonthlyQuota, u.CompanionEligible, u.Active,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return mapWriteError("insert user", err)
	}
	return nil
}

func (s *Postgres) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, username, role, monthly_quota, companion_eligible, active, created_at
		 FROM users
		 ORDER BY username`,
	)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Role, &u.MonthlyQuota, &u.CompanionEligible, &u.Active, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Postgres) UpdateUser(ctx context.Context, u *model.User) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users
		 SET role = $2, monthly_quota = $3, companion_eligible = $4, active = $5
		 WHERE id = $1`,
		u.ID, u.Role, u.MonthlyQuota, u.CompanionEligible, u.Active,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	ok, err := affected(res)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) CountUsers(ctx context.Context) (active, inactive int, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FILTER (WHERE active), COUNT(*) FILTER (WHERE NOT active) FROM users`,
	).Scan(&active, &inactive)
	if err != nil {
		return 0, 0, fmt.Errorf("count users: %w", err)
	}
	return active, inactive, nil
}

// ─── Justifications ───────────────────────────────────────────────────────────

const justificationQuery = `
	SELECT j.id, j.user_id, COALESCE(u.username, ''), j.event_id, j.slot_order, j.justification, j.created_at
	FROM justifications j
	LEFT JOIN users u ON u.id = j.user_id`

func (s *Postgres) ListJustifications(ctx context.Context, limit int) ([]model.Justification, error) {
	query := justificationQuery + `
	ORDER BY j.created_at DESC, j.id DESC`
	var args []any
	if limit > 0 {
		query += `
	LIMIT $1`
		args = append(args, limit)
	}
	return s.queryJustifications(ctx, query, args...)
}

func (s *Postgres) ListJustificationsByEvent(ctx context.Context, eventID int64) ([]model.Justification, error) {
	return s.queryJustifications(ctx, justificationQuery+`
	WHERE j.event_id = $1
	ORDER BY j.created_at DESC, j.id DESC`, eventID)
}

func (s *Postgres) queryJustifications(ctx context.Context, query string, args ...any) ([]model.Justification, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list justifications: %w", err)
	}
	defer rows.Close()

	var out []model.Justification
	for rows.Next() {
		var j model.Justification
		if err := rows.Scan(&j.ID, &j.UserID, &j.Username, &j.EventID, &j.SlotOrder, &j.Reason, &j.Timestamp); err != nil {
			return nil, fmt.Errorf("scan justification: %w", err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// ─── helpers ──────────────────────────────────────────────────────────────────

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func nullableID(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	id := v.Int64
	return &id
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func mapWriteError(op string, err error) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("%s: %w", op, ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// commitError maps deferred constraint failures surfaced at commit time.
func commitError(err error) error {
	return mapWriteError("commit transaction", err)
}
