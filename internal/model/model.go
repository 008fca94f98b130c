// Package model defines the core domain types for the volunteer scheduling system.
package model

import (
	"strings"
	"time"
)

// Roles recognised by the directory.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// DefaultMonthlyQuota applies when a user is created without an explicit quota.
const DefaultMonthlyQuota = 2

// Slot order bounds, inclusive.
const (
	MinSlotOrder = 1
	MaxSlotOrder = 10
)

// Event is a dated service that owns an ordered set of slots.
type Event struct {
	ID          int64     `json:"id"`
	Month       string    `json:"month"`
	Day         string    `json:"day"`
	Time        string    `json:"time"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Slots       []Slot    `json:"slots"`
	CreatedAt   time.Time `json:"created_at"`
}

// Slot is a single assignable role within an event.
type Slot struct {
	ID               int64  `json:"id"`
	EventID          int64  `json:"event_id"`
	Order            int    `json:"order"`
	Function         string `json:"function,omitempty"`
	OccupantUserID   *int64 `json:"occupant_user_id"`
	OccupantUsername string `json:"occupant_username,omitempty"`
}

// Vacant reports whether nobody occupies the slot.
func (s Slot) Vacant() bool {
	return s.OccupantUserID == nil
}

// companionTerms are matched case-insensitively against a slot function.
var companionTerms = []string{"companion", "acompanhante"}

// RequiresCompanion reports whether the slot function names a companion role.
func (s Slot) RequiresCompanion() bool {
	fn := strings.ToLower(s.Function)
	for _, term := range companionTerms {
		if strings.Contains(fn, term) {
			return true
		}
	}
	return false
}

// User is a volunteer in the directory.
type User struct {
	ID                int64     `json:"id"`
	Username          string    `json:"username"`
	Role              string    `json:"role"`
	MonthlyQuota      int       `json:"monthly_quota"`
	CompanionEligible bool      `json:"companion_eligible"`
	Active            bool      `json:"active"`
	CreatedAt         time.Time `json:"created_at"`
}

// Justification records why a volunteer vacated a slot. Append-only.
type Justification struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username,omitempty"`
	EventID   int64     `json:"event_id"`
	SlotOrder int       `json:"slot_order"`
	Reason    string    `json:"justification"`
	Timestamp time.Time `json:"timestamp"`
}

// SlotDraft describes a slot template when creating or updating an event.
// ID is only meaningful on update, where a positive value refers to an
// existing slot of the same event.
type SlotDraft struct {
	ID       int64  `json:"id,omitempty"`
	Order    int    `json:"order"`
	Function string `json:"function,omitempty"`
}

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	Month       string      `json:"month"`
	Day         string      `json:"day"`
	Time        string      `json:"time"`
	Description string      `json:"description,omitempty"`
	Location    string      `json:"location,omitempty"`
	Slots       []SlotDraft `json:"slots,omitempty"`
}

// UpdateEventRequest is a partial update. Nil fields are left unchanged;
// a nil Slots leaves the slot list untouched, a non-nil one is reconciled.
type UpdateEventRequest struct {
	Month       *string      `json:"month,omitempty"`
	Day         *string      `json:"day,omitempty"`
	Time        *string      `json:"time,omitempty"`
	Description *string      `json:"description,omitempty"`
	Location    *string      `json:"location,omitempty"`
	Slots       *[]SlotDraft `json:"slots,omitempty"`
}

// AssignRequest is the payload for claiming a slot.
type AssignRequest struct {
	SlotOrder int `json:"slotOrder"`
}

// RemoveRequest is the payload for releasing a slot.
type RemoveRequest struct {
	SlotOrder     int    `json:"slotOrder"`
	Justification string `json:"justification"`
}

// CreateUserRequest is the payload for adding a volunteer.
type CreateUserRequest struct {
	Username          string `json:"username"`
	Role              string `json:"role,omitempty"`
	MonthlyQuota      *int   `json:"monthly_quota,omitempty"`
	CompanionEligible bool   `json:"companion_eligible"`
}

// UpdateUserRequest is a partial update of a volunteer.
type UpdateUserRequest struct {
	Role              *string `json:"role,omitempty"`
	MonthlyQuota      *int    `json:"monthly_quota,omitempty"`
	CompanionEligible *bool   `json:"companion_eligible,omitempty"`
	Active            *bool   `json:"active,omitempty"`
}

// Dashboard summarises scheduling activity for one month.
type Dashboard struct {
	Month                string          `json:"month"`
	FilledSlots          int             `json:"filled_slots"`
	VacantSlots          int             `json:"vacant_slots"`
	ActiveUsers          int             `json:"active_users"`
	InactiveUsers        int             `json:"inactive_users"`
	LatestJustifications []Justification `json:"latest_justifications"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Quota *int   `json:"quota,omitempty"`
}
