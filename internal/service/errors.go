package service

import (
	"errors"
	"fmt"
)

// Family groups error kinds by how a caller should react to them.
type Family string

const (
	FamilyNotFound   Family = "not_found"
	FamilyConflict   Family = "conflict"
	FamilyForbidden  Family = "forbidden"
	FamilyValidation Family = "validation"
	FamilyOwnership  Family = "ownership"
)

// Kind is a stable, machine-readable rejection reason.
type Kind string

const (
	KindEventNotFound          Kind = "event_not_found"
	KindSlotNotFound           Kind = "slot_not_found"
	KindUserNotFound           Kind = "user_not_found"
	KindSlotOccupied           Kind = "slot_occupied"
	KindSameDayConflict        Kind = "same_day_conflict"
	KindQuotaExceeded          Kind = "quota_exceeded"
	KindUsernameTaken          Kind = "username_taken"
	KindNotEligibleForFunction Kind = "not_eligible_for_function"
	KindForbidden              Kind = "forbidden"
	KindInvalidEventData       Kind = "invalid_event_data"
	KindInvalidSlotOrder       Kind = "invalid_slot_order"
	KindInvalidUserData        Kind = "invalid_user_data"
	KindJustificationRequired  Kind = "justification_required"
	KindSlotNotOwnedByUser     Kind = "slot_not_owned_by_user"
)

var kindFamily = map[Kind]Family{
	KindEventNotFound:          FamilyNotFound,
	KindSlotNotFound:           FamilyNotFound,
	KindUserNotFound:           FamilyNotFound,
	KindSlotOccupied:           FamilyConflict,
	KindSameDayConflict:        FamilyConflict,
	KindQuotaExceeded:          FamilyConflict,
	KindUsernameTaken:          FamilyConflict,
	KindNotEligibleForFunction: FamilyForbidden,
	KindForbidden:              FamilyForbidden,
	KindInvalidEventData:       FamilyValidation,
	KindInvalidSlotOrder:       FamilyValidation,
	KindInvalidUserData:        FamilyValidation,
	KindJustificationRequired:  FamilyValidation,
	KindSlotNotOwnedByUser:     FamilyOwnership,
}

// Error is a typed business-rule rejection. Two errors match under
// errors.Is when their kinds are equal, so callers compare against the
// exported sentinels regardless of the message.
type Error struct {
	Kind    Kind
	Message string
	// Quota is the limit that was reached; only set for KindQuotaExceeded.
	Quota int
}

func (e *Error) Error() string { return e.Message }

// Family reports the family of the error's kind.
func (e *Error) Family() Family { return kindFamily[e.Kind] }

// Is matches any *Error with the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrEventNotFound          = &Error{Kind: KindEventNotFound, Message: "event not found"}
	ErrSlotNotFound           = &Error{Kind: KindSlotNotFound, Message: "slot not found"}
	ErrUserNotFound           = &Error{Kind: KindUserNotFound, Message: "user not found"}
	ErrSlotOccupied           = &Error{Kind: KindSlotOccupied, Message: "slot is already occupied"}
	ErrSameDayConflict        = &Error{Kind: KindSameDayConflict, Message: "user already holds a slot on this day"}
	ErrQuotaExceeded          = &Error{Kind: KindQuotaExceeded, Message: "monthly quota reached"}
	ErrUsernameTaken          = &Error{Kind: KindUsernameTaken, Message: "username already exists"}
	ErrNotEligibleForFunction = &Error{Kind: KindNotEligibleForFunction, Message: "user is not eligible for this function"}
	ErrForbidden              = &Error{Kind: KindForbidden, Message: "forbidden"}
	ErrInvalidEventData       = &Error{Kind: KindInvalidEventData, Message: "invalid event data"}
	ErrInvalidSlotOrder       = &Error{Kind: KindInvalidSlotOrder, Message: "invalid slot order"}
	ErrInvalidUserData        = &Error{Kind: KindInvalidUserData, Message: "invalid user data"}
	ErrJustificationRequired  = &Error{Kind: KindJustificationRequired, Message: "justification is required"}
	ErrSlotNotOwnedByUser     = &Error{Kind: KindSlotNotOwnedByUser, Message: "slot is not held by this user"}
)

// QuotaExceeded reports that the user already holds quota slots this month.
func QuotaExceeded(quota int) *Error {
	return &Error{
		Kind:    KindQuotaExceeded,
		Message: fmt.Sprintf("monthly quota of %d slots reached", quota),
		Quota:   quota,
	}
}

func invalid(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of a service error, or "" for anything else.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
