package service

import "github.com/Shivanand-hulikatti/volunteer-scheduling/internal/model"

// CanClaim reports whether the user's attributes permit occupying the slot.
// Occupancy and calendar rules are enforced by the Allocator.
func CanClaim(user model.User, slot model.Slot) bool {
	if slot.RequiresCompanion() {
		return user.CompanionEligible
	}
	return true
}
