package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Shivanand-hulikatti/volunteer-scheduling/internal/model"
	"github.com/Shivanand-hulikatti/volunteer-scheduling/internal/repository"
)

const latestJustifications = 5

// DashboardService aggregates monthly scheduling figures.
type DashboardService struct {
	events repository.EventStore
	users  repository.UserStore
	ledger repository.LedgerStore
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(events repository.EventStore, users repository.UserStore, ledger repository.LedgerStore) *DashboardService {
	return &DashboardService{events: events, users: users, ledger: ledger}
}

// Dashboard summarises the given month ("01".."12").
func (s *DashboardService) Dashboard(ctx context.Context, month string) (*model.Dashboard, error) {
	month = strings.TrimSpace(month)
	if _, ok := twoDigit(month, 1, 12); !ok {
		return nil, invalid(KindInvalidEventData, "month must be a two-digit value between 01 and 12")
	}

	filled, vacant, err := s.events.CountSlotsInMonth(ctx, month)
	if err != nil {
		return nil, fmt.Errorf("dashboard slots: %w", err)
	}
	active, inactive, err := s.users.CountUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("dashboard users: %w", err)
	}
	latest, err := s.ledger.ListJustifications(ctx, latestJustifications)
	if err != nil {
		return nil, fmt.Errorf("dashboard justifications: %w", err)
	}
	if latest == nil {
		latest = []model.Justification{}
	}

	return &model.Dashboard{
		Month:                month,
		FilledSlots:          filled,
		VacantSlots:          vacant,
		ActiveUsers:          active,
		InactiveUsers:        inactive,
		LatestJustifications: latest,
	}, nil
}
