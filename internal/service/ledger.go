package service

import (
	"context"
	"fmt"

	"github.com/Shivanand-hulikatti/volunteer-scheduling/internal/model"
	"github.com/Shivanand-hulikatti/volunteer-scheduling/internal/repository"
)

// LedgerService reads the justification history. Entries are written only
// by the Allocator.
type LedgerService struct {
	ledger repository.LedgerStore
}

// NewLedgerService constructs a LedgerService.
func NewLedgerService(ledger repository.LedgerStore) *LedgerService {
	return &LedgerService{ledger: ledger}
}

// ListAll returns entries newest first. limit <= 0 returns every entry.
func (s *LedgerService) ListAll(ctx context.Context, limit int) ([]model.Justification, error) {
	out, err := s.ledger.ListJustifications(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list justifications: %w", err)
	}
	return out, nil
}

// ListByEvent returns the entries recorded for an event, including events
// that have since been deleted.
func (s *LedgerService) ListByEvent(ctx context.Context, eventID int64) ([]model.Justification, error) {
	out, err := s.ledger.ListJustificationsByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list event justifications: %w", err)
	}
	return out, nil
}
