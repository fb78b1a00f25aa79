package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/workspace-spider/internal/core/domain"
	"github.com/custodia-labs/workspace-spider/internal/core/ports/driven"
	"github.com/custodia-labs/workspace-spider/internal/core/ports/driving"
)

// Ensure Sessions implements the interface.
var _ driving.Sessions = (*Sessions)(nil)

// Sessions exposes stored scan history to the driving adapters.
type Sessions struct {
	store driven.SessionStore
}

// NewSessions creates the session history service.
func NewSessions(store driven.SessionStore) (*Sessions, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: nil session store", domain.ErrInvalidInput)
	}
	return &Sessions{store: store}, nil
}

// List returns stored session summaries, newest first.
func (s *Sessions) List(ctx context.Context) ([]driving.SessionSummary, error) {
	rows, err := s.store.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}

	summaries := make([]driving.SessionSummary, 0, len(rows))
	for _, row := range rows {
		summary := driving.SessionSummary{
			ID:        row.ID,
			Status:    row.Status,
			StartedAt: row.StartedAt.Format(time.RFC3339),
			Artifacts: row.Stats.Artifacts,
			Edges:     row.Stats.Edges,
			Failures:  row.Stats.Failures,
		}
		if !row.EndedAt.IsZero() {
			summary.Duration = row.EndedAt.Sub(row.StartedAt).Round(time.Millisecond).String()
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// Get loads one stored session in full.
func (s *Sessions) Get(ctx context.Context, id string) (*domain.ScanSession, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty session id", domain.ErrInvalidInput)
	}
	return s.store.GetSession(ctx, id)
}

// Delete removes a stored session and its graph.
func (s *Sessions) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty session id", domain.ErrInvalidInput)
	}
	return s.store.DeleteSession(ctx, id)
}
