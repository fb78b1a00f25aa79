package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/workspace-spider/internal/core/domain"
	"github.com/custodia-labs/workspace-spider/internal/core/ports/driven"
)

// Ensure SessionStore implements the interface.
var _ driven.SessionStore = (*SessionStore)(nil)

// SessionStore is an in-memory implementation of driven.SessionStore.
// Sessions are deep-copied on the way in and out, so callers can keep
// mutating their own copies safely.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.ScanSession
}

// NewSessionStore creates a new in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*domain.ScanSession),
	}
}

// SaveSession stores a finished session, replacing any previous session
// with the same ID.
func (s *SessionStore) SaveSession(_ context.Context, session *domain.ScanSession) error {
	if session == nil || session.ID == "" {
		return fmt.Errorf("%w: session without id", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = cloneSession(session)
	return nil
}

// GetSession loads a stored session in full.
func (s *SessionStore) GetSession(_ context.Context, id string) (*domain.ScanSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: session %s", domain.ErrNotFound, id)
	}
	return cloneSession(session), nil
}

// ListSessions returns summaries of stored sessions, newest first.
func (s *SessionStore) ListSessions(_ context.Context) ([]driven.SessionSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]driven.SessionSummary, 0, len(s.sessions))
	for _, session := range s.sessions {
		summaries = append(summaries, driven.SessionSummary{
			ID:        session.ID,
			Status:    session.Status,
			StartedAt: session.StartedAt,
			EndedAt:   session.EndedAt,
			Stats:     session.Stats,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].StartedAt.After(summaries[j].StartedAt)
	})
	return summaries, nil
}

// DeleteSession removes a stored session and its graph.
func (s *SessionStore) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("%w: session %s", domain.ErrNotFound, id)
	}
	delete(s.sessions, id)
	return nil
}

// Close releases nothing; the store lives and dies with the process.
func (s *SessionStore) Close() error {
	return nil
}

// cloneSession deep-copies the graph slices and the per-artifact
// metadata maps.
func cloneSession(session *domain.ScanSession) *domain.ScanSession {
	dup := *session
	if session.Artifacts != nil {
		dup.Artifacts = make([]domain.Artifact, len(session.Artifacts))
		for i := range session.Artifacts {
			dup.Artifacts[i] = *session.Artifacts[i].Clone()
		}
	}
	dup.Edges = append([]domain.Edge(nil), session.Edges...)
	dup.Failures = append([]domain.Failure(nil), session.Failures...)
	return &dup
}
