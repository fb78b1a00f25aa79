package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/workspace-spider/internal/core/domain"
)

// SessionSummary is a lightweight listing row for stored sessions.
type SessionSummary struct {
	// ID is the session identifier.
	ID string

	// Status is the terminal status the session was stored with.
	Status domain.SessionStatus

	// StartedAt and EndedAt bound the run.
	StartedAt time.Time
	EndedAt   time.Time

	// Stats summarises the stored graph.
	Stats domain.ScanStats
}

// SessionStore persists finished scan sessions: the full artifact
// graph, edge set, and failed-artifact list. Implementations must be
// lossless with respect to the domain data model so exports and
// resumed scans can rebuild exact registry state.
type SessionStore interface {
	// SaveSession stores a finished session, replacing any previous
	// session with the same ID.
	SaveSession(ctx context.Context, session *domain.ScanSession) error

	// GetSession loads a stored session in full. Returns an error
	// matching domain.ErrNotFound when the ID is unknown.
	GetSession(ctx context.Context, id string) (*domain.ScanSession, error)

	// ListSessions returns summaries of stored sessions, newest first.
	ListSessions(ctx context.Context) ([]SessionSummary, error)

	// DeleteSession removes a stored session and its graph.
	DeleteSession(ctx context.Context, id string) error

	// Close releases the underlying storage.
	Close() error
}
