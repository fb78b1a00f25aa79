package driving

import (
	"context"

	"github.com/custodia-labs/workspace-spider/internal/core/domain"
)

// Scanner runs discovery scans.
type Scanner interface {
	// Scan runs a full discovery traversal and returns the finished
	// session. A fatal connector error or context cancellation aborts
	// the scan; the partial session is still returned alongside the
	// error for inspection.
	Scan(ctx context.Context) (*domain.ScanSession, error)

	// Resume re-runs discovery from a stored session, re-queueing its
	// unfetched stubs and transient failures.
	Resume(ctx context.Context, sessionID string) (*domain.ScanSession, error)

	// Status returns a live snapshot of the current scan.
	Status() ScanStatus
}

// ScanStatus is a point-in-time snapshot of a running scan.
type ScanStatus struct {
	// SessionID identifies the scan, empty before the first Scan call.
	SessionID string

	// Running indicates a traversal is in flight.
	Running bool

	// Discovered is the number of registry entries so far.
	Discovered int

	// Expanded is the number of artifacts fully fetched so far.
	Expanded int

	// Queued is the number of frontier entries awaiting a worker.
	Queued int

	// Failed is the length of the failed-artifact list so far.
	Failed int

	// Requests is the number of HTTP calls issued across connectors.
	Requests int64
}

// Sessions exposes stored scan history to driving adapters.
type Sessions interface {
	// List returns stored session summaries, newest first.
	List(ctx context.Context) ([]SessionSummary, error)

	// Get loads one stored session in full.
	Get(ctx context.Context, id string) (*domain.ScanSession, error)

	// Delete removes a stored session.
	Delete(ctx context.Context, id string) error
}

// SessionSummary mirrors the stored listing row for driving adapters.
type SessionSummary struct {
	// ID is the session identifier.
	ID string

	// Status is the terminal status.
	Status domain.SessionStatus

	// StartedAt is when the scan began, RFC 3339 in serialized forms.
	StartedAt string

	// Duration is the wall-clock span, human readable.
	Duration string

	// Artifacts, Edges and Failures summarise the stored graph.
	Artifacts int
	Edges     int
	Failures  int
}
