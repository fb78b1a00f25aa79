package domain

import (
	"fmt"
	"time"
)

// SessionStatus is the lifecycle state of a scan session.
type SessionStatus string

const (
	// StatusRunning marks a session whose traversal is still in flight.
	StatusRunning SessionStatus = "running"

	// StatusCompleted marks a session whose frontier drained normally.
	// Completed sessions may still carry failed artifacts.
	StatusCompleted SessionStatus = "completed"

	// StatusAborted marks a session stopped by a fatal connector error
	// or an external cancellation. Partial registry state is retained.
	StatusAborted SessionStatus = "aborted"
)

// FailureKind classifies an entry in the session's failed-artifact list.
type FailureKind string

const (
	// FailureNotFound marks artifacts the remote permanently denied
	// (tombstoned in the registry).
	FailureNotFound FailureKind = "not_found"

	// FailureRetryExhausted marks artifacts whose transient errors
	// outlived the retry budget. They stay unfetched so a resumed scan
	// can retry them.
	FailureRetryExhausted FailureKind = "retry_exhausted"
)

// Failure records one artifact the scan could not fully capture.
// A session always ends with an explicit report of captured versus
// failed artifacts, never a silent gap.
type Failure struct {
	// Key identifies the failed artifact.
	Key ArtifactKey

	// Kind classifies the failure.
	Kind FailureKind

	// Reason is the human-readable error that caused the failure.
	Reason string

	// At is when the failure was recorded.
	At time.Time
}

// ScanStats summarises a session's registry counts.
type ScanStats struct {
	// Artifacts is the total number of registry entries.
	Artifacts int

	// Fetched is the number of artifacts with full metadata.
	Fetched int

	// Stubs is the number of entries still awaiting expansion.
	Stubs int

	// Edges is the number of distinct relation triples.
	Edges int

	// Failures is the length of the failed-artifact list.
	Failures int

	// Requests is the number of HTTP calls issued across connectors.
	Requests int64
}

// ScanSession ties one discovery run together. It is created at scan
// start, mutated throughout the run by the traversal engine, and
// immutable once ended.
type ScanSession struct {
	// ID is the unique session identifier.
	ID string

	// Status is the lifecycle state.
	Status SessionStatus

	// StartedAt is when the scan began.
	StartedAt time.Time

	// EndedAt is when the scan finished or aborted. Zero while running.
	EndedAt time.Time

	// Config is the configuration the scan ran with.
	Config ScanConfig

	// Artifacts is the final registry snapshot, keyed order unspecified.
	Artifacts []Artifact

	// Edges is the final edge set.
	Edges []Edge

	// Failures lists the artifacts that could not be fully captured.
	Failures []Failure

	// Stats summarises the snapshot above.
	Stats ScanStats

	// Error holds the fatal abort reason for aborted sessions.
	Error string
}

// Ended reports whether the session has reached a terminal status.
func (s *ScanSession) Ended() bool {
	return s.Status == StatusCompleted || s.Status == StatusAborted
}

// Duration returns the wall-clock span of the session, using the
// current time while it is still running.
func (s *ScanSession) Duration() time.Duration {
	if s.EndedAt.IsZero() {
		return time.Since(s.StartedAt)
	}
	return s.EndedAt.Sub(s.StartedAt)
}

// Summary renders a one-line account of the session for logs.
func (s *ScanSession) Summary() string {
	return fmt.Sprintf("session %s %s: %d artifacts (%d fetched, %d stubs), %d edges, %d failed in %s",
		s.ID, s.Status, s.Stats.Artifacts, s.Stats.Fetched, s.Stats.Stubs,
		s.Stats.Edges, s.Stats.Failures, s.Duration().Round(time.Millisecond))
}
