package domain

import "errors"

// Domain errors represent discovery failures the engine reasons about.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates the remote returned a permanent absence
	// (404/410) for an artifact. The engine tombstones the artifact.
	ErrNotFound = errors.New("not found")

	// ErrAuthFailed indicates the configured principal was rejected
	// (401/403). Fatal: the scan aborts and returns partial state.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrRateLimited indicates the API rate limit was exceeded.
	// Transient: retried inside the connector with backoff.
	ErrRateLimited = errors.New("rate limited")

	// ErrRetryExhausted indicates a transient failure outlived the retry
	// budget. The artifact is recorded failed and left unexpanded.
	ErrRetryExhausted = errors.New("retry budget exhausted")

	// ErrInvalidCursor indicates a pagination cursor could not be decoded.
	ErrInvalidCursor = errors.New("invalid cursor")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidRecord indicates an API payload failed schema validation
	// at the connector boundary. The record is quarantined, not returned.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrUnsupportedResource indicates a connector was asked for a
	// resource or artifact type it does not serve.
	ErrUnsupportedResource = errors.New("unsupported resource")

	// ErrSessionEnded indicates a mutation was attempted on a session
	// that has already completed or aborted.
	ErrSessionEnded = errors.New("session already ended")

	// ErrScanInProgress indicates a scan is already running.
	ErrScanInProgress = errors.New("scan in progress")

	// ErrConnectorClosed indicates the connector has been closed.
	ErrConnectorClosed = errors.New("connector closed")
)
