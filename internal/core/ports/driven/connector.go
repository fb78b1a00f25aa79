package driven

import (
	"context"

	"github.com/custodia-labs/workspace-spider/internal/core/domain"
)

// Page is one page of a listed collection.
type Page struct {
	// Records are the normalised items of this page, in API order.
	Records []domain.Record

	// NextCursor resumes the listing after this page. Empty when the
	// collection is exhausted.
	NextCursor string
}

// Connector is implemented once per product (Confluence, Jira). It
// issues paginated fetches against the product's REST API, normalises
// pagination into opaque cursors, validates payloads into domain
// records, and classifies every HTTP outcome.
//
// Transient outcomes (429, 502-504, connection resets) are retried
// internally with exponential backoff and jitter up to the configured
// cap; exhausting the cap surfaces an error matching
// domain.ErrRetryExhausted. Fatal outcomes (401/403, malformed
// requests) propagate immediately and match domain.ErrAuthFailed or
// domain.ErrInvalidInput. Remote absence matches domain.ErrNotFound.
//
// Every outbound call passes the product's rate limiter before being
// sent; backpressure is applied by delay, never by rejection.
type Connector interface {
	// System identifies the product this connector serves.
	System() domain.SourceSystem

	// Validate checks connectivity and credentials with a cheap call.
	Validate(ctx context.Context) error

	// ListPage fetches one page of a collection. An empty cursor means
	// the first page. parentID scopes child collections (the space key
	// for pages, the page ID for attachments) and is ignored for
	// top-level resources. Calling again with a returned cursor resumes
	// deterministically, assuming no concurrent upstream mutation.
	ListPage(ctx context.Context, resource domain.ResourceType, parentID, cursor string) (*Page, error)

	// FetchItem fetches a single artifact with full metadata and, for
	// content-bearing kinds, its extractable body.
	FetchItem(ctx context.Context, artifactType domain.ArtifactType, id string) (*domain.Record, error)

	// Requests reports the number of HTTP calls issued so far.
	Requests() int64

	// Close releases connector resources. Calls after Close fail with
	// domain.ErrConnectorClosed.
	Close() error
}
