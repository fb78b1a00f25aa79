package driven

import (
	"github.com/custodia-labs/workspace-spider/internal/core/domain"
)

// LinkExtractor parses a fetched content body and emits candidate
// cross-references. Hyperlinks matching the configured product base
// URLs are parsed into artifact keys; external links are discarded.
// Malformed content yields zero candidates and a logged parse failure,
// never an error that would abort the surrounding traversal.
type LinkExtractor interface {
	// Extract returns the candidate references found in body, which
	// belongs to the artifact identified by owner.
	Extract(owner domain.ArtifactKey, body *domain.Body) []domain.Reference

	// Resolve parses a single raw URL against the configured base URLs.
	// It reports false when the URL points outside the workspace or at a
	// path shape that does not map to an artifact.
	Resolve(rawURL string) (domain.Reference, bool)
}
