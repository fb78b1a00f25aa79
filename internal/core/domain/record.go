package domain

// BodyFormat identifies the markup of a fetched content body.
type BodyFormat string

const (
	// FormatStorage is Confluence storage format, an XHTML dialect with
	// ac: and ri: namespaced extension elements.
	FormatStorage BodyFormat = "storage"

	// FormatADF is the Atlassian Document Format, a JSON document tree
	// used for Jira descriptions and comments.
	FormatADF BodyFormat = "adf"

	// FormatText is plain text with no markup.
	FormatText BodyFormat = "text"
)

// Body is the extractable content of a fetched artifact.
type Body struct {
	// Format tells the link extractor how to parse Content.
	Format BodyFormat

	// Content is the raw body, encoded per Format.
	Content []byte
}

// Record is the normalised form of a single fetched or listed artifact,
// produced by a connector after schema validation. Raw API payloads never
// cross the connector boundary.
type Record struct {
	// Key identifies the artifact the record describes.
	Key ArtifactKey

	// URL is the canonical browse URL.
	URL string

	// Title is the human-readable name.
	Title string

	// Metadata holds validated product-specific scalar fields.
	Metadata map[string]any

	// Body carries extractable content, nil when the artifact kind has
	// none (spaces, attachments, users).
	Body *Body

	// Refs are references already typed by the connector from structured
	// payload fields: containment, issue links, authors, listed
	// attachments. Content-embedded links are the extractor's job.
	Refs []Reference

	// Links are raw URLs harvested from structured payload fields that
	// still need base-URL resolution, such as Jira remote links. The
	// extractor decides whether each one points inside the workspace.
	Links []string
}

// ResourceType names a listable remote collection.
type ResourceType string

const (
	// ResourceSpaces lists Confluence spaces.
	ResourceSpaces ResourceType = "spaces"

	// ResourcePages lists the pages of one space (parent = space key).
	ResourcePages ResourceType = "pages"

	// ResourceAttachments lists the attachments of one page
	// (parent = page ID).
	ResourceAttachments ResourceType = "attachments"

	// ResourceIssues lists issues matching the configured JQL scope.
	ResourceIssues ResourceType = "issues"
)
