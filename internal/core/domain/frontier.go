package domain

// ExpandReason records why an artifact key was queued for expansion.
type ExpandReason string

const (
	// ReasonSeed marks artifacts discovered by the top-level listings
	// (space listing, JQL search).
	ReasonSeed ExpandReason = "seed"

	// ReasonListed marks artifacts discovered through a parent's child
	// listing (pages of a space).
	ReasonListed ExpandReason = "listed"

	// ReasonReference marks artifacts reached through a content link.
	ReasonReference ExpandReason = "reference"

	// ReasonIssueLink marks issues reached through an issue-link field
	// or a bare issue-key token.
	ReasonIssueLink ExpandReason = "issue_link"

	// ReasonAttachmentRef marks attachments reached through an embedded
	// content reference rather than a listing.
	ReasonAttachmentRef ExpandReason = "attachment_ref"

	// ReasonResume marks artifacts re-queued from a stored session.
	ReasonResume ExpandReason = "resume"
)

// FrontierEntry is a pending expansion request. Entries leave the
// frontier once the artifact has been fetched and expanded, or marked
// failed. The traversal engine owns the frontier exclusively.
type FrontierEntry struct {
	// Key is the artifact awaiting expansion.
	Key ArtifactKey

	// Reason records why the entry was queued.
	Reason ExpandReason
}
