package domain

// Relation classifies a directed edge between two artifacts.
type Relation string

const (
	// RelationContains links a container to a member, e.g. a space to
	// one of its pages.
	RelationContains Relation = "contains"

	// RelationReferences links content to an artifact it hyperlinks.
	RelationReferences Relation = "references"

	// RelationAttachedTo links a page or issue to one of its attachments.
	RelationAttachedTo Relation = "attached_to"

	// RelationAuthoredBy links an artifact to the user who authored its
	// current version.
	RelationAuthoredBy Relation = "authored_by"

	// RelationLinkedIssue links content to a Jira issue named by key,
	// either through an issue-link field or a bare issue-key token.
	RelationLinkedIssue Relation = "linked_issue"
)

// Valid reports whether the relation is one of the known kinds.
func (r Relation) Valid() bool {
	switch r {
	case RelationContains, RelationReferences, RelationAttachedTo,
		RelationAuthoredBy, RelationLinkedIssue:
		return true
	}
	return false
}

// Edge is a directed relation between two artifacts. Edges form a set:
// the registry treats duplicate (From, To, Relation) triples as no-ops.
// Self-loops are permitted but never cause re-traversal.
type Edge struct {
	// From is the key of the artifact the relation originates at.
	From ArtifactKey

	// To is the key of the artifact the relation points to.
	// May reference a stub that has not been fetched yet.
	To ArtifactKey

	// Relation classifies the link.
	Relation Relation
}

// Reference is a candidate link discovered while expanding an artifact,
// before the target has been resolved in the registry. Connectors emit
// references for structured payload fields (issue links, attachment
// listings, authors) and the link extractor emits them for content bodies.
type Reference struct {
	// Relation the edge will carry once the target is registered.
	Relation Relation

	// Target is the parsed artifact key the reference points at.
	Target ArtifactKey

	// URL is a display hint for the stub, when the reference carried one.
	URL string

	// Title is a display hint for the stub, when the reference carried one.
	Title string

	// Complete marks references whose target record is already fully
	// known from the surrounding payload (embedded users, listed
	// attachments). Complete targets are registered as fetched and
	// never enqueued for expansion.
	Complete bool

	// Metadata carries the target's fields for complete references.
	Metadata map[string]any
}
