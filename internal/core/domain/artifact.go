package domain

import "fmt"

// SourceSystem identifies the product an artifact was discovered in.
type SourceSystem string

const (
	// SystemConfluence is the Confluence wiki product.
	SystemConfluence SourceSystem = "confluence"

	// SystemJira is the Jira issue tracker product.
	SystemJira SourceSystem = "jira"
)

// Valid reports whether the source system is a known product.
func (s SourceSystem) Valid() bool {
	return s == SystemConfluence || s == SystemJira
}

// ArtifactType classifies a discovered artifact.
type ArtifactType string

const (
	// TypeSpace is a Confluence space.
	TypeSpace ArtifactType = "space"

	// TypePage is a Confluence page.
	TypePage ArtifactType = "page"

	// TypeIssue is a Jira issue.
	TypeIssue ArtifactType = "issue"

	// TypeAttachment is a file attached to a page or issue.
	TypeAttachment ArtifactType = "attachment"

	// TypeUser is a workspace principal referenced as an author.
	TypeUser ArtifactType = "user"
)

// Valid reports whether the artifact type is one of the known kinds.
func (t ArtifactType) Valid() bool {
	switch t {
	case TypeSpace, TypePage, TypeIssue, TypeAttachment, TypeUser:
		return true
	}
	return false
}

// ArtifactKey uniquely identifies an artifact for the lifetime of a
// scan session. The registry never holds two entries for the same key.
type ArtifactKey struct {
	// System is the product the artifact lives in.
	System SourceSystem

	// Type classifies the artifact.
	Type ArtifactType

	// ID is unique within (System, Type). For pages and attachments this
	// is the Confluence content ID; for issues the Jira issue key; for
	// spaces the space key; for users the account ID.
	ID string
}

// String renders the key in system/type/id form for logs and reports.
func (k ArtifactKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.System, k.Type, k.ID)
}

// Validate checks the key identifies a real artifact slot.
func (k ArtifactKey) Validate() error {
	if !k.System.Valid() {
		return fmt.Errorf("%w: unknown source system %q", ErrInvalidInput, k.System)
	}
	if !k.Type.Valid() {
		return fmt.Errorf("%w: unknown artifact type %q", ErrInvalidInput, k.Type)
	}
	if k.ID == "" {
		return fmt.Errorf("%w: empty artifact id", ErrInvalidInput)
	}
	return nil
}

// IsZero reports whether the key is the zero value.
func (k ArtifactKey) IsZero() bool {
	return k.System == "" && k.Type == "" && k.ID == ""
}

// Artifact represents a discovered workspace entity.
// Artifacts start life as stubs (Fetched=false) when first reached through
// a reference, and gain full metadata once their own fetch completes.
type Artifact struct {
	// Key uniquely identifies the artifact within a session.
	Key ArtifactKey

	// URL is the canonical browse URL. Empty until resolved.
	URL string

	// Title is the human-readable name. Empty until resolved.
	Title string

	// Fetched is true once full metadata has been retrieved, or once the
	// artifact has been tombstoned. False for stubs awaiting expansion.
	Fetched bool

	// Tombstoned marks an artifact whose fetch permanently failed
	// (remote returned not-found). Tombstones carry no metadata.
	Tombstoned bool

	// Metadata holds product-specific scalar fields, merged
	// union-of-fields on re-discovery.
	Metadata map[string]any
}

// Clone returns a deep copy so callers can hand artifacts across
// goroutines without sharing the metadata map.
func (a *Artifact) Clone() *Artifact {
	dup := *a
	if a.Metadata != nil {
		dup.Metadata = make(map[string]any, len(a.Metadata))
		for k, v := range a.Metadata {
			dup.Metadata[k] = v
		}
	}
	return &dup
}

// Merge folds a fetched record into the artifact using union-of-fields
// semantics: incoming values overwrite stale ones, fields absent from the
// incoming record are preserved. A stub created from a bare link keeps
// anything it already learned while gaining the full metadata.
func (a *Artifact) Merge(rec *Record) {
	if rec.URL != "" {
		a.URL = rec.URL
	}
	if rec.Title != "" {
		a.Title = rec.Title
	}
	if len(rec.Metadata) > 0 {
		if a.Metadata == nil {
			a.Metadata = make(map[string]any, len(rec.Metadata))
		}
		for k, v := range rec.Metadata {
			a.Metadata[k] = v
		}
	}
	a.Fetched = true
}
