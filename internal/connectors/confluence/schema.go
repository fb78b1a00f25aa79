package confluence

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/workspace-spider/internal/core/domain"
)

// API payload shapes for the Confluence Cloud v1 REST API. Only the
// fields the spider consumes are declared; everything else is dropped
// during decoding.

// listResponse is the envelope of every paginated Confluence listing.
type listResponse struct {
	Results []contentResult `json:"results"`
	Links   envelopeLinks   `json:"_links"`
}

// spaceListResponse is the envelope of /rest/api/space.
type spaceListResponse struct {
	Results []spaceResult `json:"results"`
	Links   envelopeLinks `json:"_links"`
}

// envelopeLinks is the envelope-level _links block. Next names the
// following page and is absent on the last one.
type envelopeLinks struct {
	Next string `json:"next"`
}

// spaceResult is one space payload.
type spaceResult struct {
	ID    int64    `json:"id"`
	Key   string   `json:"key"`
	Name  string   `json:"name"`
	Type  string   `json:"type"`
	Links *webLink `json:"_links"`
}

// contentResult is one content payload: a page or an attachment,
// distinguished by Type.
type contentResult struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Status     string          `json:"status"`
	Title      string          `json:"title"`
	Space      *spaceResult    `json:"space"`
	Body       *contentBody    `json:"body"`
	Version    *contentVersion `json:"version"`
	Container  *containerRef   `json:"container"`
	Extensions *extensions     `json:"extensions"`
	Links      *webLink        `json:"_links"`
}

type contentBody struct {
	Storage *bodyRepresentation `json:"storage"`
}

type bodyRepresentation struct {
	Value          string `json:"value"`
	Representation string `json:"representation"`
}

type contentVersion struct {
	Number int      `json:"number"`
	When   string   `json:"when"`
	By     *userRef `json:"by"`
}

// userRef is an embedded principal. Confluence Cloud identifies users
// by account ID; display name is a presentation field.
type userRef struct {
	AccountID   string `json:"accountId"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

type containerRef struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title"`
}

type extensions struct {
	MediaType string `json:"mediaType"`
	FileSize  int64  `json:"fileSize"`
}

type webLink struct {
	WebUI    string `json:"webui"`
	Download string `json:"download"`
}

// spaceRecord validates a space payload into a domain record.
func spaceRecord(base string, s *spaceResult) (*domain.Record, error) {
	if s.Key == "" {
		return nil, fmt.Errorf("%w: space without key", domain.ErrInvalidRecord)
	}
	if s.Name == "" {
		return nil, fmt.Errorf("%w: space %s without name", domain.ErrInvalidRecord, s.Key)
	}

	return &domain.Record{
		Key:   domain.ArtifactKey{System: domain.SystemConfluence, Type: domain.TypeSpace, ID: s.Key},
		URL:   webURL(base, s.Links, "/spaces/"+s.Key),
		Title: s.Name,
		Metadata: map[string]any{
			"space_type": s.Type,
		},
	}, nil
}

// pageRecord validates a page payload into a domain record. The body,
// when expanded, rides along for the link extractor; the version author
// becomes a complete user reference.
func pageRecord(base string, c *contentResult) (*domain.Record, error) {
	if c.ID == "" {
		return nil, fmt.Errorf("%w: page without id", domain.ErrInvalidRecord)
	}
	if c.Type != "page" {
		return nil, fmt.Errorf("%w: content %s has type %q, want page", domain.ErrInvalidRecord, c.ID, c.Type)
	}
	if c.Title == "" {
		return nil, fmt.Errorf("%w: page %s without title", domain.ErrInvalidRecord, c.ID)
	}

	rec := &domain.Record{
		Key:   domain.ArtifactKey{System: domain.SystemConfluence, Type: domain.TypePage, ID: c.ID},
		URL:   webURL(base, c.Links, "/pages/viewpage.action?pageId="+c.ID),
		Title: c.Title,
		Metadata: map[string]any{
			"status": c.Status,
		},
	}
	if c.Space != nil && c.Space.Key != "" {
		rec.Metadata["space_key"] = c.Space.Key
	}
	if c.Version != nil {
		rec.Metadata["version"] = c.Version.Number
		if c.Version.When != "" {
			rec.Metadata["updated_at"] = c.Version.When
		}
		if ref := authorRef(c.Version.By); ref != nil {
			rec.Refs = append(rec.Refs, *ref)
		}
	}
	if c.Body != nil && c.Body.Storage != nil && c.Body.Storage.Value != "" {
		rec.Body = &domain.Body{
			Format:  domain.FormatStorage,
			Content: []byte(c.Body.Storage.Value),
		}
	}
	return rec, nil
}

// attachmentRecord validates an attachment payload into a domain
// record. The record is always keyed by the attachment's own content
// ID, whichever identity the fetch was reached through; the traversal
// folds filename references into that key.
func attachmentRecord(base string, c *contentResult) (*domain.Record, error) {
	if c.ID == "" {
		return nil, fmt.Errorf("%w: attachment without id", domain.ErrInvalidRecord)
	}
	if c.Type != "attachment" {
		return nil, fmt.Errorf("%w: content %s has type %q, want attachment", domain.ErrInvalidRecord, c.ID, c.Type)
	}
	if c.Title == "" {
		return nil, fmt.Errorf("%w: attachment %s without filename", domain.ErrInvalidRecord, c.ID)
	}

	rec := &domain.Record{
		Key:   domain.ArtifactKey{System: domain.SystemConfluence, Type: domain.TypeAttachment, ID: c.ID},
		URL:   webURL(base, c.Links, ""),
		Title: c.Title,
		Metadata: map[string]any{
			"filename": c.Title,
		},
	}
	if c.Extensions != nil {
		if c.Extensions.MediaType != "" {
			rec.Metadata["media_type"] = c.Extensions.MediaType
		}
		if c.Extensions.FileSize > 0 {
			rec.Metadata["file_size"] = c.Extensions.FileSize
		}
	}
	if c.Container != nil && c.Container.ID != "" {
		rec.Metadata["container_id"] = c.Container.ID
	}
	if c.Version != nil {
		if c.Version.When != "" {
			rec.Metadata["updated_at"] = c.Version.When
		}
		if ref := authorRef(c.Version.By); ref != nil {
			rec.Refs = append(rec.Refs, *ref)
		}
	}
	return rec, nil
}

// authorRef builds a complete authored_by reference from an embedded
// principal. The payload already carries everything worth keeping about
// the user, so the target is registered as fetched and never expanded.
func authorRef(by *userRef) *domain.Reference {
	if by == nil || by.AccountID == "" {
		return nil
	}
	ref := &domain.Reference{
		Relation: domain.RelationAuthoredBy,
		Target:   domain.ArtifactKey{System: domain.SystemConfluence, Type: domain.TypeUser, ID: by.AccountID},
		Title:    by.DisplayName,
		Complete: true,
		Metadata: map[string]any{},
	}
	if by.DisplayName != "" {
		ref.Metadata["display_name"] = by.DisplayName
	}
	if by.Email != "" {
		ref.Metadata["email"] = by.Email
	}
	return ref
}

// webURL resolves a _links block against the site base URL, falling
// back to the given path. Download links win over webui for
// attachments since that is the URL content actually embeds.
func webURL(base string, links *webLink, fallback string) string {
	if links != nil {
		if links.WebUI != "" {
			return base + ensureLeadingSlash(links.WebUI)
		}
		if links.Download != "" {
			return base + ensureLeadingSlash(links.Download)
		}
	}
	if fallback == "" {
		return ""
	}
	return base + fallback
}

func ensureLeadingSlash(p string) string {
	if strings.HasPrefix(p, "/") {
		return p
	}
	return "/" + p
}
