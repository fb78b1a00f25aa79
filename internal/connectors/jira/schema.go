package jira

import (
	"encoding/json"
	"fmt"

	"github.com/custodia-labs/workspace-spider/internal/core/domain"
)

// API payload shapes for the Jira Cloud v3 REST API. Only the fields
// the spider consumes are declared; everything else is dropped during
// decoding. Rich-text fields stay raw ADF JSON for the link extractor.

// searchResponse is the envelope of /rest/api/3/search. Unlike the
// Confluence listings it reports the true collection total.
type searchResponse struct {
	StartAt    int           `json:"startAt"`
	MaxResults int           `json:"maxResults"`
	Total      int           `json:"total"`
	Issues     []issueResult `json:"issues"`
}

// issueResult is one issue payload from search or a direct fetch.
type issueResult struct {
	ID     string       `json:"id"`
	Key    string       `json:"key"`
	Fields *issueFields `json:"fields"`
}

type issueFields struct {
	Summary     string            `json:"summary"`
	Description json.RawMessage   `json:"description"`
	Status      *namedField       `json:"status"`
	IssueType   *namedField       `json:"issuetype"`
	Project     *projectRef       `json:"project"`
	Labels      []string          `json:"labels"`
	Created     string            `json:"created"`
	Updated     string            `json:"updated"`
	Reporter    *userRef          `json:"reporter"`
	Assignee    *userRef          `json:"assignee"`
	Comment     *commentContainer `json:"comment"`
	IssueLinks  []issueLink       `json:"issuelinks"`
}

// namedField covers the many Jira fields that are objects with a name,
// such as status and issuetype.
type namedField struct {
	Name string `json:"name"`
}

type projectRef struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// commentContainer is the embedded first page of an issue's comments.
type commentContainer struct {
	Comments []commentResult `json:"comments"`
	Total    int             `json:"total"`
}

type commentResult struct {
	ID     string          `json:"id"`
	Body   json.RawMessage `json:"body"`
	Author *userRef        `json:"author"`
}

// issueLink is one side of a typed issue-to-issue link. Exactly one of
// InwardIssue and OutwardIssue is set depending on the link direction.
type issueLink struct {
	Type         *issueLinkType `json:"type"`
	InwardIssue  *linkedIssue   `json:"inwardIssue"`
	OutwardIssue *linkedIssue   `json:"outwardIssue"`
}

type issueLinkType struct {
	Name string `json:"name"`
}

type linkedIssue struct {
	Key    string            `json:"key"`
	Fields *linkedIssueHints `json:"fields"`
}

type linkedIssueHints struct {
	Summary string `json:"summary"`
}

// userRef is an embedded principal. Jira Cloud identifies users by
// account ID; display name is a presentation field.
type userRef struct {
	AccountID    string `json:"accountId"`
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress"`
}

// remoteLinkResult is one entry of /rest/api/3/issue/{key}/remotelink.
// Only the target URL matters; the spider resolves it against the
// configured base URLs to decide whether it stays in the workspace.
type remoteLinkResult struct {
	ID     int64             `json:"id"`
	Object *remoteLinkObject `json:"object"`
}

type remoteLinkObject struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// issueRecord validates an issue payload into a domain record. The
// description and the embedded comments are folded into one ADF body
// for the link extractor; structured relations become typed references.
func issueRecord(base string, is *issueResult) (*domain.Record, error) {
	if is.Key == "" {
		return nil, fmt.Errorf("%w: issue without key", domain.ErrInvalidRecord)
	}
	if is.Fields == nil {
		return nil, fmt.Errorf("%w: issue %s without fields", domain.ErrInvalidRecord, is.Key)
	}
	if is.Fields.Summary == "" {
		return nil, fmt.Errorf("%w: issue %s without summary", domain.ErrInvalidRecord, is.Key)
	}

	f := is.Fields
	rec := &domain.Record{
		Key:   domain.ArtifactKey{System: domain.SystemJira, Type: domain.TypeIssue, ID: is.Key},
		URL:   base + "/browse/" + is.Key,
		Title: f.Summary,
		Metadata: map[string]any{
			"issue_id": is.ID,
		},
	}
	if f.Status != nil && f.Status.Name != "" {
		rec.Metadata["status"] = f.Status.Name
	}
	if f.IssueType != nil && f.IssueType.Name != "" {
		rec.Metadata["issue_type"] = f.IssueType.Name
	}
	if f.Project != nil && f.Project.Key != "" {
		rec.Metadata["project_key"] = f.Project.Key
	}
	if len(f.Labels) > 0 {
		rec.Metadata["labels"] = f.Labels
	}
	if f.Created != "" {
		rec.Metadata["created_at"] = f.Created
	}
	if f.Updated != "" {
		rec.Metadata["updated_at"] = f.Updated
	}

	if ref := principalRef(f.Reporter); ref != nil {
		rec.Refs = append(rec.Refs, *ref)
	}
	if ref := principalRef(f.Assignee); ref != nil {
		rec.Refs = append(rec.Refs, *ref)
	}
	for i := range f.IssueLinks {
		if ref := linkedIssueRef(&f.IssueLinks[i], base); ref != nil {
			rec.Refs = append(rec.Refs, *ref)
		}
	}

	parts := make([]json.RawMessage, 0, 1)
	if doc := adfDoc(f.Description); doc != nil {
		parts = append(parts, doc)
	}
	if f.Comment != nil {
		rec.Metadata["comments"] = f.Comment.Total
		for i := range f.Comment.Comments {
			com := &f.Comment.Comments[i]
			if doc := adfDoc(com.Body); doc != nil {
				parts = append(parts, doc)
			}
			if ref := principalRef(com.Author); ref != nil {
				rec.Refs = append(rec.Refs, *ref)
			}
		}
	}
	if len(parts) > 0 {
		content, err := json.Marshal(parts)
		if err != nil {
			return nil, fmt.Errorf("%w: issue %s body: %v", domain.ErrInvalidRecord, is.Key, err)
		}
		rec.Body = &domain.Body{Format: domain.FormatADF, Content: content}
	}
	return rec, nil
}

// linkedIssueRef turns one issue link into a linked_issue reference to
// whichever side of the link is the other issue.
func linkedIssueRef(link *issueLink, base string) *domain.Reference {
	other := link.InwardIssue
	if other == nil {
		other = link.OutwardIssue
	}
	if other == nil || other.Key == "" {
		return nil
	}
	ref := &domain.Reference{
		Relation: domain.RelationLinkedIssue,
		Target:   domain.ArtifactKey{System: domain.SystemJira, Type: domain.TypeIssue, ID: other.Key},
		URL:      base + "/browse/" + other.Key,
	}
	if other.Fields != nil {
		ref.Title = other.Fields.Summary
	}
	return ref
}

// principalRef builds a complete authored_by reference from an embedded
// principal. The payload already carries everything worth keeping about
// the user, so the target is registered as fetched and never expanded.
func principalRef(u *userRef) *domain.Reference {
	if u == nil || u.AccountID == "" {
		return nil
	}
	ref := &domain.Reference{
		Relation: domain.RelationAuthoredBy,
		Target:   domain.ArtifactKey{System: domain.SystemJira, Type: domain.TypeUser, ID: u.AccountID},
		Title:    u.DisplayName,
		Complete: true,
		Metadata: map[string]any{},
	}
	if u.DisplayName != "" {
		ref.Metadata["display_name"] = u.DisplayName
	}
	if u.EmailAddress != "" {
		ref.Metadata["email"] = u.EmailAddress
	}
	return ref
}

// adfDoc filters out absent rich-text fields, which arrive as JSON
// null rather than being omitted.
func adfDoc(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return raw
}
