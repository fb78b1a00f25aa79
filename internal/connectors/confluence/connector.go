package confluence

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/custodia-labs/workspace-spider/internal/connectors/atlassian"
	"github.com/custodia-labs/workspace-spider/internal/core/domain"
	"github.com/custodia-labs/workspace-spider/internal/core/ports/driven"
	"github.com/custodia-labs/workspace-spider/internal/logger"
)

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// listLimit is the page size requested from listing endpoints. The API
// may clamp it lower (body.storage expansion caps content listings);
// continuation comes from the envelope's _links.next, never from the
// page size.
const listLimit = 100

// Connector fetches Confluence spaces, pages and attachments through
// the Cloud v1 REST API.
type Connector struct {
	client      *atlassian.Client
	quarantined atomic.Int64
}

// New creates a Confluence connector for the site in opts.BaseURL.
func New(opts atlassian.Options) (*Connector, error) {
	opts.Product = domain.SystemConfluence
	client, err := atlassian.NewClient(opts)
	if err != nil {
		return nil, err
	}
	return &Connector{client: client}, nil
}

// System returns the product this connector serves.
func (c *Connector) System() domain.SourceSystem {
	return domain.SystemConfluence
}

// Validate checks connectivity and credentials with a minimal listing.
func (c *Connector) Validate(ctx context.Context) error {
	query := url.Values{"limit": []string{"1"}}
	var resp spaceListResponse
	if err := c.client.GetJSON(ctx, "/rest/api/space", query, &resp); err != nil {
		return fmt.Errorf("validate confluence: %w", err)
	}
	return nil
}

// ListPage fetches one page of a listed collection.
func (c *Connector) ListPage(
	ctx context.Context, resource domain.ResourceType, parentID, cursor string,
) (*driven.Page, error) {
	cur, err := atlassian.DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}

	switch resource {
	case domain.ResourceSpaces:
		return c.listSpaces(ctx, cur)
	case domain.ResourcePages:
		if parentID == "" {
			return nil, fmt.Errorf("%w: page listing needs a space key", domain.ErrInvalidInput)
		}
		return c.listPages(ctx, parentID, cur)
	case domain.ResourceAttachments:
		if parentID == "" {
			return nil, fmt.Errorf("%w: attachment listing needs a page id", domain.ErrInvalidInput)
		}
		return c.listAttachments(ctx, parentID, cur)
	default:
		return nil, fmt.Errorf("%w: confluence cannot list %q", domain.ErrUnsupportedResource, resource)
	}
}

// FetchItem fetches a single artifact with full metadata.
func (c *Connector) FetchItem(
	ctx context.Context, artifactType domain.ArtifactType, id string,
) (*domain.Record, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty artifact id", domain.ErrInvalidInput)
	}

	switch artifactType {
	case domain.TypeSpace:
		return c.fetchSpace(ctx, id)
	case domain.TypePage:
		return c.fetchPage(ctx, id)
	case domain.TypeAttachment:
		return c.fetchAttachment(ctx, id)
	default:
		return nil, fmt.Errorf("%w: confluence cannot fetch %q", domain.ErrUnsupportedResource, artifactType)
	}
}

// Requests reports the number of HTTP calls issued so far.
func (c *Connector) Requests() int64 {
	return c.client.Requests()
}

// Quarantined reports how many payloads failed schema validation and
// were dropped from listings.
func (c *Connector) Quarantined() int64 {
	return c.quarantined.Load()
}

// Close releases the underlying HTTP client.
func (c *Connector) Close() error {
	return c.client.Close()
}

func (c *Connector) listSpaces(ctx context.Context, cur *atlassian.Cursor) (*driven.Page, error) {
	query := url.Values{
		"start": []string{strconv.Itoa(cur.Offset)},
		"limit": []string{strconv.Itoa(listLimit)},
	}
	var resp spaceListResponse
	if err := c.client.GetJSON(ctx, "/rest/api/space", query, &resp); err != nil {
		return nil, fmt.Errorf("list spaces: %w", err)
	}

	records := make([]domain.Record, 0, len(resp.Results))
	for i := range resp.Results {
		rec, err := spaceRecord(c.client.BaseURL(), &resp.Results[i])
		if err != nil {
			c.quarantine(err)
			continue
		}
		records = append(records, *rec)
	}
	return &driven.Page{
		Records:    records,
		NextCursor: nextCursor(cur, resp.Links.Next, len(resp.Results)),
	}, nil
}

// listPages discovers the pages of a space. Bodies are not expanded
// here: listings feed the frontier, and each page's body arrives with
// its own fetch.
func (c *Connector) listPages(ctx context.Context, spaceKey string, cur *atlassian.Cursor) (*driven.Page, error) {
	query := url.Values{
		"type":     []string{"page"},
		"spaceKey": []string{spaceKey},
		"status":   []string{"current"},
		"expand":   []string{"version"},
		"start":    []string{strconv.Itoa(cur.Offset)},
		"limit":    []string{strconv.Itoa(listLimit)},
	}
	var resp listResponse
	if err := c.client.GetJSON(ctx, "/rest/api/content", query, &resp); err != nil {
		return nil, fmt.Errorf("list pages of %s: %w", spaceKey, err)
	}

	records := make([]domain.Record, 0, len(resp.Results))
	for i := range resp.Results {
		rec, err := pageRecord(c.client.BaseURL(), &resp.Results[i])
		if err != nil {
			c.quarantine(err)
			continue
		}
		records = append(records, *rec)
	}
	return &driven.Page{
		Records:    records,
		NextCursor: nextCursor(cur, resp.Links.Next, len(resp.Results)),
	}, nil
}

func (c *Connector) listAttachments(ctx context.Context, pageID string, cur *atlassian.Cursor) (*driven.Page, error) {
	query := url.Values{
		"expand": []string{"version"},
		"start":  []string{strconv.Itoa(cur.Offset)},
		"limit":  []string{strconv.Itoa(listLimit)},
	}
	var resp listResponse
	path := "/rest/api/content/" + url.PathEscape(pageID) + "/child/attachment"
	if err := c.client.GetJSON(ctx, path, query, &resp); err != nil {
		return nil, fmt.Errorf("list attachments of %s: %w", pageID, err)
	}

	records := make([]domain.Record, 0, len(resp.Results))
	for i := range resp.Results {
		rec, err := attachmentRecord(c.client.BaseURL(), &resp.Results[i])
		if err != nil {
			c.quarantine(err)
			continue
		}
		records = append(records, *rec)
	}
	return &driven.Page{
		Records:    records,
		NextCursor: nextCursor(cur, resp.Links.Next, len(resp.Results)),
	}, nil
}

func (c *Connector) fetchSpace(ctx context.Context, key string) (*domain.Record, error) {
	var resp spaceResult
	path := "/rest/api/space/" + url.PathEscape(key)
	if err := c.client.GetJSON(ctx, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch space %s: %w", key, err)
	}
	return spaceRecord(c.client.BaseURL(), &resp)
}

func (c *Connector) fetchPage(ctx context.Context, id string) (*domain.Record, error) {
	query := url.Values{"expand": []string{"body.storage,version,space"}}
	var resp contentResult
	path := "/rest/api/content/" + url.PathEscape(id)
	if err := c.client.GetJSON(ctx, path, query, &resp); err != nil {
		return nil, fmt.Errorf("fetch page %s: %w", id, err)
	}
	return pageRecord(c.client.BaseURL(), &resp)
}

// fetchAttachment resolves either a real content ID or a page-scoped
// filename reference of the form "<pageID>/<filename>", the identity a
// body-embedded attachment link is discovered under.
func (c *Connector) fetchAttachment(ctx context.Context, id string) (*domain.Record, error) {
	if pageID, filename, ok := strings.Cut(id, "/"); ok {
		return c.resolveByFilename(ctx, pageID, filename)
	}

	query := url.Values{"expand": []string{"version,container"}}
	var resp contentResult
	path := "/rest/api/content/" + url.PathEscape(id)
	if err := c.client.GetJSON(ctx, path, query, &resp); err != nil {
		return nil, fmt.Errorf("fetch attachment %s: %w", id, err)
	}
	return attachmentRecord(c.client.BaseURL(), &resp)
}

// resolveByFilename looks an attachment up through its owning page's
// child listing with a filename filter. The record comes back keyed by
// the attachment's own content ID, so the traversal folds the by-name
// identity into the canonical one. A page or filename that does not
// exist surfaces as not-found, which the traversal records as a
// tombstone: a dangling by-name link is a fact worth keeping.
func (c *Connector) resolveByFilename(ctx context.Context, pageID, filename string) (*domain.Record, error) {
	query := url.Values{
		"filename": []string{filename},
		"expand":   []string{"version"},
	}
	var resp listResponse
	path := "/rest/api/content/" + url.PathEscape(pageID) + "/child/attachment"
	if err := c.client.GetJSON(ctx, path, query, &resp); err != nil {
		return nil, fmt.Errorf("resolve attachment %q on page %s: %w", filename, pageID, err)
	}
	if len(resp.Results) == 0 {
		return nil, fmt.Errorf("attachment %q on page %s: %w", filename, pageID, domain.ErrNotFound)
	}

	rec, err := attachmentRecord(c.client.BaseURL(), &resp.Results[0])
	if err != nil {
		return nil, err
	}
	rec.Metadata["container_id"] = pageID
	return rec, nil
}

func (c *Connector) quarantine(err error) {
	c.quarantined.Add(1)
	logger.Warn("confluence: dropping invalid payload: %v", err)
}

// nextCursor advances the pagination window only when the envelope
// names a following page. _links.next is authoritative: a listing ends
// exactly when it is absent, whatever the page size was.
func nextCursor(cur *atlassian.Cursor, next string, got int) string {
	if next == "" {
		return ""
	}
	return cur.Advance(got)
}
