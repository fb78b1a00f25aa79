package jira

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync/atomic"

	"github.com/custodia-labs/workspace-spider/internal/connectors/atlassian"
	"github.com/custodia-labs/workspace-spider/internal/core/domain"
	"github.com/custodia-labs/workspace-spider/internal/core/ports/driven"
	"github.com/custodia-labs/workspace-spider/internal/logger"
)

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// listLimit is the page size requested from the search endpoint. Jira
// Cloud clamps search pages at 100; pagination always trusts the echoed
// maxResults over the requested one.
const listLimit = 100

// defaultJQL seeds the scan with every visible issue in a stable order
// when no scope query is configured.
const defaultJQL = "order by created ASC"

// Field sets requested per call shape. Search pages stay lean; a fetch
// pulls everything the record and the link extractor consume.
const (
	listFields  = "summary,status,issuetype,updated"
	fetchFields = "summary,description,comment,issuelinks,assignee,reporter," +
		"status,issuetype,labels,created,updated,project"
)

// Connector fetches Jira issues through the Cloud v3 REST API.
type Connector struct {
	client      *atlassian.Client
	jql         string
	quarantined atomic.Int64
}

// New creates a Jira connector for the site in opts.BaseURL, scoped to
// the issues matching jql. An empty jql means every visible issue.
func New(opts atlassian.Options, jql string) (*Connector, error) {
	opts.Product = domain.SystemJira
	client, err := atlassian.NewClient(opts)
	if err != nil {
		return nil, err
	}
	if jql == "" {
		jql = defaultJQL
	}
	return &Connector{client: client, jql: jql}, nil
}

// System returns the product this connector serves.
func (c *Connector) System() domain.SourceSystem {
	return domain.SystemJira
}

// Validate checks connectivity and credentials against the identity
// endpoint, the cheapest call that exercises authentication.
func (c *Connector) Validate(ctx context.Context) error {
	var me userRef
	if err := c.client.GetJSON(ctx, "/rest/api/3/myself", nil, &me); err != nil {
		return fmt.Errorf("validate jira: %w", err)
	}
	return nil
}

// ListPage fetches one page of a listed collection. Issues are the only
// listable Jira collection; the scope query was fixed at construction,
// so parentID is ignored.
func (c *Connector) ListPage(
	ctx context.Context, resource domain.ResourceType, parentID, cursor string,
) (*driven.Page, error) {
	cur, err := atlassian.DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}

	switch resource {
	case domain.ResourceIssues:
		return c.listIssues(ctx, cur)
	default:
		return nil, fmt.Errorf("%w: jira cannot list %q", domain.ErrUnsupportedResource, resource)
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
	case domain.TypeIssue:
		return c.fetchIssue(ctx, id)
	default:
		return nil, fmt.Errorf("%w: jira cannot fetch %q", domain.ErrUnsupportedResource, artifactType)
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

func (c *Connector) listIssues(ctx context.Context, cur *atlassian.Cursor) (*driven.Page, error) {
	query := url.Values{
		"jql":        []string{c.jql},
		"startAt":    []string{strconv.Itoa(cur.Offset)},
		"maxResults": []string{strconv.Itoa(listLimit)},
		"fields":     []string{listFields},
	}
	var resp searchResponse
	if err := c.client.GetJSON(ctx, "/rest/api/3/search", query, &resp); err != nil {
		return nil, fmt.Errorf("search issues: %w", err)
	}

	records := make([]domain.Record, 0, len(resp.Issues))
	for i := range resp.Issues {
		rec, err := issueRecord(c.client.BaseURL(), &resp.Issues[i])
		if err != nil {
			c.quarantine(err)
			continue
		}
		records = append(records, *rec)
	}
	return &driven.Page{
		Records:    records,
		NextCursor: cur.Next(effectiveLimit(resp.MaxResults), len(resp.Issues), resp.Total),
	}, nil
}

// fetchIssue pulls one issue with its rich-text fields, then the remote
// links attached to it. Remote links ride along as raw URLs; whether
// they point back into the workspace is the extractor's call.
func (c *Connector) fetchIssue(ctx context.Context, key string) (*domain.Record, error) {
	query := url.Values{"fields": []string{fetchFields}}
	var resp issueResult
	path := "/rest/api/3/issue/" + url.PathEscape(key)
	if err := c.client.GetJSON(ctx, path, query, &resp); err != nil {
		return nil, fmt.Errorf("fetch issue %s: %w", key, err)
	}
	rec, err := issueRecord(c.client.BaseURL(), &resp)
	if err != nil {
		return nil, err
	}

	links, err := c.remoteLinks(ctx, key)
	if err != nil {
		// A broken remote-link listing costs link discovery for this
		// issue, not the issue itself. Fatal outcomes still abort.
		if atlassian.Classify(err) == atlassian.OutcomeFatal {
			return nil, err
		}
		logger.Warn("jira: remote links of %s unavailable: %v", key, err)
		return rec, nil
	}
	rec.Links = links
	return rec, nil
}

func (c *Connector) remoteLinks(ctx context.Context, key string) ([]string, error) {
	var resp []remoteLinkResult
	path := "/rest/api/3/issue/" + url.PathEscape(key) + "/remotelink"
	if err := c.client.GetJSON(ctx, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("remote links of %s: %w", key, err)
	}

	urls := make([]string, 0, len(resp))
	for _, link := range resp {
		if link.Object != nil && link.Object.URL != "" {
			urls = append(urls, link.Object.URL)
		}
	}
	return urls, nil
}

func (c *Connector) quarantine(err error) {
	c.quarantined.Add(1)
	logger.Warn("jira: dropping invalid payload: %v", err)
}

// effectiveLimit prefers the limit the server echoed, which may be
// lower than the one requested.
func effectiveLimit(echoed int) int {
	if echoed > 0 {
		return echoed
	}
	return listLimit
}
