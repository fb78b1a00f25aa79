package extract

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/custodia-labs/workspace-spider/internal/core/domain"
	"github.com/custodia-labs/workspace-spider/internal/core/ports/driven"
	"github.com/custodia-labs/workspace-spider/internal/logger"
)

// Ensure Extractor implements the interface.
var _ driven.LinkExtractor = (*Extractor)(nil)

var (
	issueKeyRe = regexp.MustCompile(`\b` + issueKeyPattern + `\b`)

	// urlRe harvests URLs sitting in plain text. Trailing sentence
	// punctuation is trimmed after the fact.
	urlRe = regexp.MustCompile(`https?://[^\s<>"')]+`)
)

// Extractor parses fetched content bodies and emits candidate
// references. One instance serves both products; the body format
// selects the parser.
type Extractor struct {
	matcher *Matcher
	// bases resolves site-relative hrefs against the owning product.
	bases map[domain.SourceSystem]*url.URL
	// jiraBase builds browse URLs for bare issue-key tokens; empty
	// when Jira is not part of the scan, which disables token matching.
	jiraBase string
}

// New builds an extractor for the products configured in cfg.
func New(cfg domain.ScanConfig) (*Extractor, error) {
	matcher, err := NewMatcher(cfg.Confluence.BaseURL, cfg.Jira.BaseURL)
	if err != nil {
		return nil, err
	}

	e := &Extractor{
		matcher:  matcher,
		bases:    make(map[domain.SourceSystem]*url.URL),
		jiraBase: cfg.Jira.BaseURL,
	}
	for system, base := range map[domain.SourceSystem]string{
		domain.SystemConfluence: cfg.Confluence.BaseURL,
		domain.SystemJira:       cfg.Jira.BaseURL,
	} {
		if base == "" {
			continue
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("%w: base URL %q: %v", domain.ErrInvalidInput, base, err)
		}
		e.bases[system] = u
	}
	return e, nil
}

// Extract returns the candidate references found in body. Malformed
// content yields zero candidates and a logged parse failure; the
// surrounding traversal never aborts on bad content.
func (e *Extractor) Extract(owner domain.ArtifactKey, body *domain.Body) []domain.Reference {
	if body == nil || len(body.Content) == 0 {
		return nil
	}

	var refs []domain.Reference
	switch body.Format {
	case domain.FormatStorage:
		refs = e.storageRefs(owner, body.Content)
	case domain.FormatADF:
		refs = e.adfRefs(owner, body.Content)
	case domain.FormatText:
		refs = e.textRefs(string(body.Content))
	default:
		logger.Warn("extract: %s has unknown body format %q", owner, body.Format)
		return nil
	}
	return dedupe(refs)
}

// Resolve parses a single raw URL, such as a Jira remote link, against
// the configured base URLs.
func (e *Extractor) Resolve(rawURL string) (domain.Reference, bool) {
	return e.matcher.Match(rawURL)
}

// resolveHref normalises one href from content: site-relative paths are
// resolved against the owning product's base, then matched. Fragments,
// mailto and javascript pseudo-links are dropped early.
func (e *Extractor) resolveHref(owner domain.ArtifactKey, href string) (domain.Reference, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return domain.Reference{}, false
	}
	if strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "javascript:") {
		return domain.Reference{}, false
	}

	if strings.HasPrefix(href, "/") {
		base, ok := e.bases[owner.System]
		if !ok {
			return domain.Reference{}, false
		}
		ref, err := url.Parse(href)
		if err != nil {
			return domain.Reference{}, false
		}
		href = base.ResolveReference(ref).String()
	}
	return e.matcher.Match(href)
}

// textRefs scans free text: URLs first, then issue-key tokens over the
// remaining text so a pasted browse URL does not count twice.
func (e *Extractor) textRefs(text string) []domain.Reference {
	if text == "" {
		return nil
	}

	var refs []domain.Reference
	remainder := urlRe.ReplaceAllStringFunc(text, func(match string) string {
		if ref, ok := e.matcher.Match(strings.TrimRight(match, ".,;:!?")); ok {
			refs = append(refs, ref)
		}
		return " "
	})

	if e.jiraBase == "" {
		return refs
	}
	for _, key := range issueKeyRe.FindAllString(remainder, -1) {
		refs = append(refs, domain.Reference{
			Relation: domain.RelationLinkedIssue,
			Target:   domain.ArtifactKey{System: domain.SystemJira, Type: domain.TypeIssue, ID: key},
			URL:      e.jiraBase + "/browse/" + key,
		})
	}
	return refs
}

// dedupe drops repeated (relation, target) pairs, keeping the first
// sighting and its hints. Order is preserved.
func dedupe(refs []domain.Reference) []domain.Reference {
	if len(refs) < 2 {
		return refs
	}
	seen := make(map[string]struct{}, len(refs))
	out := refs[:0]
	for _, ref := range refs {
		id := string(ref.Relation) + "|" + ref.Target.String()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, ref)
	}
	return out
}
