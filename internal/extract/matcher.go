package extract

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/custodia-labs/workspace-spider/internal/core/domain"
)

// issueKeyPattern matches a Jira issue key like ENG-42. Keys are at
// least two characters before the dash and always start with a letter.
const issueKeyPattern = `[A-Z][A-Z0-9]+-[0-9]+`

var issueKeyExact = regexp.MustCompile(`^` + issueKeyPattern + `$`)

// Matcher parses workspace URLs into artifact keys. Only URLs under the
// configured product base URLs match; everything else is external and
// discarded by the caller.
type Matcher struct {
	products []productBase
}

type productBase struct {
	system domain.SourceSystem
	host   string
	// path is the base path prefix, e.g. "/wiki" on a cloud Confluence
	// site, empty when the product is served at the host root.
	path string
}

// NewMatcher builds a matcher for the given product base URLs. An empty
// base URL disables that product's shapes.
func NewMatcher(confluenceBase, jiraBase string) (*Matcher, error) {
	m := &Matcher{}
	for _, p := range []struct {
		system domain.SourceSystem
		base   string
	}{
		{domain.SystemConfluence, confluenceBase},
		{domain.SystemJira, jiraBase},
	} {
		if p.base == "" {
			continue
		}
		u, err := url.Parse(p.base)
		if err != nil || !u.IsAbs() || u.Host == "" {
			return nil, fmt.Errorf("%w: base URL %q is not absolute", domain.ErrInvalidInput, p.base)
		}
		m.products = append(m.products, productBase{
			system: p.system,
			host:   strings.ToLower(u.Host),
			path:   strings.TrimRight(u.Path, "/"),
		})
	}
	return m, nil
}

// Match parses an absolute URL against the configured bases. It reports
// false for external URLs and for in-base paths that do not map onto an
// artifact, such as tiny links and title-addressed pages.
func (m *Matcher) Match(rawURL string) (domain.Reference, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return domain.Reference{}, false
	}
	host := strings.ToLower(u.Host)

	for _, p := range m.products {
		if p.host != host {
			continue
		}
		if ref, ok := matchShape(p, u, rawURL); ok {
			return ref, true
		}
	}
	return domain.Reference{}, false
}

// matchShape parses the product-specific path shapes. Confluence and
// Jira usually share one cloud host, so both shape sets are tried for
// whichever product claims the host; the shapes are disjoint.
func matchShape(p productBase, u *url.URL, raw string) (domain.Reference, bool) {
	path := strings.TrimPrefix(u.Path, p.path)
	// Cloud sites serve Confluence under /wiki whether or not the
	// configured base carries it.
	path = strings.TrimPrefix(path, "/wiki")

	segs := strings.Split(strings.Trim(path, "/"), "/")
	if len(segs) == 0 || segs[0] == "" {
		return domain.Reference{}, false
	}

	switch p.system {
	case domain.SystemConfluence:
		return confluenceShape(segs, u, raw)
	case domain.SystemJira:
		return jiraShape(segs, raw)
	}
	return domain.Reference{}, false
}

func confluenceShape(segs []string, u *url.URL, raw string) (domain.Reference, bool) {
	switch segs[0] {
	case "spaces":
		if len(segs) < 2 || segs[1] == "" {
			return domain.Reference{}, false
		}
		if len(segs) == 2 || (len(segs) == 3 && segs[2] == "overview") {
			return reference(domain.RelationReferences, domain.SystemConfluence, domain.TypeSpace, segs[1], raw), true
		}
		if len(segs) >= 4 && segs[2] == "pages" && allDigits(segs[3]) {
			return reference(domain.RelationReferences, domain.SystemConfluence, domain.TypePage, segs[3], raw), true
		}

	case "pages":
		if len(segs) >= 2 && segs[1] == "viewpage.action" {
			if id := u.Query().Get("pageId"); allDigits(id) {
				return reference(domain.RelationReferences, domain.SystemConfluence, domain.TypePage, id, raw), true
			}
		}

	case "download":
		// /download/attachments/{pageID}/{filename} carries the
		// page-scoped identity an attachment is discovered under.
		if len(segs) >= 4 && segs[1] == "attachments" && allDigits(segs[2]) && segs[3] != "" {
			ref := reference(domain.RelationAttachedTo, domain.SystemConfluence,
				domain.TypeAttachment, segs[2]+"/"+segs[3], raw)
			ref.Title = segs[3]
			return ref, true
		}
	}
	return domain.Reference{}, false
}

func jiraShape(segs []string, raw string) (domain.Reference, bool) {
	if segs[0] == "browse" && len(segs) >= 2 && issueKeyExact.MatchString(segs[1]) {
		return reference(domain.RelationReferences, domain.SystemJira, domain.TypeIssue, segs[1], raw), true
	}
	return domain.Reference{}, false
}

func reference(rel domain.Relation, system domain.SourceSystem, t domain.ArtifactType, id, raw string) domain.Reference {
	return domain.Reference{
		Relation: rel,
		Target:   domain.ArtifactKey{System: system, Type: t, ID: id},
		URL:      raw,
	}
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
