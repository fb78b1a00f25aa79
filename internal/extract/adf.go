package extract

import (
	"encoding/json"
	"strings"

	"github.com/custodia-labs/workspace-spider/internal/core/domain"
	"github.com/custodia-labs/workspace-spider/internal/logger"
)

// adfRefs walks an Atlassian Document Format body: a JSON tree of nodes
// with optional content arrays. Jira folds the description and the
// comment bodies into one top-level array; the walker treats arrays and
// documents alike. URLs arrive through inlineCard nodes and link marks,
// issue keys through the concatenated text.
func (e *Extractor) adfRefs(owner domain.ArtifactKey, content []byte) []domain.Reference {
	var doc any
	if err := json.Unmarshal(content, &doc); err != nil {
		logger.Warn("extract: unparseable ADF body of %s: %v", owner, err)
		return nil
	}

	var urls []string
	var text strings.Builder
	walkADF(doc, &urls, &text)

	var refs []domain.Reference
	for _, u := range urls {
		if ref, ok := e.resolveHref(owner, u); ok {
			refs = append(refs, ref)
		}
	}
	return append(refs, e.textRefs(text.String())...)
}

func walkADF(node any, urls *[]string, text *strings.Builder) {
	switch n := node.(type) {
	case []any:
		for _, child := range n {
			walkADF(child, urls, text)
		}

	case map[string]any:
		if t, ok := n["text"].(string); ok && t != "" {
			text.WriteString(t)
			text.WriteByte('\n')
		}
		if n["type"] == "inlineCard" {
			if u := attrURL(n, "url"); u != "" {
				*urls = append(*urls, u)
			}
		}
		if marks, ok := n["marks"].([]any); ok {
			for _, m := range marks {
				mark, ok := m.(map[string]any)
				if !ok || mark["type"] != "link" {
					continue
				}
				if u := attrURL(mark, "href"); u != "" {
					*urls = append(*urls, u)
				}
			}
		}
		if content, ok := n["content"].([]any); ok {
			walkADF(content, urls, text)
		}
	}
}

// attrURL reads one string attribute from a node's attrs object.
func attrURL(node map[string]any, key string) string {
	attrs, ok := node["attrs"].(map[string]any)
	if !ok {
		return ""
	}
	u, _ := attrs[key].(string)
	return u
}
