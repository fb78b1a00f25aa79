package extract

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/custodia-labs/workspace-spider/internal/core/domain"
	"github.com/custodia-labs/workspace-spider/internal/logger"
)

// storageRefs walks a Confluence storage-format body. Storage format is
// XHTML with ac: and ri: namespaced extension elements; the HTML parser
// keeps those as ordinary unknown elements, so plain anchors go through
// goquery selectors and the namespaced elements through a raw node walk.
func (e *Extractor) storageRefs(owner domain.ArtifactKey, content []byte) []domain.Reference {
	root, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		logger.Warn("extract: unparseable storage body of %s: %v", owner, err)
		return nil
	}

	var refs []domain.Reference
	doc := goquery.NewDocumentFromNode(root)
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		ref, ok := e.resolveHref(owner, href)
		if !ok {
			return
		}
		if ref.Title == "" {
			ref.Title = strings.TrimSpace(sel.Text())
		}
		refs = append(refs, ref)
	})

	var text strings.Builder
	walkStorage(root, owner, e, &refs, &text)
	return append(refs, e.textRefs(text.String())...)
}

// walkStorage visits every node once, collecting the extension elements
// and the text content in document order.
func walkStorage(n *html.Node, owner domain.ArtifactKey, e *Extractor, refs *[]domain.Reference, text *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		if t := strings.TrimSpace(n.Data); t != "" {
			text.WriteString(t)
			text.WriteByte('\n')
		}

	case html.ElementNode:
		switch n.Data {
		case "ri:attachment":
			if ref, ok := attachmentRef(owner, attr(n, "ri:filename")); ok {
				*refs = append(*refs, ref)
			}
		case "ac:structured-macro":
			if attr(n, "ac:name") == "inline-card" {
				if ref, ok := e.resolveHref(owner, attr(n, "data-card-url")); ok {
					*refs = append(*refs, ref)
				}
			}
		}
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		walkStorage(child, owner, e, refs, text)
	}
}

// attachmentRef builds the page-scoped identity a body-embedded
// attachment link is discovered under. Only pages embed ri:attachment.
func attachmentRef(owner domain.ArtifactKey, filename string) (domain.Reference, bool) {
	if filename == "" || owner.System != domain.SystemConfluence || owner.Type != domain.TypePage {
		return domain.Reference{}, false
	}
	return domain.Reference{
		Relation: domain.RelationAttachedTo,
		Target: domain.ArtifactKey{
			System: domain.SystemConfluence,
			Type:   domain.TypeAttachment,
			ID:     owner.ID + "/" + filename,
		},
		Title: filename,
	}, true
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
