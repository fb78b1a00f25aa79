// Package confluence implements the discovery connector for Confluence
// Cloud sites.
//
// The connector serves three listed collections and three fetchable
// artifact kinds:
//
//   - spaces: /rest/api/space, paginated with start/limit
//   - pages of a space: /rest/api/content filtered by spaceKey. Page
//     listings expand only the version (for authorship); bodies arrive
//     with each page's individual fetch, which expands body.storage
//     for the link extractor
//   - attachments of a page: /rest/api/content/{id}/child/attachment,
//     complete records that never need a follow-up fetch
//
// Single fetches cover spaces by key, pages by content ID, and
// attachments by content ID or by a page-scoped filename reference
// ("<pageID>/<filename>"), the identity a body-embedded attachment
// link is first discovered under. Filename references resolve through
// the owning page's attachment listing with a filename filter; the
// record comes back keyed by the attachment's own content ID, letting
// the traversal fold the by-name identity into the canonical one. An
// empty result maps to domain.ErrNotFound so the traversal can
// tombstone the dangling link.
//
// # Pagination
//
// Confluence reports continuation through the envelope's _links.next.
// Cursors returned by ListPage advance by the number of results
// received and go empty exactly when _links.next is absent; the page
// size, which the server may clamp below the requested one, never
// decides exhaustion.
//
// # References
//
// Records carry structured references the payload already proves:
// version authors become complete authored_by user references.
// Containment and attachment edges are derived by the traversal from
// the listing call that produced the record, and everything embedded
// in page bodies is the link extractor's concern.
package confluence
