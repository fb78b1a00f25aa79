package atlassian

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/custodia-labs/workspace-spider/internal/core/domain"
)

// CursorVersion is the current cursor format version.
const CursorVersion = 1

// Cursor normalises Confluence start/limit and Jira startAt/maxResults
// pagination into one opaque resume token. A cursor handed back to
// ListPage resumes the listing deterministically at the same offset.
type Cursor struct {
	// Version is the cursor format version for future compatibility.
	Version int `json:"v"`
	// Offset is the index of the first item of the next page.
	Offset int `json:"offset"`
}

// NewCursor creates a cursor positioned at the start of a collection.
func NewCursor() *Cursor {
	return &Cursor{Version: CursorVersion}
}

// Encode serialises the cursor to a base64 string for callers to hold.
func (c *Cursor) Encode() string {
	data, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeCursor deserialises a cursor. An empty string is the first page.
func DecodeCursor(s string) (*Cursor, error) {
	if s == "" {
		return NewCursor(), nil
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidCursor, s)
	}

	var cursor Cursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidCursor, s)
	}

	// Version check for future migrations
	if cursor.Version > CursorVersion || cursor.Offset < 0 {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidCursor, s)
	}

	return &cursor, nil
}

// Next returns the encoded cursor for the page following this one, or
// an empty string when the collection is exhausted. A collection is
// exhausted when the page came back short, or when the reported total
// is already covered (total < 0 means the API reported none).
func (c *Cursor) Next(pageSize, got, total int) string {
	if got == 0 || got < pageSize {
		return ""
	}
	next := &Cursor{Version: CursorVersion, Offset: c.Offset + got}
	if total >= 0 && next.Offset >= total {
		return ""
	}
	return next.Encode()
}

// Advance returns the encoded cursor positioned got results past this
// one, with no exhaustion check. Callers use it with envelopes that
// report continuation themselves, such as Confluence's _links.next.
func (c *Cursor) Advance(got int) string {
	next := &Cursor{Version: CursorVersion, Offset: c.Offset + got}
	return next.Encode()
}
