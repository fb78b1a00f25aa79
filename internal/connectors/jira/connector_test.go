package jira

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/workspace-spider/internal/connectors/atlassian"
	"github.com/custodia-labs/workspace-spider/internal/core/domain"
)

func newTestConnector(t *testing.T, jql string, handler http.Handler) *Connector {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	conn, err := New(atlassian.Options{
		BaseURL:     server.URL,
		Credentials: atlassian.Credentials{Email: "spider@acme.example", APIToken: "token"},
		Limiter:     atlassian.NewRateLimiter(domain.SystemJira, 1000, 1000),
		RetryMax:    1,
		BackoffBase: time.Millisecond,
	}, jql)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("encode fixture: %v", err)
	}
}

// adf wraps a single paragraph of text in a minimal ADF document.
func adf(text string) map[string]any {
	return map[string]any{
		"type":    "doc",
		"version": 1,
		"content": []map[string]any{
			{"type": "paragraph", "content": []map[string]any{
				{"type": "text", "text": text},
			}},
		},
	}
}

func TestConnector_System(t *testing.T) {
	conn := newTestConnector(t, "", http.NotFoundHandler())
	assert.Equal(t, domain.SystemJira, conn.System())
}

func TestConnector_Validate(t *testing.T) {
	t.Run("passes against the identity endpoint", func(t *testing.T) {
		conn := newTestConnector(t, "", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/rest/api/3/myself", r.URL.Path)
			writeJSON(t, w, map[string]any{"accountId": "abc123", "displayName": "Dana Scully"})
		}))

		assert.NoError(t, conn.Validate(context.Background()))
	})

	t.Run("surfaces rejected credentials", func(t *testing.T) {
		conn := newTestConnector(t, "", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))

		err := conn.Validate(context.Background())
		assert.ErrorIs(t, err, domain.ErrAuthFailed)
	})
}

func TestConnector_SearchIssues(t *testing.T) {
	t.Run("converts valid issues and drops invalid ones", func(t *testing.T) {
		conn := newTestConnector(t, "project = ENG", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/rest/api/3/search", r.URL.Path)
			q := r.URL.Query()
			assert.Equal(t, "project = ENG", q.Get("jql"))
			assert.Equal(t, "0", q.Get("startAt"))
			assert.Equal(t, "100", q.Get("maxResults"))
			assert.Equal(t, listFields, q.Get("fields"))
			writeJSON(t, w, map[string]any{
				"startAt": 0, "maxResults": 100, "total": 3,
				"issues": []map[string]any{
					{"id": "20001", "key": "ENG-1", "fields": map[string]any{
						"summary": "Set up CI",
						"status":  map[string]any{"name": "Done"},
					}},
					{"id": "20002", "key": "", "fields": map[string]any{"summary": "Broken"}},
					{"id": "20003", "key": "ENG-3", "fields": map[string]any{
						"summary":   "Write docs",
						"issuetype": map[string]any{"name": "Task"},
					}},
				},
			})
		}))

		page, err := conn.ListPage(context.Background(), domain.ResourceIssues, "", "")
		require.NoError(t, err)
		require.Len(t, page.Records, 2)
		assert.Empty(t, page.NextCursor, "total covered by one page")

		first := page.Records[0]
		assert.Equal(t, domain.ArtifactKey{System: domain.SystemJira, Type: domain.TypeIssue, ID: "ENG-1"}, first.Key)
		assert.Equal(t, "Set up CI", first.Title)
		assert.Contains(t, first.URL, "/browse/ENG-1")
		assert.Equal(t, "Done", first.Metadata["status"])
		assert.Nil(t, first.Body, "search records carry no body")

		assert.Equal(t, "Task", page.Records[1].Metadata["issue_type"])
		assert.Equal(t, int64(1), conn.Quarantined())
	})

	t.Run("pages through the collection until the total is covered", func(t *testing.T) {
		issue := func(key string) map[string]any {
			return map[string]any{"id": "1", "key": key, "fields": map[string]any{"summary": "s"}}
		}
		conn := newTestConnector(t, "", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Query().Get("startAt") {
			case "0":
				writeJSON(t, w, map[string]any{
					"startAt": 0, "maxResults": 2, "total": 3,
					"issues": []any{issue("ENG-1"), issue("ENG-2")},
				})
			case "2":
				writeJSON(t, w, map[string]any{
					"startAt": 2, "maxResults": 2, "total": 3,
					"issues": []any{issue("ENG-3")},
				})
			default:
				t.Errorf("unexpected startAt %q", r.URL.Query().Get("startAt"))
			}
		}))

		page, err := conn.ListPage(context.Background(), domain.ResourceIssues, "", "")
		require.NoError(t, err)
		require.Len(t, page.Records, 2)
		require.NotEmpty(t, page.NextCursor, "echoed maxResults drives pagination, not the requested limit")

		page, err = conn.ListPage(context.Background(), domain.ResourceIssues, "", page.NextCursor)
		require.NoError(t, err)
		require.Len(t, page.Records, 1)
		assert.Empty(t, page.NextCursor)
	})

	t.Run("rejects an invalid cursor", func(t *testing.T) {
		conn := newTestConnector(t, "", http.NotFoundHandler())

		_, err := conn.ListPage(context.Background(), domain.ResourceIssues, "", "!!not-a-cursor!!")
		assert.ErrorIs(t, err, domain.ErrInvalidCursor)
	})

	t.Run("rejects unsupported resources", func(t *testing.T) {
		conn := newTestConnector(t, "", http.NotFoundHandler())

		_, err := conn.ListPage(context.Background(), domain.ResourceSpaces, "", "")
		assert.ErrorIs(t, err, domain.ErrUnsupportedResource)
	})
}

func TestConnector_FetchIssue(t *testing.T) {
	t.Run("folds description, comments and relations into the record", func(t *testing.T) {
		conn := newTestConnector(t, "", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/rest/api/3/issue/ENG-1":
				assert.Equal(t, fetchFields, r.URL.Query().Get("fields"))
				writeJSON(t, w, map[string]any{
					"id": "20001", "key": "ENG-1",
					"fields": map[string]any{
						"summary":     "Set up CI",
						"description": adf("see DOCS-7 for background"),
						"status":      map[string]any{"name": "In Progress"},
						"issuetype":   map[string]any{"name": "Task"},
						"project":     map[string]any{"key": "ENG", "name": "Engineering"},
						"labels":      []string{"infra"},
						"created":     "2026-02-01T09:00:00.000+0000",
						"updated":     "2026-03-01T09:00:00.000+0000",
						"reporter":    map[string]any{"accountId": "rep1", "displayName": "Dana Scully"},
						"assignee":    map[string]any{"accountId": "asg1", "displayName": "Fox Mulder"},
						"comment": map[string]any{
							"total": 1,
							"comments": []map[string]any{
								{"id": "c1", "body": adf("fixed in build 42"),
									"author": map[string]any{"accountId": "com1", "displayName": "Walter Skinner"}},
							},
						},
						"issuelinks": []map[string]any{
							{"type": map[string]any{"name": "Blocks"},
								"outwardIssue": map[string]any{"key": "ENG-2",
									"fields": map[string]any{"summary": "Deploy pipeline"}}},
							{"type": map[string]any{"name": "Relates"},
								"inwardIssue": map[string]any{"key": "OPS-9"}},
						},
					},
				})
			case "/rest/api/3/issue/ENG-1/remotelink":
				writeJSON(t, w, []map[string]any{
					{"id": 1, "object": map[string]any{"url": "https://acme.atlassian.net/wiki/spaces/ENG/pages/10001/Welcome"}},
					{"id": 2, "object": map[string]any{"url": ""}},
				})
			default:
				t.Errorf("unexpected path %q", r.URL.Path)
				w.WriteHeader(http.StatusNotFound)
			}
		}))

		rec, err := conn.FetchItem(context.Background(), domain.TypeIssue, "ENG-1")
		require.NoError(t, err)

		assert.Equal(t, domain.ArtifactKey{System: domain.SystemJira, Type: domain.TypeIssue, ID: "ENG-1"}, rec.Key)
		assert.Equal(t, "Set up CI", rec.Title)
		assert.Equal(t, "In Progress", rec.Metadata["status"])
		assert.Equal(t, "ENG", rec.Metadata["project_key"])
		assert.Equal(t, 1, rec.Metadata["comments"])

		require.NotNil(t, rec.Body)
		assert.Equal(t, domain.FormatADF, rec.Body.Format)
		var parts []json.RawMessage
		require.NoError(t, json.Unmarshal(rec.Body.Content, &parts))
		assert.Len(t, parts, 2, "description plus one comment body")

		var linked, authored []string
		for _, ref := range rec.Refs {
			switch ref.Relation {
			case domain.RelationLinkedIssue:
				linked = append(linked, ref.Target.ID)
				assert.False(t, ref.Complete)
			case domain.RelationAuthoredBy:
				authored = append(authored, ref.Target.ID)
				assert.True(t, ref.Complete)
			}
		}
		assert.ElementsMatch(t, []string{"ENG-2", "OPS-9"}, linked)
		assert.ElementsMatch(t, []string{"rep1", "asg1", "com1"}, authored)

		require.Len(t, rec.Links, 1, "empty remote-link URLs are dropped")
		assert.Contains(t, rec.Links[0], "/spaces/ENG/pages/10001")
	})

	t.Run("keeps the issue when remote links fail transiently", func(t *testing.T) {
		conn := newTestConnector(t, "", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/rest/api/3/issue/ENG-1":
				writeJSON(t, w, map[string]any{
					"id": "20001", "key": "ENG-1",
					"fields": map[string]any{"summary": "Set up CI"},
				})
			default:
				w.WriteHeader(http.StatusInternalServerError)
			}
		}))

		rec, err := conn.FetchItem(context.Background(), domain.TypeIssue, "ENG-1")
		require.NoError(t, err)
		assert.Empty(t, rec.Links)
	})

	t.Run("maps a missing issue to not-found", func(t *testing.T) {
		conn := newTestConnector(t, "", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))

		_, err := conn.FetchItem(context.Background(), domain.TypeIssue, "ENG-404")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("rejects unsupported types and empty ids", func(t *testing.T) {
		conn := newTestConnector(t, "", http.NotFoundHandler())

		_, err := conn.FetchItem(context.Background(), domain.TypePage, "10001")
		assert.ErrorIs(t, err, domain.ErrUnsupportedResource)

		_, err = conn.FetchItem(context.Background(), domain.TypeIssue, "")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}
