package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/workspace-spider/internal/core/domain"
)

func exportSession() *domain.ScanSession {
	space := domain.ArtifactKey{System: domain.SystemConfluence, Type: domain.TypeSpace, ID: "ENG"}
	page := domain.ArtifactKey{System: domain.SystemConfluence, Type: domain.TypePage, ID: "10001"}
	issue := domain.ArtifactKey{System: domain.SystemJira, Type: domain.TypeIssue, ID: "ENG-1"}

	started := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	return &domain.ScanSession{
		ID:        "session-1",
		Status:    domain.StatusCompleted,
		StartedAt: started,
		EndedAt:   started.Add(time.Minute),
		Artifacts: []domain.Artifact{
			{Key: page, URL: "https://acme.atlassian.net/wiki/pages/viewpage.action?pageId=10001",
				Title: "Welcome", Fetched: true, Metadata: map[string]any{"version": 3}},
			{Key: space, Title: "Engineering", Fetched: true},
			{Key: issue, Title: "Fix login"},
		},
		Edges: []domain.Edge{
			{From: page, To: issue, Relation: domain.RelationLinkedIssue},
			{From: space, To: page, Relation: domain.RelationContains},
		},
		Failures: []domain.Failure{
			{Key: issue, Kind: domain.FailureRetryExhausted, Reason: "GET /issue: 503", At: started.Add(30 * time.Second)},
		},
		Stats: domain.ScanStats{Artifacts: 3, Fetched: 2, Stubs: 1, Edges: 2, Failures: 1, Requests: 9},
	}
}

func TestParseFormat(t *testing.T) {
	for _, name := range []string{"json", "csv"} {
		format, err := ParseFormat(name)
		require.NoError(t, err)
		assert.Equal(t, Format(name), format)
	}

	_, err := ParseFormat("yaml")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, exportSession()))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	session := doc["session"].(map[string]any)
	assert.Equal(t, "session-1", session["id"])
	assert.Equal(t, "completed", session["status"])
	assert.NotEmpty(t, session["ended_at"])

	stats := session["stats"].(map[string]any)
	assert.Equal(t, float64(3), stats["artifacts"])
	assert.Equal(t, float64(9), stats["requests"])

	artifacts := doc["artifacts"].([]any)
	require.Len(t, artifacts, 3)
	// Sorted by key: confluence/page, confluence/space, jira/issue.
	first := artifacts[0].(map[string]any)
	assert.Equal(t, "confluence", first["system"])
	assert.Equal(t, "page", first["type"])
	assert.Equal(t, "10001", first["id"])
	assert.Equal(t, true, first["fetched"])
	assert.Equal(t, float64(3), first["metadata"].(map[string]any)["version"])

	stub := artifacts[2].(map[string]any)
	assert.Equal(t, "ENG-1", stub["id"])
	assert.Equal(t, false, stub["fetched"])
	_, hasMetadata := stub["metadata"]
	assert.False(t, hasMetadata, "empty metadata is omitted")

	edges := doc["edges"].([]any)
	require.Len(t, edges, 2)
	edge := edges[0].(map[string]any)
	assert.Equal(t, "confluence/page/10001", edge["from"])
	assert.Equal(t, "jira/issue/ENG-1", edge["to"])
	assert.Equal(t, "linked_issue", edge["relation"])

	failures := doc["failures"].([]any)
	require.Len(t, failures, 1)
	assert.Equal(t, "retry_exhausted", failures[0].(map[string]any)["kind"])
}

func TestJSON_NilSession(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, JSON(&buf, nil), domain.ErrInvalidInput)
}

func TestCSV(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	paths, err := CSV(dir, exportSession())
	require.NoError(t, err)
	require.Len(t, paths, 3)

	rows := readCSV(t, filepath.Join(dir, "artifacts.csv"))
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"system", "type", "id", "url", "title", "fetched", "tombstoned", "metadata"}, rows[0])
	assert.Equal(t, "10001", rows[1][2])
	assert.Equal(t, "true", rows[1][5])
	assert.JSONEq(t, `{"version":3}`, rows[1][7])
	assert.Equal(t, "ENG-1", rows[3][2])
	assert.Empty(t, rows[3][7], "stub carries no metadata column")

	rows = readCSV(t, filepath.Join(dir, "edges.csv"))
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"from_system", "from_type", "from_id", "to_system", "to_type", "to_id", "relation"}, rows[0])
	assert.Equal(t, "linked_issue", rows[1][6])
	assert.Equal(t, "contains", rows[2][6])

	rows = readCSV(t, filepath.Join(dir, "failures.csv"))
	require.Len(t, rows, 2)
	assert.Equal(t, "retry_exhausted", rows[1][3])
	assert.Equal(t, "2026-05-01T12:00:30Z", rows[1][5])
}

func TestCSV_Deterministic(t *testing.T) {
	first := filepath.Join(t.TempDir(), "a")
	second := filepath.Join(t.TempDir(), "b")

	_, err := CSV(first, exportSession())
	require.NoError(t, err)
	_, err = CSV(second, exportSession())
	require.NoError(t, err)

	for _, name := range []string{"artifacts.csv", "edges.csv", "failures.csv"} {
		a, err := os.ReadFile(filepath.Join(first, name))
		require.NoError(t, err)
		b, err := os.ReadFile(filepath.Join(second, name))
		require.NoError(t, err)
		assert.Equal(t, string(a), string(b))
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}
