// Package export renders finished scan sessions into interchange
// formats: a single JSON document with the full graph, or a set of CSV
// tables for spreadsheet work. Output ordering is deterministic so
// exports of the same session diff cleanly.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/custodia-labs/workspace-spider/internal/core/domain"
)

// Format selects an export encoding.
type Format string

const (
	// FormatJSON writes one JSON document with session, artifacts,
	// edges and failures.
	FormatJSON Format = "json"

	// FormatCSV writes artifacts.csv, edges.csv and failures.csv.
	FormatCSV Format = "csv"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, FormatCSV:
		return Format(s), nil
	}
	return "", fmt.Errorf("%w: unknown export format %q", domain.ErrInvalidInput, s)
}

type document struct {
	Session   sessionInfo   `json:"session"`
	Artifacts []artifactRow `json:"artifacts"`
	Edges     []edgeRow     `json:"edges"`
	Failures  []failureRow  `json:"failures"`
}

type sessionInfo struct {
	ID        string     `json:"id"`
	Status    string     `json:"status"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Error     string     `json:"error,omitempty"`
	Stats     statsInfo  `json:"stats"`
}

type statsInfo struct {
	Artifacts int   `json:"artifacts"`
	Fetched   int   `json:"fetched"`
	Stubs     int   `json:"stubs"`
	Edges     int   `json:"edges"`
	Failures  int   `json:"failures"`
	Requests  int64 `json:"requests"`
}

type artifactRow struct {
	System     string         `json:"system"`
	Type       string         `json:"type"`
	ID         string         `json:"id"`
	URL        string         `json:"url,omitempty"`
	Title      string         `json:"title,omitempty"`
	Fetched    bool           `json:"fetched"`
	Tombstoned bool           `json:"tombstoned,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

type edgeRow struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Relation string `json:"relation"`
}

type failureRow struct {
	Key    string    `json:"key"`
	Kind   string    `json:"kind"`
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

// JSON writes the session graph as one indented JSON document.
func JSON(w io.Writer, session *domain.ScanSession) error {
	if session == nil {
		return fmt.Errorf("%w: nil session", domain.ErrInvalidInput)
	}

	doc := document{
		Session: sessionInfo{
			ID:        session.ID,
			Status:    string(session.Status),
			StartedAt: session.StartedAt,
			Error:     session.Error,
			Stats: statsInfo{
				Artifacts: session.Stats.Artifacts,
				Fetched:   session.Stats.Fetched,
				Stubs:     session.Stats.Stubs,
				Edges:     session.Stats.Edges,
				Failures:  session.Stats.Failures,
				Requests:  session.Stats.Requests,
			},
		},
		Artifacts: make([]artifactRow, 0, len(session.Artifacts)),
		Edges:     make([]edgeRow, 0, len(session.Edges)),
		Failures:  make([]failureRow, 0, len(session.Failures)),
	}
	if !session.EndedAt.IsZero() {
		ended := session.EndedAt
		doc.Session.EndedAt = &ended
	}

	for _, a := range sortedArtifacts(session.Artifacts) {
		doc.Artifacts = append(doc.Artifacts, artifactRow{
			System:     string(a.Key.System),
			Type:       string(a.Key.Type),
			ID:         a.Key.ID,
			URL:        a.URL,
			Title:      a.Title,
			Fetched:    a.Fetched,
			Tombstoned: a.Tombstoned,
			Metadata:   a.Metadata,
		})
	}
	for _, e := range sortedEdges(session.Edges) {
		doc.Edges = append(doc.Edges, edgeRow{
			From:     e.From.String(),
			To:       e.To.String(),
			Relation: string(e.Relation),
		})
	}
	for _, f := range sortedFailures(session.Failures) {
		doc.Failures = append(doc.Failures, failureRow{
			Key:    f.Key.String(),
			Kind:   string(f.Kind),
			Reason: f.Reason,
			At:     f.At,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding export: %w", err)
	}
	return nil
}

// CSV writes artifacts.csv, edges.csv and failures.csv into dir and
// returns the paths it wrote. The directory is created when missing.
func CSV(dir string, session *domain.ScanSession) ([]string, error) {
	if session == nil {
		return nil, fmt.Errorf("%w: nil session", domain.ErrInvalidInput)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating export directory: %w", err)
	}

	writers := []struct {
		name  string
		write func(*csv.Writer) error
	}{
		{"artifacts.csv", func(w *csv.Writer) error { return writeArtifactsCSV(w, session.Artifacts) }},
		{"edges.csv", func(w *csv.Writer) error { return writeEdgesCSV(w, session.Edges) }},
		{"failures.csv", func(w *csv.Writer) error { return writeFailuresCSV(w, session.Failures) }},
	}

	paths := make([]string, 0, len(writers))
	for _, table := range writers {
		path := filepath.Join(dir, table.name)
		if err := writeCSVFile(path, table.write); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeCSVFile(path string, write func(*csv.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := write(w); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing %s: %w", path, err)
	}
	return f.Close()
}

func writeArtifactsCSV(w *csv.Writer, artifacts []domain.Artifact) error {
	if err := w.Write([]string{"system", "type", "id", "url", "title", "fetched", "tombstoned", "metadata"}); err != nil {
		return err
	}
	for _, a := range sortedArtifacts(artifacts) {
		metadata := ""
		if len(a.Metadata) > 0 {
			raw, err := json.Marshal(a.Metadata)
			if err != nil {
				return fmt.Errorf("marshalling metadata of %s: %w", a.Key, err)
			}
			metadata = string(raw)
		}
		if err := w.Write([]string{
			string(a.Key.System), string(a.Key.Type), a.Key.ID,
			a.URL, a.Title,
			strconv.FormatBool(a.Fetched), strconv.FormatBool(a.Tombstoned),
			metadata,
		}); err != nil {
			return err
		}
	}
	return nil
}

func writeEdgesCSV(w *csv.Writer, edges []domain.Edge) error {
	if err := w.Write([]string{"from_system", "from_type", "from_id", "to_system", "to_type", "to_id", "relation"}); err != nil {
		return err
	}
	for _, e := range sortedEdges(edges) {
		if err := w.Write([]string{
			string(e.From.System), string(e.From.Type), e.From.ID,
			string(e.To.System), string(e.To.Type), e.To.ID,
			string(e.Relation),
		}); err != nil {
			return err
		}
	}
	return nil
}

func writeFailuresCSV(w *csv.Writer, failures []domain.Failure) error {
	if err := w.Write([]string{"system", "type", "id", "kind", "reason", "at"}); err != nil {
		return err
	}
	for _, f := range sortedFailures(failures) {
		if err := w.Write([]string{
			string(f.Key.System), string(f.Key.Type), f.Key.ID,
			string(f.Kind), f.Reason, f.At.UTC().Format(time.RFC3339),
		}); err != nil {
			return err
		}
	}
	return nil
}

func sortedArtifacts(artifacts []domain.Artifact) []domain.Artifact {
	out := append([]domain.Artifact(nil), artifacts...)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key.String() < out[j].Key.String()
	})
	return out
}

func sortedEdges(edges []domain.Edge) []domain.Edge {
	out := append([]domain.Edge(nil), edges...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From.String() < out[j].From.String()
		}
		if out[i].To != out[j].To {
			return out[i].To.String() < out[j].To.String()
		}
		return out[i].Relation < out[j].Relation
	})
	return out
}

func sortedFailures(failures []domain.Failure) []domain.Failure {
	out := append([]domain.Failure(nil), failures...)
	sort.Slice(out, func(i, j int) bool {
		if !out[i].At.Equal(out[j].At) {
			return out[i].At.Before(out[j].At)
		}
		return out[i].Key.String() < out[j].Key.String()
	})
	return out
}
