package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/workspace-spider/internal/core/domain"
)

// ListScansInput is the input schema for the list_scans tool.
type ListScansInput struct{}

// ScanSummaryOutput is one stored scan in the list_scans output.
type ScanSummaryOutput struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	StartedAt string `json:"started_at"`
	Duration  string `json:"duration,omitempty"`
	Artifacts int    `json:"artifacts"`
	Edges     int    `json:"edges"`
	Failures  int    `json:"failures"`
}

// ListScansOutput is the output schema for the list_scans tool.
type ListScansOutput struct {
	Scans []ScanSummaryOutput `json:"scans"`
	Count int                 `json:"count"`
}

// GetArtifactInput is the input schema for the get_artifact tool.
type GetArtifactInput struct {
	ScanID string `json:"scan_id" jsonschema:"the stored scan session holding the artifact"`
	System string `json:"system" jsonschema:"source system of the artifact: confluence or jira"`
	Type   string `json:"type" jsonschema:"artifact type, e.g. space, page, attachment, issue, user"`
	ID     string `json:"id" jsonschema:"system-native artifact identifier"`
}

// EdgeOutput is one relation triple in tool output.
type EdgeOutput struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Relation string `json:"relation"`
}

// GetArtifactOutput is the output schema for the get_artifact tool.
type GetArtifactOutput struct {
	System     string         `json:"system"`
	Type       string         `json:"type"`
	ID         string         `json:"id"`
	URL        string         `json:"url,omitempty"`
	Title      string         `json:"title,omitempty"`
	Fetched    bool           `json:"fetched"`
	Tombstoned bool           `json:"tombstoned,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outbound   []EdgeOutput   `json:"outbound,omitempty"`
	Inbound    []EdgeOutput   `json:"inbound,omitempty"`
}

// ListFailuresInput is the input schema for the list_failures tool.
type ListFailuresInput struct {
	ScanID string `json:"scan_id" jsonschema:"the stored scan session to report failures for"`
}

// FailureOutput is one failed artifact in the list_failures output.
type FailureOutput struct {
	Artifact string `json:"artifact"`
	Kind     string `json:"kind"`
	Reason   string `json:"reason"`
	At       string `json:"at"`
}

// ListFailuresOutput is the output schema for the list_failures tool.
type ListFailuresOutput struct {
	Failures []FailureOutput `json:"failures"`
	Count    int             `json:"count"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_scans",
		Description: "List stored discovery scans, newest first",
	}, s.handleListScans)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_artifact",
		Description: "Look up one artifact and its edges in a stored scan",
	}, s.handleGetArtifact)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_failures",
		Description: "List artifacts a stored scan could not fully capture",
	}, s.handleListFailures)
}

// handleListScans handles the list_scans tool invocation.
func (s *Server) handleListScans(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListScansInput,
) (*mcp.CallToolResult, ListScansOutput, error) {
	summaries, err := s.ports.Sessions.List(ctx)
	if err != nil {
		return nil, ListScansOutput{}, err
	}

	output := ListScansOutput{
		Scans: make([]ScanSummaryOutput, len(summaries)),
		Count: len(summaries),
	}

	for i := range summaries {
		output.Scans[i] = ScanSummaryOutput{
			ID:        summaries[i].ID,
			Status:    string(summaries[i].Status),
			StartedAt: summaries[i].StartedAt,
			Duration:  summaries[i].Duration,
			Artifacts: summaries[i].Artifacts,
			Edges:     summaries[i].Edges,
			Failures:  summaries[i].Failures,
		}
	}

	return nil, output, nil
}

// handleGetArtifact handles the get_artifact tool invocation.
func (s *Server) handleGetArtifact(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetArtifactInput,
) (*mcp.CallToolResult, GetArtifactOutput, error) {
	session, err := s.ports.Sessions.Get(ctx, input.ScanID)
	if err != nil {
		return nil, GetArtifactOutput{}, err
	}

	key := domain.ArtifactKey{
		System: domain.SourceSystem(input.System),
		Type:   domain.ArtifactType(input.Type),
		ID:     input.ID,
	}

	var artifact *domain.Artifact
	for i := range session.Artifacts {
		if session.Artifacts[i].Key == key {
			artifact = &session.Artifacts[i]
			break
		}
	}
	if artifact == nil {
		return nil, GetArtifactOutput{}, fmt.Errorf("%w: artifact %s in scan %s",
			domain.ErrNotFound, key, input.ScanID)
	}

	output := GetArtifactOutput{
		System:     string(artifact.Key.System),
		Type:       string(artifact.Key.Type),
		ID:         artifact.Key.ID,
		URL:        artifact.URL,
		Title:      artifact.Title,
		Fetched:    artifact.Fetched,
		Tombstoned: artifact.Tombstoned,
		Metadata:   artifact.Metadata,
	}

	for _, edge := range session.Edges {
		out := EdgeOutput{
			From:     edge.From.String(),
			To:       edge.To.String(),
			Relation: string(edge.Relation),
		}
		if edge.From == key {
			output.Outbound = append(output.Outbound, out)
		}
		if edge.To == key {
			output.Inbound = append(output.Inbound, out)
		}
	}

	return nil, output, nil
}

// handleListFailures handles the list_failures tool invocation.
func (s *Server) handleListFailures(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListFailuresInput,
) (*mcp.CallToolResult, ListFailuresOutput, error) {
	session, err := s.ports.Sessions.Get(ctx, input.ScanID)
	if err != nil {
		return nil, ListFailuresOutput{}, err
	}

	output := ListFailuresOutput{
		Failures: make([]FailureOutput, len(session.Failures)),
		Count:    len(session.Failures),
	}

	for i := range session.Failures {
		output.Failures[i] = FailureOutput{
			Artifact: session.Failures[i].Key.String(),
			Kind:     string(session.Failures[i].Kind),
			Reason:   session.Failures[i].Reason,
			At:       session.Failures[i].At.UTC().Format(time.RFC3339),
		}
	}

	return nil, output, nil
}
