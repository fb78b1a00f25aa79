package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// uriScheme is the custom URI scheme for spider resources.
	uriScheme = "spider://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource for the live scan status.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "status",
		Name:        "status",
		Description: "Live status of the current discovery scan",
		MIMEType:    "application/json",
	}, s.handleStatusResource)

	// Template for one stored scan's summary.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "scans/{scanId}",
		Name:        "scan-report",
		Description: "Summary report of a stored discovery scan",
		MIMEType:    "application/json",
	}, s.handleScanReportResource)

	// Template for a stored scan's artifact inventory.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "scans/{scanId}/artifacts",
		Name:        "scan-artifacts",
		Description: "Artifacts discovered by a stored scan",
		MIMEType:    "application/json",
	}, s.handleArtifactsResource)
}

// handleStatusResource returns the live scan status.
func (s *Server) handleStatusResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Scanner == nil {
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     `{"running": false}`,
			}},
		}, nil
	}

	status := s.ports.Scanner.Status()

	type statusInfo struct {
		SessionID  string `json:"session_id,omitempty"`
		Running    bool   `json:"running"`
		Discovered int    `json:"discovered"`
		Expanded   int    `json:"expanded"`
		Queued     int    `json:"queued"`
		Failed     int    `json:"failed"`
		Requests   int64  `json:"requests"`
	}

	data, err := json.MarshalIndent(statusInfo{
		SessionID:  status.SessionID,
		Running:    status.Running,
		Discovered: status.Discovered,
		Expanded:   status.Expanded,
		Queued:     status.Queued,
		Failed:     status.Failed,
		Requests:   status.Requests,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling status: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleScanReportResource returns the summary of one stored scan.
func (s *Server) handleScanReportResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	// Extract scanId from URI: spider://scans/{scanId}
	scanID := extractScanID(req.Params.URI)
	if scanID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	session, err := s.ports.Sessions.Get(ctx, scanID)
	if err != nil {
		return nil, fmt.Errorf("loading scan: %w", err)
	}

	type reportInfo struct {
		ID        string `json:"id"`
		Status    string `json:"status"`
		StartedAt string `json:"started_at"`
		Duration  string `json:"duration,omitempty"`
		Artifacts int    `json:"artifacts"`
		Fetched   int    `json:"fetched"`
		Stubs     int    `json:"stubs"`
		Edges     int    `json:"edges"`
		Failures  int    `json:"failures"`
		Requests  int64  `json:"requests"`
		Error     string `json:"error,omitempty"`
	}

	report := reportInfo{
		ID:        session.ID,
		Status:    string(session.Status),
		StartedAt: session.StartedAt.UTC().Format(time.RFC3339),
		Artifacts: session.Stats.Artifacts,
		Fetched:   session.Stats.Fetched,
		Stubs:     session.Stats.Stubs,
		Edges:     session.Stats.Edges,
		Failures:  session.Stats.Failures,
		Requests:  session.Stats.Requests,
		Error:     session.Error,
	}
	if !session.EndedAt.IsZero() {
		report.Duration = session.Duration().String()
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling report: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleArtifactsResource returns the artifact inventory of one stored scan.
func (s *Server) handleArtifactsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	// Extract scanId from URI: spider://scans/{scanId}/artifacts
	scanID := extractArtifactsScanID(req.Params.URI)
	if scanID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	session, err := s.ports.Sessions.Get(ctx, scanID)
	if err != nil {
		return nil, fmt.Errorf("loading scan: %w", err)
	}

	type artifactInfo struct {
		System  string `json:"system"`
		Type    string `json:"type"`
		ID      string `json:"id"`
		Title   string `json:"title,omitempty"`
		URL     string `json:"url,omitempty"`
		Fetched bool   `json:"fetched"`
	}

	infos := make([]artifactInfo, len(session.Artifacts))
	for i := range session.Artifacts {
		infos[i] = artifactInfo{
			System:  string(session.Artifacts[i].Key.System),
			Type:    string(session.Artifacts[i].Key.Type),
			ID:      session.Artifacts[i].Key.ID,
			Title:   session.Artifacts[i].Title,
			URL:     session.Artifacts[i].URL,
			Fetched: session.Artifacts[i].Fetched,
		}
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling artifacts: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractScanID extracts the scan ID from a URI like spider://scans/{scanId}.
func extractScanID(uri string) string {
	const prefix = uriScheme + "scans/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	id := strings.TrimPrefix(uri, prefix)
	if strings.Contains(id, "/") {
		return ""
	}

	return id
}

// extractArtifactsScanID extracts the scan ID from a URI like
// spider://scans/{scanId}/artifacts.
func extractArtifactsScanID(uri string) string {
	const prefix = uriScheme + "scans/"
	const suffix = "/artifacts"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	uri = strings.TrimPrefix(uri, prefix)
	if !strings.HasSuffix(uri, suffix) {
		return ""
	}

	return strings.TrimSuffix(uri, suffix)
}
