package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/workspace-spider/internal/core/ports/driving"
)

func TestExtractScanID(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{
			name:     "valid scan URI",
			uri:      "spider://scans/scan-123",
			expected: "scan-123",
		},
		{
			name:     "invalid prefix",
			uri:      "file://scans/scan-123",
			expected: "",
		},
		{
			name:     "nested path is not a scan ID",
			uri:      "spider://scans/scan-123/artifacts",
			expected: "",
		},
		{
			name:     "empty URI",
			uri:      "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := extractScanID(tt.uri)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestExtractArtifactsScanID(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{
			name:     "valid artifacts URI",
			uri:      "spider://scans/scan-123/artifacts",
			expected: "scan-123",
		},
		{
			name:     "invalid prefix",
			uri:      "file://scans/scan-123/artifacts",
			expected: "",
		},
		{
			name:     "missing artifacts suffix",
			uri:      "spider://scans/scan-123",
			expected: "",
		},
		{
			name:     "empty URI",
			uri:      "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := extractArtifactsScanID(tt.uri)
			assert.Equal(t, tt.expected, result)
		})
	}
}

// Helper to create a ReadResourceRequest with the given URI.
func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestServer_handleStatusResource(t *testing.T) {
	ctx := context.Background()

	t.Run("nil scanner reports not running", func(t *testing.T) {
		ports := &Ports{Sessions: &mockSessions{}}
		server, err := NewServer(ports)
		require.NoError(t, err)

		req := makeReadResourceRequest("spider://status")
		result, err := server.handleStatusResource(ctx, req)

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, `{"running": false}`, result.Contents[0].Text)
	})

	t.Run("reports live counters", func(t *testing.T) {
		scanner := &mockScanner{
			status: driving.ScanStatus{
				SessionID:  "scan-7",
				Running:    true,
				Discovered: 42,
				Expanded:   30,
				Queued:     12,
				Failed:     1,
				Requests:   120,
			},
		}

		ports := &Ports{Sessions: &mockSessions{}, Scanner: scanner}
		server, err := NewServer(ports)
		require.NoError(t, err)

		req := makeReadResourceRequest("spider://status")
		result, err := server.handleStatusResource(ctx, req)

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Contains(t, result.Contents[0].Text, `"session_id": "scan-7"`)
		assert.Contains(t, result.Contents[0].Text, `"running": true`)
		assert.Contains(t, result.Contents[0].Text, `"discovered": 42`)
		assert.Contains(t, result.Contents[0].Text, `"requests": 120`)
	})
}

func TestServer_handleScanReportResource(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid URI returns not found", func(t *testing.T) {
		ports := &Ports{Sessions: &mockSessions{}}
		server, err := NewServer(ports)
		require.NoError(t, err)

		req := makeReadResourceRequest("spider://invalid/uri")
		_, err = server.handleScanReportResource(ctx, req)

		require.Error(t, err)
	})

	t.Run("returns report successfully", func(t *testing.T) {
		ports := &Ports{Sessions: &mockSessions{session: storedSession()}}
		server, err := NewServer(ports)
		require.NoError(t, err)

		req := makeReadResourceRequest("spider://scans/scan-1")
		result, err := server.handleScanReportResource(ctx, req)

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Contains(t, result.Contents[0].Text, `"id": "scan-1"`)
		assert.Contains(t, result.Contents[0].Text, `"status": "completed"`)
		assert.Contains(t, result.Contents[0].Text, `"duration": "2m0s"`)
		assert.Contains(t, result.Contents[0].Text, `"artifacts": 3`)
		assert.Contains(t, result.Contents[0].Text, `"requests": 9`)
	})

	t.Run("returns error on load failure", func(t *testing.T) {
		ports := &Ports{Sessions: &mockSessions{err: errors.New("database error")}}
		server, err := NewServer(ports)
		require.NoError(t, err)

		req := makeReadResourceRequest("spider://scans/scan-1")
		_, err = server.handleScanReportResource(ctx, req)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "loading scan")
	})
}

func TestServer_handleArtifactsResource(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid URI returns not found", func(t *testing.T) {
		ports := &Ports{Sessions: &mockSessions{}}
		server, err := NewServer(ports)
		require.NoError(t, err)

		req := makeReadResourceRequest("spider://scans/scan-1")
		_, err = server.handleArtifactsResource(ctx, req)

		require.Error(t, err)
	})

	t.Run("returns artifacts successfully", func(t *testing.T) {
		ports := &Ports{Sessions: &mockSessions{session: storedSession()}}
		server, err := NewServer(ports)
		require.NoError(t, err)

		req := makeReadResourceRequest("spider://scans/scan-1/artifacts")
		result, err := server.handleArtifactsResource(ctx, req)

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Contains(t, result.Contents[0].Text, `"id": "ENG"`)
		assert.Contains(t, result.Contents[0].Text, "Design Notes")
		assert.Contains(t, result.Contents[0].Text, `"id": "OPS-1"`)
	})

	t.Run("returns error on load failure", func(t *testing.T) {
		ports := &Ports{Sessions: &mockSessions{err: errors.New("storage error")}}
		server, err := NewServer(ports)
		require.NoError(t, err)

		req := makeReadResourceRequest("spider://scans/scan-1/artifacts")
		_, err = server.handleArtifactsResource(ctx, req)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "loading scan")
	})

	t.Run("handles session with no artifacts", func(t *testing.T) {
		session := storedSession()
		session.Artifacts = nil
		ports := &Ports{Sessions: &mockSessions{session: session}}
		server, err := NewServer(ports)
		require.NoError(t, err)

		req := makeReadResourceRequest("spider://scans/scan-1/artifacts")
		result, err := server.handleArtifactsResource(ctx, req)

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "[]", result.Contents[0].Text)
	})
}
