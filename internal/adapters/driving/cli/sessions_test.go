package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/workspace-spider/internal/core/domain"
	"github.com/custodia-labs/workspace-spider/internal/core/ports/driving"
)

func TestSessionsCmd_Use(t *testing.T) {
	assert.Equal(t, "sessions", sessionsCmd.Use)
	assert.Equal(t, "list", sessionsListCmd.Use)
	assert.Equal(t, "delete [session-id]", sessionsDeleteCmd.Use)
}

func TestSessionsListCmd_PrintsSummaries(t *testing.T) {
	sessions := &mockSessions{
		summaries: []driving.SessionSummary{
			{
				ID:        "scan-2",
				Status:    domain.StatusRunning,
				StartedAt: "2026-06-02T10:00:00Z",
				Artifacts: 5,
			},
			{
				ID:        "scan-1",
				Status:    domain.StatusCompleted,
				StartedAt: "2026-06-01T09:00:00Z",
				Duration:  "2m0s",
				Artifacts: 3,
				Edges:     2,
				Failures:  1,
			},
		},
	}
	cleanup := setupTestServices(t, nil, sessions)
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"sessions", "list"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()

	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "Stored sessions:")
	assert.Contains(t, out, "scan-2")
	assert.Contains(t, out, "running")
	assert.Contains(t, out, "scan-1")
	assert.Contains(t, out, "3 artifacts, 2 edges, 1 failures")
}

func TestSessionsListCmd_Empty(t *testing.T) {
	cleanup := setupTestServices(t, nil, &mockSessions{})
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"sessions", "list"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "No stored sessions.")
}

func TestSessionsListCmd_Error(t *testing.T) {
	sessions := &mockSessions{listErr: errors.New("store offline")}
	cleanup := setupTestServices(t, nil, sessions)
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"sessions", "list"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "listing sessions")
}

func TestSessionsDeleteCmd_Deletes(t *testing.T) {
	sessions := &mockSessions{}
	cleanup := setupTestServices(t, nil, sessions)
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"sessions", "delete", "scan-1"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Equal(t, []string{"scan-1"}, sessions.deleted)
	assert.Contains(t, buf.String(), "Deleted session: scan-1")
}

func TestSessionsDeleteCmd_RequiresArg(t *testing.T) {
	cleanup := setupTestServices(t, nil, &mockSessions{})
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"sessions", "delete"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestSessionsDeleteCmd_Error(t *testing.T) {
	sessions := &mockSessions{deleteErr: domain.ErrNotFound}
	cleanup := setupTestServices(t, nil, sessions)
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"sessions", "delete", "missing"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
