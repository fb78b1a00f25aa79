package cli

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/custodia-labs/workspace-spider/internal/core/domain"
	"github.com/custodia-labs/workspace-spider/internal/core/ports/driving"
)

// mockScanner implements driving.Scanner for command tests.
type mockScanner struct {
	scanFunc   func(ctx context.Context) (*domain.ScanSession, error)
	resumeFunc func(ctx context.Context, id string) (*domain.ScanSession, error)
	status     driving.ScanStatus
}

func (m *mockScanner) Scan(ctx context.Context) (*domain.ScanSession, error) {
	if m.scanFunc != nil {
		return m.scanFunc(ctx)
	}
	return nil, errors.New("scan not configured")
}

func (m *mockScanner) Resume(ctx context.Context, id string) (*domain.ScanSession, error) {
	if m.resumeFunc != nil {
		return m.resumeFunc(ctx, id)
	}
	return nil, errors.New("resume not configured")
}

func (m *mockScanner) Status() driving.ScanStatus {
	return m.status
}

// mockSessions implements driving.Sessions for command tests.
type mockSessions struct {
	summaries []driving.SessionSummary
	session   *domain.ScanSession
	listErr   error
	getErr    error
	deleteErr error

	gotIDs  []string
	deleted []string
}

func (m *mockSessions) List(_ context.Context) ([]driving.SessionSummary, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.summaries, nil
}

func (m *mockSessions) Get(_ context.Context, id string) (*domain.ScanSession, error) {
	m.gotIDs = append(m.gotIDs, id)
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.session, nil
}

func (m *mockSessions) Delete(_ context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, id)
	return nil
}

// setupTestServices swaps the package services for mocks and returns a
// cleanup that restores them.
func setupTestServices(t *testing.T, scanner driving.Scanner, sessions driving.Sessions) func() {
	t.Helper()

	origScanner := scannerService
	origSessions := sessionService
	scannerService = scanner
	sessionService = sessions

	return func() {
		scannerService = origScanner
		sessionService = origSessions
	}
}

// completedSession builds a finished session with a small artifact graph.
func completedSession() *domain.ScanSession {
	pageKey := domain.ArtifactKey{System: domain.SystemConfluence, Type: domain.TypePage, ID: "10001"}
	spaceKey := domain.ArtifactKey{System: domain.SystemConfluence, Type: domain.TypeSpace, ID: "ENG"}
	issueKey := domain.ArtifactKey{System: domain.SystemJira, Type: domain.TypeIssue, ID: "OPS-1"}

	return &domain.ScanSession{
		ID:        "scan-1",
		Status:    domain.StatusCompleted,
		StartedAt: time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC),
		EndedAt:   time.Date(2026, 6, 1, 9, 2, 0, 0, time.UTC),
		Artifacts: []domain.Artifact{
			{Key: spaceKey, Title: "Engineering", Fetched: true},
			{Key: pageKey, Title: "Design Notes", Fetched: true},
			{Key: issueKey},
		},
		Edges: []domain.Edge{
			{From: spaceKey, To: pageKey, Relation: domain.RelationContains},
			{From: pageKey, To: issueKey, Relation: domain.RelationLinkedIssue},
		},
		Failures: []domain.Failure{
			{
				Key:    issueKey,
				Kind:   domain.FailureRetryExhausted,
				Reason: "giving up after 4 attempts",
				At:     time.Date(2026, 6, 1, 9, 1, 30, 0, time.UTC),
			},
		},
		Stats: domain.ScanStats{
			Artifacts: 3,
			Fetched:   2,
			Stubs:     1,
			Edges:     2,
			Failures:  1,
			Requests:  9,
		},
	}
}
