package mcp

import (
	"context"

	"github.com/custodia-labs/workspace-spider/internal/core/domain"
	"github.com/custodia-labs/workspace-spider/internal/core/ports/driving"
)

// mockSessions is a mock implementation of driving.Sessions.
type mockSessions struct {
	summaries []driving.SessionSummary
	session   *domain.ScanSession
	err       error
}

func (m *mockSessions) List(_ context.Context) ([]driving.SessionSummary, error) {
	return m.summaries, m.err
}

func (m *mockSessions) Get(_ context.Context, _ string) (*domain.ScanSession, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.session, nil
}

func (m *mockSessions) Delete(_ context.Context, _ string) error {
	return m.err
}

// mockScanner is a mock implementation of driving.Scanner.
type mockScanner struct {
	session *domain.ScanSession
	status  driving.ScanStatus
	err     error
}

func (m *mockScanner) Scan(_ context.Context) (*domain.ScanSession, error) {
	return m.session, m.err
}

func (m *mockScanner) Resume(_ context.Context, _ string) (*domain.ScanSession, error) {
	return m.session, m.err
}

func (m *mockScanner) Status() driving.ScanStatus {
	return m.status
}
