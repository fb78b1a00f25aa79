package tui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/workspace-spider/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/workspace-spider/internal/core/domain"
	"github.com/custodia-labs/workspace-spider/internal/core/ports/driving"
)

func newTestProgress(t *testing.T, scanner driving.Scanner) *Progress {
	t.Helper()
	p, err := NewProgress(&Ports{Scanner: scanner})
	require.NoError(t, err)
	return p
}

func TestNewProgress(t *testing.T) {
	t.Run("nil scanner returns error", func(t *testing.T) {
		p, err := NewProgress(&Ports{})
		require.Error(t, err)
		assert.Nil(t, p)
		assert.ErrorIs(t, err, ErrMissingScanner)
	})

	t.Run("valid ports creates model", func(t *testing.T) {
		p := newTestProgress(t, &MockScanner{})
		assert.False(t, p.Done())
		assert.False(t, p.Aborting())
		assert.Nil(t, p.Session())
	})
}

func TestProgress_Init(t *testing.T) {
	p := newTestProgress(t, &MockScanner{})

	cmd := p.Init()

	assert.NotNil(t, cmd)
}

func TestProgress_Update_StatusUpdated(t *testing.T) {
	p := newTestProgress(t, &MockScanner{})

	status := driving.ScanStatus{
		SessionID:  "scan-1",
		Running:    true,
		Discovered: 42,
		Expanded:   30,
		Queued:     12,
		Failed:     1,
		Requests:   120,
	}
	model, cmd := p.Update(messages.StatusUpdated{Status: status})
	p = model.(*Progress)

	assert.Equal(t, status, p.Status())
	// A running scan schedules the next poll.
	assert.NotNil(t, cmd)
}

func TestProgress_Update_ScanFinished(t *testing.T) {
	final := driving.ScanStatus{Discovered: 50, Expanded: 50, Requests: 140}
	scanner := &MockScanner{
		StatusFunc: func() driving.ScanStatus { return final },
	}
	p := newTestProgress(t, scanner)

	session := &domain.ScanSession{ID: "scan-1", Status: domain.StatusCompleted}
	model, cmd := p.Update(messages.ScanFinished{Session: session})
	p = model.(*Progress)

	assert.True(t, p.Done())
	assert.Equal(t, session, p.Session())
	assert.NoError(t, p.Err())
	// The final frame shows the closing counts.
	assert.Equal(t, final, p.Status())

	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestProgress_Update_ScanFinishedWithError(t *testing.T) {
	p := newTestProgress(t, &MockScanner{})

	scanErr := errors.New("confluence: auth failed")
	model, cmd := p.Update(messages.ScanFinished{Err: scanErr})
	p = model.(*Progress)

	assert.True(t, p.Done())
	assert.ErrorIs(t, p.Err(), scanErr)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestProgress_Update_QuitKeys(t *testing.T) {
	tests := []struct {
		name string
		msg  tea.KeyMsg
	}{
		{name: "q aborts", msg: tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}},
		{name: "ctrl+c aborts", msg: tea.KeyMsg{Type: tea.KeyCtrlC}},
		{name: "esc aborts", msg: tea.KeyMsg{Type: tea.KeyEsc}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProgress(t, &MockScanner{})

			model, cmd := p.Update(tt.msg)
			p = model.(*Progress)

			assert.True(t, p.Aborting())
			require.NotNil(t, cmd)
			assert.IsType(t, tea.QuitMsg{}, cmd())
		})
	}
}

func TestProgress_Update_OtherKeyIgnored(t *testing.T) {
	p := newTestProgress(t, &MockScanner{})

	model, cmd := p.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}})
	p = model.(*Progress)

	assert.False(t, p.Aborting())
	assert.Nil(t, cmd)
}

func TestProgress_Update_WindowSize(t *testing.T) {
	p := newTestProgress(t, &MockScanner{})

	model, _ := p.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	p = model.(*Progress)

	assert.Equal(t, 120, p.width)
}

func TestProgress_View_Running(t *testing.T) {
	p := newTestProgress(t, &MockScanner{})

	status := driving.ScanStatus{Running: true, Discovered: 42, Expanded: 30, Queued: 12}
	model, _ := p.Update(messages.StatusUpdated{Status: status})
	p = model.(*Progress)

	view := p.View()

	assert.Contains(t, view, "Scanning workspace")
	assert.Contains(t, view, "discovered")
	assert.Contains(t, view, "42")
	assert.Contains(t, view, "fetched")
	assert.Contains(t, view, "30")
	assert.Contains(t, view, "abort scan")
}

func TestProgress_View_Complete(t *testing.T) {
	p := newTestProgress(t, &MockScanner{})

	model, _ := p.Update(messages.ScanFinished{
		Session: &domain.ScanSession{ID: "scan-1", Status: domain.StatusCompleted},
	})
	p = model.(*Progress)

	view := p.View()

	assert.Contains(t, view, "Scan complete")
	assert.NotContains(t, view, "abort scan")
}

func TestProgress_View_Aborted(t *testing.T) {
	p := newTestProgress(t, &MockScanner{})

	model, _ := p.Update(messages.ScanFinished{Err: errors.New("context canceled")})
	p = model.(*Progress)

	view := p.View()

	assert.Contains(t, view, "Scan aborted")
	assert.Contains(t, view, "context canceled")
}
