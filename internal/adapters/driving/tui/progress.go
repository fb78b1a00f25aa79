package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/workspace-spider/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/workspace-spider/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/workspace-spider/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/workspace-spider/internal/core/domain"
	"github.com/custodia-labs/workspace-spider/internal/core/ports/driving"
)

// pollInterval is how often the model samples the scanner status.
const pollInterval = 500 * time.Millisecond

// Progress is the scan progress display following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type Progress struct {
	// ports provides access to core services via driving ports.
	ports *Ports

	// styles holds the TUI styles.
	styles *styles.Styles

	// keymap holds the keybindings.
	keymap *keymap.KeyMap

	// spinner animates while the traversal runs.
	spinner spinner.Model

	// status is the latest scanner snapshot.
	status driving.ScanStatus

	// session and scanErr hold the traversal outcome once finished.
	session *domain.ScanSession
	scanErr error

	// done marks that the traversal ended.
	done bool

	// aborting marks that the user asked to stop.
	aborting bool

	// startedAt anchors the elapsed readout.
	startedAt time.Time

	// width is the terminal width.
	width int
}

// Ensure Progress implements tea.Model.
var _ tea.Model = (*Progress)(nil)

// NewProgress creates the progress display for a scan about to start.
func NewProgress(ports *Ports) (*Progress, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating progress display: %w", err)
	}

	s := styles.DefaultStyles()
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = s.Title

	return &Progress{
		ports:     ports,
		styles:    s,
		keymap:    keymap.DefaultKeyMap(),
		spinner:   sp,
		startedAt: time.Now(),
		width:     80,
	}, nil
}

// Init implements tea.Model.
// It starts the spinner and the first status poll.
func (p *Progress) Init() tea.Cmd {
	return tea.Batch(p.spinner.Tick, p.pollStatus())
}

// pollStatus samples the scanner after the poll interval.
func (p *Progress) pollStatus() tea.Cmd {
	return tea.Tick(pollInterval, func(time.Time) tea.Msg {
		return messages.StatusUpdated{Status: p.ports.Scanner.Status()}
	})
}

// Update implements tea.Model.
// It handles messages and updates the model state.
func (p *Progress) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.width = msg.Width
		return p, nil

	case tea.KeyMsg:
		if keymap.Matches(msg.String(), p.keymap.Quit) {
			p.aborting = true
			return p, tea.Quit
		}
		return p, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		p.spinner, cmd = p.spinner.Update(msg)
		return p, cmd

	case messages.StatusUpdated:
		p.status = msg.Status
		if p.done {
			return p, nil
		}
		return p, p.pollStatus()

	case messages.ScanFinished:
		p.done = true
		p.session = msg.Session
		p.scanErr = msg.Err
		// One last sample so the final frame shows closing counts.
		p.status = p.ports.Scanner.Status()
		return p, tea.Quit

	case messages.ErrorOccurred:
		p.scanErr = msg.Err
		return p, nil
	}

	return p, nil
}

// View implements tea.Model.
// It renders the progress readout as a string.
func (p *Progress) View() string {
	var b strings.Builder

	switch {
	case p.done && p.scanErr != nil:
		b.WriteString(p.styles.Error.Render("Scan aborted"))
	case p.done:
		b.WriteString(p.styles.Success.Render("Scan complete"))
	case p.aborting:
		b.WriteString(p.styles.Warning.Render("Stopping scan..."))
	default:
		b.WriteString(p.spinner.View())
		b.WriteString(p.styles.Title.Render("Scanning workspace"))
	}
	b.WriteString("\n\n")

	b.WriteString(p.renderCounters())
	b.WriteString("\n")

	if p.done {
		if p.scanErr != nil {
			b.WriteString(p.styles.Error.Render(fmt.Sprintf("error: %v", p.scanErr)))
			b.WriteString("\n")
		}
	} else {
		b.WriteString(p.styles.Help.Render(p.renderHelp()))
		b.WriteString("\n")
	}

	return b.String()
}

// renderCounters renders the live counter block.
func (p *Progress) renderCounters() string {
	rows := []struct {
		label string
		value string
	}{
		{"discovered", fmt.Sprintf("%d", p.status.Discovered)},
		{"fetched", fmt.Sprintf("%d", p.status.Expanded)},
		{"queued", fmt.Sprintf("%d", p.status.Queued)},
		{"failed", fmt.Sprintf("%d", p.status.Failed)},
		{"requests", fmt.Sprintf("%d", p.status.Requests)},
		{"elapsed", time.Since(p.startedAt).Round(time.Second).String()},
	}

	var b strings.Builder
	for _, row := range rows {
		b.WriteString(fmt.Sprintf("  %s %s\n",
			p.styles.Muted.Render(fmt.Sprintf("%-11s", row.label)),
			p.styles.Counter.Render(row.value)))
	}
	return b.String()
}

// renderHelp renders keybinding hints.
func (p *Progress) renderHelp() string {
	bindings := p.keymap.ShortHelp()
	hints := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		hints = append(hints, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	return strings.Join(hints, " | ")
}

// Status returns the latest scanner snapshot the model has seen.
func (p *Progress) Status() driving.ScanStatus {
	return p.status
}

// Done reports whether the traversal has ended.
func (p *Progress) Done() bool {
	return p.done
}

// Aborting reports whether the user asked to stop the scan.
func (p *Progress) Aborting() bool {
	return p.aborting
}

// Session returns the finished session, nil while running.
func (p *Progress) Session() *domain.ScanSession {
	return p.session
}

// Err returns the traversal error, nil while running or on success.
func (p *Progress) Err() error {
	return p.scanErr
}

// RunScan drives a traversal under the progress display. It starts run
// in the background, polls the scanner for live counters, and returns
// the finished session. Quitting the display cancels the traversal and
// returns the partial session the engine persisted.
func RunScan(
	ctx context.Context,
	scanner driving.Scanner,
	run func(context.Context) (*domain.ScanSession, error),
) (*domain.ScanSession, error) {
	model, err := NewProgress(&Ports{Scanner: scanner})
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	program := tea.NewProgram(model)

	type result struct {
		session *domain.ScanSession
		err     error
	}
	done := make(chan result, 1)
	go func() {
		session, runErr := run(runCtx)
		done <- result{session: session, err: runErr}
		program.Send(messages.ScanFinished{Session: session, Err: runErr})
	}()

	if _, err := program.Run(); err != nil {
		cancel()
		res := <-done
		return res.session, fmt.Errorf("progress display: %w", err)
	}

	// A quit keypress lands here with the traversal still in flight;
	// cancelling hands back the partial session.
	cancel()
	res := <-done
	return res.session, res.err
}
