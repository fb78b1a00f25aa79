// Package tui provides the interactive scan progress display.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/workspace-spider/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the TUI.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Scanner reports live scan status while a traversal runs.
	Scanner driving.Scanner
}

// NewPorts creates a new Ports aggregate with the given services.
func NewPorts(scanner driving.Scanner) *Ports {
	return &Ports{
		Scanner: scanner,
	}
}

// Validate ensures all required ports are set.
// Returns an error if any port is nil.
func (p *Ports) Validate() error {
	if p.Scanner == nil {
		return ErrMissingScanner
	}
	return nil
}
