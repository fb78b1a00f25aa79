package mcp

import (
	"github.com/custodia-labs/workspace-spider/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Sessions reads stored scan history.
	Sessions driving.Sessions

	// Scanner reports live scan status.
	Scanner driving.Scanner
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Sessions == nil {
		return ErrMissingSessions
	}
	// Scanner is optional; the status resource degrades without it.
	return nil
}
