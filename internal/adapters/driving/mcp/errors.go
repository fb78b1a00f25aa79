// Package mcp provides an MCP (Model Context Protocol) server adapter
// for the workspace spider. It lets AI assistants query stored scan
// sessions and the live scan status without shelling out to the CLI.
package mcp

import "errors"

// ErrMissingSessions is returned when the sessions service is not provided.
var ErrMissingSessions = errors.New("mcp: sessions service is required")
