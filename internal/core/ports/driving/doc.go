// Package driving defines the inbound ports of the hexagonal
// architecture: interfaces through which the outside world (CLI, TUI,
// MCP server) drives the core.
//
// Core services implement these interfaces; driving adapters consume
// them without knowing the implementations.
package driving
