// Package domain defines the core business entities for Workspace Spider.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Artifact: A discovered workspace entity (space, page, issue, ...)
//   - Edge: A directed relation between two artifacts
//   - Record: Normalised connector output for a single artifact
//   - ScanSession: A complete point-in-time discovery run
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
