// Package driven defines the outbound ports of the hexagonal
// architecture: interfaces the core requires from infrastructure.
//
// Adapters (Atlassian connectors, the link extractor, storage backends)
// implement these interfaces. The core services depend only on the
// interfaces, never on the implementations.
//
// # Import Rules
//
//   - Can Import: domain, standard library
//   - Cannot Import: adapters, connectors, services
package driven
