// Package domain defines the core business entities for vivenu-sync.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Ticket: A purchased ticket as returned by the Vivenu tickets endpoint
//   - Event: The event a ticket belongs to
//   - Envelope: A simulated ticket.created webhook wrapping one Ticket
//   - SyncProgress: The persisted checkpoint for one region
//   - FetchResult: The outcome of a paginated ticket download
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
