// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Interfaces
//
//   - TicketSource: Paged ticket listing and event lookup (Vivenu REST API)
//   - ProgressStore: Checkpoint persistence (JSON file, SQLite, in-memory)
//   - WebhookTransport: Delivery of signed envelopes to the receiver
//   - ConfigStore: Persisted settings (TOML)
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
