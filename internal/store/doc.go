// Package store provides SQLite-backed durable storage for simulation
// traces.
//
// The store is an append-only log with two tables:
//   - runs: one row per recorded simulation, keyed by run id and carrying
//     the model name and content hash it was built from
//   - assignments: every value assignment of a run, in application order
//
// # Ordering
//
// Assignments are ordered by ordinal, their position in the run's trace.
// Ordinal, event sequence number, simulated time and delta cycle are all
// logical; no wall-clock time is stored, so a replay of the same model
// produces byte-identical rows.
//
// Every read ends in an explicit ORDER BY. Values are stored as RFC 8785
// canonical JSON next to their SHA-256 content hash.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
