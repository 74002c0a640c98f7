// Package store provides SQLite-backed durable storage for scanning session
// logs.
//
// The log is append-only:
//   - Sessions: one row per camera session, with the config fingerprint
//   - Decode events: every frame outcome the session processed
//   - Commands: every presentation command, keyed by (seq, idx)
//   - Prompts: every URL prompt and how the user answered it
//
// The log is an audit and replay record. A new session never reads it back
// into reconciler state; the reconciler always starts empty.
//
// # Critical Patterns
//
// Logical time: all ordering uses seq INTEGER, never timestamps. Queries
// order by seq ASC, idx ASC so reads are identical across runs.
//
// Idempotent writes: content-addressed IDs plus ON CONFLICT DO NOTHING make
// re-writing the same event or command a no-op.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
