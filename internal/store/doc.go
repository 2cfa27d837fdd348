// Package store provides SQLite-backed durable storage for flows.
//
// A flow is stored as its wrapper row plus one row per member entity and
// member relation, each holding the JSON form of the instance. Every write
// appends a commit row:
//
//   - CreateFlow writes the full snapshot as commit 1
//   - CommitFlow applies the pending diff of a live flow
//
// # Commit Semantics
//
// CommitFlow reconciles each id named in the diff against the flow's current
// membership, so the order of adds and removes between two commits does not
// matter. Members are written with their current property values; the
// wrapper is always rewritten. Property changes on other members that were
// not added since the last commit are not persisted.
//
// The diff is acknowledged only after the transaction commits. Changes made
// while a commit is in flight remain pending.
//
// Commit digests chain: each covers the parent digest, the sequence number
// and the digest of the stored flow state (SHA-256 over canonical JSON with
// domain separation).
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Deleting a flow cascades to its rows
package store
