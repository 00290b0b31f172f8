// Package store provides the SQLite-backed run ledger.
//
// Every deploy attempt is recorded as a run: the folder, the plan hash,
// the rendered document and the engine outcome. The ledger answers two
// questions: whether a plan hash was already deployed for a folder, and
// what happened to recent runs.
//
// # Ordering
//
// Runs carry a seq INTEGER assigned on insert. All reads order by
// seq ASC, id ASC COLLATE BINARY. created_at is informational only.
//
// # Schema
//
// schema.sql creates the runs table. Later changes are numbered
// migrations tracked in PRAGMA user_version; Open applies the pending
// ones, each in its own transaction.
//
// Plan hashes are computed by ir.PlanHash using RFC 8785 canonical JSON
// and SHA-256 with domain separation.
package store
