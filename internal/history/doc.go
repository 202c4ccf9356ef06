// Package history records one row per shotscribe invocation in a SQLite
// database under the state directory.
//
// Rows are created when a run starts and finished with its outcome, the
// failure kind of the error (see services.FailureKind) and the report paths.
// The store is a ledger for humans; nothing in the pipeline reads it back to
// make decisions.
package history
