// Package sqlite keeps the run history in a SQLite database so the documents
// a run failed on can be looked up after its terminal output is gone.
//
// It uses modernc.org/sqlite, which needs no CGO. Each finished run is one
// row in runs plus one row per failed document in run_errors.
//
// # Schema
//
// Migrations are embedded from migrations/ as numbered .up.sql and .down.sql
// pairs and applied in order when the store opens.
//
// # Data Location
//
// The database lives at <config-dir>/data/runs.db, by default
// ~/.stevedore/data/runs.db.
package sqlite
