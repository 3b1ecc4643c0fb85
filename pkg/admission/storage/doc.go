// Package storage persists admission window snapshots.
//
// Two backends are provided: an in-memory backend for tests and
// single-run deployments, and a SQLite backend for deployments where
// rate budgets must survive a process restart. Both store the same
// shape, a map from admission key to its ordered timestamp log.
package storage
