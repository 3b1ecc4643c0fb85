// Package storage provides audit event storage backends.
//
// MemoryStorage serves tests and ephemeral deployments. SQLiteStorage
// persists events durably with WAL mode enabled; it is the default for
// a running gateway. Both implement audit.Storage.
package storage
