// Package admission implements the gateway's rate admission control.
//
// Admission is decided by an exact sliding-window limiter: every admitted
// request leaves a timestamp in a per-key log, and a request is admitted
// only while the log holds fewer than the configured limit of timestamps
// younger than the window. Keys combine operation name and client
// identifier, so each (operation, client) pair budgets independently.
//
// Unlike bucketed approximations, the exact log never over-admits at
// window boundaries: the decision and the recording happen atomically
// under the key's lock. Expired timestamps are purged lazily on the next
// check of the same key; an idle key costs nothing.
//
// The storage subpackage persists window snapshots so limits survive a
// restart instead of resetting to empty.
package admission
