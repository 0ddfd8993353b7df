// Package jobstore persists queue jobs as one JSON record file per job and
// exposes helpers for driving their lifecycle.
//
// The Store owns record snapshots, the append-only pending queue log, listing
// and FIFO selection, and the idempotent cancel-request flip. Job records
// capture the resolved run configuration, media facts, estimates, outputs,
// and failure detail so the worker and viewers coordinate without additional
// state.
//
// Record files are treated as the single source of truth for job semantics;
// the pending queue log is an ingest journal, not an index.
package jobstore
