// Package watcher discovers new game recordings in the raw capture
// directories and queues one job per unseen file.
//
// Dedup is keyed on the resolved path plus the file's mtime and size, so an
// unchanged file is never re-queued across scans or restarts while a
// re-recorded file with the same name is. The seen set persists to disk next
// to the queue.
package watcher
