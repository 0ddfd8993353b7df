package watcher

import (
	"sort"
	"time"

	"sessionscribe/internal/fileutil"
)

// State tracks dedup keys already queued so rescans and restarts never
// re-queue an unchanged file. It is an explicit persisted value owned by the
// watcher: loaded at start, mutated on each newly queued file, and rewritten
// atomically after mutation.
type State struct {
	LastScanTime time.Time
	seen         map[string]struct{}
}

type stateFile struct {
	LastScanTime string   `json:"last_scan_time,omitempty"`
	SeenKeys     []string `json:"seen_keys"`
	SeenCount    int      `json:"seen_count"`
}

// NewState returns an empty watcher state.
func NewState() *State {
	return &State{seen: make(map[string]struct{})}
}

// LoadState reads persisted state, returning an empty state when the file is
// missing or unreadable; losing dedup history degrades to re-queueing, which
// downstream tolerates, and is better than refusing to start.
func LoadState(path string) *State {
	state := NewState()
	var parsed stateFile
	if err := fileutil.ReadJSON(path, &parsed); err != nil {
		return state
	}
	for _, key := range parsed.SeenKeys {
		state.seen[key] = struct{}{}
	}
	if parsed.LastScanTime != "" {
		if ts, err := time.Parse(time.RFC3339Nano, parsed.LastScanTime); err == nil {
			state.LastScanTime = ts
		}
	}
	return state
}

// Save atomically rewrites the state file.
func (s *State) Save(path string) error {
	keys := make([]string, 0, len(s.seen))
	for key := range s.seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := stateFile{SeenKeys: keys, SeenCount: len(keys)}
	if !s.LastScanTime.IsZero() {
		out.LastScanTime = s.LastScanTime.UTC().Format(time.RFC3339Nano)
	}
	return fileutil.WriteJSONAtomic(path, out)
}

// HasSeen reports whether a dedup key was already queued.
func (s *State) HasSeen(key string) bool {
	_, ok := s.seen[key]
	return ok
}

// MarkSeen records a dedup key.
func (s *State) MarkSeen(key string) {
	s.seen[key] = struct{}{}
}

// SeenCount returns the number of recorded keys.
func (s *State) SeenCount() int {
	return len(s.seen)
}

// TouchScanTime updates the last scan timestamp to now.
func (s *State) TouchScanTime() {
	s.LastScanTime = time.Now().UTC()
}
