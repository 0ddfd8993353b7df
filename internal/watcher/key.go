package watcher

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// DedupKey computes a deterministic dedup key for a file from its resolved
// path, modification time, and size. The same path with unchanged metadata
// always yields the same key; a moved or rewritten file yields a new one.
func DedupKey(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", err
	}
	if resolved, err = filepath.Abs(resolved); err != nil {
		return "", err
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(fmt.Appendf(nil, "%s:%d:%d", resolved, info.ModTime().UnixNano(), info.Size()))
	return hex.EncodeToString(sum[:])[:16], nil
}
