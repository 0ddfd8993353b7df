package fileutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"sessionscribe/internal/fileutil"
)

func TestWriteFileAtomicCreatesParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "out.txt")
	if err := fileutil.WriteFileAtomic(path, []byte("hello"), 0o644); err != nil {
		t.Fatalf("WriteFileAtomic failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("unexpected contents %q", data)
	}
}

func TestWriteFileAtomicLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")
	if err := fileutil.WriteFileAtomic(path, []byte("first"), 0o644); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := fileutil.WriteFileAtomic(path, []byte("second"), 0o644); err != nil {
		t.Fatalf("second write: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the target file, found %d entries", len(entries))
	}
	data, _ := os.ReadFile(path)
	if string(data) != "second" {
		t.Fatalf("replace failed, contents %q", data)
	}
}

func TestWriteJSONAtomicRoundTrip(t *testing.T) {
	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	path := filepath.Join(t.TempDir(), "payload.json")
	if err := fileutil.WriteJSONAtomic(path, payload{Name: "gnosia", Count: 9}); err != nil {
		t.Fatalf("WriteJSONAtomic failed: %v", err)
	}

	var got payload
	if err := fileutil.ReadJSON(path, &got); err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	if got.Name != "gnosia" || got.Count != 9 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestReadJSONMissingFileReturnsOSError(t *testing.T) {
	var got map[string]any
	err := fileutil.ReadJSON(filepath.Join(t.TempDir(), "absent.json"), &got)
	if !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestAppendLineAccumulates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue", "pending.jsonl")
	if err := fileutil.AppendLine(path, []byte(`{"id":"a"}`)); err != nil {
		t.Fatalf("first append: %v", err)
	}
	if err := fileutil.AppendLine(path, []byte(`{"id":"b"}`)); err != nil {
		t.Fatalf("second append: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	want := "{\"id\":\"a\"}\n{\"id\":\"b\"}\n"
	if string(data) != want {
		t.Fatalf("unexpected log contents %q", data)
	}
}
