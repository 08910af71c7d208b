package manifest

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFromDirectoryHashesRegularFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "hello")
	writeFile(t, filepath.Join(dir, "sub", "b.txt"), "world")

	m, err := FromDirectory(dir, time.Unix(1000, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.FileCount != 2 {
		t.Fatalf("expected 2 files, got %d", m.FileCount)
	}
	entry, ok := m.Files["a.txt"]
	if !ok {
		t.Fatal("expected a.txt in manifest")
	}
	if entry.Hash == "" {
		t.Fatal("expected a non-empty hash for a.txt")
	}
	if _, ok := m.Files["sub"]; !ok {
		t.Fatal("expected the directory entry 'sub' to be recorded")
	}
}

func TestFromDirectoryIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "hello")

	m1, err := FromDirectory(dir, time.Unix(1, 0))
	if err != nil {
		t.Fatal(err)
	}
	m2, err := FromDirectory(dir, time.Unix(2, 0))
	if err != nil {
		t.Fatal(err)
	}
	if m1.Files["a.txt"].Hash != m2.Files["a.txt"].Hash {
		t.Fatal("expected identical content to hash identically across runs")
	}
}

func TestDiffDetectsAddedModifiedDeleted(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "keep.txt"), "same")
	writeFile(t, filepath.Join(dir, "change.txt"), "before")
	writeFile(t, filepath.Join(dir, "remove.txt"), "gone-soon")

	before, err := FromDirectory(dir, time.Unix(1, 0))
	if err != nil {
		t.Fatal(err)
	}

	if err := os.Remove(filepath.Join(dir, "remove.txt")); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(dir, "change.txt"), "after")
	writeFile(t, filepath.Join(dir, "new.txt"), "brand new")

	after, err := FromDirectory(dir, time.Unix(2, 0))
	if err != nil {
		t.Fatal(err)
	}

	diff := before.Diff(after)
	if !diff.HasChanges() {
		t.Fatal("expected changes to be detected")
	}
	if len(diff.Added) != 1 || diff.Added[0] != "new.txt" {
		t.Fatalf("expected Added=[new.txt], got %v", diff.Added)
	}
	if len(diff.Modified) != 1 || diff.Modified[0] != "change.txt" {
		t.Fatalf("expected Modified=[change.txt], got %v", diff.Modified)
	}
	if len(diff.Deleted) != 1 || diff.Deleted[0] != "remove.txt" {
		t.Fatalf("expected Deleted=[remove.txt], got %v", diff.Deleted)
	}
}

func TestDiffNoChanges(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "stable")

	m1, err := FromDirectory(dir, time.Unix(1, 0))
	if err != nil {
		t.Fatal(err)
	}
	diff := m1.Diff(m1)
	if diff.HasChanges() {
		t.Fatalf("expected no changes diffing a manifest against itself, got %+v", diff)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "content")
	m, err := FromDirectory(dir, time.Unix(42, 0))
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, "manifest.json")
	if err := m.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.FileCount != m.FileCount || loaded.Files["a.txt"].Hash != m.Files["a.txt"].Hash {
		t.Fatalf("round-tripped manifest does not match original")
	}
}

func TestLoadRejectsVersionMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")
	writeFile(t, path, `{"version":99,"files":{}}`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected a version mismatch to be rejected")
	}
	if _, ok := err.(*VersionError); !ok {
		t.Fatalf("expected *VersionError, got %T", err)
	}
}
