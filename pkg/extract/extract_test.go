package extract

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"archivekit/pkg/container"
	"archivekit/pkg/pathsafety"
)

func buildTar(t *testing.T, entries []container.Entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := container.NewTarWriter(&buf)
	for _, e := range entries {
		if err := w.WriteEntry(e); err != nil {
			t.Fatalf("WriteEntry(%s): %v", e.Path, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func defaultOptions(outputRoot string) Options {
	return Options{
		OutputRoot:          outputRoot,
		MaxCompressionRatio: pathsafety.DefaultMaxCompressionRatio,
		MaxExtractionBytes:  pathsafety.DefaultMaxExtractionBytes,
	}
}

func TestExtractWritesFilesAndDirectories(t *testing.T) {
	body := []byte("extracted content")
	data := buildTar(t, []container.Entry{
		{Path: "sub", Kind: container.Directory, Mode: 0o755},
		{Path: "sub/file.txt", Kind: container.RegularFile, Size: int64(len(body)), Reader: bytes.NewReader(body), Mode: 0o644},
	})

	outRoot := t.TempDir()
	r := container.NewTarReader(bytes.NewReader(data))
	agg, err := Extract(r, int64(len(data)), defaultOptions(outRoot))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(agg.Failures) != 0 {
		t.Fatalf("expected no failures, got %v", agg.Failures)
	}

	got, err := os.ReadFile(filepath.Join(outRoot, "sub", "file.txt"))
	if err != nil {
		t.Fatalf("expected extracted file to exist: %v", err)
	}
	if !bytes.Equal(got, body) {
		t.Fatalf("got %q, want %q", got, body)
	}
}

func TestExtractRejectsPathTraversal(t *testing.T) {
	data := buildTar(t, []container.Entry{
		{Path: "../escape.txt", Kind: container.RegularFile, Size: 4, Reader: bytes.NewReader([]byte("evil"))},
	})

	outRoot := t.TempDir()
	r := container.NewTarReader(bytes.NewReader(data))
	agg, err := Extract(r, int64(len(data)), defaultOptions(outRoot))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(agg.Failures) != 1 {
		t.Fatalf("expected the traversal attempt to be recorded as a failure, got %v", agg.Failures)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(outRoot), "escape.txt")); err == nil {
		t.Fatal("traversal entry must not land outside the output root")
	}
}

func TestExtractConflictRenameKeepsBothFiles(t *testing.T) {
	outRoot := t.TempDir()
	if err := os.WriteFile(filepath.Join(outRoot, "file.txt"), []byte("original"), 0o644); err != nil {
		t.Fatal(err)
	}

	body := []byte("incoming")
	data := buildTar(t, []container.Entry{
		{Path: "file.txt", Kind: container.RegularFile, Size: int64(len(body)), Reader: bytes.NewReader(body), Mode: 0o644},
	})

	r := container.NewTarReader(bytes.NewReader(data))
	opts := defaultOptions(outRoot)
	opts.Policy.OnConflict = Rename

	agg, err := Extract(r, int64(len(data)), opts)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(agg.Failures) != 0 {
		t.Fatalf("expected no failures, got %v", agg.Failures)
	}

	entries, err := os.ReadDir(outRoot)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected the original plus a renamed copy, got %d entries: %v", len(entries), entries)
	}

	original, err := os.ReadFile(filepath.Join(outRoot, "file.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(original) != "original" {
		t.Fatalf("expected the original file to survive untouched, got %q", original)
	}
}

func TestExtractConflictSkipLeavesOriginal(t *testing.T) {
	outRoot := t.TempDir()
	if err := os.WriteFile(filepath.Join(outRoot, "file.txt"), []byte("original"), 0o644); err != nil {
		t.Fatal(err)
	}

	data := buildTar(t, []container.Entry{
		{Path: "file.txt", Kind: container.RegularFile, Size: 8, Reader: bytes.NewReader([]byte("incoming"))},
	})

	r := container.NewTarReader(bytes.NewReader(data))
	opts := defaultOptions(outRoot)
	opts.Policy.OnConflict = Skip

	if _, err := Extract(r, int64(len(data)), opts); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(outRoot, "file.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "original" {
		t.Fatalf("expected Skip to leave the original file untouched, got %q", got)
	}
}

func TestExtractWritesRealHardlinkContent(t *testing.T) {
	body := []byte("shared content")
	data := buildTar(t, []container.Entry{
		{Path: "original.txt", Kind: container.RegularFile, Size: int64(len(body)), Reader: bytes.NewReader(body), Mode: 0o644},
		{Path: "linked.txt", Kind: container.Hardlink, LinkTarget: "original.txt"},
	})

	outRoot := t.TempDir()
	r := container.NewTarReader(bytes.NewReader(data))
	agg, err := Extract(r, int64(len(data)), defaultOptions(outRoot))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(agg.Failures) != 0 {
		t.Fatalf("expected no failures, got %v", agg.Failures)
	}

	got, err := os.ReadFile(filepath.Join(outRoot, "linked.txt"))
	if err != nil {
		t.Fatalf("expected the hardlinked path to exist: %v", err)
	}
	if !bytes.Equal(got, body) {
		t.Fatalf("expected the hardlink to carry the original file's bytes, got %q, want %q", got, body)
	}

	original, err := os.Stat(filepath.Join(outRoot, "original.txt"))
	if err != nil {
		t.Fatal(err)
	}
	linked, err := os.Stat(filepath.Join(outRoot, "linked.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if !os.SameFile(original, linked) {
		t.Fatal("expected linked.txt to be the same inode as original.txt, not a copy")
	}
}

func TestExtractHoistCollapsesSingleTopLevelDirectory(t *testing.T) {
	body := []byte("nested")
	data := buildTar(t, []container.Entry{
		{Path: "root", Kind: container.Directory, Mode: 0o755},
		{Path: "root/file.txt", Kind: container.RegularFile, Size: int64(len(body)), Reader: bytes.NewReader(body), Mode: 0o644},
	})

	outRoot := t.TempDir()
	r := container.NewTarReader(bytes.NewReader(data))
	opts := defaultOptions(outRoot)
	opts.Policy.Hoist = true

	if _, err := Extract(r, int64(len(data)), opts); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if _, err := os.Stat(filepath.Join(outRoot, "root")); err == nil {
		t.Fatal("expected the single top-level directory to be hoisted away")
	}
	got, err := os.ReadFile(filepath.Join(outRoot, "file.txt"))
	if err != nil {
		t.Fatalf("expected file.txt to be hoisted to the output root: %v", err)
	}
	if !bytes.Equal(got, body) {
		t.Fatalf("got %q, want %q", got, body)
	}
}
