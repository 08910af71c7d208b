package pack

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"archivekit/pkg/codec"
	"archivekit/pkg/config"
	"archivekit/pkg/container"
	"archivekit/pkg/manifest"
	"archivekit/pkg/strategy"
)

type fsSniffer struct{}

func (fsSniffer) Size(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (fsSniffer) Sample(path string, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	buf := make([]byte, n)
	read, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	return buf[:read], nil
}

func writeTree(t *testing.T, dir string) {
	t.Helper()
	files := map[string]string{
		"a.txt":        "hello from a",
		"sub/b.txt":    "hello from b",
		"sub/c.log":    "log line one\nlog line two\n",
	}
	for rel, content := range files {
		full := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestPackWritesEveryFileInLexicographicOrder(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src)

	eng := strategy.New(config.Defaults(), fsSniffer{})

	var buf bytes.Buffer
	w := container.NewTarWriter(&buf)

	result, err := Pack(w, Options{SourceDir: src, Format: container.Tar, Strategy: eng})
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("writer Close: %v", err)
	}
	if len(result.Aggregate.Failures) != 0 {
		t.Fatalf("expected no failures, got %v", result.Aggregate.Failures)
	}

	r := container.NewTarReader(&buf)
	var paths []string
	for {
		e, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		paths = append(paths, e.Path)
		if e.Reader != nil {
			io.Copy(io.Discard, e.Reader)
		}
	}

	want := []string{"a.txt", "sub", "sub/b.txt", "sub/c.log"}
	if len(paths) != len(want) {
		t.Fatalf("got paths %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Fatalf("paths[%d] = %q, want %q (full: %v)", i, paths[i], want[i], paths)
		}
	}
}

func TestPackExcludesMatchingGlobs(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src)

	eng := strategy.New(config.Defaults(), fsSniffer{})
	var buf bytes.Buffer
	w := container.NewTarWriter(&buf)

	_, err := Pack(w, Options{SourceDir: src, Format: container.Tar, Strategy: eng, Excludes: []string{"**.log"}})
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	w.Close()

	r := container.NewTarReader(&buf)
	for {
		e, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if filepath.Ext(e.Path) == ".log" {
			t.Fatalf("expected excluded .log file to be skipped, found %q", e.Path)
		}
	}
}

func TestPackAlreadyCompressedEntryUsesStore(t *testing.T) {
	src := t.TempDir()
	if err := os.WriteFile(filepath.Join(src, "movie.mp4"), bytes.Repeat([]byte{0xAB}, 2048), 0o644); err != nil {
		t.Fatal(err)
	}

	eng := strategy.New(config.Defaults(), fsSniffer{})
	var buf bytes.Buffer
	w := container.NewTarWriter(&buf)
	_, err := Pack(w, Options{SourceDir: src, Format: container.Tar, Strategy: eng})
	if err != nil {
		t.Fatal(err)
	}
	w.Close()

	spec := eng.Decide("movie.mp4", 2048)
	if spec.Algorithm != codec.Store {
		t.Fatalf("expected the strategy engine to pick Store for movie.mp4, got %v", spec.Algorithm)
	}
}

func TestPackIncrementalRecordsDeletions(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src)

	base, err := manifest.FromDirectory(src, time.Unix(1000, 0))
	if err != nil {
		t.Fatalf("FromDirectory: %v", err)
	}

	if err := os.Remove(filepath.Join(src, "sub/c.log")); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "a.txt"), []byte("hello from a, modified"), 0o644); err != nil {
		t.Fatal(err)
	}

	eng := strategy.New(config.Defaults(), fsSniffer{})
	var buf bytes.Buffer
	w := container.NewTarWriter(&buf)

	result, err := Pack(w, Options{SourceDir: src, Format: container.Tar, Strategy: eng, BaseManifest: base})
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	w.Close()

	if len(result.Deleted) != 1 || result.Deleted[0] != "sub/c.log" {
		t.Fatalf("expected deletion list [sub/c.log], got %v", result.Deleted)
	}

	r := container.NewTarReader(&buf)
	var paths []string
	for {
		e, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		paths = append(paths, e.Path)
		if e.Reader != nil {
			io.Copy(io.Discard, e.Reader)
		}
	}
	for _, p := range paths {
		if p == "sub/c.log" {
			t.Fatalf("expected deleted path to be absent from the incremental archive, found %q in %v", p, paths)
		}
	}
	found := false
	for _, p := range paths {
		if p == "a.txt" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected modified path a.txt in the incremental archive, got %v", paths)
	}
}
