package modify

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"archivekit/pkg/container"
)

func buildTar(t *testing.T, entries []container.Entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := container.NewTarWriter(&buf)
	for _, e := range entries {
		if err := w.WriteEntry(e); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func listPaths(t *testing.T, data []byte) []string {
	t.Helper()
	r := container.NewTarReader(bytes.NewReader(data))
	var paths []string
	for {
		e, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		if e.Reader != nil {
			io.Copy(io.Discard, e.Reader)
		}
		paths = append(paths, e.Path)
	}
	return paths
}

func TestRemoveDropsMatchingEntries(t *testing.T) {
	src := buildTar(t, []container.Entry{
		{Path: "a.txt", Kind: container.RegularFile, Size: 1, Reader: bytes.NewReader([]byte("a"))},
		{Path: "b.log", Kind: container.RegularFile, Size: 1, Reader: bytes.NewReader([]byte("b"))},
	})

	var out bytes.Buffer
	dst := container.NewTarWriter(&out)
	res, err := Remove(container.NewTarReader(bytes.NewReader(src)), dst, []string{"*.log"})
	if err != nil {
		t.Fatal(err)
	}
	dst.Close()

	if res.Removed != 1 || res.Copied != 1 {
		t.Fatalf("expected 1 removed and 1 copied, got %+v", res)
	}
	paths := listPaths(t, out.Bytes())
	if len(paths) != 1 || paths[0] != "a.txt" {
		t.Fatalf("expected only a.txt to remain, got %v", paths)
	}
}

func TestAddAppendsNewFilesAndSkipsExisting(t *testing.T) {
	src := buildTar(t, []container.Entry{
		{Path: "a.txt", Kind: container.RegularFile, Size: 1, Reader: bytes.NewReader([]byte("a"))},
	})

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("ignored, already in archive"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "b.txt"), []byte("new file"), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	dst := container.NewTarWriter(&out)
	res, err := Add(container.NewTarReader(bytes.NewReader(src)), dst, dir,
		[]string{filepath.Join(dir, "a.txt"), filepath.Join(dir, "b.txt")}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	dst.Close()

	if res.Added != 1 || res.Copied != 1 {
		t.Fatalf("expected 1 added (b.txt) and 1 copied (a.txt unchanged), got %+v", res)
	}
	paths := listPaths(t, out.Bytes())
	if len(paths) != 2 {
		t.Fatalf("expected 2 entries, got %v", paths)
	}
}

func TestUpdateReplacesBodyOfMatchingEntry(t *testing.T) {
	src := buildTar(t, []container.Entry{
		{Path: "a.txt", Kind: container.RegularFile, Size: 3, Reader: bytes.NewReader([]byte("old"))},
	})

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("new content"), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	dst := container.NewTarWriter(&out)
	res, err := Update(container.NewTarReader(bytes.NewReader(src)), dst, dir, []string{filepath.Join(dir, "a.txt")}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	dst.Close()

	if res.Updated != 1 {
		t.Fatalf("expected 1 updated entry, got %+v", res)
	}

	r := container.NewTarReader(bytes.NewReader(out.Bytes()))
	e, err := r.Next()
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(e.Reader)
	if string(body) != "new content" {
		t.Fatalf("expected updated body, got %q", body)
	}
}

func TestReplaceAtomicNoopWhenNothingChanged(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "archive.tar")
	original := buildTar(t, []container.Entry{
		{Path: "a.txt", Kind: container.RegularFile, Size: 1, Reader: bytes.NewReader([]byte("a"))},
	})
	if err := os.WriteFile(archivePath, original, 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := ReplaceAtomic(archivePath, func(tempPath string) (Result, error) {
		return Result{}, nil // nothing changed
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(archivePath)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, original) {
		t.Fatal("expected the archive to be untouched when the build callback reports no changes")
	}
}

func TestReplaceAtomicAppliesChanges(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "archive.tar")
	if err := os.WriteFile(archivePath, []byte("placeholder"), 0o644); err != nil {
		t.Fatal(err)
	}

	replacement := []byte("replaced bytes")
	res, err := ReplaceAtomic(archivePath, func(tempPath string) (Result, error) {
		if err := os.WriteFile(tempPath, replacement, 0o644); err != nil {
			return Result{}, err
		}
		return Result{Added: 1}, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Added != 1 {
		t.Fatalf("expected Added=1, got %+v", res)
	}

	got, err := os.ReadFile(archivePath)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, replacement) {
		t.Fatalf("expected archive to contain the replacement bytes, got %q", got)
	}
}
