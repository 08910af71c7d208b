package container

import (
	"bytes"
	"io"
	"testing"
	"time"
)

func TestTarWriteEntryRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewTarWriter(&buf)

	body := []byte("hello world")
	entries := []Entry{
		{Path: "dir", Kind: Directory, Mode: 0o755, ModTime: time.Unix(100, 0)},
		{Path: "dir/file.txt", Kind: RegularFile, Mode: 0o644, Size: int64(len(body)), Reader: bytes.NewReader(body), ModTime: time.Unix(200, 0)},
		{Path: "dir/link", Kind: Symlink, LinkTarget: "file.txt"},
	}
	for _, e := range entries {
		if err := w.WriteEntry(e); err != nil {
			t.Fatalf("WriteEntry(%s): %v", e.Path, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r := NewTarReader(&buf)
	var got []Entry
	for {
		e, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if e.Kind == RegularFile && e.Reader != nil {
			data, _ := io.ReadAll(e.Reader)
			if !bytes.Equal(data, body) {
				t.Fatalf("body mismatch for %s: got %q", e.Path, data)
			}
		}
		got = append(got, e)
	}

	if len(got) != len(entries) {
		t.Fatalf("expected %d entries, got %d", len(entries), len(got))
	}
	if got[0].Kind != Directory || got[1].Kind != RegularFile || got[2].Kind != Symlink {
		t.Fatalf("entry kinds did not round-trip: %+v", got)
	}
	if got[2].LinkTarget != "file.txt" {
		t.Fatalf("expected symlink target to round-trip, got %q", got[2].LinkTarget)
	}
}
