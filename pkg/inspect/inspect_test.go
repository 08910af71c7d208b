package inspect

import (
	"bytes"
	"testing"
	"time"

	"archivekit/pkg/container"
)

func TestInspectListsEntriesWithoutMaterialisingBodies(t *testing.T) {
	var buf bytes.Buffer
	w := container.NewTarWriter(&buf)
	body := []byte("some file contents")
	entries := []container.Entry{
		{Path: "dir", Kind: container.Directory, ModTime: time.Unix(1, 0)},
		{Path: "dir/file.txt", Kind: container.RegularFile, Size: int64(len(body)), Reader: bytes.NewReader(body), ModTime: time.Unix(2, 0)},
		{Path: "dir/link", Kind: container.Symlink, LinkTarget: "file.txt"},
	}
	for _, e := range entries {
		if err := w.WriteEntry(e); err != nil {
			t.Fatal(err)
		}
	}
	w.Close()

	r := container.NewTarReader(&buf)
	listing, err := Inspect(r, container.Tar)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if listing.Format != "tar" {
		t.Fatalf("expected format %q, got %q", "tar", listing.Format)
	}
	if len(listing.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(listing.Entries))
	}
	if listing.Entries[0].Kind != "directory" || listing.Entries[1].Kind != "file" || listing.Entries[2].Kind != "symlink" {
		t.Fatalf("unexpected kinds: %+v", listing.Entries)
	}
	if listing.Entries[1].Size != int64(len(body)) {
		t.Fatalf("expected size %d, got %d", len(body), listing.Entries[1].Size)
	}
	if listing.Entries[2].Target != "file.txt" {
		t.Fatalf("expected symlink target to round-trip, got %q", listing.Entries[2].Target)
	}
	if listing.Entries[1].Compression != "stored" {
		t.Fatalf("expected TAR entries to report \"stored\" compression, got %q", listing.Entries[1].Compression)
	}
}

func TestIsRARNameRecognisesVolumesAndParts(t *testing.T) {
	cases := map[string]bool{
		"movie.rar":      true,
		"movie.part1.rar": true,
		"movie.r01":       true,
		"movie.zip":       false,
		"movie.tar":       false,
	}
	for name, want := range cases {
		if got := IsRARName(name); got != want {
			t.Errorf("IsRARName(%q) = %v, want %v", name, got, want)
		}
	}
}
