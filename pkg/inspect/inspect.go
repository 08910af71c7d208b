// Package inspect implements spec.md §4.10 (C10): enumerate an
// archive's entries — name, size, mode, mtime, compression-kind —
// without extracting any bytes to disk.
package inspect

import (
	"io"
	"time"

	"archivekit/pkg/archiveerr"
	"archivekit/pkg/container"
)

// EntryInfo is the JSON-serialisable view of one entry, per spec.md
// §8's idempotent-inspect testable property: the same archive must
// always marshal to byte-identical JSON.
type EntryInfo struct {
	Path        string    `json:"path"`
	Kind        string    `json:"kind"`
	Size        int64     `json:"size"`
	Mode        uint32    `json:"mode"`
	ModTime     time.Time `json:"mtime"`
	Target      string    `json:"link_target,omitempty"`
	Compression string    `json:"compression,omitempty"`
}

// Listing is the full inspect result for one archive.
type Listing struct {
	Format  string      `json:"format"`
	Entries []EntryInfo `json:"entries"`
}

// Inspect drains r (discarding any body bytes without materialising
// them) and returns a deterministic entry listing.
func Inspect(r container.Reader, format container.ContainerFormat) (Listing, error) {
	listing := Listing{Format: format.String()}

	for {
		entry, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return listing, archiveerr.New(archiveerr.Format, "inspect.Inspect", err)
		}
		if entry.Reader != nil {
			io.Copy(io.Discard, entry.Reader)
		}
		listing.Entries = append(listing.Entries, EntryInfo{
			Path:        entry.Path,
			Kind:        kindName(entry.Kind),
			Size:        entry.Size,
			Mode:        entry.Mode,
			ModTime:     entry.ModTime,
			Target:      entry.LinkTarget,
			Compression: entry.Compression,
		})
	}

	return listing, nil
}

func kindName(k container.Kind) string {
	switch k {
	case container.Directory:
		return "directory"
	case container.Symlink:
		return "symlink"
	case container.Hardlink:
		return "hardlink"
	default:
		return "file"
	}
}
