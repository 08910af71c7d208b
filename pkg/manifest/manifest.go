// Package manifest implements spec.md §4.6's content-addressed backup
// manifest: a directory snapshot keyed by relative path, hashed with
// blake3, diffable against a prior snapshot to drive incremental
// backups. Grounded on original_source/manifest.rs.
package manifest

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"archivekit/pkg/logger"

	"github.com/zeebo/blake3"
)

// Version is the manifest format version; Load rejects mismatches
// rather than guessing at a migration.
const Version = 1

const hashChunkSize = 8192

// Entry describes one path captured by a manifest.
type Entry struct {
	Path       string `json:"path"`
	Size       int64  `json:"size"`
	Hash       string `json:"hash"`
	MTime      int64  `json:"mtime"`
	Mode       uint32 `json:"mode,omitempty"`
	IsDir      bool   `json:"is_dir"`
	IsSymlink  bool   `json:"is_symlink"`
	LinkTarget string `json:"link_target,omitempty"`
}

// Manifest is a directory snapshot, indexed by relative path.
type Manifest struct {
	Version   int              `json:"version"`
	Created   int64            `json:"created"`
	BaseDir   string           `json:"base_dir"`
	TotalSize int64            `json:"total_size"`
	FileCount int              `json:"file_count"`
	Files     map[string]Entry `json:"files"`
}

// FromDirectory walks baseDir and builds a manifest of its current
// state. Symlinks are recorded but not followed, matching
// original_source's WalkDir::follow_links(false).
func FromDirectory(baseDir string, now time.Time) (*Manifest, error) {
	m := &Manifest{
		Version: Version,
		Created: now.Unix(),
		BaseDir: baseDir,
		Files:   make(map[string]Entry),
	}

	logger.Info("creating manifest", "dir", baseDir)

	err := filepath.Walk(baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(baseDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		entry := Entry{
			Path:  rel,
			MTime: info.ModTime().Unix(),
			Mode:  fileMode(info),
		}

		switch {
		case info.Mode()&os.ModeSymlink != 0:
			target, err := os.Readlink(path)
			if err != nil {
				return err
			}
			entry.IsSymlink = true
			entry.LinkTarget = target
		case info.IsDir():
			entry.IsDir = true
		default:
			hash, err := hashFile(path)
			if err != nil {
				return err
			}
			entry.Size = info.Size()
			entry.Hash = hash
			m.TotalSize += entry.Size
			m.FileCount++
		}

		m.Files[rel] = entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	return m, nil
}

// Save writes m as indented JSON to path, creating parent directories
// as needed.
func (m *Manifest) Save(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return err
	}

	logger.Info("saved manifest", "path", path)
	return nil
}

// Load reads a manifest from path and rejects a version mismatch.
func Load(path string) (*Manifest, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var m Manifest
	if err := json.NewDecoder(file).Decode(&m); err != nil {
		return nil, err
	}
	if m.Version != Version {
		return nil, &VersionError{Got: m.Version, Want: Version}
	}

	logger.Info("loaded manifest", "path", path)
	return &m, nil
}

// VersionError reports a manifest file of an unsupported format version.
type VersionError struct {
	Got, Want int
}

func (e *VersionError) Error() string {
	return "unsupported manifest version"
}

// Diff reports the changes new has relative to old: paths added in
// new, paths present in both but changed, and paths present only in
// old (deleted). A file is "modified" when its hash or mtime differs,
// matching original_source/manifest.rs::diff.
type Diff struct {
	Added    []string
	Modified []string
	Deleted  []string
}

// HasChanges reports whether the diff contains any change at all.
func (d Diff) HasChanges() bool {
	return len(d.Added) > 0 || len(d.Modified) > 0 || len(d.Deleted) > 0
}

// ChangeCount is the total number of changed paths across all three buckets.
func (d Diff) ChangeCount() int {
	return len(d.Added) + len(d.Modified) + len(d.Deleted)
}

// Diff compares old (the receiver) against new, returning what
// changed going from old to new.
func (old *Manifest) Diff(new *Manifest) Diff {
	var d Diff

	for path, entry := range new.Files {
		if oldEntry, ok := old.Files[path]; ok {
			if entry.Hash != oldEntry.Hash || entry.MTime != oldEntry.MTime {
				d.Modified = append(d.Modified, path)
			}
		} else {
			d.Added = append(d.Added, path)
		}
	}

	for path := range old.Files {
		if _, ok := new.Files[path]; !ok {
			d.Deleted = append(d.Deleted, path)
		}
	}

	sort.Strings(d.Added)
	sort.Strings(d.Modified)
	sort.Strings(d.Deleted)

	return d
}

func hashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hasher := blake3.New()
	buf := make([]byte, hashChunkSize)
	if _, err := io.CopyBuffer(hasher, file, buf); err != nil {
		return "", err
	}

	return hashToHex(hasher), nil
}

func hashToHex(h *blake3.Hasher) string {
	sum := h.Sum(nil)
	const hexDigits = "0123456789abcdef"
	out := make([]byte, len(sum)*2)
	for i, b := range sum {
		out[i*2] = hexDigits[b>>4]
		out[i*2+1] = hexDigits[b&0x0f]
	}
	return string(out)
}
