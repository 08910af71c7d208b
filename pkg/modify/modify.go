// Package modify implements spec.md §4.7's archive modifier: Add,
// Remove, and Update operate by streaming the existing archive's
// entries into a temporary file alongside any new ones, then
// atomically replacing the original. Grounded on
// original_source/archive/modifier.rs's tar_modifier and
// zip_modifier, generalised here over pkg/container's Reader/Writer
// so TAR and ZIP share one driver.
package modify

import (
	"errors"
	"io"
	"os"
	"path/filepath"

	"archivekit/pkg/archiveerr"
	"archivekit/pkg/container"
	"archivekit/pkg/logger"

	"github.com/gobwas/glob"
)

var errDirNotSupported = errors.New("modify: adding a directory directly is not supported, pass its files")

// Options configures a modify run. PreservePermissions and
// PreserveTimestamps mirror original_source's ModifyOptions; Go's
// os.FileInfo always carries both, so they gate whether new entries
// copy them or fall back to zero values.
type Options struct {
	PreservePermissions bool
	PreserveTimestamps  bool
}

// Result reports what a modify operation actually did, mirroring the
// counts original_source logs (added/removed/updated, plus a
// no-op guard that aborts the replace step when nothing changed).
type Result struct {
	Copied  int
	Added   int
	Removed int
	Updated int
}

func (r Result) changed() bool {
	return r.Added > 0 || r.Removed > 0 || r.Updated > 0
}

// Remove streams src into dst, dropping every entry whose path
// matches any of patterns (glob syntax over POSIX-style entry paths).
func Remove(src container.Reader, dst container.Writer, patterns []string) (Result, error) {
	globs := compileGlobs(patterns)
	var res Result

	for {
		entry, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return res, archiveerr.New(archiveerr.Format, "modify.Remove", err)
		}

		if matchesAny(globs, entry.Path) {
			logger.Debug("removing entry", "path", entry.Path)
			res.Removed++
			if entry.Reader != nil {
				io.Copy(io.Discard, entry.Reader)
			}
			continue
		}

		if err := dst.WriteEntry(entry); err != nil {
			return res, err
		}
		res.Copied++
	}

	return res, nil
}

// Add streams src into dst unchanged, then appends newPaths as new
// RegularFile entries, skipping any path already present in src and
// any that doesn't exist on disk, per original_source's add_files. A
// relative path is named relative to baseDir inside the archive; an
// absolute path is named by its base name alone.
func Add(src container.Reader, dst container.Writer, baseDir string, newPaths []string, opts Options) (Result, error) {
	var res Result
	existing := map[string]bool{}

	for {
		entry, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return res, archiveerr.New(archiveerr.Format, "modify.Add", err)
		}
		existing[entry.Path] = true
		if err := dst.WriteEntry(entry); err != nil {
			return res, err
		}
		res.Copied++
	}

	for _, p := range newPaths {
		archivePath := archiveName(baseDir, p)
		if existing[archivePath] {
			logger.Warn("file already exists in archive, skipping", "path", archivePath)
			continue
		}
		entry, file, err := buildEntry(p, archivePath, opts)
		if err != nil {
			logger.Warn("skipping file", "path", p, "err", err)
			continue
		}
		err = dst.WriteEntry(entry)
		if file != nil {
			file.Close()
		}
		if err != nil {
			return res, err
		}
		res.Added++
	}

	return res, nil
}

// Update streams src into dst, substituting the body (and, if
// opts allows, mode/mtime) of any entry whose path matches one of
// updatePaths' archive names with the on-disk file's current
// contents, per original_source's update_files.
func Update(src container.Reader, dst container.Writer, baseDir string, updatePaths []string, opts Options) (Result, error) {
	var res Result
	byName := make(map[string]string, len(updatePaths))
	for _, p := range updatePaths {
		byName[archiveName(baseDir, p)] = p
	}

	for {
		entry, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return res, archiveerr.New(archiveerr.Format, "modify.Update", err)
		}

		if diskPath, ok := byName[entry.Path]; ok {
			if entry.Reader != nil {
				io.Copy(io.Discard, entry.Reader)
			}
			newEntry, file, err := buildEntry(diskPath, entry.Path, opts)
			if err != nil {
				logger.Warn("update source missing, keeping archived copy", "path", diskPath, "err", err)
				entry.Reader = nil
				if err := dst.WriteEntry(entry); err != nil {
					return res, err
				}
				res.Copied++
				continue
			}
			err = dst.WriteEntry(newEntry)
			if file != nil {
				file.Close()
			}
			if err != nil {
				return res, err
			}
			res.Updated++
			continue
		}

		if err := dst.WriteEntry(entry); err != nil {
			return res, err
		}
		res.Copied++
	}

	return res, nil
}

func buildEntry(diskPath, archivePath string, opts Options) (container.Entry, *os.File, error) {
	info, err := os.Stat(diskPath)
	if err != nil {
		return container.Entry{}, nil, err
	}
	if info.IsDir() {
		return container.Entry{}, nil, archiveerr.New(archiveerr.Unsupported, "modify.buildEntry", errDirNotSupported)
	}

	file, err := os.Open(diskPath)
	if err != nil {
		return container.Entry{}, nil, err
	}

	entry := container.Entry{
		Path:   filepath.ToSlash(archivePath),
		Kind:   container.RegularFile,
		Size:   info.Size(),
		Reader: file,
	}
	if opts.PreservePermissions {
		entry.Mode = uint32(info.Mode().Perm())
	}
	if opts.PreserveTimestamps {
		entry.ModTime = info.ModTime()
	}
	return entry, file, nil
}

func archiveName(baseDir, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Base(path)
	}
	rel, err := filepath.Rel(baseDir, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func compileGlobs(patterns []string) []glob.Glob {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			logger.Warn("ignoring invalid remove pattern", "pattern", p, "err", err)
			continue
		}
		globs = append(globs, g)
	}
	return globs
}

func matchesAny(globs []glob.Glob, path string) bool {
	for _, g := range globs {
		if g.Match(path) {
			return true
		}
	}
	return false
}
