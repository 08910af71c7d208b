package modify

import (
	"io"
	"os"
	"path/filepath"
)

// ReplaceAtomic runs build (which streams src into a freshly-created
// temp file, typically via Add/Remove/Update) and, on success,
// atomically renames the temp file over archivePath. On any error the
// temp file is unlinked and archivePath is left untouched, per
// spec.md §4.7. If result.changed() is false, the temp file is
// discarded and archivePath keeps its original bytes, matching
// original_source's "no files matched" early-out.
func ReplaceAtomic(archivePath string, build func(tempPath string) (Result, error)) (Result, error) {
	dir := filepath.Dir(archivePath)
	temp, err := os.CreateTemp(dir, ".archivekit-modify-*")
	if err != nil {
		return Result{}, err
	}
	tempPath := temp.Name()
	temp.Close()

	cleanup := func() { os.Remove(tempPath) }

	res, err := build(tempPath)
	if err != nil {
		cleanup()
		return res, err
	}

	if !res.changed() {
		cleanup()
		return res, nil
	}

	if err := renameOrCopy(tempPath, archivePath); err != nil {
		cleanup()
		return res, err
	}

	return res, nil
}

// renameOrCopy attempts an atomic rename first (same filesystem);
// on failure (e.g. cross-device) it falls back to copy-then-delete,
// per spec.md §4.7.
func renameOrCopy(tempPath, dstPath string) error {
	if err := os.Rename(tempPath, dstPath); err == nil {
		return nil
	}

	src, err := os.Open(tempPath)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return err
	}
	return os.Remove(tempPath)
}
