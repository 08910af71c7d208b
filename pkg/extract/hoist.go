package extract

import (
	"os"
	"path/filepath"
)

// Hoist drops a single shared top-level directory from an already
// extracted tree, per spec.md §4.3 step 3 and Open Question 1's
// resolution (see DESIGN.md): it runs as a post-extraction filesystem
// pass, activating only when outputRoot contains exactly one entry
// and that entry is itself a directory. Grounded on
// original_source/archive/mod.rs::hoist_single_directory.
func Hoist(outputRoot string) error {
	entries, err := os.ReadDir(outputRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if len(entries) != 1 || !entries[0].IsDir() {
		return nil
	}

	subdir := filepath.Join(outputRoot, entries[0].Name())
	subEntries, err := os.ReadDir(subdir)
	if err != nil {
		return err
	}

	for _, sub := range subEntries {
		src := filepath.Join(subdir, sub.Name())
		dst := filepath.Join(outputRoot, sub.Name())
		if err := os.Rename(src, dst); err != nil {
			return err
		}
	}

	return os.Remove(subdir)
}
