package pathsafety

import (
	"os"
	"time"

	"archivekit/pkg/logger"
)

// RestoreMetadata applies mode, mtime, and (best-effort) ownership to
// path, in the strict order spec.md §4.3 requires: contents are
// already written by the caller before RestoreMetadata runs; this
// only sets mode, then mtime, then ownership. Ownership failures are
// demoted to warnings rather than aborting the entry.
func RestoreMetadata(path string, mode os.FileMode, mtime time.Time, uid, gid int) {
	if mode != 0 {
		if err := os.Chmod(path, mode); err != nil {
			logger.Warn("failed to set mode", "path", path, "err", err)
		}
	}
	if !mtime.IsZero() {
		if err := os.Chtimes(path, mtime, mtime); err != nil {
			logger.Warn("failed to set mtime", "path", path, "err", err)
		}
	}
	if uid >= 0 && gid >= 0 {
		if err := chown(path, uid, gid); err != nil {
			logger.Warn("failed to set ownership, process likely unprivileged", "path", path, "err", err)
		}
	}
}
