//go:build unix

package pathsafety

import (
	"fmt"
	"os"

	"archivekit/pkg/archiveerr"

	"golang.org/x/sys/unix"
)

// CheckDiskSpace verifies that the filesystem holding dir has at
// least requiredBytes available, per spec.md §3.1's disk-space
// preflight and original_source/security.rs::check_disk_space's unix
// branch. If dir does not yet exist, its parent is statted instead.
func CheckDiskSpace(dir string, requiredBytes int64) error {
	statDir := dir
	if _, err := os.Stat(dir); err != nil {
		statDir = parentOf(dir)
	}

	var stat unix.Statfs_t
	if err := unix.Statfs(statDir, &stat); err != nil {
		return archiveerr.WithPath(archiveerr.Io, "pathsafety.CheckDiskSpace", dir, err)
	}

	available := int64(stat.Bavail) * int64(stat.Bsize)
	if available < requiredBytes {
		return archiveerr.WithPath(archiveerr.Io, "pathsafety.CheckDiskSpace", dir,
			fmt.Errorf("insufficient disk space: %d bytes available, %d bytes required", available, requiredBytes))
	}
	return nil
}
