//go:build windows

package pathsafety

import (
	"fmt"
	"os"

	"archivekit/pkg/archiveerr"

	"golang.org/x/sys/windows"
)

// CheckDiskSpace verifies that the volume holding dir has at least
// requiredBytes available, per spec.md §3.1's disk-space preflight
// and original_source/security.rs::check_disk_space's windows branch.
func CheckDiskSpace(dir string, requiredBytes int64) error {
	statDir := dir
	if _, err := os.Stat(dir); err != nil {
		statDir = parentOf(dir)
	}

	ptr, err := windows.UTF16PtrFromString(statDir)
	if err != nil {
		return archiveerr.WithPath(archiveerr.Io, "pathsafety.CheckDiskSpace", dir, err)
	}

	var freeAvail, total, free uint64
	if err := windows.GetDiskFreeSpaceEx(ptr, &freeAvail, &total, &free); err != nil {
		return archiveerr.WithPath(archiveerr.Io, "pathsafety.CheckDiskSpace", dir, err)
	}

	if int64(freeAvail) < requiredBytes {
		return archiveerr.WithPath(archiveerr.Io, "pathsafety.CheckDiskSpace", dir,
			fmt.Errorf("insufficient disk space: %d bytes available, %d bytes required", freeAvail, requiredBytes))
	}
	return nil
}
