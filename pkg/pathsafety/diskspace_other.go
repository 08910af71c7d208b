//go:build !unix && !windows

package pathsafety

import "archivekit/pkg/logger"

// CheckDiskSpace is a no-op on platforms without a supported
// free-space syscall, matching original_source/security.rs's
// fallback branch (log and continue rather than fail the operation).
func CheckDiskSpace(dir string, requiredBytes int64) error {
	logger.Warn("disk space check not implemented for this platform", "dir", dir)
	return nil
}
