//go:build !unix

package manifest

import "os"

// fileMode is unset outside POSIX platforms, matching
// original_source's cfg(not(unix)) get_file_mode.
func fileMode(info os.FileInfo) uint32 {
	return 0
}
