//go:build unix

package manifest

import (
	"os"
	"syscall"
)

// fileMode extracts the raw Unix permission bits, matching
// original_source's cfg(unix) get_file_mode.
func fileMode(info os.FileInfo) uint32 {
	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		return uint32(stat.Mode & 0o7777)
	}
	return uint32(info.Mode().Perm())
}
