//go:build !unix

package pathsafety

import "errors"

// chown is unsupported outside POSIX platforms; RestoreMetadata
// demotes the resulting error to a warning.
func chown(path string, uid, gid int) error {
	return errors.New("ownership is not settable on this platform")
}
