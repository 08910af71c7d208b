package pathsafety

import "errors"

var (
	errNulByte         = errors.New("path contains a NUL byte")
	errAbsolutePath    = errors.New("absolute path not allowed")
	errDrivePrefix     = errors.New("windows drive prefix not allowed")
	errTraversal       = errors.New("path traversal attempt detected")
	errEscapesRoot     = errors.New("path would escape extraction root")
	errAbsoluteSymlink = errors.New("symlink has absolute target")
	errSymlinkEscapes  = errors.New("symlink target would escape extraction root")
)
