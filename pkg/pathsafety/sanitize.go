// Package pathsafety implements extraction-time path sanitisation,
// symlink-target validation, and the compression-bomb and disk-space
// guards, per spec.md §4.3 and original_source's security.rs.
package pathsafety

import (
	"path/filepath"
	"strings"

	"archivekit/pkg/archiveerr"
)

// Sanitize resolves an archive entry's logical path against base,
// rejecting absolute paths, drive prefixes, ".." components, and NUL
// bytes, per spec.md §4.3 steps 1 and 4. Grounded on
// original_source/security.rs::sanitize_path, adapted from Rust's
// Path::components() walk to POSIX-style slash splitting since
// archive paths are always POSIX-style per spec.md §3.
func Sanitize(base, untrusted string) (string, error) {
	if strings.IndexByte(untrusted, 0) >= 0 {
		return "", archiveerr.WithPath(archiveerr.InvalidPath, "pathsafety.Sanitize", untrusted, errNulByte)
	}

	clean := strings.ReplaceAll(untrusted, "\\", "/")
	if strings.HasPrefix(clean, "/") {
		return "", archiveerr.WithPath(archiveerr.InvalidPath, "pathsafety.Sanitize", untrusted, errAbsolutePath)
	}
	if hasWindowsDrivePrefix(clean) {
		return "", archiveerr.WithPath(archiveerr.InvalidPath, "pathsafety.Sanitize", untrusted, errDrivePrefix)
	}

	var kept []string
	for _, seg := range strings.Split(clean, "/") {
		switch seg {
		case "", ".":
			continue
		case "..":
			return "", archiveerr.WithPath(archiveerr.InvalidPath, "pathsafety.Sanitize", untrusted, errTraversal)
		default:
			kept = append(kept, seg)
		}
	}

	resolved := filepath.Join(base, filepath.Join(kept...))

	// Re-verify post-join: the resolved target must remain lexically
	// under base, defending against any traversal step 1-3 missed.
	absBase, err := filepath.Abs(base)
	if err != nil {
		return "", archiveerr.WithPath(archiveerr.Io, "pathsafety.Sanitize", untrusted, err)
	}
	absResolved, err := filepath.Abs(resolved)
	if err != nil {
		return "", archiveerr.WithPath(archiveerr.Io, "pathsafety.Sanitize", untrusted, err)
	}
	if absResolved != absBase && !strings.HasPrefix(absResolved, absBase+string(filepath.Separator)) {
		return "", archiveerr.WithPath(archiveerr.InvalidPath, "pathsafety.Sanitize", untrusted, errEscapesRoot)
	}

	return resolved, nil
}

func hasWindowsDrivePrefix(p string) bool {
	return len(p) >= 2 && p[1] == ':' && ((p[0] >= 'a' && p[0] <= 'z') || (p[0] >= 'A' && p[0] <= 'Z'))
}

// StripComponents drops the first n path segments from path, per
// spec.md §4.3 step 2. An entry with <= n segments returns ok=false
// and should be skipped.
func StripComponents(path string, n int) (string, bool) {
	if n <= 0 {
		return path, true
	}
	segs := strings.Split(strings.Trim(path, "/"), "/")
	if len(segs) <= n {
		return "", false
	}
	return strings.Join(segs[n:], "/"), true
}

// ValidateSymlinkTarget checks that target, a symlink's raw link
// body, does not escape base once resolved relative to linkPath's
// parent directory, per spec.md §4.3 step 6. When followSymlinks is
// true the check is skipped — the caller is expected to copy the
// referenced file instead of creating the link. Grounded on
// original_source/security.rs::validate_symlink.
func ValidateSymlinkTarget(linkPath, target string, followSymlinks bool) error {
	if followSymlinks {
		return nil
	}
	target = strings.ReplaceAll(target, "\\", "/")
	if strings.HasPrefix(target, "/") {
		return archiveerr.WithPath(archiveerr.InvalidPath, "pathsafety.ValidateSymlinkTarget", linkPath, errAbsoluteSymlink)
	}

	dir := filepath.Dir(strings.ReplaceAll(linkPath, "\\", "/"))
	if dir == "." {
		dir = ""
	}
	var stack []string
	if dir != "" {
		stack = strings.Split(dir, "/")
	}

	for _, seg := range strings.Split(target, "/") {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(stack) == 0 {
				return archiveerr.WithPath(archiveerr.InvalidPath, "pathsafety.ValidateSymlinkTarget", linkPath, errSymlinkEscapes)
			}
			stack = stack[:len(stack)-1]
		default:
			stack = append(stack, seg)
		}
	}
	return nil
}
