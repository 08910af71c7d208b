package pathsafety

import "path/filepath"

func parentOf(dir string) string {
	parent := filepath.Dir(dir)
	if parent == dir {
		return "."
	}
	return parent
}
