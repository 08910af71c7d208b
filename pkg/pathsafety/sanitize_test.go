package pathsafety

import (
	"testing"

	"archivekit/pkg/archiveerr"
)

func TestSanitizeRejectsTraversal(t *testing.T) {
	cases := []string{
		"../../etc/passwd",
		"a/../../b",
		"/etc/passwd",
		"C:\\Windows\\system32",
		"a/b\x00c",
	}
	for _, c := range cases {
		if _, err := Sanitize("/out", c); err == nil {
			t.Errorf("expected Sanitize to reject %q, got nil error", c)
		} else if !archiveerr.Is(err, archiveerr.InvalidPath) {
			t.Errorf("expected InvalidPath kind for %q, got %v", c, err)
		}
	}
}

func TestSanitizeAcceptsOrdinaryRelativePath(t *testing.T) {
	out, err := Sanitize("/out", "a/b/c.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "/out/a/b/c.txt"
	if out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

func TestSanitizeCollapsesDotSegments(t *testing.T) {
	out, err := Sanitize("/out", "./a/./b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "/out/a/b" {
		t.Fatalf("got %q", out)
	}
}

func TestStripComponents(t *testing.T) {
	tests := []struct {
		path string
		n    int
		want string
		ok   bool
	}{
		{"a/b/c.txt", 1, "b/c.txt", true},
		{"a/b/c.txt", 0, "a/b/c.txt", true},
		{"a/b/c.txt", 3, "", false},
		{"a", 1, "", false},
	}
	for _, tt := range tests {
		got, ok := StripComponents(tt.path, tt.n)
		if ok != tt.ok || got != tt.want {
			t.Errorf("StripComponents(%q, %d) = (%q, %v), want (%q, %v)", tt.path, tt.n, got, ok, tt.want, tt.ok)
		}
	}
}

func TestValidateSymlinkTargetRejectsEscape(t *testing.T) {
	if err := ValidateSymlinkTarget("a/link", "../../outside", false); err == nil {
		t.Fatal("expected symlink escaping root to be rejected")
	}
}

func TestValidateSymlinkTargetAllowsWithinRoot(t *testing.T) {
	if err := ValidateSymlinkTarget("a/b/link", "../sibling.txt", false); err != nil {
		t.Fatalf("unexpected error for a within-root relative target: %v", err)
	}
}

func TestValidateSymlinkTargetSkippedWhenFollowingSymlinks(t *testing.T) {
	if err := ValidateSymlinkTarget("a/link", "../../outside", true); err != nil {
		t.Fatalf("expected no validation when following symlinks, got %v", err)
	}
}
