package container

import (
	"bytes"
	"strings"
)

var magicZip = []byte{0x50, 0x4B, 0x03, 0x04}
var magic7z = []byte{0x37, 0x7A, 0xBC, 0xAF, 0x27, 0x1C}

// DetectFormat maps a filename and, if the name carries no recognised
// extension, a sniffed header onto a ContainerFormat. Suffix wins
// whenever present; magic bytes are only consulted when the name has
// no extension at all (resolved Open Question 2 — see DESIGN.md).
func DetectFormat(name string, header []byte) (ContainerFormat, bool) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".tar"),
		strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"),
		strings.HasSuffix(lower, ".tar.zst"),
		strings.HasSuffix(lower, ".tar.xz"), strings.HasSuffix(lower, ".txz"),
		strings.HasSuffix(lower, ".tar.br"):
		return Tar, true
	case strings.HasSuffix(lower, ".zip"):
		return Zip, true
	case strings.HasSuffix(lower, ".7z"):
		return SevenZip, true
	}

	if hasAnyExtension(lower) {
		// Named but unrecognised extension: no suffix match, and magic
		// sniffing is reserved for extension-less names only.
		return Tar, false
	}

	if bytes.HasPrefix(header, magicZip) {
		return Zip, true
	}
	if bytes.HasPrefix(header, magic7z) {
		return SevenZip, true
	}
	return Tar, false
}

func hasAnyExtension(lower string) bool {
	slash := strings.LastIndexByte(lower, '/')
	base := lower[slash+1:]
	dot := strings.IndexByte(base, '.')
	return dot > 0
}
