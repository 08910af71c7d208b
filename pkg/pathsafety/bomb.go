package pathsafety

import (
	"fmt"

	"archivekit/pkg/archiveerr"
)

// DefaultMaxCompressionRatio and DefaultMaxExtractionBytes mirror
// original_source/security.rs's SecurityOptions defaults, adjusted to
// spec.md §4.3 step 7's stated defaults (ratio 1000:1, floor 1 GiB)
// rather than the Rust prototype's stricter 100:1 — spec.md is the
// authority where the two disagree.
const (
	DefaultMaxCompressionRatio = 1000.0
	DefaultMaxExtractionBytes  = 1 << 30 // 1 GiB
)

// CheckCompressionRatio trips when the observed uncompressed/compressed
// ratio exceeds maxRatio AND observed uncompressed bytes exceed
// minBombSize, per spec.md §4.3 step 7's combined guard.
func CheckCompressionRatio(compressedSize, uncompressedSize int64, maxRatio float64, minBombSize int64) error {
	if compressedSize <= 0 || uncompressedSize <= minBombSize {
		return nil
	}
	ratio := float64(uncompressedSize) / float64(compressedSize)
	if ratio > maxRatio {
		return archiveerr.New(archiveerr.CompressionBomb, "pathsafety.CheckCompressionRatio",
			fmt.Errorf("compression ratio %.1f:1 exceeds maximum %.1f:1", ratio, maxRatio))
	}
	return nil
}

// CheckExtractionSize trips when newTotal = currentTotal + entrySize
// would exceed maxSize, the aggregate-size half of the bomb guard.
func CheckExtractionSize(currentTotal, entrySize, maxSize int64) error {
	newTotal := currentTotal + entrySize
	if newTotal > maxSize {
		return archiveerr.New(archiveerr.CompressionBomb, "pathsafety.CheckExtractionSize",
			fmt.Errorf("extraction would exceed maximum size of %d bytes", maxSize))
	}
	return nil
}
