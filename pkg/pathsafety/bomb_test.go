package pathsafety

import (
	"testing"

	"archivekit/pkg/archiveerr"
)

func TestCheckCompressionRatioTripsAboveThreshold(t *testing.T) {
	err := CheckCompressionRatio(1024, 2_000_000, 1000, 1024)
	if err == nil {
		t.Fatal("expected a ratio above 1000:1 to trip the bomb guard")
	}
	if !archiveerr.Is(err, archiveerr.CompressionBomb) {
		t.Fatalf("expected CompressionBomb kind, got %v", err)
	}
}

func TestCheckCompressionRatioIgnoresSmallFiles(t *testing.T) {
	err := CheckCompressionRatio(10, 100_000, 1000, 1<<20)
	if err != nil {
		t.Fatalf("expected ratio guard to ignore files below minBombSize, got %v", err)
	}
}

func TestCheckCompressionRatioWithinLimitPasses(t *testing.T) {
	err := CheckCompressionRatio(1024, 500_000, 1000, 1024)
	if err != nil {
		t.Fatalf("expected ratio within limit to pass, got %v", err)
	}
}

func TestCheckExtractionSizeTripsWhenTotalExceedsMax(t *testing.T) {
	err := CheckExtractionSize(900, 200, 1000)
	if err == nil {
		t.Fatal("expected running total + entry to trip the max-size guard")
	}
}

func TestCheckExtractionSizeAllowsExactBoundary(t *testing.T) {
	err := CheckExtractionSize(800, 200, 1000)
	if err != nil {
		t.Fatalf("expected exact boundary to pass, got %v", err)
	}
}
