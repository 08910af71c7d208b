package strategy

import (
	"bytes"
	"math/rand"
	"testing"

	"archivekit/pkg/codec"
	"archivekit/pkg/config"
)

type fakeSniffer struct {
	samples map[string][]byte
	sizes   map[string]int64
}

func (f fakeSniffer) Size(path string) (int64, error) { return f.sizes[path], nil }
func (f fakeSniffer) Sample(path string, n int) ([]byte, error) {
	s := f.samples[path]
	if len(s) > n {
		s = s[:n]
	}
	return s, nil
}

func TestDecideAlreadyCompressedSkipsCompression(t *testing.T) {
	cfg := config.Defaults()
	eng := New(cfg, fakeSniffer{})

	spec := eng.Decide("movie.mp4", 50*1024*1024)
	if spec.Algorithm != codec.Store {
		t.Fatalf("expected Store for already-compressed extension, got %v", spec.Algorithm)
	}
}

func TestDecideForceCompressOverridesAlreadyCompressed(t *testing.T) {
	cfg := config.Defaults()
	cfg.ForceCompress = true
	eng := New(cfg, fakeSniffer{})

	spec := eng.Decide("movie.mp4", 50*1024*1024)
	if spec.Algorithm == codec.Store {
		t.Fatalf("expected force_compress to override the Store default, got Store")
	}
}

func TestDecideBelowMinSizeUsesStore(t *testing.T) {
	cfg := config.Defaults()
	cfg.MinFileSize = 4096
	eng := New(cfg, fakeSniffer{})

	spec := eng.Decide("small.txt", 100)
	if spec.Algorithm != codec.Store {
		t.Fatalf("expected Store below min_file_size, got %v", spec.Algorithm)
	}
}

func TestDecideConfiguredRuleWinsFirst(t *testing.T) {
	cfg := config.Defaults()
	cfg.Rules = []config.StrategyRule{
		{Extensions: []string{"log"}, Algorithm: "gzip", Level: 9},
	}
	eng := New(cfg, fakeSniffer{})

	spec := eng.Decide("server.log", 10*1024*1024)
	if spec.Algorithm != codec.Gzip || spec.Level != 9 {
		t.Fatalf("expected configured rule to win, got %+v", spec)
	}
}

func TestDecideXzAlwaysSingleThreaded(t *testing.T) {
	cfg := config.Defaults()
	cfg.LargeFileThreshold = 1024
	cfg.EnableLongMode = false
	eng := New(cfg, fakeSniffer{})

	spec := eng.Decide("big.bin", 10*1024*1024)
	if spec.Algorithm != codec.Xz {
		t.Fatalf("expected Xz above large_file_threshold with long mode disabled, got %v", spec.Algorithm)
	}
	if spec.Threads != 1 {
		t.Fatalf("expected Xz to be forced to 1 thread, got %d", spec.Threads)
	}
}

func TestDecideHighEntropyExtensionlessFileSkipsCompression(t *testing.T) {
	cfg := config.Defaults()
	data := make([]byte, EntropySampleSize)
	r := rand.New(rand.NewSource(1))
	r.Read(data)

	eng := New(cfg, fakeSniffer{
		samples: map[string][]byte{"blob": data},
		sizes:   map[string]int64{"blob": int64(len(data))},
	})

	spec := eng.Decide("blob", int64(len(data)))
	if spec.Algorithm != codec.Store {
		t.Fatalf("expected Store for high-entropy extensionless content, got %v", spec.Algorithm)
	}
}

func TestDecideLowEntropyExtensionlessFileCompresses(t *testing.T) {
	cfg := config.Defaults()
	data := bytes.Repeat([]byte("a"), EntropySampleSize)

	eng := New(cfg, fakeSniffer{
		samples: map[string][]byte{"blob": data},
		sizes:   map[string]int64{"blob": int64(len(data))},
	})

	spec := eng.Decide("blob", int64(len(data)))
	if spec.Algorithm == codec.Store {
		t.Fatalf("expected low-entropy extensionless content to compress, got Store")
	}
}

func TestSmartForDirectoryMostlyCompressedPicksStore(t *testing.T) {
	eng := New(config.Defaults(), fakeSniffer{})
	spec := eng.SmartForDirectory(DirStats{FileCount: 10, CompressedCount: 8, TotalSize: 10 * 1024 * 1024})
	if spec.Algorithm != codec.Store {
		t.Fatalf("expected Store when most entries are already compressed, got %v", spec.Algorithm)
	}
}

func TestSmartForDirectoryMostlyTextPicksHigherZstdLevel(t *testing.T) {
	eng := New(config.Defaults(), fakeSniffer{})
	spec := eng.SmartForDirectory(DirStats{FileCount: 10, TextFileCount: 8, TotalSize: 1024 * 1024})
	if spec.Algorithm != codec.Zstd || spec.Level != 6 {
		t.Fatalf("expected Zstd level 6 for a mostly-text tree, got %+v", spec)
	}
}

func TestSmartForDirectoryEmptyTreeDefaultsToZstd(t *testing.T) {
	eng := New(config.Defaults(), fakeSniffer{})
	spec := eng.SmartForDirectory(DirStats{})
	if spec.Algorithm != codec.Zstd {
		t.Fatalf("expected Zstd default for an empty directory, got %v", spec.Algorithm)
	}
}

func TestAdjustForParallelXzAlwaysOneThread(t *testing.T) {
	spec := codec.Spec{Algorithm: codec.Xz, Threads: 8}
	out := AdjustForParallel(spec, 500*1024*1024, 8)
	if out.Threads != 1 {
		t.Fatalf("expected Xz to stay single-threaded regardless of file size, got %d", out.Threads)
	}
}

func TestAdjustForParallelSmallZstdFileIsSingleThreaded(t *testing.T) {
	spec := codec.Spec{Algorithm: codec.Zstd, Threads: 8}
	out := AdjustForParallel(spec, 1024, 8)
	if out.Threads != 1 {
		t.Fatalf("expected a small zstd file to stay single-threaded, got %d", out.Threads)
	}
}

func TestAdjustForParallelLongWindowCapsThreadsAtFour(t *testing.T) {
	spec := codec.Spec{Algorithm: codec.Zstd, Threads: 16, LongWindow: true}
	out := AdjustForParallel(spec, LargeFileThreshold+1, 16)
	if out.Threads > 4 {
		t.Fatalf("expected long-window zstd threads capped at 4, got %d", out.Threads)
	}
}

func TestIsTextAndCompressedExtensionLookup(t *testing.T) {
	if !IsTextExtension("GO") {
		t.Fatal("expected case-insensitive text extension match")
	}
	if !IsCompressedExtension("zip") {
		t.Fatal("expected zip to be a known compressed extension")
	}
	if IsTextExtension("zip") || IsCompressedExtension("go") {
		t.Fatal("extension sets must not overlap")
	}
}
