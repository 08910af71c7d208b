// Package strategy implements the smart-compression rule cascade,
// spec.md §4.4, grounded on original_source's strategy.rs: configured
// rules first, then a Shannon-entropy sniff for extension-less files,
// then size-tiered defaults, then the always-matching default rule.
package strategy

import (
	"math"
	"path/filepath"
	"strings"

	"archivekit/pkg/codec"
	"archivekit/pkg/config"

	"github.com/gobwas/glob"
)

// Thresholds mirror original_source/strategy.rs's constants.
const (
	LargeFileThreshold = 100 * 1024 * 1024
	SmallFileThreshold = 1024
	HighEntropyThreshold = 7.5
	EntropySampleSize    = 16 * 1024
)

// compressedExtensions and textExtensions are the same lists
// original_source/strategy.rs hardcodes; spec.md §4.4 step 3 names
// this set as "the already-compressed set" without enumerating it, so
// the concrete membership is taken from the source.
var compressedExtensions = map[string]bool{}
var textExtensions = map[string]bool{}

func init() {
	for _, e := range []string{
		"jpg", "jpeg", "png", "gif", "webp", "avif", "heic", "heif",
		"mp4", "avi", "mkv", "mov", "webm", "flv",
		"mp3", "aac", "flac", "ogg", "opus", "m4a", "wma",
		"zip", "rar", "7z", "gz", "bz2", "xz", "zst", "lz4",
		"dmg", "iso", "img",
		"pdf", "epub", "mobi",
		"apk", "ipa", "deb", "rpm", "msi", "exe",
	} {
		compressedExtensions[e] = true
	}
	for _, e := range []string{
		"txt", "log", "json", "xml", "yaml", "yml", "toml", "ini", "cfg", "conf", "md", "rst", "tex",
		"org", "adoc",
		"html", "htm", "css", "js", "ts", "jsx", "tsx",
		"py", "rs", "go", "c", "cpp", "h", "hpp", "java", "kt", "swift",
		"sh", "bash", "zsh", "fish", "ps1", "bat", "cmd",
		"sql", "csv", "tsv",
	} {
		textExtensions[e] = true
	}
}

// IsTextExtension reports whether ext (without the leading dot) is in
// the text-file extension set pkg/pack uses to build directory-wide
// statistics for SmartForDirectory.
func IsTextExtension(ext string) bool {
	return textExtensions[strings.ToLower(ext)]
}

// IsCompressedExtension reports whether ext names an already-compressed
// format.
func IsCompressedExtension(ext string) bool {
	return compressedExtensions[strings.ToLower(ext)]
}

// Sniffer supplies a small content sample and a size for a candidate
// path, decoupling the engine from filesystem access so it can be
// tested against in-memory fixtures.
type Sniffer interface {
	Size(path string) (int64, error)
	Sample(path string, n int) ([]byte, error)
}

// Engine evaluates spec.md §4.4's rule cascade against a loaded
// configuration.
type Engine struct {
	cfg     *config.Config
	sniffer Sniffer
}

func New(cfg *config.Config, sniffer Sniffer) *Engine {
	return &Engine{cfg: cfg, sniffer: sniffer}
}

// Decide maps path (plus its size) to a compression spec:
//  1. configured rules, in order — first match wins
//  2. otherwise start from the default (Zstd level 3)
//  3. already-compressed extension → Store, unless force_compress
//  4. no extension, size ≥ SmallFileThreshold, high entropy → Store,
//     unless force_compress
//  5. below min_file_size → Store
//  6. size tiers: > large_file_threshold*10 → Zstd long_window (when
//     enable_long_mode) or Xz level 2; > large_file_threshold → Xz
//     level 2; > 1 MiB → Zstd with 2 threads; text extension → Zstd
//     level 6
//
// finalize then re-applies steps 3 and 5 to every result, configured
// rules included, and clamps Xz to one thread.
func (e *Engine) Decide(path string, size int64) codec.Spec {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))

	if spec, ok := e.matchConfiguredRule(path, ext, size); ok {
		return e.finalize(spec, ext, size)
	}

	spec := codec.Spec{Algorithm: codec.Zstd, Level: 3, Threads: 1}

	if !e.cfg.ForceCompress && compressedExtensions[ext] {
		spec.Algorithm = codec.Store
		return e.finalize(spec, ext, size)
	}

	if !e.cfg.ForceCompress && ext == "" && size >= SmallFileThreshold && e.isHighEntropy(path) {
		spec.Algorithm = codec.Store
		return e.finalize(spec, ext, size)
	}

	minSize := e.cfg.MinFileSize
	if minSize <= 0 {
		minSize = SmallFileThreshold
	}
	if size < minSize {
		spec.Algorithm = codec.Store
		return e.finalize(spec, ext, size)
	}

	largeThreshold := e.cfg.LargeFileThreshold
	if largeThreshold <= 0 {
		largeThreshold = LargeFileThreshold
	}

	switch {
	case size > largeThreshold*10:
		if e.cfg.EnableLongMode {
			spec.Algorithm = codec.Zstd
			spec.LongWindow = true
			spec.Threads = 2
			spec.Level = 3
		} else {
			spec.Algorithm = codec.Xz
			spec.Threads = 1
			spec.Level = 2
		}
	case size > largeThreshold:
		spec.Algorithm = codec.Xz
		spec.Threads = 1
		spec.Level = 2
	case size > 1024*1024:
		spec.Algorithm = codec.Zstd
		spec.Threads = 2
	case textExtensions[ext]:
		spec.Algorithm = codec.Zstd
		spec.Level = 6
		spec.Threads = 4
	}

	return e.finalize(spec, ext, size)
}

// finalize applies the invariants that always win regardless of which
// branch selected the algorithm: an already-compressed extension
// (unless force_compress) or a size below min_file_size overrides to
// Store, and Xz clamps to one thread (the Xz-thread-clamp testable
// property in spec.md §8).
func (e *Engine) finalize(spec codec.Spec, ext string, size int64) codec.Spec {
	if spec.Algorithm != codec.Store {
		minSize := e.cfg.MinFileSize
		if minSize <= 0 {
			minSize = SmallFileThreshold
		}
		if (!e.cfg.ForceCompress && compressedExtensions[ext]) || size < minSize {
			spec.Algorithm = codec.Store
		}
	}
	return spec.Normalize()
}

// matchConfiguredRule scans cfg.Rules in order (step 1), then falls
// back to cfg.SizeRules; the first whose predicate matches wins.
func (e *Engine) matchConfiguredRule(path, ext string, size int64) (codec.Spec, bool) {
	name := filepath.Base(path)
	for _, r := range e.cfg.Rules {
		if len(r.Extensions) > 0 && !extensionMatches(r.Extensions, name, ext) {
			continue
		}
		if r.MinSize > 0 && size < r.MinSize {
			continue
		}
		if r.MaxSize > 0 && size > r.MaxSize {
			continue
		}
		alg, ok := parseAlgorithm(r.Algorithm)
		if !ok {
			continue
		}
		return codec.Spec{Algorithm: alg, Level: r.Level, Threads: 1}, true
	}

	for _, r := range e.cfg.SizeRules {
		if size < r.MinSize {
			continue
		}
		if r.MaxSize > 0 && size > r.MaxSize {
			continue
		}
		alg, ok := parseAlgorithm(r.Algorithm)
		if !ok {
			continue
		}
		return codec.Spec{Algorithm: alg, Level: r.Level, Threads: threadsForSizeRule(alg, size)}, true
	}

	return codec.Spec{}, false
}

func threadsForSizeRule(alg codec.Algorithm, size int64) int {
	switch alg {
	case codec.Xz:
		return 1
	case codec.Zstd:
		switch {
		case size < 10*1024*1024:
			return 1
		case size < 100*1024*1024:
			return 2
		default:
			return 4
		}
	case codec.Brotli:
		if size < 50*1024*1024 {
			return 1
		}
		return 2
	default:
		return 4
	}
}

func extensionMatches(patterns []string, name, ext string) bool {
	for _, p := range patterns {
		if strings.EqualFold(p, ext) {
			return true
		}
		if g, err := glob.Compile(p); err == nil && g.Match(name) {
			return true
		}
	}
	return false
}

func parseAlgorithm(s string) (codec.Algorithm, bool) {
	switch strings.ToLower(s) {
	case "store", "none":
		return codec.Store, true
	case "gzip", "gz":
		return codec.Gzip, true
	case "zstd", "zst":
		return codec.Zstd, true
	case "xz":
		return codec.Xz, true
	case "brotli", "br":
		return codec.Brotli, true
	default:
		return codec.Store, false
	}
}

// DirStats summarises a directory walk for SmartForDirectory: the
// caller (pkg/pack) gathers these while walking rather than this
// package re-walking the tree itself.
type DirStats struct {
	FileCount       int
	TotalSize       int64
	TextFileCount   int
	CompressedCount int
}

// SmartForDirectory picks one outer codec for an entire TAR/7z stream
// from aggregate directory statistics, per
// original_source/strategy.rs::smart_for_directory: used when the
// container format forces a single stream-level codec instead of a
// per-entry one (spec.md §4.2's TAR/7z case, contrasted with ZIP's
// per-entry Decide).
func (e *Engine) SmartForDirectory(stats DirStats) codec.Spec {
	if stats.FileCount == 0 {
		return codec.Spec{Algorithm: codec.Zstd, Level: 3, Threads: 1}.Normalize()
	}

	compressedRatio := float64(stats.CompressedCount) / float64(stats.FileCount)
	textRatio := float64(stats.TextFileCount) / float64(stats.FileCount)
	avgFileSize := stats.TotalSize / int64(stats.FileCount)

	threads := e.cfg.Threads
	if threads <= 0 {
		threads = 1
	}

	switch {
	case compressedRatio > 0.7:
		return codec.Spec{Algorithm: codec.Store, Threads: 1}.Normalize()
	case textRatio > 0.5:
		return codec.Spec{Algorithm: codec.Zstd, Level: 6, Threads: max(threads, 4)}.Normalize()
	case avgFileSize < SmallFileThreshold:
		return codec.Spec{Algorithm: codec.Zstd, Level: 1, Threads: threads}.Normalize()
	case stats.TotalSize > LargeFileThreshold*10:
		return codec.Spec{Algorithm: codec.Xz, Level: 2, Threads: 2}.Normalize()
	default:
		return codec.Spec{Algorithm: codec.Zstd, Level: 3, Threads: threads}.Normalize()
	}
}

// AdjustForParallel scales spec.Threads by file size and algorithm,
// per original_source/strategy.rs::adjust_for_parallel. pkg/pack calls
// this after Decide for large regular files so a single huge entry
// doesn't monopolize every worker.
func AdjustForParallel(spec codec.Spec, fileSize int64, currentThreads int) codec.Spec {
	if currentThreads <= 0 {
		currentThreads = 1
	}
	out := spec
	switch spec.Algorithm {
	case codec.Zstd:
		switch {
		case fileSize < 10*1024*1024:
			out.Threads = 1
		case fileSize < LargeFileThreshold:
			out.Threads = max(currentThreads/2, 2)
		default:
			out.Threads = max(currentThreads, 4)
		}
		if spec.LongWindow && out.Threads > 4 {
			out.Threads = 4
		}
	case codec.Xz:
		out.Threads = 1
	case codec.Brotli:
		if fileSize < 50*1024*1024 {
			out.Threads = 1
		} else {
			out.Threads = clamp(currentThreads/2, 1, 4)
		}
	case codec.Gzip:
		out.Threads = min(currentThreads, 2)
	default:
		out.Threads = 1
	}
	return out.Normalize()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// isHighEntropy samples up to EntropySampleSize bytes from path and
// reports whether their Shannon entropy exceeds HighEntropyThreshold,
// per original_source/strategy.rs::is_high_entropy_file. This is the
// concrete algorithm behind spec.md §4.4's "sniffed content" input.
func (e *Engine) isHighEntropy(path string) bool {
	if e.sniffer == nil {
		return false
	}
	sample, err := e.sniffer.Sample(path, EntropySampleSize)
	if err != nil || len(sample) == 0 {
		return false
	}
	return shannonEntropy(sample) > HighEntropyThreshold
}

func shannonEntropy(data []byte) float64 {
	var freq [256]int
	for _, b := range data {
		freq[b]++
	}
	invLen := 1.0 / float64(len(data))
	var entropy float64
	for _, count := range freq {
		if count == 0 {
			continue
		}
		p := float64(count) * invLen
		entropy -= p * math.Log2(p)
	}
	return entropy
}
