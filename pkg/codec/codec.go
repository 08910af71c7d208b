// Package codec implements streaming compress/decompress for the five
// algorithms spec.md §4.1 names: Store, Gzip, Zstd, Xz, Brotli. Every
// codec wraps a byte sink into a compressing sink, or a byte source
// into a decompressing source — never materialising a whole archive
// in memory.
package codec

import (
	"fmt"
	"io"
	"strings"

	"archivekit/pkg/archiveerr"
)

// Algorithm identifies a compression codec.
type Algorithm int

const (
	Store Algorithm = iota
	Gzip
	Zstd
	Xz
	Brotli
)

func (a Algorithm) String() string {
	switch a {
	case Store:
		return "store"
	case Gzip:
		return "gzip"
	case Zstd:
		return "zstd"
	case Xz:
		return "xz"
	case Brotli:
		return "brotli"
	default:
		return "unknown"
	}
}

// Spec is a compression spec: (algorithm, level, threads, long_window),
// per spec.md §3. Level is algorithm-specific; Store ignores it.
// Threads is advisory — Xz always forces 1.
type Spec struct {
	Algorithm  Algorithm
	Level      int
	Threads    int
	LongWindow bool
}

// Normalize applies the invariants spec.md §4.1 and §8 require: Xz is
// always single-threaded, and Threads is never less than 1.
func (s Spec) Normalize() Spec {
	out := s
	if out.Threads < 1 {
		out.Threads = 1
	}
	if out.Algorithm == Xz && out.Threads != 1 {
		out.Threads = 1
	}
	return out
}

// WriteCloser is a compressing sink: bytes written to it are
// compressed and flushed to the wrapped writer on Close.
type WriteCloser interface {
	io.WriteCloser
}

// ReadCloser is a decompressing source.
type ReadCloser interface {
	io.ReadCloser
}

// NewEncoder wraps w into a compressing sink per spec.
func NewEncoder(w io.Writer, spec Spec) (WriteCloser, error) {
	spec = spec.Normalize()
	switch spec.Algorithm {
	case Store:
		return newStoreWriter(w), nil
	case Gzip:
		return newGzipWriter(w, spec.Level)
	case Zstd:
		return newZstdWriter(w, spec)
	case Xz:
		return newXzWriter(w, spec.Level)
	case Brotli:
		return newBrotliWriter(w, spec.Level)
	default:
		return nil, archiveerr.New(archiveerr.Unsupported, "codec.NewEncoder", fmt.Errorf("unknown algorithm %v", spec.Algorithm))
	}
}

// NewDecoder wraps r into a decompressing source for the given
// algorithm.
func NewDecoder(r io.Reader, alg Algorithm) (ReadCloser, error) {
	switch alg {
	case Store:
		return newStoreReader(r), nil
	case Gzip:
		return newGzipReader(r)
	case Zstd:
		return newZstdReader(r)
	case Xz:
		return newXzReader(r)
	case Brotli:
		return newBrotliReader(r)
	default:
		return nil, archiveerr.New(archiveerr.Unsupported, "codec.NewDecoder", fmt.Errorf("unknown algorithm %v", alg))
	}
}

// magic bytes per spec.md §4.1.
var (
	magicGzip  = []byte{0x1F, 0x8B}
	magicXz    = []byte{0xFD, 0x37, 0x7A, 0x58, 0x5A, 0x00}
	magicZstd  = []byte{0x28, 0xB5, 0x2F, 0xFD}
	magicZip   = []byte{0x50, 0x4B, 0x03, 0x04}
	magic7z    = []byte{0x37, 0x7A, 0xBC, 0xAF, 0x27, 0x1C}
)

// DetectBySuffix maps a filename suffix to an Algorithm. ok is false
// when the suffix names no known codec (Store is the zero value, not
// a detected Store).
func DetectBySuffix(name string) (Algorithm, bool) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".gz"), strings.HasSuffix(lower, ".tgz"):
		return Gzip, true
	case strings.HasSuffix(lower, ".zst"):
		return Zstd, true
	case strings.HasSuffix(lower, ".xz"), strings.HasSuffix(lower, ".txz"):
		return Xz, true
	case strings.HasSuffix(lower, ".br"):
		return Brotli, true
	default:
		return Store, false
	}
}

// DetectByMagic sniffs up to the first 6 bytes of header and returns
// the matching codec. Nothing in this module calls it: the archive
// readers pick their codec from DetectBySuffix alone.
func DetectByMagic(header []byte) (Algorithm, bool) {
	if hasPrefix(header, magicXz) {
		return Xz, true
	}
	if hasPrefix(header, magicZstd) {
		return Zstd, true
	}
	if hasPrefix(header, magicGzip) {
		return Gzip, true
	}
	return Store, false
}

func hasPrefix(b, prefix []byte) bool {
	if len(b) < len(prefix) {
		return false
	}
	for i, p := range prefix {
		if b[i] != p {
			return false
		}
	}
	return true
}

type storeWriter struct {
	w io.Writer
}

func newStoreWriter(w io.Writer) WriteCloser { return &storeWriter{w: w} }

func (s *storeWriter) Write(p []byte) (int, error) { return s.w.Write(p) }
func (s *storeWriter) Close() error                { return nil }

type storeReader struct {
	r io.Reader
}

func newStoreReader(r io.Reader) ReadCloser { return &storeReader{r: r} }

func (s *storeReader) Read(p []byte) (int, error) { return s.r.Read(p) }
func (s *storeReader) Close() error               { return nil }
