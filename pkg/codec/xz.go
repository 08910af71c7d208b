package codec

import (
	"io"

	"archivekit/pkg/archiveerr"

	"github.com/ulikunitz/xz"
)

// Xz is forced single-threaded unconditionally by Spec.Normalize, per
// spec.md §4.1 and the Xz-thread-clamp testable property (§8) — the
// underlying LZMA2 stream format has no parallel mode in this library.

func newXzWriter(w io.Writer, level int) (WriteCloser, error) {
	cfg := xz.WriterConfig{DictCap: xzDictCap(level)}
	xw, err := cfg.NewWriter(w)
	if err != nil {
		return nil, archiveerr.New(archiveerr.Format, "codec.xz", err)
	}
	return xw, nil
}

func newXzReader(r io.Reader) (ReadCloser, error) {
	xr, err := xz.NewReader(r)
	if err != nil {
		return nil, archiveerr.New(archiveerr.Format, "codec.xz", err)
	}
	return &xzReadCloser{xr}, nil
}

type xzReadCloser struct {
	*xz.Reader
}

func (x *xzReadCloser) Close() error { return nil }

// xzDictCap maps spec.md §4.1's level range [0,9] onto a dictionary
// capacity; ulikunitz/xz exposes dictionary size rather than a named
// level knob.
func xzDictCap(level int) int {
	switch {
	case level <= 0:
		return 1 << 20
	case level >= 9:
		return 64 << 20
	default:
		return (1 << 20) << uint(level)
	}
}
