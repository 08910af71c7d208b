package codec

import (
	"io"

	"github.com/andybalholm/brotli"
)

func newBrotliWriter(w io.Writer, level int) (WriteCloser, error) {
	if level < brotli.BestSpeed {
		level = brotli.BestSpeed
	}
	if level > brotli.BestCompression {
		level = brotli.BestCompression
	}
	return brotli.NewWriterLevel(w, level), nil
}

type brotliReadCloser struct {
	*brotli.Reader
}

func (b *brotliReadCloser) Close() error { return nil }

func newBrotliReader(r io.Reader) (ReadCloser, error) {
	return &brotliReadCloser{brotli.NewReader(r)}, nil
}
