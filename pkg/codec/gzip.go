package codec

import (
	"io"

	"archivekit/pkg/archiveerr"

	"github.com/klauspost/compress/gzip"
)

func newGzipWriter(w io.Writer, level int) (WriteCloser, error) {
	if level < gzip.HuffmanOnly || level > gzip.BestCompression {
		level = gzip.DefaultCompression
	}
	gw, err := gzip.NewWriterLevel(w, level)
	if err != nil {
		return nil, archiveerr.New(archiveerr.Format, "codec.gzip", err)
	}
	return gw, nil
}

func newGzipReader(r io.Reader) (ReadCloser, error) {
	gr, err := gzip.NewReader(r)
	if err != nil {
		return nil, archiveerr.New(archiveerr.Format, "codec.gzip", err)
	}
	return gr, nil
}
