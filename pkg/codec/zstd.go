package codec

import (
	"io"

	"archivekit/pkg/archiveerr"

	"github.com/klauspost/compress/zstd"
)

// zstdLongWindowSize is the window size enabled when a spec sets
// LongWindow, matching spec.md §4.1's "long-range window for files >
// ~1 GiB". Grounded on klauspost/compress/zstd's WithWindowSize option
// as used in meigma-blob's encoder setup.
const zstdLongWindowSize = 128 << 20

type zstdWriteCloser struct {
	*zstd.Encoder
}

func newZstdWriter(w io.Writer, spec Spec) (WriteCloser, error) {
	opts := []zstd.EOption{
		zstd.WithEncoderLevel(zstdLevel(spec.Level)),
		zstd.WithEncoderConcurrency(max(1, spec.Threads)),
		zstd.WithLowerEncoderMem(true),
	}
	if spec.LongWindow {
		opts = append(opts, zstd.WithWindowSize(zstdLongWindowSize))
	}
	enc, err := zstd.NewWriter(w, opts...)
	if err != nil {
		return nil, archiveerr.New(archiveerr.Format, "codec.zstd", err)
	}
	return &zstdWriteCloser{enc}, nil
}

func (z *zstdWriteCloser) Close() error {
	return z.Encoder.Close()
}

type zstdReadCloser struct {
	*zstd.Decoder
}

func newZstdReader(r io.Reader) (ReadCloser, error) {
	dec, err := zstd.NewReader(r, zstd.WithDecoderMaxMemory(zstdLongWindowSize*2))
	if err != nil {
		return nil, archiveerr.New(archiveerr.Format, "codec.zstd", err)
	}
	return &zstdReadCloser{dec}, nil
}

func (z *zstdReadCloser) Close() error {
	z.Decoder.Close()
	return nil
}

// zstdLevel maps spec.md §4.1's level range [-7, 22] (default 3) onto
// klauspost/compress's named EncoderLevel tiers.
func zstdLevel(level int) zstd.EncoderLevel {
	switch {
	case level <= 0:
		return zstd.SpeedFastest
	case level <= 3:
		return zstd.SpeedDefault
	case level <= 9:
		return zstd.SpeedBetterCompression
	default:
		return zstd.SpeedBestCompression
	}
}
