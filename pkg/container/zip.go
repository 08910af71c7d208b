package container

import (
	"archive/zip"
	"io"
	"strconv"

	"archivekit/pkg/archiveerr"
	"archivekit/pkg/codec"
	"archivekit/pkg/progress"
)

// ValidateCodecForContainer rejects codec/container combinations the
// format can't express, per spec.md §4.2: ZIP's native framing only
// carries Store or Deflate per entry, so a Zstd/Xz/Brotli outer
// request against a ZIP output must fail before any bytes are
// written (the Codec×container rejection testable property, §8).
func ValidateCodecForContainer(format ContainerFormat, alg codec.Algorithm) error {
	if format != Zip {
		return nil
	}
	switch alg {
	case codec.Store, codec.Gzip:
		// Gzip-as-"Deflate" is mapped onto zip.Deflate by the caller.
		return nil
	default:
		return archiveerr.New(archiveerr.Unsupported, "container.zip", errUnsupportedZipCodec(alg))
	}
}

func errUnsupportedZipCodec(alg codec.Algorithm) error {
	return &unsupportedZipCodecError{alg: alg}
}

type unsupportedZipCodecError struct{ alg codec.Algorithm }

func (e *unsupportedZipCodecError) Error() string {
	return "zip only supports Store or Deflate, not " + e.alg.String()
}

// ZipWriter streams entries as a PKZIP archive: local file header +
// body per entry, central directory at Close, per spec.md §4.2.
type ZipWriter struct {
	zw    *zip.Writer
	token *progress.Token
}

func NewZipWriter(w io.Writer) *ZipWriter {
	return &ZipWriter{zw: zip.NewWriter(w)}
}

func (z *ZipWriter) WriteEntry(e Entry) error {
	hdr := &zip.FileHeader{
		Name:     zipEntryName(e),
		Modified: e.ModTime,
		Method:   e.ZipMethod,
	}
	if e.Kind == Symlink {
		// Unix mode bits in the high 16 of ExternalAttrs, 0xA000 marks
		// a symlink — always emitted regardless of archive origin
		// (resolved Open Question 3, see DESIGN.md).
		hdr.ExternalAttrs = (0xA000 | (e.Mode & 0o777)) << 16
	} else if e.Kind == Directory {
		hdr.ExternalAttrs = (0o040000 | (e.Mode & 0o777)) << 16
	} else {
		hdr.ExternalAttrs = (e.Mode & 0o777) << 16
	}

	fw, err := z.zw.CreateHeader(hdr)
	if err != nil {
		return archiveerr.WithPath(archiveerr.Io, "container.zip.CreateHeader", e.Path, err)
	}

	switch e.Kind {
	case Symlink:
		if _, err := fw.Write([]byte(e.LinkTarget)); err != nil {
			return archiveerr.WithPath(archiveerr.Io, "container.zip.WriteBody", e.Path, err)
		}
	case RegularFile:
		if e.Reader != nil {
			if _, err := progress.Copy(fw, e.Reader, z.counter()); err != nil {
				return archiveerr.WithPath(archiveerr.Io, "container.zip.WriteBody", e.Path, err)
			}
		}
	}
	return nil
}

// SetToken implements Writer.
func (z *ZipWriter) SetToken(tok *progress.Token) { z.token = tok }

func (z *ZipWriter) counter() *progress.CountingReporter {
	if z.token == nil {
		return nil
	}
	return &progress.CountingReporter{Token: z.token}
}

func zipEntryName(e Entry) string {
	if e.Kind == Directory && len(e.Path) > 0 && e.Path[len(e.Path)-1] != '/' {
		return e.Path + "/"
	}
	return e.Path
}

func (z *ZipWriter) Close() error {
	if err := z.zw.Close(); err != nil {
		return archiveerr.New(archiveerr.Io, "container.zip.Close", err)
	}
	return nil
}

// ZipReader iterates a ZIP's central directory in stored order.
// Unlike TAR, ZIP needs random access to its central directory, so it
// is constructed from an io.ReaderAt plus size rather than a plain
// io.Reader.
type ZipReader struct {
	zr   *zip.Reader
	idx  int
	open io.ReadCloser
}

func NewZipReader(ra io.ReaderAt, size int64) (*ZipReader, error) {
	zr, err := zip.NewReader(ra, size)
	if err != nil {
		return nil, archiveerr.New(archiveerr.Format, "container.zip.NewReader", err)
	}
	return &ZipReader{zr: zr}, nil
}

func (z *ZipReader) Next() (Entry, error) {
	if z.open != nil {
		z.open.Close()
		z.open = nil
	}
	if z.idx >= len(z.zr.File) {
		return Entry{}, io.EOF
	}
	f := z.zr.File[z.idx]
	z.idx++

	e := Entry{
		Path:    f.Name,
		Size:    int64(f.UncompressedSize64),
		Mode:    uint32(f.Mode().Perm()),
		ModTime: f.Modified,
	}
	switch {
	case f.Mode().IsDir():
		e.Kind = Directory
	case (f.ExternalAttrs>>16)&0xF000 == 0xA000:
		rc, err := f.Open()
		if err != nil {
			return Entry{}, archiveerr.WithPath(archiveerr.Io, "container.zip.Open", f.Name, err)
		}
		target, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return Entry{}, archiveerr.WithPath(archiveerr.Io, "container.zip.ReadLink", f.Name, err)
		}
		e.Kind = Symlink
		e.LinkTarget = string(target)
	default:
		e.Kind = RegularFile
		e.Compression = zipMethodName(f.Method)
		rc, err := f.Open()
		if err != nil {
			return Entry{}, archiveerr.WithPath(archiveerr.Io, "container.zip.Open", f.Name, err)
		}
		z.open = rc
		e.Reader = rc
	}
	return e, nil
}

// zipMethodName reports the on-disk ZIP compression method by number
// (spec.md §4.10's "compression-kind" field) rather than the
// archive/zip constant name, since zip.Store/zip.Deflate aren't
// exported as strings.
func zipMethodName(method uint16) string {
	switch method {
	case 0:
		return "stored"
	case 8:
		return "deflate"
	default:
		return "method-" + strconv.Itoa(int(method))
	}
}

func (z *ZipReader) Close() error {
	if z.open != nil {
		return z.open.Close()
	}
	return nil
}
