package container

import (
	"archive/tar"
	"io"

	"archivekit/pkg/archiveerr"
	"archivekit/pkg/progress"
)

// TarWriter streams entries as a POSIX ustar archive with PAX
// extensions emitted automatically by archive/tar when a field
// overflows ustar limits (long paths, sizes over 8 GiB, sub-second
// mtimes), per spec.md §4.2.
type TarWriter struct {
	tw    *tar.Writer
	token *progress.Token
}

// NewTarWriter wraps w (typically a codec.WriteCloser for the outer
// compression the pack pipeline chose) into a TarWriter.
func NewTarWriter(w io.Writer) *TarWriter {
	return &TarWriter{tw: tar.NewWriter(w)}
}

func (t *TarWriter) WriteEntry(e Entry) error {
	hdr := &tar.Header{
		Name:    e.Path,
		Mode:    int64(e.Mode),
		ModTime: e.ModTime,
	}
	switch e.Kind {
	case Directory:
		hdr.Typeflag = tar.TypeDir
		hdr.Name = e.Path
	case Symlink:
		hdr.Typeflag = tar.TypeSymlink
		hdr.Linkname = e.LinkTarget
	case Hardlink:
		hdr.Typeflag = tar.TypeLink
		hdr.Linkname = e.LinkTarget
	default:
		hdr.Typeflag = tar.TypeReg
		hdr.Size = e.Size
	}
	if e.UID >= 0 {
		hdr.Uid = e.UID
	}
	if e.GID >= 0 {
		hdr.Gid = e.GID
	}

	if err := t.tw.WriteHeader(hdr); err != nil {
		return archiveerr.WithPath(archiveerr.Io, "container.tar.WriteHeader", e.Path, err)
	}
	if e.Kind == RegularFile && e.Reader != nil {
		if _, err := progress.Copy(t.tw, e.Reader, t.counter()); err != nil {
			return archiveerr.WithPath(archiveerr.Io, "container.tar.WriteBody", e.Path, err)
		}
	}
	return nil
}

// SetToken implements Writer.
func (t *TarWriter) SetToken(tok *progress.Token) { t.token = tok }

func (t *TarWriter) counter() *progress.CountingReporter {
	if t.token == nil {
		return nil
	}
	return &progress.CountingReporter{Token: t.token}
}

func (t *TarWriter) Close() error {
	if err := t.tw.Close(); err != nil {
		return archiveerr.New(archiveerr.Io, "container.tar.Close", err)
	}
	return nil
}

// TarReader iterates entries of a TAR stream in on-disk order, per
// spec.md §5's extract ordering guarantee.
type TarReader struct {
	tr *tar.Reader
}

// NewTarReader wraps r (typically a codec.ReadCloser decompressing
// the outer stream) into a TarReader.
func NewTarReader(r io.Reader) *TarReader {
	return &TarReader{tr: tar.NewReader(r)}
}

func (t *TarReader) Next() (Entry, error) {
	hdr, err := t.tr.Next()
	if err == io.EOF {
		return Entry{}, io.EOF
	}
	if err != nil {
		return Entry{}, archiveerr.New(archiveerr.Format, "container.tar.Next", err)
	}

	e := Entry{
		Path:       hdr.Name,
		Mode:       uint32(hdr.Mode) & 0o777,
		ModTime:    hdr.ModTime,
		Size:       hdr.Size,
		LinkTarget: hdr.Linkname,
		UID:        hdr.Uid,
		GID:        hdr.Gid,
	}
	switch hdr.Typeflag {
	case tar.TypeDir:
		e.Kind = Directory
	case tar.TypeSymlink:
		e.Kind = Symlink
	case tar.TypeLink:
		e.Kind = Hardlink
	default:
		e.Kind = RegularFile
		e.Compression = "stored"
		e.Reader = io.LimitReader(t.tr, hdr.Size)
	}
	return e, nil
}

func (t *TarReader) Close() error { return nil }
