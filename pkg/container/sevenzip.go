package container

import (
	"io"
	"io/fs"

	"archivekit/pkg/archiveerr"

	"github.com/javi11/sevenzip"
)

// SevenZipReader enumerates a 7z archive's entries and exposes a
// streaming reader per entry. 7z is read-only per spec.md §4.2 and
// §1's non-goals (creation is out of scope); this wraps the same
// sevenzip fork the teacher uses in pkg/unpack/sevenzip.go, here
// driving its standard per-file Open() rather than the teacher's
// offset-mapping fast path (which only serves uncompressed,
// already-concatenated NZB volumes).
type SevenZipReader struct {
	zr   *sevenzip.Reader
	idx  int
	open io.ReadCloser
}

func NewSevenZipReader(ra io.ReaderAt, size int64) (*SevenZipReader, error) {
	zr, err := sevenzip.NewReader(ra, size)
	if err != nil {
		return nil, archiveerr.New(archiveerr.Format, "container.sevenzip.NewReader", err)
	}
	return &SevenZipReader{zr: zr}, nil
}

func (s *SevenZipReader) Next() (Entry, error) {
	if s.open != nil {
		s.open.Close()
		s.open = nil
	}
	if s.idx >= len(s.zr.File) {
		return Entry{}, io.EOF
	}
	f := s.zr.File[s.idx]
	s.idx++

	info := f.FileInfo()
	e := Entry{
		Path:    f.Name,
		Size:    int64(f.UncompressedSize),
		Mode:    uint32(info.Mode().Perm()),
		ModTime: f.Modified,
	}

	switch {
	case info.IsDir():
		e.Kind = Directory
	case info.Mode()&fs.ModeSymlink != 0:
		rc, err := f.Open()
		if err != nil {
			return Entry{}, archiveerr.WithPath(archiveerr.Io, "container.sevenzip.Open", f.Name, err)
		}
		target, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return Entry{}, archiveerr.WithPath(archiveerr.Io, "container.sevenzip.ReadLink", f.Name, err)
		}
		e.Kind = Symlink
		e.LinkTarget = string(target)
	default:
		rc, err := f.Open()
		if err != nil {
			return Entry{}, archiveerr.WithPath(archiveerr.Io, "container.sevenzip.Open", f.Name, err)
		}
		e.Kind = RegularFile
		// The sevenzip fork doesn't expose a per-entry coder/method
		// field through this API surface, only the container format.
		e.Compression = "7z"
		e.Reader = rc
		s.open = rc
	}
	return e, nil
}

func (s *SevenZipReader) Close() error {
	if s.open != nil {
		return s.open.Close()
	}
	return nil
}
