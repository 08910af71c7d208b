package container

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"

	"archivekit/pkg/codec"
)

func TestZipWriteEntryRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewZipWriter(&buf)

	body := []byte("hello zip")
	if err := w.WriteEntry(Entry{Path: "dir/", Kind: Directory, Mode: 0o755}); err != nil {
		t.Fatalf("WriteEntry(dir): %v", err)
	}
	if err := w.WriteEntry(Entry{Path: "dir/file.txt", Kind: RegularFile, Size: int64(len(body)), Reader: bytes.NewReader(body), ZipMethod: zip.Deflate}); err != nil {
		t.Fatalf("WriteEntry(file): %v", err)
	}
	if err := w.WriteEntry(Entry{Path: "dir/link", Kind: Symlink, LinkTarget: "file.txt"}); err != nil {
		t.Fatalf("WriteEntry(link): %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := NewZipReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("NewZipReader: %v", err)
	}

	var kinds []Kind
	for {
		e, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if e.Kind == RegularFile && e.Reader != nil {
			data, _ := io.ReadAll(e.Reader)
			if !bytes.Equal(data, body) {
				t.Fatalf("body mismatch: got %q", data)
			}
			if e.Compression != "deflate" {
				t.Fatalf("expected the deflate-written entry to report \"deflate\" on read, got %q", e.Compression)
			}
		}
		kinds = append(kinds, e.Kind)
	}

	if len(kinds) != 3 || kinds[0] != Directory || kinds[1] != RegularFile || kinds[2] != Symlink {
		t.Fatalf("unexpected entry kinds: %v", kinds)
	}
}

func TestValidateCodecForContainerRejectsZstdOnZip(t *testing.T) {
	if err := ValidateCodecForContainer(Zip, codec.Zstd); err == nil {
		t.Fatal("expected zstd to be rejected for a zip container")
	}
}

func TestValidateCodecForContainerAllowsStoreAndGzipOnZip(t *testing.T) {
	if err := ValidateCodecForContainer(Zip, codec.Store); err != nil {
		t.Fatalf("expected store to be allowed for zip, got %v", err)
	}
	if err := ValidateCodecForContainer(Zip, codec.Gzip); err != nil {
		t.Fatalf("expected gzip/deflate to be allowed for zip, got %v", err)
	}
}

func TestValidateCodecForContainerIgnoresNonZip(t *testing.T) {
	if err := ValidateCodecForContainer(Tar, codec.Zstd); err != nil {
		t.Fatalf("expected non-zip containers to accept any codec, got %v", err)
	}
}
