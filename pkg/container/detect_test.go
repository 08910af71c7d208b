package container

import "testing"

func TestDetectFormatBySuffix(t *testing.T) {
	tests := []struct {
		name string
		want ContainerFormat
		ok   bool
	}{
		{"archive.tar", Tar, true},
		{"archive.tar.gz", Tar, true},
		{"archive.tgz", Tar, true},
		{"archive.tar.zst", Tar, true},
		{"archive.zip", Zip, true},
		{"archive.7z", SevenZip, true},
		{"archive.unknownext", Tar, false},
	}
	for _, tt := range tests {
		got, ok := DetectFormat(tt.name, nil)
		if got != tt.want || ok != tt.ok {
			t.Errorf("DetectFormat(%q) = (%v, %v), want (%v, %v)", tt.name, got, ok, tt.want, tt.ok)
		}
	}
}

func TestDetectFormatByMagicWhenNoExtension(t *testing.T) {
	got, ok := DetectFormat("noext", magicZip)
	if !ok || got != Zip {
		t.Fatalf("DetectFormat(noext, zip magic) = (%v, %v), want (Zip, true)", got, ok)
	}

	got, ok = DetectFormat("noext", magic7z)
	if !ok || got != SevenZip {
		t.Fatalf("DetectFormat(noext, 7z magic) = (%v, %v), want (SevenZip, true)", got, ok)
	}
}

func TestDetectFormatUnknownExtensionDoesNotFallBackToMagic(t *testing.T) {
	got, ok := DetectFormat("archive.bin", magicZip)
	if ok || got != Tar {
		t.Fatalf("expected a recognised-but-unmapped extension to skip magic sniffing, got (%v, %v)", got, ok)
	}
}
