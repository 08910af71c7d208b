package codec

import (
	"bytes"
	"io"
	"testing"
)

func roundTrip(t *testing.T, spec Spec, payload []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	enc, err := NewEncoder(&buf, spec)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	if _, err := enc.Write(payload); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("encoder Close: %v", err)
	}

	dec, err := NewDecoder(&buf, spec.Algorithm)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	defer dec.Close()

	out, err := io.ReadAll(dec)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	return out
}

func TestRoundTripEveryAlgorithm(t *testing.T) {
	payload := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog "), 200)

	for _, spec := range []Spec{
		{Algorithm: Store},
		{Algorithm: Gzip, Level: 6},
		{Algorithm: Zstd, Level: 3},
		{Algorithm: Xz, Level: 2},
		{Algorithm: Brotli, Level: 5},
	} {
		t.Run(spec.Algorithm.String(), func(t *testing.T) {
			out := roundTrip(t, spec, payload)
			if !bytes.Equal(out, payload) {
				t.Fatalf("round trip mismatch for %v: got %d bytes, want %d", spec.Algorithm, len(out), len(payload))
			}
		})
	}
}

func TestNormalizeForcesXzSingleThreaded(t *testing.T) {
	spec := Spec{Algorithm: Xz, Threads: 8}.Normalize()
	if spec.Threads != 1 {
		t.Fatalf("expected Xz to normalize to 1 thread, got %d", spec.Threads)
	}
}

func TestNormalizeFloorsThreadsAtOne(t *testing.T) {
	spec := Spec{Algorithm: Zstd, Threads: 0}.Normalize()
	if spec.Threads != 1 {
		t.Fatalf("expected threads to floor at 1, got %d", spec.Threads)
	}
}

func TestDetectBySuffix(t *testing.T) {
	tests := []struct {
		name    string
		want    Algorithm
		wantOk  bool
	}{
		{"a.tar.gz", Gzip, true},
		{"a.tgz", Gzip, true},
		{"a.tar.zst", Zstd, true},
		{"a.tar.xz", Xz, true},
		{"a.tar.br", Brotli, true},
		{"a.tar", Store, false},
	}
	for _, tt := range tests {
		alg, ok := DetectBySuffix(tt.name)
		if ok != tt.wantOk {
			t.Errorf("DetectBySuffix(%q) ok = %v, want %v", tt.name, ok, tt.wantOk)
			continue
		}
		if ok && alg != tt.want {
			t.Errorf("DetectBySuffix(%q) = %v, want %v", tt.name, alg, tt.want)
		}
	}
}
