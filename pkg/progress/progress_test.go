package progress

import (
	"bytes"
	"strings"
	"testing"

	"archivekit/pkg/archiveerr"
)

func TestTokenCancelIsObservedByCancelled(t *testing.T) {
	tok := NewToken()
	if tok.Cancelled() {
		t.Fatal("expected a fresh token to start uncancelled")
	}
	tok.Cancel()
	if !tok.Cancelled() {
		t.Fatal("expected Cancelled to report true after Cancel")
	}
	select {
	case <-tok.Context().Done():
	default:
		t.Fatal("expected the token's context to be done after Cancel")
	}
}

func TestCountingReporterTickReflectsTokenState(t *testing.T) {
	tok := NewToken()
	cr := &CountingReporter{Reporter: Discard{}, Token: tok}

	if cr.Tick(100) {
		t.Fatal("expected Tick to report not-cancelled before Cancel")
	}
	tok.Cancel()
	if !cr.Tick(100) {
		t.Fatal("expected Tick to report cancelled after Cancel")
	}
}

func TestCountingReporterNilTokenNeverCancels(t *testing.T) {
	cr := &CountingReporter{Reporter: Discard{}}
	if cr.Tick(1 << 21) {
		t.Fatal("expected a nil token to never report cancellation")
	}
}

func TestCopyWithNilReporterBehavesLikeIoCopy(t *testing.T) {
	src := strings.NewReader("some body bytes")
	var dst bytes.Buffer

	n, err := Copy(&dst, src, nil)
	if err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if n != int64(dst.Len()) || dst.String() != "some body bytes" {
		t.Fatalf("expected the full body copied, got %q (%d bytes)", dst.String(), n)
	}
}

func TestCopyStopsMidStreamWhenTokenCancelled(t *testing.T) {
	tok := NewToken()
	cr := &CountingReporter{Reporter: Discard{}, Token: tok}
	tok.Cancel()

	src := strings.NewReader(strings.Repeat("x", 64))
	var dst bytes.Buffer

	_, err := Copy(&dst, src, cr)
	if err == nil {
		t.Fatal("expected Copy to report an error once the token is already cancelled")
	}
	if !archiveerr.Is(err, archiveerr.Cancelled) {
		t.Fatalf("expected a Cancelled archiveerr, got %v", err)
	}
}
