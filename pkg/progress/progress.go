// Package progress defines the reporter contract that pack, extract
// and modify pipelines call into, and the cooperative cancellation
// token they poll. Rendering the progress (a bar, a callback, a log
// line) is left to the caller; this package only defines the shape.
package progress

import (
	"context"
	"io"
	"sync/atomic"

	"archivekit/pkg/archiveerr"
)

// Reporter is consumed by pipelines to report progress without
// knowing how it is rendered.
type Reporter interface {
	Start(totalBytesOrEntries int64, label string)
	Update(delta int64)
	SetMessage(msg string)
	Finish()
}

// Discard implements Reporter by doing nothing. It is the default
// when a caller doesn't wire one in.
type Discard struct{}

func (Discard) Start(int64, string) {}
func (Discard) Update(int64)        {}
func (Discard) SetMessage(string)   {}
func (Discard) Finish()             {}

// ChunkPollInterval is the minimum interval at which a pipeline must
// re-check the cancellation token while streaming a large entry body,
// per spec.md §4.9.
const ChunkPollInterval = 1 << 20 // 1 MiB

// Token is a shared cancellation signal polled cooperatively between
// entries and at chunk boundaries inside large file bodies.
type Token struct {
	cancelled atomic.Bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewToken returns a fresh, uncancelled Token.
func NewToken() *Token {
	ctx, cancel := context.WithCancel(context.Background())
	return &Token{ctx: ctx, cancel: cancel}
}

// Cancel marks the token cancelled. Safe to call multiple times or
// concurrently.
func (t *Token) Cancel() {
	t.cancelled.Store(true)
	t.cancel()
}

// Cancelled reports whether Cancel has been called.
func (t *Token) Cancelled() bool {
	return t.cancelled.Load()
}

// Context returns a context.Context that is done exactly when the
// token is cancelled, for callers that prefer to select on it.
func (t *Token) Context() context.Context {
	return t.ctx
}

// CountingReporter wraps a Reporter and a Token, tracking bytes moved
// through a stream and polling the token at chunk boundaries. Pipelines
// wrap their body readers/writers with it.
type CountingReporter struct {
	Reporter Reporter
	Token    *Token

	sinceLastPoll int64
}

// Tick advances the counting reporter by n bytes, calling Update and
// checking the cancellation token on every call; Copy calls it once
// per chunk of at most ChunkPollInterval bytes. It returns the
// token's cancellation state.
func (c *CountingReporter) Tick(n int64) bool {
	if c.Reporter != nil {
		c.Reporter.Update(n)
	}
	c.sinceLastPoll += n
	if c.sinceLastPoll >= ChunkPollInterval {
		c.sinceLastPoll = 0
	}
	return c.Token != nil && c.Token.Cancelled()
}

// Copy streams src into dst in ChunkPollInterval-sized chunks, ticking
// cr after every chunk — satisfying spec.md §4.9/§5's requirement that
// the cancellation token be polled at chunk boundaries inside large
// file bodies, not just once per entry. cr may be nil, in which case
// Copy behaves exactly like io.Copy.
func Copy(dst io.Writer, src io.Reader, cr *CountingReporter) (int64, error) {
	if cr == nil {
		return io.Copy(dst, src)
	}

	buf := make([]byte, ChunkPollInterval)
	var total int64
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			wn, werr := dst.Write(buf[:n])
			total += int64(wn)
			if werr != nil {
				return total, werr
			}
			if cr.Tick(int64(wn)) {
				return total, archiveerr.New(archiveerr.Cancelled, "progress.Copy", nil)
			}
		}
		if rerr != nil {
			if rerr == io.EOF {
				return total, nil
			}
			return total, rerr
		}
	}
}
