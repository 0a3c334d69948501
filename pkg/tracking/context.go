package tracking

import (
	"runtime"
	"sync"

	"github.com/lumen-ui/lumen/pkg/tags"
)

// trackingContext holds the autotracking state for one goroutine.
// Frames from one logical call chain must never leak into another, so
// each goroutine gets its own stack.
type trackingContext struct {
	// frames is the stack of open tracking frames, innermost last.
	frames []*frame

	// untrackDepth counts nested Untrack calls. While > 0, consumed
	// tags are dropped instead of recorded.
	untrackDepth int
}

// frame is one open tracking frame: an ordered, deduplicated set of
// consumed tags.
type frame struct {
	consumed []tags.Tag
	seen     map[tags.Tag]struct{}
}

func (f *frame) add(t tags.Tag) {
	if _, dup := f.seen[t]; dup {
		return
	}
	f.seen[t] = struct{}{}
	f.consumed = append(f.consumed, t)
}

// trackingContexts stores per-goroutine tracking contexts.
// Using sync.Map for concurrent access from multiple goroutines.
var trackingContexts sync.Map

// getGoroutineID returns a unique identifier for the current goroutine,
// parsed from the runtime stack header. Implementation detail; never
// exposed.
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)

	// The stack starts with "goroutine <id> ".
	var id uint64
	for i := 10; i < n; i++ {
		if buf[i] == ' ' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}

// getContext returns the tracking context for the current goroutine,
// creating it on first use.
func getContext() *trackingContext {
	gid := getGoroutineID()

	if ctx, ok := trackingContexts.Load(gid); ok {
		return ctx.(*trackingContext)
	}

	ctx := &trackingContext{}
	trackingContexts.Store(gid, ctx)
	return ctx
}

// releaseContextIfIdle drops the goroutine's context once no frames are
// open, so short-lived goroutines don't accumulate entries.
func releaseContextIfIdle(ctx *trackingContext) {
	if len(ctx.frames) == 0 && ctx.untrackDepth == 0 {
		trackingContexts.Delete(getGoroutineID())
	}
}
