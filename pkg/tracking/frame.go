package tracking

import (
	"errors"

	"github.com/lumen-ui/lumen/pkg/observe"
	"github.com/lumen-ui/lumen/pkg/tags"
)

// ErrUnpairedFrame is the panic value when EndFrame is called with no
// open frame. An unpaired begin/end indicates a broken computation
// boundary and would leak tracking into an unrelated outer computation,
// so it is fatal rather than recoverable.
var ErrUnpairedFrame = errors.New("lumen: EndFrame called without a matching BeginFrame")

// BeginFrame opens a new tracking frame on the current goroutine's
// stack. Every BeginFrame must be paired with exactly one EndFrame.
func BeginFrame() {
	ctx := getContext()
	ctx.frames = append(ctx.frames, &frame{seen: make(map[tags.Tag]struct{})})
	if observe.Enabled() {
		observe.Emit(observe.Event{Kind: observe.KindFrameBegin})
	}
}

// EndFrame closes the innermost frame and returns the combined tag of
// everything consumed inside it. Panics with ErrUnpairedFrame when no
// frame is open.
func EndFrame() tags.Tag {
	ctx := getContext()
	if len(ctx.frames) == 0 {
		releaseContextIfIdle(ctx)
		panic(ErrUnpairedFrame)
	}

	top := ctx.frames[len(ctx.frames)-1]
	ctx.frames = ctx.frames[:len(ctx.frames)-1]
	releaseContextIfIdle(ctx)

	combined := tags.Combine(top.consumed)
	if observe.Enabled() {
		observe.Emit(observe.Event{Kind: observe.KindFrameEnd, Revision: uint64(tags.Value(combined))})
	}
	return combined
}

// ConsumeTag records t in the innermost open frame. A read outside any
// frame is legal and records nothing; untracked reads simply never
// invalidate anything. Constant and nil tags carry no information and
// are dropped.
func ConsumeTag(t tags.Tag) {
	if tags.IsConst(t) {
		return
	}

	ctx := getContext()
	if ctx.untrackDepth > 0 || len(ctx.frames) == 0 {
		releaseContextIfIdle(ctx)
		return
	}
	ctx.frames[len(ctx.frames)-1].add(t)
}

// Track runs fn inside a fresh tracking frame and returns the combined
// tag of everything it read. The frame is closed even if fn panics, so
// a failing computation cannot leak tracking into its caller.
func Track(fn func()) (t tags.Tag) {
	BeginFrame()
	defer func() {
		t = EndFrame()
	}()
	fn()
	return t
}

// Untrack runs fn with tracking suspended: reads inside fn are not
// recorded in any enclosing frame. Used for peeking at values without
// creating a dependency on them.
func Untrack(fn func()) {
	ctx := getContext()
	ctx.untrackDepth++
	defer func() {
		ctx.untrackDepth--
		releaseContextIfIdle(ctx)
	}()
	fn()
}

// IsTracking reports whether a read at this point would be recorded:
// at least one frame is open and tracking is not suspended.
func IsTracking() bool {
	ctx := getContext()
	tracking := ctx.untrackDepth == 0 && len(ctx.frames) > 0
	releaseContextIfIdle(ctx)
	return tracking
}
