// Package tracking implements autotracking: recording which tags a
// computation reads, without explicit subscription.
//
// A tracking frame is opened around a computation; every tracked read
// that happens while it is open consumes its tag into the frame.
// Closing the frame combines the consumed tags into one (see
// tags.Combine). Frames nest: computing one tracked value while
// already inside another tracked computation is fine, and each frame
// only sees its own reads.
//
// Reads that happen outside any frame are legal and simply recorded
// nowhere. Frames never cross goroutines: each goroutine owns an
// independent stack.
//
// The package also provides Storage, the per-(owner, key) cell table
// that the host's object-model layer funnels tracked property reads
// and writes through.
package tracking
