// ABOUTME: Track buffering package
// ABOUTME: Queues encoded samples per track with end-of-stream semantics
// Package track provides the per-track sample buffer.
//
// The buffering goroutine pushes samples and, once the source is exhausted,
// calls SetDataSourceReachedEOS. The track's decode goroutine calls
// PopSample in a loop and stops on EndOfStream; Timeout results only keep
// the loop responsive to pause and stop.
package track
