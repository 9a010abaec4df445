// ABOUTME: Pipeline package
// ABOUTME: Orchestrates source, extractor, decoders and renderers
// Package pipeline wires a source, an extractor, decoders and renderers
// into a playing pipeline.
//
// One goroutine reads samples from the extractor into a track.Buffer per
// track. One goroutine per decoded track pops samples, decodes them and
// pushes the frames to its renderer. The goroutine that calls Play runs
// the render loop, which ticks the renderers against a shared
// clock.MediaClock and dispatches input commands.
//
//	p, err := pipeline.New(pipeline.Config{}, factories)
//	err = p.Load(ctx, "https://example.com/movie.mp4")
//	go func() { time.Sleep(time.Minute); p.Stop() }()
//	err = p.Play()
package pipeline
