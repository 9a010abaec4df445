// ABOUTME: Renderer package
// ABOUTME: Clock-gated audio and video sinks for the pipeline
// Package render contains the renderers driven by the pipeline render loop.
//
// Decode loops push frames with PushFrame. On every tick the render loop
// calls Render, which hands the pending frame to a Gate. The gate compares
// the frame PTS with the clock: early frames wait, late frames are dropped,
// the rest are written.
//
//	v, err := render.NewVideo(render.VideoConfig{}, f, clk, l)
//	a, err := render.NewAudio(render.AudioConfig{}, track, output.NewOto(l), clk, l)
package render
