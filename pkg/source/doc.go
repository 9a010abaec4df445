// ABOUTME: Data source package
// ABOUTME: Provides file, HTTP, SRT, WebSocket and in-memory byte sources
// Package source provides the byte streams that extractors demultiplex.
//
// A Registry picks the implementation from the URL scheme:
//
//	reg := source.NewRegistry(source.Config{UserAgent: "reel/1.0"})
//	src, err := reg.Open(ctx, "https://example.com/movie.mp4")
//
// Custom schemes are added with Registry.Register.
package source
