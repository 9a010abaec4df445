// ABOUTME: High-level reel library API
// ABOUTME: Provides a Player that plays a URL with the bundled components
// Package reel provides the high-level API for playing media.
//
// Player wires the source registry, the container extractors, the decoders
// and the video and audio renderers into a pipeline. For lower-level control,
// see the pipeline, source, extract, decode and render packages.
//
// Example:
//
//	player, err := reel.NewPlayer(reel.PlayerConfig{
//	    Volume:    80,
//	    StopOnEOS: true,
//	})
//	err = player.Load(ctx, "https://example.com/movie.mp4")
//	err = player.Play()
//
// Custom schemes are added through the registry:
//
//	player.Sources().Register("mem", func(source.Config) source.Source {
//	    return source.NewMemory(data)
//	})
package reel
