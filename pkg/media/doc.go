// ABOUTME: Media model package
// ABOUTME: Samples, tracks and media descriptions shared by all stages
// Package media defines the data passed through the playback pipeline.
//
// A Sample moves through the pipeline by pointer; whichever stage holds it
// owns it. A TrackInfo is published once by the extractor and read
// concurrently afterwards without locking, so it must not be modified.
package media
