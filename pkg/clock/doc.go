// ABOUTME: Media clock package
// ABOUTME: Provides the playback timeline shared by renderers
// Package clock provides the media clock used for audio/video sync.
//
// One MediaClock is owned by the pipeline and shared by pointer with both
// renderers. The audio renderer reports its device latency, and the video
// renderer presents frames against VideoTimeMs so both stay aligned.
//
// Example:
//
//	c := clock.New()
//	c.Start()
//	c.SetAudioLatencyMs(40)
//	due := frame.PTS <= c.VideoTimeMs()
package clock
