// ABOUTME: Tests for media types
// ABOUTME: Tests tagged track properties and media info lookup
package media

import (
	"strings"
	"testing"
	"time"
)

func TestTrackPropsAreTagged(t *testing.T) {
	audio := NewAudioTrack(1, CodecOpus, &AudioProps{SampleRate: 48000, Channels: 2})
	video := NewVideoTrack(2, CodecH264, &VideoProps{Width: 640, Height: 360})

	if _, ok := audio.Video(); ok {
		t.Error("audio track must not expose video properties")
	}
	if a, ok := audio.Audio(); !ok || a.SampleRate != 48000 {
		t.Error("expected audio properties on audio track")
	}
	if _, ok := video.Audio(); ok {
		t.Error("video track must not expose audio properties")
	}
	if v, ok := video.Video(); !ok || v.Width != 640 {
		t.Error("expected video properties on video track")
	}

	mismatched := &TrackInfo{ID: 3, Type: TrackTypeAudio, Props: &VideoProps{}}
	if _, ok := mismatched.Audio(); ok {
		t.Error("mismatched props must not be returned as audio")
	}
}

func TestMediaInfoLookup(t *testing.T) {
	mi := &MediaInfo{
		Duration: 90 * time.Second,
		Tracks: []*TrackInfo{
			NewAudioTrack(1, CodecMP3, &AudioProps{SampleRate: 44100, Channels: 2}),
			NewVideoTrack(2, CodecH264, &VideoProps{Width: 1280, Height: 720, FrameRate: 25}),
			NewAudioTrack(3, CodecAAC, &AudioProps{SampleRate: 48000, Channels: 6}),
		},
	}

	if tr := mi.FirstOfType(TrackTypeAudio); tr == nil || tr.ID != 1 {
		t.Errorf("expected first audio track 1, got %v", tr)
	}
	if tr := mi.FirstOfType(TrackTypeSubtitle); tr != nil {
		t.Errorf("expected no subtitle track, got %v", tr)
	}
	if tr := mi.Track(3); tr == nil || tr.Codec != CodecAAC {
		t.Errorf("expected track 3 to be aac, got %v", tr)
	}

	s := mi.String()
	if !strings.Contains(s, "#2 video h264 1280x720 25.00fps") {
		t.Errorf("unexpected media info dump:\n%s", s)
	}
}
