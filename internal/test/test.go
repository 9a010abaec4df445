// ABOUTME: Shared test fixtures and helpers
// ABOUTME: Provides loggers and H.264 parameter sets for package tests
package test

import (
	"github.com/Resonate-Protocol/reel-go/pkg/logger"
)

type nilLogger struct{}

func (nilLogger) Log(logger.Level, string, ...interface{}) {}

// NilLogger is a logger that discards every entry.
var NilLogger logger.Writer = nilLogger{}

type testLogger struct {
	cb func(level logger.Level, format string, args ...interface{})
}

func (l *testLogger) Log(level logger.Level, format string, args ...interface{}) {
	l.cb(level, format, args...)
}

// Logger returns a logger that forwards entries to cb.
func Logger(cb func(logger.Level, string, ...interface{})) logger.Writer {
	return &testLogger{cb: cb}
}

// H264 parameter sets of a 1920x1080 baseline stream.
var (
	SPS = []byte{
		0x67, 0x42, 0xc0, 0x28, 0xd9, 0x00, 0x78, 0x02,
		0x27, 0xe5, 0x84, 0x00, 0x00, 0x03, 0x00, 0x04,
		0x00, 0x00, 0x03, 0x00, 0xf0, 0x3c, 0x60, 0xc9, 0x20,
	}
	PPS = []byte{0x68, 0xce, 0x3c, 0x80}
)

// AVCDecoderConfig returns an avcC record carrying SPS and PPS with the
// given NAL length field width.
func AVCDecoderConfig(nalLengthSize int) []byte {
	buf := []byte{
		0x01,   // configurationVersion
		SPS[1], // profile
		SPS[2], // compatibility
		SPS[3], // level
		0xFC | byte(nalLengthSize-1),
		0xE0 | 1, // one SPS
		0x00, byte(len(SPS)),
	}
	buf = append(buf, SPS...)
	buf = append(buf, 1, 0x00, byte(len(PPS)))
	buf = append(buf, PPS...)
	return buf
}

// AVCC builds a length-prefixed packet from NAL units.
func AVCC(nalLengthSize int, nalus ...[]byte) []byte {
	var buf []byte
	for _, n := range nalus {
		l := len(n)
		for i := nalLengthSize - 1; i >= 0; i-- {
			buf = append(buf, byte(l>>(8*i)))
		}
		buf = append(buf, n...)
	}
	return buf
}
