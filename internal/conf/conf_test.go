// ABOUTME: Tests for configuration loading
// ABOUTME: Covers defaults, overrides, validation and conversion to player settings
package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Resonate-Protocol/reel-go/pkg/logger"
)

func writeConf(t *testing.T, content string) string {
	fpath := filepath.Join(t.TempDir(), "reel.yml")
	err := os.WriteFile(fpath, []byte(content), 0o644)
	require.NoError(t, err)
	return fpath
}

func TestDefault(t *testing.T) {
	conf := Default()
	require.NoError(t, conf.Validate())

	require.Equal(t, 1024, conf.TrackQueueSize)
	require.Equal(t, 60, conf.VideoQueueSize)
	require.Equal(t, 60, conf.AudioQueueSize)
	require.Equal(t, StringSize(512*1024), conf.HTTPBufferMin)
	require.Equal(t, Duration(20*time.Millisecond), conf.PopTimeout)
	require.Equal(t, Duration(15*time.Millisecond), conf.VideoTolerance)
	require.Equal(t, Duration(50*time.Millisecond), conf.AudioAheadTolerance)
	require.Equal(t, Duration(100*time.Millisecond), conf.AudioLateTolerance)
	require.Equal(t, 100, conf.Volume)
	require.Equal(t, LogLevel(logger.Info), conf.LogLevel)
}

func TestLoad(t *testing.T) {
	fpath := writeConf(t, `
logLevel: debug
logDestinations: [stdout, file]
logFile: /tmp/reel-test.log
trackQueueSize: 256
httpBufferMin: 2MB
popTimeout: 40ms
videoTolerance: 20ms
volume: 40
audioDevice:
  sampleRate: 48000
videoOutput: out.h264
stopOnEOS: true
`)

	conf, used, err := Load(fpath)
	require.NoError(t, err)
	require.Equal(t, fpath, used)

	require.Equal(t, LogLevel(logger.Debug), conf.LogLevel)
	require.Equal(t, []logger.Destination{logger.DestinationStdout, logger.DestinationFile},
		conf.LogDestinations.ToDestinations())
	require.Equal(t, 256, conf.TrackQueueSize)
	require.Equal(t, StringSize(2*1024*1024), conf.HTTPBufferMin)
	require.Equal(t, Duration(40*time.Millisecond), conf.PopTimeout)
	require.Equal(t, 48000, conf.AudioDevice.SampleRate)
	require.Equal(t, "out.h264", conf.VideoOutput)
	require.True(t, conf.StopOnEOS)

	// untouched keys keep their defaults
	require.Equal(t, 60, conf.VideoQueueSize)
	require.Equal(t, Duration(50*time.Millisecond), conf.AudioAheadTolerance)

	pc := conf.ToPlayerConfig()
	require.Equal(t, 256, pc.TrackQueueSize)
	require.Equal(t, int64(2*1024*1024), pc.HTTPBufferMin)
	require.Equal(t, 40*time.Millisecond, pc.PopTimeout)
	require.Equal(t, 20*time.Millisecond, pc.VideoTolerance)
	require.Equal(t, 48000, pc.DeviceSampleRate)
	require.Equal(t, 40, pc.Volume)
	require.True(t, pc.StopOnEOS)
}

func TestLoadNoPath(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	defer os.Chdir(wd) //nolint:errcheck

	conf, used, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "", used)
	require.Equal(t, Default(), conf)
}

func TestLoadMissing(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)
}

func TestLoadErrors(t *testing.T) {
	for _, ca := range []struct {
		name string
		conf string
		err  string
	}{
		{
			"unknown field",
			"nonexistent: true\n",
			`unknown field "nonexistent"`,
		},
		{
			"invalid log level",
			"logLevel: verbose\n",
			"invalid log level: 'verbose'",
		},
		{
			"invalid destination",
			"logDestinations: [syslog]\n",
			"invalid log destination: 'syslog'",
		},
		{
			"invalid duration",
			"popTimeout: soon\n",
			"invalid duration",
		},
		{
			"invalid size",
			"httpBufferMin: lots\n",
			"byte quantity",
		},
		{
			"zero queue",
			"videoQueueSize: 0\n",
			"'videoQueueSize' must be greater than zero",
		},
		{
			"volume out of range",
			"volume: 150\n",
			"'volume' must be between 0 and 100",
		},
		{
			"negative tolerance",
			"audioLateTolerance: -5ms\n",
			"sync tolerances cannot be negative",
		},
		{
			"file without path",
			"logDestinations: [file]\nlogFile: \"\"\n",
			"'logFile' is required",
		},
	} {
		t.Run(ca.name, func(t *testing.T) {
			_, _, err := Load(writeConf(t, ca.conf))
			require.Error(t, err)
			require.Contains(t, err.Error(), ca.err)
		})
	}
}

func TestStringSizeMarshal(t *testing.T) {
	buf, err := StringSize(512 * 1024).MarshalJSON()
	require.NoError(t, err)
	require.Equal(t, `"512K"`, string(buf))
}
