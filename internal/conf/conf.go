// ABOUTME: Player configuration file
// ABOUTME: Loads reel.yml, applies defaults and converts it into player settings
// Package conf contains the configuration of the reel command.
package conf

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Resonate-Protocol/reel-go/internal/conf/yamlwrapper"
	"github.com/Resonate-Protocol/reel-go/pkg/logger"
	"github.com/Resonate-Protocol/reel-go/pkg/pipeline"
	"github.com/Resonate-Protocol/reel-go/pkg/reel"
	"github.com/Resonate-Protocol/reel-go/pkg/render"
	"github.com/Resonate-Protocol/reel-go/pkg/source"
	"github.com/Resonate-Protocol/reel-go/pkg/track"
)

// DefaultPath is read when no path is given and the file exists.
const DefaultPath = "reel.yml"

// AudioDevice configures the audio device.
type AudioDevice struct {
	// 0 opens the device at the rate of the track
	SampleRate int `json:"sampleRate"`
}

// Conf is the configuration.
type Conf struct {
	// General
	LogLevel        LogLevel        `json:"logLevel"`
	LogDestinations LogDestinations `json:"logDestinations"`
	LogFile         string          `json:"logFile"`

	// Buffers
	TrackQueueSize int        `json:"trackQueueSize"`
	VideoQueueSize int        `json:"videoQueueSize"`
	AudioQueueSize int        `json:"audioQueueSize"`
	HTTPBufferMin  StringSize `json:"httpBufferMin"`

	// Timing
	RenderInterval      Duration `json:"renderInterval"`
	PopTimeout          Duration `json:"popTimeout"`
	VideoTolerance      Duration `json:"videoTolerance"`
	AudioAheadTolerance Duration `json:"audioAheadTolerance"`
	AudioLateTolerance  Duration `json:"audioLateTolerance"`

	// Outputs
	Volume      int         `json:"volume"`
	AudioDevice AudioDevice `json:"audioDevice"`
	VideoOutput string      `json:"videoOutput"`
	StopOnEOS   bool        `json:"stopOnEOS"`
}

// Default returns the default configuration.
func Default() *Conf {
	return &Conf{
		LogLevel:            LogLevel(logger.Info),
		LogDestinations:     LogDestinations{LogDestination(logger.DestinationStdout)},
		LogFile:             "reel.log",
		TrackQueueSize:      track.DefaultCapacity,
		VideoQueueSize:      render.DefaultQueueSize,
		AudioQueueSize:      render.DefaultQueueSize,
		HTTPBufferMin:       source.DefaultHTTPBufferMin,
		RenderInterval:      Duration(pipeline.DefaultRenderInterval),
		PopTimeout:          Duration(track.DefaultPopTimeout),
		VideoTolerance:      Duration(render.DefaultVideoTolerance),
		AudioAheadTolerance: Duration(render.DefaultAudioAheadTolerance),
		AudioLateTolerance:  Duration(render.DefaultAudioLateTolerance),
		Volume:              100,
	}
}

// Load loads the configuration from fpath. An empty fpath reads DefaultPath
// if it exists and returns the defaults otherwise. The second return value
// is the path that was read, if any.
func Load(fpath string) (*Conf, string, error) {
	conf := Default()

	if fpath == "" {
		if _, err := os.Stat(DefaultPath); err != nil {
			return conf, "", nil
		}
		fpath = DefaultPath
	}

	buf, err := os.ReadFile(fpath)
	if err != nil {
		return nil, "", err
	}

	err = yamlwrapper.Unmarshal(buf, conf)
	if err != nil {
		return nil, "", fmt.Errorf("unable to parse %s: %w", fpath, err)
	}

	err = conf.Validate()
	if err != nil {
		return nil, "", err
	}

	return conf, fpath, nil
}

// Validate checks the configuration.
func (conf *Conf) Validate() error {
	if conf.TrackQueueSize <= 0 {
		return fmt.Errorf("'trackQueueSize' must be greater than zero")
	}
	if conf.VideoQueueSize <= 0 {
		return fmt.Errorf("'videoQueueSize' must be greater than zero")
	}
	if conf.AudioQueueSize <= 0 {
		return fmt.Errorf("'audioQueueSize' must be greater than zero")
	}
	if conf.RenderInterval <= 0 {
		return fmt.Errorf("'renderInterval' must be greater than zero")
	}
	if conf.PopTimeout <= 0 {
		return fmt.Errorf("'popTimeout' must be greater than zero")
	}
	if conf.VideoTolerance < 0 || conf.AudioAheadTolerance < 0 || conf.AudioLateTolerance < 0 {
		return fmt.Errorf("sync tolerances cannot be negative")
	}
	if conf.Volume < 0 || conf.Volume > 100 {
		return fmt.Errorf("'volume' must be between 0 and 100")
	}
	if conf.AudioDevice.SampleRate < 0 {
		return fmt.Errorf("'audioDevice.sampleRate' cannot be negative")
	}
	if len(conf.LogDestinations) == 0 {
		return errors.New("at least one log destination is required")
	}
	if conf.LogDestinations.Has(logger.DestinationFile) && conf.LogFile == "" {
		return fmt.Errorf("'logFile' is required when logging to file")
	}
	return nil
}

// ToPipelineConfig returns the pipeline settings.
func (conf *Conf) ToPipelineConfig() pipeline.Config {
	return pipeline.Config{
		TrackQueueSize: conf.TrackQueueSize,
		PopTimeout:     time.Duration(conf.PopTimeout),
		RenderInterval: time.Duration(conf.RenderInterval),
		StopOnEOS:      conf.StopOnEOS,
	}
}

// ToPlayerConfig returns the player settings. Outputs, input and callbacks
// are left to the caller.
func (conf *Conf) ToPlayerConfig() reel.PlayerConfig {
	pc := conf.ToPipelineConfig()

	return reel.PlayerConfig{
		TrackQueueSize:      pc.TrackQueueSize,
		VideoQueueSize:      conf.VideoQueueSize,
		AudioQueueSize:      conf.AudioQueueSize,
		HTTPBufferMin:       int64(conf.HTTPBufferMin),
		PopTimeout:          pc.PopTimeout,
		RenderInterval:      pc.RenderInterval,
		VideoTolerance:      time.Duration(conf.VideoTolerance),
		AudioAheadTolerance: time.Duration(conf.AudioAheadTolerance),
		AudioLateTolerance:  time.Duration(conf.AudioLateTolerance),
		DeviceSampleRate:    conf.AudioDevice.SampleRate,
		Volume:              conf.Volume,
		StopOnEOS:           pc.StopOnEOS,
	}
}
