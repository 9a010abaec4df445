// ABOUTME: Main player application orchestration
// ABOUTME: Coordinates the player, the config watcher and the TUI
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Resonate-Protocol/reel-go/internal/conf"
	"github.com/Resonate-Protocol/reel-go/internal/confwatcher"
	"github.com/Resonate-Protocol/reel-go/internal/ui"
	"github.com/Resonate-Protocol/reel-go/internal/version"
	"github.com/Resonate-Protocol/reel-go/pkg/audio/output"
	"github.com/Resonate-Protocol/reel-go/pkg/input"
	"github.com/Resonate-Protocol/reel-go/pkg/logger"
	"github.com/Resonate-Protocol/reel-go/pkg/media"
	"github.com/Resonate-Protocol/reel-go/pkg/reel"
)

const statusInterval = 250 * time.Millisecond

// Config holds application configuration
type Config struct {
	URL string

	// Conf is the loaded configuration, read from ConfPath if set
	Conf     *conf.Conf
	ConfPath string

	UseTUI bool

	// AudioOutput replaces the system audio device
	AudioOutput output.Output
}

// Player represents the main player application
type Player struct {
	config Config
	log    *logger.Logger

	player   *reel.Player
	commands *input.Queue
	video    io.WriteCloser
	watcher  *confwatcher.ConfWatcher
	tuiProg  *tea.Program

	mutex sync.Mutex
	conf  *conf.Conf
}

// NewLogger creates the application logger. While the TUI owns the
// terminal, logs only go to the log file.
func NewLogger(c *conf.Conf, useTUI bool) (*logger.Logger, error) {
	dests := c.LogDestinations.ToDestinations()
	if useTUI && !c.LogDestinations.Has(logger.DestinationFile) {
		dests = append(dests, logger.DestinationFile)
	}

	l, err := logger.New(logger.Level(c.LogLevel), dests, c.LogFile)
	if err != nil {
		return nil, err
	}

	if useTUI {
		l.SetStdout(false)
	}

	return l, nil
}

// New creates the application.
func New(config Config, l *logger.Logger) (*Player, error) {
	if config.Conf == nil {
		config.Conf = conf.Default()
	}

	p := &Player{
		config: config,
		log:    l,
		conf:   config.Conf,
	}

	pc := config.Conf.ToPlayerConfig()
	pc.Log = l
	pc.AudioOutput = config.AudioOutput
	pc.OnStateChange = p.onStateChange
	pc.OnError = func(err error) {
		l.Log(logger.Error, "%v", err)
	}

	if config.Conf.VideoOutput != "" {
		f, err := os.Create(config.Conf.VideoOutput)
		if err != nil {
			return nil, fmt.Errorf("unable to create video output: %w", err)
		}
		p.video = f
		pc.VideoOutput = f
	}

	if config.UseTUI {
		p.commands = input.NewQueue(16)
		pc.Input = p.commands
	}

	player, err := reel.NewPlayer(pc)
	if err != nil {
		p.closeVideo()
		return nil, err
	}
	p.player = player

	// a zero volume is a valid setting
	player.SetVolume(config.Conf.Volume)

	return p, nil
}

// Run loads the URL and plays it until ctx is canceled, the user quits or,
// with stopOnEOS, the media ends.
func (p *Player) Run(ctx context.Context) error {
	p.log.Log(logger.Info, "%s %s", version.Product, version.Version)

	if p.config.ConfPath != "" {
		p.watcher = &confwatcher.ConfWatcher{FilePath: p.config.ConfPath}
		err := p.watcher.Initialize()
		if err != nil {
			p.log.Log(logger.Warn, "config reload disabled: %v", err)
			p.watcher = nil
		}
	}

	err := p.player.Load(ctx, p.config.URL)
	if err != nil {
		p.Close()
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup

	if p.config.UseTUI {
		tuiProg, err := ui.Run(p.commands)
		if err != nil {
			cancel()
			p.Close()
			return fmt.Errorf("failed to start TUI: %w", err)
		}
		p.tuiProg = tuiProg

		wg.Add(2)
		go func() {
			defer wg.Done()
			p.runTUI()
		}()
		go func() {
			defer wg.Done()
			p.statusLoop(ctx)
		}()
	}

	if p.watcher != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.watchLoop(ctx)
		}()
	}

	// stop playback when the context is canceled
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		p.player.Stop() //nolint:errcheck
	}()

	err = p.player.Play()

	cancel()
	if p.tuiProg != nil {
		p.tuiProg.Send(ui.QuitMsg{})
	}
	wg.Wait()

	p.Close()
	return err
}

func (p *Player) runTUI() {
	_, err := p.tuiProg.Run()
	if err != nil {
		p.log.Log(logger.Error, "TUI error: %v", err)
	}

	// the TUI can exit on its own, on ctrl+c for instance
	p.player.Stop() //nolint:errcheck
}

// statusLoop pushes playback progress to the TUI
func (p *Player) statusLoop(ctx context.Context) {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	p.tuiProg.Send(p.mediaStatus())

	for {
		select {
		case <-ticker.C:
			p.tuiProg.Send(p.statsStatus())

		case <-ctx.Done():
			return
		}
	}
}

func (p *Player) mediaStatus() ui.StatusMsg {
	msg := ui.StatusMsg{URL: p.config.URL}

	info := p.player.MediaInfo()
	if info == nil {
		return msg
	}

	if tr := info.FirstOfType(media.TrackTypeVideo); tr != nil {
		msg.Video = tr.String()
	}
	if tr := info.FirstOfType(media.TrackTypeAudio); tr != nil {
		msg.Audio = tr.String()
	}
	return msg
}

func (p *Player) statsStatus() ui.StatusMsg {
	st := p.player.Stats()
	volume := p.player.Volume()

	return ui.StatusMsg{
		State:      st.State.String(),
		Volume:     &volume,
		PositionMs: st.PositionMs,
		DurationMs: st.DurationMs,
		Decoded:    st.DecodedFrames,
		Played:     st.PlayedFrames,
		Dropped:    st.DroppedFrames,
		Stats:      st.String(),
	}
}

func (p *Player) onStateChange(st reel.PlayerState) {
	p.log.Log(logger.Debug, "state: %s", st.State)

	if p.tuiProg != nil {
		volume := st.Volume
		p.tuiProg.Send(ui.StatusMsg{State: st.State.String(), Volume: &volume})
	}
}

// watchLoop reloads the configuration file when it changes
func (p *Player) watchLoop(ctx context.Context) {
	for {
		select {
		case <-p.watcher.Watch():
			p.reloadConf()

		case <-ctx.Done():
			return
		}
	}
}

func (p *Player) reloadConf() {
	newConf, _, err := conf.Load(p.config.ConfPath)
	if err != nil {
		p.log.Log(logger.Error, "unable to reload configuration: %v", err)
		return
	}

	p.log.Log(logger.Info, "reloading configuration")
	p.applyConf(newConf)
}

// applyConf applies the settings that can change during playback. The
// others are used by the next load.
func (p *Player) applyConf(newConf *conf.Conf) {
	p.mutex.Lock()
	old := p.conf
	p.conf = newConf
	p.mutex.Unlock()

	if newConf.LogLevel != old.LogLevel {
		p.log.SetLevel(logger.Level(newConf.LogLevel))
	}

	if newConf.Volume != old.Volume {
		p.player.SetVolume(newConf.Volume)
	}

	if newConf.VideoTolerance != old.VideoTolerance ||
		newConf.AudioAheadTolerance != old.AudioAheadTolerance ||
		newConf.AudioLateTolerance != old.AudioLateTolerance {
		p.player.SetTolerances(
			time.Duration(newConf.VideoTolerance),
			time.Duration(newConf.AudioAheadTolerance),
			time.Duration(newConf.AudioLateTolerance))
	}
}

func (p *Player) closeVideo() {
	if p.video != nil {
		err := p.video.Close()
		if err != nil {
			p.log.Log(logger.Warn, "unable to close video output: %v", err)
		}
		p.video = nil
	}
}

// Close releases the player, the watcher and the video output.
func (p *Player) Close() {
	p.player.Close() //nolint:errcheck

	if p.watcher != nil {
		p.watcher.Close()
		p.watcher = nil
	}

	p.closeVideo()
}
