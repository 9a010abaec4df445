// ABOUTME: Entry point for the reel media player
// ABOUTME: Parses CLI flags, loads the configuration and runs the player
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/Resonate-Protocol/reel-go/internal/app"
	"github.com/Resonate-Protocol/reel-go/internal/conf"
	"github.com/Resonate-Protocol/reel-go/internal/version"
	"github.com/Resonate-Protocol/reel-go/pkg/logger"
)

var cli struct {
	Version   bool   `help:"print version"`
	Config    string `help:"path to a config file. The default is reel.yml, if present." type:"path"`
	LogLevel  string `help:"log level (debug, info, warn, error), overrides the config file"`
	NoTUI     bool   `name:"no-tui" help:"disable the TUI and stream logs instead"`
	VideoOut  string `help:"write the Annex-B video stream to this file" type:"path"`
	Volume    int    `help:"initial volume (0-100), overrides the config file" default:"-1"`
	StopOnEOS bool   `name:"stop-on-eos" help:"exit at the end of the media"`
	URL       string `arg:"" optional:"" help:"file path or URL to play (file, http, https, srt, ws, wss)"`
}

func main() {
	parser, err := kong.New(&cli,
		kong.Name("reel"),
		kong.Description(version.Product+" "+version.Version),
		kong.UsageOnError())
	if err != nil {
		panic(err)
	}

	_, err = parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	if cli.Version {
		fmt.Println(version.UserAgent)
		os.Exit(0)
	}

	if cli.URL == "" {
		parser.Fatalf("expected <url>")
	}

	c, confPath, err := conf.Load(cli.Config)
	if err != nil {
		fmt.Printf("ERR: %s\n", err)
		os.Exit(1)
	}

	err = applyFlags(c)
	if err != nil {
		fmt.Printf("ERR: %s\n", err)
		os.Exit(1)
	}

	useTUI := !cli.NoTUI

	l, err := app.NewLogger(c, useTUI)
	if err != nil {
		fmt.Printf("ERR: %s\n", err)
		os.Exit(1)
	}
	defer l.Close()

	if confPath != "" {
		l.Log(logger.Info, "configuration loaded from %s", confPath)
	}

	p, err := app.New(app.Config{
		URL:      cli.URL,
		Conf:     c,
		ConfPath: confPath,
		UseTUI:   useTUI,
	}, l)
	if err != nil {
		l.Log(logger.Error, "%v", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err = p.Run(ctx)
	if err != nil {
		l.Log(logger.Error, "%v", err)
		l.Close()
		os.Exit(1)
	}

	l.Log(logger.Info, "player stopped")
}

// applyFlags overrides the configuration with the command line.
func applyFlags(c *conf.Conf) error {
	if cli.LogLevel != "" {
		level, err := logger.ParseLevel(cli.LogLevel)
		if err != nil {
			return err
		}
		c.LogLevel = conf.LogLevel(level)
	}

	if cli.VideoOut != "" {
		c.VideoOutput = cli.VideoOut
	}

	if cli.Volume >= 0 {
		c.Volume = cli.Volume
	}

	if cli.StopOnEOS {
		c.StopOnEOS = true
	}

	return c.Validate()
}
