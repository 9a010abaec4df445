// ABOUTME: Leveled logger with stdout and file destinations
// ABOUTME: Shared by the pipeline, its collaborators and the CLI
package logger

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gookit/color"
)

// Level is a log level.
type Level int

// Log levels.
const (
	Debug Level = iota + 1
	Info
	Warn
	Error
)

// ParseLevel converts a level name into a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return Debug, nil
	case "info", "":
		return Info, nil
	case "warn", "warning":
		return Warn, nil
	case "error":
		return Error, nil
	}
	return 0, fmt.Errorf("invalid log level: '%s'", s)
}

// String implements fmt.Stringer.
func (l Level) String() string {
	switch l {
	case Debug:
		return "debug"
	case Info:
		return "info"
	case Warn:
		return "warn"
	case Error:
		return "error"
	}
	return "unknown"
}

// Destination is a log destination.
type Destination int

const (
	// DestinationStdout writes logs to the standard output.
	DestinationStdout Destination = iota

	// DestinationFile writes logs to a file.
	DestinationFile
)

// Logger is a log handler.
type Logger struct {
	level        Level
	destinations map[Destination]struct{}
	stdout       io.Writer
	file         *os.File

	mutex sync.Mutex
	buf   bytes.Buffer
}

// New allocates a Logger.
func New(level Level, destinations []Destination, filePath string) (*Logger, error) {
	lh := &Logger{
		level:        level,
		destinations: make(map[Destination]struct{}),
		stdout:       os.Stdout,
	}

	for _, d := range destinations {
		lh.destinations[d] = struct{}{}
	}

	if _, ok := lh.destinations[DestinationFile]; ok {
		var err error
		lh.file, err = os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
	}

	return lh, nil
}

// Close closes the logger.
func (lh *Logger) Close() {
	if lh.file != nil {
		lh.file.Close() //nolint:errcheck
	}
}

// SetLevel changes the minimum level.
func (lh *Logger) SetLevel(level Level) {
	lh.mutex.Lock()
	defer lh.mutex.Unlock()
	lh.level = level
}

// SetStdout enables or disables the stdout destination.
// The TUI disables it while it owns the terminal.
func (lh *Logger) SetStdout(enabled bool) {
	lh.mutex.Lock()
	defer lh.mutex.Unlock()

	if enabled {
		lh.destinations[DestinationStdout] = struct{}{}
	} else {
		delete(lh.destinations, DestinationStdout)
	}
}

func writeTime(buf *bytes.Buffer, t time.Time) {
	buf.WriteString(t.Format("2006/01/02 15:04:05 "))
}

func writeLevel(buf *bytes.Buffer, level Level, doColor bool) {
	var tag string
	var c color.Color

	switch level {
	case Debug:
		tag, c = "DEB", color.Gray
	case Info:
		tag, c = "INF", color.Green
	case Warn:
		tag, c = "WAR", color.Yellow
	case Error:
		tag, c = "ERR", color.Red
	default:
		tag, c = "???", color.Magenta
	}

	if doColor {
		buf.WriteString(c.Sprint(tag))
	} else {
		buf.WriteString(tag)
	}
	buf.WriteByte(' ')
}

func writeContent(buf *bytes.Buffer, format string, args []interface{}) {
	buf.WriteString(fmt.Sprintf(format, args...))
	buf.WriteByte('\n')
}

// Log writes a log entry.
func (lh *Logger) Log(level Level, format string, args ...interface{}) {
	lh.mutex.Lock()
	defer lh.mutex.Unlock()

	if level < lh.level {
		return
	}

	t := time.Now()

	if _, ok := lh.destinations[DestinationStdout]; ok {
		lh.buf.Reset()
		writeTime(&lh.buf, t)
		writeLevel(&lh.buf, level, true)
		writeContent(&lh.buf, format, args)
		lh.stdout.Write(lh.buf.Bytes()) //nolint:errcheck
	}

	if lh.file != nil {
		lh.buf.Reset()
		writeTime(&lh.buf, t)
		writeLevel(&lh.buf, level, false)
		writeContent(&lh.buf, format, args)
		lh.file.Write(lh.buf.Bytes()) //nolint:errcheck
	}
}
