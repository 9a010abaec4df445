// ABOUTME: SRT caller source
// ABOUTME: Reads a live MPEG-TS stream from an SRT listener
package source

import (
	"context"
	"fmt"
	"sync"
	"time"

	srt "github.com/datarhei/gosrt"

	"github.com/Resonate-Protocol/reel-go/pkg/logger"
)

// SRT connects to an SRT listener in caller mode, for instance
// srt://host:8890?streamid=read:mystream. It is live and not seekable.
type SRT struct {
	ReadTimeout time.Duration
	Log         logger.Writer

	url   string
	mutex sync.Mutex
	conn  srt.Conn
}

// Open implements Source.
func (s *SRT) Open(ctx context.Context, rawURL string) error {
	s.Log = logger.OrDiscard(s.Log)
	s.url = rawURL
	return s.dial(ctx)
}

func (s *SRT) dial(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	conf := srt.DefaultConfig()
	address, err := conf.UnmarshalURL(s.url)
	if err != nil {
		return fmt.Errorf("invalid SRT URL: %w", err)
	}

	err = conf.Validate()
	if err != nil {
		return fmt.Errorf("invalid SRT configuration: %w", err)
	}

	s.Log.Log(logger.Debug, "connecting to %s", address)

	conn, err := srt.Dial("srt", address, conf)
	if err != nil {
		return fmt.Errorf("SRT dial failed: %w", err)
	}

	s.mutex.Lock()
	s.conn = conn
	s.mutex.Unlock()
	return nil
}

func (s *SRT) current() srt.Conn {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.conn
}

// Read implements Source.
func (s *SRT) Read(p []byte) (int, error) {
	conn := s.current()
	if conn == nil {
		return 0, ErrNotOpen
	}

	if s.ReadTimeout > 0 {
		conn.SetReadDeadline(time.Now().Add(s.ReadTimeout))
	}
	return conn.Read(p)
}

// Available implements Source. Live streams report nothing buffered.
func (s *SRT) Available() int64 {
	return 0
}

// Reset implements Source by reconnecting.
func (s *SRT) Reset() error {
	s.Close()
	return s.dial(context.Background())
}

// Close implements Source.
func (s *SRT) Close() error {
	s.mutex.Lock()
	conn := s.conn
	s.conn = nil
	s.mutex.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close()
}
