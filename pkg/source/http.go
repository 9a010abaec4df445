// ABOUTME: HTTP source with background prefetch
// ABOUTME: Downloads into a buffer and serves reads once a minimum is buffered
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/Resonate-Protocol/reel-go/pkg/logger"
)

const httpChunkSize = 32 * 1024

// HTTP downloads a resource in the background. The first Read blocks until
// MinBuffer bytes are buffered or the download ends.
type HTTP struct {
	Client    *http.Client
	UserAgent string
	MinBuffer int64
	Log       logger.Writer

	url    string
	cancel context.CancelFunc
	done   chan struct{}

	mutex    sync.Mutex
	cond     *sync.Cond
	buf      []byte
	readPos  int
	total    int64
	received int64
	primed   bool
	finished bool
	err      error
	closed   bool
}

// Open implements Source. It returns once the response headers arrive.
func (s *HTTP) Open(ctx context.Context, rawURL string) error {
	if s.Client == nil {
		s.Client = http.DefaultClient
	}
	if s.MinBuffer <= 0 {
		s.MinBuffer = DefaultHTTPBufferMin
	}
	s.Log = logger.OrDiscard(s.Log)
	s.cond = sync.NewCond(&s.mutex)
	s.url = rawURL

	return s.start(ctx)
}

func (s *HTTP) start(ctx context.Context) error {
	dctx, cancel := context.WithCancel(context.Background())

	req, err := http.NewRequestWithContext(dctx, http.MethodGet, s.url, nil)
	if err != nil {
		cancel()
		return fmt.Errorf("invalid request: %w", err)
	}
	if s.UserAgent != "" {
		req.Header.Set("User-Agent", s.UserAgent)
	}

	// only the connection phase follows ctx
	stop := context.AfterFunc(ctx, cancel)
	res, err := s.Client.Do(req)
	stop()
	if err != nil {
		cancel()
		return fmt.Errorf("request failed: %w", err)
	}

	if res.StatusCode != http.StatusOK {
		res.Body.Close()
		cancel()
		return fmt.Errorf("bad status code: %d", res.StatusCode)
	}

	s.mutex.Lock()
	s.buf = s.buf[:0]
	s.readPos = 0
	s.total = res.ContentLength
	s.received = 0
	s.primed = false
	s.finished = false
	s.err = nil
	s.closed = false
	s.mutex.Unlock()

	s.cancel = cancel
	s.done = make(chan struct{})

	s.Log.Log(logger.Debug, "downloading %s (%d bytes)", s.url, res.ContentLength)

	go s.run(res.Body)
	return nil
}

func (s *HTTP) run(body io.ReadCloser) {
	defer close(s.done)
	defer body.Close()

	chunk := make([]byte, httpChunkSize)

	for {
		n, err := body.Read(chunk)

		s.mutex.Lock()
		if n > 0 {
			s.compact()
			s.buf = append(s.buf, chunk[:n]...)
			s.received += int64(n)
		}
		if err != nil {
			s.finished = true
			if !errors.Is(err, io.EOF) && !s.closed {
				s.err = err
			}
		}
		s.cond.Broadcast()
		s.mutex.Unlock()

		if err != nil {
			if errors.Is(err, io.EOF) {
				s.Log.Log(logger.Debug, "download complete, %d bytes", s.Received())
			} else {
				s.Log.Log(logger.Warn, "download interrupted: %v", err)
			}
			return
		}
	}
}

// compact drops consumed bytes once they make up most of the buffer.
func (s *HTTP) compact() {
	if s.readPos > 0 && s.readPos >= len(s.buf)/2 {
		n := copy(s.buf, s.buf[s.readPos:])
		s.buf = s.buf[:n]
		s.readPos = 0
	}
}

// Read implements Source.
func (s *HTTP) Read(p []byte) (int, error) {
	if s.cond == nil {
		return 0, ErrNotOpen
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	for {
		if s.closed {
			return 0, ErrNotOpen
		}

		unread := len(s.buf) - s.readPos
		if !s.primed && (int64(unread) >= s.MinBuffer || s.finished) {
			s.primed = true
		}

		if s.primed && unread > 0 {
			n := copy(p, s.buf[s.readPos:])
			s.readPos += n
			return n, nil
		}

		if s.finished {
			if s.err != nil {
				return 0, s.err
			}
			return 0, io.EOF
		}

		s.cond.Wait()
	}
}

// Available implements Source.
func (s *HTTP) Available() int64 {
	if s.cond == nil {
		return 0
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return int64(len(s.buf) - s.readPos)
}

// Received returns the number of bytes downloaded so far.
func (s *HTTP) Received() int64 {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.received
}

// ContentLength returns the size announced by the server, or -1.
func (s *HTTP) ContentLength() int64 {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.total
}

// Reset implements Source. The download restarts from the beginning.
func (s *HTTP) Reset() error {
	if s.cond == nil {
		return ErrNotOpen
	}
	s.stop()
	return s.start(context.Background())
}

func (s *HTTP) stop() {
	if s.cancel == nil {
		return
	}

	s.mutex.Lock()
	s.closed = true
	s.cond.Broadcast()
	s.mutex.Unlock()

	s.cancel()
	<-s.done
	s.cancel = nil
}

// Close implements Source.
func (s *HTTP) Close() error {
	s.stop()
	return nil
}
