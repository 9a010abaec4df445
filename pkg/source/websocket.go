// ABOUTME: WebSocket source
// ABOUTME: Concatenates binary messages from a ws:// or wss:// endpoint
package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Resonate-Protocol/reel-go/pkg/logger"
)

// WebSocket reads binary messages and exposes them as one byte stream.
// Text messages are ignored.
type WebSocket struct {
	Dialer *websocket.Dialer
	Header http.Header
	Log    logger.Writer

	url string

	mutex   sync.Mutex
	conn    *websocket.Conn
	pending []byte
}

// Open implements Source.
func (s *WebSocket) Open(ctx context.Context, rawURL string) error {
	if s.Dialer == nil {
		s.Dialer = websocket.DefaultDialer
	}
	s.Log = logger.OrDiscard(s.Log)
	s.url = rawURL
	return s.dial(ctx)
}

func (s *WebSocket) dial(ctx context.Context) error {
	s.Log.Log(logger.Debug, "connecting to %s", s.url)

	conn, res, err := s.Dialer.DialContext(ctx, s.url, s.Header)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}
	if res != nil && res.Body != nil {
		res.Body.Close()
	}

	s.mutex.Lock()
	s.conn = conn
	s.pending = nil
	s.mutex.Unlock()
	return nil
}

// Read implements Source. A normal close from the server ends the stream.
func (s *WebSocket) Read(p []byte) (int, error) {
	for {
		s.mutex.Lock()
		conn := s.conn
		if len(s.pending) > 0 {
			n := copy(p, s.pending)
			s.pending = s.pending[n:]
			s.mutex.Unlock()
			return n, nil
		}
		s.mutex.Unlock()

		if conn == nil {
			return 0, ErrNotOpen
		}

		// the lock is not held here so Close can interrupt the read
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return 0, io.EOF
			}
			return 0, err
		}

		if mt != websocket.BinaryMessage {
			continue
		}

		s.mutex.Lock()
		if s.conn == conn {
			s.pending = data
		}
		s.mutex.Unlock()
	}
}

// Available implements Source. It reports the unread part of the last
// message.
func (s *WebSocket) Available() int64 {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return int64(len(s.pending))
}

// Reset implements Source by reconnecting.
func (s *WebSocket) Reset() error {
	s.Close()
	return s.dial(context.Background())
}

// Close implements Source.
func (s *WebSocket) Close() error {
	s.mutex.Lock()
	conn := s.conn
	s.conn = nil
	s.pending = nil
	s.mutex.Unlock()

	if conn == nil {
		return nil
	}

	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return conn.Close()
}
