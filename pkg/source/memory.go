// ABOUTME: In-memory source
// ABOUTME: Serves a byte slice, used for stub:// URLs and tests
package source

import (
	"bytes"
	"context"
	"io"
	"sync"
)

// Memory serves a fixed byte slice. It implements io.Seeker.
type Memory struct {
	mutex sync.Mutex
	data  []byte
	r     *bytes.Reader
}

// NewMemory returns a Memory source over data.
func NewMemory(data []byte) *Memory {
	return &Memory{data: data}
}

// Open implements Source. The URL is ignored.
func (s *Memory) Open(context.Context, string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.r = bytes.NewReader(s.data)
	return nil
}

// Read implements Source.
func (s *Memory) Read(p []byte) (int, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.r == nil {
		return 0, ErrNotOpen
	}
	return s.r.Read(p)
}

// Seek implements io.Seeker.
func (s *Memory) Seek(offset int64, whence int) (int64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.r == nil {
		return 0, ErrNotOpen
	}
	return s.r.Seek(offset, whence)
}

// Available implements Source.
func (s *Memory) Available() int64 {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.r == nil {
		return 0
	}
	return int64(s.r.Len())
}

// Reset implements Source.
func (s *Memory) Reset() error {
	_, err := s.Seek(0, io.SeekStart)
	return err
}

// Close implements Source.
func (s *Memory) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.r = nil
	return nil
}
