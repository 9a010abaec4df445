// ABOUTME: Local file source
// ABOUTME: Seekable source backed by os.File
package source

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"sync"
)

// File reads a local file. It implements io.Seeker.
type File struct {
	mutex sync.Mutex
	f     *os.File
	size  int64
	pos   int64
}

// Open implements Source. Both plain paths and file:// URLs are accepted.
func (s *File) Open(_ context.Context, rawURL string) error {
	path := rawURL
	if strings.HasPrefix(rawURL, "file://") {
		u, err := url.Parse(rawURL)
		if err != nil {
			return fmt.Errorf("invalid file URL: %w", err)
		}
		path = u.Path
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to stat file: %w", err)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.f = f
	s.size = st.Size()
	s.pos = 0
	return nil
}

// Read implements Source.
func (s *File) Read(p []byte) (int, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.f == nil {
		return 0, ErrNotOpen
	}

	n, err := s.f.Read(p)
	s.pos += int64(n)
	return n, err
}

// Seek implements io.Seeker.
func (s *File) Seek(offset int64, whence int) (int64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.f == nil {
		return 0, ErrNotOpen
	}

	pos, err := s.f.Seek(offset, whence)
	if err != nil {
		return 0, err
	}
	s.pos = pos
	return pos, nil
}

// Available implements Source.
func (s *File) Available() int64 {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.f == nil || s.pos >= s.size {
		return 0
	}
	return s.size - s.pos
}

// Size returns the file size in bytes.
func (s *File) Size() int64 {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.size
}

// Reset implements Source.
func (s *File) Reset() error {
	_, err := s.Seek(0, io.SeekStart)
	return err
}

// Close implements Source.
func (s *File) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}
