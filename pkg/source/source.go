// ABOUTME: Data source interface and scheme registry
// ABOUTME: Selects a Source implementation from the URL scheme
package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Resonate-Protocol/reel-go/pkg/logger"
)

// DefaultHTTPBufferMin is the amount of data the HTTP source buffers
// before the first read returns.
const DefaultHTTPBufferMin = 512 * 1024

var (
	// ErrUnsupportedScheme is returned when no implementation is registered
	// for a URL scheme.
	ErrUnsupportedScheme = errors.New("unsupported source scheme")

	// ErrNotOpen is returned by reads on a source that is not open.
	ErrNotOpen = errors.New("source not open")
)

// Source is a byte stream feeding an extractor.
//
// Read follows io.Reader and returns io.EOF at the end of the stream.
// Seekable implementations also implement io.Seeker.
type Source interface {
	Open(ctx context.Context, url string) error
	Read(p []byte) (int, error)

	// Available returns the number of bytes that can be read without
	// blocking, or 0 when unknown.
	Available() int64

	// Reset rewinds the source, reconnecting if needed.
	Reset() error
	Close() error
}

// Config is shared by every source a Registry builds.
type Config struct {
	HTTPBufferMin int64
	HTTPClient    *http.Client
	UserAgent     string
	ReadTimeout   time.Duration
	Log           logger.Writer
}

func (c Config) withDefaults() Config {
	if c.HTTPBufferMin <= 0 {
		c.HTTPBufferMin = DefaultHTTPBufferMin
	}
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	c.Log = logger.OrDiscard(c.Log)
	return c
}

// Constructor builds an unopened Source.
type Constructor func(cfg Config) Source

// Registry maps URL schemes to source constructors.
type Registry struct {
	cfg Config

	mutex sync.RWMutex
	ctors map[string]Constructor
}

// NewRegistry returns a Registry with the bundled schemes registered:
// file, http, https, srt, ws, wss and stub.
func NewRegistry(cfg Config) *Registry {
	r := &Registry{
		cfg:   cfg.withDefaults(),
		ctors: make(map[string]Constructor),
	}

	r.Register("file", func(Config) Source { return &File{} })
	r.Register("", func(Config) Source { return &File{} })

	httpCtor := func(cfg Config) Source {
		return &HTTP{
			Client:    cfg.HTTPClient,
			UserAgent: cfg.UserAgent,
			MinBuffer: cfg.HTTPBufferMin,
			Log:       logger.WithPrefix(cfg.Log, "http"),
		}
	}
	r.Register("http", httpCtor)
	r.Register("https", httpCtor)

	r.Register("srt", func(cfg Config) Source {
		return &SRT{
			ReadTimeout: cfg.ReadTimeout,
			Log:         logger.WithPrefix(cfg.Log, "srt"),
		}
	})

	wsCtor := func(cfg Config) Source {
		return &WebSocket{
			Header: http.Header{"User-Agent": []string{cfg.UserAgent}},
			Log:    logger.WithPrefix(cfg.Log, "websocket"),
		}
	}
	r.Register("ws", wsCtor)
	r.Register("wss", wsCtor)

	r.Register("stub", func(Config) Source { return NewMemory(nil) })

	return r
}

// Register adds or replaces the constructor for a scheme.
func (r *Registry) Register(scheme string, ctor Constructor) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.ctors[strings.ToLower(scheme)] = ctor
}

// New builds an unopened source for rawURL.
func (r *Registry) New(rawURL string) (Source, error) {
	scheme := Scheme(rawURL)

	r.mutex.RLock()
	ctor, ok := r.ctors[scheme]
	r.mutex.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, scheme)
	}
	return ctor(r.cfg), nil
}

// Open builds and opens a source for rawURL.
func (r *Registry) Open(ctx context.Context, rawURL string) (Source, error) {
	s, err := r.New(rawURL)
	if err != nil {
		return nil, err
	}
	if err := s.Open(ctx, rawURL); err != nil {
		return nil, err
	}
	return s, nil
}

// Scheme returns the lowercased scheme of rawURL, or "" for plain paths.
func Scheme(rawURL string) string {
	i := strings.Index(rawURL, "://")
	if i <= 0 {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return strings.ToLower(rawURL[:i])
	}
	return strings.ToLower(u.Scheme)
}
