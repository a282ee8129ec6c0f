// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package acquire provides the base shared by every acquisition server:
// a scoped HTTP session, a per-source rate limiter, a TTL cache, and a
// retrying fetcher, composed so each external call is limited, retried,
// and cached the same way.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pdiddy/music-curator/internal/cache"
	"github.com/pdiddy/music-curator/internal/httputil"
	"github.com/pdiddy/music-curator/internal/ratelimit"
	"github.com/pdiddy/music-curator/pkg/types"
)

// ErrClosed is returned by network operations on a closed server.
var ErrClosed = errors.New("acquisition server closed")

// Server owns the resources of one external source. Open acquires them and
// Close releases them.
type Server struct {
	name   string
	cfg    types.SourceConfig
	logger *slog.Logger

	limiter  *ratelimit.Limiter
	cache    *cache.TTLCache
	client   *http.Client
	fetcher  *httputil.Fetcher
	observer httputil.Observer

	group     singleflight.Group
	closeOnce sync.Once
	closed    atomic.Bool
	requests  atomic.Int64
}

// Option configures a Server.
type Option func(*Server)

// WithLimiter shares a limiter between servers. By default each server
// owns one built from its configuration.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(s *Server) { s.limiter = l }
}

// WithCache shares a cache between servers.
func WithCache(c *cache.TTLCache) Option {
	return func(s *Server) { s.cache = c }
}

// WithHTTPClient replaces the session client. Tests pass httptest clients.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Server) { s.client = c }
}

// WithLogger sets the logger. The server adds a "source" attribute.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithObserver receives every fetch attempt.
func WithObserver(o httputil.Observer) Option {
	return func(s *Server) { s.observer = o }
}

// Open validates cfg and acquires the session for the source called name.
func Open(name string, cfg types.SourceConfig, opts ...Option) (*Server, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("acquire: source name is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("acquire %s: %w", name, err)
	}

	s := &Server{name: name, cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	s.logger = s.logger.With(slog.String("source", name))

	if s.limiter == nil {
		l, err := ratelimit.New(cfg.RequestsPerMinute, cfg.RequestsPerHour)
		if err != nil {
			return nil, fmt.Errorf("acquire %s: %w", name, err)
		}
		s.limiter = l
	}
	if s.cache == nil {
		s.cache = cache.New()
	}
	if s.client == nil {
		s.client = &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone()}
	}

	s.fetcher = httputil.NewFetcher(s.client, httputil.PolicyFrom(cfg),
		httputil.WithUserAgent(cfg.UserAgent),
		httputil.WithLogger(s.logger),
		httputil.WithObserver(s.observer),
		httputil.WithGate(s.admit),
	)

	s.logger.Debug("acquisition server opened",
		"requests_per_minute", cfg.RequestsPerMinute,
		"requests_per_hour", cfg.RequestsPerHour,
		"cache_ttl", cfg.CacheTTL)
	return s, nil
}

// With opens a server, runs fn, and closes the server on every path.
func With(name string, cfg types.SourceConfig, fn func(*Server) error, opts ...Option) (err error) {
	s, err := Open(name, cfg, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(s)
}

// admit blocks until the limiter lets one request through.
func (s *Server) admit(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if wait := s.limiter.Admit(s.name); wait > 0 {
		s.logger.Debug("rate limited, waiting", "wait", wait)
		if err := s.limiter.Wait(ctx, s.name); err != nil {
			return err
		}
	}
	s.requests.Add(1)
	return nil
}

// Get performs one rate-limited, retried GET and returns the body.
func (s *Server) Get(ctx context.Context, rawURL string, header http.Header) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	return s.fetcher.Get(ctx, rawURL, header)
}

// GetJSON is Get followed by decoding into v.
func (s *Server) GetJSON(ctx context.Context, rawURL string, header http.Header, v any) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return s.fetcher.GetJSON(ctx, rawURL, header, v)
}

// Close releases the session. It is safe to call more than once.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.client.CloseIdleConnections()
		s.logger.Debug("acquisition server closed", "requests", s.requests.Load())
	})
	return nil
}

// Closed reports whether Close has been called.
func (s *Server) Closed() bool { return s.closed.Load() }

// Name returns the source name the server was opened with.
func (s *Server) Name() string { return s.name }

// Config returns the source settings.
func (s *Server) Config() types.SourceConfig { return s.cfg }

// Logger returns the server's logger, tagged with the source name.
func (s *Server) Logger() *slog.Logger { return s.logger }

// Limiter returns the rate limiter gating requests.
func (s *Server) Limiter() *ratelimit.Limiter { return s.limiter }

// Cache returns the result cache.
func (s *Server) Cache() *cache.TTLCache { return s.cache }

// Requests returns how many external requests the limiter has admitted.
func (s *Server) Requests() int64 { return s.requests.Load() }

// CacheKey joins an operation name and every parameter that affects its
// result into one key. Strings are trimmed; other values use their
// default formatting.
func CacheKey(op string, params ...any) string {
	var b strings.Builder
	b.WriteString(op)
	for _, p := range params {
		b.WriteByte('|')
		switch v := p.(type) {
		case string:
			b.WriteString(strings.TrimSpace(v))
		case fmt.Stringer:
			b.WriteString(v.String())
		default:
			fmt.Fprintf(&b, "%v", v)
		}
	}
	return b.String()
}

// Cached returns the value stored under key, or calls load, stores its
// result for ttl, and returns it. Concurrent misses for the same key share
// one load. Errors are never cached. hit reports whether the value came
// from the cache.
//
// A shared load runs under the context of the caller that started it. When
// that caller goes away and the load fails with its context error, callers
// that joined it with a live context load again under their own.
func Cached[T any](ctx context.Context, s *Server, key string, ttl time.Duration, load func(context.Context) (T, error)) (value T, hit bool, err error) {
	if v, ok := s.cache.Get(key); ok {
		if typed, ok := v.(T); ok {
			s.logger.Debug("cache hit", "key", key)
			return typed, true, nil
		}
	}

	for {
		owner := false
		v, err, _ := s.group.Do(key, func() (any, error) {
			owner = true
			if v, ok := s.cache.Get(key); ok {
				if typed, ok := v.(T); ok {
					return typed, nil
				}
			}
			loaded, err := load(ctx)
			if err != nil {
				return nil, err
			}
			s.cache.Set(key, loaded, ttl)
			return loaded, nil
		})
		if err == nil {
			return v.(T), false, nil
		}
		if !owner && ctx.Err() == nil && isContextErr(err) {
			s.logger.Debug("shared load abandoned, reloading", "key", key)
			continue
		}
		var zero T
		return zero, false, err
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
