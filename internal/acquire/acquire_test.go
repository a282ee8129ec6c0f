// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/music-curator/internal/cache"
	"github.com/pdiddy/music-curator/internal/httputil"
	"github.com/pdiddy/music-curator/internal/ratelimit"
	"github.com/pdiddy/music-curator/pkg/types"
)

func testConfig() types.SourceConfig {
	cfg := types.DefaultSourceConfig()
	cfg.Timeout = 2 * time.Second
	cfg.OperationTimeout = 5 * time.Second
	cfg.RetryBaseDelay = time.Millisecond
	cfg.RetryMaxDelay = 5 * time.Millisecond
	return cfg
}

func TestOpen_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.RequestsPerMinute = 0
	_, err := Open("wikidata", cfg)
	assert.ErrorIs(t, err, types.ErrInvalidConfig)

	_, err = Open("  ", testConfig())
	assert.Error(t, err)
}

func TestGet_SendsUserAgentAndCountsRequests(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, types.DefaultUserAgent, r.Header.Get("User-Agent"))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer ts.Close()

	s, err := Open("test", testConfig(), WithHTTPClient(ts.Client()))
	require.NoError(t, err)
	defer s.Close()

	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, s.GetJSON(context.Background(), ts.URL, nil, &out))
	assert.True(t, out.OK)
	assert.Equal(t, int64(1), s.Requests())
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGet_RetriesAreRateLimited(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer ts.Close()

	var attempts int32
	s, err := Open("test", testConfig(),
		WithHTTPClient(ts.Client()),
		WithObserver(func(httputil.Attempt) { atomic.AddInt32(&attempts, 1) }))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Get(context.Background(), ts.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
	assert.Equal(t, int64(3), s.Requests(), "every attempt passes the limiter")
}

func TestGet_WaitsForSharedLimiter(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer ts.Close()

	lim, err := ratelimit.New(1, 10)
	require.NoError(t, err)

	s, err := Open("shared", testConfig(), WithHTTPClient(ts.Client()), WithLimiter(lim))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Get(context.Background(), ts.URL, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = s.Get(ctx, ts.URL, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded, "second request must wait for the minute window")
}

func TestClose_IdempotentAndRejectsRequests(t *testing.T) {
	s, err := Open("test", testConfig())
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.True(t, s.Closed())

	_, err = s.Get(context.Background(), "http://127.0.0.1:1", nil)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestWith_ClosesOnError(t *testing.T) {
	var srv *Server
	boom := errors.New("boom")
	err := With("test", testConfig(), func(s *Server) error {
		srv = s
		return boom
	})
	assert.ErrorIs(t, err, boom)
	require.NotNil(t, srv)
	assert.True(t, srv.Closed())
}

func TestCached_HitAfterMiss(t *testing.T) {
	s, err := Open("test", testConfig())
	require.NoError(t, err)
	defer s.Close()

	var loads int
	load := func(context.Context) (string, error) {
		loads++
		return "value", nil
	}

	v, hit, err := Cached(context.Background(), s, "k", time.Hour, load)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "value", v)

	v, hit, err = Cached(context.Background(), s, "k", time.Hour, load)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "value", v)
	assert.Equal(t, 1, loads)
}

func TestCached_ExpiryRefetchesOnce(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	s, err := Open("test", testConfig(), WithCache(cache.New(cache.WithClock(clock))))
	require.NoError(t, err)
	defer s.Close()

	var loads int
	load := func(context.Context) (int, error) {
		loads++
		return loads, nil
	}

	for i := 0; i < 3; i++ {
		_, _, err := Cached(context.Background(), s, "k", time.Minute, load)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, loads)

	mu.Lock()
	now = now.Add(2 * time.Minute)
	mu.Unlock()

	for i := 0; i < 3; i++ {
		v, _, err := Cached(context.Background(), s, "k", time.Minute, load)
		require.NoError(t, err)
		assert.Equal(t, 2, v)
	}
	assert.Equal(t, 2, loads)
}

func TestCached_ErrorsAreNotCached(t *testing.T) {
	s, err := Open("test", testConfig())
	require.NoError(t, err)
	defer s.Close()

	var loads int
	load := func(context.Context) (string, error) {
		loads++
		if loads == 1 {
			return "", errors.New("upstream down")
		}
		return "recovered", nil
	}

	_, _, err = Cached(context.Background(), s, "k", time.Hour, load)
	require.Error(t, err)

	v, hit, err := Cached(context.Background(), s, "k", time.Hour, load)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "recovered", v)
}

func TestCached_CoalescesConcurrentMisses(t *testing.T) {
	s, err := Open("test", testConfig())
	require.NoError(t, err)
	defer s.Close()

	var loads int32
	release := make(chan struct{})
	load := func(context.Context) (string, error) {
		atomic.AddInt32(&loads, 1)
		<-release
		return "v", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, _, err := Cached(context.Background(), s, "k", time.Hour, load)
			assert.NoError(t, err)
			assert.Equal(t, "v", v)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&loads))
}

func TestCached_AbandonedLoadReloadsForLiveCaller(t *testing.T) {
	s, err := Open("test", testConfig())
	require.NoError(t, err)
	defer s.Close()

	var loads int32
	started := make(chan struct{})
	load := func(ctx context.Context) (string, error) {
		if atomic.AddInt32(&loads, 1) == 1 {
			close(started)
			<-ctx.Done()
			return "", ctx.Err()
		}
		return "v", nil
	}

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, _, err := Cached(ctxA, s, "k", time.Hour, load)
		errA <- err
	}()
	<-started

	type result struct {
		v   string
		err error
	}
	resB := make(chan result, 1)
	go func() {
		v, _, err := Cached(context.Background(), s, "k", time.Hour, load)
		resB <- result{v, err}
	}()
	time.Sleep(20 * time.Millisecond)
	cancelA()

	assert.ErrorIs(t, <-errA, context.Canceled)
	b := <-resB
	require.NoError(t, b.err, "a live caller must not inherit another caller's cancellation")
	assert.Equal(t, "v", b.v)
	assert.Equal(t, int32(2), atomic.LoadInt32(&loads))

	v, hit, err := Cached(context.Background(), s, "k", time.Hour, load)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "v", v)
}

func TestCached_OwnContextErrorNotRetried(t *testing.T) {
	s, err := Open("test", testConfig())
	require.NoError(t, err)
	defer s.Close()

	var loads int32
	load := func(context.Context) (string, error) {
		atomic.AddInt32(&loads, 1)
		return "", context.DeadlineExceeded
	}
	_, _, err = Cached(context.Background(), s, "k", time.Hour, load)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), atomic.LoadInt32(&loads))
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "search|David Bowie|rock|10", CacheKey("search", " David Bowie ", "rock", 10))
	assert.NotEqual(t, CacheKey("search", "a", 5), CacheKey("search", "a", 10))
	assert.NotEqual(t, CacheKey("search", "a"), CacheKey("index", "a"))
}
