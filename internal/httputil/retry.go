// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides the retrying fetcher shared by every external
// source: bounded attempts, exponential backoff with jitter, per-attempt and
// per-operation timeouts, and failure classification.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"syscall"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/pdiddy/music-curator/pkg/types"
)

// Failure classes. A *FetchError wraps exactly one of ErrPermanentFailure,
// ErrExhaustedRetries, or ErrTimeout. ErrTransient marks a caller error as
// retryable.
var (
	ErrTransient        = errors.New("transient failure")
	ErrPermanentFailure = errors.New("permanent failure")
	ErrExhaustedRetries = errors.New("retries exhausted")
	ErrTimeout          = errors.New("operation timed out")
)

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 16 << 20

// FetchError describes a failed external operation.
type FetchError struct {
	Op       string
	Attempts int
	Class    error
	Err      error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v after %d attempt(s)", e.Op, e.Class, e.Attempts)
	}
	return fmt.Sprintf("%s: %v after %d attempt(s): %v", e.Op, e.Class, e.Attempts, e.Err)
}

// Unwrap exposes both the class and the last underlying error to errors.Is.
func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Class}
	}
	return []error{e.Class, e.Err}
}

// StatusError is returned for non-2xx HTTP responses.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d from %s", e.StatusCode, e.URL)
	}
	return fmt.Sprintf("HTTP %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

// Retryable reports whether the status is worth another attempt: 5xx,
// 429 Too Many Requests, and 408 Request Timeout.
func (e *StatusError) Retryable() bool {
	return e.StatusCode >= 500 ||
		e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode == http.StatusRequestTimeout
}

// Policy controls attempts and timing for one Fetcher.
type Policy struct {
	MaxAttempts      int
	BaseDelay        time.Duration
	MaxDelay         time.Duration
	AttemptTimeout   time.Duration
	OperationTimeout time.Duration
}

// PolicyFrom derives a Policy from source configuration.
func PolicyFrom(cfg types.SourceConfig) Policy {
	return Policy{
		MaxAttempts:      cfg.MaxAttempts,
		BaseDelay:        cfg.RetryBaseDelay,
		MaxDelay:         cfg.RetryMaxDelay,
		AttemptTimeout:   cfg.Timeout,
		OperationTimeout: cfg.OperationTimeout,
	}
}

// Attempt reports the outcome of one try.
type Attempt struct {
	Op        string
	Number    int
	Elapsed   time.Duration
	Err       error
	Retryable bool
}

// Observer receives every attempt in order.
type Observer func(Attempt)

// Fetcher runs external operations under a Policy.
type Fetcher struct {
	client    *http.Client
	policy    Policy
	userAgent string
	logger    *slog.Logger
	observer  Observer
	gate      func(context.Context) error
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithLogger sets the logger used for attempt diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// WithObserver registers a callback for every attempt.
func WithObserver(o Observer) Option {
	return func(f *Fetcher) { f.observer = o }
}

// WithGate installs a hook run before every attempt, outside the attempt
// timeout. Rate limiters plug in here; an error from the gate ends the
// operation.
func WithGate(g func(context.Context) error) Option {
	return func(f *Fetcher) { f.gate = g }
}

// WithUserAgent sets the User-Agent header sent by Get.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) { f.userAgent = ua }
}

// NewFetcher creates a Fetcher. A nil client selects http.DefaultClient.
func NewFetcher(client *http.Client, policy Policy, opts ...Option) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	f := &Fetcher{
		client: client,
		policy: policy,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Policy returns the fetcher's policy.
func (f *Fetcher) Policy() Policy {
	return f.policy
}

// Run calls fn until it succeeds, fails permanently, runs out of attempts,
// or the operation timeout elapses. Each call receives a context bounded by
// the attempt timeout. Errors wrapping ErrTransient, network errors,
// attempt timeouts, and retryable *StatusError values are retried.
func (f *Fetcher) Run(ctx context.Context, op string, fn func(context.Context) error) error {
	opCtx := ctx
	if f.policy.OperationTimeout > 0 {
		var cancel context.CancelFunc
		opCtx, cancel = context.WithTimeout(ctx, f.policy.OperationTimeout)
		defer cancel()
	}

	var (
		attempts  int
		last      error
		retryable bool
	)
	err := retry.Do(opCtx, f.backoff(), func(rctx context.Context) error {
		if f.gate != nil {
			if err := f.gate(rctx); err != nil {
				last, retryable = err, false
				return err
			}
		}

		attempts++
		actx := rctx
		cancel := context.CancelFunc(func() {})
		if f.policy.AttemptTimeout > 0 {
			actx, cancel = context.WithTimeout(rctx, f.policy.AttemptTimeout)
		}
		start := time.Now()
		err := fn(actx)
		attemptExpired := errors.Is(actx.Err(), context.DeadlineExceeded)
		cancel()

		last = err
		retryable = err != nil && rctx.Err() == nil && isTransient(err, attemptExpired)
		f.report(Attempt{
			Op:        op,
			Number:    attempts,
			Elapsed:   time.Since(start),
			Err:       err,
			Retryable: retryable,
		})

		if err == nil {
			return nil
		}
		if retryable {
			return retry.RetryableError(err)
		}
		return err
	})
	if err == nil {
		return nil
	}

	switch {
	case ctx.Err() != nil:
		return fmt.Errorf("%s: %w", op, ctx.Err())
	case opCtx.Err() != nil:
		return &FetchError{Op: op, Attempts: attempts, Class: ErrTimeout, Err: last}
	case retryable:
		return &FetchError{Op: op, Attempts: attempts, Class: ErrExhaustedRetries, Err: last}
	default:
		return &FetchError{Op: op, Attempts: attempts, Class: ErrPermanentFailure, Err: last}
	}
}

func (f *Fetcher) report(a Attempt) {
	if f.observer != nil {
		f.observer(a)
	}
	switch {
	case a.Err == nil:
		f.logger.Debug("fetch attempt succeeded", "op", a.Op, "attempt", a.Number, "elapsed", a.Elapsed)
	case a.Retryable:
		f.logger.Warn("fetch attempt failed, will retry", "op", a.Op, "attempt", a.Number, "max_attempts", f.policy.MaxAttempts, "error", a.Err)
	default:
		f.logger.Warn("fetch attempt failed", "op", a.Op, "attempt", a.Number, "error", a.Err)
	}
}

// backoff yields base, 2*base, 4*base, ... plus jitter in [0, base), each
// capped at MaxDelay, for at most MaxAttempts-1 retries.
func (f *Fetcher) backoff() retry.Backoff {
	base := f.policy.BaseDelay
	if base <= 0 {
		base = time.Millisecond
	}
	var b retry.Backoff = withJitter(base, retry.NewExponential(base))
	if f.policy.MaxDelay > 0 {
		b = retry.WithCappedDuration(f.policy.MaxDelay, b)
	}
	return retry.WithMaxRetries(uint64(f.policy.MaxAttempts-1), b)
}

func withJitter(limit time.Duration, next retry.Backoff) retry.Backoff {
	return retry.BackoffFunc(func() (time.Duration, bool) {
		d, stop := next.Next()
		if stop {
			return 0, true
		}
		return d + time.Duration(rand.Int64N(int64(limit))), false
	})
}

func isTransient(err error, attemptExpired bool) bool {
	if attemptExpired && errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, ErrTransient) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	// Lookups that cannot resolve will not resolve on retry.
	var de *net.DNSError
	if errors.As(err, &de) {
		return de.IsTimeout || de.IsTemporary
	}
	var oe *net.OpError
	if errors.As(err, &oe) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}

// Get issues one GET per attempt and returns the body of the first 2xx
// response. header may be nil.
func (f *Fetcher) Get(ctx context.Context, rawURL string, header http.Header) ([]byte, error) {
	var body []byte
	err := f.Run(ctx, "GET "+redact(rawURL), func(actx context.Context) error {
		b, err := f.do(actx, rawURL, header)
		if err != nil {
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// GetJSON is Get followed by decoding into v. A body that is not valid
// JSON fails permanently.
func (f *Fetcher) GetJSON(ctx context.Context, rawURL string, header http.Header, v any) error {
	return f.Run(ctx, "GET "+redact(rawURL), func(actx context.Context) error {
		b, err := f.do(actx, rawURL, header)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(b, v); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
		return nil
	})
}

func (f *Fetcher) do(ctx context.Context, rawURL string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: redact(rawURL), Body: snippet(body)}
	}
	return body, nil
}

func snippet(b []byte) string {
	const n = 200
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}

// redact hides credentials carried in query strings before a URL is logged.
func redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	if !q.Has("key") {
		return rawURL
	}
	q.Set("key", "REDACTED")
	u.RawQuery = q.Encode()
	return u.String()
}
