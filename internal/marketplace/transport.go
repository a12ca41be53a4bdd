// Package marketplace talks to the remote marketplace REST API: a resilient
// HTTP transport plus a typed client for the product and offer endpoints.
package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// StatusError is a non-2xx marketplace response.
type StatusError struct {
	Code       int
	Body       string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("marketplace responded %d: %s", e.Code, e.Body)
}

// Request describes one marketplace API call. Body, when set, is sent as
// JSON.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
}

// TransportOptions tune retry, backoff and rate-limit behavior.
type TransportOptions struct {
	BaseURL string
	Timeout time.Duration

	// Bounded path (Do): fixed number of attempts with a fixed delay.
	RetryMax   int
	RetryDelay time.Duration

	// Persistent path (DoPersistent): attempts per cycle, starting delay,
	// and the growth of the delay between cycles.
	AttemptBudget int
	BaseDelay     time.Duration
	BackoffFactor float64
	MaxDelay      time.Duration

	RateLimit rate.Limit
	RateBurst int
}

func (o *TransportOptions) applyDefaults() {
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.RetryMax <= 0 {
		o.RetryMax = 3
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = 3 * time.Second
	}
	if o.AttemptBudget <= 0 {
		o.AttemptBudget = 10
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = 10 * time.Second
	}
	if o.BackoffFactor <= 1 {
		o.BackoffFactor = 1.5
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = 5 * time.Minute
	}
	if o.RateLimit <= 0 {
		o.RateLimit = 10
	}
	if o.RateBurst <= 0 {
		o.RateBurst = 10
	}
}

// Transport issues authenticated HTTP calls with retry, backoff and
// rate-limit handling. One Transport is shared by every concurrent task in a
// batch; the limiter caps the request rate across all of them.
type Transport struct {
	opts    TransportOptions
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger

	// token is written once after authentication, before any concurrent
	// phase starts (single-writer assumption).
	token string
}

func NewTransport(opts TransportOptions, logger *zap.Logger) *Transport {
	opts.applyDefaults()
	return &Transport{
		opts:    opts,
		client:  &http.Client{Timeout: opts.Timeout},
		limiter: rate.NewLimiter(opts.RateLimit, opts.RateBurst),
		logger:  logger,
	}
}

// SetToken installs the bearer token attached to subsequent calls.
func (t *Transport) SetToken(token string) {
	t.token = token
}

// Do executes one call with a bounded number of attempts and a fixed delay
// between them. On exhaustion the failure is logged and returned; the caller
// must treat the operation as not applied this run.
func (t *Transport) Do(ctx context.Context, req Request) (json.RawMessage, error) {
	var lastErr error
	for attempt := 0; attempt < t.opts.RetryMax; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, t.opts.RetryDelay); err != nil {
				return nil, err
			}
		}
		data, _, err := t.roundTrip(ctx, req)
		if err == nil {
			return data, nil
		}
		lastErr = err
	}
	t.logFailure(req, lastErr)
	return nil, fmt.Errorf("%s %s: %w", req.Method, req.Path, lastErr)
}

// DoPersistent executes one call with the guarantee that it either succeeds,
// hits a legitimate 404 (returned as nil data, nil error), or blocks until
// ctx is done. A 429 response sleeps for the server's Retry-After hint
// without consuming the attempt budget. When the budget runs out the call
// re-enters an outer cycle whose delay grows by BackoffFactor up to
// MaxDelay; ctx is the only way to abandon the call.
func (t *Transport) DoPersistent(ctx context.Context, req Request) (json.RawMessage, error) {
	delay := t.opts.BaseDelay
	for cycle := 1; ; cycle++ {
		for attempt := 0; attempt < t.opts.AttemptBudget; {
			data, code, err := t.roundTrip(ctx, req)
			if err == nil {
				return data, nil
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if code == http.StatusNotFound {
				// Legitimate absence, not a failure.
				return nil, nil
			}
			if code == http.StatusTooManyRequests {
				wait := delay
				var statusErr *StatusError
				if errors.As(err, &statusErr) && statusErr.RetryAfter > 0 {
					wait = statusErr.RetryAfter
				}
				t.logger.Warn("rate limited",
					zap.String("path", req.Path),
					zap.Duration("wait", wait))
				if err := sleep(ctx, wait); err != nil {
					return nil, err
				}
				continue
			}
			attempt++
			if attempt == t.opts.AttemptBudget {
				t.logFailure(req, err)
				break
			}
			if err := sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		delay = time.Duration(float64(delay) * t.opts.BackoffFactor)
		if delay > t.opts.MaxDelay {
			delay = t.opts.MaxDelay
		}
		t.logger.Warn("attempt budget exhausted, starting another cycle",
			zap.String("method", req.Method),
			zap.String("path", req.Path),
			zap.Int("cycle", cycle),
			zap.Duration("delay", delay))
		if err := sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// roundTrip performs a single rate-limited attempt.
func (t *Transport) roundTrip(ctx context.Context, req Request) ([]byte, int, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}

	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, 0, fmt.Errorf("encoding request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	target := strings.TrimRight(t.opts.BaseURL, "/") + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, 0, err
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if t.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+t.token)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, resp.StatusCode, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return data, resp.StatusCode, &StatusError{
			Code:       resp.StatusCode,
			Body:       string(data),
			RetryAfter: parseRetryAfter(resp.Header),
		}
	}
	return data, resp.StatusCode, nil
}

func (t *Transport) logFailure(req Request, err error) {
	payload := ""
	if req.Body != nil {
		if encoded, marshalErr := json.Marshal(req.Body); marshalErr == nil {
			payload = string(encoded)
		}
	}
	t.logger.Error("marketplace request failed",
		zap.String("method", req.Method),
		zap.String("path", req.Path),
		zap.String("payload", payload),
		zap.Error(err))
}

func parseRetryAfter(hdr http.Header) time.Duration {
	value := strings.TrimSpace(hdr.Get("Retry-After"))
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
