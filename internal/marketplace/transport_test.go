package marketplace

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func newTestTransport(baseURL string, opts TransportOptions) *Transport {
	opts.BaseURL = baseURL
	if opts.RetryDelay == 0 {
		opts.RetryDelay = time.Millisecond
	}
	if opts.BaseDelay == 0 {
		opts.BaseDelay = time.Millisecond
	}
	if opts.RateLimit == 0 {
		opts.RateLimit = rate.Inf
	}
	return NewTransport(opts, zap.NewNop())
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	transport := newTestTransport(server.URL, TransportOptions{RetryMax: 3})
	data, err := transport.Do(context.Background(), Request{Method: http.MethodGet, Path: "things"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(data))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDo_BoundedRetryThenGivesUp(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	transport := newTestTransport(server.URL, TransportOptions{RetryMax: 3})
	_, err := transport.Do(context.Background(), Request{Method: http.MethodGet, Path: "things"})
	require.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestDo_RecoversWithinBudget(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	transport := newTestTransport(server.URL, TransportOptions{RetryMax: 3})
	_, err := transport.Do(context.Background(), Request{Method: http.MethodGet, Path: "things"})
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestDoPersistent_NotFoundIsTerminal(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.NotFound(w, r)
	}))
	defer server.Close()

	transport := newTestTransport(server.URL, TransportOptions{AttemptBudget: 10})
	data, err := transport.DoPersistent(context.Background(), Request{Method: http.MethodGet, Path: "things/42"})
	require.NoError(t, err)
	assert.Nil(t, data)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "404 must not be retried")
}

func TestDoPersistent_RateLimitHonorsHintWithoutConsumingBudget(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "slow down", http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	// AttemptBudget of 1: if 429 consumed budget the first response would
	// already exhaust it and push the call into a backoff cycle.
	transport := newTestTransport(server.URL, TransportOptions{
		AttemptBudget: 1,
		BaseDelay:     time.Hour,
	})

	start := time.Now()
	_, err := transport.DoPersistent(context.Background(), Request{Method: http.MethodGet, Path: "things"})
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.GreaterOrEqual(t, time.Since(start), 2*time.Second, "must wait the Retry-After hint per 429")
}

func TestDoPersistent_OutlivesAttemptBudget(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 3 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	// Budget of 2 fails twice, then the outer cycle retries and succeeds.
	transport := newTestTransport(server.URL, TransportOptions{
		AttemptBudget: 2,
		BaseDelay:     time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
	})
	_, err := transport.DoPersistent(context.Background(), Request{Method: http.MethodGet, Path: "things"})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(4))
}

func TestDoPersistent_ContextCancelsTheLoop(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	transport := newTestTransport(server.URL, TransportOptions{
		AttemptBudget: 2,
		BaseDelay:     10 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := transport.DoPersistent(ctx, Request{Method: http.MethodGet, Path: "things"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTransport_AttachesBearerToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	transport := newTestTransport(server.URL, TransportOptions{})
	transport.SetToken("secret-token")

	_, err := transport.Do(context.Background(), Request{Method: http.MethodGet, Path: "things"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret-token", gotAuth)
}

func TestParseRetryAfter(t *testing.T) {
	hdr := http.Header{}
	assert.Equal(t, time.Duration(0), parseRetryAfter(hdr))

	hdr.Set("Retry-After", "5")
	assert.Equal(t, 5*time.Second, parseRetryAfter(hdr))

	hdr.Set("Retry-After", "garbage")
	assert.Equal(t, time.Duration(0), parseRetryAfter(hdr))
}
