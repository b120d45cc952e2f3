package middlewarex_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"shirtdrop/pkg/contextx"
	"shirtdrop/pkg/middlewarex"
)

type counterFunc func(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)

func (f counterFunc) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	return f(ctx, key, window)
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimit(t *testing.T) {
	testCases := []struct {
		name       string
		count      int64
		err        error
		statusCode int
		remaining  string
	}{
		{name: "Under limit", count: 1, statusCode: http.StatusOK, remaining: "2"},
		{name: "At limit", count: 3, statusCode: http.StatusOK, remaining: "0"},
		{name: "Over limit", count: 4, statusCode: http.StatusTooManyRequests, remaining: "0"},
		{name: "Counter failure", err: errors.New("redis down"), statusCode: http.StatusOK},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rq := require.New(t)

			var gotKey string

			counter := counterFunc(func(_ context.Context, key string, _ time.Duration) (int64, time.Duration, error) {
				gotKey = key
				return tc.count, 30 * time.Second, tc.err
			})

			h := middlewarex.RateLimit(counter, "claim", 3, time.Minute)(okHandler())

			req := httptest.NewRequest(http.MethodPost, "/api/claim", http.NoBody)
			req.Header.Set("X-Forwarded-For", "10.0.0.1, 172.16.0.1")

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			rq.Equal(tc.statusCode, rec.Code)
			rq.Equal("ratelimit:claim:10.0.0.1", gotKey)
			rq.Equal(tc.remaining, rec.Header().Get("X-RateLimit-Remaining"))

			if tc.statusCode == http.StatusTooManyRequests {
				rq.Equal("30", rec.Header().Get("Retry-After"))
				rq.Contains(rec.Body.String(), `"code":"TooManyRequests"`)
			}
		})
	}
}

func TestRateLimitDisabled(t *testing.T) {
	rq := require.New(t)

	h := middlewarex.RateLimit(nil, "claim", 3, time.Minute)(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	rq.Equal(http.StatusOK, rec.Code)
	rq.Empty(rec.Header().Get("X-RateLimit-Limit"))
}

func TestTraceID(t *testing.T) {
	rq := require.New(t)

	var traceID contextx.TraceID

	h := middlewarex.TraceID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		var err error
		traceID, err = contextx.TraceIDFromContext(r.Context())
		rq.NoError(err)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set("X-Trace-Id", "given-trace")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	rq.Equal(contextx.TraceID("given-trace"), traceID)
	rq.Equal("given-trace", rec.Header().Get("X-Trace-Id"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	rq.Len(rec.Header().Get("X-Trace-Id"), 20)
}

func TestRecovery(t *testing.T) {
	rq := require.New(t)

	h := middlewarex.Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	rq.Equal(http.StatusInternalServerError, rec.Code)
}

func TestClientIP(t *testing.T) {
	trusted, err := middlewarex.ParseTrustedProxies([]string{"10.0.0.0/8", "203.0.113.9"})
	require.NoError(t, err)

	testCases := []struct {
		name      string
		trusted   []netip.Prefix
		remote    string
		forwarded []string
		want      string
	}{
		{name: "Peer only", trusted: trusted, remote: "192.0.2.7:5555", want: "192.0.2.7"},
		{name: "Untrusted peer ignores header", trusted: trusted, remote: "192.0.2.7:5555", forwarded: []string{"198.51.100.2"}, want: "192.0.2.7"},
		{name: "No trusted proxies", remote: "10.1.1.1:5555", forwarded: []string{"198.51.100.2"}, want: "10.1.1.1"},
		{name: "Trusted peer", trusted: trusted, remote: "10.1.1.1:5555", forwarded: []string{"198.51.100.2"}, want: "198.51.100.2"},
		{
			name: "Spoofed leftmost hop", trusted: trusted, remote: "10.1.1.1:5555",
			forwarded: []string{"1.1.1.1, 198.51.100.2, 203.0.113.9"}, want: "198.51.100.2",
		},
		{
			name: "Split headers", trusted: trusted, remote: "10.1.1.1:5555",
			forwarded: []string{"1.1.1.1", "198.51.100.2"}, want: "198.51.100.2",
		},
		{name: "Garbage hop", trusted: trusted, remote: "10.1.1.1:5555", forwarded: []string{"not-an-ip"}, want: "10.1.1.1"},
		{name: "All hops trusted", trusted: trusted, remote: "10.1.1.1:5555", forwarded: []string{"10.2.2.2"}, want: "10.2.2.2"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			req.RemoteAddr = tc.remote

			for _, v := range tc.forwarded {
				req.Header.Add("X-Forwarded-For", v)
			}

			var got string

			middlewarex.RealIP(tc.trusted)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				got = middlewarex.ClientIP(r)
			})).ServeHTTP(httptest.NewRecorder(), req)

			require.Equal(t, tc.want, got)
		})
	}
}

func TestParseTrustedProxiesRejectsGarbage(t *testing.T) {
	_, err := middlewarex.ParseTrustedProxies([]string{"10.0.0.0/8", "proxy.local"})
	require.Error(t, err)
}

func TestRateLimitIgnoresRotatedForwardedFor(t *testing.T) {
	rq := require.New(t)

	var mu sync.Mutex

	counts := map[string]int64{}
	counter := counterFunc(func(_ context.Context, key string, _ time.Duration) (int64, time.Duration, error) {
		mu.Lock()
		defer mu.Unlock()

		counts[key]++

		return counts[key], time.Minute, nil
	})

	h := middlewarex.RealIP(nil)(middlewarex.RateLimit(counter, "claim", 1, time.Minute)(okHandler()))

	allowed := 0

	for i := range 10 {
		req := httptest.NewRequest(http.MethodPost, "/api/claim", http.NoBody)
		req.RemoteAddr = "192.0.2.7:5555"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("1.1.1.%d", i))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code == http.StatusOK {
			allowed++
		}
	}

	rq.Equal(1, allowed)
	rq.Len(counts, 1)
}
