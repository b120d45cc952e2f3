package probe_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"shirtdrop/pkg/probe"
)

func TestServerHandlers(t *testing.T) {
	testCases := []struct {
		name       string
		endpoint   string
		checks     map[string]probe.Checker
		statusCode int
		body       string
	}{
		{
			name:       "Health handler",
			endpoint:   "/healthz",
			statusCode: http.StatusOK,
			body:       `{"name":"shirtdrop","version":"v0.0.1"}`,
		},
		{
			name:     "Ready handler",
			endpoint: "/ready",
			checks: map[string]probe.Checker{
				"postgres": func(context.Context) error { return nil },
			},
			statusCode: http.StatusOK,
			body:       `{"name":"shirtdrop","version":"v0.0.1"}`,
		},
		{
			name:     "Ready handler with failing dependency",
			endpoint: "/ready",
			checks: map[string]probe.Checker{
				"redis": func(context.Context) error { return errors.New("connection refused") },
			},
			statusCode: http.StatusServiceUnavailable,
			body:       `{"redis":"connection refused"}`,
		},
		{
			name:       "Invalid endpoint",
			endpoint:   "/invalid",
			statusCode: http.StatusNotFound,
			body:       "404 page not found\n",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rq := require.New(t)

			srv := probe.NewServer(":0", probe.Options{Name: "shirtdrop", Version: "v0.0.1"}, tc.checks)

			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.endpoint, http.NoBody))

			rq.Equal(tc.statusCode, rec.Code)
			rq.Equal(tc.body, rec.Body.String())
		})
	}
}

func TestServerRun(t *testing.T) {
	rq := require.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	probeServer := probe.NewServer(":10001", probe.Options{Name: "app-1", Version: "v0.0.1"}, nil)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return probeServer.Run(ctx)
	})

	// Wait for server to start.
	time.Sleep(time.Second)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://:10001/healthz", http.NoBody)
	rq.NoError(err)

	resp, err := http.DefaultClient.Do(req)
	rq.NoError(err)

	defer resp.Body.Close()

	rq.Equal(http.StatusOK, resp.StatusCode)

	bodyBytes, err := io.ReadAll(resp.Body)
	rq.NoError(err)
	rq.Equal(`{"name":"app-1","version":"v0.0.1"}`, string(bodyBytes))

	cancel()

	rq.NoError(g.Wait())
}
