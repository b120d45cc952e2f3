package httpx

import (
	"fmt"
	"net/http"
)

// BearerRoundTripper attaches a static API key to upstream requests
// (blob publisher, prover). An empty token leaves requests untouched.
type BearerRoundTripper struct {
	next  http.RoundTripper
	token string
}

func NewBearerRoundTripper(next http.RoundTripper, token string) BearerRoundTripper {
	return BearerRoundTripper{
		next:  next,
		token: token,
	}
}

func (rt BearerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if rt.token != "" {
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+rt.token)
	}

	resp, err := rt.next.RoundTrip(req)
	if err != nil {
		return nil, fmt.Errorf("next.RoundTrip: %w", err)
	}

	return resp, nil
}

// NewClient builds the upstream HTTP client shared by the chain, blob,
// channel and prover integrations.
func NewClient(token string, opts ...Option) *http.Client {
	return &http.Client{
		Transport: NewBearerRoundTripper(
			NewLoggingRoundTripper(http.DefaultTransport, opts...),
			token,
		),
	}
}
