package channel

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"shirtdrop/internal/domain"
	"shirtdrop/internal/domain/value"
	"shirtdrop/pkg/errcodes"
	"shirtdrop/pkg/httpx"
)

const maxResponseSize = 1 << 20

// Response is an upstream JSON answer relayed to the caller as is.
type Response struct {
	Status int
	Body   []byte
}

type Config struct {
	FaucetURL string
	ProverURL string
	ProverKey string
}

// Client proxies the payment-channel sandbox faucet and the hosted zkLogin
// prover. Neither protocol is interpreted here.
type Client struct {
	faucet *http.Client
	prover *http.Client
	cfg    Config
}

func NewClient(cfg Config, opts ...httpx.Option) *Client {
	return &Client{
		faucet: httpx.NewClient("", opts...),
		prover: httpx.NewClient(cfg.ProverKey, opts...),
		cfg:    cfg,
	}
}

func (c *Client) RequestTokens(ctx context.Context, address value.Address) (Response, error) {
	body, err := jsoniter.Marshal(map[string]string{"userAddress": address.String()})
	if err != nil {
		return Response{}, fmt.Errorf("jsoniter.Marshal: %w", err)
	}

	return c.post(ctx, c.faucet, "faucet", c.cfg.FaucetURL, body)
}

// Prove forwards a zkLogin proof request body to the prover.
func (c *Client) Prove(ctx context.Context, body []byte) (Response, error) {
	return c.post(ctx, c.prover, "prover", c.cfg.ProverURL, body)
}

func (c *Client) post(ctx context.Context, client *http.Client, name, endpoint string, body []byte) (Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("http.NewRequestWithContext: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("%s: client.Do: %w", name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return Response{}, fmt.Errorf("%s: io.ReadAll: %w", name, err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return Response{}, domain.Unprocessable(errcodes.UpstreamError,
			fmt.Sprintf("%s responded with status %d", name, resp.StatusCode))
	}

	if !jsoniter.Valid(raw) {
		raw, _ = jsoniter.Marshal(map[string]string{"message": string(raw)})
	}

	return Response{Status: resp.StatusCode, Body: raw}, nil
}
