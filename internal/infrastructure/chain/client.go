package chain

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	jsoniter "github.com/json-iterator/go"

	"shirtdrop/internal/metrics"
	"shirtdrop/pkg/httpx"
)

const maxResponseSize = 8 << 20

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type response struct {
	ID     uint64              `json:"id"`
	Result jsoniter.RawMessage `json:"result"`
	Error  *RPCError           `json:"error"`
}

// RPCError is the error object of a JSON-RPC 2.0 response.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Client talks JSON-RPC 2.0 to a full node.
type Client struct {
	url        string
	httpClient *http.Client
	nextID     atomic.Uint64
}

func NewClient(url string, opts ...httpx.Option) *Client {
	return &Client{
		url:        url,
		httpClient: httpx.NewClient("", opts...),
	}
}

func (c *Client) call(ctx context.Context, method string, params []any, result any) (err error) {
	started := time.Now()

	defer func() {
		metrics.ChainCalls.WithLabelValues(method, metrics.Result(err)).Observe(time.Since(started).Seconds())
	}()

	if params == nil {
		params = []any{}
	}

	body, err := jsoniter.Marshal(request{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("jsoniter.Marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("http.NewRequestWithContext: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("httpClient.Do: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("io.ReadAll: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status %d", method, resp.StatusCode)
	}

	var decoded response
	if err = jsoniter.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("jsoniter.Unmarshal: %w", err)
	}

	if decoded.Error != nil {
		return fmt.Errorf("%s: %w", method, decoded.Error)
	}

	if result == nil {
		return nil
	}

	if err = jsoniter.Unmarshal(decoded.Result, result); err != nil {
		return fmt.Errorf("%s: decode result: %w", method, err)
	}

	return nil
}
