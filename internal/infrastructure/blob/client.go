package blob

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"shirtdrop/internal/domain"
	"shirtdrop/pkg/errcodes"
	"shirtdrop/pkg/httpx"
)

const maxUploadResponse = 1 << 20

var blobIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`) //nolint:gochecknoglobals

// Object is a blob being streamed from the aggregator. The caller closes Body.
type Object struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
}

type Config struct {
	AggregatorURL string
	PublisherURL  string
	PublisherKey  string
	Epochs        int
}

// Client reads blobs through an aggregator and stores them through a
// publisher.
type Client struct {
	aggregator *http.Client
	publisher  *http.Client
	cfg        Config
}

func NewClient(cfg Config, opts ...httpx.Option) *Client {
	return &Client{
		aggregator: httpx.NewClient("", opts...),
		publisher:  httpx.NewClient(cfg.PublisherKey, opts...),
		cfg:        cfg,
	}
}

func ValidateID(id string) error {
	if !blobIDPattern.MatchString(id) {
		return domain.InvalidArgument(errcodes.InvalidBlobID, "invalid blob id")
	}

	return nil
}

func (c *Client) Get(ctx context.Context, id string) (Object, error) {
	if err := ValidateID(id); err != nil {
		return Object{}, err
	}

	endpoint := strings.TrimRight(c.cfg.AggregatorURL, "/") + "/v1/blobs/" + url.PathEscape(id)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return Object{}, fmt.Errorf("http.NewRequestWithContext: %w", err)
	}

	resp, err := c.aggregator.Do(req)
	if err != nil {
		return Object{}, fmt.Errorf("aggregator.Do: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_ = resp.Body.Close()
		return Object{}, domain.NotFound(errcodes.BlobNotFound, "blob not found")
	case resp.StatusCode != http.StatusOK:
		_ = resp.Body.Close()
		return Object{}, upstreamError("aggregator", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return Object{
		Body:          resp.Body,
		ContentType:   contentType,
		ContentLength: resp.ContentLength,
	}, nil
}

type storeResponse struct {
	NewlyCreated *struct {
		BlobObject struct {
			BlobID string `json:"blobId"`
		} `json:"blobObject"`
	} `json:"newlyCreated"`
	AlreadyCertified *struct {
		BlobID string `json:"blobId"`
	} `json:"alreadyCertified"`
}

// Put stores body for the configured number of epochs and returns the blob
// id. Storing an already certified blob returns the existing id.
func (c *Client) Put(ctx context.Context, body io.Reader, contentType string) (string, error) {
	endpoint := strings.TrimRight(c.cfg.PublisherURL, "/") + "/v1/blobs?epochs=" + strconv.Itoa(max(c.cfg.Epochs, 1))

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, body)
	if err != nil {
		return "", fmt.Errorf("http.NewRequestWithContext: %w", err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.publisher.Do(req)
	if err != nil {
		return "", fmt.Errorf("publisher.Do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", upstreamError("publisher", resp.StatusCode)
	}

	var stored storeResponse
	if err = jsoniter.NewDecoder(io.LimitReader(resp.Body, maxUploadResponse)).Decode(&stored); err != nil {
		return "", fmt.Errorf("decode publisher response: %w", err)
	}

	switch {
	case stored.NewlyCreated != nil && stored.NewlyCreated.BlobObject.BlobID != "":
		return stored.NewlyCreated.BlobObject.BlobID, nil
	case stored.AlreadyCertified != nil && stored.AlreadyCertified.BlobID != "":
		return stored.AlreadyCertified.BlobID, nil
	default:
		return "", fmt.Errorf("publisher response has no blob id")
	}
}

func upstreamError(name string, status int) error {
	return domain.Unprocessable(errcodes.UpstreamError, fmt.Sprintf("%s responded with status %d", name, status))
}
