package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"git.appkode.ru/pub/go/failure"

	"shirtdrop/internal/domain"
	"shirtdrop/internal/domain/value"
	"shirtdrop/internal/infrastructure/blob"
	"shirtdrop/internal/infrastructure/channel"
	"shirtdrop/pkg/errcodes"
	"shirtdrop/pkg/httpx/reply"
	"shirtdrop/pkg/httpx/req"
	"shirtdrop/pkg/logx"
	"shirtdrop/pkg/rest"
)

const (
	maxProofBody = 64 << 10
	maxBlobBody  = 10 << 20
)

type blobStore interface {
	Get(ctx context.Context, id string) (blob.Object, error)
	Put(ctx context.Context, body io.Reader, contentType string) (string, error)
}

type channelProxy interface {
	RequestTokens(ctx context.Context, address value.Address) (channel.Response, error)
	Prove(ctx context.Context, body []byte) (channel.Response, error)
}

// ProxyServer relays requests to blob storage, the channel faucet and the
// zkLogin prover.
type ProxyServer struct {
	blobStore    blobStore
	channelProxy channelProxy
}

func NewProxyServer(blobStore blobStore, channelProxy channelProxy) ProxyServer {
	return ProxyServer{
		blobStore:    blobStore,
		channelProxy: channelProxy,
	}
}

func (s ProxyServer) getV1Blob(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	id := r.PathValue("id")
	if err := blob.ValidateID(id); err != nil {
		return err
	}

	object, err := s.blobStore.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("blobStore.Get: %w", err)
	}
	defer object.Body.Close()

	w.Header().Set("Content-Type", object.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")

	if object.ContentLength > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(object.ContentLength, 10))
	}

	w.WriteHeader(http.StatusOK)

	if _, err = io.Copy(w, object.Body); err != nil {
		logger(ctx).Warn("blob stream interrupted", logx.Error(err), slog.String("blob-id", id))
	}

	return nil
}

func (s ProxyServer) putV1Blob(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	blobID, err := s.blobStore.Put(ctx, http.MaxBytesReader(w, r.Body, maxBlobBody), contentType)
	if err != nil {
		if maxErr := new(http.MaxBytesError); errors.As(err, &maxErr) {
			return domain.InvalidArgument(errcodes.ValidationError, "blob is too large")
		}

		return fmt.Errorf("blobStore.Put: %w", err)
	}

	reply.JSON(ctx, w, http.StatusCreated, rest.StoredBlob{BlobID: blobID})

	return nil
}

func (s ProxyServer) postV1Faucet(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	var request rest.FaucetRequest

	if err := req.Read(r, &request); err != nil {
		return fmt.Errorf("req.Read: %w", err)
	}

	address, err := value.ParseAddress(request.Address)
	if err != nil {
		return domain.InvalidArgument(errcodes.InvalidAddress, err.Error())
	}

	response, err := s.channelProxy.RequestTokens(ctx, address)
	if err != nil {
		return fmt.Errorf("channelProxy.RequestTokens: %w", err)
	}

	reply.RawJSON(ctx, w, response.Status, response.Body)

	return nil
}

func (s ProxyServer) postV1Proof(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxProofBody))
	if err != nil {
		return failure.NewInvalidArgumentError(
			fmt.Errorf("io.ReadAll: %w", err).Error(),
			failure.WithCode(errcodes.ValidationError),
			failure.WithDescription("proof request is too large"),
		)
	}

	response, err := s.channelProxy.Prove(ctx, body)
	if err != nil {
		return fmt.Errorf("channelProxy.Prove: %w", err)
	}

	reply.RawJSON(ctx, w, response.Status, response.Body)

	return nil
}
