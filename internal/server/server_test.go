package server_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"shirtdrop/internal/domain"
	"shirtdrop/internal/domain/entity"
	"shirtdrop/internal/domain/service/auction"
	"shirtdrop/internal/domain/service/drop"
	"shirtdrop/internal/domain/service/user"
	"shirtdrop/internal/domain/value"
	"shirtdrop/internal/infrastructure/blob"
	"shirtdrop/internal/infrastructure/channel"
	"shirtdrop/internal/server"
	"shirtdrop/pkg/errcodes"
	"shirtdrop/pkg/rest"
	"shirtdrop/pkg/tests"
)

var (
	adminAddress = value.Address("0x" + strings.Repeat("0", 62) + "ab")
	userAddress  = value.Address("0x" + strings.Repeat("0", 62) + "cd")
)

const validSession = "valid-session"

type claimStub struct {
	resolve func(raw string) (entity.ClaimTokenRecord, error)
	claim   func(shirtID uuid.UUID, recipient string) (entity.ClaimResult, error)
}

func (c *claimStub) ResolveToken(_ context.Context, raw string) (entity.ClaimTokenRecord, error) {
	return c.resolve(raw)
}

func (c *claimStub) GetShirt(_ context.Context, id uuid.UUID) (entity.ShirtView, error) {
	return entity.ShirtView{Shirt: entity.Shirt{ID: id, Minted: true}}, nil
}

func (c *claimStub) Claim(_ context.Context, shirtID uuid.UUID, recipient string) (entity.ClaimResult, error) {
	return c.claim(shirtID, recipient)
}

type auctionStub struct {
	placed auction.PlaceBidInput
}

func (a *auctionStub) PlaceBid(_ context.Context, in auction.PlaceBidInput) (entity.Bid, error) {
	a.placed = in

	return entity.Bid{
		DropID: in.DropID,
		Bidder: in.Session,
		Amount: decimal.RequireFromString(in.Amount),
		Status: value.BidStatusPending,
	}, nil
}

func (a *auctionStub) ListBids(context.Context, uuid.UUID) ([]entity.Bid, error) { return nil, nil }

func (a *auctionStub) GetBid(context.Context, uuid.UUID, string) (entity.Bid, error) {
	return entity.Bid{}, domain.NotFound(errcodes.BidNotFound, "bid not found")
}

func (a *auctionStub) Winners(context.Context, uuid.UUID) ([]entity.Bid, error) { return nil, nil }

func (a *auctionStub) Close(_ context.Context, dropID uuid.UUID, _ string) (entity.AuctionResult, error) {
	return entity.AuctionResult{DropID: dropID}, nil
}

type dropStub struct {
	mint       func(in drop.MintInput) (entity.MintResult, error)
	issued     []uuid.UUID
	backfilled drop.BackfillInput
}

func (d *dropStub) Create(_ context.Context, in drop.CreateInput) (entity.Drop, error) {
	return entity.Drop{ID: uuid.New(), Name: in.Name, TotalSupply: in.TotalSupply}, nil
}

func (d *dropStub) Update(_ context.Context, id uuid.UUID, _ drop.UpdateInput) (entity.Drop, error) {
	return entity.Drop{ID: id}, nil
}

func (d *dropStub) Get(_ context.Context, id uuid.UUID) (entity.Drop, error) {
	return entity.Drop{}, domain.NotFound(errcodes.DropNotFound, "drop not found: "+id.String())
}

func (d *dropStub) List(context.Context, int, int) ([]entity.Drop, error) {
	return []entity.Drop{{ID: uuid.New(), Name: "First"}}, nil
}

func (d *dropStub) Stats(_ context.Context, id uuid.UUID) (entity.DropStats, error) {
	return entity.DropStats{DropID: id}, nil
}

func (d *dropStub) Mint(_ context.Context, _ uuid.UUID, in drop.MintInput) (entity.MintResult, error) {
	return d.mint(in)
}

func (d *dropStub) ListShirts(context.Context, uuid.UUID, int, int) ([]entity.Shirt, error) {
	return nil, nil
}

func (d *dropStub) UpdateShirt(_ context.Context, id uuid.UUID, _ drop.UpdateShirtInput) (entity.Shirt, error) {
	return entity.Shirt{ID: id}, nil
}

func (d *dropStub) ListClaims(context.Context, uuid.UUID) ([]entity.Shirt, error) { return nil, nil }

func (d *dropStub) IssueClaimTokens(_ context.Context, _ uuid.UUID, shirtIDs []uuid.UUID) ([]entity.IssuedToken, error) {
	d.issued = shirtIDs
	return []entity.IssuedToken{}, nil
}

func (d *dropStub) ScheduleBackfill(_ context.Context, in drop.BackfillInput) error {
	d.backfilled = in
	return nil
}

type userStub struct{}

func (userStub) SignIn(_ context.Context, in user.SignInInput) (entity.Session, error) {
	return entity.Session{User: entity.User{Address: value.Address(in.Address)}, Token: "jwt"}, nil
}

func (userStub) Get(_ context.Context, raw string) (entity.User, error) {
	return entity.User{Address: value.Address(raw), Provider: "google"}, nil
}

func (userStub) Authenticate(token string) (value.Address, error) {
	if token != validSession {
		return "", domain.Unauthorized(errcodes.SessionTokenInvalid, "invalid session token")
	}

	return userAddress, nil
}

type blobStub struct{}

func (blobStub) Get(_ context.Context, id string) (blob.Object, error) {
	if id == "missing" {
		return blob.Object{}, domain.NotFound(errcodes.BlobNotFound, "blob not found")
	}

	return blob.Object{Body: io.NopCloser(strings.NewReader("png-bytes")), ContentType: "image/png", ContentLength: 9}, nil
}

func (blobStub) Put(_ context.Context, body io.Reader, _ string) (string, error) {
	if _, err := io.ReadAll(body); err != nil {
		return "", err
	}

	return "blob-1", nil
}

type channelStub struct{}

func (channelStub) RequestTokens(context.Context, value.Address) (channel.Response, error) {
	return channel.Response{Status: http.StatusOK, Body: []byte(`{"ok":true}`)}, nil
}

func (channelStub) Prove(_ context.Context, body []byte) (channel.Response, error) {
	return channel.Response{Status: http.StatusBadRequest, Body: body}, nil
}

type limiterStub struct {
	count int64
}

func (l *limiterStub) Incr(context.Context, string, time.Duration) (int64, time.Duration, error) {
	l.count++
	return l.count, time.Minute, nil
}

type fixture struct {
	api      tests.APIClient
	url      string
	claims   *claimStub
	auctions *auctionStub
	drops    *dropStub
}

func newFixture(t *testing.T, configure ...func(*server.Config)) fixture {
	t.Helper()

	claims := &claimStub{
		resolve: func(raw string) (entity.ClaimTokenRecord, error) {
			if raw != "AbCd1234" {
				return entity.ClaimTokenRecord{}, domain.NotFound(errcodes.ClaimTokenNotFound, "claim token not found")
			}

			return entity.ClaimTokenRecord{Token: value.ClaimToken(raw), ShirtID: uuid.MustParse("11111111-1111-1111-1111-111111111111")}, nil
		},
	}
	auctions := &auctionStub{}
	drops := &dropStub{}
	users := userStub{}

	cfg := server.Config{
		Version:      "test",
		AdminAddress: adminAddress,
		FrontendURL:  "https://shirts.example/",
		ClaimLimit:   2,
		FaucetLimit:  1,
		LimitWindow:  time.Minute,
	}

	for _, c := range configure {
		c(&cfg)
	}

	srv := server.NewServer(
		cfg,
		&limiterStub{},
		users,
		server.NewClaimServer(claims, "https://shirts.example/"),
		server.NewDropServer(drops, auctions),
		server.NewUserServer(users),
		server.NewProxyServer(blobStub{}, channelStub{}),
		server.NewAdminServer(drops, auctions),
	)

	router := chi.NewRouter()
	srv.RegisterRoutes(router)

	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)

	return fixture{
		api:      tests.NewAPIClient(ts.URL, ts.Client()),
		url:      ts.URL,
		claims:   claims,
		auctions: auctions,
		drops:    drops,
	}
}

func adminHeaders() http.Header {
	return http.Header{"X-Admin-Address": []string{"0xAB"}}
}

func TestHealth(t *testing.T) {
	rq := require.New(t)
	f := newFixture(t)

	var health rest.Health

	resp, err := f.api.Get(context.Background(), "/api/health", nil, &health, nil)
	rq.NoError(err)
	rq.Equal(http.StatusOK, resp.StatusCode)
	rq.Equal("test", health.Version)
}

func TestClaimRedirect(t *testing.T) {
	rq := require.New(t)
	f := newFixture(t)

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}

	resp, err := client.Get(f.url + "/c/AbCd1234")
	rq.NoError(err)
	defer resp.Body.Close()

	rq.Equal(http.StatusFound, resp.StatusCode)
	rq.Equal("https://shirts.example/claim/11111111-1111-1111-1111-111111111111", resp.Header.Get("Location"))

	var apiErr rest.Error

	resp, err = f.api.Get(context.Background(), "/c/unknown1", nil, nil, &apiErr)
	rq.NoError(err)
	rq.Equal(http.StatusNotFound, resp.StatusCode)
	rq.Equal(rest.ErrorCode(errcodes.ClaimTokenNotFound), apiErr.Code)
	rq.NotEmpty(apiErr.SupportID)
}

func TestClaim(t *testing.T) {
	shirtID := uuid.New()

	testCases := []struct {
		name        string
		request     rest.ClaimRequest
		claim       func(uuid.UUID, string) (entity.ClaimResult, error)
		statusCode  int
		wantCode    string
		wantWarning bool
	}{
		{
			name:    "Transferred",
			request: rest.ClaimRequest{ShirtID: shirtID.String(), Recipient: userAddress.String()},
			claim: func(id uuid.UUID, _ string) (entity.ClaimResult, error) {
				return entity.ClaimResult{ShirtID: id, Recipient: userAddress, Digest: "D1"}, nil
			},
			statusCode: http.StatusOK,
		},
		{
			name:    "Transferred but not recorded",
			request: rest.ClaimRequest{ShirtID: shirtID.String(), Recipient: userAddress.String()},
			claim: func(id uuid.UUID, _ string) (entity.ClaimResult, error) {
				return entity.ClaimResult{ShirtID: id, Digest: "D1"}, errors.New("db down")
			},
			statusCode:  http.StatusOK,
			wantWarning: true,
		},
		{
			name:    "Already claimed",
			request: rest.ClaimRequest{ShirtID: shirtID.String(), Recipient: userAddress.String()},
			claim: func(uuid.UUID, string) (entity.ClaimResult, error) {
				return entity.ClaimResult{}, domain.Conflict(errcodes.ShirtAlreadyClaimed, "shirt already claimed")
			},
			statusCode: http.StatusConflict,
			wantCode:   string(errcodes.ShirtAlreadyClaimed),
		},
		{
			name:       "Missing recipient",
			request:    rest.ClaimRequest{ShirtID: shirtID.String()},
			statusCode: http.StatusBadRequest,
			wantCode:   string(errcodes.ValidationError),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rq := require.New(t)
			f := newFixture(t)
			f.claims.claim = tc.claim

			var (
				result rest.ClaimResult
				apiErr rest.Error
			)

			resp, err := f.api.Post(context.Background(), "/api/claim", nil, tc.request, &result, &apiErr)
			rq.NoError(err)
			rq.Equal(tc.statusCode, resp.StatusCode)
			rq.Equal(tc.wantCode, string(apiErr.Code))

			if tc.statusCode == http.StatusOK {
				rq.Equal("D1", result.Digest)
				rq.Equal(tc.wantWarning, result.Warning != "")
			}
		})
	}
}

func TestClaimRateLimited(t *testing.T) {
	rq := require.New(t)
	f := newFixture(t)
	f.claims.claim = func(id uuid.UUID, _ string) (entity.ClaimResult, error) {
		return entity.ClaimResult{ShirtID: id, Digest: "D1"}, nil
	}

	request := rest.ClaimRequest{ShirtID: uuid.NewString(), Recipient: userAddress.String()}

	for range 2 {
		resp, err := f.api.Post(context.Background(), "/api/claim", nil, request, nil, nil)
		rq.NoError(err)
		rq.Equal(http.StatusOK, resp.StatusCode)
	}

	var apiErr rest.Error

	resp, err := f.api.Post(context.Background(), "/api/claim", nil, request, nil, &apiErr)
	rq.NoError(err)
	rq.Equal(http.StatusTooManyRequests, resp.StatusCode)
	rq.Equal(rest.ErrorCode(errcodes.TooManyRequests), apiErr.Code)
	rq.NotEmpty(resp.Header.Get("Retry-After"))
}

func TestShirtInvalidID(t *testing.T) {
	rq := require.New(t)
	f := newFixture(t)

	var apiErr rest.Error

	resp, err := f.api.Get(context.Background(), "/api/shirts/not-a-uuid", nil, nil, &apiErr)
	rq.NoError(err)
	rq.Equal(http.StatusBadRequest, resp.StatusCode)
	rq.Equal(rest.ErrorCode(errcodes.InvalidShirtID), apiErr.Code)
}

func TestPlaceBidSession(t *testing.T) {
	testCases := []struct {
		name       string
		token      string
		statusCode int
		wantCode   string
	}{
		{name: "No session", statusCode: http.StatusUnauthorized, wantCode: string(errcodes.SessionTokenInvalid)},
		{name: "Bad session", token: "forged", statusCode: http.StatusUnauthorized, wantCode: string(errcodes.SessionTokenInvalid)},
		{name: "Valid session", token: validSession, statusCode: http.StatusOK},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rq := require.New(t)
			f := newFixture(t)

			headers := http.Header{}
			if tc.token != "" {
				headers.Set("Authorization", "Bearer "+tc.token)
			}

			var (
				bid    rest.Bid
				apiErr rest.Error
			)

			dropID := uuid.New()

			resp, err := f.api.Post(context.Background(), "/api/drops/"+dropID.String()+"/bids", headers,
				rest.PlaceBidRequest{Amount: "1.5", ChannelSession: "app-1"}, &bid, &apiErr)
			rq.NoError(err)
			rq.Equal(tc.statusCode, resp.StatusCode)
			rq.Equal(tc.wantCode, string(apiErr.Code))

			if tc.statusCode == http.StatusOK {
				rq.Equal(userAddress, f.auctions.placed.Session)
				rq.Equal(dropID, f.auctions.placed.DropID)
				rq.Equal("1.5", bid.Amount)
			}
		})
	}
}

func TestAdminGuard(t *testing.T) {
	testCases := []struct {
		name       string
		headers    http.Header
		statusCode int
	}{
		{name: "Missing header", statusCode: http.StatusForbidden},
		{name: "Other address", headers: http.Header{"X-Admin-Address": []string{userAddress.String()}}, statusCode: http.StatusForbidden},
		{name: "Garbage", headers: http.Header{"X-Admin-Address": []string{"admin"}}, statusCode: http.StatusForbidden},
		{name: "Short form of the operator address", headers: adminHeaders(), statusCode: http.StatusOK},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rq := require.New(t)
			f := newFixture(t)

			var apiErr rest.Error

			resp, err := f.api.Get(context.Background(), "/api/admin/drops", tc.headers, nil, &apiErr)
			rq.NoError(err)
			rq.Equal(tc.statusCode, resp.StatusCode)

			if tc.statusCode == http.StatusForbidden {
				rq.Equal(rest.ErrorCode(errcodes.AdminAddressInvalid), apiErr.Code)
			}
		})
	}
}

func TestAdminMint(t *testing.T) {
	testCases := []struct {
		name       string
		mint       func(drop.MintInput) (entity.MintResult, error)
		statusCode int
		wantMinted int
		wantError  bool
	}{
		{
			name: "All batches",
			mint: func(in drop.MintInput) (entity.MintResult, error) {
				return entity.MintResult{Requested: in.Count, Minted: in.Count, Batches: 2}, nil
			},
			statusCode: http.StatusOK,
			wantMinted: 60,
		},
		{
			name: "Second batch failed",
			mint: func(in drop.MintInput) (entity.MintResult, error) {
				return entity.MintResult{Requested: in.Count, Minted: 50, Batches: 1, Error: "batch 2 failed"},
					errors.New("batch 2 failed")
			},
			statusCode: http.StatusOK,
			wantMinted: 50,
			wantError:  true,
		},
		{
			name: "Supply exhausted",
			mint: func(drop.MintInput) (entity.MintResult, error) {
				return entity.MintResult{}, domain.Unprocessable(errcodes.SupplyExhausted, "only 10 shirts left")
			},
			statusCode: http.StatusUnprocessableEntity,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rq := require.New(t)
			f := newFixture(t)
			f.drops.mint = tc.mint

			var result rest.MintResult

			resp, err := f.api.Post(context.Background(), "/api/admin/drops/"+uuid.NewString()+"/mint", adminHeaders(),
				rest.MintRequest{Count: 60, Attributes: rest.ShirtAttributes{Size: "M"}}, &result, nil)
			rq.NoError(err)
			rq.Equal(tc.statusCode, resp.StatusCode)
			rq.Equal(tc.wantMinted, result.Minted)
			rq.Equal(tc.wantError, result.Error != "")
		})
	}
}

func TestAdminClaimTokens(t *testing.T) {
	rq := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	endpoint := "/api/admin/drops/" + uuid.NewString() + "/claim-tokens"

	resp, err := f.api.MultiForm(ctx, endpoint, adminHeaders(), http.NoBody, nil, nil)
	rq.NoError(err)
	rq.Equal(http.StatusOK, resp.StatusCode)
	rq.Empty(f.drops.issued)

	shirtID := uuid.New()

	resp, err = f.api.Post(ctx, endpoint, adminHeaders(), rest.IssueTokensRequest{ShirtIDs: []string{shirtID.String()}}, nil, nil)
	rq.NoError(err)
	rq.Equal(http.StatusOK, resp.StatusCode)
	rq.Equal([]uuid.UUID{shirtID}, f.drops.issued)

	var apiErr rest.Error

	resp, err = f.api.Post(ctx, endpoint, adminHeaders(), rest.IssueTokensRequest{ShirtIDs: []string{"nope"}}, nil, &apiErr)
	rq.NoError(err)
	rq.Equal(http.StatusBadRequest, resp.StatusCode)
}

func TestAdminBackfill(t *testing.T) {
	rq := require.New(t)
	f := newFixture(t)

	dropID := uuid.New()

	var accepted rest.Accepted

	resp, err := f.api.Post(context.Background(), "/api/admin/backfill", adminHeaders(),
		rest.BackfillRequest{DropID: dropID.String(), Digests: []string{"D1", "D2"}}, &accepted, nil)
	rq.NoError(err)
	rq.Equal(http.StatusAccepted, resp.StatusCode)
	rq.Equal("queued", accepted.Status)
	rq.Equal(drop.BackfillInput{DropID: dropID, Digests: []string{"D1", "D2"}}, f.drops.backfilled)
}

func TestBlobProxy(t *testing.T) {
	rq := require.New(t)
	f := newFixture(t)

	resp, err := http.Get(f.url + "/api/blobs/blob_1")
	rq.NoError(err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	rq.NoError(err)
	rq.Equal(http.StatusOK, resp.StatusCode)
	rq.Equal("image/png", resp.Header.Get("Content-Type"))
	rq.Equal("png-bytes", string(body))

	var apiErr rest.Error

	resp, err = f.api.Get(context.Background(), "/api/blobs/missing", nil, nil, &apiErr)
	rq.NoError(err)
	rq.Equal(http.StatusNotFound, resp.StatusCode)
	rq.Equal(rest.ErrorCode(errcodes.BlobNotFound), apiErr.Code)

	var stored rest.StoredBlob

	resp, err = f.api.Put(context.Background(), "/api/admin/blobs", adminHeaders(), map[string]string{"a": "b"}, &stored, nil)
	rq.NoError(err)
	rq.Equal(http.StatusCreated, resp.StatusCode)
	rq.Equal("blob-1", stored.BlobID)
}

func TestChannelProxies(t *testing.T) {
	rq := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	var body map[string]any

	resp, err := f.api.Post(ctx, "/api/faucet", nil, rest.FaucetRequest{Address: "0x1"}, &body, nil)
	rq.NoError(err)
	rq.Equal(http.StatusOK, resp.StatusCode)
	rq.Equal(true, body["ok"])

	resp, err = f.api.Post(ctx, "/api/faucet", nil, rest.FaucetRequest{Address: "0x1"}, nil, nil)
	rq.NoError(err)
	rq.Equal(http.StatusTooManyRequests, resp.StatusCode)

	var upstream map[string]any

	resp, err = f.api.PostJSON(ctx, "/api/zk/proof", nil, `{"jwt":"x"}`, nil, &upstream)
	rq.NoError(err)
	rq.Equal(http.StatusBadRequest, resp.StatusCode)
	rq.Equal("x", upstream["jwt"])
}

func TestSignInRequiresIDToken(t *testing.T) {
	testCases := []struct {
		name       string
		body       string
		statusCode int
	}{
		{name: "Profile only", body: `{"address":"0xa1","provider":"google","subject":"1"}`, statusCode: http.StatusBadRequest},
		{name: "With id token", body: `{"address":"0xa1","idToken":"header.payload.signature"}`, statusCode: http.StatusOK},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rq := require.New(t)
			f := newFixture(t)

			var (
				session rest.Session
				apiErr  rest.Error
			)

			resp, err := f.api.PostJSON(context.Background(), "/api/users/sign-in", nil, tc.body, &session, &apiErr)
			rq.NoError(err)
			rq.Equal(tc.statusCode, resp.StatusCode)

			if tc.statusCode != http.StatusOK {
				rq.Equal(rest.ErrorCode(errcodes.ValidationError), apiErr.Code)
				return
			}

			rq.Equal("jwt", session.Token)
		})
	}
}

func TestCORS(t *testing.T) {
	testCases := []struct {
		name        string
		origins     []string
		method      string
		origin      string
		preflight   bool
		allowOrigin string
	}{
		{name: "Disabled", method: http.MethodGet, origin: "https://app.example"},
		{
			name: "Allowed origin", origins: []string{"https://app.example"}, method: http.MethodGet,
			origin: "https://app.example", allowOrigin: "https://app.example",
		},
		{name: "Other origin", origins: []string{"https://app.example"}, method: http.MethodGet, origin: "https://evil.example"},
		{name: "Wildcard", origins: []string{"*"}, method: http.MethodGet, origin: "https://any.example", allowOrigin: "*"},
		{
			name: "Preflight", origins: []string{"https://app.example"}, method: http.MethodOptions, preflight: true,
			origin: "https://app.example", allowOrigin: "https://app.example",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rq := require.New(t)
			f := newFixture(t, func(cfg *server.Config) {
				cfg.CORSOrigins = tc.origins
			})

			req, err := http.NewRequestWithContext(context.Background(), tc.method, f.url+"/api/health", http.NoBody)
			rq.NoError(err)
			req.Header.Set("Origin", tc.origin)

			if tc.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
				req.Header.Set("Access-Control-Request-Headers", "Authorization")
			}

			resp, err := http.DefaultClient.Do(req)
			rq.NoError(err)
			defer resp.Body.Close()

			rq.Less(resp.StatusCode, http.StatusMultipleChoices)
			rq.Equal(tc.allowOrigin, resp.Header.Get("Access-Control-Allow-Origin"))

			if tc.preflight {
				rq.Contains(resp.Header.Get("Access-Control-Allow-Methods"), http.MethodPost)
			}
		})
	}
}
