// Package oidc verifies OpenID Connect id tokens issued by the social login
// providers users sign in with.
package oidc

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	jsoniter "github.com/json-iterator/go"
	"github.com/patrickmn/go-cache"

	"shirtdrop/internal/domain"
	"shirtdrop/internal/domain/entity"
	"shirtdrop/pkg/contextx"
	"shirtdrop/pkg/errcodes"
	"shirtdrop/pkg/httpx"
	"shirtdrop/pkg/logx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

const (
	keyTTL          = time.Hour
	refreshInterval = time.Minute
	leeway          = 30 * time.Second
	maxJWKSSize     = 1 << 20
)

var errUnknownKey = errors.New("unknown signing key")

// Provider describes one login provider. A token is accepted when its issuer
// is one of Issuers and its audience contains one of Audiences.
type Provider struct {
	Name      string
	Issuers   []string
	JWKSURL   string
	Audiences []string
}

func Google(clientIDs []string) Provider {
	return Provider{
		Name:      "google",
		Issuers:   []string{"https://accounts.google.com", "accounts.google.com"},
		JWKSURL:   "https://www.googleapis.com/oauth2/v3/certs",
		Audiences: clientIDs,
	}
}

func Twitch(clientIDs []string) Provider {
	return Provider{
		Name:      "twitch",
		Issuers:   []string{"https://id.twitch.tv/oauth2"},
		JWKSURL:   "https://id.twitch.tv/oauth2/keys",
		Audiences: clientIDs,
	}
}

type idClaims struct {
	jwt.RegisteredClaims
	Email             string `json:"email"`
	Name              string `json:"name"`
	PreferredUsername string `json:"preferred_username"`
	Picture           string `json:"picture"`
}

type jwks struct {
	Keys []struct {
		Kty string `json:"kty"`
		Kid string `json:"kid"`
		N   string `json:"n"`
		E   string `json:"e"`
	} `json:"keys"`
}

// Verifier checks RS256 id tokens against the providers' published key sets.
// Keys are cached; an unknown key id triggers a refetch at most once per
// refresh interval.
type Verifier struct {
	providers []Provider
	client    *http.Client
	keys      *cache.Cache
	refreshed *cache.Cache
	now       func() time.Time
}

func NewVerifier(providers []Provider, opts ...httpx.Option) *Verifier {
	return &Verifier{
		providers: configured(providers),
		client:    httpx.NewClient("", opts...),
		keys:      cache.New(keyTTL, 2*keyTTL),
		refreshed: cache.New(refreshInterval, 2*refreshInterval),
		now:       time.Now,
	}
}

// configured drops providers without client ids; they accept nothing.
func configured(providers []Provider) []Provider {
	return slices.DeleteFunc(slices.Clone(providers), func(p Provider) bool {
		return len(p.Audiences) == 0
	})
}

// Verify returns the identity behind a valid id token. Any verification
// failure is reported as Unauthorized.
func (v *Verifier) Verify(ctx context.Context, idToken string) (entity.Identity, error) {
	var (
		claims   idClaims
		provider Provider
	)

	_, err := jwt.ParseWithClaims(idToken, &claims, func(token *jwt.Token) (any, error) {
		var ok bool

		provider, ok = v.provider(claims.Issuer)
		if !ok {
			return nil, fmt.Errorf("issuer %q is not accepted", claims.Issuer)
		}

		kid, _ := token.Header["kid"].(string)

		return v.key(ctx, provider, kid)
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(leeway),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		logger(ctx).Info("id token rejected", logx.Error(err))

		return entity.Identity{}, domain.Unauthorized(errcodes.IDTokenInvalid, "invalid id token")
	}

	if !slices.ContainsFunc(claims.Audience, func(aud string) bool {
		return slices.Contains(provider.Audiences, aud)
	}) {
		return entity.Identity{}, domain.Unauthorized(errcodes.IDTokenInvalid, "id token audience is not accepted")
	}

	if claims.Subject == "" {
		return entity.Identity{}, domain.Unauthorized(errcodes.IDTokenInvalid, "id token has no subject")
	}

	name := claims.Name
	if name == "" {
		name = claims.PreferredUsername
	}

	return entity.Identity{
		Provider: provider.Name,
		Issuer:   claims.Issuer,
		Subject:  claims.Subject,
		Email:    claims.Email,
		Name:     name,
		Picture:  claims.Picture,
	}, nil
}

func (v *Verifier) provider(issuer string) (Provider, bool) {
	for _, p := range v.providers {
		if slices.Contains(p.Issuers, issuer) {
			return p, true
		}
	}

	return Provider{}, false
}

func (v *Verifier) key(ctx context.Context, provider Provider, kid string) (*rsa.PublicKey, error) {
	cacheKey := provider.JWKSURL + "#" + kid

	if key, ok := v.keys.Get(cacheKey); ok {
		return key.(*rsa.PublicKey), nil //nolint:forcetypeassert
	}

	// Add fails while the previous refresh is still fresh.
	if err := v.refreshed.Add(provider.JWKSURL, struct{}{}, cache.DefaultExpiration); err != nil {
		return nil, errUnknownKey
	}

	if err := v.refresh(ctx, provider.JWKSURL); err != nil {
		v.refreshed.Delete(provider.JWKSURL)
		return nil, err
	}

	if key, ok := v.keys.Get(cacheKey); ok {
		return key.(*rsa.PublicKey), nil //nolint:forcetypeassert
	}

	return nil, errUnknownKey
}

func (v *Verifier) refresh(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("http.NewRequestWithContext: %w", err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("client.Do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("jwks responded with status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxJWKSSize))
	if err != nil {
		return fmt.Errorf("io.ReadAll: %w", err)
	}

	var set jwks
	if err = jsoniter.Unmarshal(raw, &set); err != nil {
		return fmt.Errorf("jsoniter.Unmarshal: %w", err)
	}

	for _, k := range set.Keys {
		if k.Kty != "RSA" {
			continue
		}

		key, err := rsaKey(k.N, k.E)
		if err != nil {
			logger(ctx).Warn("jwks key skipped", slog.String("kid", k.Kid), logx.Error(err))
			continue
		}

		v.keys.SetDefault(url+"#"+k.Kid, key)
	}

	return nil
}

func rsaKey(n, e string) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(n)
	if err != nil {
		return nil, fmt.Errorf("modulus: %w", err)
	}

	eb, err := base64.RawURLEncoding.DecodeString(e)
	if err != nil {
		return nil, fmt.Errorf("exponent: %w", err)
	}

	exponent := new(big.Int).SetBytes(eb)
	if !exponent.IsInt64() || exponent.Int64() < 3 || exponent.Int64() > 1<<31-1 {
		return nil, errors.New("exponent out of range")
	}

	return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: int(exponent.Int64())}, nil
}
