package user

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"shirtdrop/internal/domain"
	"shirtdrop/internal/domain/entity"
	"shirtdrop/internal/domain/value"
	"shirtdrop/pkg/errcodes"
)

const issuer = "shirtdrop"

type Repository interface {
	Upsert(ctx context.Context, user *entity.User) (entity.User, error)
	Get(ctx context.Context, address value.Address) (entity.User, error)
}

type IdentityVerifier interface {
	Verify(ctx context.Context, idToken string) (entity.Identity, error)
}

type SignInInput struct {
	Address string
	IDToken string
}

type Service struct {
	users    Repository
	verifier IdentityVerifier
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
}

func NewService(users Repository, verifier IdentityVerifier, secret string, ttl time.Duration) *Service {
	return &Service{
		users:    users,
		verifier: verifier,
		secret:   []byte(secret),
		ttl:      ttl,
		now:      time.Now,
	}
}

// SignIn verifies the social login id token and issues a session for the
// address derived from it. The first verified login that signs in with an
// address owns it; the store also keeps one address per login.
func (s *Service) SignIn(ctx context.Context, in SignInInput) (entity.Session, error) {
	address, err := value.ParseAddress(in.Address)
	if err != nil {
		return entity.Session{}, domain.InvalidArgument(errcodes.InvalidAddress, err.Error())
	}

	identity, err := s.verifier.Verify(ctx, in.IDToken)
	if err != nil {
		return entity.Session{}, fmt.Errorf("verifier.Verify: %w", err)
	}

	existing, err := s.users.Get(ctx, address)

	switch {
	case err == nil:
		if existing.Provider != identity.Provider || existing.Subject != identity.Subject {
			return entity.Session{}, domain.Unauthorized(errcodes.AddressBound, "address belongs to another login")
		}
	case domain.IsCode(err, errcodes.UserNotFound):
	default:
		return entity.Session{}, fmt.Errorf("users.Get: %w", err)
	}

	avatar := identity.Picture
	if u, err := url.Parse(avatar); err != nil || (u.Scheme != "https" && u.Scheme != "http") {
		avatar = ""
	}

	user, err := s.users.Upsert(ctx, &entity.User{
		Address:   address,
		Provider:  identity.Provider,
		Subject:   identity.Subject,
		Email:     strings.TrimSpace(identity.Email),
		Name:      strings.TrimSpace(identity.Name),
		AvatarURL: avatar,
	})
	if err != nil {
		return entity.Session{}, fmt.Errorf("users.Upsert: %w", err)
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   address.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}).SignedString(s.secret)
	if err != nil {
		return entity.Session{}, fmt.Errorf("token.SignedString: %w", err)
	}

	return entity.Session{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// Authenticate validates a session token and returns the address it was
// issued for.
func (s *Service) Authenticate(token string) (value.Address, error) {
	var claims jwt.RegisteredClaims

	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", domain.Unauthorized(errcodes.SessionTokenExpired, "session expired")
		}

		return "", domain.Unauthorized(errcodes.SessionTokenInvalid, "invalid session token")
	}

	address, err := value.ParseAddress(claims.Subject)
	if err != nil {
		return "", domain.Unauthorized(errcodes.SessionTokenInvalid, "invalid session subject")
	}

	return address, nil
}

func (s *Service) Get(ctx context.Context, rawAddress string) (entity.User, error) {
	address, err := value.ParseAddress(rawAddress)
	if err != nil {
		return entity.User{}, domain.InvalidArgument(errcodes.InvalidAddress, err.Error())
	}

	user, err := s.users.Get(ctx, address)
	if err != nil {
		return entity.User{}, fmt.Errorf("users.Get: %w", err)
	}

	return user, nil
}
