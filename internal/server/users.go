package server

import (
	"context"
	"fmt"
	"net/http"

	"shirtdrop/internal/domain/entity"
	"shirtdrop/internal/domain/service/user"
	"shirtdrop/pkg/httpx/reply"
	"shirtdrop/pkg/httpx/req"
	"shirtdrop/pkg/rest"
)

type userService interface {
	SignIn(ctx context.Context, in user.SignInInput) (entity.Session, error)
	Get(ctx context.Context, rawAddress string) (entity.User, error)
}

type UserServer struct {
	userService userService
}

func NewUserServer(userService userService) UserServer {
	return UserServer{
		userService: userService,
	}
}

func (s UserServer) postV1SignIn(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	var request rest.SignInRequest

	if err := req.Read(r, &request); err != nil {
		return fmt.Errorf("req.Read: %w", err)
	}

	session, err := s.userService.SignIn(ctx, user.SignInInput{
		Address: request.Address,
		IDToken: request.IDToken,
	})
	if err != nil {
		return fmt.Errorf("userService.SignIn: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTSession(session))

	return nil
}

func (s UserServer) getV1User(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	u, err := s.userService.Get(ctx, r.PathValue("address"))
	if err != nil {
		return fmt.Errorf("userService.Get: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTUser(u))

	return nil
}

func (s UserServer) getV1Me(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	address, err := sessionAddress(r)
	if err != nil {
		return err
	}

	u, err := s.userService.Get(ctx, address.String())
	if err != nil {
		return fmt.Errorf("userService.Get: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTUser(u))

	return nil
}
