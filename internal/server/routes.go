package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"shirtdrop/pkg/httpx/reply"
	"shirtdrop/pkg/middlewarex"
	"shirtdrop/pkg/rest"
)

func (s Server) RegisterRoutes(r chi.Router) { //nolint:funlen
	r.Use(allowOrigins(s.cfg.CORSOrigins))

	claimLimit := middlewarex.RateLimit(s.limiter, "claim", s.cfg.ClaimLimit, s.cfg.LimitWindow)
	faucetLimit := middlewarex.RateLimit(s.limiter, "faucet", s.cfg.FaucetLimit, s.cfg.LimitWindow)

	r.Get("/c/{token}", handler(s.getClaimRedirect))

	r.Route("/api", func(r chi.Router) {
		// unauthorized zone
		r.Get("/health", handler(s.getHealth))
		r.Get("/claim-tokens/{token}", handler(s.getV1ClaimToken))
		r.Get("/shirts/{id}", handler(s.getV1Shirt))
		r.With(claimLimit).Post("/claim", handler(s.postV1Claim))

		r.Route("/drops", func(r chi.Router) {
			r.Get("/", handler(s.getV1Drops))
			r.Get("/{id}", handler(s.getV1Drop))
			r.Get("/{id}/bids", handler(s.getV1Bids))
			r.Get("/{id}/bids/{address}", handler(s.getV1Bid))
			r.Get("/{id}/winners", handler(s.getV1Winners))
			r.With(session(s.auth)).Post("/{id}/bids", handler(s.postV1Bid))
		})

		r.Post("/users/sign-in", handler(s.postV1SignIn))
		r.Get("/users/{address}", handler(s.getV1User))
		r.With(session(s.auth)).Get("/me", handler(s.getV1Me))

		r.Post("/zk/proof", handler(s.postV1Proof))
		r.Get("/blobs/{id}", handler(s.getV1Blob))
		r.With(faucetLimit).Post("/faucet", handler(s.postV1Faucet))

		// operator zone
		r.Route("/admin", func(r chi.Router) {
			r.Use(adminOnly(s.cfg.AdminAddress))

			r.Route("/drops", func(r chi.Router) {
				r.Post("/", handler(s.postAdminDrop))
				r.Get("/", handler(s.getAdminDrops))
				r.Get("/{id}", handler(s.getAdminDrop))
				r.Patch("/{id}", handler(s.patchAdminDrop))
				r.Post("/{id}/mint", handler(s.postAdminMint))
				r.Get("/{id}/shirts", handler(s.getAdminShirts))
				r.Get("/{id}/claims", handler(s.getAdminClaims))
				r.Get("/{id}/stats", handler(s.getAdminStats))
				r.Post("/{id}/claim-tokens", handler(s.postAdminClaimTokens))
				r.Post("/{id}/auction/close", handler(s.postAdminAuctionClose))
			})

			r.Patch("/shirts/{id}", handler(s.patchAdminShirt))
			r.Put("/blobs", handler(s.putV1Blob))
			r.Post("/backfill", handler(s.postAdminBackfill))
		})
	})
}

func (s Server) getHealth(w http.ResponseWriter, r *http.Request) error {
	reply.JSON(r.Context(), w, http.StatusOK, rest.Health{Status: "ok", Version: s.cfg.Version})

	return nil
}

func handler(f func(http.ResponseWriter, *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := f(w, r); err != nil {
			reply.Error(r.Context(), w, err)
		}
	}
}
