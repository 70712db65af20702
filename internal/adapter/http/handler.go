package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rtavares/brickvault-backend/internal/domain"
	"github.com/rtavares/brickvault-backend/internal/usecase/governance"
	"github.com/rtavares/brickvault-backend/internal/usecase/investment"
	"github.com/rtavares/brickvault-backend/internal/usecase/marketplace"
	"github.com/rtavares/brickvault-backend/internal/usecase/portfolio"
	"github.com/rtavares/brickvault-backend/internal/usecase/registry"
	"github.com/rtavares/brickvault-backend/internal/usecase/rent"
)

// Handler exposes the engines over HTTP.
type Handler struct {
	registry    *registry.Service
	investment  *investment.Service
	marketplace *marketplace.Service
	governance  *governance.Service
	rent        *rent.Service
	portfolio   *portfolio.Service
	log         zerolog.Logger
}

func NewHandler(
	registry *registry.Service,
	investment *investment.Service,
	marketplace *marketplace.Service,
	governance *governance.Service,
	rent *rent.Service,
	portfolio *portfolio.Service,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		registry:    registry,
		investment:  investment,
		marketplace: marketplace,
		governance:  governance,
		rent:        rent,
		portfolio:   portfolio,
		log:         log,
	}
}

// Router builds the route table.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.URLFormat)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/accounts", func(r chi.Router) {
		r.Post("/", h.createAccount)
		r.Get("/", h.listAccounts)
		r.Get("/{id}", h.getAccount)
		r.Post("/{id}/wallet", h.ensureWallet)
		r.Get("/{id}/portfolio", h.getPortfolio)
		r.Get("/{id}/investments", h.listAccountInvestments)
		r.Get("/{id}/purchases", h.listPurchases)
		r.Get("/{id}/sales", h.listSales)
		r.Get("/{id}/rent-claims", h.listRentClaims)
	})

	r.Route("/offerings", func(r chi.Router) {
		r.Post("/", h.createOffering)
		r.Get("/", h.listOfferings)
		r.Get("/{id}", h.getOffering)
		r.Post("/{id}/deploy", h.deployOffering)
		r.Post("/{id}/invest", h.invest)
		r.Get("/{id}/rent", h.rentStatus)
		r.Get("/{id}/rent/payout", h.rentPayout)
		r.Post("/{id}/rent/claim", h.claimRent)
	})

	r.Route("/listings", func(r chi.Router) {
		r.Post("/", h.createListing)
		r.Get("/", h.listListings)
		r.Get("/{id}", h.getListing)
		r.Post("/{id}/buy", h.buyListing)
		r.Post("/{id}/cancel", h.cancelListing)
	})

	r.Get("/marketplace/stats", h.marketplaceStats)

	r.Route("/proposals", func(r chi.Router) {
		r.Post("/", h.createProposal)
		r.Get("/", h.listProposals)
		r.Get("/{id}", h.getProposal)
		r.Get("/{id}/results", h.proposalResults)
		r.Post("/{id}/votes", h.castVote)
		r.Post("/{id}/close", h.closeProposal)
		r.Post("/{id}/approve", h.approveProposal)
	})

	return r
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// respondError maps the domain error taxonomy onto HTTP status codes.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case domain.IsInvalid(err):
		status = http.StatusBadRequest
	case domain.IsNotFound(err):
		status = http.StatusNotFound
	case domain.IsConflict(err):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("request failed")
	}
	respondJSON(w, status, map[string]string{"error": err.Error()})
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, domain.Invalidf("invalid id: %v", err)
	}
	return id, nil
}

func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.Invalidf("invalid request body: %v", err)
	}
	return nil
}
