package http

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/rtavares/brickvault-backend/internal/domain"
	"github.com/rtavares/brickvault-backend/internal/usecase/registry"
)

// POST /offerings
func (h *Handler) createOffering(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name                       string  `json:"name"`
		Description                string  `json:"description"`
		Location                   string  `json:"location"`
		PriceUSD                   int64   `json:"price_usd"`
		ExpectedAnnualYieldPercent float64 `json:"expected_annual_yield_percent"`
		ImageURL                   string  `json:"image_url"`
	}
	if err := decodeBody(r, &body); err != nil {
		h.respondError(w, err)
		return
	}

	offering, err := h.registry.CreateOffering(r.Context(), registry.CreateOfferingInput{
		Name:                       body.Name,
		Description:                body.Description,
		Location:                   body.Location,
		PriceUSD:                   body.PriceUSD,
		ExpectedAnnualYieldPercent: body.ExpectedAnnualYieldPercent,
		ImageURL:                   body.ImageURL,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toOfferingView(offering))
}

// GET /offerings?min_price=&max_price=&location=
func (h *Handler) listOfferings(w http.ResponseWriter, r *http.Request) {
	var filter domain.OfferingFilter
	query := r.URL.Query()
	if raw := query.Get("min_price"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.respondError(w, domain.Invalidf("invalid min_price: %v", err))
			return
		}
		filter.MinPriceUSD = &v
	}
	if raw := query.Get("max_price"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.respondError(w, domain.Invalidf("invalid max_price: %v", err))
			return
		}
		filter.MaxPriceUSD = &v
	}
	filter.Location = query.Get("location")

	offerings, err := h.registry.Offerings(r.Context(), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toOfferingViews(offerings))
}

// GET /offerings/{id}
func (h *Handler) getOffering(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	offering, err := h.registry.Offering(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toOfferingView(offering))
}

// POST /offerings/{id}/deploy
func (h *Handler) deployOffering(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	offering, err := h.registry.DeployOffering(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toOfferingView(offering))
}

// POST /offerings/{id}/invest
func (h *Handler) invest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	var body struct {
		AccountID uuid.UUID `json:"account_id"`
		Tokens    int64     `json:"tokens"`
	}
	if err := decodeBody(r, &body); err != nil {
		h.respondError(w, err)
		return
	}

	res, err := h.investment.Invest(r.Context(), body.AccountID, id, body.Tokens)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"investment":           toInvestmentViews([]*domain.InvestmentRecord{res.Investment})[0],
		"account_cash":         res.AccountCash,
		"offering_tokens_sold": res.OfferingTokensSold,
		"offering_status":      res.OfferingStatus,
		"position_tokens":      res.PositionTokens,
		"chain_tx_id":          res.ChainTxID,
		"chain_error":          res.ChainError,
	})
}
