package http

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rtavares/brickvault-backend/internal/domain"
)

// POST /listings
func (h *Handler) createListing(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SellerID      uuid.UUID       `json:"seller_id"`
		OfferingID    uuid.UUID       `json:"offering_id"`
		Tokens        int64           `json:"tokens"`
		PricePerToken decimal.Decimal `json:"price_per_token"`
	}
	if err := decodeBody(r, &body); err != nil {
		h.respondError(w, err)
		return
	}

	listing, err := h.marketplace.CreateListing(r.Context(), body.SellerID, body.OfferingID, body.Tokens, body.PricePerToken)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toListingView(listing))
}

// GET /listings?offering_id=&seller_id=&status=
func (h *Handler) listListings(w http.ResponseWriter, r *http.Request) {
	var filter domain.ListingFilter
	query := r.URL.Query()
	if raw := query.Get("offering_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.respondError(w, domain.Invalidf("invalid offering_id: %v", err))
			return
		}
		filter.OfferingID = &id
	}
	if raw := query.Get("seller_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.respondError(w, domain.Invalidf("invalid seller_id: %v", err))
			return
		}
		filter.SellerID = &id
	}
	filter.Status = domain.ListingStatus(query.Get("status"))

	listings, err := h.marketplace.Listings(r.Context(), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toListingViews(listings))
}

// GET /listings/{id}
func (h *Handler) getListing(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	listing, err := h.marketplace.Listing(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toListingView(listing))
}

// POST /listings/{id}/buy
func (h *Handler) buyListing(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	var body struct {
		BuyerID uuid.UUID `json:"buyer_id"`
		Tokens  int64     `json:"tokens"`
	}
	if err := decodeBody(r, &body); err != nil {
		h.respondError(w, err)
		return
	}

	res, err := h.marketplace.Buy(r.Context(), id, body.BuyerID, body.Tokens)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"trade":          toTradeViews([]*domain.TradeRecord{res.Trade})[0],
		"buyer_cash":     res.BuyerCash,
		"seller_cash":    res.SellerCash,
		"buyer_position": res.BuyerPosition,
		"listing_status": res.ListingStatus,
		"chain_tx_id":    res.ChainTxID,
		"chain_error":    res.ChainError,
	})
}

// POST /listings/{id}/cancel
func (h *Handler) cancelListing(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	var body struct {
		SellerID uuid.UUID `json:"seller_id"`
	}
	if err := decodeBody(r, &body); err != nil {
		h.respondError(w, err)
		return
	}

	listing, err := h.marketplace.Cancel(r.Context(), id, body.SellerID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toListingView(listing))
}

// GET /marketplace/stats
func (h *Handler) marketplaceStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.marketplace.Stats(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"active_listings":          stats.ActiveListings,
		"tokens_listed":            stats.TokensListed,
		"total_volume_usd":         stats.TotalVolumeUSD,
		"average_discount_percent": stats.AverageDiscountPercent,
	})
}
