package http

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/rtavares/brickvault-backend/internal/domain"
)

// GET /offerings/{id}/rent
func (h *Handler) rentStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	status, err := h.rent.Status(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}

	out := map[string]any{
		"offering_id":  id,
		"is_rented":    status.IsRented,
		"monthly_rent": status.MonthlyRent,
	}
	if status.IsRented {
		out["proposal_id"] = status.ProposalID
		out["proposal_title"] = status.ProposalTitle
		out["approved_at"] = status.ApprovedAt
	}
	respondJSON(w, http.StatusOK, out)
}

// GET /offerings/{id}/rent/payout?account_id=
func (h *Handler) rentPayout(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	accountID, err := uuid.Parse(r.URL.Query().Get("account_id"))
	if err != nil {
		h.respondError(w, domain.Invalidf("invalid account_id: %v", err))
		return
	}

	payout, err := h.rent.Payout(r.Context(), id, accountID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"offering_id":       id,
		"account_id":        accountID,
		"has_tokens":        payout.HasTokens,
		"is_rented":         payout.IsRented,
		"monthly_rent":      payout.MonthlyRent,
		"tokens_owned":      payout.TokensOwned,
		"total_tokens":      payout.TotalTokens,
		"ownership_percent": payout.OwnershipPercent,
		"monthly_payout":    payout.MonthlyPayout,
	})
}

// POST /offerings/{id}/rent/claim
func (h *Handler) claimRent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	var body struct {
		AccountID uuid.UUID `json:"account_id"`
	}
	if err := decodeBody(r, &body); err != nil {
		h.respondError(w, err)
		return
	}

	res, err := h.rent.Claim(r.Context(), id, body.AccountID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"claim":       toRentClaimView(res.Claim),
		"new_balance": res.NewBalance,
	})
}
