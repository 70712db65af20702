package http

import (
	"net/http"
)

// POST /accounts
func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		FullName string `json:"full_name"`
	}
	if err := decodeBody(r, &body); err != nil {
		h.respondError(w, err)
		return
	}

	account, err := h.registry.CreateAccount(r.Context(), body.Email, body.FullName)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toAccountView(account))
}

// GET /accounts
func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.registry.Accounts(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toAccountViews(accounts))
}

// GET /accounts/{id}
func (h *Handler) getAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	account, err := h.registry.Account(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toAccountView(account))
}

// POST /accounts/{id}/wallet
func (h *Handler) ensureWallet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	account, err := h.registry.EnsureWallet(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toAccountView(account))
}

// GET /accounts/{id}/portfolio
func (h *Handler) getPortfolio(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	summary, err := h.portfolio.Summary(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// GET /accounts/{id}/investments
func (h *Handler) listAccountInvestments(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	records, err := h.investment.Investments(r.Context(), &id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toInvestmentViews(records))
}

// GET /accounts/{id}/purchases
func (h *Handler) listPurchases(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	trades, err := h.marketplace.Purchases(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toTradeViews(trades))
}

// GET /accounts/{id}/sales
func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	trades, err := h.marketplace.Sales(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toTradeViews(trades))
}

// GET /accounts/{id}/rent-claims
func (h *Handler) listRentClaims(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	claims, err := h.rent.Claims(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toRentClaimViews(claims))
}
