package http

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/rtavares/brickvault-backend/internal/domain"
	"github.com/rtavares/brickvault-backend/internal/usecase/governance"
)

// POST /proposals
func (h *Handler) createProposal(w http.ResponseWriter, r *http.Request) {
	var body struct {
		OfferingID       uuid.UUID  `json:"offering_id"`
		CreatedBy        uuid.UUID  `json:"created_by"`
		Title            string     `json:"title"`
		Description      string     `json:"description"`
		Type             string     `json:"type"`
		Options          []string   `json:"options"`
		MinQuorumPercent float64    `json:"min_quorum_percent"`
		StartAt          *time.Time `json:"start_at"`
		EndAt            *time.Time `json:"end_at"`
	}
	if err := decodeBody(r, &body); err != nil {
		h.respondError(w, err)
		return
	}

	proposal, err := h.governance.CreateProposal(r.Context(), governance.CreateProposalInput{
		OfferingID:       body.OfferingID,
		CreatedBy:        body.CreatedBy,
		Title:            body.Title,
		Description:      body.Description,
		Type:             domain.ProposalType(body.Type),
		Options:          body.Options,
		MinQuorumPercent: body.MinQuorumPercent,
		StartAt:          body.StartAt,
		EndAt:            body.EndAt,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toProposalView(proposal))
}

// GET /proposals?offering_id=&created_by=&status=&type=
func (h *Handler) listProposals(w http.ResponseWriter, r *http.Request) {
	var filter domain.ProposalFilter
	query := r.URL.Query()
	if raw := query.Get("offering_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.respondError(w, domain.Invalidf("invalid offering_id: %v", err))
			return
		}
		filter.OfferingID = &id
	}
	if raw := query.Get("created_by"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.respondError(w, domain.Invalidf("invalid created_by: %v", err))
			return
		}
		filter.CreatedBy = &id
	}
	filter.Status = domain.ProposalStatus(query.Get("status"))
	filter.Type = domain.ProposalType(query.Get("type"))

	proposals, err := h.governance.Proposals(r.Context(), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toProposalViews(proposals))
}

// GET /proposals/{id}
func (h *Handler) getProposal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	proposal, err := h.governance.Proposal(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toProposalView(proposal))
}

// GET /proposals/{id}/results
func (h *Handler) proposalResults(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	res, err := h.governance.Results(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}

	options := make([]map[string]any, len(res.Options))
	for i, opt := range res.Options {
		options[i] = map[string]any{
			"option":     opt.Option,
			"votes":      opt.Votes,
			"percentage": opt.Percentage,
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"proposal_id":    res.ProposalID,
		"total_tokens":   res.TotalTokens,
		"votes_cast":     res.VotesCast,
		"quorum_reached": res.QuorumReached,
		"options":        options,
		"winning_option": res.WinningOption,
		"has_winner":     res.HasWinner,
		"status":         res.Status,
	})
}

// POST /proposals/{id}/votes
func (h *Handler) castVote(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	var body struct {
		AccountID   uuid.UUID `json:"account_id"`
		OptionIndex int       `json:"option_index"`
	}
	if err := decodeBody(r, &body); err != nil {
		h.respondError(w, err)
		return
	}

	vote, err := h.governance.CastVote(r.Context(), id, body.AccountID, body.OptionIndex)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"id":            vote.ID,
		"proposal_id":   vote.ProposalID,
		"account_id":    vote.AccountID,
		"option_index":  vote.OptionIndex,
		"weight_tokens": vote.WeightTokens,
		"created_at":    vote.CreatedAt,
	})
}

// POST /proposals/{id}/close
func (h *Handler) closeProposal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	proposal, err := h.governance.Close(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toProposalView(proposal))
}

// POST /proposals/{id}/approve
func (h *Handler) approveProposal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	proposal, err := h.governance.Approve(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toProposalView(proposal))
}
