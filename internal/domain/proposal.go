package domain

import (
	"time"

	"github.com/google/uuid"
)

// ProposalStatus represents the governance lifecycle of a proposal.
// draft -> active -> closed -> approved; approval is restricted to closed
// rent-decision proposals.
type ProposalStatus string

const (
	ProposalStatusDraft    ProposalStatus = "draft"
	ProposalStatusActive   ProposalStatus = "active"
	ProposalStatusClosed   ProposalStatus = "closed"
	ProposalStatusApproved ProposalStatus = "approved"
)

// ProposalType tags the kind of decision a proposal carries. Rent decisions
// get an extra interpretation: the winning option of the most recently
// approved one is the offering's authoritative monthly rent.
type ProposalType string

const (
	ProposalTypeGeneral         ProposalType = "general"
	ProposalTypePropertyUpgrade ProposalType = "property_upgrade"
	ProposalTypeRentDecision    ProposalType = "rent_decision"
)

// Proposal represents a token-weighted governance question over one
// offering.
type Proposal struct {
	ID               uuid.UUID
	OfferingID       uuid.UUID
	Title            string
	Description      string
	Type             ProposalType
	Options          []string
	MinQuorumPercent float64
	Status           ProposalStatus

	// Optional voting window. Either both bounds are set or neither is.
	StartAt *time.Time
	EndAt   *time.Time

	CreatedBy uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate ensures the proposal adheres to domain rules.
func (p *Proposal) Validate() error {
	if p.Title == "" {
		return Invalidf("proposal title cannot be empty")
	}
	if len(p.Options) < 2 {
		return Invalidf("proposal must have at least 2 options")
	}
	if p.MinQuorumPercent < 0 || p.MinQuorumPercent > 100 {
		return Invalidf("quorum percent must be between 0 and 100")
	}
	if p.StartAt != nil && p.EndAt != nil && !p.StartAt.Before(*p.EndAt) {
		return Invalidf("start_at must be before end_at")
	}
	return nil
}

// StatusForWindow derives the proposal status from "now" relative to the
// voting window. Without a window the proposal is immediately votable.
func (p *Proposal) StatusForWindow(now time.Time) ProposalStatus {
	if p.StartAt == nil || p.EndAt == nil {
		return ProposalStatusActive
	}
	switch {
	case now.Before(*p.StartAt):
		return ProposalStatusDraft
	case now.Before(*p.EndAt):
		return ProposalStatusActive
	default:
		return ProposalStatusClosed
	}
}

// VotableAt reports whether a vote may be cast at the given instant.
func (p *Proposal) VotableAt(now time.Time) error {
	if p.Status != ProposalStatusActive {
		return Conflictf("proposal is %s, not active", p.Status)
	}
	if p.StartAt != nil && now.Before(*p.StartAt) {
		return Conflictf("voting has not started yet")
	}
	if p.EndAt != nil && now.After(*p.EndAt) {
		return Conflictf("voting has ended")
	}
	return nil
}

// IsRentDecision reports whether the rent interpretation applies.
func (p *Proposal) IsRentDecision() bool {
	return p.Type == ProposalTypeRentDecision
}

// Vote represents one account's vote on a proposal. The weight is a frozen
// snapshot of the voter's position when the vote was cast; later transfers
// never change it. One vote per (proposal, account).
type Vote struct {
	ID           uuid.UUID
	ProposalID   uuid.UUID
	AccountID    uuid.UUID
	OptionIndex  int
	WeightTokens int64
	CreatedAt    time.Time
}
