package governance

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rtavares/brickvault-backend/internal/domain"
)

// Service runs the token-weighted governance workflow: proposals over fully
// funded offerings, votes frozen to the voter's position at cast time, and
// reproducible result computation.
type Service struct {
	ledger domain.Ledger
	log    zerolog.Logger
}

// NewService creates a new governance Service.
func NewService(ledger domain.Ledger, log zerolog.Logger) *Service {
	return &Service{ledger: ledger, log: log}
}

// CreateProposalInput carries the fields of a new proposal.
type CreateProposalInput struct {
	OfferingID       uuid.UUID
	CreatedBy        uuid.UUID
	Title            string
	Description      string
	Type             domain.ProposalType
	Options          []string
	MinQuorumPercent float64
	StartAt          *time.Time
	EndAt            *time.Time
}

// CreateProposal opens a proposal on a fully funded offering. Only token
// holders of the offering may create one. Without a voting window the
// proposal is immediately active; with one, the status is derived from now.
func (s *Service) CreateProposal(ctx context.Context, input CreateProposalInput) (*domain.Proposal, error) {
	now := time.Now().UTC()

	proposal := &domain.Proposal{
		ID:               uuid.New(),
		OfferingID:       input.OfferingID,
		Title:            input.Title,
		Description:      input.Description,
		Type:             input.Type,
		Options:          input.Options,
		MinQuorumPercent: input.MinQuorumPercent,
		StartAt:          input.StartAt,
		EndAt:            input.EndAt,
		CreatedBy:        input.CreatedBy,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if proposal.Type == "" {
		proposal.Type = domain.ProposalTypeGeneral
	}
	if err := proposal.Validate(); err != nil {
		return nil, err
	}
	proposal.Status = proposal.StatusForWindow(now)

	err := s.ledger.InTx(ctx, func(tx domain.Tx) error {
		offering, err := tx.Offering(ctx, input.OfferingID)
		if err != nil {
			return err
		}
		if _, err := tx.Account(ctx, input.CreatedBy); err != nil {
			return err
		}

		position, err := tx.Position(ctx, input.CreatedBy, input.OfferingID)
		if domain.IsNotFound(err) || (err == nil && position.Tokens <= 0) {
			return domain.Conflictf("only token holders can create proposals for this offering")
		}
		if err != nil {
			return err
		}

		// Governance activates once the primary supply is gone.
		if !offering.FullyFunded() {
			return domain.Conflictf("offering must be fully funded before proposals can be created")
		}

		return tx.CreateProposal(ctx, proposal)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("proposal_id", proposal.ID.String()).
		Str("offering_id", input.OfferingID.String()).
		Str("status", string(proposal.Status)).
		Msg("proposal created")
	return proposal, nil
}

// CastVote records one vote, weighted by the voter's current position in the
// proposal's offering. The weight is frozen: transfers after the vote never
// change it. One vote per account per proposal.
func (s *Service) CastVote(ctx context.Context, proposalID, accountID uuid.UUID, optionIndex int) (*domain.Vote, error) {
	if optionIndex < 0 {
		return nil, domain.Invalidf("option index must not be negative, got %d", optionIndex)
	}

	var vote *domain.Vote
	err := s.ledger.InTx(ctx, func(tx domain.Tx) error {
		proposal, err := tx.ProposalForUpdate(ctx, proposalID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := proposal.VotableAt(now); err != nil {
			return err
		}

		if _, err := tx.Account(ctx, accountID); err != nil {
			return err
		}

		position, err := tx.Position(ctx, accountID, proposal.OfferingID)
		if domain.IsNotFound(err) || (err == nil && position.Tokens <= 0) {
			return domain.Conflictf("you must own tokens in this offering to vote")
		}
		if err != nil {
			return err
		}

		if optionIndex >= len(proposal.Options) {
			return domain.Invalidf("invalid option index %d, must be 0-%d", optionIndex, len(proposal.Options)-1)
		}

		// The unique constraint is the last line of defense; check first so
		// the common case gets a readable rejection.
		if _, err := tx.VoteByAccount(ctx, proposalID, accountID); err == nil {
			return domain.Conflictf("you have already voted on this proposal")
		} else if !domain.IsNotFound(err) {
			return err
		}

		vote = &domain.Vote{
			ID:           uuid.New(),
			ProposalID:   proposalID,
			AccountID:    accountID,
			OptionIndex:  optionIndex,
			WeightTokens: position.Tokens,
			CreatedAt:    now,
		}
		return tx.CreateVote(ctx, vote)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("proposal_id", proposalID.String()).
		Str("account_id", accountID.String()).
		Int64("weight", vote.WeightTokens).
		Msg("vote cast")
	return vote, nil
}

// OptionResult is one option's share of a tally.
type OptionResult struct {
	Option     string
	Votes      int64
	Percentage float64
}

// Result is a reproducible tally of a proposal.
type Result struct {
	ProposalID    uuid.UUID
	TotalTokens   int64
	VotesCast     int64
	QuorumReached bool
	Options       []OptionResult
	WinningOption string
	HasWinner     bool
	Status        domain.ProposalStatus
}

// Results tallies a proposal's votes.
func (s *Service) Results(ctx context.Context, proposalID uuid.UUID) (*Result, error) {
	var res *Result
	err := s.ledger.InTx(ctx, func(tx domain.Tx) error {
		var err error
		res, err = ResultsInTx(ctx, tx, proposalID)
		return err
	})
	return res, err
}

// ResultsInTx tallies a proposal inside an existing transaction scope, so
// callers that act on the outcome (rent claims) see a consistent snapshot.
func ResultsInTx(ctx context.Context, tx domain.Tx, proposalID uuid.UUID) (*Result, error) {
	proposal, err := tx.Proposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	offering, err := tx.Offering(ctx, proposal.OfferingID)
	if err != nil {
		return nil, err
	}
	votes, err := tx.VotesByProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	return Tally(proposal, votes, offering.TotalTokens), nil
}

// Tally computes the weighted result of a proposal. Ties resolve to the
// lowest option index at the maximum weight (a first-match scan); no winner
// is declared when no weight was cast. Percentages are weight over total
// cast weight, rounded to two decimals. Quorum compares cast weight against
// the offering's total supply, unrounded.
func Tally(proposal *domain.Proposal, votes []*domain.Vote, totalTokens int64) *Result {
	optionVotes := make([]int64, len(proposal.Options))
	var votesCast int64
	for _, v := range votes {
		optionVotes[v.OptionIndex] += v.WeightTokens
		votesCast += v.WeightTokens
	}

	res := &Result{
		ProposalID:  proposal.ID,
		TotalTokens: totalTokens,
		VotesCast:   votesCast,
		Status:      proposal.Status,
		Options:     make([]OptionResult, len(proposal.Options)),
	}

	for i, option := range proposal.Options {
		pct := 0.0
		if votesCast > 0 {
			pct = round2(float64(optionVotes[i]) / float64(votesCast) * 100)
		}
		res.Options[i] = OptionResult{Option: option, Votes: optionVotes[i], Percentage: pct}
	}

	if totalTokens > 0 {
		participation := float64(votesCast) / float64(totalTokens) * 100
		res.QuorumReached = participation >= proposal.MinQuorumPercent
	}

	var maxVotes int64
	for _, v := range optionVotes {
		if v > maxVotes {
			maxVotes = v
		}
	}
	if maxVotes > 0 {
		for i, v := range optionVotes {
			if v == maxVotes {
				res.WinningOption = proposal.Options[i]
				res.HasWinner = true
				break
			}
		}
	}
	return res
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Close marks an active or draft proposal closed. Closing a closed or
// approved proposal is rejected.
func (s *Service) Close(ctx context.Context, proposalID uuid.UUID) (*domain.Proposal, error) {
	var proposal *domain.Proposal
	err := s.ledger.InTx(ctx, func(tx domain.Tx) error {
		var err error
		proposal, err = tx.ProposalForUpdate(ctx, proposalID)
		if err != nil {
			return err
		}
		if proposal.Status == domain.ProposalStatusClosed || proposal.Status == domain.ProposalStatusApproved {
			return domain.Conflictf("proposal is already %s", proposal.Status)
		}
		proposal.Status = domain.ProposalStatusClosed
		proposal.UpdatedAt = time.Now().UTC()
		return tx.UpdateProposal(ctx, proposal)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("proposal_id", proposalID.String()).Msg("proposal closed")
	return proposal, nil
}

// Approve marks a closed rent-decision proposal approved, which makes its
// winning option the offering's authoritative monthly rent.
func (s *Service) Approve(ctx context.Context, proposalID uuid.UUID) (*domain.Proposal, error) {
	var proposal *domain.Proposal
	err := s.ledger.InTx(ctx, func(tx domain.Tx) error {
		var err error
		proposal, err = tx.ProposalForUpdate(ctx, proposalID)
		if err != nil {
			return err
		}
		if proposal.Status == domain.ProposalStatusApproved {
			return domain.Conflictf("proposal is already approved")
		}
		if proposal.Status != domain.ProposalStatusClosed {
			return domain.Conflictf("only closed proposals can be approved, status: %s", proposal.Status)
		}
		if !proposal.IsRentDecision() {
			return domain.Conflictf("only rent decision proposals can be approved")
		}
		proposal.Status = domain.ProposalStatusApproved
		proposal.UpdatedAt = time.Now().UTC()
		return tx.UpdateProposal(ctx, proposal)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("proposal_id", proposalID.String()).Msg("proposal approved")
	return proposal, nil
}

// Proposal fetches one proposal.
func (s *Service) Proposal(ctx context.Context, id uuid.UUID) (*domain.Proposal, error) {
	var out *domain.Proposal
	err := s.ledger.InTx(ctx, func(tx domain.Tx) error {
		var err error
		out, err = tx.Proposal(ctx, id)
		return err
	})
	return out, err
}

// Proposals lists proposals matching the filter, newest first.
func (s *Service) Proposals(ctx context.Context, filter domain.ProposalFilter) ([]*domain.Proposal, error) {
	var out []*domain.Proposal
	err := s.ledger.InTx(ctx, func(tx domain.Tx) error {
		var err error
		out, err = tx.Proposals(ctx, filter)
		return err
	})
	return out, err
}

// RentProposals lists rent-decision proposals, optionally by status.
func (s *Service) RentProposals(ctx context.Context, status domain.ProposalStatus) ([]*domain.Proposal, error) {
	return s.Proposals(ctx, domain.ProposalFilter{Type: domain.ProposalTypeRentDecision, Status: status})
}
