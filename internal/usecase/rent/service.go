package rent

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/rtavares/brickvault-backend/internal/domain"
	"github.com/rtavares/brickvault-backend/internal/usecase/governance"
)

// Service distributes rental income pro rata to token holders. The monthly
// rent figure is an interpretation of governance state: the winning option
// of the most recently approved rent-decision proposal. Claims are
// idempotent per (account, offering, calendar month), with a frozen snapshot
// of tokens and rent at claim time.
type Service struct {
	ledger domain.Ledger
	log    zerolog.Logger
}

// NewService creates a new rent distribution Service.
func NewService(ledger domain.Ledger, log zerolog.Logger) *Service {
	return &Service{ledger: ledger, log: log}
}

// Status describes whether an offering currently pays rent.
type Status struct {
	IsRented      bool
	MonthlyRent   decimal.Decimal
	ProposalID    uuid.UUID
	ProposalTitle string
	ApprovedAt    time.Time
}

// Status reports the offering's rental state.
func (s *Service) Status(ctx context.Context, offeringID uuid.UUID) (*Status, error) {
	var status *Status
	err := s.ledger.InTx(ctx, func(tx domain.Tx) error {
		var err error
		status, err = s.statusInTx(ctx, tx, offeringID)
		return err
	})
	return status, err
}

// statusInTx resolves the approved rent inside an existing scope so claim
// settlement reads a consistent snapshot.
func (s *Service) statusInTx(ctx context.Context, tx domain.Tx, offeringID uuid.UUID) (*Status, error) {
	if _, err := tx.Offering(ctx, offeringID); err != nil {
		return nil, err
	}

	proposal, err := tx.LatestApprovedRentProposal(ctx, offeringID)
	if domain.IsNotFound(err) {
		return &Status{IsRented: false, MonthlyRent: decimal.Zero}, nil
	}
	if err != nil {
		return nil, err
	}

	result, err := governance.ResultsInTx(ctx, tx, proposal.ID)
	if err != nil {
		return nil, err
	}
	if !result.HasWinner {
		return &Status{IsRented: false, MonthlyRent: decimal.Zero}, nil
	}

	rentAmount, err := decimal.NewFromString(result.WinningOption)
	if err != nil {
		// Rent options are free text; an unparsable winner means the
		// offering cannot be treated as rented.
		s.log.Warn().
			Str("proposal_id", proposal.ID.String()).
			Str("winning_option", result.WinningOption).
			Msg("approved rent proposal winner is not a money amount")
		return &Status{IsRented: false, MonthlyRent: decimal.Zero}, nil
	}
	if rentAmount.LessThanOrEqual(decimal.Zero) {
		return &Status{IsRented: false, MonthlyRent: decimal.Zero}, nil
	}

	return &Status{
		IsRented:      true,
		MonthlyRent:   rentAmount,
		ProposalID:    proposal.ID,
		ProposalTitle: proposal.Title,
		ApprovedAt:    proposal.UpdatedAt,
	}, nil
}

// Payout describes an account's expected monthly rent share.
type Payout struct {
	HasTokens        bool
	IsRented         bool
	MonthlyRent      decimal.Decimal
	TokensOwned      int64
	TotalTokens      int64
	OwnershipPercent float64
	MonthlyPayout    decimal.Decimal
}

// Payout computes the account's pro-rata monthly payout for an offering.
// Zero if the account holds no tokens or the offering is not rented.
func (s *Service) Payout(ctx context.Context, offeringID, accountID uuid.UUID) (*Payout, error) {
	var payout *Payout
	err := s.ledger.InTx(ctx, func(tx domain.Tx) error {
		var err error
		payout, err = s.payoutInTx(ctx, tx, offeringID, accountID)
		return err
	})
	return payout, err
}

func (s *Service) payoutInTx(ctx context.Context, tx domain.Tx, offeringID, accountID uuid.UUID) (*Payout, error) {
	offering, err := tx.Offering(ctx, offeringID)
	if err != nil {
		return nil, err
	}

	position, err := tx.Position(ctx, accountID, offeringID)
	if domain.IsNotFound(err) || (err == nil && position.Tokens <= 0) {
		return &Payout{MonthlyRent: decimal.Zero, MonthlyPayout: decimal.Zero, TotalTokens: offering.TotalTokens}, nil
	}
	if err != nil {
		return nil, err
	}

	ownership := float64(position.Tokens) / float64(offering.TotalTokens) * 100

	status, err := s.statusInTx(ctx, tx, offeringID)
	if err != nil {
		return nil, err
	}
	if !status.IsRented {
		return &Payout{
			HasTokens:        true,
			MonthlyRent:      decimal.Zero,
			TokensOwned:      position.Tokens,
			TotalTokens:      offering.TotalTokens,
			OwnershipPercent: ownership,
			MonthlyPayout:    decimal.Zero,
		}, nil
	}

	share := decimal.NewFromInt(position.Tokens).Div(decimal.NewFromInt(offering.TotalTokens))
	return &Payout{
		HasTokens:        true,
		IsRented:         true,
		MonthlyRent:      status.MonthlyRent,
		TokensOwned:      position.Tokens,
		TotalTokens:      offering.TotalTokens,
		OwnershipPercent: ownership,
		MonthlyPayout:    status.MonthlyRent.Mul(share),
	}, nil
}

// ClaimResult describes a settled rent claim.
type ClaimResult struct {
	Claim      *domain.RentClaim
	NewBalance decimal.Decimal
}

// Claim settles the account's rent for the current calendar month. Exactly
// one claim per (account, offering, month) ever succeeds; a repeat attempt
// is rejected with the next eligible date and leaves the ledger unchanged.
func (s *Service) Claim(ctx context.Context, offeringID, accountID uuid.UUID) (*ClaimResult, error) {
	var res ClaimResult
	err := s.ledger.InTx(ctx, func(tx domain.Tx) error {
		payout, err := s.payoutInTx(ctx, tx, offeringID, accountID)
		if err != nil {
			return err
		}
		if !payout.HasTokens {
			return domain.Conflictf("you don't own tokens in this offering")
		}
		if !payout.IsRented {
			return domain.Conflictf("this offering is not currently rented")
		}
		if payout.MonthlyPayout.LessThanOrEqual(decimal.Zero) {
			return domain.Conflictf("no rent to claim")
		}

		now := time.Now().UTC()
		period := domain.PeriodOf(now)

		if _, err := tx.RentClaimForPeriod(ctx, accountID, offeringID, period); err == nil {
			return domain.Conflictf(
				"rent already claimed for %s %d, next claim available on %s",
				period.Month, period.Year, period.NextPeriodStart().Format("January 2, 2006"))
		} else if !domain.IsNotFound(err) {
			return err
		}

		account, err := tx.AccountForUpdate(ctx, accountID)
		if err != nil {
			return err
		}

		claim := &domain.RentClaim{
			ID:                 uuid.New(),
			AccountID:          accountID,
			OfferingID:         offeringID,
			PeriodYear:         period.Year,
			PeriodMonth:        period.Month,
			AmountUSD:          payout.MonthlyPayout,
			TokensAtClaim:      payout.TokensOwned,
			MonthlyRentAtClaim: payout.MonthlyRent,
			CreatedAt:          now,
		}
		if err := tx.CreateRentClaim(ctx, claim); err != nil {
			return err
		}

		account.CashBalance = account.CashBalance.Add(payout.MonthlyPayout)
		account.UpdatedAt = now
		if err := tx.UpdateAccount(ctx, account); err != nil {
			return err
		}

		res = ClaimResult{Claim: claim, NewBalance: account.CashBalance}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("account_id", accountID.String()).
		Str("offering_id", offeringID.String()).
		Str("amount", res.Claim.AmountUSD.String()).
		Int("year", res.Claim.PeriodYear).
		Str("month", res.Claim.PeriodMonth.String()).
		Msg("rent claimed")
	return &res, nil
}

// Claims lists an account's rent claim history, newest first.
func (s *Service) Claims(ctx context.Context, accountID uuid.UUID) ([]*domain.RentClaim, error) {
	var out []*domain.RentClaim
	err := s.ledger.InTx(ctx, func(tx domain.Tx) error {
		var err error
		out, err = tx.RentClaimsByAccount(ctx, accountID)
		return err
	})
	return out, err
}
