package investment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/rtavares/brickvault-backend/internal/domain"
)

// Service settles primary-market token purchases: cash leaves the buyer,
// supply counters move, and the position and audit row are written, all in
// one ledger transaction. The on-chain mint happens strictly after commit
// and its failure only annotates the result.
type Service struct {
	ledger  domain.Ledger
	gateway domain.ChainGateway
	log     zerolog.Logger
}

// NewService creates a new investment settlement Service.
func NewService(ledger domain.Ledger, gateway domain.ChainGateway, log zerolog.Logger) *Service {
	return &Service{ledger: ledger, gateway: gateway, log: log}
}

// Result describes a settled investment, including the post-commit chain
// annotation.
type Result struct {
	Investment         *domain.InvestmentRecord
	AccountCash        decimal.Decimal
	OfferingTokensSold int64
	OfferingStatus     domain.OfferingStatus
	PositionTokens     int64

	// ChainTxID is set when the post-commit mint succeeded; ChainError
	// carries the failure otherwise. Neither affects the ledger result.
	ChainTxID  string
	ChainError string
}

// Invest purchases tokens from an offering's unsold primary supply at the
// fixed 1 token = 1 USD price.
func (s *Service) Invest(ctx context.Context, accountID, offeringID uuid.UUID, tokens int64) (*Result, error) {
	if tokens <= 0 {
		return nil, domain.Invalidf("tokens must be positive, got %d", tokens)
	}

	var (
		res      Result
		account  *domain.Account
		offering *domain.Offering
	)
	err := s.ledger.InTx(ctx, func(tx domain.Tx) error {
		var err error
		account, err = tx.AccountForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		offering, err = tx.OfferingForUpdate(ctx, offeringID)
		if err != nil {
			return err
		}

		if offering.Status != domain.OfferingStatusOffering {
			return domain.Conflictf("offering is not available for investment, current status: %s", offering.Status)
		}
		if available := offering.TokensAvailable(); tokens > available {
			return domain.Conflictf("not enough tokens available: requested %d, available %d", tokens, available)
		}

		cost := decimal.NewFromInt(tokens)
		if account.CashBalance.LessThan(cost) {
			return domain.Conflictf("insufficient balance: required $%s, available $%s", cost, account.CashBalance)
		}

		now := time.Now().UTC()

		account.CashBalance = account.CashBalance.Sub(cost)
		account.UpdatedAt = now
		if err := tx.UpdateAccount(ctx, account); err != nil {
			return err
		}

		offering.TokensSold += tokens
		if offering.FullyFunded() {
			offering.Status = domain.OfferingStatusFunded
		}
		offering.UpdatedAt = now
		if err := tx.UpdateOffering(ctx, offering); err != nil {
			return err
		}

		position, err := tx.PositionForUpdate(ctx, accountID, offeringID)
		if domain.IsNotFound(err) {
			position = &domain.Position{ID: uuid.New(), AccountID: accountID, OfferingID: offeringID}
		} else if err != nil {
			return err
		}
		position.Tokens += tokens
		if err := tx.UpsertPosition(ctx, position); err != nil {
			return err
		}

		record := &domain.InvestmentRecord{
			ID:          uuid.New(),
			AccountID:   accountID,
			OfferingID:  offeringID,
			Tokens:      tokens,
			InvestedUSD: cost,
			CreatedAt:   now,
		}
		if err := tx.CreateInvestment(ctx, record); err != nil {
			return err
		}

		res = Result{
			Investment:         record,
			AccountCash:        account.CashBalance,
			OfferingTokensSold: offering.TokensSold,
			OfferingStatus:     offering.Status,
			PositionTokens:     position.Tokens,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("account_id", accountID.String()).
		Str("offering_id", offeringID.String()).
		Int64("tokens", tokens).
		Str("status", string(res.OfferingStatus)).
		Msg("investment settled")

	s.mintAfterCommit(ctx, account, offering, tokens, &res)
	return &res, nil
}

// mintAfterCommit mirrors the settled purchase on chain. The ledger is
// already committed; whatever happens here is reported, never rolled back.
func (s *Service) mintAfterCommit(ctx context.Context, account *domain.Account, offering *domain.Offering, tokens int64, res *Result) {
	if !s.gateway.Enabled() {
		s.log.Debug().Msg("chain disabled, skipping mint")
		return
	}
	if !offering.Deployed() {
		s.log.Info().Str("offering_id", offering.ID.String()).Msg("offering contract not deployed, skipping mint")
		return
	}
	if !account.HasWallet() {
		s.log.Info().Str("account_id", account.ID.String()).Msg("account wallet not provisioned, skipping mint")
		return
	}

	txID, err := s.gateway.Mint(ctx, offering.ContractRef, account.WalletAddress, tokens)
	if err != nil {
		s.log.Error().Err(err).
			Str("contract", offering.ContractRef).
			Str("wallet", account.WalletAddress).
			Msg("chain mint failed, ledger stands")
		res.ChainError = err.Error()
		return
	}
	res.ChainTxID = txID
}

// Investments lists primary-purchase audit rows, optionally filtered by
// account.
func (s *Service) Investments(ctx context.Context, accountID *uuid.UUID) ([]*domain.InvestmentRecord, error) {
	var out []*domain.InvestmentRecord
	err := s.ledger.InTx(ctx, func(tx domain.Tx) error {
		var err error
		out, err = tx.Investments(ctx, accountID)
		return err
	})
	return out, err
}
