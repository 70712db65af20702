package marketplace

import (
	"bytes"
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/rtavares/brickvault-backend/internal/domain"
)

// FeeRate is the platform fee taken from every marketplace trade. The fee is
// retained by the platform, not credited to any ledger account.
var FeeRate = decimal.RequireFromString("0.025")

// primaryPrice is the fixed primary-market price, $1 per token. Discounts in
// listings and stats are computed against it.
var primaryPrice = decimal.NewFromInt(1)

// Service settles secondary-market trades. Listed tokens are escrowed out of
// the seller's position for the lifetime of the listing; a buy moves cash and
// tokens atomically and the on-chain transfer is a post-commit annotation.
type Service struct {
	ledger  domain.Ledger
	gateway domain.ChainGateway
	log     zerolog.Logger
}

// NewService creates a new marketplace settlement Service.
func NewService(ledger domain.Ledger, gateway domain.ChainGateway, log zerolog.Logger) *Service {
	return &Service{ledger: ledger, gateway: gateway, log: log}
}

// CreateListing escrows tokens from the seller's position and opens an
// active listing for them.
func (s *Service) CreateListing(ctx context.Context, sellerID, offeringID uuid.UUID, tokens int64, pricePerToken decimal.Decimal) (*domain.Listing, error) {
	if tokens <= 0 {
		return nil, domain.Invalidf("tokens must be positive, got %d", tokens)
	}
	if pricePerToken.LessThanOrEqual(decimal.Zero) {
		return nil, domain.Invalidf("price per token must be positive, got %s", pricePerToken)
	}

	var listing *domain.Listing
	err := s.ledger.InTx(ctx, func(tx domain.Tx) error {
		if _, err := tx.Account(ctx, sellerID); err != nil {
			return err
		}
		if _, err := tx.Offering(ctx, offeringID); err != nil {
			return err
		}

		position, err := tx.PositionForUpdate(ctx, sellerID, offeringID)
		if domain.IsNotFound(err) {
			return domain.Conflictf("insufficient tokens: requested %d, available 0", tokens)
		}
		if err != nil {
			return err
		}
		if position.Tokens < tokens {
			return domain.Conflictf("insufficient tokens: requested %d, available %d", tokens, position.Tokens)
		}

		// Escrow: the listed tokens leave the spendable position until the
		// listing completes or is cancelled.
		position.Tokens -= tokens
		if err := tx.UpsertPosition(ctx, position); err != nil {
			return err
		}

		now := time.Now().UTC()
		listing = &domain.Listing{
			ID:              uuid.New(),
			SellerID:        sellerID,
			OfferingID:      offeringID,
			TokensListed:    tokens,
			TokensRemaining: tokens,
			PricePerToken:   pricePerToken,
			Status:          domain.ListingStatusActive,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		return tx.CreateListing(ctx, listing)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("listing_id", listing.ID.String()).
		Str("seller_id", sellerID.String()).
		Int64("tokens", tokens).
		Str("price_per_token", pricePerToken.String()).
		Msg("listing created")
	return listing, nil
}

// PurchaseResult describes a settled marketplace buy.
type PurchaseResult struct {
	Trade         *domain.TradeRecord
	BuyerCash     decimal.Decimal
	SellerCash    decimal.Decimal
	BuyerPosition int64
	ListingStatus domain.ListingStatus

	ChainTxID  string
	ChainError string
}

// Buy purchases tokens from one active listing. No partial fills across
// listings: a sweep over several listings is several calls.
func (s *Service) Buy(ctx context.Context, listingID, buyerID uuid.UUID, tokens int64) (*PurchaseResult, error) {
	if tokens <= 0 {
		return nil, domain.Invalidf("tokens must be positive, got %d", tokens)
	}

	var (
		res      PurchaseResult
		buyer    *domain.Account
		seller   *domain.Account
		offering *domain.Offering
	)
	err := s.ledger.InTx(ctx, func(tx domain.Tx) error {
		listing, err := tx.ListingForUpdate(ctx, listingID)
		if err != nil {
			return err
		}
		if listing.Status != domain.ListingStatusActive {
			return domain.Conflictf("listing is not active, status: %s", listing.Status)
		}
		if tokens > listing.TokensRemaining {
			return domain.Conflictf("not enough tokens available: requested %d, available %d", tokens, listing.TokensRemaining)
		}
		if buyerID == listing.SellerID {
			return domain.Conflictf("cannot buy your own listing")
		}

		// Account rows lock in ID order so two opposing purchases never
		// wait on each other's locks.
		first, second := buyerID, listing.SellerID
		if bytes.Compare(second[:], first[:]) < 0 {
			first, second = second, first
		}
		firstAccount, err := tx.AccountForUpdate(ctx, first)
		if err != nil {
			return err
		}
		secondAccount, err := tx.AccountForUpdate(ctx, second)
		if err != nil {
			return err
		}
		buyer, seller = firstAccount, secondAccount
		if first != buyerID {
			buyer, seller = secondAccount, firstAccount
		}
		offering, err = tx.Offering(ctx, listing.OfferingID)
		if err != nil {
			return err
		}

		total := listing.PricePerToken.Mul(decimal.NewFromInt(tokens))
		fee := total.Mul(FeeRate)
		sellerNet := total.Sub(fee)

		if buyer.CashBalance.LessThan(total) {
			return domain.Conflictf("insufficient balance: required $%s, available $%s", total, buyer.CashBalance)
		}

		now := time.Now().UTC()

		// Cash: buyer pays the full price, seller receives it minus the
		// platform fee. The fee is externalized, no ledger account gains it.
		buyer.CashBalance = buyer.CashBalance.Sub(total)
		buyer.UpdatedAt = now
		if err := tx.UpdateAccount(ctx, buyer); err != nil {
			return err
		}
		seller.CashBalance = seller.CashBalance.Add(sellerNet)
		seller.UpdatedAt = now
		if err := tx.UpdateAccount(ctx, seller); err != nil {
			return err
		}

		// Tokens: escrow shrinks, buyer position grows.
		listing.TokensRemaining -= tokens
		if listing.TokensRemaining == 0 {
			listing.Status = domain.ListingStatusCompleted
		}
		listing.UpdatedAt = now
		if err := tx.UpdateListing(ctx, listing); err != nil {
			return err
		}

		buyerPosition, err := tx.PositionForUpdate(ctx, buyerID, listing.OfferingID)
		if domain.IsNotFound(err) {
			buyerPosition = &domain.Position{ID: uuid.New(), AccountID: buyerID, OfferingID: listing.OfferingID}
		} else if err != nil {
			return err
		}
		buyerPosition.Tokens += tokens
		if err := tx.UpsertPosition(ctx, buyerPosition); err != nil {
			return err
		}

		trade := &domain.TradeRecord{
			ID:            uuid.New(),
			ListingID:     listing.ID,
			BuyerID:       buyerID,
			SellerID:      listing.SellerID,
			OfferingID:    listing.OfferingID,
			Tokens:        tokens,
			PricePerToken: listing.PricePerToken,
			TotalPrice:    total,
			PlatformFee:   fee,
			SellerNet:     sellerNet,
			CreatedAt:     now,
		}
		if err := tx.CreateTrade(ctx, trade); err != nil {
			return err
		}

		res = PurchaseResult{
			Trade:         trade,
			BuyerCash:     buyer.CashBalance,
			SellerCash:    seller.CashBalance,
			BuyerPosition: buyerPosition.Tokens,
			ListingStatus: listing.Status,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("listing_id", listingID.String()).
		Str("buyer_id", buyerID.String()).
		Int64("tokens", tokens).
		Str("total", res.Trade.TotalPrice.String()).
		Str("fee", res.Trade.PlatformFee.String()).
		Msg("marketplace purchase settled")

	s.transferAfterCommit(ctx, offering, seller, buyer, tokens, &res)
	return &res, nil
}

// transferAfterCommit mirrors the trade on chain, seller to buyer. The
// ledger is already committed; failure is logged and annotated only.
func (s *Service) transferAfterCommit(ctx context.Context, offering *domain.Offering, seller, buyer *domain.Account, tokens int64, res *PurchaseResult) {
	if !s.gateway.Enabled() {
		s.log.Debug().Msg("chain disabled, skipping transfer")
		return
	}
	if !offering.Deployed() || !seller.HasWallet() || !buyer.HasWallet() {
		s.log.Info().Str("offering_id", offering.ID.String()).
			Msg("missing contract or wallets, skipping chain transfer")
		return
	}

	txID, err := s.gateway.Transfer(ctx, offering.ContractRef, seller.WalletAddress, buyer.WalletAddress, tokens)
	if err != nil {
		s.log.Error().Err(err).
			Str("contract", offering.ContractRef).
			Str("from", seller.WalletAddress).
			Str("to", buyer.WalletAddress).
			Msg("chain transfer failed, ledger stands")
		res.ChainError = err.Error()
		return
	}
	res.ChainTxID = txID
}

// Cancel cancels an active listing and returns the escrowed remainder to the
// seller's position. Only the seller may cancel.
func (s *Service) Cancel(ctx context.Context, listingID, requesterID uuid.UUID) (*domain.Listing, error) {
	var listing *domain.Listing
	err := s.ledger.InTx(ctx, func(tx domain.Tx) error {
		var err error
		listing, err = tx.ListingForUpdate(ctx, listingID)
		if err != nil {
			return err
		}
		if listing.SellerID != requesterID {
			return domain.Conflictf("only the seller may cancel this listing")
		}
		if listing.Status != domain.ListingStatusActive {
			return domain.Conflictf("cannot cancel listing with status: %s", listing.Status)
		}

		position, err := tx.PositionForUpdate(ctx, listing.SellerID, listing.OfferingID)
		if domain.IsNotFound(err) {
			position = &domain.Position{ID: uuid.New(), AccountID: listing.SellerID, OfferingID: listing.OfferingID}
		} else if err != nil {
			return err
		}
		position.Tokens += listing.TokensRemaining
		if err := tx.UpsertPosition(ctx, position); err != nil {
			return err
		}

		listing.Status = domain.ListingStatusCancelled
		listing.UpdatedAt = time.Now().UTC()
		return tx.UpdateListing(ctx, listing)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("listing_id", listingID.String()).Msg("listing cancelled, escrow returned")
	return listing, nil
}

// Listings lists marketplace listings matching the filter.
func (s *Service) Listings(ctx context.Context, filter domain.ListingFilter) ([]*domain.Listing, error) {
	var out []*domain.Listing
	err := s.ledger.InTx(ctx, func(tx domain.Tx) error {
		var err error
		out, err = tx.Listings(ctx, filter)
		return err
	})
	return out, err
}

// Listing fetches a single listing.
func (s *Service) Listing(ctx context.Context, id uuid.UUID) (*domain.Listing, error) {
	var out *domain.Listing
	err := s.ledger.InTx(ctx, func(tx domain.Tx) error {
		var err error
		out, err = tx.Listing(ctx, id)
		return err
	})
	return out, err
}

// Stats aggregates marketplace activity.
type Stats struct {
	ActiveListings         int
	TokensListed           int64
	TotalVolumeUSD         decimal.Decimal
	AverageDiscountPercent *float64
}

// Stats returns marketplace-wide aggregates: open supply, traded volume and
// the average discount of active asks against the $1 primary price.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{TotalVolumeUSD: decimal.Zero}
	err := s.ledger.InTx(ctx, func(tx domain.Tx) error {
		active, err := tx.Listings(ctx, domain.ListingFilter{Status: domain.ListingStatusActive})
		if err != nil {
			return err
		}
		stats.ActiveListings = len(active)

		discountSum := decimal.Zero
		for _, l := range active {
			stats.TokensListed += l.TokensRemaining
			discountSum = discountSum.Add(primaryPrice.Sub(l.PricePerToken).Div(primaryPrice).Mul(decimal.NewFromInt(100)))
		}
		if len(active) > 0 {
			avg, _ := discountSum.Div(decimal.NewFromInt(int64(len(active)))).Round(2).Float64()
			stats.AverageDiscountPercent = &avg
		}

		trades, err := tx.Trades(ctx, domain.TradeFilter{})
		if err != nil {
			return err
		}
		for _, t := range trades {
			stats.TotalVolumeUSD = stats.TotalVolumeUSD.Add(t.TotalPrice)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// Purchases lists an account's buys, newest first.
func (s *Service) Purchases(ctx context.Context, buyerID uuid.UUID) ([]*domain.TradeRecord, error) {
	var out []*domain.TradeRecord
	err := s.ledger.InTx(ctx, func(tx domain.Tx) error {
		var err error
		out, err = tx.Trades(ctx, domain.TradeFilter{BuyerID: &buyerID})
		return err
	})
	return out, err
}

// Sales lists an account's sells, newest first.
func (s *Service) Sales(ctx context.Context, sellerID uuid.UUID) ([]*domain.TradeRecord, error) {
	var out []*domain.TradeRecord
	err := s.ledger.InTx(ctx, func(tx domain.Tx) error {
		var err error
		out, err = tx.Trades(ctx, domain.TradeFilter{SellerID: &sellerID})
		return err
	})
	return out, err
}
