package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ListingStatus represents the lifecycle of a marketplace listing.
// Active listings can be bought from or cancelled; completed and cancelled
// are terminal.
type ListingStatus string

const (
	ListingStatusActive    ListingStatus = "active"
	ListingStatusCompleted ListingStatus = "completed"
	ListingStatusCancelled ListingStatus = "cancelled"
)

// Listing represents a secondary-market sell order. The listed tokens are
// escrowed: removed from the seller's spendable position while the listing
// is active and returned on cancellation.
type Listing struct {
	ID              uuid.UUID
	SellerID        uuid.UUID
	OfferingID      uuid.UUID
	TokensListed    int64
	TokensRemaining int64
	PricePerToken   decimal.Decimal
	Status          ListingStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Validate ensures the listing adheres to domain rules.
func (l *Listing) Validate() error {
	if l.TokensListed <= 0 {
		return Invalidf("listing tokens must be positive")
	}
	if l.TokensRemaining < 0 || l.TokensRemaining > l.TokensListed {
		return Invalidf("tokens remaining must be between 0 and tokens listed")
	}
	if l.PricePerToken.LessThanOrEqual(decimal.Zero) {
		return Invalidf("price per token must be positive")
	}
	return nil
}

// Terminal reports whether the listing has reached a final state.
func (l *Listing) Terminal() bool {
	return l.Status == ListingStatusCompleted || l.Status == ListingStatusCancelled
}

// TradeRecord is the immutable audit row of a marketplace purchase.
// The platform fee is retained by the platform and never credited to any
// ledger account.
type TradeRecord struct {
	ID            uuid.UUID
	ListingID     uuid.UUID
	BuyerID       uuid.UUID
	SellerID      uuid.UUID
	OfferingID    uuid.UUID
	Tokens        int64
	PricePerToken decimal.Decimal
	TotalPrice    decimal.Decimal
	PlatformFee   decimal.Decimal
	SellerNet     decimal.Decimal
	CreatedAt     time.Time
}
