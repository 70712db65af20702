package domain

import (
	"time"

	"github.com/google/uuid"
)

// OfferingStatus represents the primary-market lifecycle of an offering
type OfferingStatus string

const (
	// OfferingStatusOffering means unsold primary supply remains.
	OfferingStatusOffering OfferingStatus = "offering"
	// OfferingStatusFunded means every token has been sold. The transition
	// happens exactly once and is final.
	OfferingStatusFunded OfferingStatus = "funded"
)

// Offering represents a property with a fixed token supply. The supply is
// set at creation (1 token = 1 USD of the purchase price) and never changes;
// only TokensSold moves, and only upward.
type Offering struct {
	ID          uuid.UUID
	Name        string
	Description string
	Location    string

	PriceUSD    int64
	TotalTokens int64
	TokensSold  int64

	ExpectedAnnualYieldPercent float64
	Status                     OfferingStatus
	ImageURL                   string

	// ContractRef is the deployed token contract reference, empty until the
	// offering has been mirrored on chain.
	ContractRef string
	ChainName   string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate ensures the offering adheres to domain rules.
func (o *Offering) Validate() error {
	if o.Name == "" {
		return Invalidf("offering name cannot be empty")
	}
	if o.PriceUSD <= 0 {
		return Invalidf("offering price must be positive")
	}
	if o.TotalTokens <= 0 {
		return Invalidf("offering total tokens must be positive")
	}
	if o.TokensSold < 0 || o.TokensSold > o.TotalTokens {
		return Invalidf("tokens sold must be between 0 and total tokens")
	}
	if o.ExpectedAnnualYieldPercent < 0 {
		return Invalidf("expected annual yield must not be negative")
	}
	return nil
}

// TokensAvailable returns the unsold primary supply.
func (o *Offering) TokensAvailable() int64 {
	return o.TotalTokens - o.TokensSold
}

// FullyFunded reports whether the whole supply has been sold.
func (o *Offering) FullyFunded() bool {
	return o.TokensSold >= o.TotalTokens
}

// Deployed reports whether a token contract has been recorded.
func (o *Offering) Deployed() bool {
	return o.ContractRef != ""
}

// Position represents an account's current token holding in one offering.
// There is exactly one row per (account, offering) pair.
type Position struct {
	ID         uuid.UUID
	AccountID  uuid.UUID
	OfferingID uuid.UUID
	Tokens     int64
}
