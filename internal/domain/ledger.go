package domain

import (
	"context"

	"github.com/google/uuid"
)

// Ledger is the durable relational store. It is the single source of truth:
// blockchain state is advisory and reconciled after the fact.
//
// Every state-mutating engine operation runs inside one InTx scope, so every
// read that informs a mutation and the mutation itself see the same
// transaction. Implementations must guarantee that an error returned from fn
// rolls the whole scope back, and that the ForUpdate accessors block a
// concurrent writer of the same row until the scope ends.
type Ledger interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the transactional view handed to engine operations.
type Tx interface {
	AccountStore
	OfferingStore
	PositionStore
	InvestmentStore
	ListingStore
	TradeStore
	ProposalStore
	VoteStore
	RentClaimStore
}

// AccountStore persists accounts and their cash balances.
type AccountStore interface {
	CreateAccount(ctx context.Context, account *Account) error
	Account(ctx context.Context, id uuid.UUID) (*Account, error)
	AccountForUpdate(ctx context.Context, id uuid.UUID) (*Account, error)
	Accounts(ctx context.Context) ([]*Account, error)
	UpdateAccount(ctx context.Context, account *Account) error
}

// OfferingFilter narrows offering listings.
type OfferingFilter struct {
	MinPriceUSD *int64
	MaxPriceUSD *int64
	Location    string
}

// OfferingStore persists offerings and their supply counters.
type OfferingStore interface {
	CreateOffering(ctx context.Context, offering *Offering) error
	Offering(ctx context.Context, id uuid.UUID) (*Offering, error)
	OfferingForUpdate(ctx context.Context, id uuid.UUID) (*Offering, error)
	Offerings(ctx context.Context, filter OfferingFilter) ([]*Offering, error)
	UpdateOffering(ctx context.Context, offering *Offering) error
}

// PositionStore persists token holdings. One row per (account, offering);
// UpsertPosition creates the row on first touch.
type PositionStore interface {
	Position(ctx context.Context, accountID, offeringID uuid.UUID) (*Position, error)
	PositionForUpdate(ctx context.Context, accountID, offeringID uuid.UUID) (*Position, error)
	UpsertPosition(ctx context.Context, position *Position) error
	PositionsByAccount(ctx context.Context, accountID uuid.UUID) ([]*Position, error)
	PositionsByOffering(ctx context.Context, offeringID uuid.UUID) ([]*Position, error)
}

// InvestmentStore persists primary-purchase audit rows.
type InvestmentStore interface {
	CreateInvestment(ctx context.Context, record *InvestmentRecord) error
	Investments(ctx context.Context, accountID *uuid.UUID) ([]*InvestmentRecord, error)
}

// ListingFilter narrows marketplace listing queries.
type ListingFilter struct {
	OfferingID *uuid.UUID
	SellerID   *uuid.UUID
	Status     ListingStatus
}

// ListingStore persists marketplace listings.
type ListingStore interface {
	CreateListing(ctx context.Context, listing *Listing) error
	Listing(ctx context.Context, id uuid.UUID) (*Listing, error)
	ListingForUpdate(ctx context.Context, id uuid.UUID) (*Listing, error)
	Listings(ctx context.Context, filter ListingFilter) ([]*Listing, error)
	UpdateListing(ctx context.Context, listing *Listing) error
}

// TradeFilter narrows trade history queries.
type TradeFilter struct {
	BuyerID  *uuid.UUID
	SellerID *uuid.UUID
}

// TradeStore persists marketplace trade audit rows.
type TradeStore interface {
	CreateTrade(ctx context.Context, record *TradeRecord) error
	Trades(ctx context.Context, filter TradeFilter) ([]*TradeRecord, error)
}

// ProposalFilter narrows proposal queries.
type ProposalFilter struct {
	OfferingID *uuid.UUID
	CreatedBy  *uuid.UUID
	Status     ProposalStatus
	Type       ProposalType
}

// ProposalStore persists governance proposals.
type ProposalStore interface {
	CreateProposal(ctx context.Context, proposal *Proposal) error
	Proposal(ctx context.Context, id uuid.UUID) (*Proposal, error)
	ProposalForUpdate(ctx context.Context, id uuid.UUID) (*Proposal, error)
	Proposals(ctx context.Context, filter ProposalFilter) ([]*Proposal, error)
	UpdateProposal(ctx context.Context, proposal *Proposal) error

	// LatestApprovedRentProposal returns the most recently approved
	// rent-decision proposal for the offering, by update time descending,
	// or ErrNotFound when the offering has none.
	LatestApprovedRentProposal(ctx context.Context, offeringID uuid.UUID) (*Proposal, error)
}

// VoteStore persists votes. CreateVote must reject a second vote by the
// same account on the same proposal with ErrConflict.
type VoteStore interface {
	CreateVote(ctx context.Context, vote *Vote) error
	VoteByAccount(ctx context.Context, proposalID, accountID uuid.UUID) (*Vote, error)
	VotesByProposal(ctx context.Context, proposalID uuid.UUID) ([]*Vote, error)
}

// RentClaimStore persists rent claims. CreateRentClaim must reject a
// duplicate (account, offering, period) key with ErrConflict.
type RentClaimStore interface {
	CreateRentClaim(ctx context.Context, claim *RentClaim) error
	RentClaimForPeriod(ctx context.Context, accountID, offeringID uuid.UUID, period ClaimPeriod) (*RentClaim, error)
	RentClaimsByAccount(ctx context.Context, accountID uuid.UUID) ([]*RentClaim, error)
}
