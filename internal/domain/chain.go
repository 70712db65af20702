package domain

import (
	"context"

	"github.com/google/uuid"
)

// Wallet is a custodial keypair provisioned for an account.
type Wallet struct {
	Address    string
	PrivateKey string
}

// ChainGateway mirrors ledger state onto a token contract. The mirror is
// best effort: every call may fail or time out, and a failure never reverses
// a committed ledger transaction. Engines sequence gateway calls strictly
// after ledger commit and surface failures as annotations only.
type ChainGateway interface {
	// Enabled reports whether chain mirroring is configured at all.
	// Engines skip gateway calls entirely when it returns false.
	Enabled() bool

	// NewWallet provisions a custodial wallet pair.
	NewWallet(ctx context.Context) (Wallet, error)

	// Deploy creates the token contract for an offering and returns the
	// transaction id and the contract reference.
	Deploy(ctx context.Context, offeringID uuid.UUID, totalTokens int64, metadata map[string]string) (txID, contractRef string, err error)

	// Mint issues tokens to a wallet on a deployed contract.
	Mint(ctx context.Context, contractRef, toWallet string, amount int64) (txID string, err error)

	// Transfer moves tokens between wallets on a deployed contract.
	Transfer(ctx context.Context, contractRef, fromWallet, toWallet string, amount int64) (txID string, err error)

	// Burn destroys tokens held by the contract treasury.
	Burn(ctx context.Context, contractRef string, amount int64) (txID string, err error)

	// FundGas tops a wallet up with native currency for transaction fees.
	FundGas(ctx context.Context, wallet string) (txID string, err error)
}
