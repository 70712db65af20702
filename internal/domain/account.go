package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account represents a platform user holding a mock-USD cash balance and,
// once provisioned, a custodial blockchain wallet.
type Account struct {
	ID          uuid.UUID
	Email       string
	FullName    string
	CashBalance decimal.Decimal

	// Custodial wallet pair. Assigned at most once and immutable afterward.
	WalletAddress    string
	WalletPrivateKey string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate ensures the account adheres to domain rules.
func (a *Account) Validate() error {
	if a.Email == "" {
		return Invalidf("account email cannot be empty")
	}
	if a.CashBalance.IsNegative() {
		return Invalidf("account cash balance cannot be negative")
	}
	return nil
}

// HasWallet reports whether the custodial wallet pair has been assigned.
func (a *Account) HasWallet() bool {
	return a.WalletAddress != "" && a.WalletPrivateKey != ""
}
