package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvestmentRecord is the immutable audit row of a primary-market token
// purchase.
type InvestmentRecord struct {
	ID          uuid.UUID
	AccountID   uuid.UUID
	OfferingID  uuid.UUID
	Tokens      int64
	InvestedUSD decimal.Decimal
	CreatedAt   time.Time
}
