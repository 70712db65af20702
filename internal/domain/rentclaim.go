package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RentClaim records one account's rent payout for one offering and one
// calendar month. The (account, offering, year, month) key is unique, which
// is what makes claims idempotent per period. Tokens and rent are frozen
// snapshots taken at claim time.
type RentClaim struct {
	ID         uuid.UUID
	AccountID  uuid.UUID
	OfferingID uuid.UUID

	PeriodYear  int
	PeriodMonth time.Month

	AmountUSD          decimal.Decimal
	TokensAtClaim      int64
	MonthlyRentAtClaim decimal.Decimal

	CreatedAt time.Time
}

// ClaimPeriod identifies one calendar month.
type ClaimPeriod struct {
	Year  int
	Month time.Month
}

// PeriodOf returns the claim period containing t (in UTC).
func PeriodOf(t time.Time) ClaimPeriod {
	u := t.UTC()
	return ClaimPeriod{Year: u.Year(), Month: u.Month()}
}

// NextPeriodStart returns the first instant of the following calendar month,
// i.e. when the next claim becomes available.
func (p ClaimPeriod) NextPeriodStart() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
}
