package portfolio

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/rtavares/brickvault-backend/internal/domain"
)

// Holding is one offering position enriched with catalog data.
type Holding struct {
	OfferingID                 uuid.UUID             `json:"offering_id"`
	Name                       string                `json:"name"`
	Location                   string                `json:"location"`
	Status                     domain.OfferingStatus `json:"status"`
	Tokens                     int64                 `json:"tokens"`
	ValueUSD                   decimal.Decimal       `json:"value_usd"`
	OwnershipPercent           float64               `json:"ownership_percent"`
	ExpectedAnnualYieldPercent float64               `json:"expected_annual_yield_percent"`
}

// Summary aggregates an account's cash and token holdings. Token value is
// face value: one token is one dollar.
type Summary struct {
	AccountID     uuid.UUID       `json:"account_id"`
	CashBalance   decimal.Decimal `json:"cash_balance"`
	TokensOwned   int64           `json:"tokens_owned"`
	HoldingsValue decimal.Decimal `json:"holdings_value_usd"`
	TotalValue    decimal.Decimal `json:"total_value_usd"`
	PropertyCount int             `json:"property_count"`
	Holdings      []Holding       `json:"holdings"`
}

// Service assembles read-only portfolio views over the ledger.
type Service struct {
	ledger domain.Ledger
	log    zerolog.Logger
}

func NewService(ledger domain.Ledger, log zerolog.Logger) *Service {
	return &Service{ledger: ledger, log: log}
}

// Summary builds the account's portfolio summary. Positions with zero tokens
// (fully sold off) are skipped.
func (s *Service) Summary(ctx context.Context, accountID uuid.UUID) (*Summary, error) {
	var out *Summary
	err := s.ledger.InTx(ctx, func(tx domain.Tx) error {
		account, err := tx.Account(ctx, accountID)
		if err != nil {
			return err
		}
		positions, err := tx.PositionsByAccount(ctx, accountID)
		if err != nil {
			return err
		}

		summary := &Summary{
			AccountID:     accountID,
			CashBalance:   account.CashBalance,
			HoldingsValue: decimal.Zero,
			Holdings:      []Holding{},
		}
		for _, position := range positions {
			if position.Tokens <= 0 {
				continue
			}
			offering, err := tx.Offering(ctx, position.OfferingID)
			if err != nil {
				return err
			}
			value := decimal.NewFromInt(position.Tokens)
			ownership := 0.0
			if offering.TotalTokens > 0 {
				ownership = float64(position.Tokens) / float64(offering.TotalTokens) * 100
			}
			summary.Holdings = append(summary.Holdings, Holding{
				OfferingID:                 offering.ID,
				Name:                       offering.Name,
				Location:                   offering.Location,
				Status:                     offering.Status,
				Tokens:                     position.Tokens,
				ValueUSD:                   value,
				OwnershipPercent:           ownership,
				ExpectedAnnualYieldPercent: offering.ExpectedAnnualYieldPercent,
			})
			summary.TokensOwned += position.Tokens
			summary.HoldingsValue = summary.HoldingsValue.Add(value)
		}
		summary.PropertyCount = len(summary.Holdings)
		summary.TotalValue = summary.CashBalance.Add(summary.HoldingsValue)
		out = summary
		return nil
	})
	return out, err
}
