package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rtavares/brickvault-backend/internal/domain"
)

type rentClaimRow struct {
	ID                 uuid.UUID       `db:"id"`
	AccountID          uuid.UUID       `db:"account_id"`
	OfferingID         uuid.UUID       `db:"offering_id"`
	PeriodYear         int             `db:"period_year"`
	PeriodMonth        int             `db:"period_month"`
	AmountUSD          decimal.Decimal `db:"amount_usd"`
	TokensAtClaim      int64           `db:"tokens_at_claim"`
	MonthlyRentAtClaim decimal.Decimal `db:"monthly_rent_at_claim"`
	CreatedAt          time.Time       `db:"created_at"`
}

func (r rentClaimRow) toDomain() *domain.RentClaim {
	return &domain.RentClaim{
		ID:                 r.ID,
		AccountID:          r.AccountID,
		OfferingID:         r.OfferingID,
		PeriodYear:         r.PeriodYear,
		PeriodMonth:        time.Month(r.PeriodMonth),
		AmountUSD:          r.AmountUSD,
		TokensAtClaim:      r.TokensAtClaim,
		MonthlyRentAtClaim: r.MonthlyRentAtClaim,
		CreatedAt:          r.CreatedAt,
	}
}

const rentClaimColumns = `id, account_id, offering_id, period_year, period_month, amount_usd, tokens_at_claim, monthly_rent_at_claim, created_at`

func (t *pgTx) CreateRentClaim(ctx context.Context, claim *domain.RentClaim) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO rent_claims (id, account_id, offering_id, period_year, period_month, amount_usd, tokens_at_claim, monthly_rent_at_claim, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		claim.ID, claim.AccountID, claim.OfferingID, claim.PeriodYear, int(claim.PeriodMonth),
		claim.AmountUSD, claim.TokensAtClaim, claim.MonthlyRentAtClaim, claim.CreatedAt)
	if isUniqueViolation(err) {
		return domain.Conflictf("rent already claimed for %s %d", claim.PeriodMonth, claim.PeriodYear)
	}
	if err != nil {
		return fmt.Errorf("failed to create rent claim: %w", err)
	}
	return nil
}

func (t *pgTx) RentClaimForPeriod(ctx context.Context, accountID, offeringID uuid.UUID, period domain.ClaimPeriod) (*domain.RentClaim, error) {
	var row rentClaimRow
	err := t.tx.GetContext(ctx, &row, `
		SELECT `+rentClaimColumns+` FROM rent_claims
		WHERE account_id = $1 AND offering_id = $2 AND period_year = $3 AND period_month = $4`,
		accountID, offeringID, period.Year, int(period.Month))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("no rent claim for %s %d", period.Month, period.Year)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rent claim: %w", err)
	}
	return row.toDomain(), nil
}

func (t *pgTx) RentClaimsByAccount(ctx context.Context, accountID uuid.UUID) ([]*domain.RentClaim, error) {
	var rows []rentClaimRow
	err := t.tx.SelectContext(ctx, &rows,
		`SELECT `+rentClaimColumns+` FROM rent_claims WHERE account_id = $1 ORDER BY created_at DESC`,
		accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rent claims: %w", err)
	}
	claims := make([]*domain.RentClaim, len(rows))
	for i, row := range rows {
		claims[i] = row.toDomain()
	}
	return claims, nil
}
