package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rtavares/brickvault-backend/internal/domain"
)

type offeringRow struct {
	ID                         uuid.UUID `db:"id"`
	Name                       string    `db:"name"`
	Description                string    `db:"description"`
	Location                   string    `db:"location"`
	PriceUSD                   int64     `db:"price_usd"`
	TotalTokens                int64     `db:"total_tokens"`
	TokensSold                 int64     `db:"tokens_sold"`
	ExpectedAnnualYieldPercent float64   `db:"expected_annual_yield_percent"`
	Status                     string    `db:"status"`
	ImageURL                   string    `db:"image_url"`
	ContractRef                string    `db:"contract_ref"`
	ChainName                  string    `db:"chain_name"`
	CreatedAt                  time.Time `db:"created_at"`
	UpdatedAt                  time.Time `db:"updated_at"`
}

func (r offeringRow) toDomain() *domain.Offering {
	return &domain.Offering{
		ID:                         r.ID,
		Name:                       r.Name,
		Description:                r.Description,
		Location:                   r.Location,
		PriceUSD:                   r.PriceUSD,
		TotalTokens:                r.TotalTokens,
		TokensSold:                 r.TokensSold,
		ExpectedAnnualYieldPercent: r.ExpectedAnnualYieldPercent,
		Status:                     domain.OfferingStatus(r.Status),
		ImageURL:                   r.ImageURL,
		ContractRef:                r.ContractRef,
		ChainName:                  r.ChainName,
		CreatedAt:                  r.CreatedAt,
		UpdatedAt:                  r.UpdatedAt,
	}
}

const offeringColumns = `id, name, description, location, price_usd, total_tokens, tokens_sold,
	expected_annual_yield_percent, status, image_url, contract_ref, chain_name, created_at, updated_at`

func (t *pgTx) CreateOffering(ctx context.Context, offering *domain.Offering) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO offerings (id, name, description, location, price_usd, total_tokens, tokens_sold,
			expected_annual_yield_percent, status, image_url, contract_ref, chain_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		offering.ID, offering.Name, offering.Description, offering.Location,
		offering.PriceUSD, offering.TotalTokens, offering.TokensSold,
		offering.ExpectedAnnualYieldPercent, string(offering.Status), offering.ImageURL,
		offering.ContractRef, offering.ChainName, offering.CreatedAt, offering.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create offering: %w", err)
	}
	return nil
}

func (t *pgTx) Offering(ctx context.Context, id uuid.UUID) (*domain.Offering, error) {
	return t.getOffering(ctx, id, false)
}

func (t *pgTx) OfferingForUpdate(ctx context.Context, id uuid.UUID) (*domain.Offering, error) {
	return t.getOffering(ctx, id, true)
}

func (t *pgTx) getOffering(ctx context.Context, id uuid.UUID, forUpdate bool) (*domain.Offering, error) {
	query := `SELECT ` + offeringColumns + ` FROM offerings WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var row offeringRow
	if err := t.tx.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundf("offering %s not found", id)
		}
		return nil, fmt.Errorf("failed to get offering: %w", err)
	}
	return row.toDomain(), nil
}

func (t *pgTx) Offerings(ctx context.Context, filter domain.OfferingFilter) ([]*domain.Offering, error) {
	query := `SELECT ` + offeringColumns + ` FROM offerings`
	var conditions []string
	var args []any
	if filter.MinPriceUSD != nil {
		args = append(args, *filter.MinPriceUSD)
		conditions = append(conditions, fmt.Sprintf("price_usd >= $%d", len(args)))
	}
	if filter.MaxPriceUSD != nil {
		args = append(args, *filter.MaxPriceUSD)
		conditions = append(conditions, fmt.Sprintf("price_usd <= $%d", len(args)))
	}
	if filter.Location != "" {
		args = append(args, "%"+filter.Location+"%")
		conditions = append(conditions, fmt.Sprintf("location ILIKE $%d", len(args)))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	var rows []offeringRow
	if err := t.tx.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list offerings: %w", err)
	}
	offerings := make([]*domain.Offering, len(rows))
	for i, row := range rows {
		offerings[i] = row.toDomain()
	}
	return offerings, nil
}

func (t *pgTx) UpdateOffering(ctx context.Context, offering *domain.Offering) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE offerings
		SET tokens_sold = $2, status = $3, contract_ref = $4, chain_name = $5,
			name = $6, description = $7, location = $8, image_url = $9, updated_at = $10
		WHERE id = $1`,
		offering.ID, offering.TokensSold, string(offering.Status), offering.ContractRef,
		offering.ChainName, offering.Name, offering.Description, offering.Location,
		offering.ImageURL, offering.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update offering: %w", err)
	}
	return requireOneRow(res, "offering", offering.ID)
}

type positionRow struct {
	ID         uuid.UUID `db:"id"`
	AccountID  uuid.UUID `db:"account_id"`
	OfferingID uuid.UUID `db:"offering_id"`
	Tokens     int64     `db:"tokens"`
}

func (r positionRow) toDomain() *domain.Position {
	return &domain.Position{ID: r.ID, AccountID: r.AccountID, OfferingID: r.OfferingID, Tokens: r.Tokens}
}

func (t *pgTx) Position(ctx context.Context, accountID, offeringID uuid.UUID) (*domain.Position, error) {
	return t.getPosition(ctx, accountID, offeringID, false)
}

func (t *pgTx) PositionForUpdate(ctx context.Context, accountID, offeringID uuid.UUID) (*domain.Position, error) {
	return t.getPosition(ctx, accountID, offeringID, true)
}

func (t *pgTx) getPosition(ctx context.Context, accountID, offeringID uuid.UUID, forUpdate bool) (*domain.Position, error) {
	query := `SELECT id, account_id, offering_id, tokens FROM positions WHERE account_id = $1 AND offering_id = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var row positionRow
	if err := t.tx.GetContext(ctx, &row, query, accountID, offeringID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundf("position for account %s in offering %s not found", accountID, offeringID)
		}
		return nil, fmt.Errorf("failed to get position: %w", err)
	}
	return row.toDomain(), nil
}

func (t *pgTx) UpsertPosition(ctx context.Context, position *domain.Position) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO positions (id, account_id, offering_id, tokens)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account_id, offering_id) DO UPDATE SET tokens = EXCLUDED.tokens`,
		position.ID, position.AccountID, position.OfferingID, position.Tokens)
	if err != nil {
		return fmt.Errorf("failed to upsert position: %w", err)
	}
	return nil
}

func (t *pgTx) PositionsByAccount(ctx context.Context, accountID uuid.UUID) ([]*domain.Position, error) {
	return t.listPositions(ctx, `account_id`, accountID)
}

func (t *pgTx) PositionsByOffering(ctx context.Context, offeringID uuid.UUID) ([]*domain.Position, error) {
	return t.listPositions(ctx, `offering_id`, offeringID)
}

func (t *pgTx) listPositions(ctx context.Context, column string, id uuid.UUID) ([]*domain.Position, error) {
	var rows []positionRow
	err := t.tx.SelectContext(ctx, &rows,
		`SELECT id, account_id, offering_id, tokens FROM positions WHERE `+column+` = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}
	positions := make([]*domain.Position, len(rows))
	for i, row := range rows {
		positions[i] = row.toDomain()
	}
	return positions, nil
}

type investmentRow struct {
	ID          uuid.UUID       `db:"id"`
	AccountID   uuid.UUID       `db:"account_id"`
	OfferingID  uuid.UUID       `db:"offering_id"`
	Tokens      int64           `db:"tokens"`
	InvestedUSD decimal.Decimal `db:"invested_usd"`
	CreatedAt   time.Time       `db:"created_at"`
}

func (t *pgTx) CreateInvestment(ctx context.Context, record *domain.InvestmentRecord) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO investments (id, account_id, offering_id, tokens, invested_usd, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		record.ID, record.AccountID, record.OfferingID, record.Tokens, record.InvestedUSD, record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create investment record: %w", err)
	}
	return nil
}

func (t *pgTx) Investments(ctx context.Context, accountID *uuid.UUID) ([]*domain.InvestmentRecord, error) {
	query := `SELECT id, account_id, offering_id, tokens, invested_usd, created_at FROM investments`
	var args []any
	if accountID != nil {
		query += ` WHERE account_id = $1`
		args = append(args, *accountID)
	}
	query += ` ORDER BY created_at DESC`

	var rows []investmentRow
	if err := t.tx.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list investments: %w", err)
	}
	records := make([]*domain.InvestmentRecord, len(rows))
	for i, row := range rows {
		records[i] = &domain.InvestmentRecord{
			ID:          row.ID,
			AccountID:   row.AccountID,
			OfferingID:  row.OfferingID,
			Tokens:      row.Tokens,
			InvestedUSD: row.InvestedUSD,
			CreatedAt:   row.CreatedAt,
		}
	}
	return records, nil
}
