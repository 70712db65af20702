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

type listingRow struct {
	ID              uuid.UUID       `db:"id"`
	SellerID        uuid.UUID       `db:"seller_id"`
	OfferingID      uuid.UUID       `db:"offering_id"`
	TokensListed    int64           `db:"tokens_listed"`
	TokensRemaining int64           `db:"tokens_remaining"`
	PricePerToken   decimal.Decimal `db:"price_per_token"`
	Status          string          `db:"status"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

func (r listingRow) toDomain() *domain.Listing {
	return &domain.Listing{
		ID:              r.ID,
		SellerID:        r.SellerID,
		OfferingID:      r.OfferingID,
		TokensListed:    r.TokensListed,
		TokensRemaining: r.TokensRemaining,
		PricePerToken:   r.PricePerToken,
		Status:          domain.ListingStatus(r.Status),
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

const listingColumns = `id, seller_id, offering_id, tokens_listed, tokens_remaining, price_per_token, status, created_at, updated_at`

func (t *pgTx) CreateListing(ctx context.Context, listing *domain.Listing) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO listings (id, seller_id, offering_id, tokens_listed, tokens_remaining, price_per_token, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		listing.ID, listing.SellerID, listing.OfferingID, listing.TokensListed,
		listing.TokensRemaining, listing.PricePerToken, string(listing.Status),
		listing.CreatedAt, listing.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create listing: %w", err)
	}
	return nil
}

func (t *pgTx) Listing(ctx context.Context, id uuid.UUID) (*domain.Listing, error) {
	return t.getListing(ctx, id, false)
}

func (t *pgTx) ListingForUpdate(ctx context.Context, id uuid.UUID) (*domain.Listing, error) {
	return t.getListing(ctx, id, true)
}

func (t *pgTx) getListing(ctx context.Context, id uuid.UUID, forUpdate bool) (*domain.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var row listingRow
	if err := t.tx.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundf("listing %s not found", id)
		}
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return row.toDomain(), nil
}

func (t *pgTx) Listings(ctx context.Context, filter domain.ListingFilter) ([]*domain.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings`
	var conditions []string
	var args []any
	if filter.OfferingID != nil {
		args = append(args, *filter.OfferingID)
		conditions = append(conditions, fmt.Sprintf("offering_id = $%d", len(args)))
	}
	if filter.SellerID != nil {
		args = append(args, *filter.SellerID)
		conditions = append(conditions, fmt.Sprintf("seller_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	var rows []listingRow
	if err := t.tx.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}
	listings := make([]*domain.Listing, len(rows))
	for i, row := range rows {
		listings[i] = row.toDomain()
	}
	return listings, nil
}

func (t *pgTx) UpdateListing(ctx context.Context, listing *domain.Listing) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE listings
		SET tokens_remaining = $2, status = $3, updated_at = $4
		WHERE id = $1`,
		listing.ID, listing.TokensRemaining, string(listing.Status), listing.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update listing: %w", err)
	}
	return requireOneRow(res, "listing", listing.ID)
}

type tradeRow struct {
	ID            uuid.UUID       `db:"id"`
	ListingID     uuid.UUID       `db:"listing_id"`
	BuyerID       uuid.UUID       `db:"buyer_id"`
	SellerID      uuid.UUID       `db:"seller_id"`
	OfferingID    uuid.UUID       `db:"offering_id"`
	Tokens        int64           `db:"tokens"`
	PricePerToken decimal.Decimal `db:"price_per_token"`
	TotalPrice    decimal.Decimal `db:"total_price"`
	PlatformFee   decimal.Decimal `db:"platform_fee"`
	SellerNet     decimal.Decimal `db:"seller_net"`
	CreatedAt     time.Time       `db:"created_at"`
}

func (t *pgTx) CreateTrade(ctx context.Context, record *domain.TradeRecord) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO trades (id, listing_id, buyer_id, seller_id, offering_id, tokens, price_per_token, total_price, platform_fee, seller_net, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		record.ID, record.ListingID, record.BuyerID, record.SellerID, record.OfferingID,
		record.Tokens, record.PricePerToken, record.TotalPrice, record.PlatformFee,
		record.SellerNet, record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create trade record: %w", err)
	}
	return nil
}

func (t *pgTx) Trades(ctx context.Context, filter domain.TradeFilter) ([]*domain.TradeRecord, error) {
	query := `SELECT id, listing_id, buyer_id, seller_id, offering_id, tokens, price_per_token, total_price, platform_fee, seller_net, created_at FROM trades`
	var conditions []string
	var args []any
	if filter.BuyerID != nil {
		args = append(args, *filter.BuyerID)
		conditions = append(conditions, fmt.Sprintf("buyer_id = $%d", len(args)))
	}
	if filter.SellerID != nil {
		args = append(args, *filter.SellerID)
		conditions = append(conditions, fmt.Sprintf("seller_id = $%d", len(args)))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	var rows []tradeRow
	if err := t.tx.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	trades := make([]*domain.TradeRecord, len(rows))
	for i, row := range rows {
		trades[i] = &domain.TradeRecord{
			ID:            row.ID,
			ListingID:     row.ListingID,
			BuyerID:       row.BuyerID,
			SellerID:      row.SellerID,
			OfferingID:    row.OfferingID,
			Tokens:        row.Tokens,
			PricePerToken: row.PricePerToken,
			TotalPrice:    row.TotalPrice,
			PlatformFee:   row.PlatformFee,
			SellerNet:     row.SellerNet,
			CreatedAt:     row.CreatedAt,
		}
	}
	return trades, nil
}
