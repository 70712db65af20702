package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestOffering_Validate(t *testing.T) {
	tests := []struct {
		name     string
		offering Offering
		wantErr  bool
		errMsg   string
	}{
		{
			name: "valid offering passes",
			offering: Offering{
				ID:          uuid.New(),
				Name:        "Unit 101 - Garden View",
				PriceUSD:    1000,
				TotalTokens: 1000,
				TokensSold:  0,
				Status:      OfferingStatusOffering,
			},
		},
		{
			name: "tokens sold above supply fails",
			offering: Offering{
				ID:          uuid.New(),
				Name:        "Unit 101",
				PriceUSD:    1000,
				TotalTokens: 1000,
				TokensSold:  1001,
			},
			wantErr: true,
			errMsg:  "tokens sold",
		},
		{
			name: "zero supply fails",
			offering: Offering{
				ID:       uuid.New(),
				Name:     "Unit 101",
				PriceUSD: 1000,
			},
			wantErr: true,
			errMsg:  "total tokens must be positive",
		},
		{
			name: "negative yield fails",
			offering: Offering{
				ID:                         uuid.New(),
				Name:                       "Unit 101",
				PriceUSD:                   1000,
				TotalTokens:                1000,
				ExpectedAnnualYieldPercent: -1,
			},
			wantErr: true,
			errMsg:  "yield",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.offering.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOffering_TokensAvailable(t *testing.T) {
	o := Offering{TotalTokens: 1000, TokensSold: 400}
	assert.Equal(t, int64(600), o.TokensAvailable())
	assert.False(t, o.FullyFunded())

	o.TokensSold = 1000
	assert.Equal(t, int64(0), o.TokensAvailable())
	assert.True(t, o.FullyFunded())
}

func TestListing_Validate(t *testing.T) {
	l := Listing{
		ID:              uuid.New(),
		SellerID:        uuid.New(),
		OfferingID:      uuid.New(),
		TokensListed:    200,
		TokensRemaining: 200,
		PricePerToken:   decimal.RequireFromString("0.95"),
		Status:          ListingStatusActive,
	}
	assert.NoError(t, l.Validate())
	assert.False(t, l.Terminal())

	l.TokensRemaining = 201
	assert.Error(t, l.Validate())

	l.TokensRemaining = 0
	l.PricePerToken = decimal.Zero
	assert.Error(t, l.Validate())

	l.Status = ListingStatusCompleted
	assert.True(t, l.Terminal())
}

func TestAccount_Wallet(t *testing.T) {
	a := Account{ID: uuid.New(), Email: "ana@example.com", CashBalance: decimal.NewFromInt(100)}
	assert.NoError(t, a.Validate())
	assert.False(t, a.HasWallet())

	a.WalletAddress = "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"
	a.WalletPrivateKey = "secret"
	assert.True(t, a.HasWallet())

	a.CashBalance = decimal.NewFromInt(-1)
	assert.True(t, IsInvalid(a.Validate()))
}
