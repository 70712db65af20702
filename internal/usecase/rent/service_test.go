package rent

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtavares/brickvault-backend/internal/adapter/repository/memory"
	"github.com/rtavares/brickvault-backend/internal/domain"
)

type fixture struct {
	store    *memory.Store
	offering *domain.Offering
	holders  []*domain.Account
}

// newFixture seeds a fully funded offering and holders with the given token
// positions.
func newFixture(t *testing.T, totalTokens int64, holdings ...int64) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	f := &fixture{
		store: store,
		offering: &domain.Offering{
			ID:          uuid.New(),
			Name:        "Garden Court",
			Location:    "Barcelona",
			PriceUSD:    totalTokens,
			TotalTokens: totalTokens,
			TokensSold:  totalTokens,
			Status:      domain.OfferingStatusFunded,
		},
	}
	require.NoError(t, store.InTx(ctx, func(tx domain.Tx) error {
		require.NoError(t, tx.CreateOffering(ctx, f.offering))
		for _, tokens := range holdings {
			account := &domain.Account{
				ID:          uuid.New(),
				Email:       uuid.New().String() + "@example.com",
				CashBalance: decimal.NewFromInt(1000),
			}
			require.NoError(t, tx.CreateAccount(ctx, account))
			f.holders = append(f.holders, account)
			if tokens > 0 {
				require.NoError(t, tx.UpsertPosition(ctx, &domain.Position{
					ID:         uuid.New(),
					AccountID:  account.ID,
					OfferingID: f.offering.ID,
					Tokens:     tokens,
				}))
			}
		}
		return nil
	}))
	return f
}

// approveRent seeds an approved rent-decision proposal whose winning option
// is the given rent string, voted by the first holder.
func (f *fixture) approveRent(t *testing.T, rentOption string) *domain.Proposal {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	proposal := &domain.Proposal{
		ID:         uuid.New(),
		OfferingID: f.offering.ID,
		Title:      "Set monthly rent",
		Type:       domain.ProposalTypeRentDecision,
		Options:    []string{rentOption, "0"},
		Status:     domain.ProposalStatusApproved,
		CreatedBy:  f.holders[0].ID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, f.store.InTx(ctx, func(tx domain.Tx) error {
		require.NoError(t, tx.CreateProposal(ctx, proposal))
		position, err := tx.Position(ctx, f.holders[0].ID, f.offering.ID)
		require.NoError(t, err)
		return tx.CreateVote(ctx, &domain.Vote{
			ID:           uuid.New(),
			ProposalID:   proposal.ID,
			AccountID:    f.holders[0].ID,
			OptionIndex:  0,
			WeightTokens: position.Tokens,
			CreatedAt:    now,
		})
	}))
	return proposal
}

func TestStatus_NotRentedWithoutApprovedProposal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1000, 1000)
	service := NewService(f.store, zerolog.Nop())

	status, err := service.Status(ctx, f.offering.ID)
	require.NoError(t, err)
	assert.False(t, status.IsRented)
	assert.True(t, status.MonthlyRent.IsZero())
}

func TestStatus_UsesApprovedRentDecisionWinner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1000, 1000)
	proposal := f.approveRent(t, "1200.50")
	service := NewService(f.store, zerolog.Nop())

	status, err := service.Status(ctx, f.offering.ID)
	require.NoError(t, err)
	assert.True(t, status.IsRented)
	assert.True(t, status.MonthlyRent.Equal(decimal.RequireFromString("1200.50")))
	assert.Equal(t, proposal.ID, status.ProposalID)
	assert.Equal(t, "Set monthly rent", status.ProposalTitle)
}

func TestStatus_LatestApprovalWins(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1000, 1000)
	f.approveRent(t, "1000")
	second := f.approveRent(t, "1500")

	// The second approval is newer.
	require.NoError(t, f.store.InTx(ctx, func(tx domain.Tx) error {
		proposal, err := tx.ProposalForUpdate(ctx, second.ID)
		require.NoError(t, err)
		proposal.UpdatedAt = time.Now().UTC().Add(time.Hour)
		return tx.UpdateProposal(ctx, proposal)
	}))

	service := NewService(f.store, zerolog.Nop())
	status, err := service.Status(ctx, f.offering.ID)
	require.NoError(t, err)
	assert.True(t, status.IsRented)
	assert.True(t, status.MonthlyRent.Equal(decimal.NewFromInt(1500)))
	assert.Equal(t, second.ID, status.ProposalID)
}

func TestStatus_UnparsableWinnerMeansNotRented(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1000, 1000)
	f.approveRent(t, "renovate instead")
	service := NewService(f.store, zerolog.Nop())

	status, err := service.Status(ctx, f.offering.ID)
	require.NoError(t, err)
	assert.False(t, status.IsRented)
	assert.True(t, status.MonthlyRent.IsZero())
}

func TestPayout_ProRataShare(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1000, 250, 750)
	f.approveRent(t, "2000")
	service := NewService(f.store, zerolog.Nop())

	payout, err := service.Payout(ctx, f.offering.ID, f.holders[0].ID)
	require.NoError(t, err)
	assert.True(t, payout.HasTokens)
	assert.True(t, payout.IsRented)
	assert.Equal(t, int64(250), payout.TokensOwned)
	assert.Equal(t, int64(1000), payout.TotalTokens)
	assert.InDelta(t, 25.0, payout.OwnershipPercent, 0.001)
	assert.True(t, payout.MonthlyPayout.Equal(decimal.NewFromInt(500)), "payout %s", payout.MonthlyPayout)
}

func TestPayout_NoTokens(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1000, 1000, 0)
	f.approveRent(t, "2000")
	service := NewService(f.store, zerolog.Nop())

	payout, err := service.Payout(ctx, f.offering.ID, f.holders[1].ID)
	require.NoError(t, err)
	assert.False(t, payout.HasTokens)
	assert.True(t, payout.MonthlyPayout.IsZero())
}

func TestClaim_StandardFlow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1000, 400, 600)
	f.approveRent(t, "1000")
	service := NewService(f.store, zerolog.Nop())

	res, err := service.Claim(ctx, f.offering.ID, f.holders[0].ID)
	require.NoError(t, err)

	assert.True(t, res.Claim.AmountUSD.Equal(decimal.NewFromInt(400)), "amount %s", res.Claim.AmountUSD)
	assert.Equal(t, int64(400), res.Claim.TokensAtClaim)
	assert.True(t, res.Claim.MonthlyRentAtClaim.Equal(decimal.NewFromInt(1000)))
	assert.True(t, res.NewBalance.Equal(decimal.NewFromInt(1400)))

	period := domain.PeriodOf(time.Now().UTC())
	assert.Equal(t, period.Year, res.Claim.PeriodYear)
	assert.Equal(t, period.Month, res.Claim.PeriodMonth)

	claims, err := service.Claims(ctx, f.holders[0].ID)
	require.NoError(t, err)
	assert.Len(t, claims, 1)
}

func TestClaim_OncePerMonth(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1000, 400, 600)
	f.approveRent(t, "1000")
	service := NewService(f.store, zerolog.Nop())

	_, err := service.Claim(ctx, f.offering.ID, f.holders[0].ID)
	require.NoError(t, err)

	_, err = service.Claim(ctx, f.offering.ID, f.holders[0].ID)
	require.Error(t, err)
	assert.True(t, domain.IsConflict(err))
	assert.Contains(t, err.Error(), "already claimed")

	// The rejected retry moved no cash.
	require.NoError(t, f.store.InTx(ctx, func(tx domain.Tx) error {
		account, err := tx.Account(ctx, f.holders[0].ID)
		require.NoError(t, err)
		assert.True(t, account.CashBalance.Equal(decimal.NewFromInt(1400)))
		return nil
	}))
}

func TestClaim_EachHolderClaimsTheirShare(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1000, 400, 600)
	f.approveRent(t, "1000")
	service := NewService(f.store, zerolog.Nop())

	first, err := service.Claim(ctx, f.offering.ID, f.holders[0].ID)
	require.NoError(t, err)
	second, err := service.Claim(ctx, f.offering.ID, f.holders[1].ID)
	require.NoError(t, err)

	total := first.Claim.AmountUSD.Add(second.Claim.AmountUSD)
	assert.True(t, total.Equal(decimal.NewFromInt(1000)), "total %s", total)
}

func TestClaim_RejectsNonHolderAndUnrented(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1000, 1000, 0)
	service := NewService(f.store, zerolog.Nop())

	// Not rented yet.
	_, err := service.Claim(ctx, f.offering.ID, f.holders[0].ID)
	require.Error(t, err)
	assert.True(t, domain.IsConflict(err))

	f.approveRent(t, "1000")

	// No tokens.
	_, err = service.Claim(ctx, f.offering.ID, f.holders[1].ID)
	require.Error(t, err)
	assert.True(t, domain.IsConflict(err))
}

func TestClaim_SnapshotSurvivesLaterRentChange(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1000, 500, 500)
	f.approveRent(t, "1000")
	service := NewService(f.store, zerolog.Nop())

	res, err := service.Claim(ctx, f.offering.ID, f.holders[0].ID)
	require.NoError(t, err)
	assert.True(t, res.Claim.MonthlyRentAtClaim.Equal(decimal.NewFromInt(1000)))

	// The rent changes afterwards; the stored claim keeps its snapshot.
	newer := f.approveRent(t, "2000")
	require.NoError(t, f.store.InTx(ctx, func(tx domain.Tx) error {
		proposal, err := tx.ProposalForUpdate(ctx, newer.ID)
		require.NoError(t, err)
		proposal.UpdatedAt = time.Now().UTC().Add(time.Hour)
		return tx.UpdateProposal(ctx, proposal)
	}))

	claims, err := service.Claims(ctx, f.holders[0].ID)
	require.NoError(t, err)
	require.Len(t, claims, 1)
	assert.True(t, claims[0].MonthlyRentAtClaim.Equal(decimal.NewFromInt(1000)))
	assert.True(t, claims[0].AmountUSD.Equal(decimal.NewFromInt(500)))
}
