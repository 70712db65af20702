package governance

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

// newFixture seeds one fully funded offering and holders with the given
// token positions.
func newFixture(t *testing.T, totalTokens int64, holdings ...int64) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	f := &fixture{
		store: store,
		offering: &domain.Offering{
			ID:          uuid.New(),
			Name:        "Skyline Residences",
			Location:    "Madrid",
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

func (f *fixture) propose(t *testing.T, service *Service, proposalType domain.ProposalType, options ...string) *domain.Proposal {
	t.Helper()
	proposal, err := service.CreateProposal(context.Background(), CreateProposalInput{
		OfferingID: f.offering.ID,
		CreatedBy:  f.holders[0].ID,
		Title:      "Test question",
		Type:       proposalType,
		Options:    options,
	})
	require.NoError(t, err)
	return proposal
}

func TestCreateProposal_StandardFlow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1000, 600, 400)
	service := NewService(f.store, zerolog.Nop())

	proposal, err := service.CreateProposal(ctx, CreateProposalInput{
		OfferingID:       f.offering.ID,
		CreatedBy:        f.holders[0].ID,
		Title:            "Repaint the facade?",
		Type:             domain.ProposalTypeGeneral,
		Options:          []string{"Yes", "No"},
		MinQuorumPercent: 30,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ProposalStatusActive, proposal.Status)
	assert.Equal(t, domain.ProposalTypeGeneral, proposal.Type)
}

func TestCreateProposal_WindowDerivesStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1000, 1000)
	service := NewService(f.store, zerolog.Nop())

	start := time.Now().UTC().Add(24 * time.Hour)
	end := start.Add(48 * time.Hour)
	proposal, err := service.CreateProposal(ctx, CreateProposalInput{
		OfferingID: f.offering.ID,
		CreatedBy:  f.holders[0].ID,
		Title:      "Future vote",
		Options:    []string{"A", "B"},
		StartAt:    &start,
		EndAt:      &end,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ProposalStatusDraft, proposal.Status)
}

func TestCreateProposal_RequiresFullyFundedOffering(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	offering := &domain.Offering{
		ID:          uuid.New(),
		Name:        "Half Sold",
		PriceUSD:    1000,
		TotalTokens: 1000,
		TokensSold:  500,
		Status:      domain.OfferingStatusOffering,
	}
	holder := &domain.Account{ID: uuid.New(), Email: "h@example.com", CashBalance: decimal.Zero}
	require.NoError(t, store.InTx(ctx, func(tx domain.Tx) error {
		require.NoError(t, tx.CreateOffering(ctx, offering))
		require.NoError(t, tx.CreateAccount(ctx, holder))
		return tx.UpsertPosition(ctx, &domain.Position{
			ID: uuid.New(), AccountID: holder.ID, OfferingID: offering.ID, Tokens: 500,
		})
	}))

	service := NewService(store, zerolog.Nop())
	_, err := service.CreateProposal(ctx, CreateProposalInput{
		OfferingID: offering.ID,
		CreatedBy:  holder.ID,
		Title:      "Too early",
		Options:    []string{"Yes", "No"},
	})
	require.Error(t, err)
	assert.True(t, domain.IsConflict(err))
}

func TestCreateProposal_RequiresTokenHolder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1000, 1000, 0)
	service := NewService(f.store, zerolog.Nop())

	_, err := service.CreateProposal(ctx, CreateProposalInput{
		OfferingID: f.offering.ID,
		CreatedBy:  f.holders[1].ID,
		Title:      "Outsider question",
		Options:    []string{"Yes", "No"},
	})
	require.Error(t, err)
	assert.True(t, domain.IsConflict(err))
}

func TestCreateProposal_RequiresTwoOptions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1000, 1000)
	service := NewService(f.store, zerolog.Nop())

	_, err := service.CreateProposal(ctx, CreateProposalInput{
		OfferingID: f.offering.ID,
		CreatedBy:  f.holders[0].ID,
		Title:      "Single choice",
		Options:    []string{"Only"},
	})
	require.Error(t, err)
	assert.True(t, domain.IsInvalid(err))
}

func TestCastVote_FreezesWeightAtCastTime(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1000, 600, 400)
	service := NewService(f.store, zerolog.Nop())
	proposal := f.propose(t, service, domain.ProposalTypeGeneral, "Yes", "No")

	vote, err := service.CastVote(ctx, proposal.ID, f.holders[0].ID, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(600), vote.WeightTokens)

	// The voter sells everything after casting; the weight stays frozen.
	require.NoError(t, f.store.InTx(ctx, func(tx domain.Tx) error {
		position, err := tx.PositionForUpdate(ctx, f.holders[0].ID, f.offering.ID)
		require.NoError(t, err)
		position.Tokens = 0
		return tx.UpsertPosition(ctx, position)
	}))

	res, err := service.Results(ctx, proposal.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(600), res.VotesCast)
	assert.Equal(t, "Yes", res.WinningOption)
}

func TestCastVote_OnePerAccount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1000, 600, 400)
	service := NewService(f.store, zerolog.Nop())
	proposal := f.propose(t, service, domain.ProposalTypeGeneral, "Yes", "No")

	_, err := service.CastVote(ctx, proposal.ID, f.holders[0].ID, 0)
	require.NoError(t, err)

	_, err = service.CastVote(ctx, proposal.ID, f.holders[0].ID, 1)
	require.Error(t, err)
	assert.True(t, domain.IsConflict(err))

	res, err := service.Results(ctx, proposal.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(600), res.VotesCast)
}

func TestCastVote_RejectsNonHolderAndBadIndex(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1000, 1000, 0)
	service := NewService(f.store, zerolog.Nop())
	proposal := f.propose(t, service, domain.ProposalTypeGeneral, "Yes", "No")

	_, err := service.CastVote(ctx, proposal.ID, f.holders[1].ID, 0)
	require.Error(t, err)
	assert.True(t, domain.IsConflict(err))

	_, err = service.CastVote(ctx, proposal.ID, f.holders[0].ID, 2)
	require.Error(t, err)
	assert.True(t, domain.IsInvalid(err))

	_, err = service.CastVote(ctx, proposal.ID, f.holders[0].ID, -1)
	require.Error(t, err)
	assert.True(t, domain.IsInvalid(err))
}

func TestCastVote_RejectsClosedProposal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1000, 1000)
	service := NewService(f.store, zerolog.Nop())
	proposal := f.propose(t, service, domain.ProposalTypeGeneral, "Yes", "No")

	_, err := service.Close(ctx, proposal.ID)
	require.NoError(t, err)

	_, err = service.CastVote(ctx, proposal.ID, f.holders[0].ID, 0)
	require.Error(t, err)
	assert.True(t, domain.IsConflict(err))
}

func TestTally_WinnerQuorumAndPercentages(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1000, 500, 300, 100)
	service := NewService(f.store, zerolog.Nop())
	proposal := f.propose(t, service, domain.ProposalTypeGeneral, "Yes", "No", "Abstain")

	_, err := service.CastVote(ctx, proposal.ID, f.holders[0].ID, 0)
	require.NoError(t, err)
	_, err = service.CastVote(ctx, proposal.ID, f.holders[1].ID, 1)
	require.NoError(t, err)
	_, err = service.CastVote(ctx, proposal.ID, f.holders[2].ID, 1)
	require.NoError(t, err)

	res, err := service.Results(ctx, proposal.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(900), res.VotesCast)
	assert.Equal(t, int64(1000), res.TotalTokens)
	assert.True(t, res.QuorumReached)
	assert.True(t, res.HasWinner)
	assert.Equal(t, "Yes", res.WinningOption)

	require.Len(t, res.Options, 3)
	assert.Equal(t, int64(500), res.Options[0].Votes)
	assert.InDelta(t, 55.56, res.Options[0].Percentage, 0.001)
	assert.Equal(t, int64(400), res.Options[1].Votes)
	assert.InDelta(t, 44.44, res.Options[1].Percentage, 0.001)
	assert.Equal(t, int64(0), res.Options[2].Votes)
	assert.InDelta(t, 0.0, res.Options[2].Percentage, 0.001)
}

func TestTally_NoVotesMeansNoWinner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1000, 1000)
	service := NewService(f.store, zerolog.Nop())
	proposal := f.propose(t, service, domain.ProposalTypeGeneral, "Yes", "No")

	res, err := service.Results(ctx, proposal.ID)
	require.NoError(t, err)
	assert.False(t, res.HasWinner)
	assert.Empty(t, res.WinningOption)
	assert.Equal(t, int64(0), res.VotesCast)
	assert.False(t, res.QuorumReached)
}

func TestTally_TieResolvesToFirstOption(t *testing.T) {
	proposal := &domain.Proposal{
		ID:      uuid.New(),
		Options: []string{"A", "B", "C"},
	}
	votes := []*domain.Vote{
		{OptionIndex: 1, WeightTokens: 250},
		{OptionIndex: 2, WeightTokens: 250},
	}
	res := Tally(proposal, votes, 1000)
	assert.True(t, res.HasWinner)
	assert.Equal(t, "B", res.WinningOption)
}

func TestTally_QuorumComparesUnrounded(t *testing.T) {
	proposal := &domain.Proposal{
		ID:               uuid.New(),
		Options:          []string{"A", "B"},
		MinQuorumPercent: 33.34,
	}
	votes := []*domain.Vote{{OptionIndex: 0, WeightTokens: 3334}}
	res := Tally(proposal, votes, 10000)
	assert.True(t, res.QuorumReached)

	votes = []*domain.Vote{{OptionIndex: 0, WeightTokens: 3333}}
	res = Tally(proposal, votes, 10000)
	assert.False(t, res.QuorumReached)
}

func TestCloseAndApprove_Lifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1000, 1000)
	service := NewService(f.store, zerolog.Nop())
	proposal := f.propose(t, service, domain.ProposalTypeRentDecision, "1200.00", "1500.00")

	// Approving an active proposal is rejected.
	_, err := service.Approve(ctx, proposal.ID)
	require.Error(t, err)
	assert.True(t, domain.IsConflict(err))

	closed, err := service.Close(ctx, proposal.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProposalStatusClosed, closed.Status)

	// Closing twice is rejected.
	_, err = service.Close(ctx, proposal.ID)
	require.Error(t, err)
	assert.True(t, domain.IsConflict(err))

	approved, err := service.Approve(ctx, proposal.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProposalStatusApproved, approved.Status)

	// Approving twice is rejected.
	_, err = service.Approve(ctx, proposal.ID)
	require.Error(t, err)
	assert.True(t, domain.IsConflict(err))
}

func TestApprove_OnlyRentDecisions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1000, 1000)
	service := NewService(f.store, zerolog.Nop())
	proposal := f.propose(t, service, domain.ProposalTypeGeneral, "Yes", "No")

	_, err := service.Close(ctx, proposal.ID)
	require.NoError(t, err)

	_, err = service.Approve(ctx, proposal.ID)
	require.Error(t, err)
	assert.True(t, domain.IsConflict(err))
}

func TestProposals_FilterByTypeAndStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1000, 1000)
	service := NewService(f.store, zerolog.Nop())

	f.propose(t, service, domain.ProposalTypeGeneral, "Yes", "No")
	rent := f.propose(t, service, domain.ProposalTypeRentDecision, "1000", "1100")

	rentProposals, err := service.RentProposals(ctx, "")
	require.NoError(t, err)
	require.Len(t, rentProposals, 1)
	assert.Equal(t, rent.ID, rentProposals[0].ID)

	active, err := service.Proposals(ctx, domain.ProposalFilter{Status: domain.ProposalStatusActive})
	require.NoError(t, err)
	assert.Len(t, active, 2)

	closedProposals, err := service.Proposals(ctx, domain.ProposalFilter{Status: domain.ProposalStatusClosed})
	require.NoError(t, err)
	assert.Empty(t, closedProposals)
}
