package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/rtavares/brickvault-backend/internal/domain"
)

type proposalRow struct {
	ID               uuid.UUID      `db:"id"`
	OfferingID       uuid.UUID      `db:"offering_id"`
	Title            string         `db:"title"`
	Description      string         `db:"description"`
	Type             string         `db:"type"`
	Options          pq.StringArray `db:"options"`
	MinQuorumPercent float64        `db:"min_quorum_percent"`
	Status           string         `db:"status"`
	StartAt          *time.Time     `db:"start_at"`
	EndAt            *time.Time     `db:"end_at"`
	CreatedBy        uuid.UUID      `db:"created_by"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

func (r proposalRow) toDomain() *domain.Proposal {
	return &domain.Proposal{
		ID:               r.ID,
		OfferingID:       r.OfferingID,
		Title:            r.Title,
		Description:      r.Description,
		Type:             domain.ProposalType(r.Type),
		Options:          []string(r.Options),
		MinQuorumPercent: r.MinQuorumPercent,
		Status:           domain.ProposalStatus(r.Status),
		StartAt:          r.StartAt,
		EndAt:            r.EndAt,
		CreatedBy:        r.CreatedBy,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

const proposalColumns = `id, offering_id, title, description, type, options, min_quorum_percent, status, start_at, end_at, created_by, created_at, updated_at`

func (t *pgTx) CreateProposal(ctx context.Context, proposal *domain.Proposal) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO proposals (id, offering_id, title, description, type, options, min_quorum_percent, status, start_at, end_at, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		proposal.ID, proposal.OfferingID, proposal.Title, proposal.Description,
		string(proposal.Type), pq.StringArray(proposal.Options), proposal.MinQuorumPercent,
		string(proposal.Status), proposal.StartAt, proposal.EndAt, proposal.CreatedBy,
		proposal.CreatedAt, proposal.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create proposal: %w", err)
	}
	return nil
}

func (t *pgTx) Proposal(ctx context.Context, id uuid.UUID) (*domain.Proposal, error) {
	return t.getProposal(ctx, id, false)
}

func (t *pgTx) ProposalForUpdate(ctx context.Context, id uuid.UUID) (*domain.Proposal, error) {
	return t.getProposal(ctx, id, true)
}

func (t *pgTx) getProposal(ctx context.Context, id uuid.UUID, forUpdate bool) (*domain.Proposal, error) {
	query := `SELECT ` + proposalColumns + ` FROM proposals WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var row proposalRow
	if err := t.tx.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundf("proposal %s not found", id)
		}
		return nil, fmt.Errorf("failed to get proposal: %w", err)
	}
	return row.toDomain(), nil
}

func (t *pgTx) Proposals(ctx context.Context, filter domain.ProposalFilter) ([]*domain.Proposal, error) {
	query := `SELECT ` + proposalColumns + ` FROM proposals`
	var conditions []string
	var args []any
	if filter.OfferingID != nil {
		args = append(args, *filter.OfferingID)
		conditions = append(conditions, fmt.Sprintf("offering_id = $%d", len(args)))
	}
	if filter.CreatedBy != nil {
		args = append(args, *filter.CreatedBy)
		conditions = append(conditions, fmt.Sprintf("created_by = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Type != "" {
		args = append(args, string(filter.Type))
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	var rows []proposalRow
	if err := t.tx.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list proposals: %w", err)
	}
	proposals := make([]*domain.Proposal, len(rows))
	for i, row := range rows {
		proposals[i] = row.toDomain()
	}
	return proposals, nil
}

func (t *pgTx) UpdateProposal(ctx context.Context, proposal *domain.Proposal) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE proposals
		SET status = $2, title = $3, description = $4, updated_at = $5
		WHERE id = $1`,
		proposal.ID, string(proposal.Status), proposal.Title, proposal.Description, proposal.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update proposal: %w", err)
	}
	return requireOneRow(res, "proposal", proposal.ID)
}

func (t *pgTx) LatestApprovedRentProposal(ctx context.Context, offeringID uuid.UUID) (*domain.Proposal, error) {
	var row proposalRow
	err := t.tx.GetContext(ctx, &row, `
		SELECT `+proposalColumns+` FROM proposals
		WHERE offering_id = $1 AND type = $2 AND status = $3
		ORDER BY updated_at DESC
		LIMIT 1`,
		offeringID, string(domain.ProposalTypeRentDecision), string(domain.ProposalStatusApproved))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("no approved rent decision for offering %s", offeringID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest approved rent proposal: %w", err)
	}
	return row.toDomain(), nil
}

type voteRow struct {
	ID           uuid.UUID `db:"id"`
	ProposalID   uuid.UUID `db:"proposal_id"`
	AccountID    uuid.UUID `db:"account_id"`
	OptionIndex  int       `db:"option_index"`
	WeightTokens int64     `db:"weight_tokens"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r voteRow) toDomain() *domain.Vote {
	return &domain.Vote{
		ID:           r.ID,
		ProposalID:   r.ProposalID,
		AccountID:    r.AccountID,
		OptionIndex:  r.OptionIndex,
		WeightTokens: r.WeightTokens,
		CreatedAt:    r.CreatedAt,
	}
}

func (t *pgTx) CreateVote(ctx context.Context, vote *domain.Vote) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO votes (id, proposal_id, account_id, option_index, weight_tokens, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		vote.ID, vote.ProposalID, vote.AccountID, vote.OptionIndex, vote.WeightTokens, vote.CreatedAt)
	if isUniqueViolation(err) {
		return domain.Conflictf("account %s has already voted on proposal %s", vote.AccountID, vote.ProposalID)
	}
	if err != nil {
		return fmt.Errorf("failed to create vote: %w", err)
	}
	return nil
}

func (t *pgTx) VoteByAccount(ctx context.Context, proposalID, accountID uuid.UUID) (*domain.Vote, error) {
	var row voteRow
	err := t.tx.GetContext(ctx, &row, `
		SELECT id, proposal_id, account_id, option_index, weight_tokens, created_at
		FROM votes WHERE proposal_id = $1 AND account_id = $2`,
		proposalID, accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("vote by account %s on proposal %s not found", accountID, proposalID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vote: %w", err)
	}
	return row.toDomain(), nil
}

func (t *pgTx) VotesByProposal(ctx context.Context, proposalID uuid.UUID) ([]*domain.Vote, error) {
	var rows []voteRow
	err := t.tx.SelectContext(ctx, &rows, `
		SELECT id, proposal_id, account_id, option_index, weight_tokens, created_at
		FROM votes WHERE proposal_id = $1 ORDER BY created_at`,
		proposalID)
	if err != nil {
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}
	votes := make([]*domain.Vote, len(rows))
	for i, row := range rows {
		votes[i] = row.toDomain()
	}
	return votes, nil
}
