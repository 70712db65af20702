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

type accountRow struct {
	ID               uuid.UUID       `db:"id"`
	Email            string          `db:"email"`
	FullName         string          `db:"full_name"`
	CashBalance      decimal.Decimal `db:"cash_balance"`
	WalletAddress    string          `db:"wallet_address"`
	WalletPrivateKey string          `db:"wallet_private_key"`
	CreatedAt        time.Time       `db:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at"`
}

func (r accountRow) toDomain() *domain.Account {
	return &domain.Account{
		ID:               r.ID,
		Email:            r.Email,
		FullName:         r.FullName,
		CashBalance:      r.CashBalance,
		WalletAddress:    r.WalletAddress,
		WalletPrivateKey: r.WalletPrivateKey,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

const accountColumns = `id, email, full_name, cash_balance, wallet_address, wallet_private_key, created_at, updated_at`

func (t *pgTx) CreateAccount(ctx context.Context, account *domain.Account) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO accounts (id, email, full_name, cash_balance, wallet_address, wallet_private_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		account.ID, account.Email, account.FullName, account.CashBalance,
		account.WalletAddress, account.WalletPrivateKey, account.CreatedAt, account.UpdatedAt)
	if isUniqueViolation(err) {
		return domain.Conflictf("account with email %s already exists", account.Email)
	}
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (t *pgTx) Account(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return t.getAccount(ctx, id, false)
}

func (t *pgTx) AccountForUpdate(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return t.getAccount(ctx, id, true)
}

func (t *pgTx) getAccount(ctx context.Context, id uuid.UUID, forUpdate bool) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var row accountRow
	if err := t.tx.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundf("account %s not found", id)
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return row.toDomain(), nil
}

func (t *pgTx) Accounts(ctx context.Context) ([]*domain.Account, error) {
	var rows []accountRow
	err := t.tx.SelectContext(ctx, &rows,
		`SELECT `+accountColumns+` FROM accounts ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	accounts := make([]*domain.Account, len(rows))
	for i, row := range rows {
		accounts[i] = row.toDomain()
	}
	return accounts, nil
}

func (t *pgTx) UpdateAccount(ctx context.Context, account *domain.Account) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE accounts
		SET cash_balance = $2, wallet_address = $3, wallet_private_key = $4, full_name = $5, updated_at = $6
		WHERE id = $1`,
		account.ID, account.CashBalance, account.WalletAddress,
		account.WalletPrivateKey, account.FullName, account.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	return requireOneRow(res, "account", account.ID)
}

// requireOneRow maps an update that hit no rows to ErrNotFound.
func requireOneRow(res sql.Result, entity string, id uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return domain.NotFoundf("%s %s not found", entity, id)
	}
	return nil
}
