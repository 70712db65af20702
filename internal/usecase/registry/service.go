package registry

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/rtavares/brickvault-backend/internal/domain"
)

// Service manages the non-settlement ledger entities: account onboarding,
// custodial wallet provisioning and the offering catalog, including the
// on-chain contract deployment for an offering.
type Service struct {
	ledger         domain.Ledger
	gateway        domain.ChainGateway
	initialBalance decimal.Decimal
	chainName      string
	log            zerolog.Logger
}

// NewService creates a new registry Service. initialBalance is the mock cash
// granted to every new account.
func NewService(ledger domain.Ledger, gateway domain.ChainGateway, initialBalance decimal.Decimal, log zerolog.Logger) *Service {
	return &Service{
		ledger:         ledger,
		gateway:        gateway,
		initialBalance: initialBalance,
		chainName:      "solana",
		log:            log,
	}
}

// CreateAccount registers a new account with the configured initial cash
// balance.
func (s *Service) CreateAccount(ctx context.Context, email, fullName string) (*domain.Account, error) {
	now := time.Now().UTC()
	account := &domain.Account{
		ID:          uuid.New(),
		Email:       email,
		FullName:    fullName,
		CashBalance: s.initialBalance,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := account.Validate(); err != nil {
		return nil, err
	}

	err := s.ledger.InTx(ctx, func(tx domain.Tx) error {
		return tx.CreateAccount(ctx, account)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("account_id", account.ID.String()).Msg("account created")
	return account, nil
}

// Account fetches one account.
func (s *Service) Account(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	var out *domain.Account
	err := s.ledger.InTx(ctx, func(tx domain.Tx) error {
		var err error
		out, err = tx.Account(ctx, id)
		return err
	})
	return out, err
}

// Accounts lists all accounts, newest first.
func (s *Service) Accounts(ctx context.Context) ([]*domain.Account, error) {
	var out []*domain.Account
	err := s.ledger.InTx(ctx, func(tx domain.Tx) error {
		var err error
		out, err = tx.Accounts(ctx)
		return err
	})
	return out, err
}

// EnsureWallet assigns a custodial wallet pair to the account if it has
// none. The pair is immutable once assigned. Gas funding afterwards is best
// effort; its failure never fails the call.
func (s *Service) EnsureWallet(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	var account *domain.Account
	err := s.ledger.InTx(ctx, func(tx domain.Tx) error {
		var err error
		account, err = tx.Account(ctx, accountID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if account.HasWallet() {
		return account, nil
	}
	if !s.gateway.Enabled() {
		return nil, domain.Conflictf("chain gateway is disabled, cannot provision wallet")
	}

	wallet, err := s.gateway.NewWallet(ctx)
	if err != nil {
		return nil, err
	}

	err = s.ledger.InTx(ctx, func(tx domain.Tx) error {
		account, err = tx.AccountForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		// A concurrent provisioner may have won; the first pair stands.
		if account.HasWallet() {
			return nil
		}
		account.WalletAddress = wallet.Address
		account.WalletPrivateKey = wallet.PrivateKey
		account.UpdatedAt = time.Now().UTC()
		return tx.UpdateAccount(ctx, account)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("account_id", accountID.String()).
		Str("wallet", account.WalletAddress).
		Msg("wallet provisioned")

	if txID, err := s.gateway.FundGas(ctx, account.WalletAddress); err != nil {
		s.log.Warn().Err(err).Str("wallet", account.WalletAddress).Msg("gas funding failed")
	} else {
		s.log.Info().Str("wallet", account.WalletAddress).Str("tx_id", txID).Msg("wallet funded with gas")
	}

	return account, nil
}

// CreateOfferingInput carries the fields of a new offering.
type CreateOfferingInput struct {
	Name                       string
	Description                string
	Location                   string
	PriceUSD                   int64
	ExpectedAnnualYieldPercent float64
	ImageURL                   string
}

// CreateOffering registers a new offering. The token supply equals the
// price: 1 token = 1 USD, fixed for the lifetime of the offering.
func (s *Service) CreateOffering(ctx context.Context, input CreateOfferingInput) (*domain.Offering, error) {
	now := time.Now().UTC()
	offering := &domain.Offering{
		ID:                         uuid.New(),
		Name:                       input.Name,
		Description:                input.Description,
		Location:                   input.Location,
		PriceUSD:                   input.PriceUSD,
		TotalTokens:                input.PriceUSD,
		TokensSold:                 0,
		ExpectedAnnualYieldPercent: input.ExpectedAnnualYieldPercent,
		Status:                     domain.OfferingStatusOffering,
		ImageURL:                   input.ImageURL,
		ChainName:                  s.chainName,
		CreatedAt:                  now,
		UpdatedAt:                  now,
	}
	if err := offering.Validate(); err != nil {
		return nil, err
	}

	err := s.ledger.InTx(ctx, func(tx domain.Tx) error {
		return tx.CreateOffering(ctx, offering)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("offering_id", offering.ID.String()).
		Int64("total_tokens", offering.TotalTokens).
		Msg("offering created")
	return offering, nil
}

// Offering fetches one offering.
func (s *Service) Offering(ctx context.Context, id uuid.UUID) (*domain.Offering, error) {
	var out *domain.Offering
	err := s.ledger.InTx(ctx, func(tx domain.Tx) error {
		var err error
		out, err = tx.Offering(ctx, id)
		return err
	})
	return out, err
}

// Offerings lists offerings matching the filter, newest first.
func (s *Service) Offerings(ctx context.Context, filter domain.OfferingFilter) ([]*domain.Offering, error) {
	if filter.MinPriceUSD != nil && *filter.MinPriceUSD < 0 {
		return nil, domain.Invalidf("min price must not be negative")
	}
	if filter.MaxPriceUSD != nil && *filter.MaxPriceUSD < 0 {
		return nil, domain.Invalidf("max price must not be negative")
	}
	var out []*domain.Offering
	err := s.ledger.InTx(ctx, func(tx domain.Tx) error {
		var err error
		out, err = tx.Offerings(ctx, filter)
		return err
	})
	return out, err
}

// DeployOffering deploys the offering's token contract and records the
// contract reference. Unlike settlement mirroring, the chain call here
// precedes the ledger write: a deploy failure surfaces to the caller and
// nothing is recorded.
func (s *Service) DeployOffering(ctx context.Context, offeringID uuid.UUID) (*domain.Offering, error) {
	if !s.gateway.Enabled() {
		return nil, domain.Conflictf("chain gateway is disabled, cannot deploy contract")
	}

	var offering *domain.Offering
	err := s.ledger.InTx(ctx, func(tx domain.Tx) error {
		var err error
		offering, err = tx.Offering(ctx, offeringID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if offering.Deployed() {
		return nil, domain.Conflictf("offering already has a contract deployed at %s", offering.ContractRef)
	}

	txID, contractRef, err := s.gateway.Deploy(ctx, offering.ID, offering.TotalTokens, map[string]string{
		"name":     offering.Name,
		"location": offering.Location,
	})
	if err != nil {
		return nil, err
	}

	err = s.ledger.InTx(ctx, func(tx domain.Tx) error {
		offering, err = tx.OfferingForUpdate(ctx, offeringID)
		if err != nil {
			return err
		}
		if offering.Deployed() {
			return domain.Conflictf("offering already has a contract deployed at %s", offering.ContractRef)
		}
		offering.ContractRef = contractRef
		offering.ChainName = s.chainName
		offering.UpdatedAt = time.Now().UTC()
		return tx.UpdateOffering(ctx, offering)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("offering_id", offeringID.String()).
		Str("contract", contractRef).
		Str("tx_id", txID).
		Msg("offering contract deployed")
	return offering, nil
}
