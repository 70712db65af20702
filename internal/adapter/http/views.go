package http

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rtavares/brickvault-backend/internal/domain"
)

// accountView never exposes the custodial private key.
type accountView struct {
	ID            uuid.UUID       `json:"id"`
	Email         string          `json:"email"`
	FullName      string          `json:"full_name"`
	CashBalance   decimal.Decimal `json:"cash_balance"`
	WalletAddress string          `json:"wallet_address,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

func toAccountView(a *domain.Account) accountView {
	return accountView{
		ID:            a.ID,
		Email:         a.Email,
		FullName:      a.FullName,
		CashBalance:   a.CashBalance,
		WalletAddress: a.WalletAddress,
		CreatedAt:     a.CreatedAt,
	}
}

func toAccountViews(accounts []*domain.Account) []accountView {
	views := make([]accountView, len(accounts))
	for i, a := range accounts {
		views[i] = toAccountView(a)
	}
	return views
}

type offeringView struct {
	ID                         uuid.UUID             `json:"id"`
	Name                       string                `json:"name"`
	Description                string                `json:"description"`
	Location                   string                `json:"location"`
	PriceUSD                   int64                 `json:"price_usd"`
	TotalTokens                int64                 `json:"total_tokens"`
	TokensSold                 int64                 `json:"tokens_sold"`
	TokensAvailable            int64                 `json:"tokens_available"`
	ExpectedAnnualYieldPercent float64               `json:"expected_annual_yield_percent"`
	Status                     domain.OfferingStatus `json:"status"`
	ImageURL                   string                `json:"image_url,omitempty"`
	ContractRef                string                `json:"contract_ref,omitempty"`
	ChainName                  string                `json:"chain_name,omitempty"`
	CreatedAt                  time.Time             `json:"created_at"`
}

func toOfferingView(o *domain.Offering) offeringView {
	return offeringView{
		ID:                         o.ID,
		Name:                       o.Name,
		Description:                o.Description,
		Location:                   o.Location,
		PriceUSD:                   o.PriceUSD,
		TotalTokens:                o.TotalTokens,
		TokensSold:                 o.TokensSold,
		TokensAvailable:            o.TokensAvailable(),
		ExpectedAnnualYieldPercent: o.ExpectedAnnualYieldPercent,
		Status:                     o.Status,
		ImageURL:                   o.ImageURL,
		ContractRef:                o.ContractRef,
		ChainName:                  o.ChainName,
		CreatedAt:                  o.CreatedAt,
	}
}

func toOfferingViews(offerings []*domain.Offering) []offeringView {
	views := make([]offeringView, len(offerings))
	for i, o := range offerings {
		views[i] = toOfferingView(o)
	}
	return views
}

type listingView struct {
	ID              uuid.UUID            `json:"id"`
	SellerID        uuid.UUID            `json:"seller_id"`
	OfferingID      uuid.UUID            `json:"offering_id"`
	TokensListed    int64                `json:"tokens_listed"`
	TokensRemaining int64                `json:"tokens_remaining"`
	PricePerToken   decimal.Decimal      `json:"price_per_token"`
	Status          domain.ListingStatus `json:"status"`
	CreatedAt       time.Time            `json:"created_at"`
}

func toListingView(l *domain.Listing) listingView {
	return listingView{
		ID:              l.ID,
		SellerID:        l.SellerID,
		OfferingID:      l.OfferingID,
		TokensListed:    l.TokensListed,
		TokensRemaining: l.TokensRemaining,
		PricePerToken:   l.PricePerToken,
		Status:          l.Status,
		CreatedAt:       l.CreatedAt,
	}
}

func toListingViews(listings []*domain.Listing) []listingView {
	views := make([]listingView, len(listings))
	for i, l := range listings {
		views[i] = toListingView(l)
	}
	return views
}

type tradeView struct {
	ID            uuid.UUID       `json:"id"`
	ListingID     uuid.UUID       `json:"listing_id"`
	BuyerID       uuid.UUID       `json:"buyer_id"`
	SellerID      uuid.UUID       `json:"seller_id"`
	OfferingID    uuid.UUID       `json:"offering_id"`
	Tokens        int64           `json:"tokens"`
	PricePerToken decimal.Decimal `json:"price_per_token"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	PlatformFee   decimal.Decimal `json:"platform_fee"`
	SellerNet     decimal.Decimal `json:"seller_net"`
	CreatedAt     time.Time       `json:"created_at"`
}

func toTradeViews(trades []*domain.TradeRecord) []tradeView {
	views := make([]tradeView, len(trades))
	for i, t := range trades {
		views[i] = tradeView{
			ID:            t.ID,
			ListingID:     t.ListingID,
			BuyerID:       t.BuyerID,
			SellerID:      t.SellerID,
			OfferingID:    t.OfferingID,
			Tokens:        t.Tokens,
			PricePerToken: t.PricePerToken,
			TotalPrice:    t.TotalPrice,
			PlatformFee:   t.PlatformFee,
			SellerNet:     t.SellerNet,
			CreatedAt:     t.CreatedAt,
		}
	}
	return views
}

type investmentView struct {
	ID          uuid.UUID       `json:"id"`
	AccountID   uuid.UUID       `json:"account_id"`
	OfferingID  uuid.UUID       `json:"offering_id"`
	Tokens      int64           `json:"tokens"`
	InvestedUSD decimal.Decimal `json:"invested_usd"`
	CreatedAt   time.Time       `json:"created_at"`
}

func toInvestmentViews(records []*domain.InvestmentRecord) []investmentView {
	views := make([]investmentView, len(records))
	for i, rec := range records {
		views[i] = investmentView{
			ID:          rec.ID,
			AccountID:   rec.AccountID,
			OfferingID:  rec.OfferingID,
			Tokens:      rec.Tokens,
			InvestedUSD: rec.InvestedUSD,
			CreatedAt:   rec.CreatedAt,
		}
	}
	return views
}

type proposalView struct {
	ID               uuid.UUID             `json:"id"`
	OfferingID       uuid.UUID             `json:"offering_id"`
	Title            string                `json:"title"`
	Description      string                `json:"description"`
	Type             domain.ProposalType   `json:"type"`
	Options          []string              `json:"options"`
	MinQuorumPercent float64               `json:"min_quorum_percent"`
	Status           domain.ProposalStatus `json:"status"`
	StartAt          *time.Time            `json:"start_at,omitempty"`
	EndAt            *time.Time            `json:"end_at,omitempty"`
	CreatedBy        uuid.UUID             `json:"created_by"`
	CreatedAt        time.Time             `json:"created_at"`
}

func toProposalView(p *domain.Proposal) proposalView {
	return proposalView{
		ID:               p.ID,
		OfferingID:       p.OfferingID,
		Title:            p.Title,
		Description:      p.Description,
		Type:             p.Type,
		Options:          p.Options,
		MinQuorumPercent: p.MinQuorumPercent,
		Status:           p.Status,
		StartAt:          p.StartAt,
		EndAt:            p.EndAt,
		CreatedBy:        p.CreatedBy,
		CreatedAt:        p.CreatedAt,
	}
}

func toProposalViews(proposals []*domain.Proposal) []proposalView {
	views := make([]proposalView, len(proposals))
	for i, p := range proposals {
		views[i] = toProposalView(p)
	}
	return views
}

type rentClaimView struct {
	ID                 uuid.UUID       `json:"id"`
	AccountID          uuid.UUID       `json:"account_id"`
	OfferingID         uuid.UUID       `json:"offering_id"`
	PeriodYear         int             `json:"period_year"`
	PeriodMonth        int             `json:"period_month"`
	AmountUSD          decimal.Decimal `json:"amount_usd"`
	TokensAtClaim      int64           `json:"tokens_at_claim"`
	MonthlyRentAtClaim decimal.Decimal `json:"monthly_rent_at_claim"`
	CreatedAt          time.Time       `json:"created_at"`
}

func toRentClaimView(c *domain.RentClaim) rentClaimView {
	return rentClaimView{
		ID:                 c.ID,
		AccountID:          c.AccountID,
		OfferingID:         c.OfferingID,
		PeriodYear:         c.PeriodYear,
		PeriodMonth:        int(c.PeriodMonth),
		AmountUSD:          c.AmountUSD,
		TokensAtClaim:      c.TokensAtClaim,
		MonthlyRentAtClaim: c.MonthlyRentAtClaim,
		CreatedAt:          c.CreatedAt,
	}
}

func toRentClaimViews(claims []*domain.RentClaim) []rentClaimView {
	views := make([]rentClaimView, len(claims))
	for i, c := range claims {
		views[i] = toRentClaimView(c)
	}
	return views
}
