package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/rtavares/brickvault-backend/internal/domain"
)

// Store is an in-memory domain.Ledger used by tests and local runs.
// A transaction clones the whole state, mutates the clone and swaps it in on
// success, so a failed scope leaves no trace. The store mutex serializes
// transactions, which gives the same "two concurrent writers cannot both see
// pre-mutation state" guarantee the postgres row locks provide.
type Store struct {
	mu    sync.Mutex
	state *state
}

type positionKey struct {
	accountID  uuid.UUID
	offeringID uuid.UUID
}

type voteKey struct {
	proposalID uuid.UUID
	accountID  uuid.UUID
}

type claimKey struct {
	accountID  uuid.UUID
	offeringID uuid.UUID
	year       int
	month      int
}

type state struct {
	accounts    map[uuid.UUID]*domain.Account
	offerings   map[uuid.UUID]*domain.Offering
	positions   map[positionKey]*domain.Position
	investments []*domain.InvestmentRecord
	listings    map[uuid.UUID]*domain.Listing
	trades      []*domain.TradeRecord
	proposals   map[uuid.UUID]*domain.Proposal
	votes       map[voteKey]*domain.Vote
	claims      map[claimKey]*domain.RentClaim
}

// NewStore creates an empty in-memory ledger.
func NewStore() *Store {
	return &Store{state: newState()}
}

func newState() *state {
	return &state{
		accounts:  make(map[uuid.UUID]*domain.Account),
		offerings: make(map[uuid.UUID]*domain.Offering),
		positions: make(map[positionKey]*domain.Position),
		listings:  make(map[uuid.UUID]*domain.Listing),
		proposals: make(map[uuid.UUID]*domain.Proposal),
		votes:     make(map[voteKey]*domain.Vote),
		claims:    make(map[claimKey]*domain.RentClaim),
	}
}

// InTx runs fn against a clone of the state and commits the clone only when
// fn succeeds.
func (s *Store) InTx(ctx context.Context, fn func(tx domain.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := s.state.clone()
	if err := fn(&memTx{state: clone}); err != nil {
		return err
	}
	s.state = clone
	return nil
}

func (st *state) clone() *state {
	c := newState()
	for id, a := range st.accounts {
		c.accounts[id] = copyAccount(a)
	}
	for id, o := range st.offerings {
		c.offerings[id] = copyOffering(o)
	}
	for k, p := range st.positions {
		cp := *p
		c.positions[k] = &cp
	}
	c.investments = make([]*domain.InvestmentRecord, len(st.investments))
	for i, r := range st.investments {
		cp := *r
		c.investments[i] = &cp
	}
	for id, l := range st.listings {
		cp := *l
		c.listings[id] = &cp
	}
	c.trades = make([]*domain.TradeRecord, len(st.trades))
	for i, r := range st.trades {
		cp := *r
		c.trades[i] = &cp
	}
	for id, p := range st.proposals {
		c.proposals[id] = copyProposal(p)
	}
	for k, v := range st.votes {
		cp := *v
		c.votes[k] = &cp
	}
	for k, cl := range st.claims {
		cp := *cl
		c.claims[k] = &cp
	}
	return c
}

func copyAccount(a *domain.Account) *domain.Account {
	cp := *a
	return &cp
}

func copyOffering(o *domain.Offering) *domain.Offering {
	cp := *o
	return &cp
}

func copyProposal(p *domain.Proposal) *domain.Proposal {
	cp := *p
	cp.Options = append([]string(nil), p.Options...)
	if p.StartAt != nil {
		t := *p.StartAt
		cp.StartAt = &t
	}
	if p.EndAt != nil {
		t := *p.EndAt
		cp.EndAt = &t
	}
	return &cp
}

// memTx implements domain.Tx over a cloned state.
type memTx struct {
	state *state
}

// --- accounts ---

func (t *memTx) CreateAccount(ctx context.Context, account *domain.Account) error {
	for _, existing := range t.state.accounts {
		if existing.Email == account.Email {
			return domain.Conflictf("account email %s already registered", account.Email)
		}
	}
	t.state.accounts[account.ID] = copyAccount(account)
	return nil
}

func (t *memTx) Account(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	a, ok := t.state.accounts[id]
	if !ok {
		return nil, domain.NotFoundf("account %s", id)
	}
	return copyAccount(a), nil
}

func (t *memTx) AccountForUpdate(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return t.Account(ctx, id)
}

func (t *memTx) Accounts(ctx context.Context) ([]*domain.Account, error) {
	out := make([]*domain.Account, 0, len(t.state.accounts))
	for _, a := range t.state.accounts {
		out = append(out, copyAccount(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (t *memTx) UpdateAccount(ctx context.Context, account *domain.Account) error {
	if _, ok := t.state.accounts[account.ID]; !ok {
		return domain.NotFoundf("account %s", account.ID)
	}
	t.state.accounts[account.ID] = copyAccount(account)
	return nil
}

// --- offerings ---

func (t *memTx) CreateOffering(ctx context.Context, offering *domain.Offering) error {
	t.state.offerings[offering.ID] = copyOffering(offering)
	return nil
}

func (t *memTx) Offering(ctx context.Context, id uuid.UUID) (*domain.Offering, error) {
	o, ok := t.state.offerings[id]
	if !ok {
		return nil, domain.NotFoundf("offering %s", id)
	}
	return copyOffering(o), nil
}

func (t *memTx) OfferingForUpdate(ctx context.Context, id uuid.UUID) (*domain.Offering, error) {
	return t.Offering(ctx, id)
}

func (t *memTx) Offerings(ctx context.Context, filter domain.OfferingFilter) ([]*domain.Offering, error) {
	out := make([]*domain.Offering, 0, len(t.state.offerings))
	for _, o := range t.state.offerings {
		if filter.MinPriceUSD != nil && o.PriceUSD < *filter.MinPriceUSD {
			continue
		}
		if filter.MaxPriceUSD != nil && o.PriceUSD > *filter.MaxPriceUSD {
			continue
		}
		if filter.Location != "" && !containsFold(o.Location, filter.Location) {
			continue
		}
		out = append(out, copyOffering(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (t *memTx) UpdateOffering(ctx context.Context, offering *domain.Offering) error {
	if _, ok := t.state.offerings[offering.ID]; !ok {
		return domain.NotFoundf("offering %s", offering.ID)
	}
	t.state.offerings[offering.ID] = copyOffering(offering)
	return nil
}

// --- positions ---

func (t *memTx) Position(ctx context.Context, accountID, offeringID uuid.UUID) (*domain.Position, error) {
	p, ok := t.state.positions[positionKey{accountID, offeringID}]
	if !ok {
		return nil, domain.NotFoundf("position account=%s offering=%s", accountID, offeringID)
	}
	cp := *p
	return &cp, nil
}

func (t *memTx) PositionForUpdate(ctx context.Context, accountID, offeringID uuid.UUID) (*domain.Position, error) {
	return t.Position(ctx, accountID, offeringID)
}

func (t *memTx) UpsertPosition(ctx context.Context, position *domain.Position) error {
	if position.Tokens < 0 {
		return domain.Invalidf("position tokens cannot be negative")
	}
	cp := *position
	t.state.positions[positionKey{position.AccountID, position.OfferingID}] = &cp
	return nil
}

func (t *memTx) PositionsByAccount(ctx context.Context, accountID uuid.UUID) ([]*domain.Position, error) {
	var out []*domain.Position
	for _, p := range t.state.positions {
		if p.AccountID == accountID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OfferingID.String() < out[j].OfferingID.String() })
	return out, nil
}

func (t *memTx) PositionsByOffering(ctx context.Context, offeringID uuid.UUID) ([]*domain.Position, error) {
	var out []*domain.Position
	for _, p := range t.state.positions {
		if p.OfferingID == offeringID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID.String() < out[j].AccountID.String() })
	return out, nil
}

// --- investments ---

func (t *memTx) CreateInvestment(ctx context.Context, record *domain.InvestmentRecord) error {
	cp := *record
	t.state.investments = append(t.state.investments, &cp)
	return nil
}

func (t *memTx) Investments(ctx context.Context, accountID *uuid.UUID) ([]*domain.InvestmentRecord, error) {
	var out []*domain.InvestmentRecord
	for _, r := range t.state.investments {
		if accountID != nil && r.AccountID != *accountID {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// --- listings ---

func (t *memTx) CreateListing(ctx context.Context, listing *domain.Listing) error {
	cp := *listing
	t.state.listings[listing.ID] = &cp
	return nil
}

func (t *memTx) Listing(ctx context.Context, id uuid.UUID) (*domain.Listing, error) {
	l, ok := t.state.listings[id]
	if !ok {
		return nil, domain.NotFoundf("listing %s", id)
	}
	cp := *l
	return &cp, nil
}

func (t *memTx) ListingForUpdate(ctx context.Context, id uuid.UUID) (*domain.Listing, error) {
	return t.Listing(ctx, id)
}

func (t *memTx) Listings(ctx context.Context, filter domain.ListingFilter) ([]*domain.Listing, error) {
	var out []*domain.Listing
	for _, l := range t.state.listings {
		if filter.OfferingID != nil && l.OfferingID != *filter.OfferingID {
			continue
		}
		if filter.SellerID != nil && l.SellerID != *filter.SellerID {
			continue
		}
		if filter.Status != "" && l.Status != filter.Status {
			continue
		}
		cp := *l
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (t *memTx) UpdateListing(ctx context.Context, listing *domain.Listing) error {
	if _, ok := t.state.listings[listing.ID]; !ok {
		return domain.NotFoundf("listing %s", listing.ID)
	}
	cp := *listing
	t.state.listings[listing.ID] = &cp
	return nil
}

// --- trades ---

func (t *memTx) CreateTrade(ctx context.Context, record *domain.TradeRecord) error {
	cp := *record
	t.state.trades = append(t.state.trades, &cp)
	return nil
}

func (t *memTx) Trades(ctx context.Context, filter domain.TradeFilter) ([]*domain.TradeRecord, error) {
	var out []*domain.TradeRecord
	for _, r := range t.state.trades {
		if filter.BuyerID != nil && r.BuyerID != *filter.BuyerID {
			continue
		}
		if filter.SellerID != nil && r.SellerID != *filter.SellerID {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// --- proposals ---

func (t *memTx) CreateProposal(ctx context.Context, proposal *domain.Proposal) error {
	t.state.proposals[proposal.ID] = copyProposal(proposal)
	return nil
}

func (t *memTx) Proposal(ctx context.Context, id uuid.UUID) (*domain.Proposal, error) {
	p, ok := t.state.proposals[id]
	if !ok {
		return nil, domain.NotFoundf("proposal %s", id)
	}
	return copyProposal(p), nil
}

func (t *memTx) ProposalForUpdate(ctx context.Context, id uuid.UUID) (*domain.Proposal, error) {
	return t.Proposal(ctx, id)
}

func (t *memTx) Proposals(ctx context.Context, filter domain.ProposalFilter) ([]*domain.Proposal, error) {
	var out []*domain.Proposal
	for _, p := range t.state.proposals {
		if filter.OfferingID != nil && p.OfferingID != *filter.OfferingID {
			continue
		}
		if filter.CreatedBy != nil && p.CreatedBy != *filter.CreatedBy {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.Type != "" && p.Type != filter.Type {
			continue
		}
		out = append(out, copyProposal(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (t *memTx) UpdateProposal(ctx context.Context, proposal *domain.Proposal) error {
	if _, ok := t.state.proposals[proposal.ID]; !ok {
		return domain.NotFoundf("proposal %s", proposal.ID)
	}
	t.state.proposals[proposal.ID] = copyProposal(proposal)
	return nil
}

func (t *memTx) LatestApprovedRentProposal(ctx context.Context, offeringID uuid.UUID) (*domain.Proposal, error) {
	var latest *domain.Proposal
	for _, p := range t.state.proposals {
		if p.OfferingID != offeringID || p.Type != domain.ProposalTypeRentDecision || p.Status != domain.ProposalStatusApproved {
			continue
		}
		if latest == nil || p.UpdatedAt.After(latest.UpdatedAt) {
			latest = p
		}
	}
	if latest == nil {
		return nil, domain.NotFoundf("no approved rent proposal for offering %s", offeringID)
	}
	return copyProposal(latest), nil
}

// --- votes ---

func (t *memTx) CreateVote(ctx context.Context, vote *domain.Vote) error {
	key := voteKey{vote.ProposalID, vote.AccountID}
	if _, ok := t.state.votes[key]; ok {
		return domain.Conflictf("account %s already voted on proposal %s", vote.AccountID, vote.ProposalID)
	}
	cp := *vote
	t.state.votes[key] = &cp
	return nil
}

func (t *memTx) VoteByAccount(ctx context.Context, proposalID, accountID uuid.UUID) (*domain.Vote, error) {
	v, ok := t.state.votes[voteKey{proposalID, accountID}]
	if !ok {
		return nil, domain.NotFoundf("vote proposal=%s account=%s", proposalID, accountID)
	}
	cp := *v
	return &cp, nil
}

func (t *memTx) VotesByProposal(ctx context.Context, proposalID uuid.UUID) ([]*domain.Vote, error) {
	var out []*domain.Vote
	for _, v := range t.state.votes {
		if v.ProposalID == proposalID {
			cp := *v
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// --- rent claims ---

func (t *memTx) CreateRentClaim(ctx context.Context, claim *domain.RentClaim) error {
	key := claimKey{claim.AccountID, claim.OfferingID, claim.PeriodYear, int(claim.PeriodMonth)}
	if _, ok := t.state.claims[key]; ok {
		return domain.Conflictf("rent already claimed for %d-%02d", claim.PeriodYear, claim.PeriodMonth)
	}
	cp := *claim
	t.state.claims[key] = &cp
	return nil
}

func (t *memTx) RentClaimForPeriod(ctx context.Context, accountID, offeringID uuid.UUID, period domain.ClaimPeriod) (*domain.RentClaim, error) {
	c, ok := t.state.claims[claimKey{accountID, offeringID, period.Year, int(period.Month)}]
	if !ok {
		return nil, domain.NotFoundf("rent claim account=%s offering=%s period=%d-%02d", accountID, offeringID, period.Year, period.Month)
	}
	cp := *c
	return &cp, nil
}

func (t *memTx) RentClaimsByAccount(ctx context.Context, accountID uuid.UUID) ([]*domain.RentClaim, error) {
	var out []*domain.RentClaim
	for _, c := range t.state.claims {
		if c.AccountID == accountID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
