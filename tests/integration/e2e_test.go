package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtavares/brickvault-backend/internal/adapter/chain"
	httpadapter "github.com/rtavares/brickvault-backend/internal/adapter/http"
	"github.com/rtavares/brickvault-backend/internal/adapter/repository/memory"
	"github.com/rtavares/brickvault-backend/internal/usecase/governance"
	"github.com/rtavares/brickvault-backend/internal/usecase/investment"
	"github.com/rtavares/brickvault-backend/internal/usecase/marketplace"
	"github.com/rtavares/brickvault-backend/internal/usecase/portfolio"
	"github.com/rtavares/brickvault-backend/internal/usecase/registry"
	"github.com/rtavares/brickvault-backend/internal/usecase/rent"
)

// env runs the full HTTP stack against an in-memory ledger, so scenarios
// exercise exactly what a deployed server would: router, handlers, services
// and transactional settlement, minus only the database driver.
type env struct {
	t      *testing.T
	server *httptest.Server
}

func newEnv(t *testing.T) *env {
	t.Helper()

	store := memory.NewStore()
	gateway := chain.NewNoop()
	log := zerolog.Nop()
	initialBalance := decimal.RequireFromString("10000.00")

	handler := httpadapter.NewHandler(
		registry.NewService(store, gateway, initialBalance, log),
		investment.NewService(store, gateway, log),
		marketplace.NewService(store, gateway, log),
		governance.NewService(store, log),
		rent.NewService(store, log),
		portfolio.NewService(store, log),
		log,
	)

	server := httptest.NewServer(handler.Router())
	t.Cleanup(server.Close)
	return &env{t: t, server: server}
}

func (e *env) do(method, path string, body any) (int, map[string]any) {
	e.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(e.t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.server.Client().Do(req)
	require.NoError(e.t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(e.t, json.NewDecoder(resp.Body).Decode(&decoded))
	}
	return resp.StatusCode, decoded
}

func (e *env) getList(path string) (int, []map[string]any) {
	e.t.Helper()

	resp, err := e.server.Client().Get(e.server.URL + path)
	require.NoError(e.t, err)
	defer resp.Body.Close()

	var decoded []map[string]any
	require.NoError(e.t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp.StatusCode, decoded
}

func (e *env) post(path string, body any, wantStatus int) map[string]any {
	e.t.Helper()
	status, decoded := e.do(http.MethodPost, path, body)
	require.Equal(e.t, wantStatus, status, "POST %s: %v", path, decoded)
	return decoded
}

func (e *env) get(path string, wantStatus int) map[string]any {
	e.t.Helper()
	status, decoded := e.do(http.MethodGet, path, nil)
	require.Equal(e.t, wantStatus, status, "GET %s: %v", path, decoded)
	return decoded
}

func (e *env) createAccount(email, name string) string {
	e.t.Helper()
	resp := e.post("/accounts", map[string]any{"email": email, "full_name": name}, http.StatusCreated)
	return resp["id"].(string)
}

func (e *env) createOffering(name string, priceUSD int64) string {
	e.t.Helper()
	resp := e.post("/offerings", map[string]any{
		"name":      name,
		"location":  "Lisbon, Portugal",
		"price_usd": priceUSD,
		"expected_annual_yield_percent": 6.5,
	}, http.StatusCreated)
	return resp["id"].(string)
}

func (e *env) invest(offeringID, accountID string, tokens int64) map[string]any {
	e.t.Helper()
	return e.post("/offerings/"+offeringID+"/invest",
		map[string]any{"account_id": accountID, "tokens": tokens}, http.StatusCreated)
}

// dec reads a JSON field that the API serializes as a decimal string.
func dec(t *testing.T, v any) decimal.Decimal {
	t.Helper()
	s, ok := v.(string)
	require.True(t, ok, "expected decimal string, got %T (%v)", v, v)
	return decimal.RequireFromString(s)
}

func TestInvestmentLifecycle(t *testing.T) {
	e := newEnv(t)

	alice := e.createAccount("alice@example.com", "Alice Marques")
	bob := e.createAccount("bob@example.com", "Bob Ferreira")
	offering := e.createOffering("Rua Augusta 12", 500)

	// Supply equals price at one dollar per token.
	created := e.get("/offerings/"+offering, http.StatusOK)
	assert.EqualValues(t, 500, created["total_tokens"])
	assert.Equal(t, "offering", created["status"])

	res := e.invest(offering, alice, 300)
	assert.True(t, dec(t, res["account_cash"]).Equal(decimal.RequireFromString("9700")))
	assert.EqualValues(t, 300, res["position_tokens"])
	assert.Equal(t, "offering", res["offering_status"])

	// The last primary purchase flips the offering to funded.
	res = e.invest(offering, bob, 200)
	assert.Equal(t, "funded", res["offering_status"])
	assert.EqualValues(t, 500, res["offering_tokens_sold"])

	funded := e.get("/offerings/"+offering, http.StatusOK)
	assert.EqualValues(t, 0, funded["tokens_available"])

	// No primary sales after funding.
	status, body := e.do(http.MethodPost, "/offerings/"+offering+"/invest",
		map[string]any{"account_id": bob, "tokens": 1})
	assert.Equal(t, http.StatusConflict, status, "%v", body)

	summary := e.get("/accounts/"+alice+"/portfolio", http.StatusOK)
	assert.True(t, dec(t, summary["cash_balance"]).Equal(decimal.RequireFromString("9700")))
	assert.EqualValues(t, 300, summary["tokens_owned"])
	assert.True(t, dec(t, summary["total_value_usd"]).Equal(decimal.RequireFromString("10000")))
	assert.EqualValues(t, 1, summary["property_count"])

	statusList, investments := e.getList("/accounts/" + alice + "/investments")
	require.Equal(t, http.StatusOK, statusList)
	require.Len(t, investments, 1)
	assert.EqualValues(t, 300, investments[0]["tokens"])
}

func TestInvestmentRejectionsLeaveLedgerUntouched(t *testing.T) {
	e := newEnv(t)

	alice := e.createAccount("alice@example.com", "Alice Marques")
	offering := e.createOffering("Rua Augusta 12", 20000)

	// Costs more cash than the account holds.
	status, body := e.do(http.MethodPost, "/offerings/"+offering+"/invest",
		map[string]any{"account_id": alice, "tokens": 10001})
	assert.Equal(t, http.StatusConflict, status, "%v", body)

	status, _ = e.do(http.MethodPost, "/offerings/"+offering+"/invest",
		map[string]any{"account_id": alice, "tokens": -5})
	assert.Equal(t, http.StatusBadRequest, status)

	account := e.get("/accounts/"+alice, http.StatusOK)
	assert.True(t, dec(t, account["cash_balance"]).Equal(decimal.RequireFromString("10000")))

	after := e.get("/offerings/"+offering, http.StatusOK)
	assert.EqualValues(t, 0, after["tokens_sold"])
	assert.Equal(t, "offering", after["status"])
}

func TestMarketplaceRoundTrip(t *testing.T) {
	e := newEnv(t)

	seller := e.createAccount("seller@example.com", "Sofia Cunha")
	buyer := e.createAccount("buyer@example.com", "Bruno Lopes")
	offering := e.createOffering("Avenida da Liberdade 5", 400)
	e.invest(offering, seller, 400)

	listing := e.post("/listings", map[string]any{
		"seller_id":       seller,
		"offering_id":     offering,
		"tokens":          100,
		"price_per_token": "0.90",
	}, http.StatusCreated)
	listingID := listing["id"].(string)

	// Listed tokens are escrowed out of the seller's position.
	sellerPortfolio := e.get("/accounts/"+seller+"/portfolio", http.StatusOK)
	assert.EqualValues(t, 300, sellerPortfolio["tokens_owned"])

	res := e.post("/listings/"+listingID+"/buy",
		map[string]any{"buyer_id": buyer, "tokens": 40}, http.StatusCreated)

	trade := res["trade"].(map[string]any)
	assert.True(t, dec(t, trade["total_price"]).Equal(decimal.RequireFromString("36")))
	assert.True(t, dec(t, trade["platform_fee"]).Equal(decimal.RequireFromString("0.9")))
	assert.True(t, dec(t, trade["seller_net"]).Equal(decimal.RequireFromString("35.1")))

	assert.True(t, dec(t, res["buyer_cash"]).Equal(decimal.RequireFromString("9964")))
	assert.True(t, dec(t, res["seller_cash"]).Equal(decimal.RequireFromString("9635.1")))
	assert.EqualValues(t, 40, res["buyer_position"])
	assert.Equal(t, "active", res["listing_status"])

	// The fee is destroyed, not rebated: total cash across both accounts
	// dropped by exactly the fee.
	total := dec(t, res["buyer_cash"]).Add(dec(t, res["seller_cash"]))
	assert.True(t, total.Equal(decimal.RequireFromString("19599.1")))

	// Cancelling returns the unsold escrow to the seller.
	cancelled := e.post("/listings/"+listingID+"/cancel",
		map[string]any{"seller_id": seller}, http.StatusOK)
	assert.Equal(t, "cancelled", cancelled["status"])

	sellerPortfolio = e.get("/accounts/"+seller+"/portfolio", http.StatusOK)
	assert.EqualValues(t, 360, sellerPortfolio["tokens_owned"])

	stats := e.get("/marketplace/stats", http.StatusOK)
	assert.EqualValues(t, 0, stats["active_listings"])
	assert.True(t, dec(t, stats["total_volume_usd"]).Equal(decimal.RequireFromString("36")))
}

func TestGovernanceAndRentLifecycle(t *testing.T) {
	e := newEnv(t)

	alice := e.createAccount("alice@example.com", "Alice Marques")
	bob := e.createAccount("bob@example.com", "Bob Ferreira")
	offering := e.createOffering("Rua do Carmo 33", 1000)
	e.invest(offering, alice, 750)
	e.invest(offering, bob, 250)

	proposal := e.post("/proposals", map[string]any{
		"offering_id":        offering,
		"created_by":         alice,
		"title":              "Set monthly rent",
		"type":               "rent_decision",
		"options":            []string{"2000", "0"},
		"min_quorum_percent": 50,
	}, http.StatusCreated)
	proposalID := proposal["id"].(string)

	// No voting window means the proposal opens immediately.
	assert.Equal(t, "active", proposal["status"])

	e.post("/proposals/"+proposalID+"/votes",
		map[string]any{"account_id": alice, "option_index": 0}, http.StatusCreated)
	e.post("/proposals/"+proposalID+"/votes",
		map[string]any{"account_id": bob, "option_index": 0}, http.StatusCreated)

	// One vote per account.
	status, _ := e.do(http.MethodPost, "/proposals/"+proposalID+"/votes",
		map[string]any{"account_id": alice, "option_index": 1})
	assert.Equal(t, http.StatusConflict, status)

	results := e.get("/proposals/"+proposalID+"/results", http.StatusOK)
	assert.EqualValues(t, 1000, results["votes_cast"])
	assert.True(t, results["quorum_reached"].(bool))
	assert.Equal(t, "2000", results["winning_option"])

	// Rent is not interpreted until the decision is approved.
	notYet := e.get("/offerings/"+offering+"/rent", http.StatusOK)
	assert.False(t, notYet["is_rented"].(bool))

	e.post("/proposals/"+proposalID+"/close", nil, http.StatusOK)
	e.post("/proposals/"+proposalID+"/approve", nil, http.StatusOK)

	rented := e.get("/offerings/"+offering+"/rent", http.StatusOK)
	assert.True(t, rented["is_rented"].(bool))
	assert.True(t, dec(t, rented["monthly_rent"]).Equal(decimal.RequireFromString("2000")))

	payout := e.get("/offerings/"+offering+"/rent/payout?account_id="+bob, http.StatusOK)
	assert.EqualValues(t, 250, payout["tokens_owned"])
	assert.True(t, dec(t, payout["monthly_payout"]).Equal(decimal.RequireFromString("500")))

	claim := e.post("/offerings/"+offering+"/rent/claim",
		map[string]any{"account_id": bob}, http.StatusCreated)
	assert.True(t, dec(t, claim["new_balance"]).Equal(decimal.RequireFromString("10250")))

	// Once per calendar month.
	status, body := e.do(http.MethodPost, "/offerings/"+offering+"/rent/claim",
		map[string]any{"account_id": bob})
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, body["error"], "already claimed")

	listStatus, claims := e.getList("/accounts/" + bob + "/rent-claims")
	require.Equal(t, http.StatusOK, listStatus)
	require.Len(t, claims, 1)
	assert.EqualValues(t, 250, claims[0]["tokens_at_claim"])
}

func TestProposalRequiresFundedOfferingAndTokens(t *testing.T) {
	e := newEnv(t)

	alice := e.createAccount("alice@example.com", "Alice Marques")
	outsider := e.createAccount("carol@example.com", "Carol Dias")
	offering := e.createOffering("Rua das Flores 9", 100)
	e.invest(offering, alice, 60)

	body := map[string]any{
		"offering_id":        offering,
		"created_by":         alice,
		"title":              "Set monthly rent",
		"type":               "rent_decision",
		"options":            []string{"800", "0"},
		"min_quorum_percent": 30,
	}
	status, _ := e.do(http.MethodPost, "/proposals", body)
	assert.Equal(t, http.StatusConflict, status, "not yet fully funded")

	e.invest(offering, alice, 40)
	e.post("/proposals", body, http.StatusCreated)

	body["created_by"] = outsider
	status, _ = e.do(http.MethodPost, "/proposals", body)
	assert.Equal(t, http.StatusConflict, status, "non-holders cannot propose")
}

func TestConcurrentInvestmentsNeverOversell(t *testing.T) {
	e := newEnv(t)

	offering := e.createOffering("Doca de Alcantara 1", 500)

	accounts := make([]string, 10)
	for i := range accounts {
		accounts[i] = e.createAccount(fmt.Sprintf("investor%d@example.com", i), fmt.Sprintf("Investor %d", i))
	}

	var wg sync.WaitGroup
	statuses := make([]int, len(accounts))
	for i, id := range accounts {
		wg.Add(1)
		go func(i int, accountID string) {
			defer wg.Done()
			statuses[i], _ = e.do(http.MethodPost, "/offerings/"+offering+"/invest",
				map[string]any{"account_id": accountID, "tokens": 100})
		}(i, id)
	}
	wg.Wait()

	settled, rejected := 0, 0
	for _, s := range statuses {
		switch s {
		case http.StatusCreated:
			settled++
		case http.StatusConflict:
			rejected++
		default:
			t.Fatalf("unexpected status %d", s)
		}
	}
	assert.Equal(t, 5, settled)
	assert.Equal(t, 5, rejected)

	final := e.get("/offerings/"+offering, http.StatusOK)
	assert.EqualValues(t, 500, final["tokens_sold"])
	assert.Equal(t, "funded", final["status"])
}
