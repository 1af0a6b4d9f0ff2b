package rcad

import (
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"rcavault/config"
	"rcavault/core"
	"rcavault/core/events"
	"rcavault/core/state"
	"rcavault/crypto"
	"rcavault/native/capacity"
	"rcavault/native/merkle"
	"rcavault/native/params"
	"rcavault/native/shield"
	"rcavault/storage"
)

var (
	governor  = common.HexToAddress("0x0a01")
	guardian  = common.HexToAddress("0x0a02")
	oracle    = common.HexToAddress("0x0a03")
	treasury  = common.HexToAddress("0x0a04")
	ctrlAddr  = common.HexToAddress("0xc0")
	dai       = common.HexToAddress("0x1001")
	daiShield = common.HexToAddress("0x5e01")
	alice     = common.HexToAddress("0xa11c")
)

func testPlan(capOracle common.Address) *config.Plan {
	return &config.Plan{
		ChainID:     1337,
		Controller:  ctrlAddr,
		Governor:    governor,
		Guardian:    guardian,
		PriceOracle: oracle,
		CapOracle:   capOracle,
		Global:      params.Global{Discount: 200, WithdrawalDelay: 3_600, Treasury: treasury},
		Tokens:      []config.TokenPlan{{Address: dai, Symbol: "DAI", Decimals: 18}},
		Shields: []config.ShieldPlan{
			{Address: daiShield, Name: "RCA DAI", Symbol: "rcaDAI", UToken: dai, Decimals: 18, Adapter: config.AdapterVault},
		},
		Balances: []config.BalancePlan{
			{Token: dai, Holder: alice, Amount: big.NewInt(1_000)},
			{Holder: treasury, Amount: big.NewInt(5_000)},
		},
		Incidents: []config.IncidentPlan{{ID: 3, Root: common.HexToHash("0x33")}},
	}
}

type fixture struct {
	server  *httptest.Server
	journal *events.Journal
}

func newFixture(t *testing.T, limit config.RateLimit) *fixture {
	t.Helper()
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	journal, err := events.NewJournal(storage.NewMemDB())
	require.NoError(t, err)
	manager, err := state.NewMemoryManager()
	require.NoError(t, err)
	now := int64(1_700_000_000)
	d, err := core.NewDeployment(testPlan(ethcrypto.PubkeyToAddress(key.PublicKey)), manager, core.Options{
		Emitter: journal,
		Now:     func() int64 { return now },
	})
	require.NoError(t, err)

	require.NoError(t, d.Controller.SetLiqTotal(governor, merkle.LiquidationLeaf(daiShield, big.NewInt(0)), merkle.ReservedLeaf(daiShield, 0)))
	amount := big.NewInt(400)
	expiry := uint64(now + 60)
	sig, err := capacity.Sign(key, d.Controller.CapacityDomain(), capacity.Claim{User: alice, Shield: daiShield, Amount: amount, Expiry: expiry})
	require.NoError(t, err)
	sh, ok := d.Shield(daiShield)
	require.True(t, ok)
	_, err = sh.Mint(alice, shield.MintRequest{UAmount: amount, Expiry: expiry, Signature: sig, NewCumLiq: big.NewInt(0)})
	require.NoError(t, err)
	_, err = sh.RedeemRequest(alice, big.NewInt(100), shield.Attestation{NewCumLiq: big.NewInt(0)})
	require.NoError(t, err)

	srv := httptest.NewServer(NewServer(d, journal, limit, nil).Handler())
	t.Cleanup(srv.Close)
	return &fixture{server: srv, journal: journal}
}

func (f *fixture) get(t *testing.T, path string, out any) int {
	t.Helper()
	resp, err := http.Get(f.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t, config.RateLimit{})
	require.Equal(t, http.StatusOK, f.get(t, "/healthz", nil))
	require.Equal(t, http.StatusOK, f.get(t, "/metrics", nil))
}

func TestShieldViews(t *testing.T) {
	f := newFixture(t, config.RateLimit{})

	var list []shieldSummary
	require.Equal(t, http.StatusOK, f.get(t, "/shields", &list))
	require.Len(t, list, 1)
	require.Equal(t, "rcaDAI", list[0].Symbol)
	require.True(t, list[0].Active)
	require.Equal(t, "300", list[0].TotalSupply)

	var detail shieldDetail
	bech := crypto.FromCommon(daiShield).String()
	require.Equal(t, http.StatusOK, f.get(t, "/shields/"+bech, &detail))
	require.Equal(t, daiShield.Hex(), detail.Address.Hex)
	require.Equal(t, "100", detail.Vault.PendingWithdrawal)
	require.Equal(t, uint64(200), detail.Vault.Discount)

	require.Equal(t, http.StatusNotFound, f.get(t, "/shields/0x000000000000000000000000000000000000dead", nil))
	require.Equal(t, http.StatusBadRequest, f.get(t, "/shields/nope", nil))
}

func TestQuotes(t *testing.T) {
	f := newFixture(t, config.RateLimit{})
	base := "/shields/" + daiShield.Hex()

	var quote map[string]string
	require.Equal(t, http.StatusOK, f.get(t, base+"/uvalue?rca=300", &quote))
	require.Equal(t, "300", quote["uAmount"])
	require.Equal(t, http.StatusOK, f.get(t, base+"/uvalue?rca=300&pct=1000", &quote))
	require.Equal(t, "270", quote["uAmount"])
	require.Equal(t, http.StatusOK, f.get(t, base+"/uvalue?rca=300&cumLiq=150", &quote))
	require.Equal(t, "150", quote["uAmount"])
	require.Equal(t, http.StatusOK, f.get(t, base+"/rcavalue?u=150", &quote))
	require.Equal(t, "150", quote["rcaAmount"])

	require.Equal(t, http.StatusBadRequest, f.get(t, base+"/uvalue", nil))
	require.Equal(t, http.StatusBadRequest, f.get(t, base+"/rcavalue?u=-1", nil))
}

func TestUserViews(t *testing.T) {
	f := newFixture(t, config.RateLimit{})

	var balances map[string]string
	require.Equal(t, http.StatusOK, f.get(t, "/users/"+alice.Hex()+"/balances", &balances))
	require.Equal(t, "300", balances[daiShield.Hex()])

	var requests []requestView
	require.Equal(t, http.StatusOK, f.get(t, "/users/"+alice.Hex()+"/requests", &requests))
	require.Len(t, requests, 1)
	require.Equal(t, "100", requests[0].RcaAmount)
	require.Equal(t, "100", requests[0].UAmount)
	require.Equal(t, uint64(1_700_000_000+3_600), requests[0].EndTime)
}

func TestControllerAndTreasuryViews(t *testing.T) {
	f := newFixture(t, config.RateLimit{})

	var ctrl map[string]any
	require.Equal(t, http.StatusOK, f.get(t, "/controller", &ctrl))
	require.Equal(t, false, ctrl["paused"])

	var tr map[string]any
	require.Equal(t, http.StatusOK, f.get(t, "/treasury", &tr))
	require.Equal(t, "5000", tr["balance"])

	var incident map[string]any
	require.Equal(t, http.StatusOK, f.get(t, "/treasury/incidents/3?user="+alice.Hex(), &incident))
	require.Equal(t, common.HexToHash("0x33").Hex(), incident["root"])
	require.Equal(t, false, incident["claimed"])
	require.Equal(t, http.StatusNotFound, f.get(t, "/treasury/incidents/4", nil))
	require.Equal(t, http.StatusBadRequest, f.get(t, "/treasury/incidents/x", nil))
}

func TestEventsPaging(t *testing.T) {
	f := newFixture(t, config.RateLimit{})
	total := f.journal.Len()
	require.Greater(t, total, uint64(2))

	var page struct {
		Next    uint64                `json:"next"`
		Entries []events.JournalEntry `json:"entries"`
	}
	require.Equal(t, http.StatusOK, f.get(t, "/events?from=1&limit=2", &page))
	require.Equal(t, total, page.Next)
	require.Len(t, page.Entries, 2)
	require.Equal(t, uint64(1), page.Entries[0].Seq)
	require.Equal(t, http.StatusBadRequest, f.get(t, "/events?limit=0", nil))
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, config.RateLimit{RequestsPerMinute: 1, Burst: 2})
	require.Equal(t, http.StatusOK, f.get(t, "/shields", nil))
	require.Equal(t, http.StatusOK, f.get(t, "/shields", nil))
	require.Equal(t, http.StatusTooManyRequests, f.get(t, "/shields", nil))
	require.Equal(t, http.StatusOK, f.get(t, "/healthz", nil))
}

func TestRateLimiterForgetsIdleClients(t *testing.T) {
	limiter := NewRateLimiter(config.RateLimit{RequestsPerMinute: 60, Burst: 1})
	now := time.Unix(0, 0)
	limiter.clockNow = func() time.Time { return now }
	require.True(t, limiter.allow("a"))
	require.False(t, limiter.allow("a"))
	now = now.Add(10 * time.Minute)
	require.True(t, limiter.allow("b"))
	require.Len(t, limiter.visitors, 1)
	require.True(t, limiter.allow("a"))
}

func TestDeployJournalsGenesisOnce(t *testing.T) {
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	plan := testPlan(ethcrypto.PubkeyToAddress(key.PublicKey))
	journal, err := events.NewJournal(storage.NewMemDB())
	require.NoError(t, err)

	_, err = Deploy(plan, journal, nil)
	require.NoError(t, err)
	first := journal.Len()
	require.NotZero(t, first)

	_, err = Deploy(plan, journal, nil)
	require.NoError(t, err)
	require.Equal(t, first, journal.Len())
}

func TestOpenEventStoreBackends(t *testing.T) {
	for _, backend := range []string{storage.BackendLevelDB, storage.BackendBolt, storage.BackendMemory} {
		cfg := &config.Config{DataDir: filepath.Join(t.TempDir(), "data"), EventStore: backend}
		db, err := openEventStore(cfg)
		require.NoError(t, err, backend)
		journal, err := events.NewJournal(db)
		require.NoError(t, err, backend)
		require.Zero(t, journal.Len())
		db.Close()
	}
}
