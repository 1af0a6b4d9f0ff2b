package rcad

import (
	"errors"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"rcavault/core"
	"rcavault/core/types"
	"rcavault/crypto"
	nativecommon "rcavault/native/common"
)

type addressView struct {
	Hex    string `json:"hex"`
	Bech32 string `json:"bech32"`
}

func newAddressView(addr common.Address) addressView {
	return addressView{Hex: addr.Hex(), Bech32: crypto.FromCommon(addr).String()}
}

type shieldSummary struct {
	Address     addressView `json:"address"`
	Name        string      `json:"name"`
	Symbol      string      `json:"symbol"`
	UToken      addressView `json:"uToken"`
	Decimals    uint64      `json:"decimals"`
	Active      bool        `json:"active"`
	TotalSupply string      `json:"totalSupply"`
}

type vaultView struct {
	Apr               uint64      `json:"apr"`
	Discount          uint64      `json:"discount"`
	WithdrawalDelay   uint64      `json:"withdrawalDelay"`
	Treasury          addressView `json:"treasury"`
	PercentReserved   uint64      `json:"percentReserved"`
	AmtForSale        string      `json:"amtForSale"`
	CumLiqForClaims   string      `json:"cumLiqForClaims"`
	PendingWithdrawal string      `json:"pendingWithdrawal"`
	LastUpdate        uint64      `json:"lastUpdate"`
	RewardSales       string      `json:"rewardSales"`
	Balance           string      `json:"balance"`
	RewardTokens      []string    `json:"rewardTokens"`
}

type shieldDetail struct {
	shieldSummary
	Vault vaultView `json:"vault"`
}

type requestView struct {
	Shield    string `json:"shield"`
	RcaAmount string `json:"rcaAmount"`
	UAmount   string `json:"uAmount"`
	EndTime   uint64 `json:"endTime"`
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, nativecommon.ErrState):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("view failed", "error", err)
	}
	writeError(w, status, err.Error())
}

var (
	errNotFound   = errors.New("not found")
	errBadRequest = errors.New("bad request")
)

func badRequest(msg string, err error) error {
	if err != nil {
		return &wrapped{kind: errBadRequest, msg: msg + ": " + err.Error()}
	}
	return &wrapped{kind: errBadRequest, msg: msg}
}

type wrapped struct {
	kind error
	msg  string
}

func (w *wrapped) Error() string { return w.msg }
func (w *wrapped) Unwrap() error { return w.kind }

func pathAddress(r *http.Request) (common.Address, error) {
	addr, err := crypto.ParseAddress(chi.URLParam(r, "addr"))
	if err != nil {
		return common.Address{}, badRequest("invalid address", err)
	}
	return addr, nil
}

func queryAmount(r *http.Request, name string, required bool) (*big.Int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		if required {
			return nil, badRequest(name+" required", nil)
		}
		return nil, nil
	}
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok || v.Sign() < 0 {
		return nil, badRequest("invalid "+name, nil)
	}
	return v, nil
}

func summarize(d *core.Deployment, addr common.Address) (shieldSummary, error) {
	engine, ok := d.Shield(addr)
	if !ok {
		return shieldSummary{}, errNotFound
	}
	cfg := engine.Config()
	record, _, err := d.Controller.Shield(addr)
	if err != nil {
		return shieldSummary{}, err
	}
	supply, err := engine.TotalSupply()
	if err != nil {
		return shieldSummary{}, err
	}
	return shieldSummary{
		Address:     newAddressView(addr),
		Name:        cfg.Name,
		Symbol:      cfg.Symbol,
		UToken:      newAddressView(cfg.UToken),
		Decimals:    cfg.Decimals,
		Active:      record.Active,
		TotalSupply: supply.String(),
	}, nil
}

func (s *Server) handleShields(w http.ResponseWriter, _ *http.Request) {
	var out []shieldSummary
	err := s.deployment.Do(func(d *core.Deployment) error {
		for _, addr := range d.Shields() {
			summary, err := summarize(d, addr)
			if err != nil {
				return err
			}
			out = append(out, summary)
		}
		return nil
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleShield(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	var detail shieldDetail
	err = s.deployment.Do(func(d *core.Deployment) error {
		summary, err := summarize(d, addr)
		if err != nil {
			return err
		}
		engine, _ := d.Shield(addr)
		vault, err := engine.Vault()
		if err != nil {
			return err
		}
		valuation, err := engine.Valuation()
		if err != nil {
			return err
		}
		rewards, err := engine.RewardTokens()
		if err != nil {
			return err
		}
		tokens := make([]string, 0, len(rewards))
		for _, token := range rewards {
			tokens = append(tokens, token.Hex())
		}
		detail = shieldDetail{
			shieldSummary: summary,
			Vault: vaultView{
				Apr:               vault.Apr,
				Discount:          vault.Discount,
				WithdrawalDelay:   vault.WithdrawalDelay,
				Treasury:          newAddressView(vault.Treasury),
				PercentReserved:   vault.PercentReserved,
				AmtForSale:        amountString(vault.AmtForSale),
				CumLiqForClaims:   amountString(vault.CumLiqForClaims),
				PendingWithdrawal: amountString(vault.PendingWithdrawal),
				LastUpdate:        vault.LastUpdate,
				RewardSales:       amountString(vault.RewardSales),
				Balance:           amountString(valuation.Balance),
				RewardTokens:      tokens,
			},
		}
		return nil
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// handleUValue quotes the underlying an RCA amount redeems for. Without
// cumLiq the shield's recorded liquidation total is used.
func (s *Server) handleUValue(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	rcaAmount, err := queryAmount(r, "rca", true)
	if err != nil {
		s.fail(w, err)
		return
	}
	cumLiq, err := queryAmount(r, "cumLiq", false)
	if err != nil {
		s.fail(w, err)
		return
	}
	var pct uint64
	if raw := strings.TrimSpace(r.URL.Query().Get("pct")); raw != "" {
		pct, err = strconv.ParseUint(raw, 10, 64)
		if err != nil {
			s.fail(w, badRequest("invalid pct", err))
			return
		}
	}
	var quote *big.Int
	err = s.deployment.Do(func(d *core.Deployment) error {
		engine, ok := d.Shield(addr)
		if !ok {
			return errNotFound
		}
		if cumLiq == nil {
			vault, err := engine.Vault()
			if err != nil {
				return err
			}
			cumLiq = vault.CumLiqForClaims
		}
		var err error
		quote, err = engine.UValue(rcaAmount, cumLiq, pct)
		return err
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	s.countQuote(r, "uvalue", addr.Hex())
	writeJSON(w, http.StatusOK, map[string]string{"uAmount": quote.String()})
}

func (s *Server) handleRcaValue(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	uAmount, err := queryAmount(r, "u", true)
	if err != nil {
		s.fail(w, err)
		return
	}
	cumLiq, err := queryAmount(r, "cumLiq", false)
	if err != nil {
		s.fail(w, err)
		return
	}
	var quote *big.Int
	err = s.deployment.Do(func(d *core.Deployment) error {
		engine, ok := d.Shield(addr)
		if !ok {
			return errNotFound
		}
		if cumLiq == nil {
			vault, err := engine.Vault()
			if err != nil {
				return err
			}
			cumLiq = vault.CumLiqForClaims
		}
		var err error
		quote, err = engine.RcaValue(uAmount, cumLiq)
		return err
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	s.countQuote(r, "rcavalue", addr.Hex())
	writeJSON(w, http.StatusOK, map[string]string{"rcaAmount": quote.String()})
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	user, err := pathAddress(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	out := make(map[string]string)
	err = s.deployment.Do(func(d *core.Deployment) error {
		shields := d.Shields()
		balances, err := d.Controller.BalanceOfs(user, shields)
		if err != nil {
			return err
		}
		for i, addr := range shields {
			out[addr.Hex()] = amountString(balances[i])
		}
		return nil
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRequests(w http.ResponseWriter, r *http.Request) {
	user, err := pathAddress(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	var out []requestView
	err = s.deployment.Do(func(d *core.Deployment) error {
		shields := d.Shields()
		requests, err := d.Controller.RequestOfs(user, shields)
		if err != nil {
			return err
		}
		for i, req := range requests {
			if !req.Pending() {
				continue
			}
			out = append(out, toRequestView(shields[i], req))
		}
		return nil
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func toRequestView(shield common.Address, req *types.WithdrawRequest) requestView {
	return requestView{
		Shield:    shield.Hex(),
		RcaAmount: amountString(req.RcaAmount),
		UAmount:   amountString(req.UAmount),
		EndTime:   req.EndTime,
	}
}

func (s *Server) handleController(w http.ResponseWriter, _ *http.Request) {
	payload := make(map[string]any)
	err := s.deployment.Do(func(d *core.Deployment) error {
		global, _, err := d.Controller.Params()
		if err != nil {
			return err
		}
		roots, err := d.Controller.Roots()
		if err != nil {
			return err
		}
		roles, err := d.Controller.Roles()
		if err != nil {
			return err
		}
		governor, err := d.Controller.Governor()
		if err != nil {
			return err
		}
		payload["address"] = newAddressView(d.Controller.Address())
		payload["paused"] = d.Controller.IsPaused("")
		payload["params"] = map[string]any{
			"apr":             global.Apr,
			"discount":        global.Discount,
			"withdrawalDelay": global.WithdrawalDelay,
			"treasury":        newAddressView(global.Treasury),
		}
		payload["roots"] = map[string]string{
			"price":    roots.Price.Hex(),
			"liq":      roots.Liq.Hex(),
			"reserved": roots.Reserved.Hex(),
		}
		payload["roles"] = map[string]addressView{
			"governor":    newAddressView(governor),
			"guardian":    newAddressView(roles.Guardian),
			"priceOracle": newAddressView(roles.PriceOracle),
			"capOracle":   newAddressView(roles.CapOracle),
		}
		return nil
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleTreasury(w http.ResponseWriter, _ *http.Request) {
	payload := make(map[string]any)
	err := s.deployment.Do(func(d *core.Deployment) error {
		balance, err := d.Treasury.Balance()
		if err != nil {
			return err
		}
		payload["address"] = newAddressView(d.Treasury.Address())
		payload["balance"] = balance.String()
		return nil
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

// handleIncident returns the claims root of an incident. With ?user= it also
// reports whether that user has claimed.
func (s *Server) handleIncident(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.fail(w, badRequest("invalid incident id", err))
		return
	}
	var user *common.Address
	if raw := strings.TrimSpace(r.URL.Query().Get("user")); raw != "" {
		addr, err := crypto.ParseAddress(raw)
		if err != nil {
			s.fail(w, badRequest("invalid user", err))
			return
		}
		user = &addr
	}
	payload := map[string]any{"incident": id}
	err = s.deployment.Do(func(d *core.Deployment) error {
		root, err := d.Treasury.ClaimsRoot(id)
		if err != nil {
			return err
		}
		if root == (common.Hash{}) {
			return errNotFound
		}
		payload["root"] = root.Hex()
		if user != nil {
			claimed, err := d.Treasury.Claimed(*user, id)
			if err != nil {
				return err
			}
			payload["claimed"] = claimed
		}
		return nil
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeError(w, http.StatusServiceUnavailable, "event journal disabled")
		return
	}
	query := r.URL.Query()
	var from uint64
	if raw := strings.TrimSpace(query.Get("from")); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			s.fail(w, badRequest("invalid from", err))
			return
		}
		from = v
	}
	limit := 100
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 || v > 1000 {
			s.fail(w, badRequest("invalid limit", nil))
			return
		}
		limit = v
	}
	entries, err := s.journal.List(from, limit)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"next":    s.journal.Len(),
		"entries": entries,
	})
}
