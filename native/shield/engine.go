// Package shield implements the per-asset coverage vault. A shield holds one
// underlying asset through an adapter, issues RCA against deposits, decays
// that RCA's value at the governed apr and pays withdrawals after the
// withdrawal delay.
package shield

import (
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"rcavault/core/events"
	"rcavault/core/types"
	"rcavault/native/bank"
	"rcavault/native/capacity"
	nativecommon "rcavault/native/common"
	"rcavault/native/governable"
	"rcavault/native/params"
	"rcavault/native/shield/adapter"
	"rcavault/native/shield/router"
	"rcavault/observability/metrics"
)

var (
	errNilState      = errors.New("shield engine: state not configured")
	errNilController = errors.New("shield engine: controller not configured")
	errNilAdapter    = errors.New("shield engine: adapter not configured")
)

type engineState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
	KVAppend(key []byte, value []byte) error
	KVGetList(key []byte, out interface{}) error
	nativecommon.Snapshotter
}

// Controller is the part of the protocol controller a shield depends on.
type Controller interface {
	Address() common.Address
	Params() (params.Global, params.Updates, error)
	Mint(shield, user common.Address, uAmount *big.Int, expiry uint64, sig capacity.Signature, newCumLiq *big.Int, liqProof []common.Hash) error
	RedeemRequest(shield common.Address, newCumLiq *big.Int, liqProof []common.Hash, percentReserved uint64, resProof []common.Hash) error
	RedeemFinalize(shield, router common.Address, newCumLiq *big.Int, liqProof []common.Hash, percentReserved uint64, resProof []common.Hash) error
	Purchase(shield, token common.Address, tokenPrice *big.Int, tokenProof []common.Hash, uToken common.Address, uPrice *big.Int, uProof []common.Hash) error
	PurchaseU(shield, uToken common.Address, uPrice *big.Int, uProof []common.Hash, newCumLiq *big.Int, liqProof []common.Hash) error
}

// Config is the construction-time description of a shield.
type Config struct {
	// Address is the shield address and the RCA token address.
	Address  common.Address
	Name     string
	Symbol   string
	UToken   common.Address
	Decimals uint64
	Governor common.Address
}

// Validate checks the configuration is usable.
func (c Config) Validate() error {
	if c.Address == (common.Address{}) {
		return fmt.Errorf("shield: address required")
	}
	if c.UToken == (common.Address{}) {
		return fmt.Errorf("shield: underlying token required")
	}
	if c.UToken == c.Address {
		return fmt.Errorf("shield: underlying token cannot be the shield itself")
	}
	if strings.TrimSpace(c.Symbol) == "" {
		return fmt.Errorf("shield: symbol required")
	}
	if c.Decimals > 36 {
		return fmt.Errorf("shield: decimals %d out of range", c.Decimals)
	}
	if c.Governor == (common.Address{}) {
		return fmt.Errorf("shield: governor required")
	}
	return nil
}

// Vault is the persisted accounting record of a shield. Amounts are on the 18
// decimal scale.
type Vault struct {
	Controller        common.Address
	Apr               uint64
	Discount          uint64
	WithdrawalDelay   uint64
	Treasury          common.Address
	PercentReserved   uint64
	AmtForSale        *big.Int
	CumLiqForClaims   *big.Int
	PendingWithdrawal *big.Int
	LastUpdate        uint64
	// RewardSales is the cumulative underlying value of reward tokens sold
	// through Purchase, before discount.
	RewardSales *big.Int
}

func (v *Vault) normalize() {
	if v.AmtForSale == nil {
		v.AmtForSale = new(big.Int)
	}
	if v.CumLiqForClaims == nil {
		v.CumLiqForClaims = new(big.Int)
	}
	if v.PendingWithdrawal == nil {
		v.PendingWithdrawal = new(big.Int)
	}
	if v.RewardSales == nil {
		v.RewardSales = new(big.Int)
	}
}

// Engine is one shield.
type Engine struct {
	cfg     Config
	state   engineState
	ctrl    Controller
	adapter adapter.Adapter
	routers *router.Registry
	ledger  *bank.Ledger
	gov     *governable.Governable
	emitter events.Emitter
	logger  *slog.Logger
	metrics *metrics.VaultMetrics
	nowFn   func() int64

	vaultKey      []byte
	requestPrefix []byte
	rewardPrefix  []byte
	rewardListKey []byte
}

// New constructs a shield over ctrl that stakes through a.
func New(cfg Config, ctrl Controller, a adapter.Adapter) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if ctrl == nil {
		return nil, errNilController
	}
	if a == nil {
		return nil, errNilAdapter
	}
	cfg.Name = strings.TrimSpace(cfg.Name)
	cfg.Symbol = strings.TrimSpace(cfg.Symbol)
	base := append([]byte("shield/"), cfg.Address.Bytes()...)
	return &Engine{
		cfg:           cfg,
		ctrl:          ctrl,
		adapter:       a,
		routers:       router.NewRegistry(),
		emitter:       events.NoopEmitter{},
		logger:        slog.Default(),
		metrics:       metrics.Vault(),
		nowFn:         func() int64 { return time.Now().Unix() },
		vaultKey:      append(append([]byte(nil), base...), "/vault"...),
		requestPrefix: append(append([]byte(nil), base...), "/request/"...),
		rewardPrefix:  append(append([]byte(nil), base...), "/reward/"...),
		rewardListKey: append(append([]byte(nil), base...), "/rewards"...),
	}, nil
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) {
	e.state = state
	e.ledger = bank.NewLedger(state)
	e.gov = governable.New(state, e.cfg.Address)
}

// SetEmitter configures the event emitter. Passing nil installs a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetLogger configures the engine logger.
func (e *Engine) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	e.logger = logger.With("shield", e.cfg.Address.Hex(), "symbol", e.cfg.Symbol)
}

// SetNowFunc overrides the time source used by the engine.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		now = func() int64 { return time.Now().Unix() }
	}
	e.nowFn = now
}

// SetRouters installs the registry zap routers are resolved from.
func (e *Engine) SetRouters(reg *router.Registry) {
	if reg == nil {
		reg = router.NewRegistry()
	}
	e.routers = reg
}

// Address returns the shield address, which is also its RCA token address.
func (e *Engine) Address() common.Address { return e.cfg.Address }

// Config returns the construction parameters.
func (e *Engine) Config() Config { return e.cfg }

// Adapter returns the yield source strategy.
func (e *Engine) Adapter() adapter.Adapter { return e.adapter }

// Initialize installs the governor, registers the RCA token and copies the
// controller parameters. It may run once.
func (e *Engine) Initialize() error {
	return e.atomic(func() error {
		ok, err := e.state.KVGet(e.vaultKey, nil)
		if err != nil {
			return err
		}
		if ok {
			return nativecommon.NewStateError("shield already initialized")
		}
		if err := e.gov.Init(e.cfg.Governor); err != nil {
			return err
		}
		token := bank.Token{Address: e.cfg.Address, Symbol: e.cfg.Symbol, Name: e.cfg.Name, Decimals: Decimals}
		if err := e.ledger.RegisterToken(token); err != nil {
			return err
		}
		vault := &Vault{Controller: e.ctrl.Address()}
		vault.normalize()
		if err := e.pullParams(vault); err != nil {
			return err
		}
		vault.LastUpdate = e.now()
		return e.storeVault(vault)
	})
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) now() uint64 {
	ts := e.nowFn()
	if ts < 0 {
		return 0
	}
	return uint64(ts)
}

func (e *Engine) atomic(fn func() error) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	return nativecommon.Atomic(e.state, fn)
}

// observe records the outcome of operation and passes err through.
func (e *Engine) observe(operation string, err error) error {
	if err == nil {
		return nil
	}
	e.metrics.ObserveRejected(operation, errorClass(err))
	e.logger.Debug("shield call rejected", "operation", operation, "error", err)
	return err
}

func errorClass(err error) string {
	switch {
	case errors.Is(err, nativecommon.ErrAuthorization):
		return "authorization"
	case errors.Is(err, nativecommon.ErrSignature):
		return "signature"
	case errors.Is(err, nativecommon.ErrProof):
		return "proof"
	case errors.Is(err, nativecommon.ErrCapacity):
		return "capacity"
	case errors.Is(err, nativecommon.ErrRouter):
		return "router"
	case errors.Is(err, nativecommon.ErrState):
		return "state"
	default:
		return "internal"
	}
}

func (e *Engine) loadVault() (*Vault, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	vault := new(Vault)
	ok, err := e.state.KVGet(e.vaultKey, vault)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nativecommon.NewStateError("shield not initialized")
	}
	vault.normalize()
	return vault, nil
}

func (e *Engine) storeVault(v *Vault) error {
	v.normalize()
	return e.state.KVPut(e.vaultKey, v)
}

func (e *Engine) requestKey(user common.Address) []byte {
	return append(append([]byte(nil), e.requestPrefix...), user.Bytes()...)
}

func (e *Engine) rewardKey(token common.Address) []byte {
	return append(append([]byte(nil), e.rewardPrefix...), token.Bytes()...)
}

func (e *Engine) loadRequest(user common.Address) (*types.WithdrawRequest, error) {
	req := new(types.WithdrawRequest)
	if _, err := e.state.KVGet(e.requestKey(user), req); err != nil {
		return nil, err
	}
	return req.Copy(), nil
}

// normalized converts underlying base units to the internal scale.
func (e *Engine) normalized(amount *big.Int) *big.Int {
	return Normalize(amount, e.cfg.Decimals)
}

func (e *Engine) denormalized(amount *big.Int) *big.Int {
	return Denormalize(amount, e.cfg.Decimals)
}

func floatOf(v *big.Int) float64 {
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(v), new(big.Float).SetInt(pow10(Decimals))).Float64()
	return f
}
