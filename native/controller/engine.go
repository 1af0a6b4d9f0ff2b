// Package controller implements the protocol coordinator: governed risk
// parameters, the committed price, liquidation and reserved roots, the shield
// registry, the router whitelist and capacity claim verification.
package controller

import (
	"errors"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"rcavault/core/events"
	"rcavault/core/types"
	"rcavault/native/bank"
	"rcavault/native/capacity"
	nativecommon "rcavault/native/common"
	"rcavault/native/governable"
	"rcavault/native/params"
)

// ModuleName labels the controller in pause checks and logs.
const ModuleName = "controller"

var (
	errNilState       = errors.New("controller engine: state not configured")
	errNotInitialized = errors.New("controller engine: not initialized")
)

var (
	rolesKey       = []byte("controller/roles")
	rootsKey       = []byte("controller/roots")
	pausedKey      = []byte("controller/paused")
	shieldListKey  = []byte("controller/shields")
	shieldPrefix   = []byte("controller/shield/")
	routerPrefix   = []byte("controller/router/")
	initializedKey = []byte("controller/initialized")
)

type engineState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
	KVAppend(key []byte, value []byte) error
	KVRemove(key []byte, value []byte) error
	KVGetList(key []byte, out interface{}) error
	ParamStoreSet(name string, value []byte) error
	ParamStoreGet(name string) ([]byte, bool, error)
	nativecommon.Snapshotter
}

// ShieldView exposes the per-user withdrawal record of an attached shield.
type ShieldView interface {
	WithdrawRequest(user common.Address) (*types.WithdrawRequest, error)
}

// Roles holds every controller role except the governor, which lives in the
// governable record.
type Roles struct {
	Guardian    common.Address
	PriceOracle common.Address
	CapOracle   common.Address
}

// Roots holds the committed Merkle roots.
type Roots struct {
	Price    common.Hash
	Liq      common.Hash
	Reserved common.Hash
}

// ShieldRecord is the registry entry for a shield.
type ShieldRecord struct {
	Address common.Address
	UToken  common.Address
	Name    string
	Symbol  string
	Active  bool
	Created uint64
}

// Engine is the controller state machine.
type Engine struct {
	address  common.Address
	state    engineState
	emitter  events.Emitter
	logger   *slog.Logger
	nowFn    func() int64
	capacity *capacity.Authority
	gov      *governable.Governable
	params   *params.Store
	ledger   *bank.Ledger
	views    map[common.Address]ShieldView
}

// NewEngine constructs a controller at address whose capacity claims are
// bound to chainID.
func NewEngine(address common.Address, chainID uint64) *Engine {
	return &Engine{
		address:  address,
		emitter:  events.NoopEmitter{},
		logger:   slog.Default(),
		nowFn:    func() int64 { return time.Now().Unix() },
		capacity: capacity.NewAuthority(capacity.Domain{ChainID: chainID, Controller: address}),
		views:    make(map[common.Address]ShieldView),
	}
}

// Address returns the controller address.
func (e *Engine) Address() common.Address { return e.address }

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) {
	e.state = state
	e.capacity.SetState(state)
	e.gov = governable.New(state, e.address)
	e.params = params.NewStore(state)
	e.ledger = bank.NewLedger(state)
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
	e.logger = logger
}

// SetNowFunc overrides the clock used for timestamps and claim expiry.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		now = func() int64 { return time.Now().Unix() }
	}
	e.nowFn = now
	e.capacity.SetNowFunc(now)
}

// CapacityDomain returns the domain capacity claims must be signed under.
func (e *Engine) CapacityDomain() capacity.Domain { return e.capacity.Domain() }

// AttachShield registers the view RequestOfs reads for shield.
func (e *Engine) AttachShield(shield common.Address, view ShieldView) {
	if view == nil {
		delete(e.views, shield)
		return
	}
	e.views[shield] = view
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

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	return nil
}

func (e *Engine) atomic(fn func() error) error {
	if err := e.ready(); err != nil {
		return err
	}
	return nativecommon.Atomic(e.state, fn)
}

func (e *Engine) initialized() (bool, error) {
	var ok bool
	if _, err := e.state.KVGet(initializedKey, &ok); err != nil {
		return false, err
	}
	return ok, nil
}

func (e *Engine) roles() (Roles, error) {
	var roles Roles
	if _, err := e.state.KVGet(rolesKey, &roles); err != nil {
		return Roles{}, err
	}
	return roles, nil
}

func (e *Engine) roots() (Roots, error) {
	var roots Roots
	if _, err := e.state.KVGet(rootsKey, &roots); err != nil {
		return Roots{}, err
	}
	return roots, nil
}

func shieldKey(shield common.Address) []byte {
	return append(append([]byte(nil), shieldPrefix...), shield.Bytes()...)
}

func routerKey(router common.Address) []byte {
	return append(append([]byte(nil), routerPrefix...), router.Bytes()...)
}

func (e *Engine) requireGovernor(caller common.Address) error {
	return e.gov.RequireGovernor(caller)
}

func (e *Engine) requireRole(caller, holder common.Address, role string) error {
	if holder == (common.Address{}) || caller != holder {
		return nativecommon.NewAuthorizationError(role)
	}
	return nil
}
