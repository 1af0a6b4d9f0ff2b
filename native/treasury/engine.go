// Package treasury custodies protocol revenue and pays incident claims
// committed under per-incident Merkle roots.
package treasury

import (
	"encoding/binary"
	"errors"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"rcavault/core/events"
	"rcavault/native/bank"
	nativecommon "rcavault/native/common"
	"rcavault/native/governable"
)

// ModuleName labels the treasury in pause checks and logs.
const ModuleName = "treasury"

var errNilState = errors.New("treasury engine: state not configured")

type engineState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	nativecommon.Snapshotter
}

// Engine is the treasury state machine. Funds are native currency held on the
// bank ledger under the treasury address.
type Engine struct {
	address common.Address
	state   engineState
	ledger  *bank.Ledger
	gov     *governable.Governable
	pauses  nativecommon.PauseView
	emitter events.Emitter
	logger  *slog.Logger
}

// NewEngine constructs a treasury at address.
func NewEngine(address common.Address) *Engine {
	return &Engine{
		address: address,
		emitter: events.NoopEmitter{},
		logger:  slog.Default(),
	}
}

// Address returns the treasury address.
func (e *Engine) Address() common.Address { return e.address }

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) {
	e.state = state
	e.ledger = bank.NewLedger(state)
	e.gov = governable.New(state, e.address)
}

// SetPauses wires the pause view consulted before claims pay out.
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

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
	e.logger = logger.With("module", ModuleName)
}

func (e *Engine) emit(evt events.Event) {
	if e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) atomic(fn func() error) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	return nativecommon.Atomic(e.state, fn)
}

func (e *Engine) rootKey(incidentID uint64) []byte {
	key := append([]byte("treasury/"), e.address.Bytes()...)
	key = append(key, "/root/"...)
	return binary.BigEndian.AppendUint64(key, incidentID)
}

func (e *Engine) claimedKey(user common.Address, incidentID uint64) []byte {
	key := append([]byte("treasury/"), e.address.Bytes()...)
	key = append(key, "/claimed/"...)
	key = append(key, user.Bytes()...)
	return binary.BigEndian.AppendUint64(key, incidentID)
}

// Initialize installs the first governor.
func (e *Engine) Initialize(governor common.Address) error {
	return e.atomic(func() error {
		return e.gov.Init(governor)
	})
}

// Deposit moves amount of native currency from caller into the treasury.
func (e *Engine) Deposit(caller common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return nativecommon.NewStateError("deposit amount must be positive")
	}
	return e.atomic(func() error {
		return e.ledger.Transfer(bank.Native, caller, e.address, amount)
	})
}

// Withdraw sweeps amount of native currency to to.
func (e *Engine) Withdraw(caller, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return nativecommon.NewStateError("withdraw amount must be positive")
	}
	if to == (common.Address{}) {
		return nativecommon.NewStateError("withdraw recipient required")
	}
	err := e.atomic(func() error {
		if err := e.gov.RequireGovernor(caller); err != nil {
			return err
		}
		return e.ledger.Transfer(bank.Native, e.address, to, amount)
	})
	if err != nil {
		return err
	}
	e.logger.Info("treasury withdrawal", "to", to.Hex(), "amount", amount.String())
	return nil
}

// Balance returns the native currency the treasury holds.
func (e *Engine) Balance() (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.ledger.BalanceOf(bank.Native, e.address)
}

// Governor returns the current governor.
func (e *Engine) Governor() (common.Address, error) {
	if e == nil || e.state == nil {
		return common.Address{}, errNilState
	}
	return e.gov.Governor()
}

// TransferOwnership nominates the next governor.
func (e *Engine) TransferOwnership(caller, candidate common.Address) error {
	var evt events.Event
	err := e.atomic(func() error {
		var err error
		evt, err = e.gov.TransferOwnership(caller, candidate)
		return err
	})
	if err != nil {
		return err
	}
	e.emit(evt)
	return nil
}

// ReceiveOwnership completes a governor handoff.
func (e *Engine) ReceiveOwnership(caller common.Address) error {
	var evt events.Event
	err := e.atomic(func() error {
		var err error
		evt, err = e.gov.ReceiveOwnership(caller)
		return err
	})
	if err != nil {
		return err
	}
	e.emit(evt)
	return nil
}
