// Package governable implements the two-step governor handoff shared by the
// controller, every shield and the treasury.
package governable

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"rcavault/core/events"
	nativecommon "rcavault/native/common"
)

var errNilState = errors.New("governable: state not configured")

type governableState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

type ownership struct {
	Governor common.Address
	Pending  common.Address
}

// Governable stores the governor of one contract and its pending successor.
type Governable struct {
	state    governableState
	contract common.Address
	key      []byte
}

// New binds ownership records for contract to state.
func New(state governableState, contract common.Address) *Governable {
	key := append([]byte("governable/"), contract.Bytes()...)
	return &Governable{state: state, contract: contract, key: key}
}

func (g *Governable) load() (ownership, error) {
	if g == nil || g.state == nil {
		return ownership{}, errNilState
	}
	var rec ownership
	if _, err := g.state.KVGet(g.key, &rec); err != nil {
		return ownership{}, err
	}
	return rec, nil
}

// Init sets the first governor. It fails once a governor exists.
func (g *Governable) Init(governor common.Address) error {
	rec, err := g.load()
	if err != nil {
		return err
	}
	if rec.Governor != (common.Address{}) {
		return nativecommon.NewStateError("governor already initialised")
	}
	if governor == (common.Address{}) {
		return nativecommon.NewStateError("governor must be non-zero")
	}
	return g.state.KVPut(g.key, ownership{Governor: governor})
}

// Governor returns the current governor.
func (g *Governable) Governor() (common.Address, error) {
	rec, err := g.load()
	return rec.Governor, err
}

// PendingGovernor returns the nominated successor, if any.
func (g *Governable) PendingGovernor() (common.Address, error) {
	rec, err := g.load()
	return rec.Pending, err
}

// RequireGovernor fails with an AuthorizationError unless caller governs.
func (g *Governable) RequireGovernor(caller common.Address) error {
	rec, err := g.load()
	if err != nil {
		return err
	}
	if rec.Governor == (common.Address{}) || rec.Governor != caller {
		return nativecommon.NewAuthorizationError("governor")
	}
	return nil
}

// TransferOwnership records candidate as the pending governor.
func (g *Governable) TransferOwnership(caller, candidate common.Address) (events.Event, error) {
	rec, err := g.load()
	if err != nil {
		return nil, err
	}
	if rec.Governor != caller {
		return nil, nativecommon.NewAuthorizationError("governor")
	}
	if candidate == (common.Address{}) {
		return nil, nativecommon.NewStateError("pending governor must be non-zero")
	}
	rec.Pending = candidate
	if err := g.state.KVPut(g.key, rec); err != nil {
		return nil, err
	}
	return events.PendingOwnershipTransfer{Contract: g.contract, From: caller, To: candidate}, nil
}

// ReceiveOwnership completes the handoff. Only the pending governor may call.
func (g *Governable) ReceiveOwnership(caller common.Address) (events.Event, error) {
	rec, err := g.load()
	if err != nil {
		return nil, err
	}
	if rec.Pending == (common.Address{}) || rec.Pending != caller {
		return nil, nativecommon.NewAuthorizationError("pending governor")
	}
	previous := rec.Governor
	rec.Governor = caller
	rec.Pending = common.Address{}
	if err := g.state.KVPut(g.key, rec); err != nil {
		return nil, err
	}
	return events.OwnershipTransferred{Contract: g.contract, From: previous, To: caller}, nil
}
