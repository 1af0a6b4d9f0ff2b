package shield

import (
	"github.com/ethereum/go-ethereum/common"

	"rcavault/core/events"
	nativecommon "rcavault/native/common"
)

// SetController moves the shield to another controller. Governor only. The
// vault is synced against the old controller first, then the new
// controller's parameters are pulled.
func (e *Engine) SetController(caller common.Address, ctrl Controller) error {
	if ctrl == nil {
		return errNilController
	}
	previous := e.ctrl
	var evt events.ParamUpdated
	err := e.atomic(func() error {
		if err := e.gov.RequireGovernor(caller); err != nil {
			return err
		}
		if ctrl.Address() == (common.Address{}) {
			return nativecommon.NewStateError("controller address required")
		}
		vault, err := e.loadVault()
		if err != nil {
			return err
		}
		now := e.now()
		if err := e.settle(vault, vault.CumLiqForClaims, now); err != nil {
			return err
		}
		e.ctrl = ctrl
		vault.Controller = ctrl.Address()
		synced := vault.LastUpdate
		vault.LastUpdate = 0
		if err := e.pullParams(vault); err != nil {
			return err
		}
		vault.LastUpdate = synced
		if err := e.storeVault(vault); err != nil {
			return err
		}
		evt = events.ParamUpdated{Name: "controller", Value: ctrl.Address().Hex(), Timestamp: now}
		return nil
	})
	if err != nil {
		e.ctrl = previous
		return err
	}
	e.logger.Info("shield controller updated", "controller", ctrl.Address().Hex())
	e.emit(evt)
	return nil
}

// Governor returns the shield governor.
func (e *Engine) Governor() (common.Address, error) {
	if e == nil || e.state == nil {
		return common.Address{}, errNilState
	}
	return e.gov.Governor()
}

// TransferOwnership nominates the next shield governor.
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

// ReceiveOwnership completes a shield governor handoff.
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
