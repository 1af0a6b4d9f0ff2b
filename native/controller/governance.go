package controller

import (
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"rcavault/core/events"
	nativecommon "rcavault/native/common"
	"rcavault/native/params"
)

// Genesis carries the one-time controller configuration.
type Genesis struct {
	Governor    common.Address
	Guardian    common.Address
	PriceOracle common.Address
	CapOracle   common.Address
	Global      params.Global
}

// Initialize installs roles and global parameters. It may run once.
func (e *Engine) Initialize(genesis Genesis) error {
	return e.atomic(func() error {
		done, err := e.initialized()
		if err != nil {
			return err
		}
		if done {
			return nativecommon.NewStateError("controller already initialized")
		}
		if err := genesis.Global.Validate(); err != nil {
			return nativecommon.NewStateError(err.Error())
		}
		if err := e.gov.Init(genesis.Governor); err != nil {
			return err
		}
		roles := Roles{Guardian: genesis.Guardian, PriceOracle: genesis.PriceOracle, CapOracle: genesis.CapOracle}
		if err := e.state.KVPut(rolesKey, roles); err != nil {
			return err
		}
		if err := e.params.SetGlobal(genesis.Global); err != nil {
			return err
		}
		now := e.now()
		updates := params.Updates{Apr: now, Discount: now, WithdrawalDelay: now, Treasury: now}
		if err := e.params.SetUpdates(updates); err != nil {
			return err
		}
		return e.state.KVPut(initializedKey, true)
	})
}

func (e *Engine) setGlobal(caller common.Address, name string, apply func(*params.Global, *params.Updates, uint64) (string, error)) error {
	var evt events.Event
	err := e.atomic(func() error {
		if err := e.requireGovernor(caller); err != nil {
			return err
		}
		global, err := e.params.Global()
		if err != nil {
			return err
		}
		updates, err := e.params.Updates()
		if err != nil {
			return err
		}
		now := e.now()
		value, err := apply(&global, &updates, now)
		if err != nil {
			return err
		}
		if err := e.params.SetGlobal(global); err != nil {
			return err
		}
		if err := e.params.SetUpdates(updates); err != nil {
			return err
		}
		evt = events.ParamUpdated{Name: name, Value: value, Timestamp: now}
		return nil
	})
	if err != nil {
		return err
	}
	e.logger.Info("controller parameter updated", "param", name, "value", evt.Event().Attributes["value"])
	e.emit(evt)
	return nil
}

// SetApr updates the annual decay rate in basis points.
func (e *Engine) SetApr(caller common.Address, apr uint64) error {
	return e.setGlobal(caller, "apr", func(g *params.Global, u *params.Updates, now uint64) (string, error) {
		if err := params.ValidateApr(apr); err != nil {
			return "", nativecommon.NewStateError(err.Error())
		}
		g.Apr = apr
		u.Apr = now
		return strconv.FormatUint(apr, 10), nil
	})
}

// SetDiscount updates the purchase discount in basis points.
func (e *Engine) SetDiscount(caller common.Address, discount uint64) error {
	return e.setGlobal(caller, "discount", func(g *params.Global, u *params.Updates, now uint64) (string, error) {
		if err := params.ValidateDiscount(discount); err != nil {
			return "", nativecommon.NewStateError(err.Error())
		}
		g.Discount = discount
		u.Discount = now
		return strconv.FormatUint(discount, 10), nil
	})
}

// SetWithdrawalDelay updates the redemption delay in seconds.
func (e *Engine) SetWithdrawalDelay(caller common.Address, delay uint64) error {
	return e.setGlobal(caller, "withdrawalDelay", func(g *params.Global, u *params.Updates, now uint64) (string, error) {
		if err := params.ValidateWithdrawalDelay(delay); err != nil {
			return "", nativecommon.NewStateError(err.Error())
		}
		g.WithdrawalDelay = delay
		u.WithdrawalDelay = now
		return strconv.FormatUint(delay, 10), nil
	})
}

// SetTreasury updates the address purchase payments are routed to.
func (e *Engine) SetTreasury(caller, treasury common.Address) error {
	return e.setGlobal(caller, "treasury", func(g *params.Global, u *params.Updates, now uint64) (string, error) {
		if treasury == (common.Address{}) {
			return "", nativecommon.NewStateError("treasury address required")
		}
		g.Treasury = treasury
		u.Treasury = now
		return treasury.Hex(), nil
	})
}

func (e *Engine) setRole(caller common.Address, name string, apply func(*Roles)) error {
	err := e.atomic(func() error {
		if err := e.requireGovernor(caller); err != nil {
			return err
		}
		roles, err := e.roles()
		if err != nil {
			return err
		}
		apply(&roles)
		return e.state.KVPut(rolesKey, roles)
	})
	if err != nil {
		return err
	}
	e.logger.Info("controller role updated", "role", name)
	return nil
}

// SetGuardian rotates the guardian.
func (e *Engine) SetGuardian(caller, guardian common.Address) error {
	return e.setRole(caller, "guardian", func(r *Roles) { r.Guardian = guardian })
}

// SetPriceOracle rotates the price oracle.
func (e *Engine) SetPriceOracle(caller, oracle common.Address) error {
	return e.setRole(caller, "priceOracle", func(r *Roles) { r.PriceOracle = oracle })
}

// SetCapOracle rotates the capacity oracle. Claims signed by the previous
// oracle stop verifying immediately.
func (e *Engine) SetCapOracle(caller, oracle common.Address) error {
	return e.setRole(caller, "capOracle", func(r *Roles) { r.CapOracle = oracle })
}

// Pause stops mints and redeem requests. Guardian only.
func (e *Engine) Pause(caller common.Address) error {
	return e.setPaused(caller, true)
}

// Unpause resumes mints and redeem requests. Governor only.
func (e *Engine) Unpause(caller common.Address) error {
	return e.setPaused(caller, false)
}

func (e *Engine) setPaused(caller common.Address, paused bool) error {
	err := e.atomic(func() error {
		if paused {
			roles, err := e.roles()
			if err != nil {
				return err
			}
			if err := e.requireRole(caller, roles.Guardian, "guardian"); err != nil {
				return err
			}
		} else if err := e.requireGovernor(caller); err != nil {
			return err
		}
		return e.state.KVPut(pausedKey, paused)
	})
	if err != nil {
		return err
	}
	e.logger.Warn("controller pause toggled", "paused", paused, "by", caller.Hex())
	e.emit(events.Paused{Paused: paused, By: caller})
	return nil
}

// IsPaused reports whether module is halted. The controller pause covers
// every shield.
func (e *Engine) IsPaused(module string) bool {
	if e.ready() != nil {
		return false
	}
	var paused bool
	if _, err := e.state.KVGet(pausedKey, &paused); err != nil {
		e.logger.Error("controller pause flag unreadable", "error", err)
		return true
	}
	return paused
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
