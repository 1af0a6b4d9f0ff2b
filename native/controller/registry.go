package controller

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"rcavault/core/events"
	nativecommon "rcavault/native/common"
)

// InitializeShield adds shield to the active registry. Governor only.
func (e *Engine) InitializeShield(caller, shield, uToken common.Address, name, symbol string) error {
	var evt events.ShieldCreated
	err := e.atomic(func() error {
		if err := e.requireGovernor(caller); err != nil {
			return err
		}
		if shield == (common.Address{}) {
			return nativecommon.NewStateError("shield address required")
		}
		record, ok, err := e.Shield(shield)
		if err != nil {
			return err
		}
		if ok && record.Active {
			return nativecommon.NewStateError("shield already initialized")
		}
		now := e.now()
		record = ShieldRecord{
			Address: shield,
			UToken:  uToken,
			Name:    strings.TrimSpace(name),
			Symbol:  strings.TrimSpace(symbol),
			Active:  true,
			Created: now,
		}
		if err := e.state.KVPut(shieldKey(shield), record); err != nil {
			return err
		}
		if err := e.state.KVAppend(shieldListKey, shield.Bytes()); err != nil {
			return err
		}
		evt = events.ShieldCreated{Shield: shield, UToken: uToken, Name: record.Name, Symbol: record.Symbol, Timestamp: now}
		return nil
	})
	if err != nil {
		return err
	}
	e.logger.Info("shield initialized", "shield", shield.Hex(), "uToken", uToken.Hex())
	e.emit(evt)
	return nil
}

// CancelShield removes shield from the active registry. Governor only.
// Existing RCA holders keep their balances; the shield's hooks start failing.
func (e *Engine) CancelShield(caller, shield common.Address) error {
	var evt events.ShieldCancelled
	err := e.atomic(func() error {
		if err := e.requireGovernor(caller); err != nil {
			return err
		}
		record, ok, err := e.Shield(shield)
		if err != nil {
			return err
		}
		if !ok || !record.Active {
			return nativecommon.NewStateError("shield not active")
		}
		record.Active = false
		if err := e.state.KVPut(shieldKey(shield), record); err != nil {
			return err
		}
		if err := e.state.KVRemove(shieldListKey, shield.Bytes()); err != nil {
			return err
		}
		evt = events.ShieldCancelled{Shield: shield, Timestamp: e.now()}
		return nil
	})
	if err != nil {
		return err
	}
	e.logger.Info("shield cancelled", "shield", shield.Hex())
	e.emit(evt)
	return nil
}

// Shield returns the registry record for shield.
func (e *Engine) Shield(shield common.Address) (ShieldRecord, bool, error) {
	if err := e.ready(); err != nil {
		return ShieldRecord{}, false, err
	}
	var record ShieldRecord
	ok, err := e.state.KVGet(shieldKey(shield), &record)
	if err != nil {
		return ShieldRecord{}, false, err
	}
	return record, ok, nil
}

// IsActive reports whether shield is in the active registry.
func (e *Engine) IsActive(shield common.Address) (bool, error) {
	record, ok, err := e.Shield(shield)
	if err != nil {
		return false, err
	}
	return ok && record.Active, nil
}

// ActiveShields lists the active registry in insertion order.
func (e *Engine) ActiveShields() ([]common.Address, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	var raw [][]byte
	if err := e.state.KVGetList(shieldListKey, &raw); err != nil {
		return nil, err
	}
	out := make([]common.Address, 0, len(raw))
	for _, entry := range raw {
		out = append(out, common.BytesToAddress(entry))
	}
	return out, nil
}

// SetRouterVerified adds or removes router from the zap whitelist. Guardian
// only.
func (e *Engine) SetRouterVerified(caller, router common.Address, verified bool) error {
	err := e.atomic(func() error {
		roles, err := e.roles()
		if err != nil {
			return err
		}
		if err := e.requireRole(caller, roles.Guardian, "guardian"); err != nil {
			return err
		}
		if router == (common.Address{}) {
			return nativecommon.NewStateError("router address required")
		}
		if !verified {
			return e.state.KVDelete(routerKey(router))
		}
		return e.state.KVPut(routerKey(router), true)
	})
	if err != nil {
		return err
	}
	e.logger.Info("router whitelist updated", "router", router.Hex(), "verified", verified)
	e.emit(events.RouterVerified{Router: router, Verified: verified})
	return nil
}

// IsRouterVerified reports whether router may be used for zaps.
func (e *Engine) IsRouterVerified(router common.Address) (bool, error) {
	if err := e.ready(); err != nil {
		return false, err
	}
	var verified bool
	if _, err := e.state.KVGet(routerKey(router), &verified); err != nil {
		return false, err
	}
	return verified, nil
}
