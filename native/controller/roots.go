package controller

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"rcavault/core/events"
	"rcavault/native/merkle"
	"rcavault/native/params"
)

func (e *Engine) rotateRoots(check func(Roles) error, apply func(*Roots, *params.Updates, uint64) []events.Event) error {
	var emitted []events.Event
	err := e.atomic(func() error {
		roles, err := e.roles()
		if err != nil {
			return err
		}
		if err := check(roles); err != nil {
			return err
		}
		roots, err := e.roots()
		if err != nil {
			return err
		}
		updates, err := e.params.Updates()
		if err != nil {
			return err
		}
		emitted = apply(&roots, &updates, e.now())
		if err := e.state.KVPut(rootsKey, roots); err != nil {
			return err
		}
		return e.params.SetUpdates(updates)
	})
	if err != nil {
		return err
	}
	for _, evt := range emitted {
		e.logger.Info("controller root rotated", "kind", evt.Event().Attributes["kind"], "root", evt.Event().Attributes["root"])
		e.emit(evt)
	}
	return nil
}

// SetPrices commits a new price root. Price oracle only.
func (e *Engine) SetPrices(caller common.Address, root common.Hash) error {
	return e.rotateRoots(func(r Roles) error {
		return e.requireRole(caller, r.PriceOracle, "priceOracle")
	}, func(roots *Roots, _ *params.Updates, now uint64) []events.Event {
		roots.Price = root
		return []events.Event{events.RootUpdated{Kind: merkle.KindPrice, Root: root, Timestamp: now}}
	})
}

// SetLiqTotal commits the liquidation and reserved roots together. Governor
// only.
func (e *Engine) SetLiqTotal(caller common.Address, liqRoot, reservedRoot common.Hash) error {
	return e.rotateRoots(func(Roles) error {
		return e.requireGovernor(caller)
	}, func(roots *Roots, updates *params.Updates, now uint64) []events.Event {
		roots.Liq = liqRoot
		roots.Reserved = reservedRoot
		updates.Liq = now
		updates.Reserved = now
		return []events.Event{
			events.RootUpdated{Kind: merkle.KindLiquidation, Root: liqRoot, Timestamp: now},
			events.RootUpdated{Kind: merkle.KindReserved, Root: reservedRoot, Timestamp: now},
		}
	})
}

// SetPercentReserved commits a new reserved root. Guardian only.
func (e *Engine) SetPercentReserved(caller common.Address, reservedRoot common.Hash) error {
	return e.rotateRoots(func(r Roles) error {
		return e.requireRole(caller, r.Guardian, "guardian")
	}, func(roots *Roots, updates *params.Updates, now uint64) []events.Event {
		roots.Reserved = reservedRoot
		updates.Reserved = now
		return []events.Event{events.RootUpdated{Kind: merkle.KindReserved, Root: reservedRoot, Timestamp: now}}
	})
}

// VerifyPrice checks an asset price against the price root.
func (e *Engine) VerifyPrice(asset common.Address, price *big.Int, proof []common.Hash) error {
	return e.verify(merkle.KindPrice, merkle.PriceLeaf(asset, price), proof, func(r Roots) common.Hash { return r.Price })
}

// VerifyLiq checks a shield's cumulative liquidation against the liquidation
// root.
func (e *Engine) VerifyLiq(shield common.Address, cumLiqForClaims *big.Int, proof []common.Hash) error {
	return e.verify(merkle.KindLiquidation, merkle.LiquidationLeaf(shield, cumLiqForClaims), proof, func(r Roots) common.Hash { return r.Liq })
}

// VerifyReserved checks a shield's reserved percentage against the reserved
// root.
func (e *Engine) VerifyReserved(shield common.Address, percentReserved uint64, proof []common.Hash) error {
	return e.verify(merkle.KindReserved, merkle.ReservedLeaf(shield, percentReserved), proof, func(r Roots) common.Hash { return r.Reserved })
}

func (e *Engine) verify(kind string, leaf common.Hash, proof []common.Hash, pick func(Roots) common.Hash) error {
	if err := e.ready(); err != nil {
		return err
	}
	roots, err := e.roots()
	if err != nil {
		return err
	}
	if err := merkle.Check(kind, pick(roots), leaf, proof); err != nil {
		e.logger.Debug("controller proof rejected", "kind", kind, "leaf", leaf.Hex())
		return err
	}
	return nil
}
