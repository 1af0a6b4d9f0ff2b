package shield

import (
	"math/big"

	nativecommon "rcavault/native/common"
)

// valuation snapshots the inputs of the value conversions at time now.
func (e *Engine) valuation(v *Vault, now uint64) (Valuation, error) {
	raw, err := e.adapter.UnderlyingBalance()
	if err != nil {
		return Valuation{}, err
	}
	balance := e.normalized(raw)
	balance.Sub(balance, v.PendingWithdrawal)
	if balance.Sign() < 0 {
		balance.SetInt64(0)
	}
	supply, err := e.ledger.TotalSupply(e.cfg.Address)
	if err != nil {
		return Valuation{}, err
	}
	var elapsed uint64
	if now > v.LastUpdate {
		elapsed = now - v.LastUpdate
	}
	return Valuation{
		Balance:     balance,
		AmtForSale:  new(big.Int).Set(v.AmtForSale),
		CumLiq:      new(big.Int).Set(v.CumLiqForClaims),
		TotalSupply: supply,
		Apr:         v.Apr,
		Elapsed:     elapsed,
	}, nil
}

// pullParams copies the controller's global parameters when any of them
// changed at or after the shield's last sync.
func (e *Engine) pullParams(v *Vault) error {
	global, updates, err := e.ctrl.Params()
	if err != nil {
		return err
	}
	if v.LastUpdate != 0 && updates.Latest() < v.LastUpdate {
		return nil
	}
	v.Apr = global.Apr
	v.Discount = global.Discount
	v.WithdrawalDelay = global.WithdrawalDelay
	v.Treasury = global.Treasury
	return nil
}

// sync folds accrued premium and newly attested liquidations into the
// for-sale pool and advances lastUpdate. The vault is written back. It fails
// when the pool would exceed the non-pending balance.
func (e *Engine) sync(v *Vault, newCumLiq *big.Int, now uint64) error {
	return e.fold(v, newCumLiq, now, false)
}

// settle is sync for paths that must not be blocked by an oversized pool:
// the pool is capped at the non-pending balance instead.
func (e *Engine) settle(v *Vault, newCumLiq *big.Int, now uint64) error {
	return e.fold(v, newCumLiq, now, true)
}

func (e *Engine) fold(v *Vault, newCumLiq *big.Int, now uint64, capped bool) error {
	val, err := e.valuation(v, now)
	if err != nil {
		return err
	}
	total := val.TotalForSale(newCumLiq)
	if total.Cmp(val.Balance) > 0 {
		if !capped {
			return nativecommon.NewStateError("amtForSale too high")
		}
		total.Set(val.Balance)
	}
	v.AmtForSale = total
	if newCumLiq != nil && newCumLiq.Cmp(v.CumLiqForClaims) > 0 {
		v.CumLiqForClaims = new(big.Int).Set(newCumLiq)
	}
	if err := e.pullParams(v); err != nil {
		return err
	}
	if now > v.LastUpdate {
		v.LastUpdate = now
	}
	return e.storeVault(v)
}

// reportGauges refreshes the supply and for-sale gauges after a committed
// state change.
func (e *Engine) reportGauges() {
	v, err := e.loadVault()
	if err != nil {
		return
	}
	supply, err := e.ledger.TotalSupply(e.cfg.Address)
	if err != nil {
		return
	}
	label := e.cfg.Address.Hex()
	e.metrics.SetForSale(label, floatOf(v.AmtForSale))
	e.metrics.SetTotalSupply(label, floatOf(supply))
}
