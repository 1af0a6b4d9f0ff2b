package shield

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"rcavault/core/types"
	"rcavault/native/params"
)

// Vault returns the persisted accounting record.
func (e *Engine) Vault() (*Vault, error) {
	return e.loadVault()
}

// TotalSupply returns the RCA outstanding.
func (e *Engine) TotalSupply() (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.ledger.TotalSupply(e.cfg.Address)
}

// BalanceOf returns holder's RCA balance.
func (e *Engine) BalanceOf(holder common.Address) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.ledger.BalanceOf(e.cfg.Address, holder)
}

// WithdrawRequest returns user's pending withdrawal, zero-valued when none.
func (e *Engine) WithdrawRequest(user common.Address) (*types.WithdrawRequest, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.loadRequest(user)
}

// Valuation returns the value conversion inputs as of now, without syncing.
func (e *Engine) Valuation() (Valuation, error) {
	vault, err := e.loadVault()
	if err != nil {
		return Valuation{}, err
	}
	return e.valuation(vault, e.now())
}

// UValue returns the underlying, in base units, that rcaAmount would redeem
// for right now given the supplied attestations. The attestations are not
// verified.
func (e *Engine) UValue(rcaAmount, newCumLiq *big.Int, percentReserved uint64) (*big.Int, error) {
	val, err := e.Valuation()
	if err != nil {
		return nil, err
	}
	return e.denormalized(val.UValue(rcaAmount, newCumLiq, params.ClampPercentReserved(percentReserved))), nil
}

// RcaValue returns the RCA that uAmount base units would mint right now.
func (e *Engine) RcaValue(uAmount, newCumLiq *big.Int) (*big.Int, error) {
	val, err := e.Valuation()
	if err != nil {
		return nil, err
	}
	return val.RcaValue(e.normalized(uAmount), newCumLiq), nil
}
