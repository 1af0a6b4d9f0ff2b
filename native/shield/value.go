package shield

import (
	"math/big"

	"rcavault/native/params"
)

// Decimals is the precision RCA and every internal accounting amount use.
const Decimals = 18

var (
	bpsDenominator = new(big.Int).SetUint64(params.BpsDenominator)
	premiumDivisor = new(big.Int).SetUint64(params.BpsDenominator * params.SecondsPerYear)
)

func pow10(n uint64) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), new(big.Int).SetUint64(n), nil)
}

// Normalize converts amount from decimals to the internal 18 decimal scale.
func Normalize(amount *big.Int, decimals uint64) *big.Int {
	if amount == nil {
		return new(big.Int)
	}
	out := new(big.Int).Set(amount)
	switch {
	case decimals < Decimals:
		out.Mul(out, pow10(Decimals-decimals))
	case decimals > Decimals:
		out.Quo(out, pow10(decimals-Decimals))
	}
	return out
}

// Denormalize converts an 18 decimal amount back to decimals, rounding down.
func Denormalize(amount *big.Int, decimals uint64) *big.Int {
	if amount == nil {
		return new(big.Int)
	}
	out := new(big.Int).Set(amount)
	switch {
	case decimals < Decimals:
		out.Quo(out, pow10(Decimals-decimals))
	case decimals > Decimals:
		out.Mul(out, pow10(decimals-Decimals))
	}
	return out
}

// Valuation is the input to the uValue and rcaValue conversions. Every amount
// is on the 18 decimal scale.
type Valuation struct {
	// Balance is the underlying the shield controls less pending withdrawals.
	Balance     *big.Int
	AmtForSale  *big.Int
	CumLiq      *big.Int
	TotalSupply *big.Int
	Apr         uint64
	// Elapsed is the number of seconds since the last sync.
	Elapsed uint64
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

// Premium is the linear decay accrued on the active balance since the last
// sync.
func (v Valuation) Premium() *big.Int {
	active := new(big.Int).Sub(orZero(v.Balance), orZero(v.AmtForSale))
	if active.Sign() <= 0 || v.Apr == 0 || v.Elapsed == 0 {
		return new(big.Int)
	}
	active.Mul(active, new(big.Int).SetUint64(v.Apr))
	active.Mul(active, new(big.Int).SetUint64(v.Elapsed))
	return active.Quo(active, premiumDivisor)
}

// TotalForSale is the for-sale pool a sync against newCumLiq would record.
func (v Valuation) TotalForSale(newCumLiq *big.Int) *big.Int {
	total := new(big.Int).Add(orZero(v.AmtForSale), v.Premium())
	if delta := new(big.Int).Sub(orZero(newCumLiq), orZero(v.CumLiq)); delta.Sign() > 0 {
		total.Add(total, delta)
	}
	return total
}

func (v Valuation) backing(newCumLiq *big.Int) *big.Int {
	return new(big.Int).Sub(orZero(v.Balance), v.TotalForSale(newCumLiq))
}

// UValue is the underlying redeemable for rcaAmount RCA after reserving
// percentReserved basis points, capped at the reserve maximum.
func (v Valuation) UValue(rcaAmount, newCumLiq *big.Int, percentReserved uint64) *big.Int {
	rca := orZero(rcaAmount)
	supply := orZero(v.TotalSupply)
	if supply.Sign() == 0 {
		return new(big.Int).Set(rca)
	}
	backing := v.backing(newCumLiq)
	if backing.Sign() <= 0 {
		return new(big.Int)
	}
	u := new(big.Int).Mul(rca, backing)
	u.Quo(u, supply)
	pct := params.ClampPercentReserved(percentReserved)
	if pct > 0 {
		reserved := new(big.Int).Mul(u, new(big.Int).SetUint64(pct))
		reserved.Quo(reserved, bpsDenominator)
		u.Sub(u, reserved)
	}
	return u
}

// RcaValue is the RCA minted for uAmount of underlying. The reserved buffer
// only applies to withdrawals, so it plays no part here.
func (v Valuation) RcaValue(uAmount, newCumLiq *big.Int) *big.Int {
	u := orZero(uAmount)
	supply := orZero(v.TotalSupply)
	if orZero(v.Balance).Sign() == 0 || supply.Sign() == 0 {
		return new(big.Int).Set(u)
	}
	backing := v.backing(newCumLiq)
	if backing.Sign() <= 0 {
		return new(big.Int).Set(u)
	}
	rca := new(big.Int).Mul(supply, u)
	return rca.Quo(rca, backing)
}
