package shield

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"rcavault/core/events"
	"rcavault/native/bank"
	nativecommon "rcavault/native/common"
)

func discounted(amount *big.Int, discount uint64) *big.Int {
	off := new(big.Int).Mul(amount, new(big.Int).SetUint64(discount))
	off.Quo(off, bpsDenominator)
	return new(big.Int).Sub(amount, off)
}

// PurchaseCost prices amount of a reward token: amount × tokenPrice / uPrice,
// less discount basis points.
func PurchaseCost(amount, tokenPrice, uPrice *big.Int, discount uint64) *big.Int {
	cost := new(big.Int).Mul(amount, tokenPrice)
	cost.Quo(cost, uPrice)
	return discounted(cost, discount)
}

// ForSaleCost prices uAmount base units of underlying out of the for-sale
// pool, where uPrice is the native price of one whole underlying token.
func ForSaleCost(uAmount, uPrice *big.Int, discount, decimals uint64) *big.Int {
	cost := new(big.Int).Mul(uAmount, uPrice)
	cost.Quo(cost, pow10(decimals))
	return discounted(cost, discount)
}

func validPrice(price *big.Int) error {
	if price == nil || price.Sign() <= 0 {
		return nativecommon.NewStateError("price must be positive")
	}
	return nil
}

func (e *Engine) collectPayment(v *Vault, payer common.Address, value, cost *big.Int) error {
	if value == nil || value.Cmp(cost) != 0 {
		return nativecommon.NewStateError("incorrect payment")
	}
	if v.Treasury == (common.Address{}) {
		return nativecommon.NewStateError("treasury not set")
	}
	return e.ledger.Transfer(bank.Native, payer, v.Treasury, value)
}

// TokenPurchase carries the arguments of a reward token purchase.
type TokenPurchase struct {
	Token      common.Address
	Amount     *big.Int
	TokenPrice *big.Int
	TokenProof []common.Hash
	UPrice     *big.Int
	UProof     []common.Hash
	// Value is the native currency sent with the call.
	Value *big.Int
}

// Purchase sells Amount of a harvested reward token to caller at the
// discounted attested price. The payment goes to the treasury.
func (e *Engine) Purchase(caller common.Address, req TokenPurchase) error {
	var evt events.Purchase
	err := e.atomic(func() error {
		if req.Token == e.cfg.UToken {
			return nativecommon.NewStateError("cannot buy underlying token")
		}
		if req.Amount == nil || req.Amount.Sign() <= 0 {
			return nativecommon.NewStateError("purchase amount must be positive")
		}
		if err := validPrice(req.TokenPrice); err != nil {
			return err
		}
		if err := validPrice(req.UPrice); err != nil {
			return err
		}
		if err := e.ctrl.Purchase(e.cfg.Address, req.Token, req.TokenPrice, req.TokenProof, e.cfg.UToken, req.UPrice, req.UProof); err != nil {
			return err
		}
		vault, err := e.loadVault()
		if err != nil {
			return err
		}
		held, err := e.RewardInventory(req.Token)
		if err != nil {
			return err
		}
		if held.Cmp(req.Amount) < 0 {
			return nativecommon.NewStateError("amount exceeds reward inventory")
		}
		cost := PurchaseCost(req.Amount, req.TokenPrice, req.UPrice, vault.Discount)
		if err := e.state.KVPut(e.rewardKey(req.Token), held.Sub(held, req.Amount)); err != nil {
			return err
		}
		sold := new(big.Int).Mul(req.Amount, req.TokenPrice)
		sold.Quo(sold, req.UPrice)
		vault.RewardSales = new(big.Int).Add(vault.RewardSales, e.normalized(sold))
		if err := e.storeVault(vault); err != nil {
			return err
		}
		if err := e.collectPayment(vault, caller, req.Value, cost); err != nil {
			return err
		}
		if err := e.ledger.Transfer(req.Token, e.cfg.Address, caller, req.Amount); err != nil {
			return err
		}
		evt = events.Purchase{
			Shield:    e.cfg.Address,
			Buyer:     caller,
			Token:     req.Token,
			Amount:    new(big.Int).Set(req.Amount),
			Paid:      new(big.Int).Set(cost),
			Timestamp: e.now(),
		}
		return nil
	})
	if err != nil {
		return e.observe("purchase", err)
	}
	e.metrics.ObservePurchase(e.cfg.Address.Hex(), "token")
	e.emit(evt)
	return nil
}

// PoolPurchase carries the arguments of a purchase out of the for-sale pool.
type PoolPurchase struct {
	UAmount   *big.Int
	UPrice    *big.Int
	UProof    []common.Hash
	NewCumLiq *big.Int
	LiqProof  []common.Hash
	Value     *big.Int
}

// forSale syncs the vault and checks UAmount fits the for-sale pool and that
// the payment matches. It returns the vault, the payment due and the sync time.
func (e *Engine) forSale(caller common.Address, req PoolPurchase) (*Vault, *big.Int, uint64, error) {
	if req.UAmount == nil || req.UAmount.Sign() <= 0 {
		return nil, nil, 0, nativecommon.NewStateError("purchase amount must be positive")
	}
	if err := validPrice(req.UPrice); err != nil {
		return nil, nil, 0, err
	}
	if err := e.ctrl.PurchaseU(e.cfg.Address, e.cfg.UToken, req.UPrice, req.UProof, req.NewCumLiq, req.LiqProof); err != nil {
		return nil, nil, 0, err
	}
	vault, err := e.loadVault()
	if err != nil {
		return nil, nil, 0, err
	}
	now := e.now()
	if err := e.sync(vault, req.NewCumLiq, now); err != nil {
		return nil, nil, 0, err
	}
	if e.normalized(req.UAmount).Cmp(vault.AmtForSale) > 0 {
		return nil, nil, 0, nativecommon.NewStateError("amount exceeds amtForSale")
	}
	cost := ForSaleCost(req.UAmount, req.UPrice, vault.Discount, e.cfg.Decimals)
	if req.Value == nil || req.Value.Cmp(cost) != 0 {
		return nil, nil, 0, nativecommon.NewStateError("incorrect payment")
	}
	return vault, cost, now, nil
}

// PurchaseU sells underlying out of the for-sale pool to caller.
func (e *Engine) PurchaseU(caller common.Address, req PoolPurchase) error {
	var evt events.PurchaseU
	err := e.atomic(func() error {
		vault, cost, now, err := e.forSale(caller, req)
		if err != nil {
			return err
		}
		vault.AmtForSale = new(big.Int).Sub(vault.AmtForSale, e.normalized(req.UAmount))
		if err := e.storeVault(vault); err != nil {
			return err
		}
		if err := e.collectPayment(vault, caller, req.Value, cost); err != nil {
			return err
		}
		if err := e.adapter.Unstake(req.UAmount); err != nil {
			return err
		}
		if err := e.ledger.Transfer(e.cfg.UToken, e.cfg.Address, caller, req.UAmount); err != nil {
			return err
		}
		evt = events.PurchaseU{
			Shield:    e.cfg.Address,
			Buyer:     caller,
			UAmount:   new(big.Int).Set(req.UAmount),
			Price:     new(big.Int).Set(req.UPrice),
			Paid:      cost,
			Timestamp: now,
		}
		return nil
	})
	if err != nil {
		return e.observe("purchaseU", err)
	}
	e.metrics.ObservePurchase(e.cfg.Address.Hex(), "u")
	e.reportGauges()
	e.emit(evt)
	return nil
}

// PurchaseRca sells RCA backed by underlying out of the for-sale pool. The
// underlying stays staked and returns to the active balance.
func (e *Engine) PurchaseRca(caller common.Address, req PoolPurchase) (*big.Int, error) {
	var (
		rcaAmount *big.Int
		evt       events.PurchaseRca
	)
	err := e.atomic(func() error {
		vault, cost, now, err := e.forSale(caller, req)
		if err != nil {
			return err
		}
		val, err := e.valuation(vault, now)
		if err != nil {
			return err
		}
		normalized := e.normalized(req.UAmount)
		rcaAmount = val.RcaValue(normalized, req.NewCumLiq)
		vault.AmtForSale = new(big.Int).Sub(vault.AmtForSale, normalized)
		if err := e.storeVault(vault); err != nil {
			return err
		}
		if err := e.collectPayment(vault, caller, req.Value, cost); err != nil {
			return err
		}
		if err := e.ledger.Mint(e.cfg.Address, caller, rcaAmount); err != nil {
			return err
		}
		evt = events.PurchaseRca{
			Shield:    e.cfg.Address,
			Buyer:     caller,
			UAmount:   new(big.Int).Set(req.UAmount),
			RcaAmount: new(big.Int).Set(rcaAmount),
			Price:     new(big.Int).Set(req.UPrice),
			Paid:      cost,
			Timestamp: now,
		}
		return nil
	})
	if err != nil {
		return nil, e.observe("purchaseRca", err)
	}
	e.metrics.ObservePurchase(e.cfg.Address.Hex(), "rca")
	e.reportGauges()
	e.emit(evt)
	return rcaAmount, nil
}
