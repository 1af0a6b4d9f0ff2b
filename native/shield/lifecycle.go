package shield

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"rcavault/core/events"
	"rcavault/native/capacity"
	nativecommon "rcavault/native/common"
	"rcavault/native/params"
)

// MintRequest carries the arguments of a deposit.
type MintRequest struct {
	To        common.Address
	Referrer  common.Address
	UAmount   *big.Int
	Expiry    uint64
	Signature capacity.Signature
	NewCumLiq *big.Int
	LiqProof  []common.Hash
}

// Mint deposits UAmount of underlying from caller and mints RCA to To. The
// capacity claim and the liquidation attestation are verified by the
// controller first.
func (e *Engine) Mint(caller common.Address, req MintRequest) (*big.Int, error) {
	var (
		rcaAmount *big.Int
		evt       events.Mint
	)
	err := e.atomic(func() error {
		if req.UAmount == nil || req.UAmount.Sign() <= 0 {
			return nativecommon.NewStateError("mint amount must be positive")
		}
		to := req.To
		if to == (common.Address{}) {
			to = caller
		}
		if err := e.ctrl.Mint(e.cfg.Address, caller, req.UAmount, req.Expiry, req.Signature, req.NewCumLiq, req.LiqProof); err != nil {
			return err
		}
		vault, err := e.loadVault()
		if err != nil {
			return err
		}
		now := e.now()
		if err := e.sync(vault, req.NewCumLiq, now); err != nil {
			return err
		}
		val, err := e.valuation(vault, now)
		if err != nil {
			return err
		}
		rcaAmount = val.RcaValue(e.normalized(req.UAmount), req.NewCumLiq)
		if err := e.ledger.Mint(e.cfg.Address, to, rcaAmount); err != nil {
			return err
		}
		if err := e.ledger.Transfer(e.cfg.UToken, caller, e.cfg.Address, req.UAmount); err != nil {
			return err
		}
		if err := e.adapter.Stake(req.UAmount); err != nil {
			return err
		}
		evt = events.Mint{
			Shield:    e.cfg.Address,
			Sender:    caller,
			To:        to,
			Referrer:  req.Referrer,
			UAmount:   new(big.Int).Set(req.UAmount),
			RcaAmount: new(big.Int).Set(rcaAmount),
			Timestamp: now,
		}
		return nil
	})
	if err != nil {
		return nil, e.observe("mint", err)
	}
	e.metrics.ObserveMint(e.cfg.Address.Hex())
	e.reportGauges()
	e.emit(evt)
	return rcaAmount, nil
}

// Attestation carries the liquidation and reserved proofs a redemption is
// priced with.
type Attestation struct {
	NewCumLiq       *big.Int
	LiqProof        []common.Hash
	PercentReserved uint64
	ResProof        []common.Hash
}

// RedeemRequest burns rcaAmount from caller and adds its underlying value to
// the caller's pending withdrawal. The withdrawal timer restarts.
func (e *Engine) RedeemRequest(caller common.Address, rcaAmount *big.Int, att Attestation) (*big.Int, error) {
	var (
		uAmount *big.Int
		evt     events.RedeemRequest
	)
	err := e.atomic(func() error {
		if rcaAmount == nil || rcaAmount.Sign() <= 0 {
			return nativecommon.NewStateError("redeem amount must be positive")
		}
		if err := e.ctrl.RedeemRequest(e.cfg.Address, att.NewCumLiq, att.LiqProof, att.PercentReserved, att.ResProof); err != nil {
			return err
		}
		vault, err := e.loadVault()
		if err != nil {
			return err
		}
		now := e.now()
		if err := e.sync(vault, att.NewCumLiq, now); err != nil {
			return err
		}
		val, err := e.valuation(vault, now)
		if err != nil {
			return err
		}
		pct := params.ClampPercentReserved(att.PercentReserved)
		uAmount = e.denormalized(val.UValue(rcaAmount, att.NewCumLiq, pct))

		if err := e.ledger.Burn(e.cfg.Address, caller, rcaAmount); err != nil {
			return err
		}
		vault.PendingWithdrawal = new(big.Int).Add(vault.PendingWithdrawal, e.normalized(uAmount))
		vault.PercentReserved = pct
		if err := e.storeVault(vault); err != nil {
			return err
		}
		request, err := e.loadRequest(caller)
		if err != nil {
			return err
		}
		request.RcaAmount.Add(request.RcaAmount, rcaAmount)
		request.UAmount.Add(request.UAmount, uAmount)
		request.EndTime = now + vault.WithdrawalDelay
		if err := e.state.KVPut(e.requestKey(caller), request); err != nil {
			return err
		}
		evt = events.RedeemRequest{
			Shield:    e.cfg.Address,
			User:      caller,
			RcaAmount: new(big.Int).Set(rcaAmount),
			UAmount:   new(big.Int).Set(uAmount),
			EndTime:   request.EndTime,
			Timestamp: now,
		}
		return nil
	})
	if err != nil {
		return nil, e.observe("redeemRequest", err)
	}
	e.metrics.ObserveRedeemRequest(e.cfg.Address.Hex())
	e.reportGauges()
	e.emit(evt)
	return uAmount, nil
}

// FinalizeRequest carries the payout route of a finalized withdrawal.
type FinalizeRequest struct {
	// To receives the underlying, or the router output when Router is set.
	// Defaults to the caller.
	To         common.Address
	Router     common.Address
	RouterData []byte
	Attestation
}

// RedeemFinalize pays out the caller's pending withdrawal once its delay has
// passed, either directly or through a whitelisted zap router.
func (e *Engine) RedeemFinalize(caller common.Address, req FinalizeRequest) (*big.Int, error) {
	var (
		uAmount *big.Int
		evt     events.RedeemFinalize
	)
	err := e.atomic(func() error {
		if err := e.ctrl.RedeemFinalize(e.cfg.Address, req.Router, req.NewCumLiq, req.LiqProof, req.PercentReserved, req.ResProof); err != nil {
			return err
		}
		request, err := e.loadRequest(caller)
		if err != nil {
			return err
		}
		if !request.Pending() {
			return nativecommon.NewStateError("no pending withdrawal")
		}
		now := e.now()
		if now < request.EndTime {
			return nativecommon.NewStateError("withdrawal not yet due")
		}
		vault, err := e.loadVault()
		if err != nil {
			return err
		}
		if err := e.settle(vault, req.NewCumLiq, now); err != nil {
			return err
		}
		uAmount = new(big.Int).Set(request.UAmount)
		vault.PendingWithdrawal = new(big.Int).Sub(vault.PendingWithdrawal, e.normalized(uAmount))
		if vault.PendingWithdrawal.Sign() < 0 {
			vault.PendingWithdrawal.SetInt64(0)
		}
		vault.PercentReserved = params.ClampPercentReserved(req.PercentReserved)
		if err := e.storeVault(vault); err != nil {
			return err
		}
		if err := e.state.KVDelete(e.requestKey(caller)); err != nil {
			return err
		}

		to := req.To
		if to == (common.Address{}) {
			to = caller
		}
		if err := e.adapter.Unstake(uAmount); err != nil {
			return err
		}
		if req.Router == (common.Address{}) {
			if err := e.ledger.Transfer(e.cfg.UToken, e.cfg.Address, to, uAmount); err != nil {
				return err
			}
		} else {
			impl, ok := e.routers.Lookup(req.Router)
			if !ok {
				return &nativecommon.RouterError{Router: req.Router.Hex()}
			}
			if err := e.ledger.Transfer(e.cfg.UToken, e.cfg.Address, req.Router, uAmount); err != nil {
				return err
			}
			if err := impl.RouteTo(to, uAmount, req.RouterData); err != nil {
				return err
			}
		}
		evt = events.RedeemFinalize{
			Shield:      e.cfg.Address,
			User:        caller,
			Destination: to,
			Router:      req.Router,
			RcaAmount:   new(big.Int).Set(request.RcaAmount),
			UAmount:     new(big.Int).Set(uAmount),
			Timestamp:   now,
		}
		return nil
	})
	if err != nil {
		return nil, e.observe("redeemFinalize", err)
	}
	e.metrics.ObserveRedeemFinalize(e.cfg.Address.Hex(), req.Router != (common.Address{}))
	e.reportGauges()
	e.emit(evt)
	return uAmount, nil
}
