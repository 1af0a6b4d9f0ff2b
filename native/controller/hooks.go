package controller

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"rcavault/native/capacity"
	nativecommon "rcavault/native/common"
)

// The hooks below are called by shields on behalf of their users. They verify
// and consume capabilities but never touch shield accounting, and they emit
// nothing: the calling shield reports the outcome.

func (e *Engine) requireShield(shield common.Address) error {
	active, err := e.IsActive(shield)
	if err != nil {
		return err
	}
	if !active {
		return nativecommon.NewAuthorizationError("shield")
	}
	return nil
}

// Mint verifies the liquidation attestation and the capacity claim for a
// deposit of uAmount by user, consuming the user's nonce.
func (e *Engine) Mint(shield, user common.Address, uAmount *big.Int, expiry uint64, sig capacity.Signature, newCumLiq *big.Int, liqProof []common.Hash) error {
	return e.atomic(func() error {
		if err := e.requireShield(shield); err != nil {
			return err
		}
		if err := nativecommon.Guard(e, ModuleName); err != nil {
			return err
		}
		if err := e.VerifyLiq(shield, newCumLiq, liqProof); err != nil {
			return err
		}
		roles, err := e.roles()
		if err != nil {
			return err
		}
		if err := e.capacity.Verify(roles.CapOracle, user, shield, uAmount, expiry, sig); err != nil {
			e.logger.Debug("capacity claim rejected", "shield", shield.Hex(), "user", user.Hex(), "error", err)
			return err
		}
		return nil
	})
}

// RedeemRequest verifies the attestations a redeem request is priced with.
func (e *Engine) RedeemRequest(shield common.Address, newCumLiq *big.Int, liqProof []common.Hash, percentReserved uint64, resProof []common.Hash) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.requireShield(shield); err != nil {
		return err
	}
	if err := nativecommon.Guard(e, ModuleName); err != nil {
		return err
	}
	return e.verifyLiqAndReserved(shield, newCumLiq, liqProof, percentReserved, resProof)
}

// RedeemFinalize verifies the attestations used to sync a finalizing shield
// and that router, when set, is whitelisted.
func (e *Engine) RedeemFinalize(shield, router common.Address, newCumLiq *big.Int, liqProof []common.Hash, percentReserved uint64, resProof []common.Hash) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.requireShield(shield); err != nil {
		return err
	}
	if err := e.verifyLiqAndReserved(shield, newCumLiq, liqProof, percentReserved, resProof); err != nil {
		return err
	}
	if router == (common.Address{}) {
		return nil
	}
	verified, err := e.IsRouterVerified(router)
	if err != nil {
		return err
	}
	if !verified {
		return &nativecommon.RouterError{Router: router.Hex()}
	}
	return nil
}

// Purchase verifies both prices used to quote a reward token purchase.
func (e *Engine) Purchase(shield, token common.Address, tokenPrice *big.Int, tokenProof []common.Hash, uToken common.Address, uPrice *big.Int, uProof []common.Hash) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.requireShield(shield); err != nil {
		return err
	}
	if err := e.VerifyPrice(token, tokenPrice, tokenProof); err != nil {
		return err
	}
	return e.VerifyPrice(uToken, uPrice, uProof)
}

// PurchaseU verifies the underlying price and the liquidation attestation used
// to quote a purchase out of the for-sale pool.
func (e *Engine) PurchaseU(shield, uToken common.Address, uPrice *big.Int, uProof []common.Hash, newCumLiq *big.Int, liqProof []common.Hash) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.requireShield(shield); err != nil {
		return err
	}
	if err := e.VerifyPrice(uToken, uPrice, uProof); err != nil {
		return err
	}
	return e.VerifyLiq(shield, newCumLiq, liqProof)
}

func (e *Engine) verifyLiqAndReserved(shield common.Address, newCumLiq *big.Int, liqProof []common.Hash, percentReserved uint64, resProof []common.Hash) error {
	if err := e.VerifyLiq(shield, newCumLiq, liqProof); err != nil {
		return err
	}
	return e.VerifyReserved(shield, percentReserved, resProof)
}
