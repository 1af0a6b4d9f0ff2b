package treasury

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"rcavault/core/events"
	"rcavault/native/bank"
	nativecommon "rcavault/native/common"
	"rcavault/native/merkle"
)

// SetClaimsRoot publishes the payout commitment for an incident. Publishing
// again replaces the root; pairs already claimed stay claimed.
func (e *Engine) SetClaimsRoot(caller common.Address, incidentID uint64, root common.Hash) error {
	err := e.atomic(func() error {
		if err := e.gov.RequireGovernor(caller); err != nil {
			return err
		}
		if root == (common.Hash{}) {
			return nativecommon.NewStateError("claims root required")
		}
		return e.state.KVPut(e.rootKey(incidentID), root)
	})
	if err != nil {
		return err
	}
	e.logger.Info("claims root published", "incident", incidentID, "root", root.Hex())
	e.emit(events.Root{IncidentID: incidentID, Root: root})
	return nil
}

// ClaimsRoot returns the published root for incidentID, or the zero hash.
func (e *Engine) ClaimsRoot(incidentID uint64) (common.Hash, error) {
	if e == nil || e.state == nil {
		return common.Hash{}, errNilState
	}
	var root common.Hash
	if _, err := e.state.KVGet(e.rootKey(incidentID), &root); err != nil {
		return common.Hash{}, err
	}
	return root, nil
}

// Claimed reports whether user already collected for incidentID.
func (e *Engine) Claimed(user common.Address, incidentID uint64) (bool, error) {
	if e == nil || e.state == nil {
		return false, errNilState
	}
	return e.state.KVGet(e.claimedKey(user, incidentID), nil)
}

// ClaimFor pays user the amount committed for incidentID. Anyone may submit
// the proof; each (user, incident) pair pays at most once.
func (e *Engine) ClaimFor(user common.Address, amount *big.Int, incidentID uint64, proof []common.Hash) error {
	if amount == nil || amount.Sign() <= 0 {
		return nativecommon.NewStateError("claim amount must be positive")
	}
	err := e.atomic(func() error {
		if err := nativecommon.Guard(e.pauses, ModuleName); err != nil {
			return err
		}
		claimed, err := e.Claimed(user, incidentID)
		if err != nil {
			return err
		}
		if claimed {
			return nativecommon.NewStateError("already claimed")
		}
		root, err := e.ClaimsRoot(incidentID)
		if err != nil {
			return err
		}
		if err := merkle.Check(merkle.KindClaim, root, merkle.ClaimLeaf(user, incidentID, amount), proof); err != nil {
			return err
		}
		if err := e.state.KVPut(e.claimedKey(user, incidentID), true); err != nil {
			return err
		}
		return e.ledger.Transfer(bank.Native, e.address, user, amount)
	})
	if err != nil {
		e.logger.Debug("incident claim rejected", "user", user.Hex(), "incident", incidentID, "error", err)
		return err
	}
	e.emit(events.Claim{User: user, IncidentID: incidentID, Amount: new(big.Int).Set(amount)})
	return nil
}
