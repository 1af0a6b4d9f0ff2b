package controller

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"rcavault/core/types"
	"rcavault/native/params"
)

// Params returns the global parameters with their update timestamps.
func (e *Engine) Params() (params.Global, params.Updates, error) {
	if err := e.ready(); err != nil {
		return params.Global{}, params.Updates{}, err
	}
	global, err := e.params.Global()
	if err != nil {
		return params.Global{}, params.Updates{}, err
	}
	updates, err := e.params.Updates()
	if err != nil {
		return params.Global{}, params.Updates{}, err
	}
	return global, updates, nil
}

// Roots returns the committed roots.
func (e *Engine) Roots() (Roots, error) {
	if err := e.ready(); err != nil {
		return Roots{}, err
	}
	return e.roots()
}

// Roles returns the non-governor role holders.
func (e *Engine) Roles() (Roles, error) {
	if err := e.ready(); err != nil {
		return Roles{}, err
	}
	return e.roles()
}

// Governor returns the current governor.
func (e *Engine) Governor() (common.Address, error) {
	if err := e.ready(); err != nil {
		return common.Address{}, err
	}
	return e.gov.Governor()
}

// Nonce returns the nonce the next capacity claim for user must carry.
func (e *Engine) Nonce(user common.Address) (uint64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	return e.capacity.Nonce(user)
}

// BalanceOfs returns user's RCA balance in each shield.
func (e *Engine) BalanceOfs(user common.Address, shields []common.Address) ([]*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	out := make([]*big.Int, len(shields))
	for i, shield := range shields {
		bal, err := e.ledger.BalanceOf(shield, user)
		if err != nil {
			return nil, err
		}
		out[i] = bal
	}
	return out, nil
}

// RequestOfs returns user's pending withdrawal in each shield. Shields without
// an attached view report an empty request.
func (e *Engine) RequestOfs(user common.Address, shields []common.Address) ([]*types.WithdrawRequest, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	out := make([]*types.WithdrawRequest, len(shields))
	for i, shield := range shields {
		view, ok := e.views[shield]
		if !ok {
			out[i] = (*types.WithdrawRequest)(nil).Copy()
			continue
		}
		req, err := view.WithdrawRequest(user)
		if err != nil {
			return nil, err
		}
		out[i] = req.Copy()
	}
	return out, nil
}
