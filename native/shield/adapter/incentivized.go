package adapter

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// IncentivesController distributes liquidity-mining rewards to suppliers of a
// lending market.
type IncentivesController interface {
	ClaimRewards(holder common.Address) ([]Reward, error)
}

// Incentivized covers lending-market supply positions. The underlying is the
// market's interest-bearing receipt token, which accrues in place on the
// shield, so staking is a no-op and rewards come from the incentives
// controller.
type Incentivized struct {
	Binding
	incentives IncentivesController
}

// NewIncentivized returns a supply position strategy.
func NewIncentivized(b Binding, incentives IncentivesController) *Incentivized {
	return &Incentivized{Binding: b, incentives: incentives}
}

func (a *Incentivized) Name() string { return "incentivized" }

func (a *Incentivized) Stake(*big.Int) error { return nil }

func (a *Incentivized) Unstake(*big.Int) error { return nil }

func (a *Incentivized) Harvest() ([]Reward, error) {
	if a.incentives == nil {
		return nil, fmt.Errorf("adapter %s: incentives controller not configured", a.Name())
	}
	rewards, err := a.incentives.ClaimRewards(a.Shield)
	if err != nil {
		return nil, fmt.Errorf("adapter %s: claim rewards: %w", a.Name(), err)
	}
	return positive(rewards), nil
}

func (a *Incentivized) UnderlyingBalance() (*big.Int, error) { return a.idle() }
