package adapter

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// StakingPool is a farm that accepts deposits under a pool id and pays
// rewards to depositors.
type StakingPool interface {
	Deposit(pid uint64, holder common.Address, amount *big.Int) error
	Withdraw(pid uint64, holder common.Address, amount *big.Int) error
	Staked(pid uint64, holder common.Address) (*big.Int, error)
	Harvest(pid uint64, holder common.Address) ([]Reward, error)
}

// Pooled stakes the underlying into a staking pool. Idle underlying on the
// shield and the staked position both count toward the balance.
type Pooled struct {
	Binding
	pool StakingPool
	pid  uint64
}

// NewPooled returns a staking pool strategy for pool id pid.
func NewPooled(b Binding, pool StakingPool, pid uint64) *Pooled {
	return &Pooled{Binding: b, pool: pool, pid: pid}
}

func (a *Pooled) Name() string { return fmt.Sprintf("pooled/%d", a.pid) }

func (a *Pooled) Stake(amount *big.Int) error {
	if a.pool == nil {
		return fmt.Errorf("adapter %s: pool not configured", a.Name())
	}
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	return a.pool.Deposit(a.pid, a.Shield, amount)
}

// Unstake withdraws whatever part of amount is not already idle on the
// shield.
func (a *Pooled) Unstake(amount *big.Int) error {
	if a.pool == nil {
		return fmt.Errorf("adapter %s: pool not configured", a.Name())
	}
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	idle, err := a.idle()
	if err != nil {
		return err
	}
	if idle.Cmp(amount) >= 0 {
		return nil
	}
	return a.pool.Withdraw(a.pid, a.Shield, new(big.Int).Sub(amount, idle))
}

func (a *Pooled) Harvest() ([]Reward, error) {
	if a.pool == nil {
		return nil, fmt.Errorf("adapter %s: pool not configured", a.Name())
	}
	rewards, err := a.pool.Harvest(a.pid, a.Shield)
	if err != nil {
		return nil, fmt.Errorf("adapter %s: harvest: %w", a.Name(), err)
	}
	return positive(rewards), nil
}

func (a *Pooled) UnderlyingBalance() (*big.Int, error) {
	if a.pool == nil {
		return nil, fmt.Errorf("adapter %s: pool not configured", a.Name())
	}
	idle, err := a.idle()
	if err != nil {
		return nil, err
	}
	staked, err := a.pool.Staked(a.pid, a.Shield)
	if err != nil {
		return nil, err
	}
	return idle.Add(idle, staked), nil
}
