package adapter

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

type kvState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

type pendingReward struct {
	Token  common.Address
	Amount *big.Int
}

// rewardBook tracks rewards owed to holders of one distributor.
type rewardBook struct {
	state  kvState
	prefix []byte
}

func (b rewardBook) key(scope []byte, holder common.Address) []byte {
	key := append(append([]byte(nil), b.prefix...), scope...)
	return append(key, holder.Bytes()...)
}

func (b rewardBook) accrue(scope []byte, holder, token common.Address, amount *big.Int) error {
	if b.state == nil {
		return fmt.Errorf("adapter: reward state not configured")
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("adapter: reward amount must be positive")
	}
	var owed []pendingReward
	if _, err := b.state.KVGet(b.key(scope, holder), &owed); err != nil {
		return err
	}
	for i := range owed {
		if owed[i].Token == token {
			owed[i].Amount = new(big.Int).Add(owed[i].Amount, amount)
			return b.state.KVPut(b.key(scope, holder), owed)
		}
	}
	owed = append(owed, pendingReward{Token: token, Amount: new(big.Int).Set(amount)})
	return b.state.KVPut(b.key(scope, holder), owed)
}

func (b rewardBook) take(scope []byte, holder common.Address) ([]pendingReward, error) {
	if b.state == nil {
		return nil, fmt.Errorf("adapter: reward state not configured")
	}
	var owed []pendingReward
	ok, err := b.state.KVGet(b.key(scope, holder), &owed)
	if err != nil || !ok {
		return nil, err
	}
	if err := b.state.KVPut(b.key(scope, holder), []pendingReward{}); err != nil {
		return nil, err
	}
	return owed, nil
}

func payout(ledger Ledger, from, to common.Address, owed []pendingReward) ([]Reward, error) {
	rewards := make([]Reward, 0, len(owed))
	for _, r := range owed {
		if r.Amount == nil || r.Amount.Sign() == 0 {
			continue
		}
		if err := ledger.Transfer(r.Token, from, to, r.Amount); err != nil {
			return nil, err
		}
		rewards = append(rewards, Reward{Token: r.Token, Amount: new(big.Int).Set(r.Amount)})
	}
	return rewards, nil
}

func pidScope(pid uint64) []byte {
	return []byte(fmt.Sprintf("%d/", pid))
}

// LedgerPool is a staking pool whose positions and reward balances live on
// the token ledger. Staked tokens and reward funding are held at Address.
type LedgerPool struct {
	Address common.Address
	ledger  Ledger
	state   kvState
	rewards rewardBook

	mu     sync.RWMutex
	tokens map[uint64]common.Address
}

// NewLedgerPool returns a pool at address.
func NewLedgerPool(address common.Address, ledger Ledger, state kvState) *LedgerPool {
	prefix := append([]byte("adapter/pool/"), address.Bytes()...)
	return &LedgerPool{
		Address: address,
		ledger:  ledger,
		state:   state,
		rewards: rewardBook{state: state, prefix: append(prefix, "/reward/"...)},
		tokens:  make(map[uint64]common.Address),
	}
}

// AddPool lists token as the staking token of pool pid.
func (p *LedgerPool) AddPool(pid uint64, token common.Address) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.tokens[pid]; exists {
		return fmt.Errorf("pool %d already exists", pid)
	}
	p.tokens[pid] = token
	return nil
}

func (p *LedgerPool) token(pid uint64) (common.Address, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	token, ok := p.tokens[pid]
	if !ok {
		return common.Address{}, fmt.Errorf("pool %d not found", pid)
	}
	return token, nil
}

func (p *LedgerPool) stakeKey(pid uint64, holder common.Address) []byte {
	key := append([]byte("adapter/pool/"), p.Address.Bytes()...)
	key = append(key, "/stake/"...)
	key = append(key, pidScope(pid)...)
	return append(key, holder.Bytes()...)
}

// Staked returns holder's position in pool pid.
func (p *LedgerPool) Staked(pid uint64, holder common.Address) (*big.Int, error) {
	if _, err := p.token(pid); err != nil {
		return nil, err
	}
	staked := new(big.Int)
	if _, err := p.state.KVGet(p.stakeKey(pid, holder), staked); err != nil {
		return nil, err
	}
	return staked, nil
}

// Deposit moves amount of the staking token from holder into the pool.
func (p *LedgerPool) Deposit(pid uint64, holder common.Address, amount *big.Int) error {
	token, err := p.token(pid)
	if err != nil {
		return err
	}
	staked, err := p.Staked(pid, holder)
	if err != nil {
		return err
	}
	if err := p.state.KVPut(p.stakeKey(pid, holder), staked.Add(staked, amount)); err != nil {
		return err
	}
	return p.ledger.Transfer(token, holder, p.Address, amount)
}

// Withdraw returns amount of the staking token to holder.
func (p *LedgerPool) Withdraw(pid uint64, holder common.Address, amount *big.Int) error {
	token, err := p.token(pid)
	if err != nil {
		return err
	}
	staked, err := p.Staked(pid, holder)
	if err != nil {
		return err
	}
	if staked.Cmp(amount) < 0 {
		return fmt.Errorf("pool %d: withdraw %s exceeds stake %s", pid, amount, staked)
	}
	if err := p.state.KVPut(p.stakeKey(pid, holder), staked.Sub(staked, amount)); err != nil {
		return err
	}
	return p.ledger.Transfer(token, p.Address, holder, amount)
}

// Accrue owes holder amount of token from pool pid on the next harvest. The
// pool must hold enough token by then.
func (p *LedgerPool) Accrue(pid uint64, holder, token common.Address, amount *big.Int) error {
	if _, err := p.token(pid); err != nil {
		return err
	}
	return p.rewards.accrue(pidScope(pid), holder, token, amount)
}

// Harvest pays holder everything accrued in pool pid.
func (p *LedgerPool) Harvest(pid uint64, holder common.Address) ([]Reward, error) {
	if _, err := p.token(pid); err != nil {
		return nil, err
	}
	owed, err := p.rewards.take(pidScope(pid), holder)
	if err != nil {
		return nil, err
	}
	return payout(p.ledger, p.Address, holder, owed)
}

// LedgerIncentives is an incentives controller funded on the token ledger.
type LedgerIncentives struct {
	Address common.Address
	ledger  Ledger
	rewards rewardBook
}

// NewLedgerIncentives returns an incentives controller at address.
func NewLedgerIncentives(address common.Address, ledger Ledger, state kvState) *LedgerIncentives {
	prefix := append([]byte("adapter/incentives/"), address.Bytes()...)
	return &LedgerIncentives{
		Address: address,
		ledger:  ledger,
		rewards: rewardBook{state: state, prefix: append(prefix, '/')},
	}
}

// Accrue owes holder amount of token on the next claim.
func (c *LedgerIncentives) Accrue(holder, token common.Address, amount *big.Int) error {
	return c.rewards.accrue(nil, holder, token, amount)
}

// ClaimRewards pays holder everything accrued.
func (c *LedgerIncentives) ClaimRewards(holder common.Address) ([]Reward, error) {
	owed, err := c.rewards.take(nil, holder)
	if err != nil {
		return nil, err
	}
	return payout(c.ledger, c.Address, holder, owed)
}
