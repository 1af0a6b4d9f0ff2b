package adapter

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"rcavault/native/merkle"
)

// RewardClaim is one holder's entry in a distributor cycle. Amounts are
// cumulative over every cycle and matched to Tokens by position.
type RewardClaim struct {
	Index   uint64
	Cycle   uint64
	Tokens  []common.Address
	Amounts []*big.Int
	Proof   []common.Hash
}

// Leaf returns the committed leaf of the claim for holder.
func (c RewardClaim) Leaf(holder common.Address) common.Hash {
	return merkle.RewardLeaf(c.Index, holder, c.Cycle, c.Tokens, c.Amounts)
}

type distributorCycle struct {
	Cycle uint64
	Root  common.Hash
}

// MerkleDistributor pays cumulative rewards committed in a per-cycle Merkle
// root. Holders claim the difference between the committed cumulative amount
// and what they already claimed. Reward funding is held at Address.
type MerkleDistributor struct {
	Address   common.Address
	publisher common.Address
	ledger    Ledger
	state     kvState
}

// NewMerkleDistributor returns a distributor at address whose roots are
// published by publisher.
func NewMerkleDistributor(address, publisher common.Address, ledger Ledger, state kvState) *MerkleDistributor {
	return &MerkleDistributor{Address: address, publisher: publisher, ledger: ledger, state: state}
}

func (d *MerkleDistributor) cycleKey() []byte {
	key := append([]byte("adapter/distributor/"), d.Address.Bytes()...)
	return append(key, "/cycle"...)
}

func (d *MerkleDistributor) claimedKey(holder, token common.Address) []byte {
	key := append([]byte("adapter/distributor/"), d.Address.Bytes()...)
	key = append(key, "/claimed/"...)
	key = append(key, holder.Bytes()...)
	return append(key, token.Bytes()...)
}

// Current returns the latest published cycle and its root.
func (d *MerkleDistributor) Current() (uint64, common.Hash, error) {
	if d.state == nil {
		return 0, common.Hash{}, fmt.Errorf("adapter: distributor state not configured")
	}
	var cur distributorCycle
	if _, err := d.state.KVGet(d.cycleKey(), &cur); err != nil {
		return 0, common.Hash{}, err
	}
	return cur.Cycle, cur.Root, nil
}

// Publish commits root for cycle. Cycles must advance by one.
func (d *MerkleDistributor) Publish(caller common.Address, cycle uint64, root common.Hash) error {
	if caller != d.publisher {
		return fmt.Errorf("distributor %s: %s may not publish roots", d.Address.Hex(), caller.Hex())
	}
	if root == (common.Hash{}) {
		return fmt.Errorf("distributor %s: root must not be zero", d.Address.Hex())
	}
	current, _, err := d.Current()
	if err != nil {
		return err
	}
	if cycle != current+1 {
		return fmt.Errorf("distributor %s: cycle %d does not follow %d", d.Address.Hex(), cycle, current)
	}
	return d.state.KVPut(d.cycleKey(), distributorCycle{Cycle: cycle, Root: root})
}

// Claimed returns the cumulative amount of token holder has claimed.
func (d *MerkleDistributor) Claimed(holder, token common.Address) (*big.Int, error) {
	if d.state == nil {
		return nil, fmt.Errorf("adapter: distributor state not configured")
	}
	claimed := new(big.Int)
	if _, err := d.state.KVGet(d.claimedKey(holder, token), claimed); err != nil {
		return nil, err
	}
	return claimed, nil
}

// Claim verifies claim against the current root and pays holder the unclaimed
// part of each cumulative amount.
func (d *MerkleDistributor) Claim(holder common.Address, claim RewardClaim) ([]Reward, error) {
	if len(claim.Tokens) != len(claim.Amounts) {
		return nil, fmt.Errorf("distributor %s: %d tokens but %d amounts", d.Address.Hex(), len(claim.Tokens), len(claim.Amounts))
	}
	cycle, root, err := d.Current()
	if err != nil {
		return nil, err
	}
	if claim.Cycle != cycle {
		return nil, fmt.Errorf("distributor %s: claim for cycle %d, current is %d", d.Address.Hex(), claim.Cycle, cycle)
	}
	if err := merkle.Check(merkle.KindReward, root, claim.Leaf(holder), claim.Proof); err != nil {
		return nil, err
	}
	owed := make([]pendingReward, 0, len(claim.Tokens))
	for i, token := range claim.Tokens {
		claimed, err := d.Claimed(holder, token)
		if err != nil {
			return nil, err
		}
		total := claim.Amounts[i]
		if total == nil || total.Cmp(claimed) < 0 {
			return nil, fmt.Errorf("distributor %s: cumulative %s below claimed %s", d.Address.Hex(), token.Hex(), claimed)
		}
		delta := new(big.Int).Sub(total, claimed)
		if delta.Sign() == 0 {
			continue
		}
		if err := d.state.KVPut(d.claimedKey(holder, token), new(big.Int).Set(total)); err != nil {
			return nil, err
		}
		owed = append(owed, pendingReward{Token: token, Amount: delta})
	}
	return payout(d.ledger, d.Address, holder, owed)
}

// MerkleRewards covers yield positions whose rewards are distributed through
// a Merkle distributor. The underlying accrues in place, so staking is a
// no-op. A keeper submits the shield's latest claim and the next harvest
// redeems it.
type MerkleRewards struct {
	Binding
	distributor *MerkleDistributor

	mu      sync.Mutex
	pending *RewardClaim
}

// NewMerkleRewards returns a distributor-backed strategy.
func NewMerkleRewards(b Binding, distributor *MerkleDistributor) *MerkleRewards {
	return &MerkleRewards{Binding: b, distributor: distributor}
}

func (a *MerkleRewards) Name() string { return "merkle" }

func (a *MerkleRewards) Stake(*big.Int) error { return nil }

func (a *MerkleRewards) Unstake(*big.Int) error { return nil }

// Submit queues claim for the next harvest, replacing any earlier one.
func (a *MerkleRewards) Submit(claim RewardClaim) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending = &claim
}

// Harvest redeems the queued claim. Without one there is nothing to collect.
func (a *MerkleRewards) Harvest() ([]Reward, error) {
	if a.distributor == nil {
		return nil, fmt.Errorf("adapter %s: distributor not configured", a.Name())
	}
	a.mu.Lock()
	claim := a.pending
	a.mu.Unlock()
	if claim == nil {
		return nil, nil
	}
	rewards, err := a.distributor.Claim(a.Shield, *claim)
	if err != nil {
		return nil, fmt.Errorf("adapter %s: claim rewards: %w", a.Name(), err)
	}
	a.mu.Lock()
	if a.pending == claim {
		a.pending = nil
	}
	a.mu.Unlock()
	return positive(rewards), nil
}

func (a *MerkleRewards) UnderlyingBalance() (*big.Int, error) { return a.idle() }
