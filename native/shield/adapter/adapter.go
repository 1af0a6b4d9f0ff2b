// Package adapter holds the per-yield-source strategies a shield stakes its
// underlying through. A shield calls Stake after every deposit, Unstake before
// every underlying payout and Harvest from its permissionless reward hook;
// everything else about the shield is identical across adapters.
package adapter

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var errNilLedger = errors.New("adapter: ledger not configured")

// Reward is an amount of a token credited to the shield by a harvest.
type Reward struct {
	Token  common.Address
	Amount *big.Int
}

// Adapter integrates a shield with one external yield source.
type Adapter interface {
	Name() string
	Stake(amount *big.Int) error
	Unstake(amount *big.Int) error
	Harvest() ([]Reward, error)
	// UnderlyingBalance reports every unit of underlying the shield controls,
	// staked or idle, in underlying base units.
	UnderlyingBalance() (*big.Int, error)
}

// Ledger is the token ledger adapters move balances on.
type Ledger interface {
	BalanceOf(token, holder common.Address) (*big.Int, error)
	Transfer(token, from, to common.Address, amount *big.Int) error
}

// Binding names the shield an adapter works for and the underlying it holds.
type Binding struct {
	Shield common.Address
	UToken common.Address
	Ledger Ledger
}

func (b Binding) idle() (*big.Int, error) {
	if b.Ledger == nil {
		return nil, errNilLedger
	}
	return b.Ledger.BalanceOf(b.UToken, b.Shield)
}

func positive(rewards []Reward) []Reward {
	out := rewards[:0]
	for _, r := range rewards {
		if r.Amount != nil && r.Amount.Sign() > 0 {
			out = append(out, r)
		}
	}
	return out
}

// Vault keeps the underlying on the shield. It earns nothing and has nothing
// to harvest.
type Vault struct {
	Binding
}

// NewVault returns the plain vault strategy.
func NewVault(b Binding) *Vault { return &Vault{Binding: b} }

func (v *Vault) Name() string { return "vault" }

func (v *Vault) Stake(*big.Int) error { return nil }

func (v *Vault) Unstake(*big.Int) error { return nil }

func (v *Vault) Harvest() ([]Reward, error) { return nil, nil }

func (v *Vault) UnderlyingBalance() (*big.Int, error) { return v.idle() }
