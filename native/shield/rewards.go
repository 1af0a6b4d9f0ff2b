package shield

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"rcavault/core/events"
)

// GetReward harvests the adapter's rewards into the shield's sellable
// inventory. Anyone may call it.
func (e *Engine) GetReward() ([]events.RewardHarvested, error) {
	var credited []events.RewardHarvested
	err := e.atomic(func() error {
		if _, err := e.loadVault(); err != nil {
			return err
		}
		rewards, err := e.adapter.Harvest()
		if err != nil {
			return err
		}
		for _, reward := range rewards {
			if reward.Amount == nil || reward.Amount.Sign() <= 0 {
				continue
			}
			seen, err := e.state.KVGet(e.rewardKey(reward.Token), nil)
			if err != nil {
				return err
			}
			held, err := e.RewardInventory(reward.Token)
			if err != nil {
				return err
			}
			if err := e.state.KVPut(e.rewardKey(reward.Token), held.Add(held, reward.Amount)); err != nil {
				return err
			}
			if !seen {
				if err := e.state.KVAppend(e.rewardListKey, reward.Token.Bytes()); err != nil {
					return err
				}
			}
			credited = append(credited, events.RewardHarvested{
				Shield: e.cfg.Address,
				Token:  reward.Token,
				Amount: new(big.Int).Set(reward.Amount),
			})
		}
		return nil
	})
	if err != nil {
		return nil, e.observe("getReward", err)
	}
	for _, evt := range credited {
		e.metrics.ObserveHarvest(e.cfg.Address.Hex(), evt.Token.Hex())
		e.emit(evt)
	}
	return credited, nil
}

// RewardInventory returns the amount of token available for Purchase.
func (e *Engine) RewardInventory(token common.Address) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	held := new(big.Int)
	if _, err := e.state.KVGet(e.rewardKey(token), held); err != nil {
		return nil, err
	}
	return held, nil
}

// RewardTokens lists every token ever harvested.
func (e *Engine) RewardTokens() ([]common.Address, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	var raw [][]byte
	if err := e.state.KVGetList(e.rewardListKey, &raw); err != nil {
		return nil, err
	}
	out := make([]common.Address, len(raw))
	for i, entry := range raw {
		out[i] = common.BytesToAddress(entry)
	}
	return out, nil
}
