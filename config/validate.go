package config

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"rcavault/crypto"
	"rcavault/native/params"
	"rcavault/storage"
)

// ShieldPlan is a resolved Shield entry.
type ShieldPlan struct {
	Address  common.Address
	Name     string
	Symbol   string
	UToken   common.Address
	Decimals uint64
	Adapter   string
	Source    common.Address
	PoolID    uint64
	Publisher common.Address
}

// RouterPlan is a resolved Router entry.
type RouterPlan struct {
	Address common.Address
	In      common.Address
	Out     common.Address
	Rate    *big.Int
}

// TokenPlan is a resolved Token entry.
type TokenPlan struct {
	Address  common.Address
	Symbol   string
	Name     string
	Decimals uint64
}

// BalancePlan is a resolved Balance entry. The zero token is native currency.
type BalancePlan struct {
	Token  common.Address
	Holder common.Address
	Amount *big.Int
}

// IncidentPlan is a resolved Incident entry.
type IncidentPlan struct {
	ID   uint64
	Root common.Hash
}

// Plan is the configuration with every address, amount and bound checked.
type Plan struct {
	ChainID     uint64
	Controller  common.Address
	Governor    common.Address
	Guardian    common.Address
	PriceOracle common.Address
	CapOracle   common.Address
	Global      params.Global
	Tokens      []TokenPlan
	Shields     []ShieldPlan
	Routers     []RouterPlan
	Balances    []BalancePlan
	Incidents   []IncidentPlan
}

func parseUintAmount(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("amount required")
	}
	value, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", raw)
	}
	if value.Sign() < 0 {
		return nil, fmt.Errorf("amount %q must not be negative", raw)
	}
	return value, nil
}

func parseField(name, raw string) (common.Address, error) {
	addr, err := crypto.ParseAddress(raw)
	if err != nil {
		return common.Address{}, fmt.Errorf("%s: %w", name, err)
	}
	return addr, nil
}

// Plan resolves the configuration. It fails on the first invalid field.
func (c *Config) Plan() (*Plan, error) {
	if c.ChainID == 0 {
		return nil, fmt.Errorf("ChainID must be set")
	}
	plan := &Plan{ChainID: c.ChainID}
	fields := []struct {
		name string
		raw  string
		dst  *common.Address
	}{
		{"Controller", c.Controller, &plan.Controller},
		{"roles.Governor", c.Roles.Governor, &plan.Governor},
		{"roles.Guardian", c.Roles.Guardian, &plan.Guardian},
		{"roles.PriceOracle", c.Roles.PriceOracle, &plan.PriceOracle},
		{"roles.CapOracle", c.Roles.CapOracle, &plan.CapOracle},
		{"params.Treasury", c.Params.Treasury, &plan.Global.Treasury},
	}
	for _, f := range fields {
		addr, err := parseField(f.name, f.raw)
		if err != nil {
			return nil, err
		}
		*f.dst = addr
	}
	plan.Global.Apr = c.Params.Apr
	plan.Global.Discount = c.Params.Discount
	plan.Global.WithdrawalDelay = c.Params.WithdrawalDelay
	if err := plan.Global.Validate(); err != nil {
		return nil, fmt.Errorf("params: %w", err)
	}

	decimals := make(map[common.Address]uint64, len(c.Tokens))
	for i, tok := range c.Tokens {
		addr, err := parseField(fmt.Sprintf("tokens[%d].Address", i), tok.Address)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(tok.Symbol) == "" {
			return nil, fmt.Errorf("tokens[%d].Symbol required", i)
		}
		if _, dup := decimals[addr]; dup {
			return nil, fmt.Errorf("tokens[%d]: duplicate token %s", i, addr.Hex())
		}
		decimals[addr] = tok.Decimals
		plan.Tokens = append(plan.Tokens, TokenPlan{Address: addr, Symbol: tok.Symbol, Name: tok.Name, Decimals: tok.Decimals})
	}

	seen := make(map[common.Address]struct{}, len(c.Shields))
	for i, sh := range c.Shields {
		prefix := fmt.Sprintf("shields[%d]", i)
		addr, err := parseField(prefix+".Address", sh.Address)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[addr]; dup {
			return nil, fmt.Errorf("%s: duplicate shield %s", prefix, addr.Hex())
		}
		seen[addr] = struct{}{}
		uToken, err := parseField(prefix+".Underlying", sh.Underlying)
		if err != nil {
			return nil, err
		}
		dec, ok := decimals[uToken]
		if !ok {
			return nil, fmt.Errorf("%s: underlying %s is not a configured token", prefix, uToken.Hex())
		}
		entry := ShieldPlan{
			Address:  addr,
			Name:     sh.Name,
			Symbol:   sh.Symbol,
			UToken:   uToken,
			Decimals: dec,
			Adapter:  strings.ToLower(strings.TrimSpace(sh.Adapter)),
			PoolID:   sh.PoolID,
		}
		switch entry.Adapter {
		case "", AdapterVault:
			entry.Adapter = AdapterVault
		case AdapterPooled, AdapterIncentivized:
			if entry.Source, err = parseField(prefix+".Source", sh.Source); err != nil {
				return nil, err
			}
		case AdapterMerkle:
			if entry.Source, err = parseField(prefix+".Source", sh.Source); err != nil {
				return nil, err
			}
			if entry.Publisher, err = parseField(prefix+".Publisher", sh.Publisher); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("%s: unknown adapter %q", prefix, sh.Adapter)
		}
		plan.Shields = append(plan.Shields, entry)
	}

	for i, r := range c.Routers {
		prefix := fmt.Sprintf("routers[%d]", i)
		var entry RouterPlan
		var err error
		if entry.Address, err = parseField(prefix+".Address", r.Address); err != nil {
			return nil, err
		}
		if entry.In, err = parseField(prefix+".In", r.In); err != nil {
			return nil, err
		}
		if entry.Out, err = parseField(prefix+".Out", r.Out); err != nil {
			return nil, err
		}
		if entry.Rate, err = parseUintAmount(r.Rate); err != nil {
			return nil, fmt.Errorf("%s.Rate: %w", prefix, err)
		}
		plan.Routers = append(plan.Routers, entry)
	}

	for i, b := range c.Balances {
		prefix := fmt.Sprintf("balances[%d]", i)
		var entry BalancePlan
		var err error
		if strings.TrimSpace(b.Token) != "" {
			if entry.Token, err = parseField(prefix+".Token", b.Token); err != nil {
				return nil, err
			}
		}
		if entry.Holder, err = parseField(prefix+".Holder", b.Holder); err != nil {
			return nil, err
		}
		if entry.Amount, err = parseUintAmount(b.Amount); err != nil {
			return nil, fmt.Errorf("%s.Amount: %w", prefix, err)
		}
		plan.Balances = append(plan.Balances, entry)
	}

	for i, inc := range c.Incidents {
		raw := strings.TrimSpace(inc.Root)
		if len(strings.TrimPrefix(raw, "0x")) != 2*common.HashLength {
			return nil, fmt.Errorf("incidents[%d].Root must be a 32 byte hex hash", i)
		}
		plan.Incidents = append(plan.Incidents, IncidentPlan{ID: inc.ID, Root: common.HexToHash(raw)})
	}
	return plan, nil
}

// Validate checks the configuration resolves to a usable deployment.
func (c *Config) Validate() error {
	switch c.EventStore {
	case "", storage.BackendLevelDB, storage.BackendBolt, storage.BackendMemory:
	default:
		return fmt.Errorf("unknown EventStore %q", c.EventStore)
	}
	_, err := c.Plan()
	return err
}
