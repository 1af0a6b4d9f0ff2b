package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"rcavault/crypto"
	"rcavault/native/merkle"
)

// table is a YAML description of one committed ledger.
type table struct {
	Kind string `yaml:"kind"`
	Rows []row  `yaml:"rows"`
}

type row struct {
	Asset           string `yaml:"asset,omitempty"`
	Price           string `yaml:"price,omitempty"`
	Shield          string `yaml:"shield,omitempty"`
	CumLiq          string `yaml:"cumLiq,omitempty"`
	PercentReserved uint64 `yaml:"percentReserved,omitempty"`
	User            string `yaml:"user,omitempty"`
	Incident        uint64 `yaml:"incident,omitempty"`
	Amount          string `yaml:"amount,omitempty"`
	// Reward distributor rows. Index defaults to the row position.
	Index   *uint64  `yaml:"index,omitempty"`
	Cycle   uint64   `yaml:"cycle,omitempty"`
	Tokens  []string `yaml:"tokens,omitempty"`
	Amounts []string `yaml:"amounts,omitempty"`
}

func loadTable(path string) (*table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var t table
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(t.Rows) == 0 {
		return nil, fmt.Errorf("%s: no rows", path)
	}
	return &t, nil
}

func parseAmount(field, raw string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid %s %q", field, raw)
	}
	return v, nil
}

func (t *table) leaves() ([]common.Hash, error) {
	out := make([]common.Hash, 0, len(t.Rows))
	for i, r := range t.Rows {
		leaf, err := r.leaf(t.Kind, uint64(i))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out = append(out, leaf)
	}
	return out, nil
}

func (r row) leaf(kind string, position uint64) (common.Hash, error) {
	switch kind {
	case merkle.KindPrice:
		asset, err := crypto.ParseAddress(r.Asset)
		if err != nil {
			return common.Hash{}, fmt.Errorf("asset: %w", err)
		}
		price, err := parseAmount("price", r.Price)
		if err != nil {
			return common.Hash{}, err
		}
		return merkle.PriceLeaf(asset, price), nil
	case merkle.KindLiquidation:
		shield, err := crypto.ParseAddress(r.Shield)
		if err != nil {
			return common.Hash{}, fmt.Errorf("shield: %w", err)
		}
		cumLiq, err := parseAmount("cumLiq", r.CumLiq)
		if err != nil {
			return common.Hash{}, err
		}
		return merkle.LiquidationLeaf(shield, cumLiq), nil
	case merkle.KindReserved:
		shield, err := crypto.ParseAddress(r.Shield)
		if err != nil {
			return common.Hash{}, fmt.Errorf("shield: %w", err)
		}
		return merkle.ReservedLeaf(shield, r.PercentReserved), nil
	case merkle.KindClaim:
		user, err := crypto.ParseAddress(r.User)
		if err != nil {
			return common.Hash{}, fmt.Errorf("user: %w", err)
		}
		amount, err := parseAmount("amount", r.Amount)
		if err != nil {
			return common.Hash{}, err
		}
		return merkle.ClaimLeaf(user, r.Incident, amount), nil
	case merkle.KindReward:
		return r.rewardLeaf(position)
	default:
		return common.Hash{}, fmt.Errorf("unknown table kind %q", kind)
	}
}

func (r row) rewardLeaf(position uint64) (common.Hash, error) {
	user, err := crypto.ParseAddress(r.User)
	if err != nil {
		return common.Hash{}, fmt.Errorf("user: %w", err)
	}
	if len(r.Tokens) != len(r.Amounts) {
		return common.Hash{}, fmt.Errorf("%d tokens but %d amounts", len(r.Tokens), len(r.Amounts))
	}
	tokens := make([]common.Address, len(r.Tokens))
	amounts := make([]*big.Int, len(r.Amounts))
	for i := range r.Tokens {
		if tokens[i], err = crypto.ParseAddress(r.Tokens[i]); err != nil {
			return common.Hash{}, fmt.Errorf("tokens[%d]: %w", i, err)
		}
		if amounts[i], err = parseAmount("amount", r.Amounts[i]); err != nil {
			return common.Hash{}, err
		}
	}
	index := position
	if r.Index != nil {
		index = *r.Index
	}
	return merkle.RewardLeaf(index, user, r.Cycle, tokens, amounts), nil
}

func buildTree(path string) (*merkle.Tree, []common.Hash, error) {
	t, err := loadTable(path)
	if err != nil {
		return nil, nil, err
	}
	leaves, err := t.leaves()
	if err != nil {
		return nil, nil, err
	}
	tree, err := merkle.NewTree(leaves)
	if err != nil {
		return nil, nil, err
	}
	return tree, leaves, nil
}

func runRoot(args []string, out io.Writer) error {
	fs := flag.NewFlagSet(rootCommand, flag.ContinueOnError)
	file := fs.String("file", "", "YAML table")
	if err := fs.Parse(args); err != nil {
		return err
	}
	tree, _, err := buildTree(*file)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, tree.Root().Hex())
	return nil
}

type proofOutput struct {
	Root  string   `json:"root"`
	Index int      `json:"index"`
	Leaf  string   `json:"leaf"`
	Proof []string `json:"proof"`
}

func runProof(args []string, out io.Writer) error {
	fs := flag.NewFlagSet(proofCommand, flag.ContinueOnError)
	file := fs.String("file", "", "YAML table")
	index := fs.Int("index", 0, "Row to prove")
	if err := fs.Parse(args); err != nil {
		return err
	}
	tree, leaves, err := buildTree(*file)
	if err != nil {
		return err
	}
	if *index < 0 || *index >= len(leaves) {
		return fmt.Errorf("index %d out of range", *index)
	}
	proof, err := tree.Proof(*index)
	if err != nil {
		return err
	}
	result := proofOutput{Root: tree.Root().Hex(), Index: *index, Leaf: leaves[*index].Hex(), Proof: make([]string, 0, len(proof))}
	for _, h := range proof {
		result.Proof = append(result.Proof, h.Hex())
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
