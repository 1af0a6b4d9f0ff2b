// Package bank keeps the token balances the protocol moves around: the
// underlying assets, every shield's RCA token, harvested reward tokens and the
// native currency.
package bank

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	nativecommon "rcavault/native/common"
)

// Native is the token address used for the chain's native currency.
var Native = common.Address{}

// NativeDecimals is the precision of the native currency.
const NativeDecimals = 18

var (
	balancePrefix = []byte("bank/balance/")
	supplyPrefix  = []byte("bank/supply/")
	tokenPrefix   = []byte("bank/token/")

	errNilState     = errors.New("bank: state not configured")
	errInvalidToken = errors.New("bank: token not registered")
)

type ledgerState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

// Token describes a registered token.
type Token struct {
	Address  common.Address
	Symbol   string
	Name     string
	Decimals uint64
}

// Ledger reads and writes token balances in state.
type Ledger struct {
	state ledgerState
}

// NewLedger binds a ledger to the state backend.
func NewLedger(state ledgerState) *Ledger {
	return &Ledger{state: state}
}

func balanceKey(token, holder common.Address) []byte {
	key := make([]byte, 0, len(balancePrefix)+common.AddressLength*2)
	key = append(key, balancePrefix...)
	key = append(key, token.Bytes()...)
	return append(key, holder.Bytes()...)
}

func supplyKey(token common.Address) []byte {
	return append(append([]byte(nil), supplyPrefix...), token.Bytes()...)
}

func tokenKey(token common.Address) []byte {
	return append(append([]byte(nil), tokenPrefix...), token.Bytes()...)
}

// RegisterToken records token metadata. Registering an address twice fails.
func (l *Ledger) RegisterToken(token Token) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if token.Address == Native {
		return fmt.Errorf("bank: native currency is implicitly registered")
	}
	if strings.TrimSpace(token.Symbol) == "" {
		return fmt.Errorf("bank: token symbol required")
	}
	if token.Decimals > 77 {
		return fmt.Errorf("bank: decimals %d out of range", token.Decimals)
	}
	var existing Token
	ok, err := l.state.KVGet(tokenKey(token.Address), &existing)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("bank: token %s already registered", token.Address.Hex())
	}
	token.Symbol = strings.TrimSpace(token.Symbol)
	token.Name = strings.TrimSpace(token.Name)
	return l.state.KVPut(tokenKey(token.Address), token)
}

// Token returns the metadata for a registered token.
func (l *Ledger) Token(token common.Address) (Token, error) {
	if l == nil || l.state == nil {
		return Token{}, errNilState
	}
	if token == Native {
		return Token{Address: Native, Symbol: "ETH", Name: "Native", Decimals: NativeDecimals}, nil
	}
	var meta Token
	ok, err := l.state.KVGet(tokenKey(token), &meta)
	if err != nil {
		return Token{}, err
	}
	if !ok {
		return Token{}, fmt.Errorf("%w: %s", errInvalidToken, token.Hex())
	}
	return meta, nil
}

// BalanceOf returns the holder's balance of token.
func (l *Ledger) BalanceOf(token, holder common.Address) (*big.Int, error) {
	if l == nil || l.state == nil {
		return nil, errNilState
	}
	balance := new(big.Int)
	if _, err := l.state.KVGet(balanceKey(token, holder), balance); err != nil {
		return nil, err
	}
	return balance, nil
}

// TotalSupply returns the amount of token minted and not yet burned.
func (l *Ledger) TotalSupply(token common.Address) (*big.Int, error) {
	if l == nil || l.state == nil {
		return nil, errNilState
	}
	supply := new(big.Int)
	if _, err := l.state.KVGet(supplyKey(token), supply); err != nil {
		return nil, err
	}
	return supply, nil
}

func (l *Ledger) setBalance(token, holder common.Address, amount *big.Int) error {
	return l.state.KVPut(balanceKey(token, holder), amount)
}

func validAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("bank: amount must be non-negative")
	}
	return nil
}

// Transfer moves amount of token between holders.
func (l *Ledger) Transfer(token, from, to common.Address, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if err := validAmount(amount); err != nil {
		return err
	}
	if amount.Sign() == 0 || from == to {
		return nil
	}
	fromBal, err := l.BalanceOf(token, from)
	if err != nil {
		return err
	}
	if fromBal.Cmp(amount) < 0 {
		return nativecommon.NewStateError(fmt.Sprintf("insufficient %s balance", token.Hex()))
	}
	toBal, err := l.BalanceOf(token, to)
	if err != nil {
		return err
	}
	if err := l.setBalance(token, from, fromBal.Sub(fromBal, amount)); err != nil {
		return err
	}
	return l.setBalance(token, to, toBal.Add(toBal, amount))
}

// Mint credits amount of token to holder and grows the supply.
func (l *Ledger) Mint(token, to common.Address, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if err := validAmount(amount); err != nil {
		return err
	}
	if amount.Sign() == 0 {
		return nil
	}
	supply, err := l.TotalSupply(token)
	if err != nil {
		return err
	}
	bal, err := l.BalanceOf(token, to)
	if err != nil {
		return err
	}
	if err := l.state.KVPut(supplyKey(token), supply.Add(supply, amount)); err != nil {
		return err
	}
	return l.setBalance(token, to, bal.Add(bal, amount))
}

// Burn debits amount of token from holder and shrinks the supply.
func (l *Ledger) Burn(token, from common.Address, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if err := validAmount(amount); err != nil {
		return err
	}
	if amount.Sign() == 0 {
		return nil
	}
	bal, err := l.BalanceOf(token, from)
	if err != nil {
		return err
	}
	if bal.Cmp(amount) < 0 {
		return nativecommon.NewStateError(fmt.Sprintf("burn exceeds %s balance", token.Hex()))
	}
	supply, err := l.TotalSupply(token)
	if err != nil {
		return err
	}
	if err := l.setBalance(token, from, bal.Sub(bal, amount)); err != nil {
		return err
	}
	return l.state.KVPut(supplyKey(token), supply.Sub(supply, amount))
}
