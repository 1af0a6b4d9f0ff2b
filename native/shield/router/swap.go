package router

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var rateScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// Ledger is the token ledger a swap router settles on.
type Ledger interface {
	Transfer(token, from, to common.Address, amount *big.Int) error
}

// Swap converts underlying into Out at a fixed 18-decimal rate, paying from
// its own Out inventory. Call data, when present, is a 32 byte big-endian
// minimum output.
type Swap struct {
	Address common.Address
	In      common.Address
	Out     common.Address
	Rate    *big.Int
	ledger  Ledger
}

// NewSwap returns a fixed-rate swap router at address.
func NewSwap(address, in, out common.Address, rate *big.Int, ledger Ledger) *Swap {
	return &Swap{Address: address, In: in, Out: out, Rate: new(big.Int).Set(rate), ledger: ledger}
}

// Quote returns the output for uAmount.
func (s *Swap) Quote(uAmount *big.Int) *big.Int {
	out := new(big.Int).Mul(uAmount, s.Rate)
	return out.Quo(out, rateScale)
}

func (s *Swap) RouteTo(user common.Address, uAmount *big.Int, data []byte) error {
	if s.ledger == nil {
		return fmt.Errorf("swap router: ledger not configured")
	}
	if uAmount == nil || uAmount.Sign() <= 0 {
		return fmt.Errorf("swap router: amount must be positive")
	}
	out := s.Quote(uAmount)
	if len(data) > 0 {
		if len(data) != 32 {
			return fmt.Errorf("swap router: call data must be 32 bytes, got %d", len(data))
		}
		if minOut := new(big.Int).SetBytes(data); out.Cmp(minOut) < 0 {
			return fmt.Errorf("swap router: output %s below minimum %s", out, minOut)
		}
	}
	return s.ledger.Transfer(s.Out, s.Address, user, out)
}
