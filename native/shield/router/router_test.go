package router

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"rcavault/core/state"
	"rcavault/native/bank"
)

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	a := common.HexToAddress("0x02")
	b := common.HexToAddress("0x01")
	require.NoError(t, reg.Register(a, &Swap{}))
	require.NoError(t, reg.Register(b, &Swap{}))
	require.Error(t, reg.Register(a, &Swap{}))
	require.Error(t, reg.Register(common.HexToAddress("0x03"), nil))
	require.Equal(t, []common.Address{b, a}, reg.Addresses())
	_, ok := reg.Lookup(common.HexToAddress("0x04"))
	require.False(t, ok)
}

func TestSwapRoutesAtRate(t *testing.T) {
	manager, err := state.NewMemoryManager()
	require.NoError(t, err)
	ledger := bank.NewLedger(manager)
	in := common.HexToAddress("0x1001")
	out := common.HexToAddress("0x3003")
	addr := common.HexToAddress("0x7007")
	user := common.HexToAddress("0xaaaa")
	require.NoError(t, ledger.Mint(out, addr, big.NewInt(1_000)))

	half := new(big.Int).Div(rateScale, big.NewInt(2))
	swap := NewSwap(addr, in, out, half, ledger)
	require.NoError(t, swap.RouteTo(user, big.NewInt(100), nil))
	got, err := ledger.BalanceOf(out, user)
	require.NoError(t, err)
	require.Equal(t, int64(50), got.Int64())

	minOut := common.LeftPadBytes(big.NewInt(51).Bytes(), 32)
	require.Error(t, swap.RouteTo(user, big.NewInt(100), minOut))
	require.Error(t, swap.RouteTo(user, big.NewInt(100), []byte{1}))
}
