package params

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

type memParams map[string][]byte

func (m memParams) ParamStoreSet(name string, value []byte) error {
	m[name] = append([]byte(nil), value...)
	return nil
}

func (m memParams) ParamStoreGet(name string) ([]byte, bool, error) {
	v, ok := m[name]
	return v, ok, nil
}

func TestStoreRoundTripsGlobal(t *testing.T) {
	store := NewStore(memParams{})
	empty, err := store.Global()
	require.NoError(t, err)
	require.Equal(t, Global{}, empty)

	global := Global{Apr: 150, Discount: 200, WithdrawalDelay: 86_400, Treasury: common.HexToAddress("0x01")}
	require.NoError(t, store.SetGlobal(global))
	loaded, err := store.Global()
	require.NoError(t, err)
	require.Equal(t, global, loaded)

	require.NoError(t, store.SetUpdates(Updates{Apr: 10, Treasury: 30, Liq: 99}))
	updates, err := store.Updates()
	require.NoError(t, err)
	require.Equal(t, uint64(30), updates.Latest())
}

func TestStoreWithoutState(t *testing.T) {
	var store *Store
	_, err := store.Global()
	require.Error(t, err)
}

func TestStoreRejectsCorruptSlot(t *testing.T) {
	backing := memParams{ParamsKeyUpdates: []byte("{apr")}
	store := NewStore(backing)
	_, err := store.Updates()
	require.ErrorContains(t, err, "decode controller/updates")

	backing[ParamsKeyGlobal] = []byte("  ")
	global, err := store.Global()
	require.NoError(t, err)
	require.Equal(t, Global{}, global)
}

func TestGlobalValidate(t *testing.T) {
	treasury := common.HexToAddress("0x02")
	require.NoError(t, Global{Apr: MaxApr, Discount: MaxDiscount, WithdrawalDelay: MaxWithdrawalDelay, Treasury: treasury}.Validate())
	require.Error(t, Global{Apr: MaxApr + 1, Treasury: treasury}.Validate())
	require.Error(t, Global{Discount: MaxDiscount + 1, Treasury: treasury}.Validate())
	require.Error(t, Global{WithdrawalDelay: MaxWithdrawalDelay + 1, Treasury: treasury}.Validate())
	require.Error(t, Global{}.Validate())
	require.Equal(t, MaxPercentReserved, ClampPercentReserved(5_000))
	require.Equal(t, uint64(100), ClampPercentReserved(100))
}
