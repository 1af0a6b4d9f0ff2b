package state

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

type record struct {
	Owner  common.Address
	Amount *big.Int
	At     uint64
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewMemoryManager()
	require.NoError(t, err)
	return m
}

func TestKVRoundTrip(t *testing.T) {
	m := newTestManager(t)
	in := record{Owner: common.HexToAddress("0x01"), Amount: big.NewInt(42), At: 7}
	require.NoError(t, m.KVPut([]byte("rec"), in))

	var out record
	ok, err := m.KVGet([]byte("rec"), &out)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, in.Owner, out.Owner)
	require.Equal(t, 0, in.Amount.Cmp(out.Amount))

	require.NoError(t, m.KVDelete([]byte("rec")))
	ok, err = m.KVGet([]byte("rec"), &out)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = m.KVGet(nil, &out)
	require.Error(t, err)
}

func TestKVListHelpers(t *testing.T) {
	m := newTestManager(t)
	var list [][]byte
	require.NoError(t, m.KVGetList([]byte("idx"), &list))
	require.Empty(t, list)

	require.NoError(t, m.KVAppend([]byte("idx"), []byte{1}))
	require.NoError(t, m.KVAppend([]byte("idx"), []byte{2}))
	require.NoError(t, m.KVAppend([]byte("idx"), []byte{1}))
	require.NoError(t, m.KVGetList([]byte("idx"), &list))
	require.Equal(t, [][]byte{{1}, {2}}, list)

	require.NoError(t, m.KVRemove([]byte("idx"), []byte{1}))
	require.NoError(t, m.KVGetList([]byte("idx"), &list))
	require.Equal(t, [][]byte{{2}}, list)
}

func TestSnapshotRevertRestoresRoot(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.KVPut([]byte("a"), uint64(1)))
	before := m.Root()

	outer := m.Snapshot()
	require.NoError(t, m.KVPut([]byte("a"), uint64(2)))
	inner := m.Snapshot()
	require.NoError(t, m.KVPut([]byte("b"), uint64(3)))
	m.ReleaseSnapshot(inner)
	require.NotEqual(t, before, m.Root())

	m.RevertToSnapshot(outer)
	require.Equal(t, before, m.Root())
	var v uint64
	ok, err := m.KVGet([]byte("a"), &v)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(1), v)
	ok, err = m.KVGet([]byte("b"), &v)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCommitKeepsState(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.ParamStoreSet("controller/global", []byte(`{"apr":1}`)))
	root, err := m.Commit()
	require.NoError(t, err)
	require.Equal(t, root, m.Root())
	raw, ok, err := m.ParamStoreGet("controller/global")
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `{"apr":1}`, string(raw))
	_, ok, err = m.ParamStoreGet("missing")
	require.NoError(t, err)
	require.False(t, ok)
}
