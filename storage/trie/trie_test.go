package trie

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/stretchr/testify/require"
)

func TestTrieCommitAndReload(t *testing.T) {
	tr, err := NewMemoryTrie()
	require.NoError(t, err)

	key := crypto.Keccak256Hash([]byte("key"))
	value := []byte("value")

	require.NoError(t, tr.Update(key.Bytes(), value))
	root, err := tr.Commit()
	require.NoError(t, err)
	require.Equal(t, root, tr.Root())

	got, err := tr.Get(key.Bytes())
	require.NoError(t, err)
	require.Equal(t, value, got)

	require.NoError(t, tr.Update(key.Bytes(), []byte("other")))
	require.NotEqual(t, root, tr.Hash())
	require.NoError(t, tr.Reset(root))
	got, err = tr.Get(key.Bytes())
	require.NoError(t, err)
	require.Equal(t, value, got)
}

func TestTrieCopyIsIndependent(t *testing.T) {
	tr, err := NewMemoryTrie()
	require.NoError(t, err)
	key := crypto.Keccak256([]byte("a"))
	require.NoError(t, tr.Update(key, []byte{1}))

	copied := tr.Copy()
	require.NoError(t, tr.Update(key, []byte{2}))

	got, err := copied.Get(key)
	require.NoError(t, err)
	require.Equal(t, []byte{1}, got)
	require.NoError(t, tr.Delete(key))
	got, err = tr.Get(key)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestOpenReloadsCommittedRoot(t *testing.T) {
	db := rawdb.NewDatabase(memorydb.New())
	tr, err := Open(db, common.Hash{})
	require.NoError(t, err)
	require.Equal(t, gethtypes.EmptyRootHash, tr.Root())

	key := crypto.Keccak256([]byte("shield"))
	require.NoError(t, tr.Update(key, []byte("vault")))
	root, err := tr.Commit()
	require.NoError(t, err)

	reopened, err := Open(db, root)
	require.NoError(t, err)
	got, err := reopened.Get(key)
	require.NoError(t, err)
	require.Equal(t, []byte("vault"), got)

	_, err = Open(db, common.HexToHash("0xdead"))
	require.Error(t, err)
}
