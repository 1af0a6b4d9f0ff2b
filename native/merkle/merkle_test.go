package merkle

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	nativecommon "rcavault/native/common"
)

func testLeaves(n int) []common.Hash {
	leaves := make([]common.Hash, n)
	for i := range leaves {
		leaves[i] = PriceLeaf(common.BigToAddress(big.NewInt(int64(i+1))), big.NewInt(int64(1000+i)))
	}
	return leaves
}

func TestTreeProofsVerifyForEverySize(t *testing.T) {
	for size := 1; size <= 9; size++ {
		leaves := testLeaves(size)
		tree, err := NewTree(leaves)
		require.NoError(t, err)
		require.Equal(t, size, tree.Len())
		for i, leaf := range leaves {
			proof, err := tree.Proof(i)
			require.NoError(t, err)
			require.True(t, Verify(tree.Root(), leaf, proof), "size=%d index=%d", size, i)
			require.Equal(t, i, tree.IndexOf(leaf))
		}
	}
}

func TestSingleLeafTreeUsesEmptyProof(t *testing.T) {
	shield := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	leaf := LiquidationLeaf(shield, big.NewInt(0))
	tree, err := NewTree([]common.Hash{leaf})
	require.NoError(t, err)
	require.Equal(t, leaf, tree.Root())
	proof, err := tree.Proof(0)
	require.NoError(t, err)
	require.Empty(t, proof)
	require.NoError(t, Check(KindLiquidation, tree.Root(), leaf, proof))
}

func TestSingleBitMutationFails(t *testing.T) {
	leaves := testLeaves(5)
	tree, err := NewTree(leaves)
	require.NoError(t, err)
	proof, err := tree.Proof(2)
	require.NoError(t, err)
	require.True(t, Verify(tree.Root(), leaves[2], proof))

	for i := range proof {
		mutated := append([]common.Hash(nil), proof...)
		mutated[i][7] ^= 0x01
		require.False(t, Verify(tree.Root(), leaves[2], mutated))
	}

	asset := common.BigToAddress(big.NewInt(3))
	require.False(t, Verify(tree.Root(), PriceLeaf(asset, big.NewInt(1003)), proof))
	flippedAsset := asset
	flippedAsset[19] ^= 0x80
	require.False(t, Verify(tree.Root(), PriceLeaf(flippedAsset, big.NewInt(1002)), proof))

	root := tree.Root()
	root[0] ^= 0x01
	require.False(t, Verify(root, leaves[2], proof))
}

func TestCheckReturnsProofError(t *testing.T) {
	err := Check(KindReserved, common.Hash{}, ReservedLeaf(common.Address{}, 0), nil)
	require.ErrorIs(t, err, nativecommon.ErrProof)
	require.Contains(t, err.Error(), KindReserved)
}

func TestLeafSchemasAreDistinct(t *testing.T) {
	addr := common.HexToAddress("0x1111111111111111111111111111111111111111")
	require.NotEqual(t, LiquidationLeaf(addr, big.NewInt(5)), LiquidationLeaf(addr, big.NewInt(6)))
	require.Equal(t, LiquidationLeaf(addr, big.NewInt(5)), ReservedLeaf(addr, 5))
	require.NotEqual(t, ClaimLeaf(addr, 1, big.NewInt(5)), ClaimLeaf(addr, 2, big.NewInt(5)))

	tokens := []common.Address{common.HexToAddress("0x01"), common.HexToAddress("0x02")}
	amounts := []*big.Int{big.NewInt(1), big.NewInt(2)}
	require.NotEqual(t,
		RewardLeaf(0, addr, 1, tokens, amounts),
		RewardLeaf(0, addr, 2, tokens, amounts))
}

func TestWordEncoding(t *testing.T) {
	require.Len(t, Word(nil), 32)
	require.Equal(t, byte(5), Word(big.NewInt(5))[31])
	require.Equal(t, WordUint64(5), Word(big.NewInt(5)))
	neg := Word(big.NewInt(-1))
	for _, b := range neg {
		require.Equal(t, byte(0xff), b)
	}
}

func TestProofIndexOutOfRange(t *testing.T) {
	tree, err := NewTree(testLeaves(2))
	require.NoError(t, err)
	_, err = tree.Proof(2)
	require.Error(t, err)
	_, err = NewTree(nil)
	require.Error(t, err)
}
