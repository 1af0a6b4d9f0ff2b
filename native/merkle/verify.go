package merkle

import (
	"bytes"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	nativecommon "rcavault/native/common"
)

// Kinds of committed ledgers, used to label proof failures.
const (
	KindPrice       = "price"
	KindLiquidation = "liquidation"
	KindReserved    = "reserved"
	KindClaim       = "claim"
	KindReward      = "reward"
)

// HashPair combines two nodes with sorted-pair hashing so proofs carry no
// left/right position bits.
func HashPair(a, b common.Hash) common.Hash {
	if bytes.Compare(a[:], b[:]) <= 0 {
		return ethcrypto.Keccak256Hash(a[:], b[:])
	}
	return ethcrypto.Keccak256Hash(b[:], a[:])
}

// Fold walks the proof path from leaf to the implied root.
func Fold(leaf common.Hash, proof []common.Hash) common.Hash {
	computed := leaf
	for _, sibling := range proof {
		computed = HashPair(computed, sibling)
	}
	return computed
}

// Verify reports whether the proof folds leaf to root. It is a pure function
// of its arguments.
func Verify(root, leaf common.Hash, proof []common.Hash) bool {
	if root == (common.Hash{}) {
		return false
	}
	return Fold(leaf, proof) == root
}

// Check is Verify returning a ProofError labelled with kind on mismatch.
func Check(kind string, root, leaf common.Hash, proof []common.Hash) error {
	if !Verify(root, leaf, proof) {
		return &nativecommon.ProofError{Kind: kind}
	}
	return nil
}
