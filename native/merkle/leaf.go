// Package merkle implements the committed-ledger leaf schemas and the
// sorted-pair Merkle verification shared by the controller, the treasury and
// reward harvesting.
package merkle

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// Word encodes v as a 32-byte big-endian word. Negative or oversized values
// are reduced modulo 2^256, matching uint256 wrap-around.
func Word(v *big.Int) []byte {
	if v == nil {
		v = new(big.Int)
	}
	word := new(uint256.Int)
	if v.Sign() < 0 || v.BitLen() > 256 {
		mod := new(big.Int).Lsh(big.NewInt(1), 256)
		word.SetFromBig(new(big.Int).Mod(v, mod))
	} else {
		word.SetFromBig(v)
	}
	out := word.Bytes32()
	return out[:]
}

// WordUint64 encodes v as a 32-byte big-endian word.
func WordUint64(v uint64) []byte {
	out := uint256.NewInt(v).Bytes32()
	return out[:]
}

// PriceLeaf commits an asset price denominated in the native currency.
func PriceLeaf(asset common.Address, price *big.Int) common.Hash {
	return ethcrypto.Keccak256Hash(asset.Bytes(), Word(price))
}

// LiquidationLeaf commits the cumulative amount liquidated from a shield for
// claim payouts.
func LiquidationLeaf(shield common.Address, cumLiqForClaims *big.Int) common.Hash {
	return ethcrypto.Keccak256Hash(shield.Bytes(), Word(cumLiqForClaims))
}

// ReservedLeaf commits the reserved percentage (basis points) of a shield.
func ReservedLeaf(shield common.Address, percentReserved uint64) common.Hash {
	return ethcrypto.Keccak256Hash(shield.Bytes(), WordUint64(percentReserved))
}

// ClaimLeaf commits a user's payout for a single incident.
func ClaimLeaf(user common.Address, incidentID uint64, amount *big.Int) common.Hash {
	return ethcrypto.Keccak256Hash(user.Bytes(), WordUint64(incidentID), Word(amount))
}

// RewardLeaf commits a user's cumulative reward amounts for a distribution
// cycle. Tokens and amounts are matched by position.
func RewardLeaf(index uint64, user common.Address, cycle uint64, tokens []common.Address, amounts []*big.Int) common.Hash {
	buf := make([]byte, 0, 32+20+32+len(tokens)*20+len(amounts)*32)
	buf = append(buf, WordUint64(index)...)
	buf = append(buf, user.Bytes()...)
	buf = append(buf, WordUint64(cycle)...)
	for _, token := range tokens {
		buf = append(buf, token.Bytes()...)
	}
	for _, amount := range amounts {
		buf = append(buf, Word(amount)...)
	}
	return ethcrypto.Keccak256Hash(buf)
}
