// Package capacity verifies the capacity claims signed by the capacity oracle.
// A claim authorises one mint of up to Amount underlying into a shield for one
// user and is consumed by bumping the user's nonce.
package capacity

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	nativecommon "rcavault/native/common"
	"rcavault/native/merkle"
)

const (
	// DomainName is the signing domain name.
	DomainName = "RcaController"
	// DomainVersion is the signing domain version.
	DomainVersion = "1"
)

var (
	domainTypeHash = ethcrypto.Keccak256Hash([]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"))
	mintTypeHash   = ethcrypto.Keccak256Hash([]byte("Mint(address user,address shield,uint256 amount,uint256 nonce,uint256 expiry)"))
)

// Domain binds claims to one chain and one controller.
type Domain struct {
	ChainID    uint64
	Controller common.Address
}

// Separator returns the domain separator hash.
func (d Domain) Separator() common.Hash {
	return ethcrypto.Keccak256Hash(
		domainTypeHash.Bytes(),
		ethcrypto.Keccak256([]byte(DomainName)),
		ethcrypto.Keccak256([]byte(DomainVersion)),
		merkle.WordUint64(d.ChainID),
		common.LeftPadBytes(d.Controller.Bytes(), 32),
	)
}

// Claim is the tuple the capacity oracle signs.
type Claim struct {
	User   common.Address
	Shield common.Address
	Amount *big.Int
	Nonce  uint64
	Expiry uint64
}

// StructHash hashes the claim fields under the Mint type hash.
func (c Claim) StructHash() common.Hash {
	return ethcrypto.Keccak256Hash(
		mintTypeHash.Bytes(),
		common.LeftPadBytes(c.User.Bytes(), 32),
		common.LeftPadBytes(c.Shield.Bytes(), 32),
		merkle.Word(c.Amount),
		merkle.WordUint64(c.Nonce),
		merkle.WordUint64(c.Expiry),
	)
}

// Digest returns the hash the oracle signs for claim under domain.
func Digest(domain Domain, claim Claim) common.Hash {
	sep := domain.Separator()
	body := claim.StructHash()
	return ethcrypto.Keccak256Hash([]byte{0x19, 0x01}, sep.Bytes(), body.Bytes())
}

// Signature is an (r, s, v) secp256k1 signature with v in {27, 28}.
type Signature struct {
	V uint8
	R common.Hash
	S common.Hash
}

// Bytes returns the 65 byte r‖s‖v encoding.
func (s Signature) Bytes() []byte {
	out := make([]byte, 65)
	copy(out[:32], s.R.Bytes())
	copy(out[32:64], s.S.Bytes())
	out[64] = s.V
	return out
}

// SignatureFromBytes parses a 65 byte r‖s‖v signature. Recovery ids 0 and 1
// are normalised to 27 and 28.
func SignatureFromBytes(raw []byte) (Signature, error) {
	if len(raw) != 65 {
		return Signature{}, fmt.Errorf("capacity: signature must be 65 bytes, got %d", len(raw))
	}
	sig := Signature{V: raw[64], R: common.BytesToHash(raw[:32]), S: common.BytesToHash(raw[32:64])}
	if sig.V < 27 {
		sig.V += 27
	}
	return sig, nil
}

// Sign produces the oracle signature over claim.
func Sign(key *ecdsa.PrivateKey, domain Domain, claim Claim) (Signature, error) {
	if key == nil {
		return Signature{}, fmt.Errorf("capacity: signing key required")
	}
	digest := Digest(domain, claim)
	raw, err := ethcrypto.Sign(digest.Bytes(), key)
	if err != nil {
		return Signature{}, err
	}
	return SignatureFromBytes(raw)
}

// Recover returns the address that signed claim under domain.
func Recover(domain Domain, claim Claim, sig Signature) (common.Address, error) {
	v := sig.V
	if v >= 27 {
		v -= 27
	}
	r := new(big.Int).SetBytes(sig.R.Bytes())
	s := new(big.Int).SetBytes(sig.S.Bytes())
	if !ethcrypto.ValidateSignatureValues(v, r, s, true) {
		return common.Address{}, &nativecommon.SignatureError{Reason: "malformed signature"}
	}
	raw := sig.Bytes()
	raw[64] = v
	digest := Digest(domain, claim)
	pub, err := ethcrypto.SigToPub(digest.Bytes(), raw)
	if err != nil {
		return common.Address{}, &nativecommon.SignatureError{Reason: err.Error()}
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}
