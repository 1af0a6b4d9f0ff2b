package capacity

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"rcavault/core/state"
	nativecommon "rcavault/native/common"
)

func newAuthority(t *testing.T, now int64) (*Authority, Domain) {
	t.Helper()
	manager, err := state.NewMemoryManager()
	require.NoError(t, err)
	domain := Domain{ChainID: 1337, Controller: common.HexToAddress("0xc0")}
	auth := NewAuthority(domain)
	auth.SetState(manager)
	auth.SetNowFunc(func() int64 { return now })
	return auth, domain
}

func TestVerifyConsumesNonce(t *testing.T) {
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	oracle := ethcrypto.PubkeyToAddress(key.PublicKey)
	auth, domain := newAuthority(t, 1_000)

	user := common.HexToAddress("0xa1")
	shield := common.HexToAddress("0x5e")
	amount := big.NewInt(100)
	claim := Claim{User: user, Shield: shield, Amount: amount, Nonce: 0, Expiry: 2_000}
	sig, err := Sign(key, domain, claim)
	require.NoError(t, err)

	require.NoError(t, auth.Verify(oracle, user, shield, amount, 2_000, sig))
	nonce, err := auth.Nonce(user)
	require.NoError(t, err)
	require.Equal(t, uint64(1), nonce)

	err = auth.Verify(oracle, user, shield, amount, 2_000, sig)
	require.ErrorIs(t, err, nativecommon.ErrSignature)
	nonce, err = auth.Nonce(user)
	require.NoError(t, err)
	require.Equal(t, uint64(1), nonce)
}

func TestVerifyRejectsExpiredClaim(t *testing.T) {
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	oracle := ethcrypto.PubkeyToAddress(key.PublicKey)
	auth, domain := newAuthority(t, 2_001)

	user := common.HexToAddress("0xa1")
	shield := common.HexToAddress("0x5e")
	claim := Claim{User: user, Shield: shield, Amount: big.NewInt(5), Expiry: 2_000}
	sig, err := Sign(key, domain, claim)
	require.NoError(t, err)

	err = auth.Verify(oracle, user, shield, big.NewInt(5), 2_000, sig)
	require.ErrorIs(t, err, nativecommon.ErrCapacity)
}

func TestVerifyRejectsWrongSignerOrField(t *testing.T) {
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	other, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	oracle := ethcrypto.PubkeyToAddress(key.PublicKey)
	auth, domain := newAuthority(t, 10)

	user := common.HexToAddress("0xa1")
	shield := common.HexToAddress("0x5e")
	claim := Claim{User: user, Shield: shield, Amount: big.NewInt(5), Expiry: 20}

	forged, err := Sign(other, domain, claim)
	require.NoError(t, err)
	require.ErrorIs(t, auth.Verify(oracle, user, shield, big.NewInt(5), 20, forged), nativecommon.ErrSignature)

	sig, err := Sign(key, domain, claim)
	require.NoError(t, err)
	require.ErrorIs(t, auth.Verify(oracle, user, shield, big.NewInt(6), 20, sig), nativecommon.ErrSignature)
	require.ErrorIs(t, auth.Verify(oracle, user, common.HexToAddress("0x5f"), big.NewInt(5), 20, sig), nativecommon.ErrSignature)

	otherDomain := Domain{ChainID: domain.ChainID + 1, Controller: domain.Controller}
	crossChain, err := Sign(key, otherDomain, claim)
	require.NoError(t, err)
	require.ErrorIs(t, auth.Verify(oracle, user, shield, big.NewInt(5), 20, crossChain), nativecommon.ErrSignature)

	require.NoError(t, auth.Verify(oracle, user, shield, big.NewInt(5), 20, sig))
}

func TestRecoverRejectsHighS(t *testing.T) {
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	domain := Domain{ChainID: 1, Controller: common.HexToAddress("0xc0")}
	claim := Claim{User: common.HexToAddress("0x01"), Shield: common.HexToAddress("0x02"), Amount: big.NewInt(1), Expiry: 1}
	sig, err := Sign(key, domain, claim)
	require.NoError(t, err)

	signer, err := Recover(domain, claim, sig)
	require.NoError(t, err)
	require.Equal(t, ethcrypto.PubkeyToAddress(key.PublicKey), signer)

	n := ethcrypto.S256().Params().N
	s := new(big.Int).SetBytes(sig.S.Bytes())
	flipped := sig
	flipped.S = common.BigToHash(new(big.Int).Sub(n, s))
	flipped.V = 55 - sig.V
	_, err = Recover(domain, claim, flipped)
	require.ErrorIs(t, err, nativecommon.ErrSignature)
}

func TestSignatureFromBytes(t *testing.T) {
	raw := make([]byte, 65)
	raw[64] = 1
	sig, err := SignatureFromBytes(raw)
	require.NoError(t, err)
	require.Equal(t, uint8(28), sig.V)
	_, err = SignatureFromBytes(raw[:64])
	require.Error(t, err)
}
