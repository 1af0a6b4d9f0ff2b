package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"rcavault/crypto"
	"rcavault/native/capacity"
	"rcavault/native/merkle"
)

type fixedPass string

func (p fixedPass) Get() (string, error) { return string(p), nil }

func stubPassphrase(t *testing.T) {
	t.Helper()
	prev := newPassSource
	newPassSource = func(string) passSource { return fixedPass("correct horse") }
	t.Cleanup(func() { newPassSource = prev })
}

func writeTable(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "table.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const claimTable = `kind: claim
rows:
  - user: "0x000000000000000000000000000000000000a11c"
    incident: 1
    amount: "500"
  - user: "0x0000000000000000000000000000000000000b0b"
    incident: 1
    amount: "250"
  - user: "0x000000000000000000000000000000000000ca01"
    incident: 1
    amount: "75"
`

func TestRootAndProof(t *testing.T) {
	path := writeTable(t, claimTable)

	var out bytes.Buffer
	require.NoError(t, run([]string{rootCommand, "--file", path}, &out))
	root := common.HexToHash(strings.TrimSpace(out.String()))
	require.NotEqual(t, common.Hash{}, root)

	out.Reset()
	require.NoError(t, run([]string{proofCommand, "--file", path, "--index", "1"}, &out))
	var result proofOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	require.Equal(t, root.Hex(), result.Root)

	leaf := merkle.ClaimLeaf(common.HexToAddress("0xb0b"), 1, big.NewInt(250))
	require.Equal(t, leaf.Hex(), result.Leaf)
	proof := make([]common.Hash, 0, len(result.Proof))
	for _, h := range result.Proof {
		proof = append(proof, common.HexToHash(h))
	}
	require.NoError(t, merkle.Check(merkle.KindClaim, root, leaf, proof))

	require.ErrorContains(t, run([]string{proofCommand, "--file", path, "--index", "3"}, &out), "out of range")
}

func TestTableErrors(t *testing.T) {
	var out bytes.Buffer
	err := run([]string{rootCommand, "--file", writeTable(t, "kind: bogus\nrows:\n  - user: \"0x01\"\n")}, &out)
	require.ErrorContains(t, err, "unknown table kind")

	err = run([]string{rootCommand, "--file", writeTable(t, "kind: price\nrows: []\n")}, &out)
	require.ErrorContains(t, err, "no rows")

	err = run([]string{rootCommand, "--file", writeTable(t, "kind: price\nrows:\n  - asset: \"0x0000000000000000000000000000000000001001\"\n    price: \"-4\"\n")}, &out)
	require.ErrorContains(t, err, "invalid price")
}

func TestReservedTableUsesPercent(t *testing.T) {
	shield := common.HexToAddress("0x5e01")
	path := writeTable(t, "kind: reserved\nrows:\n  - shield: \""+shield.Hex()+"\"\n    percentReserved: 1000\n")
	var out bytes.Buffer
	require.NoError(t, run([]string{rootCommand, "--file", path}, &out))
	require.Equal(t, merkle.ReservedLeaf(shield, 1000).Hex(), strings.TrimSpace(out.String()))
}

func TestRewardTableCommitsCumulativeAmounts(t *testing.T) {
	shield := common.HexToAddress("0x5e01")
	token := common.HexToAddress("0x2002")
	path := writeTable(t, "kind: reward\nrows:\n  - user: \""+shield.Hex()+"\"\n    index: 4\n    cycle: 2\n    tokens: [\""+token.Hex()+"\"]\n    amounts: [\"45\"]\n")
	var out bytes.Buffer
	require.NoError(t, run([]string{rootCommand, "--file", path}, &out))
	want := merkle.RewardLeaf(4, shield, 2, []common.Address{token}, []*big.Int{big.NewInt(45)})
	require.Equal(t, want.Hex(), strings.TrimSpace(out.String()))

	path = writeTable(t, "kind: reward\nrows:\n  - user: \""+shield.Hex()+"\"\n    tokens: [\""+token.Hex()+"\"]\n")
	err := run([]string{rootCommand, "--file", path}, &out)
	require.ErrorContains(t, err, "1 tokens but 0 amounts")
}

func TestGenerateKeyAndSignCapacity(t *testing.T) {
	stubPassphrase(t)
	keystore := filepath.Join(t.TempDir(), "caporacle.keystore")

	var out bytes.Buffer
	require.NoError(t, run([]string{generateKeyCommand, "--keystore", keystore}, &out))
	var signerHex string
	for _, line := range strings.Split(out.String(), "\n") {
		if strings.HasPrefix(line, "hex: ") {
			signerHex = strings.TrimPrefix(line, "hex: ")
		}
	}
	require.NotEmpty(t, signerHex)
	require.ErrorContains(t, run([]string{generateKeyCommand, "--keystore", keystore}, &out), "already exists")

	user := common.HexToAddress("0xa11c")
	shield := common.HexToAddress("0x5e01")
	controller := common.HexToAddress("0xc0")
	out.Reset()
	require.NoError(t, run([]string{
		signCapacityCommand,
		"--keystore", keystore,
		"--chain", "1337",
		"--controller", crypto.FromCommon(controller).String(),
		"--user", user.Hex(),
		"--shield", shield.Hex(),
		"--amount", "1000",
		"--nonce", "2",
		"--expiry", "1700000060",
	}, &out))

	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(out.String()), "0x"))
	require.NoError(t, err)
	sig, err := capacity.SignatureFromBytes(raw)
	require.NoError(t, err)
	claim := capacity.Claim{User: user, Shield: shield, Amount: big.NewInt(1000), Nonce: 2, Expiry: 1_700_000_060}
	signer, err := capacity.Recover(capacity.Domain{ChainID: 1337, Controller: controller}, claim, sig)
	require.NoError(t, err)
	require.Equal(t, common.HexToAddress(signerHex), signer)
}

func TestSignCapacityValidatesFlags(t *testing.T) {
	stubPassphrase(t)
	var out bytes.Buffer
	err := run([]string{signCapacityCommand, "--controller", "0x01"}, &out)
	require.ErrorContains(t, err, "--chain required")
	addr := common.HexToAddress("0x01").Hex()
	err = run([]string{signCapacityCommand, "--chain", "1", "--controller", addr, "--user", addr, "--shield", addr, "--amount", "0"}, &out)
	require.ErrorContains(t, err, "--amount")
}

func TestUnknownCommand(t *testing.T) {
	require.Error(t, run(nil, &bytes.Buffer{}))
	require.ErrorContains(t, run([]string{"nope"}, &bytes.Buffer{}), "unknown command")
}
