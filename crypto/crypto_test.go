package crypto

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestAddressRoundTrip(t *testing.T) {
	hex := common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	encoded := FromCommon(hex).String()
	require.True(t, strings.HasPrefix(encoded, "rca1"))

	parsed, err := ParseAddress(encoded)
	require.NoError(t, err)
	require.Equal(t, hex, parsed)

	parsed, err = ParseAddress(hex.Hex())
	require.NoError(t, err)
	require.Equal(t, hex, parsed)
}

func TestParseAddressRejectsGarbage(t *testing.T) {
	for _, input := range []string{"", "0x1234", "rca1notbech32", "0xzz00000000000000000000000000000000000000"} {
		_, err := ParseAddress(input)
		require.Error(t, err, input)
	}

	other := NewAddress("cosmos", common.HexToAddress("0x01").Bytes()).String()
	_, err := ParseAddress(other)
	require.Error(t, err)
}

func TestKeystoreRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "oracle", "key.json")
	require.NoError(t, SaveToKeystoreWith(path, key, "pass", LightScrypt))
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	recorded, err := KeystoreAddress(path)
	require.NoError(t, err)
	require.Equal(t, key.PubKey().Address().Common(), recorded)

	loaded, err := LoadFromKeystore(path, "pass")
	require.NoError(t, err)
	require.Equal(t, key.Bytes(), loaded.Bytes())
	require.Equal(t, key.PubKey().Address().String(), loaded.PubKey().Address().String())

	_, err = LoadFromKeystore(path, "wrong")
	require.Error(t, err)
}

func TestPrivateKeyFromHex(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)
	parsed, err := PrivateKeyFromHex("0x" + common.Bytes2Hex(key.Bytes()))
	require.NoError(t, err)
	require.Equal(t, key.PubKey().Address().Common(), parsed.PubKey().Address().Common())
}
