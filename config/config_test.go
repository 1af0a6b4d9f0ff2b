package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"rcavault/crypto"
)

const sampleConfig = `ListenAddress = "0.0.0.0:9000"
DataDir = "./data"
ChainID = 1337
Controller = "0x00000000000000000000000000000000000000c0"

[roles]
Governor = "0x0000000000000000000000000000000000000a01"
Guardian = "0x0000000000000000000000000000000000000a02"
PriceOracle = "0x0000000000000000000000000000000000000a03"
CapOracle = "0x0000000000000000000000000000000000000a05"

[params]
Apr = 500
Discount = 200
WithdrawalDelay = 86400
Treasury = "0x0000000000000000000000000000000000000a04"

[rate_limit]
RequestsPerMinute = 120
Burst = 10

[[tokens]]
Address = "0x0000000000000000000000000000000000001001"
Symbol = "DAI"
Decimals = 18

[[shields]]
Address = "0x0000000000000000000000000000000000005e01"
Name = "RCA Shield DAI"
Symbol = "rcaDAI"
Underlying = "0x0000000000000000000000000000000000001001"
Adapter = "pooled"
Source = "0x0000000000000000000000000000000000004004"
PoolID = 3

[[routers]]
Address = "0x0000000000000000000000000000000000007007"
In = "0x0000000000000000000000000000000000001001"
Out = "0x0000000000000000000000000000000000003003"
Rate = "2000000000000000000"

[[balances]]
Holder = "0x000000000000000000000000000000000000a11c"
Amount = "1000000000000000000000"

[[incidents]]
ID = 1
Root = "0x1111111111111111111111111111111111111111111111111111111111111111"
`

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rcad.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadParsesDeployment(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:9000", cfg.ListenAddress)
	require.Equal(t, 120.0, cfg.RateLimit.RequestsPerMinute)

	plan, err := cfg.Plan()
	require.NoError(t, err)
	require.Equal(t, uint64(1337), plan.ChainID)
	require.Equal(t, uint64(500), plan.Global.Apr)
	require.Equal(t, common.HexToAddress("0x0a04"), plan.Global.Treasury)
	require.Len(t, plan.Shields, 1)
	require.Equal(t, AdapterPooled, plan.Shields[0].Adapter)
	require.Equal(t, uint64(18), plan.Shields[0].Decimals)
	require.Equal(t, uint64(3), plan.Shields[0].PoolID)
	require.Equal(t, "2000000000000000000", plan.Routers[0].Rate.String())
	require.Equal(t, common.Address{}, plan.Balances[0].Token)
	require.Len(t, plan.Incidents, 1)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	_, err := Load(writeConfig(t, sampleConfig+"\nBogus = 1\n"))
	require.Error(t, err)
}

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "rcad.toml")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.FileExists(t, path)
	require.FileExists(t, cfg.CapOracleKeystorePath)
	require.NoError(t, cfg.Validate())

	key, err := crypto.LoadFromKeystore(cfg.CapOracleKeystorePath, "")
	require.NoError(t, err)
	require.Equal(t, key.PubKey().Address().String(), cfg.Roles.CapOracle)

	reloaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.Roles.CapOracle, reloaded.Roles.CapOracle)
}

func TestLoadDerivesCapOracleFromKeystore(t *testing.T) {
	contents := strings.Replace(sampleConfig, `CapOracle = "0x0000000000000000000000000000000000000a05"`, "", 1)
	path := writeConfig(t, contents)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(cfg.Roles.CapOracle, "rca1"))
	require.Equal(t, filepath.Join(filepath.Dir(path), "caporacle.keystore"), cfg.CapOracleKeystorePath)
	plan, err := cfg.Plan()
	require.NoError(t, err)
	require.NotEqual(t, common.Address{}, plan.CapOracle)
}

func TestPlanResolvesMerkleAdapter(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	cfg.Shields[0].Adapter = "Merkle"
	cfg.Shields[0].Publisher = "0x0000000000000000000000000000000000009004"
	plan, err := cfg.Plan()
	require.NoError(t, err)
	require.Equal(t, AdapterMerkle, plan.Shields[0].Adapter)
	require.Equal(t, common.HexToAddress("0x4004"), plan.Shields[0].Source)
	require.Equal(t, common.HexToAddress("0x9004"), plan.Shields[0].Publisher)
}

func TestPlanRejectsInvalidFields(t *testing.T) {
	cases := map[string]func(*Config){
		"apr over bound":      func(c *Config) { c.Params.Apr = 2_001 },
		"discount over bound": func(c *Config) { c.Params.Discount = 2_501 },
		"delay over bound":    func(c *Config) { c.Params.WithdrawalDelay = 8 * 86_400 },
		"bad governor":        func(c *Config) { c.Roles.Governor = "nope" },
		"missing chain":       func(c *Config) { c.ChainID = 0 },
		"unknown underlying":  func(c *Config) { c.Shields[0].Underlying = "0x0000000000000000000000000000000000009999" },
		"unknown adapter":     func(c *Config) { c.Shields[0].Adapter = "lending" },
		"pooled no source":    func(c *Config) { c.Shields[0].Source = "" },
		"merkle no publisher": func(c *Config) {
			c.Shields[0].Adapter = AdapterMerkle
			c.Shields[0].Publisher = ""
		},
		"duplicate shield":    func(c *Config) { c.Shields = append(c.Shields, c.Shields[0]) },
		"negative balance":    func(c *Config) { c.Balances[0].Amount = "-1" },
		"bad router rate":     func(c *Config) { c.Routers[0].Rate = "fast" },
		"short incident root": func(c *Config) { c.Incidents[0].Root = "0x11" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, sampleConfig))
			require.NoError(t, err)
			mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
