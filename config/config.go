package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"rcavault/crypto"
	"rcavault/storage"
)

// Config is the rcad deployment description.
type Config struct {
	ListenAddress string `toml:"ListenAddress"`
	DataDir       string `toml:"DataDir"`
	// EventStore selects the journal backend: leveldb, bolt or memory.
	EventStore    string `toml:"EventStore"`
	Environment   string `toml:"Environment"`
	LogFile       string `toml:"LogFile"`
	ChainID       uint64 `toml:"ChainID"`
	// Controller is the controller address capacity claims are bound to.
	Controller string `toml:"Controller"`
	// CapOracleKeystorePath holds the capacity signer. When Roles.CapOracle is
	// empty the signer's address fills the role.
	CapOracleKeystorePath string `toml:"CapOracleKeystorePath"`

	Roles     Roles      `toml:"roles"`
	Params    Params     `toml:"params"`
	RateLimit RateLimit  `toml:"rate_limit"`
	Telemetry Telemetry  `toml:"telemetry"`
	Tokens    []Token    `toml:"tokens"`
	Shields   []Shield   `toml:"shields"`
	Routers   []Router   `toml:"routers"`
	Balances  []Balance  `toml:"balances"`
	Incidents []Incident `toml:"incidents"`
}

// Load loads the configuration from the given path, writing a default one
// when the file does not exist.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s has unknown field %s", path, undecoded[0].String())
	}

	if strings.TrimSpace(cfg.Roles.CapOracle) == "" {
		if err := ensureKeystore(path, cfg); err != nil {
			return nil, err
		}
	}
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		cfg.ListenAddress = defaultListenAddress
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = defaultDataDir
	}
	if strings.TrimSpace(cfg.EventStore) == "" {
		cfg.EventStore = storage.BackendLevelDB
	}
	if cfg.RateLimit.RequestsPerMinute == 0 {
		cfg.RateLimit = defaultRateLimit()
	}
	return cfg, nil
}

func ensureKeystore(configPath string, cfg *Config) error {
	keystorePath := cfg.CapOracleKeystorePath
	if keystorePath == "" {
		keystorePath = defaultKeystorePath(configPath)
	}

	if _, err := os.Stat(keystorePath); os.IsNotExist(err) {
		key, genErr := crypto.GeneratePrivateKey()
		if genErr != nil {
			return genErr
		}
		if err := crypto.SaveToKeystore(keystorePath, key, ""); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	signer, err := crypto.KeystoreAddress(keystorePath)
	if err != nil {
		return fmt.Errorf("capacity oracle keystore %s: %w", keystorePath, err)
	}
	cfg.Roles.CapOracle = crypto.FromCommon(signer).String()
	cfg.CapOracleKeystorePath = keystorePath
	return persist(configPath, cfg)
}

const (
	defaultListenAddress = "127.0.0.1:8645"
	defaultDataDir       = "./rca-data"
)

func defaultRateLimit() RateLimit {
	return RateLimit{RequestsPerMinute: 600, Burst: 60}
}

// createDefault creates and saves a single-shield local deployment.
func createDefault(path string) (*Config, error) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	keystorePath := defaultKeystorePath(path)
	if err := crypto.SaveToKeystore(keystorePath, key, ""); err != nil {
		return nil, err
	}

	cfg := &Config{
		ListenAddress:         defaultListenAddress,
		DataDir:               defaultDataDir,
		EventStore:            storage.BackendLevelDB,
		Environment:           "local",
		ChainID:               31337,
		Controller:            "0x00000000000000000000000000000000000c0de1",
		CapOracleKeystorePath: keystorePath,
		Roles: Roles{
			Governor:    "0x0000000000000000000000000000000000000a01",
			Guardian:    "0x0000000000000000000000000000000000000a02",
			PriceOracle: "0x0000000000000000000000000000000000000a03",
			CapOracle:   key.PubKey().Address().String(),
		},
		Params: Params{
			Apr:             0,
			Discount:        200,
			WithdrawalDelay: 86_400,
			Treasury:        "0x0000000000000000000000000000000000000a04",
		},
		RateLimit: defaultRateLimit(),
		Tokens: []Token{
			{Address: "0x0000000000000000000000000000000000001001", Symbol: "USDC", Decimals: 6},
		},
		Shields: []Shield{{
			Address:    "0x0000000000000000000000000000000000005e01",
			Name:       "RCA Shield USDC",
			Symbol:     "rcaUSDC",
			Underlying: "0x0000000000000000000000000000000000001001",
			Adapter:    AdapterVault,
		}},
	}

	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func defaultKeystorePath(configPath string) string {
	dir := filepath.Dir(configPath)
	if dir == "." || dir == "" {
		dir = ""
	}
	return filepath.Join(dir, "caporacle.keystore")
}
