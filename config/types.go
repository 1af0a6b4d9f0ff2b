package config

// Adapter kinds a shield can be configured with.
const (
	AdapterVault        = "vault"
	AdapterPooled       = "pooled"
	AdapterIncentivized = "incentivized"
	AdapterMerkle       = "merkle"
)

// Roles names the controller role holders. Addresses are 0x hex or rca
// bech32.
type Roles struct {
	Governor    string `toml:"Governor"`
	Guardian    string `toml:"Guardian"`
	PriceOracle string `toml:"PriceOracle"`
	CapOracle   string `toml:"CapOracle"`
}

// Params are the controller's governed global parameters at genesis.
type Params struct {
	Apr             uint64 `toml:"Apr"`
	Discount        uint64 `toml:"Discount"`
	WithdrawalDelay uint64 `toml:"WithdrawalDelay"`
	Treasury        string `toml:"Treasury"`
}

// RateLimit bounds per-client request rates on the view API.
type RateLimit struct {
	RequestsPerMinute float64 `toml:"RequestsPerMinute"`
	Burst             int     `toml:"Burst"`
}

// Telemetry configures OTLP export. Headers use the OTEL key=value,... form.
type Telemetry struct {
	Endpoint string `toml:"Endpoint"`
	Insecure bool   `toml:"Insecure"`
	Headers  string `toml:"Headers"`
	Traces   bool   `toml:"Traces"`
	Metrics  bool   `toml:"Metrics"`
}

// Token registers an underlying or reward token on the ledger.
type Token struct {
	Address  string `toml:"Address"`
	Symbol   string `toml:"Symbol"`
	Name     string `toml:"Name"`
	Decimals uint64 `toml:"Decimals"`
}

// Shield describes one coverage vault.
type Shield struct {
	Address    string `toml:"Address"`
	Name       string `toml:"Name"`
	Symbol     string `toml:"Symbol"`
	Underlying string `toml:"Underlying"`
	// Adapter is one of vault, pooled, incentivized or merkle.
	Adapter string `toml:"Adapter"`
	// Source is the staking pool, incentives controller or reward
	// distributor address.
	Source string `toml:"Source"`
	PoolID uint64 `toml:"PoolID"`
	// Publisher may publish reward roots on a merkle distributor.
	Publisher string `toml:"Publisher"`
}

// Router describes a fixed-rate zap router. Rate is an 18 decimal fixed point
// output per unit of input.
type Router struct {
	Address string `toml:"Address"`
	In      string `toml:"In"`
	Out     string `toml:"Out"`
	Rate    string `toml:"Rate"`
}

// Balance seeds a token balance. Token may be empty for native currency.
type Balance struct {
	Token  string `toml:"Token"`
	Holder string `toml:"Holder"`
	Amount string `toml:"Amount"`
}

// Incident publishes a claims root on the treasury at startup.
type Incident struct {
	ID   uint64 `toml:"ID"`
	Root string `toml:"Root"`
}
