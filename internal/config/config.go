// Package config loads hypermint settings from a dotenv file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DefaultFile is the dotenv file read when no path is given.
const DefaultFile = ".env.nft"

// Exchange API endpoints.
const (
	MainnetAPIURL = "https://api.hyperliquid.xyz"
	TestnetAPIURL = "https://api.hyperliquid-testnet.xyz"
)

// Config holds all settings. Keys are flat so they match the dotenv file and
// environment variable names.
type Config struct {
	Chain    ChainConfig    `mapstructure:",squash"`
	Token    TokenConfig    `mapstructure:",squash"`
	Analysis AnalysisConfig `mapstructure:",squash"`
	Server   ServerConfig   `mapstructure:",squash"`
	Log      LogConfig      `mapstructure:",squash"`
}

// ChainConfig holds RPC and signing settings.
type ChainConfig struct {
	RPCURL     string `mapstructure:"rpc_url" validate:"required,url"`
	APIURL     string `mapstructure:"api_url" validate:"omitempty,url"`
	PrivateKey string `mapstructure:"private_key"`
	ChainID    uint64 `mapstructure:"chain_id"` // 0 means ask the node
	Strategies string `mapstructure:"bigblocks_strategies"`
}

// TokenConfig holds the NFT constructor arguments and deployment files.
type TokenConfig struct {
	Name           string `mapstructure:"token_name" validate:"required"`
	Symbol         string `mapstructure:"token_symbol" validate:"required"`
	BaseURI        string `mapstructure:"base_token_uri" validate:"required"`
	ReserveCount   int64  `mapstructure:"reserve_count" validate:"gte=0"`
	DeploymentFile string `mapstructure:"deployment_file" validate:"required"`
	ContractSource string `mapstructure:"contract_source"`
	ContractName   string `mapstructure:"contract_name"`
	ArtifactFile   string `mapstructure:"artifact_file"`
	Solc           string `mapstructure:"solc"`
}

// AnalysisConfig holds the block classification and timing parameters.
type AnalysisConfig struct {
	SlowGasThreshold uint64  `mapstructure:"slow_gas_threshold" validate:"gt=0"`
	SlowIntervalSec  float64 `mapstructure:"slow_interval_sec" validate:"gt=0"`
	FastIntervalSec  float64 `mapstructure:"fast_interval_sec" validate:"gt=0"`
	ScanWindow       int     `mapstructure:"scan_window" validate:"gt=0"`
	SearchBound      int     `mapstructure:"search_bound" validate:"gt=0"`
}

// ServerConfig holds the static server settings.
type ServerConfig struct {
	Port      int    `mapstructure:"port" validate:"gt=0,lte=65535"`
	Host      string `mapstructure:"host"`
	PublicDir string `mapstructure:"public_dir" validate:"required"`
}

// LogConfig selects log level and format.
type LogConfig struct {
	Level  string `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"log_format" validate:"oneof=json text"`
}

// Load reads path (DefaultFile when empty), then the environment, then any
// changed flags. A missing file is not an error.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	if path == "" {
		path = DefaultFile
	}
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)
	return &cfg, nil
}

// bindFlags lets a flag named like a key ("rpc-url" for rpc_url) override it.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var err error
	flags.VisitAll(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		if err != nil || !v.IsSet(key) {
			return
		}
		err = v.BindPFlag(key, f)
	})
	if err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}
	return nil
}

// setDefaults configures default values for all settings.
func setDefaults(v *viper.Viper) {
	// Chain
	v.SetDefault("rpc_url", "https://rpc.hyperliquid-testnet.xyz/evm")
	v.SetDefault("api_url", "")
	v.SetDefault("private_key", "")
	v.SetDefault("chain_id", 0)
	v.SetDefault("bigblocks_strategies", "exchange,node,signed")

	// Token
	v.SetDefault("token_name", "SingleImageNFT")
	v.SetDefault("token_symbol", "SINFT")
	v.SetDefault("base_token_uri", "https://ipfs.io/ipfs/QmYourIPFSHash")
	v.SetDefault("reserve_count", 10)
	v.SetDefault("deployment_file", "deployment-info.json")
	v.SetDefault("contract_source", "SingleImageNFT.sol")
	v.SetDefault("contract_name", "SingleImageNFT")
	v.SetDefault("artifact_file", "")
	v.SetDefault("solc", "solc")

	// Analysis
	v.SetDefault("slow_gas_threshold", 2_000_000)
	v.SetDefault("slow_interval_sec", 60)
	v.SetDefault("fast_interval_sec", 2)
	v.SetDefault("scan_window", 30)
	v.SetDefault("search_bound", 100)

	// Server
	v.SetDefault("port", 3000)
	v.SetDefault("host", "")
	v.SetDefault("public_dir", "public")

	// Logging
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

var validate = validator.New()

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// IsMainnet reports whether the RPC URL points at mainnet.
func (c *Config) IsMainnet() bool {
	return !strings.Contains(c.Chain.RPCURL, "testnet")
}

// ExchangeURL returns the exchange endpoint matching the network. An explicit
// API_URL wins.
func (c *Config) ExchangeURL() string {
	base := c.Chain.APIURL
	if base == "" {
		base = TestnetAPIURL
		if c.IsMainnet() {
			base = MainnetAPIURL
		}
	}
	return strings.TrimRight(base, "/") + "/exchange"
}

// StrategyNames splits the configured big-block strategy order.
func (c *Config) StrategyNames() []string {
	var names []string
	for _, n := range strings.Split(c.Chain.Strategies, ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names
}

// Addr returns the server listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
