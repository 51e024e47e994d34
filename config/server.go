// Package config holds the relayer server configuration plus the two
// external configuration trees it consumes: the relayer config (fee
// contracts, gas costs) and the mystiko config (chains, providers, pools).
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix is used when no config file is given: every setting can be
	// provided as MYSTIKO_RELAYER_<SECTION>_<KEY>.
	EnvPrefix = "MYSTIKO_RELAYER"
	// FileEnvPrefix overrides file-provided settings.
	FileEnvPrefix = "RELAYER_CONFIG"

	DefaultLogLevel = "info"
	DefaultHost     = "0.0.0.0"
	DefaultPort     = 8090

	// MinBalanceAlarmThreshold is the smallest accepted per-account balance
	// alarm threshold, in native units.
	MinBalanceAlarmThreshold = 0.0001
	// MinBalanceCheckIntervalMs bounds how often balances may be polled.
	MinBalanceCheckIntervalMs = 20000
)

// NetworkType selects mainnet or testnet remote configuration.
type NetworkType string

const (
	NetworkMainnet NetworkType = "mainnet"
	NetworkTestnet NetworkType = "testnet"
)

// ServerConfig is the top-level server configuration, loaded from a TOML
// file or from environment variables.
type ServerConfig struct {
	Settings Settings        `mapstructure:"settings"`
	Accounts []AccountConfig `mapstructure:"accounts"`
	Options  Options         `mapstructure:"options"`
}

// Settings holds process-wide options.
type Settings struct {
	ApiVersion          []string    `mapstructure:"api_version"`
	NetworkType         NetworkType `mapstructure:"network_type"`
	SqliteDbPath        string      `mapstructure:"sqlite_db_path"`
	LogLevel            string      `mapstructure:"log_level"`
	Host                string      `mapstructure:"host"`
	Port                uint16      `mapstructure:"port"`
	CoinMarketCapApiKey string      `mapstructure:"coin_market_cap_api_key"`
}

// AccountConfig describes one relayer signer account. Available is a
// pointer so that an omitted value defaults to true.
type AccountConfig struct {
	ChainID               uint64   `mapstructure:"chain_id"`
	PrivateKey            string   `mapstructure:"private_key"`
	Available             *bool    `mapstructure:"available"`
	SupportedErc20Tokens  []string `mapstructure:"supported_erc20_tokens"`
	BalanceAlarmThreshold float64  `mapstructure:"balance_alarm_threshold"`
	BalanceCheckInterval  uint64   `mapstructure:"balance_check_interval_ms"`
}

// IsAvailable reports whether the account accepts work; accounts are
// available unless explicitly configured otherwise.
func (a *AccountConfig) IsAvailable() bool {
	return a.Available == nil || *a.Available
}

// Options points at the external relayer/mystiko configuration sources.
type Options struct {
	MystikoConfigPath          string `mapstructure:"mystiko_config_path"`
	RelayerConfigPath          string `mapstructure:"relayer_config_path"`
	MystikoRemoteConfigBaseUrl string `mapstructure:"mystiko_remote_config_base_url"`
	RelayerRemoteConfigBaseUrl string `mapstructure:"relayer_remote_config_base_url"`
	MystikoConfigIsStaging     bool   `mapstructure:"mystiko_config_is_staging"`
	RelayerConfigIsStaging     bool   `mapstructure:"relayer_config_is_staging"`
}

// LoadServerConfig reads the server configuration. When path is non-empty it
// must point at a TOML file; RELAYER_CONFIG_* environment variables override
// file values. When path is empty, a .env file is honored (if present) and
// the whole configuration is read from MYSTIKO_RELAYER_* variables.
func LoadServerConfig(path string) (*ServerConfig, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetEnvPrefix(FileEnvPrefix)
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	} else {
		// Mirror of the dotenv behavior: a local .env is merged into the
		// process environment before reading MYSTIKO_RELAYER_* variables.
		_ = godotenv.Load()
		v.SetEnvPrefix(EnvPrefix)
	}

	cfg := &ServerConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal server config: %w", err)
	}
	normalize(cfg)
	if err := cfg.validateLocal(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("settings.api_version", []string{"v2"})
	v.SetDefault("settings.network_type", string(NetworkMainnet))
	v.SetDefault("settings.log_level", DefaultLogLevel)
	v.SetDefault("settings.host", DefaultHost)
	v.SetDefault("settings.port", DefaultPort)
}

func normalize(cfg *ServerConfig) {
	for i := range cfg.Accounts {
		acc := &cfg.Accounts[i]
		if acc.BalanceCheckInterval == 0 {
			acc.BalanceCheckInterval = MinBalanceCheckIntervalMs
		}
	}
}

// validateLocal checks everything that does not need the relayer config.
func (c *ServerConfig) validateLocal() error {
	switch c.Settings.NetworkType {
	case NetworkMainnet, NetworkTestnet:
	default:
		return fmt.Errorf("invalid network_type %q", c.Settings.NetworkType)
	}
	if p := c.Settings.SqliteDbPath; p != "" && !strings.Contains(p, ".sqlite") {
		return fmt.Errorf("sqlite_db_path %q must contain .sqlite", p)
	}
	for i, acc := range c.Accounts {
		if acc.ChainID == 0 {
			return fmt.Errorf("accounts[%d]: chain_id must be greater than zero", i)
		}
		if acc.PrivateKey == "" {
			return fmt.Errorf("accounts[%d]: private_key must not be empty", i)
		}
		if acc.BalanceAlarmThreshold != 0 && acc.BalanceAlarmThreshold < MinBalanceAlarmThreshold {
			return fmt.Errorf("accounts[%d]: balance_alarm_threshold must be >= %v",
				i, MinBalanceAlarmThreshold)
		}
		if acc.BalanceCheckInterval < MinBalanceCheckIntervalMs {
			return fmt.Errorf("accounts[%d]: balance_check_interval_ms must be >= %d",
				i, MinBalanceCheckIntervalMs)
		}
	}
	return nil
}

// Validate cross-checks the accounts against the relayer configuration:
// every account chain must exist and every supported ERC-20 symbol must be
// served by a contract on that chain. Failures here are fatal at startup.
func (c *ServerConfig) Validate(relayerCfg *RelayerConfig) error {
	for _, account := range c.Accounts {
		chainCfg := relayerCfg.FindChainConfig(account.ChainID)
		if chainCfg == nil {
			return fmt.Errorf("chain id %d not found in relayer config", account.ChainID)
		}
		for _, token := range account.SupportedErc20Tokens {
			if chainCfg.FindContract(token) == nil {
				return fmt.Errorf("chain_id %d token %s not found in relayer chain config",
					account.ChainID, token)
			}
		}
	}
	return nil
}
