package config

import (
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/mystikonetwork/relayer/types"
)

const testConfigTOML = `
[settings]
api_version = ["v1", "v2"]
network_type = "testnet"
sqlite_db_path = "relayer.sqlite"
log_level = "debug"
host = "127.0.0.1"
port = 8191
coin_market_cap_api_key = "cmc-key"

[[accounts]]
chain_id = 5
private_key = "0101010101010101010101010101010101010101010101010101010101010101"
supported_erc20_tokens = ["MTT", "mUSD"]
balance_alarm_threshold = 0.5
balance_check_interval_ms = 30000

[[accounts]]
chain_id = 97
private_key = "0202020202020202020202020202020202020202020202020202020202020202"
available = false

[options]
mystiko_config_path = "mystiko.json"
relayer_config_path = "relayer.json"
`

func writeConfigFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.toml")
	qt.New(t).Assert(os.WriteFile(path, []byte(content), 0o600), qt.IsNil)
	return path
}

func TestLoadServerConfig(t *testing.T) {
	c := qt.New(t)
	cfg, err := LoadServerConfig(writeConfigFile(t, testConfigTOML))
	c.Assert(err, qt.IsNil)

	c.Assert(cfg.Settings.ApiVersion, qt.DeepEquals, []string{"v1", "v2"})
	c.Assert(cfg.Settings.NetworkType, qt.Equals, NetworkTestnet)
	c.Assert(cfg.Settings.SqliteDbPath, qt.Equals, "relayer.sqlite")
	c.Assert(cfg.Settings.Port, qt.Equals, uint16(8191))
	c.Assert(cfg.Settings.CoinMarketCapApiKey, qt.Equals, "cmc-key")
	c.Assert(cfg.Options.MystikoConfigPath, qt.Equals, "mystiko.json")

	c.Assert(cfg.Accounts, qt.HasLen, 2)
	c.Assert(cfg.Accounts[0].SupportedErc20Tokens, qt.DeepEquals, []string{"MTT", "mUSD"})
	c.Assert(cfg.Accounts[0].IsAvailable(), qt.IsTrue)
	c.Assert(cfg.Accounts[0].BalanceCheckInterval, qt.Equals, uint64(30000))
	// omitted interval falls back to the minimum
	c.Assert(cfg.Accounts[1].BalanceCheckInterval, qt.Equals, uint64(MinBalanceCheckIntervalMs))
	c.Assert(cfg.Accounts[1].IsAvailable(), qt.IsFalse)
}

func TestLoadServerConfigEnvOverride(t *testing.T) {
	c := qt.New(t)
	t.Setenv("RELAYER_CONFIG_SETTINGS_PORT", "9000")
	cfg, err := LoadServerConfig(writeConfigFile(t, testConfigTOML))
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.Settings.Port, qt.Equals, uint16(9000))
}

func TestLoadServerConfigInvalid(t *testing.T) {
	c := qt.New(t)

	_, err := LoadServerConfig(writeConfigFile(t, `
[settings]
network_type = "devnet"
`))
	c.Assert(err, qt.ErrorMatches, `invalid network_type.*`)

	_, err = LoadServerConfig(writeConfigFile(t, `
[settings]
sqlite_db_path = "relayer.db"
`))
	c.Assert(err, qt.ErrorMatches, `sqlite_db_path.*must contain.*`)

	_, err = LoadServerConfig(writeConfigFile(t, `
[[accounts]]
chain_id = 0
private_key = "01"
`))
	c.Assert(err, qt.ErrorMatches, `accounts\[0\]: chain_id.*`)

	_, err = LoadServerConfig(writeConfigFile(t, `
[[accounts]]
chain_id = 5
private_key = "01"
balance_check_interval_ms = 1000
`))
	c.Assert(err, qt.ErrorMatches, `accounts\[0\]: balance_check_interval_ms.*`)
}

func testRelayerChains() *RelayerConfig {
	return &RelayerConfig{
		Chains: []RelayerChainConfig{{
			ChainID:     5,
			AssetSymbol: "ETH",
			Contracts: []ContractConfig{
				{AssetSymbol: "ETH", AssetType: types.AssetTypeMain},
				{AssetSymbol: "MTT", AssetType: types.AssetTypeErc20},
			},
			TransactionInfo: TransactionInfo{
				MainGasCost:  map[types.CircuitType]uint64{types.CircuitTypeTransaction1x0: 500000},
				Erc20GasCost: map[types.CircuitType]uint64{types.CircuitTypeTransaction1x0: 600000},
			},
		}},
	}
}

func TestValidateAgainstRelayerConfig(t *testing.T) {
	c := qt.New(t)
	relayerCfg := testRelayerChains()

	cfg := &ServerConfig{Accounts: []AccountConfig{{
		ChainID:              5,
		PrivateKey:           "01",
		SupportedErc20Tokens: []string{"mtt"},
	}}}
	c.Assert(cfg.Validate(relayerCfg), qt.IsNil)

	cfg.Accounts[0].ChainID = 97
	c.Assert(cfg.Validate(relayerCfg), qt.ErrorMatches, `chain id 97 not found.*`)

	cfg.Accounts[0].ChainID = 5
	cfg.Accounts[0].SupportedErc20Tokens = []string{"dai"}
	c.Assert(cfg.Validate(relayerCfg), qt.ErrorMatches, `.*token dai not found.*`)
}

func TestFindGasCost(t *testing.T) {
	c := qt.New(t)
	chainCfg := &testRelayerChains().Chains[0]

	cost, err := chainCfg.FindGasCost(types.AssetTypeMain, types.CircuitTypeTransaction1x0)
	c.Assert(err, qt.IsNil)
	c.Assert(cost, qt.Equals, uint64(500000))

	cost, err = chainCfg.FindGasCost(types.AssetTypeErc20, types.CircuitTypeTransaction1x0)
	c.Assert(err, qt.IsNil)
	c.Assert(cost, qt.Equals, uint64(600000))

	_, err = chainCfg.FindGasCost(types.AssetTypeErc20, types.CircuitTypeTransaction2x2)
	c.Assert(err, qt.ErrorMatches, `no gas cost for circuit type.*`)

	c.Assert(chainCfg.FindContract("mtt"), qt.Not(qt.IsNil))
	c.Assert(chainCfg.FindContract("dai"), qt.IsNil)
}

func TestFindPoolContractByAddress(t *testing.T) {
	c := qt.New(t)
	cfg := &MystikoConfig{Chains: []ChainConfig{{
		ChainID:         5,
		TransactionType: types.TransactionTypeEip1559,
		PoolContracts: []PoolContractConfig{{
			Address:       "0xAbCd000000000000000000000000000000000001",
			AssetSymbol:   "MTT",
			AssetDecimals: 16,
		}},
	}}}

	// lookup is case-insensitive
	contract := cfg.FindPoolContractByAddress(5, "0xabcd000000000000000000000000000000000001")
	c.Assert(contract, qt.Not(qt.IsNil))
	c.Assert(contract.AssetDecimals, qt.Equals, uint32(16))

	c.Assert(cfg.FindPoolContractByAddress(5, "0x01"), qt.IsNil)
	c.Assert(cfg.FindPoolContractByAddress(97, "0x01"), qt.IsNil)
	c.Assert(cfg.FindChain(5).IsEip1559(), qt.IsTrue)

	c.Assert(remoteConfigURL("https://example.com/config/", true, NetworkTestnet),
		qt.Equals, "https://example.com/config/staging/testnet/latest.json")
	c.Assert(remoteConfigURL("https://example.com/config", false, NetworkMainnet),
		qt.Equals, "https://example.com/config/release/mainnet/latest.json")
}
