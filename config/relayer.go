package config

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mystikonetwork/relayer/types"
)

const (
	// DefaultRelayerRemoteBaseUrl serves the published relayer configs.
	DefaultRelayerRemoteBaseUrl = "https://static.mystiko.network/relayer_config"

	remoteFetchTimeout = 30 * time.Second
)

// RelayerConfig is the external fee/contract configuration consumed from the
// relayer-config service (or a local JSON file).
type RelayerConfig struct {
	Version string               `json:"version"`
	Chains  []RelayerChainConfig `json:"chains"`
}

// RelayerChainConfig describes one chain's fee contracts and gas costs.
type RelayerChainConfig struct {
	Name                   string           `json:"name"`
	ChainID                uint64           `json:"chainId"`
	AssetSymbol            string           `json:"assetSymbol"`
	AssetDecimals          uint32           `json:"assetDecimals"`
	RelayerContractAddress string           `json:"relayerContractAddress"`
	Contracts              []ContractConfig `json:"contracts"`
	TransactionInfo        TransactionInfo  `json:"transactionInfo"`
}

// ContractConfig describes one fee contract entry.
type ContractConfig struct {
	AssetSymbol               string          `json:"assetSymbol"`
	AssetDecimals             uint32          `json:"assetDecimals"`
	AssetType                 types.AssetType `json:"assetType"`
	RelayerFeeOfTenThousandth uint32          `json:"relayerFeeOfTenThousandth"`
}

// TransactionInfo carries the gas cost tables by circuit type, one table for
// native-asset pools and one for ERC-20 pools.
type TransactionInfo struct {
	MainGasCost  map[types.CircuitType]uint64 `json:"mainGasCost"`
	Erc20GasCost map[types.CircuitType]uint64 `json:"erc20GasCost"`
}

// FindChainConfig returns the chain entry for the given id, or nil.
func (c *RelayerConfig) FindChainConfig(chainID uint64) *RelayerChainConfig {
	for i := range c.Chains {
		if c.Chains[i].ChainID == chainID {
			return &c.Chains[i]
		}
	}
	return nil
}

// FindContract returns the contract entry for the asset symbol
// (case-insensitive), or nil.
func (c *RelayerChainConfig) FindContract(assetSymbol string) *ContractConfig {
	for i := range c.Contracts {
		if strings.EqualFold(c.Contracts[i].AssetSymbol, assetSymbol) {
			return &c.Contracts[i]
		}
	}
	return nil
}

// FindGasCost returns the configured gas cost for the asset type and circuit
// type combination.
func (c *RelayerChainConfig) FindGasCost(assetType types.AssetType, circuitType types.CircuitType) (uint64, error) {
	var table map[types.CircuitType]uint64
	switch assetType {
	case types.AssetTypeMain:
		table = c.TransactionInfo.MainGasCost
	case types.AssetTypeErc20:
		table = c.TransactionInfo.Erc20GasCost
	default:
		return 0, fmt.Errorf("unknown asset type %q", assetType)
	}
	cost, ok := table[circuitType]
	if !ok {
		return 0, fmt.Errorf("no gas cost for circuit type %q on chain %d", circuitType, c.ChainID)
	}
	return cost, nil
}

// LoadRelayerConfig loads the relayer config from a local JSON file when
// path is non-empty, otherwise from the remote config service.
func LoadRelayerConfig(ctx context.Context, opts *Options, network NetworkType) (*RelayerConfig, error) {
	if opts.RelayerConfigPath != "" {
		cfg := &RelayerConfig{}
		if err := readJSONFile(opts.RelayerConfigPath, cfg); err != nil {
			return nil, fmt.Errorf("load relayer config from %s: %w", opts.RelayerConfigPath, err)
		}
		return cfg, nil
	}
	baseURL := opts.RelayerRemoteConfigBaseUrl
	if baseURL == "" {
		baseURL = DefaultRelayerRemoteBaseUrl
	}
	url := remoteConfigURL(baseURL, opts.RelayerConfigIsStaging, network)
	cfg := &RelayerConfig{}
	if err := fetchJSON(ctx, url, cfg); err != nil {
		return nil, fmt.Errorf("fetch relayer config from %s: %w", url, err)
	}
	return cfg, nil
}

// remoteConfigURL builds <base>/<release|staging>/<mainnet|testnet>/latest.json.
func remoteConfigURL(baseURL string, staging bool, network NetworkType) string {
	env := "release"
	if staging {
		env = "staging"
	}
	net := "mainnet"
	if network == NetworkTestnet {
		net = "testnet"
	}
	return fmt.Sprintf("%s/%s/%s/latest.json", strings.TrimRight(baseURL, "/"), env, net)
}

func readJSONFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func fetchJSON(ctx context.Context, url string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, remoteFetchTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
