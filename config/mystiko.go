package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/mystikonetwork/relayer/types"
)

// DefaultMystikoRemoteBaseUrl serves the published mystiko core configs.
const DefaultMystikoRemoteBaseUrl = "https://static.mystiko.network/config"

// MystikoConfig is the subset of the mystiko core configuration the relayer
// needs: chain provider endpoints, fee market type and pool contracts.
type MystikoConfig struct {
	Version string        `json:"version"`
	Chains  []ChainConfig `json:"chains"`
}

// ChainConfig describes one supported chain.
type ChainConfig struct {
	ChainID         uint64                `json:"chainId"`
	Name            string                `json:"name"`
	AssetSymbol     string                `json:"assetSymbol"`
	AssetDecimals   uint32                `json:"assetDecimals"`
	TransactionType types.TransactionType `json:"transactionType"`
	Providers       []ProviderConfig      `json:"providers"`
	SignerEndpoint  string                `json:"signerEndpoint"`
	PoolContracts   []PoolContractConfig  `json:"poolContracts"`
}

// ProviderConfig is one JSON-RPC endpoint for a chain.
type ProviderConfig struct {
	Url string `json:"url"`
}

// PoolContractConfig describes a shielded-pool contract instance.
type PoolContractConfig struct {
	Address       string           `json:"address"`
	AssetSymbol   string           `json:"assetSymbol"`
	AssetDecimals uint32           `json:"assetDecimals"`
	BridgeType    types.BridgeType `json:"bridgeType"`
}

// IsEip1559 reports whether transactions on this chain use the EIP-1559 fee
// market.
func (c *ChainConfig) IsEip1559() bool {
	return c.TransactionType == types.TransactionTypeEip1559
}

// FindChain returns the chain entry for the given id, or nil.
func (c *MystikoConfig) FindChain(chainID uint64) *ChainConfig {
	for i := range c.Chains {
		if c.Chains[i].ChainID == chainID {
			return &c.Chains[i]
		}
	}
	return nil
}

// FindPoolContractByAddress returns the pool contract deployed at the given
// address on the given chain, or nil.
func (c *MystikoConfig) FindPoolContractByAddress(chainID uint64, address string) *PoolContractConfig {
	chain := c.FindChain(chainID)
	if chain == nil {
		return nil
	}
	for i := range chain.PoolContracts {
		if strings.EqualFold(chain.PoolContracts[i].Address, address) {
			return &chain.PoolContracts[i]
		}
	}
	return nil
}

// LoadMystikoConfig loads the mystiko config from a local JSON file when
// path is non-empty, otherwise from the remote config service.
func LoadMystikoConfig(ctx context.Context, opts *Options, network NetworkType) (*MystikoConfig, error) {
	if opts.MystikoConfigPath != "" {
		cfg := &MystikoConfig{}
		if err := readJSONFile(opts.MystikoConfigPath, cfg); err != nil {
			return nil, fmt.Errorf("load mystiko config from %s: %w", opts.MystikoConfigPath, err)
		}
		return cfg, nil
	}
	baseURL := opts.MystikoRemoteConfigBaseUrl
	if baseURL == "" {
		baseURL = DefaultMystikoRemoteBaseUrl
	}
	url := remoteConfigURL(baseURL, opts.MystikoConfigIsStaging, network)
	cfg := &MystikoConfig{}
	if err := fetchJSON(ctx, url, cfg); err != nil {
		return nil, fmt.Errorf("fetch mystiko config from %s: %w", url, err)
	}
	return cfg, nil
}
