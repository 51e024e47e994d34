package api

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"github.com/mystikonetwork/relayer/config"
	"github.com/mystikonetwork/relayer/log"
	"github.com/mystikonetwork/relayer/types"
)

// httpWriteJSON writes a success envelope with the given payload.
func httpWriteJSON(w http.ResponseWriter, data any) {
	body, err := json.Marshal(Response{Code: 0, Data: data})
	if err != nil {
		ErrUnknown.WithErr(err).Write(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Warnw("failed to write http response", "error", err.Error())
	}
}

// decodeJSON parses the request body into out.
func decodeJSON(r *http.Request, out any) error {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

// minimumGasFee quotes the smallest fee a client must attach for the given
// asset and circuit: the configured gas cost at the current gas price,
// converted into the asset's own units for ERC-20 pools.
func (a *API) minimumGasFee(r *http.Request, chainCfg *config.RelayerChainConfig,
	gasPrice *big.Int, options *RegisterOptions) (*big.Int, error) {
	contractCfg := chainCfg.FindContract(options.AssetSymbol)
	if contractCfg == nil {
		return nil, fmt.Errorf("asset symbol %s contract config not found in chain id %d config",
			options.AssetSymbol, chainCfg.ChainID)
	}
	gasCost, err := chainCfg.FindGasCost(contractCfg.AssetType, options.CircuitType)
	if err != nil {
		return nil, err
	}
	fee := new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(gasCost))
	if contractCfg.AssetType == types.AssetTypeMain {
		return fee, nil
	}
	return a.oracle.Swap(r.Context(), chainCfg.AssetSymbol, chainCfg.AssetDecimals,
		fee, contractCfg.AssetSymbol, contractCfg.AssetDecimals)
}

// accountErc20Symbols collects the lower-cased ERC-20 symbols served by the
// accounts, deduplicated.
func accountErc20Symbols(accounts []types.RelayerAccount) map[string]bool {
	symbols := make(map[string]bool)
	for _, account := range accounts {
		for _, symbol := range account.SupportedErc20Tokens {
			symbols[strings.ToLower(symbol)] = true
		}
	}
	return symbols
}

// anyAvailable reports whether at least one account accepts work.
func anyAvailable(accounts []types.RelayerAccount) bool {
	for _, account := range accounts {
		if account.Available {
			return true
		}
	}
	return false
}
