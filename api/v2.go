package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mystikonetwork/relayer/log"
	"github.com/mystikonetwork/relayer/types"
)

// info reports whether the relayer serves a chain and, when options narrow
// the request to one asset and circuit, quotes the minimum gas fee.
func (a *API) info(w http.ResponseWriter, r *http.Request) {
	request := &RegisterInfoRequest{}
	if err := decodeJSON(r, request); err != nil {
		ErrMalformedBody.WithErr(err).Write(w)
		return
	}
	response, apiErr := a.registerInfo(r, request.ChainID, request.Options)
	if apiErr != nil {
		apiErr.Write(w)
		return
	}
	httpWriteJSON(w, response)
}

// registerInfo is the support/availability report shared by the v2 info and
// v1 status endpoints.
func (a *API) registerInfo(r *http.Request, chainID uint64, options *RegisterOptions) (*RegisterInfoResponse, *Error) {
	chainCfg := a.relayerCfg.FindChainConfig(chainID)
	if chainCfg == nil {
		return &RegisterInfoResponse{ChainID: chainID}, nil
	}
	accounts, err := a.store.FindAccountsByChainID(r.Context(), chainID)
	if err != nil {
		log.Errorw(err, "failed to query accounts")
		e := ErrDatabase.WithErr(err)
		return nil, &e
	}
	if len(accounts) == 0 {
		log.Warnw("no accounts found for chain", "chainId", chainID)
		e := ErrAccountNotFound.Withf("chain id %d", chainID)
		return nil, &e
	}
	erc20Symbols := accountErc20Symbols(accounts)

	if options != nil {
		symbol := strings.ToLower(options.AssetSymbol)
		if !strings.EqualFold(chainCfg.AssetSymbol, symbol) && !erc20Symbols[symbol] {
			return &RegisterInfoResponse{ChainID: chainID}, nil
		}
	}
	if !anyAvailable(accounts) {
		return &RegisterInfoResponse{ChainID: chainID, Support: true}, nil
	}

	var contractsCfg []ContractInfo
	candidates := chainCfg.Contracts
	if options != nil {
		candidates = nil
		if contract := chainCfg.FindContract(options.AssetSymbol); contract != nil {
			candidates = append(candidates, *contract)
		}
	}
	for _, contract := range candidates {
		symbol := strings.ToLower(contract.AssetSymbol)
		if !erc20Symbols[symbol] && !strings.EqualFold(chainCfg.AssetSymbol, symbol) {
			continue
		}
		entry := ContractInfo{
			AssetSymbol:               contract.AssetSymbol,
			RelayerFeeOfTenThousandth: contract.RelayerFeeOfTenThousandth,
		}
		if options != nil {
			gasPrice, err := a.gasPrice(r.Context(), chainID)
			if err != nil {
				log.Errorw(err, "failed to get gas price")
				e := ErrGetGasPriceFailed.Withf("chain id %d", chainID)
				return nil, &e
			}
			fee, err := a.minimumGasFee(r, chainCfg, gasPrice, options)
			if err != nil {
				log.Errorw(err, "failed to get minimum gas fee")
				e := ErrGetMinimumGasFeeFailed.WithErr(err)
				return nil, &e
			}
			feeStr := fee.String()
			entry.MinimumGasFee = &feeStr
		}
		contractsCfg = append(contractsCfg, entry)
	}
	return &RegisterInfoResponse{
		ChainID:                chainID,
		Support:                true,
		Available:              true,
		RelayerContractAddress: chainCfg.RelayerContractAddress,
		Contracts:              contractsCfg,
	}, nil
}

// transact accepts a canonical transact request and returns the job uuid.
func (a *API) transact(w http.ResponseWriter, r *http.Request) {
	request := &types.TransactRequestData{}
	if err := decodeJSON(r, request); err != nil {
		ErrMalformedBody.WithErr(err).Write(w)
		return
	}
	if err := request.Validate(); err != nil {
		log.Warnw("transact request validation failed", "error", err.Error())
		ErrValidate.WithErr(err).Write(w)
		return
	}
	job, apiErr := a.dispatch(r, request)
	if apiErr != nil {
		apiErr.Write(w)
		return
	}
	httpWriteJSON(w, RelayTransactResponse{UUID: job.ID})
}

// dispatch runs the shared acceptance path: signature dedup, chain lookup,
// asset-type resolution and producer selection.
func (a *API) dispatch(r *http.Request, request *types.TransactRequestData) (*types.TransactionJob, *Error) {
	repeated, err := a.store.IsRepeatedTransaction(r.Context(), request.Signature)
	if err != nil {
		e := ErrDatabase.WithErr(err)
		return nil, &e
	}
	if repeated {
		e := ErrRepeatedTransaction
		return nil, &e
	}
	chainCfg := a.relayerCfg.FindChainConfig(request.ChainID)
	if chainCfg == nil {
		e := ErrChainIdNotFound.Withf("chain id %d", request.ChainID)
		return nil, &e
	}
	assetType := types.AssetTypeErc20
	if strings.EqualFold(chainCfg.AssetSymbol, request.AssetSymbol) {
		assetType = types.AssetTypeMain
	}
	producer := a.registry.SelectProducer(request.ChainID, request.AssetSymbol, assetType)
	if producer == nil {
		e := ErrUnsupportedTransaction
		return nil, &e
	}
	job, err := producer.Send(r.Context(), request)
	if err != nil {
		log.Errorw(err, "failed to send transact request to queue")
		e := ErrTransactionChannel.WithErr(err)
		return nil, &e
	}
	return job, nil
}

// transactionStatus reports the lifecycle state of one job.
func (a *API) transactionStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := a.store.FindTransaction(r.Context(), id)
	if err != nil {
		log.Errorw(err, "failed to find transaction")
		ErrDatabase.WithErr(err).Write(w)
		return
	}
	if job == nil {
		ErrTransactionNotFound.Withf("id %s", id).Write(w)
		return
	}
	httpWriteJSON(w, RelayTransactStatusResponse{
		UUID:            job.ID,
		ChainID:         job.ChainID,
		SpendType:       job.SpendType,
		Status:          job.Status,
		TransactionHash: job.TransactionHash,
		ErrorMsg:        job.ErrorMessage,
	})
}
