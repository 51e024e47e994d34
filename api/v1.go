package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mystikonetwork/relayer/log"
	"github.com/mystikonetwork/relayer/types"
)

// transactV1PollInterval is how often the blocking v1 transact endpoint
// re-reads the job while waiting for a transaction hash.
const transactV1PollInterval = 2 * time.Second

// chainStatusV1 is the legacy shape of the v2 info endpoint.
func (a *API) chainStatusV1(w http.ResponseWriter, r *http.Request) {
	request := &ChainStatusRequest{}
	if err := decodeJSON(r, request); err != nil {
		ErrMalformedBody.WithErr(err).Write(w)
		return
	}
	if a.mystikoCfg.FindChain(request.ChainID) == nil {
		httpWriteJSON(w, ChainStatusResponse{ChainID: request.ChainID})
		return
	}
	info, apiErr := a.registerInfo(r, request.ChainID, request.Options)
	if apiErr != nil {
		apiErr.Write(w)
		return
	}
	response := ChainStatusResponse{
		Support:   info.Support,
		Available: info.Available,
		ChainID:   info.ChainID,
		Contracts: info.Contracts,
	}
	if info.RelayerContractAddress != "" {
		response.RelayerContractAddress = &info.RelayerContractAddress
	}
	httpWriteJSON(w, response)
}

// jobStatusV1 is the legacy shape of the transaction status endpoint.
func (a *API) jobStatusV1(w http.ResponseWriter, r *http.Request) {
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
	response := JobStatusResponse{
		ID:      job.ID,
		JobType: job.SpendType,
		Status:  job.Status,
		Error:   job.ErrorMessage,
	}
	if job.TransactionHash != "" {
		response.Response = &ResponseQueueData{
			Hash:    job.TransactionHash,
			ChainID: job.ChainID,
		}
	}
	httpWriteJSON(w, response)
}

// transactV1 accepts the legacy transact body and blocks until the submitted
// transaction hash is known (or the job fails).
func (a *API) transactV1(w http.ResponseWriter, r *http.Request) {
	request := &TransactRequestV1{}
	if err := decodeJSON(r, request); err != nil {
		ErrMalformedBody.WithErr(err).Write(w)
		return
	}
	poolContract := a.mystikoCfg.FindPoolContractByAddress(request.ChainID, request.PoolAddress)
	if poolContract == nil {
		ErrUnknown.Withf("pool contract %s not found on chain %d",
			request.PoolAddress, request.ChainID).Write(w)
		return
	}
	data, err := parseTransactRequestV1(request, poolContract.AssetDecimals)
	if err != nil {
		log.Warnw("parse v1 transact request failed", "error", err.Error())
		ErrUnknown.WithErr(err).Write(w)
		return
	}
	if err := data.Validate(); err != nil {
		log.Warnw("transact request validation failed", "error", err.Error())
		ErrValidate.WithErr(err).Write(w)
		return
	}
	job, apiErr := a.dispatch(r, data)
	if apiErr != nil {
		apiErr.Write(w)
		return
	}

	ticker := time.NewTicker(transactV1PollInterval)
	defer ticker.Stop()
	for {
		current, err := a.store.FindTransaction(r.Context(), job.ID)
		if err != nil {
			log.Errorw(err, "failed to find transaction while waiting for hash")
			ErrTransactionNotFound.Withf("id %s", job.ID).Write(w)
			return
		}
		if current != nil {
			if current.Status == types.StatusFailed {
				msg := current.ErrorMessage
				if msg == "" {
					msg = "unknown"
				}
				ErrTransactionFailed.Withf("%s", msg).Write(w)
				return
			}
			if current.TransactionHash != "" {
				httpWriteJSON(w, TransactResponse{
					ID:      current.ID,
					Hash:    current.TransactionHash,
					ChainID: current.ChainID,
				})
				return
			}
		}
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

// parseTransactRequestV1 converts the legacy body into the canonical request
// shape, filling the asset decimals from the pool contract configuration.
func parseTransactRequestV1(request *TransactRequestV1, assetDecimals uint32) (*types.TransactRequestData, error) {
	sigPk, err := types.HexStringToHexBytes(request.SigPk)
	if err != nil {
		return nil, fmt.Errorf("decode sig_pk: %w", err)
	}
	notes := make([]types.HexBytes, len(request.OutEncryptedNotes))
	for i, note := range request.OutEncryptedNotes {
		decoded, err := types.HexStringToHexBytes(note)
		if err != nil {
			return nil, fmt.Errorf("decode out_encrypted_notes[%d]: %w", i, err)
		}
		notes[i] = decoded
	}
	auditingKey, err := new(types.BigInt).SetString(request.RandomAuditingPublicKey)
	if err != nil {
		return nil, fmt.Errorf("parse random_auditing_public_key: %w", err)
	}
	auditorNotes := make([]*types.BigInt, len(request.EncryptedAuditorNotes))
	for i, note := range request.EncryptedAuditorNotes {
		parsed, err := new(types.BigInt).SetString(note)
		if err != nil {
			return nil, fmt.Errorf("parse encrypted_auditor_notes[%d]: %w", i, err)
		}
		auditorNotes[i] = parsed
	}
	return &types.TransactRequestData{
		ContractParam: types.TransactParams{
			Proof:                   request.Proof,
			RootHash:                request.RootHash,
			SerialNumbers:           request.SerialNumbers,
			SigHashes:               request.SigHashes,
			SigPk:                   sigPk,
			PublicAmount:            request.PublicAmount,
			RelayerFeeAmount:        request.RelayerFeeAmount,
			OutCommitments:          request.OutCommitments,
			OutRollupFees:           request.OutRollupFees,
			PublicRecipient:         request.PublicRecipient,
			RelayerAddress:          request.RelayerAddress,
			OutEncryptedNotes:       notes,
			RandomAuditingPublicKey: auditingKey,
			EncryptedAuditorNotes:   auditorNotes,
		},
		SpendType:     request.TransactionType,
		BridgeType:    request.BridgeType,
		ChainID:       request.ChainID,
		AssetSymbol:   request.AssetSymbol,
		AssetDecimals: assetDecimals,
		PoolAddress:   request.PoolAddress,
		CircuitType:   request.CircuitType,
		Signature:     request.Signature,
	}, nil
}
