package api

import (
	"github.com/mystikonetwork/relayer/types"
)

// Response is the envelope every endpoint answers with: code 0 carries data,
// any other code carries a message.
type Response struct {
	Code    int    `json:"code"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// HandshakeResponse advertises the server version and the enabled API
// versions.
type HandshakeResponse struct {
	PackageVersion string   `json:"package_version"`
	ApiVersion     []string `json:"api_version"`
}

// RegisterOptions narrows an info/status request to one asset and circuit so
// the response can include a fee quote.
type RegisterOptions struct {
	AssetSymbol string            `json:"asset_symbol"`
	CircuitType types.CircuitType `json:"circuit_type"`
}

// RegisterInfoRequest is the body of POST /api/v2/info.
type RegisterInfoRequest struct {
	ChainID uint64           `json:"chain_id"`
	Options *RegisterOptions `json:"options,omitempty"`
}

// ContractInfo is one fee contract entry of an info/status response.
type ContractInfo struct {
	AssetSymbol               string  `json:"asset_symbol"`
	RelayerFeeOfTenThousandth uint32  `json:"relayer_fee_of_ten_thousandth"`
	MinimumGasFee             *string `json:"minimum_gas_fee,omitempty"`
}

// RegisterInfoResponse is the body of a v2 info response.
type RegisterInfoResponse struct {
	ChainID                uint64         `json:"chain_id"`
	Support                bool           `json:"support"`
	Available              bool           `json:"available"`
	RelayerContractAddress string         `json:"relayer_contract_address,omitempty"`
	Contracts              []ContractInfo `json:"contracts,omitempty"`
}

// RelayTransactResponse acknowledges an accepted v2 transact request.
type RelayTransactResponse struct {
	UUID string `json:"uuid"`
}

// RelayTransactStatusResponse reports the lifecycle state of a job.
type RelayTransactStatusResponse struct {
	UUID            string               `json:"uuid"`
	ChainID         uint64               `json:"chain_id"`
	SpendType       types.SpendType      `json:"spend_type"`
	Status          types.TransactStatus `json:"status"`
	TransactionHash string               `json:"transaction_hash,omitempty"`
	ErrorMsg        string               `json:"error_msg,omitempty"`
}

// ChainStatusRequest is the body of the v1 POST /status endpoint.
type ChainStatusRequest struct {
	ChainID uint64           `json:"chain_id"`
	Options *RegisterOptions `json:"options,omitempty"`
}

// ChainStatusResponse is the v1 shape of the chain support report.
type ChainStatusResponse struct {
	Support                bool           `json:"support"`
	Available              bool           `json:"available"`
	ChainID                uint64         `json:"chain_id"`
	RelayerContractAddress *string        `json:"relayer_contract_address,omitempty"`
	Contracts              []ContractInfo `json:"contracts,omitempty"`
}

// ResponseQueueData carries the submitted hash of a v1 job.
type ResponseQueueData struct {
	Hash    string `json:"hash"`
	ChainID uint64 `json:"chain_id"`
}

// JobStatusResponse is the v1 shape of a job status report.
type JobStatusResponse struct {
	ID       string               `json:"id"`
	JobType  types.SpendType      `json:"job_type"`
	Status   types.TransactStatus `json:"status"`
	Response *ResponseQueueData   `json:"response,omitempty"`
	Error    string               `json:"error,omitempty"`
}

// TransactResponse is the v1 blocking transact result.
type TransactResponse struct {
	ID      string `json:"id"`
	Hash    string `json:"hash"`
	ChainID uint64 `json:"chain_id"`
}

// TransactRequestV1 is the legacy transact body. Numeric fields arrive as
// decimal strings and byte fields as 0x-hex strings; parseTransactRequestV1
// converts the body into the canonical request shape.
type TransactRequestV1 struct {
	Proof                   types.Proof       `json:"proof"`
	RootHash                *types.BigInt     `json:"root_hash"`
	SerialNumbers           []*types.BigInt   `json:"serial_numbers"`
	SigHashes               []*types.BigInt   `json:"sig_hashes"`
	SigPk                   string            `json:"sig_pk"`
	PublicAmount            *types.BigInt     `json:"public_amount"`
	RelayerFeeAmount        *types.BigInt     `json:"relayer_fee_amount"`
	OutCommitments          []*types.BigInt   `json:"out_commitments"`
	OutRollupFees           []*types.BigInt   `json:"out_rollup_fees"`
	PublicRecipient         string            `json:"public_recipient"`
	RelayerAddress          string            `json:"relayer_address"`
	OutEncryptedNotes       []string          `json:"out_encrypted_notes"`
	RandomAuditingPublicKey string            `json:"random_auditing_public_key"`
	EncryptedAuditorNotes   []string          `json:"encrypted_auditor_notes"`
	TransactionType         types.SpendType   `json:"transaction_type"`
	BridgeType              types.BridgeType  `json:"bridge_type"`
	ChainID                 uint64            `json:"chain_id"`
	AssetSymbol             string            `json:"asset_symbol"`
	PoolAddress             string            `json:"pool_address"`
	CircuitType             types.CircuitType `json:"circuit_type"`
	Signature               string            `json:"signature"`
}
