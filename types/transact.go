package types

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// SpendType identifies the kind of shielded-pool spend a request performs.
type SpendType string

const (
	SpendTypeTransfer SpendType = "transfer"
	SpendTypeWithdraw SpendType = "withdraw"
)

// BridgeType identifies the bridge family of the pool contract.
type BridgeType string

const (
	BridgeTypeLoop      BridgeType = "loop"
	BridgeTypeTBridge   BridgeType = "tbridge"
	BridgeTypeCeler     BridgeType = "celer"
	BridgeTypeLayerZero BridgeType = "layer_zero"
	BridgeTypeAxelar    BridgeType = "axelar"
	BridgeTypeWormhole  BridgeType = "wormhole"
)

// AssetType distinguishes the chain's native asset from ERC-20 tokens.
type AssetType string

const (
	AssetTypeMain  AssetType = "main"
	AssetTypeErc20 AssetType = "erc20"
)

// CircuitType identifies the proof-circuit variant (input/output counts),
// which determines the gas cost of the on-chain verification.
type CircuitType string

const (
	CircuitTypeTransaction1x0 CircuitType = "transaction1x0"
	CircuitTypeTransaction1x1 CircuitType = "transaction1x1"
	CircuitTypeTransaction1x2 CircuitType = "transaction1x2"
	CircuitTypeTransaction2x0 CircuitType = "transaction2x0"
	CircuitTypeTransaction2x1 CircuitType = "transaction2x1"
	CircuitTypeTransaction2x2 CircuitType = "transaction2x2"
)

// TransactionType selects the fee market of a chain.
type TransactionType string

const (
	TransactionTypeLegacy  TransactionType = "legacy"
	TransactionTypeEip1559 TransactionType = "eip1559"
)

// G1Point is a point on the proof curve.
type G1Point struct {
	X *BigInt `json:"x"`
	Y *BigInt `json:"y"`
}

// G2Point is a point on the proof extension curve.
type G2Point struct {
	X [2]*BigInt `json:"x"`
	Y [2]*BigInt `json:"y"`
}

// Proof is a Groth16 proof as the pool contract consumes it.
type Proof struct {
	A G1Point `json:"a"`
	B G2Point `json:"b"`
	C G1Point `json:"c"`
}

// TransactParams carries the full argument tuple of the pool contract's
// transact method. The relayer stores and forwards it as-is; only the
// relayer fee amount is interpreted (by the economic guard).
type TransactParams struct {
	Proof                   Proof      `json:"proof"`
	RootHash                *BigInt    `json:"root_hash"`
	SerialNumbers           []*BigInt  `json:"serial_numbers"`
	SigHashes               []*BigInt  `json:"sig_hashes"`
	SigPk                   HexBytes   `json:"sig_pk"`
	PublicAmount            *BigInt    `json:"public_amount"`
	RelayerFeeAmount        *BigInt    `json:"relayer_fee_amount"`
	OutCommitments          []*BigInt  `json:"out_commitments"`
	OutRollupFees           []*BigInt  `json:"out_rollup_fees"`
	PublicRecipient         string     `json:"public_recipient"`
	RelayerAddress          string     `json:"relayer_address"`
	OutEncryptedNotes       []HexBytes `json:"out_encrypted_notes"`
	RandomAuditingPublicKey *BigInt    `json:"random_auditing_public_key"`
	EncryptedAuditorNotes   []*BigInt  `json:"encrypted_auditor_notes"`
}

// TransactRequestData is the canonical transact request accepted by the v2
// API and carried through the producer/consumer queue. The v1 API converts
// its legacy body into this shape before dispatch.
type TransactRequestData struct {
	ContractParam TransactParams `json:"contract_param"`
	SpendType     SpendType      `json:"spend_type"`
	BridgeType    BridgeType     `json:"bridge_type"`
	ChainID       uint64         `json:"chain_id"`
	AssetSymbol   string         `json:"asset_symbol"`
	AssetDecimals uint32         `json:"asset_decimals"`
	PoolAddress   string         `json:"pool_address"`
	CircuitType   CircuitType    `json:"circuit_type"`
	Signature     string         `json:"signature"`
}

// Validate checks the request schema. It does not touch the chain or any
// configuration; those checks belong to the dispatch path.
func (d *TransactRequestData) Validate() error {
	if d.ChainID == 0 {
		return fmt.Errorf("chain_id must be greater than zero")
	}
	switch d.SpendType {
	case SpendTypeTransfer, SpendTypeWithdraw:
	default:
		return fmt.Errorf("invalid spend_type %q", d.SpendType)
	}
	switch d.CircuitType {
	case CircuitTypeTransaction1x0, CircuitTypeTransaction1x1, CircuitTypeTransaction1x2,
		CircuitTypeTransaction2x0, CircuitTypeTransaction2x1, CircuitTypeTransaction2x2:
	default:
		return fmt.Errorf("invalid circuit_type %q", d.CircuitType)
	}
	if d.AssetSymbol == "" {
		return fmt.Errorf("asset_symbol must not be empty")
	}
	if !common.IsHexAddress(d.PoolAddress) {
		return fmt.Errorf("invalid pool_address %q", d.PoolAddress)
	}
	if !strings.HasPrefix(d.Signature, "0x") || len(d.Signature) <= 2 {
		return fmt.Errorf("signature must be a 0x-prefixed hex string")
	}
	if _, err := HexStringToHexBytes(d.Signature); err != nil {
		return fmt.Errorf("invalid signature: %w", err)
	}
	if d.ContractParam.RelayerFeeAmount == nil {
		return fmt.Errorf("relayer_fee_amount must be present")
	}
	return nil
}
