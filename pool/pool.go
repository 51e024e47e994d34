// Package pool encodes calls to the shielded-pool (CommitmentPool) contract.
package pool

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/mystikonetwork/relayer/types"
)

// transactABI is the CommitmentPool transact method fragment.
const transactABI = `[{
	"inputs": [
		{
			"components": [
				{
					"components": [
						{
							"components": [
								{"internalType": "uint256", "name": "x", "type": "uint256"},
								{"internalType": "uint256", "name": "y", "type": "uint256"}
							],
							"internalType": "struct G1Point", "name": "a", "type": "tuple"
						},
						{
							"components": [
								{"internalType": "uint256[2]", "name": "x", "type": "uint256[2]"},
								{"internalType": "uint256[2]", "name": "y", "type": "uint256[2]"}
							],
							"internalType": "struct G2Point", "name": "b", "type": "tuple"
						},
						{
							"components": [
								{"internalType": "uint256", "name": "x", "type": "uint256"},
								{"internalType": "uint256", "name": "y", "type": "uint256"}
							],
							"internalType": "struct G1Point", "name": "c", "type": "tuple"
						}
					],
					"internalType": "struct Proof", "name": "proof", "type": "tuple"
				},
				{"internalType": "uint256", "name": "rootHash", "type": "uint256"},
				{"internalType": "uint256[]", "name": "serialNumbers", "type": "uint256[]"},
				{"internalType": "uint256[]", "name": "sigHashes", "type": "uint256[]"},
				{"internalType": "bytes32", "name": "sigPk", "type": "bytes32"},
				{"internalType": "uint256", "name": "publicAmount", "type": "uint256"},
				{"internalType": "uint256", "name": "relayerFeeAmount", "type": "uint256"},
				{"internalType": "uint256[]", "name": "outCommitments", "type": "uint256[]"},
				{"internalType": "uint256[]", "name": "outRollupFees", "type": "uint256[]"},
				{"internalType": "address", "name": "publicRecipient", "type": "address"},
				{"internalType": "address", "name": "relayerAddress", "type": "address"},
				{"internalType": "bytes[]", "name": "outEncryptedNotes", "type": "bytes[]"},
				{"internalType": "uint256", "name": "randomAuditingPublicKey", "type": "uint256"},
				{"internalType": "uint256[]", "name": "encryptedAuditorNotes", "type": "uint256[]"}
			],
			"internalType": "struct TransactRequest", "name": "_request", "type": "tuple"
		},
		{"internalType": "bytes", "name": "_signature", "type": "bytes"}
	],
	"name": "transact",
	"outputs": [],
	"stateMutability": "payable",
	"type": "function"
}]`

// PoolABI is the parsed CommitmentPool ABI.
var PoolABI = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(transactABI))
	if err != nil {
		panic(fmt.Sprintf("parse commitment pool abi: %v", err))
	}
	return parsed
}()

type abiG1Point struct {
	X *big.Int `abi:"x"`
	Y *big.Int `abi:"y"`
}

type abiG2Point struct {
	X [2]*big.Int `abi:"x"`
	Y [2]*big.Int `abi:"y"`
}

type abiProof struct {
	A abiG1Point `abi:"a"`
	B abiG2Point `abi:"b"`
	C abiG1Point `abi:"c"`
}

type abiTransactRequest struct {
	Proof                   abiProof       `abi:"proof"`
	RootHash                *big.Int       `abi:"rootHash"`
	SerialNumbers           []*big.Int     `abi:"serialNumbers"`
	SigHashes               []*big.Int     `abi:"sigHashes"`
	SigPk                   [32]byte       `abi:"sigPk"`
	PublicAmount            *big.Int       `abi:"publicAmount"`
	RelayerFeeAmount        *big.Int       `abi:"relayerFeeAmount"`
	OutCommitments          []*big.Int     `abi:"outCommitments"`
	OutRollupFees           []*big.Int     `abi:"outRollupFees"`
	PublicRecipient         common.Address `abi:"publicRecipient"`
	RelayerAddress          common.Address `abi:"relayerAddress"`
	OutEncryptedNotes       [][]byte       `abi:"outEncryptedNotes"`
	RandomAuditingPublicKey *big.Int       `abi:"randomAuditingPublicKey"`
	EncryptedAuditorNotes   []*big.Int     `abi:"encryptedAuditorNotes"`
}

// EncodeTransact builds the calldata for transact(request, signature).
func EncodeTransact(params *types.TransactParams, signature string) ([]byte, error) {
	request, err := toABIRequest(params)
	if err != nil {
		return nil, err
	}
	sig, err := types.HexStringToHexBytes(signature)
	if err != nil {
		return nil, fmt.Errorf("decode signature: %w", err)
	}
	data, err := PoolABI.Pack("transact", request, []byte(sig))
	if err != nil {
		return nil, fmt.Errorf("pack transact call: %w", err)
	}
	return data, nil
}

func toABIRequest(params *types.TransactParams) (abiTransactRequest, error) {
	if len(params.SigPk) != 32 {
		return abiTransactRequest{}, fmt.Errorf("sig_pk must be 32 bytes, got %d", len(params.SigPk))
	}
	if !common.IsHexAddress(params.PublicRecipient) {
		return abiTransactRequest{}, fmt.Errorf("invalid public_recipient %q", params.PublicRecipient)
	}
	if !common.IsHexAddress(params.RelayerAddress) {
		return abiTransactRequest{}, fmt.Errorf("invalid relayer_address %q", params.RelayerAddress)
	}
	var sigPk [32]byte
	copy(sigPk[:], params.SigPk)
	notes := make([][]byte, len(params.OutEncryptedNotes))
	for i, note := range params.OutEncryptedNotes {
		notes[i] = note
	}
	return abiTransactRequest{
		Proof: abiProof{
			A: abiG1Point{X: bigOrZero(params.Proof.A.X), Y: bigOrZero(params.Proof.A.Y)},
			B: abiG2Point{
				X: [2]*big.Int{bigOrZero(params.Proof.B.X[0]), bigOrZero(params.Proof.B.X[1])},
				Y: [2]*big.Int{bigOrZero(params.Proof.B.Y[0]), bigOrZero(params.Proof.B.Y[1])},
			},
			C: abiG1Point{X: bigOrZero(params.Proof.C.X), Y: bigOrZero(params.Proof.C.Y)},
		},
		RootHash:                bigOrZero(params.RootHash),
		SerialNumbers:           bigSlice(params.SerialNumbers),
		SigHashes:               bigSlice(params.SigHashes),
		SigPk:                   sigPk,
		PublicAmount:            bigOrZero(params.PublicAmount),
		RelayerFeeAmount:        bigOrZero(params.RelayerFeeAmount),
		OutCommitments:          bigSlice(params.OutCommitments),
		OutRollupFees:           bigSlice(params.OutRollupFees),
		PublicRecipient:         common.HexToAddress(params.PublicRecipient),
		RelayerAddress:          common.HexToAddress(params.RelayerAddress),
		OutEncryptedNotes:       notes,
		RandomAuditingPublicKey: bigOrZero(params.RandomAuditingPublicKey),
		EncryptedAuditorNotes:   bigSlice(params.EncryptedAuditorNotes),
	}, nil
}

func bigOrZero(v *types.BigInt) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v.MathBigInt()
}

func bigSlice(vs []*types.BigInt) []*big.Int {
	out := make([]*big.Int, len(vs))
	for i, v := range vs {
		out[i] = bigOrZero(v)
	}
	return out
}
