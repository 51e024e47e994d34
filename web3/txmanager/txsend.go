package txmanager

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	gtypes "github.com/ethereum/go-ethereum/core/types"
)

// SendRequest describes one contract call to submit.
type SendRequest struct {
	To          common.Address
	Data        []byte
	Value       *big.Int
	GasLimit    uint64
	MaxGasPrice *big.Int
}

// Send signs and broadcasts the call, returning the submitted transaction
// hash. The nonce is reconciled from the provider's pending state on every
// send; the owning consumer serializes calls per account.
func (tm *TxManager) Send(ctx context.Context, req SendRequest) (common.Hash, error) {
	nonce, err := tm.cli.PendingNonceAt(ctx, tm.signer.Address())
	if err != nil {
		return common.Hash{}, fmt.Errorf("pending nonce: %w", err)
	}
	value := req.Value
	if value == nil {
		value = big.NewInt(0)
	}
	var inner gtypes.TxData
	if tm.config.Eip1559 {
		tip, err := tm.cli.SuggestGasTipCap(ctx)
		if err != nil {
			return common.Hash{}, fmt.Errorf("suggest gas tip cap: %w", err)
		}
		if tip.Cmp(req.MaxGasPrice) > 0 {
			tip = new(big.Int).Set(req.MaxGasPrice)
		}
		inner = &gtypes.DynamicFeeTx{
			ChainID:   tm.config.ChainID,
			Nonce:     nonce,
			GasTipCap: tip,
			GasFeeCap: req.MaxGasPrice,
			Gas:       req.GasLimit,
			To:        &req.To,
			Value:     value,
			Data:      req.Data,
		}
	} else {
		inner = &gtypes.LegacyTx{
			Nonce:    nonce,
			GasPrice: req.MaxGasPrice,
			Gas:      req.GasLimit,
			To:       &req.To,
			Value:    value,
			Data:     req.Data,
		}
	}
	signed, err := gtypes.SignNewTx(tm.signer.PrivateKey(),
		gtypes.LatestSignerForChainID(tm.config.ChainID), inner)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign transaction: %w", err)
	}
	if err := tm.cli.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("send transaction: %w", err)
	}
	return signed.Hash(), nil
}
