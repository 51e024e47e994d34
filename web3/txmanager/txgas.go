package txmanager

import (
	"context"
	"crypto/sha256"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/mystikonetwork/relayer/log"
	"github.com/mystikonetwork/relayer/web3/rpc"
)

// GasPrice returns the price used for the fee guard. On EIP-1559 chains this
// is baseFee*2 + tip so a quote stays valid across a few blocks of base fee
// movement; on legacy chains it is the provider's suggested price.
func (tm *TxManager) GasPrice(ctx context.Context) (*big.Int, error) {
	if !tm.config.Eip1559 {
		price, err := tm.cli.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("suggest gas price: %w", err)
		}
		return price, nil
	}
	header, err := tm.cli.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("get latest header: %w", err)
	}
	if header.BaseFee == nil {
		return nil, fmt.Errorf("chain %s has no base fee", tm.config.ChainID)
	}
	tip, err := tm.cli.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggest gas tip cap: %w", err)
	}
	price := new(big.Int).Mul(header.BaseFee, big.NewInt(2))
	return price.Add(price, tip), nil
}

// EstimateGas estimates the gas limit for the call, retrying transient
// provider failures. When every attempt fails transiently, a previously
// cached estimate for the same contract method is used as a last resort. A
// permanent failure (the node simulated the call and it reverted) aborts
// immediately: a hint must never mask a call that cannot succeed on chain.
func (tm *TxManager) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultEstimateTimeout)
	defer cancel()
	var lastErr error
	for attempt := 0; attempt < estimateRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(estimateBackoff)
		}
		gas, err := tm.cli.EstimateGas(ctx, msg)
		if err == nil {
			tm.gasHints.Add(gasKey(msg), gas)
			return gas, nil
		}
		if rpc.IsPermanentError(err) {
			return 0, fmt.Errorf("estimate gas: %w", err)
		}
		lastErr = err
	}
	if hint, ok := tm.gasHints.Get(gasKey(msg)); ok {
		log.Warnw("gas estimation failed, using cached hint",
			"chainId", tm.config.ChainID.String(), "hint", hint, "error", lastErr.Error())
		return hint, nil
	}
	return 0, fmt.Errorf("estimate gas: %w", lastErr)
}

// gasKey buckets call messages by contract and function selector, since a
// pool's transact calls of the same circuit cost roughly the same gas.
func gasKey(msg ethereum.CallMsg) string {
	if msg.To != nil && len(msg.Data) >= 4 {
		return msg.To.Hex() + "|" + common.Bytes2Hex(msg.Data[:4])
	}
	h := sha256.New()
	if msg.To != nil {
		h.Write(msg.To.Bytes())
	}
	h.Write(msg.Data)
	return fmt.Sprintf("%x", h.Sum(nil))
}
