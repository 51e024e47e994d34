package channel

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/mystikonetwork/relayer/log"
	"github.com/mystikonetwork/relayer/pool"
	"github.com/mystikonetwork/relayer/pricing"
	"github.com/mystikonetwork/relayer/types"
	"github.com/mystikonetwork/relayer/web3/txmanager"
)

const (
	maxGasPriceMultiplierLegacy  = 1
	maxGasPriceMultiplierEip1559 = 2

	updateRetries    = 5
	updateRetrySleep = 2 * time.Second
)

// Consumer drains one account queue, submitting each job to the chain and
// recording its outcome. One goroutine per account keeps submissions, and
// therefore nonces, strictly ordered.
type Consumer struct {
	chainID           uint64
	mainAssetSymbol   string
	mainAssetDecimals uint32
	queue             <-chan queueItem
	store             Store
	oracle            pricing.Oracle
	txManager         TxManager
}

// Run processes jobs until the context is canceled.
func (c *Consumer) Run(ctx context.Context) {
	log.Infow("launching consumer", "chainId", c.chainID, "account", c.txManager.Address().Hex())
	for {
		select {
		case <-ctx.Done():
			return
		case item := <-c.queue:
			log.Infow("consumer received transaction",
				"id", item.id, "chainId", c.chainID, "spendType", string(item.data.SpendType))
			update := types.TransactionUpdate{}
			hash, err := c.sendTx(ctx, item.id, item.data)
			if err != nil {
				log.Errorw(err, "consume transaction error")
				failed := types.StatusFailed
				msg := err.Error()
				update.Status = &failed
				update.ErrorMessage = &msg
			} else {
				succeeded := types.StatusSucceeded
				update.Status = &succeeded
				update.TransactionHash = &hash
			}
			c.updateTransaction(ctx, item.id, update)
		}
	}
}

// sendTx runs the full submission pipeline and returns the confirmed
// transaction hash.
func (c *Consumer) sendTx(ctx context.Context, id string, data *types.TransactRequestData) (string, error) {
	contractAddress := common.HexToAddress(data.PoolAddress)
	callData, err := pool.EncodeTransact(&data.ContractParam, data.Signature)
	if err != nil {
		return "", fmt.Errorf("build call data: %w", err)
	}
	gasPrice, err := c.txManager.GasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("get gas price: %w", err)
	}
	estimateGas, err := c.txManager.EstimateGas(ctx, ethereum.CallMsg{
		From:     c.txManager.Address(),
		To:       &contractAddress,
		Data:     callData,
		GasPrice: gasPrice,
	})
	if err != nil {
		return "", fmt.Errorf("estimate gas: %w", err)
	}
	maxGasPrice, err := c.validateRelayerFee(ctx, data, estimateGas, gasPrice)
	if err != nil {
		return "", err
	}
	sentHash, err := c.txManager.Send(ctx, txmanager.SendRequest{
		To:          contractAddress,
		Data:        callData,
		Value:       big.NewInt(0),
		GasLimit:    estimateGas,
		MaxGasPrice: maxGasPrice,
	})
	if err != nil {
		return "", fmt.Errorf("send transaction: %w", err)
	}
	pending := types.StatusPending
	hashStr := sentHash.Hex()
	c.updateTransaction(ctx, id, types.TransactionUpdate{
		Status:          &pending,
		TransactionHash: &hashStr,
	})
	receipt, err := c.txManager.Confirm(ctx, sentHash)
	if err != nil {
		return "", fmt.Errorf("confirm transaction: %w", err)
	}
	// The mined hash can differ from the submitted one after a replacement.
	return receipt.TxHash.Hex(), nil
}

// validateRelayerFee is the economic guard: the fee carried by the request,
// converted to the chain's native asset, must cover the estimated transaction
// cost. It returns the highest gas price the relayer may pay and still break
// even, capped at a multiple of the current price.
func (c *Consumer) validateRelayerFee(ctx context.Context, data *types.TransactRequestData,
	estimateGas uint64, gasPrice *big.Int) (*big.Int, error) {
	relayerFeeAmount := data.ContractParam.RelayerFeeAmount.MathBigInt()
	estimateFee := new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(estimateGas))

	relayerFeeMain, err := c.oracle.Swap(ctx, data.AssetSymbol, data.AssetDecimals,
		relayerFeeAmount, c.mainAssetSymbol, c.mainAssetDecimals)
	if err != nil {
		return nil, fmt.Errorf("swap relayer fee to %s: %w", c.mainAssetSymbol, err)
	}
	log.Debugw("validating relayer fee",
		"chainId", c.chainID,
		"assetSymbol", data.AssetSymbol,
		"relayerFeeAmount", relayerFeeAmount.String(),
		"relayerFeeMain", relayerFeeMain.String(),
		"estimateFee", estimateFee.String())

	if relayerFeeMain.Cmp(estimateFee) < 0 {
		return nil, fmt.Errorf(
			"Relayer fee amount not enough(relayer_fee_amount_main(symbol = %s,decimals = %d,amount = %s) "+
				"less than estimate_transaction_fee_amount(symbol = %s,decimals = %d,amount = %s)",
			c.mainAssetSymbol, c.mainAssetDecimals, relayerFeeMain.String(),
			c.mainAssetSymbol, c.mainAssetDecimals, estimateFee.String())
	}

	maxGasPriceRef := new(big.Int).Div(relayerFeeMain, new(big.Int).SetUint64(estimateGas))
	multiplier := int64(maxGasPriceMultiplierLegacy)
	if c.txManager.Eip1559() {
		multiplier = maxGasPriceMultiplierEip1559
	}
	maxGasPriceCap := new(big.Int).Mul(gasPrice, big.NewInt(multiplier))
	maxGasPrice := maxGasPriceRef
	if maxGasPriceRef.Cmp(maxGasPriceCap) > 0 {
		maxGasPrice = maxGasPriceCap
	}
	log.Infow("validated relayer fee",
		"chainId", c.chainID,
		"relayerFeeMain", relayerFeeMain.String(),
		"estimateGas", estimateGas,
		"maxGasPrice", maxGasPrice.String())
	return maxGasPrice, nil
}

// updateTransaction writes the job update, retrying transient storage
// failures so an outcome is not silently lost. The write is detached from
// the run context: once a job has been pulled off the queue its state changes
// must land even when the process is shutting down, or the job is stranded
// in a non-terminal status.
func (c *Consumer) updateTransaction(ctx context.Context, id string, update types.TransactionUpdate) {
	ctx = context.WithoutCancel(ctx)
	var lastErr error
	for attempt := 0; attempt < updateRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(updateRetrySleep)
		}
		if _, err := c.store.UpdateTransaction(ctx, id, update); err != nil {
			lastErr = err
			log.Warnw("failed to update transaction, retrying",
				"id", id, "attempt", attempt+1, "error", err.Error())
			continue
		}
		return
	}
	log.Errorw(lastErr, fmt.Sprintf("giving up updating transaction %s after %d attempts", id, updateRetries))
}
