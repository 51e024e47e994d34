// Package txmanager signs, prices, sends and confirms transactions for one
// relayer account on one chain. A TxManager is owned by a single consumer
// goroutine, which is what keeps the account's nonces strictly ordered.
package txmanager

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	gtypes "github.com/ethereum/go-ethereum/core/types"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mystikonetwork/relayer/web3/rpc"
)

const (
	defaultConfirmTimeout  = 5 * time.Minute
	confirmPollInterval    = 1 * time.Second
	gasHintCacheSize       = 128
	estimateRetries        = 5
	estimateBackoff        = 250 * time.Millisecond
	defaultEstimateTimeout = 20 * time.Second
)

// Config tunes one TxManager.
type Config struct {
	ChainID        *big.Int
	Eip1559        bool
	ConfirmTimeout time.Duration
}

// TxManager prices and submits transactions for one signer on one chain.
type TxManager struct {
	cli      *rpc.Client
	signer   *Signer
	config   Config
	gasHints *lru.Cache[string, uint64]
}

// New builds a TxManager for the signer on the client's chain.
func New(cli *rpc.Client, signer *Signer, config Config) (*TxManager, error) {
	if config.ChainID == nil {
		config.ChainID = new(big.Int).SetUint64(cli.ChainID())
	}
	if config.ConfirmTimeout == 0 {
		config.ConfirmTimeout = defaultConfirmTimeout
	}
	hints, err := lru.New[string, uint64](gasHintCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create gas hint cache: %w", err)
	}
	return &TxManager{
		cli:      cli,
		signer:   signer,
		config:   config,
		gasHints: hints,
	}, nil
}

// Address returns the signer's address.
func (tm *TxManager) Address() common.Address {
	return tm.signer.Address()
}

// Eip1559 reports whether the chain uses the EIP-1559 fee market.
func (tm *TxManager) Eip1559() bool {
	return tm.config.Eip1559
}

// Confirm polls for the receipt of the given transaction until it is mined or
// the confirm timeout expires. A mined-but-reverted transaction is an error.
func (tm *TxManager) Confirm(ctx context.Context, hash common.Hash) (*gtypes.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, tm.config.ConfirmTimeout)
	defer cancel()
	ticker := time.NewTicker(confirmPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("timeout waiting for transaction %s: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
			receipt, err := tm.cli.TransactionReceipt(ctx, hash)
			if err != nil {
				continue
			}
			if receipt.Status != gtypes.ReceiptStatusSuccessful {
				return receipt, fmt.Errorf("transaction %s reverted", receipt.TxHash.Hex())
			}
			return receipt, nil
		}
	}
}

// Balance returns the signer's native balance.
func (tm *TxManager) Balance(ctx context.Context) (*big.Int, error) {
	return tm.cli.BalanceAt(ctx, tm.signer.Address(), nil)
}
