package rpc

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	gethrpc "github.com/ethereum/go-ethereum/rpc"

	"github.com/mystikonetwork/relayer/log"
)

const (
	// defaultRetries is how many times a call is retried on the same
	// endpoint before switching to the next one.
	defaultRetries    = 2
	defaultRetrySleep = 200 * time.Millisecond
	defaultTimeout    = 5 * time.Second
)

// permanentErrorPatterns are provider errors that will never succeed on
// retry, typically contract-level rejections.
var permanentErrorPatterns = []string{
	"execution reverted",
	"nonce too low",
	"insufficient funds",
	"already known",
}

// IsPermanentError reports whether the error is a permanent failure that
// retrying or switching endpoints cannot fix.
func IsPermanentError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range permanentErrorPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// Client is a chain-bound view of the pool. Every call is retried on the
// current endpoint and fails over to the next one, so a single flaky provider
// does not lose a relayed transaction.
type Client struct {
	w3p     *Web3Pool
	chainID uint64
}

// ChainID returns the chain this client is bound to.
func (c *Client) ChainID() uint64 {
	return c.chainID
}

// EstimateGas estimates the gas needed to execute the call.
func (c *Client) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	res, err := c.retryAndCheckErr(func(endpoint *Web3Endpoint) (any, error) {
		internalCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
		defer cancel()
		return endpoint.client.EstimateGas(internalCtx, msg)
	})
	if err != nil {
		return 0, err
	}
	return res.(uint64), nil
}

// SuggestGasPrice returns the provider's suggested legacy gas price.
func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	res, err := c.retryAndCheckErr(func(endpoint *Web3Endpoint) (any, error) {
		internalCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
		defer cancel()
		return endpoint.client.SuggestGasPrice(internalCtx)
	})
	if err != nil {
		return nil, err
	}
	return res.(*big.Int), nil
}

// SuggestGasTipCap returns the provider's suggested EIP-1559 priority fee.
func (c *Client) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	res, err := c.retryAndCheckErr(func(endpoint *Web3Endpoint) (any, error) {
		internalCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
		defer cancel()
		return endpoint.client.SuggestGasTipCap(internalCtx)
	})
	if err != nil {
		return nil, err
	}
	return res.(*big.Int), nil
}

// HeaderByNumber returns the header of the given block, or the latest one
// when number is nil.
func (c *Client) HeaderByNumber(ctx context.Context, number *big.Int) (*gethtypes.Header, error) {
	res, err := c.retryAndCheckErr(func(endpoint *Web3Endpoint) (any, error) {
		internalCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
		defer cancel()
		return endpoint.client.HeaderByNumber(internalCtx, number)
	})
	if err != nil {
		return nil, err
	}
	return res.(*gethtypes.Header), nil
}

// PendingNonceAt returns the next nonce of the account including pending
// transactions.
func (c *Client) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	res, err := c.retryAndCheckErr(func(endpoint *Web3Endpoint) (any, error) {
		internalCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
		defer cancel()
		return endpoint.client.PendingNonceAt(internalCtx, account)
	})
	if err != nil {
		return 0, err
	}
	return res.(uint64), nil
}

// SendTransaction broadcasts a signed transaction.
func (c *Client) SendTransaction(ctx context.Context, tx *gethtypes.Transaction) error {
	_, err := c.retryAndCheckErr(func(endpoint *Web3Endpoint) (any, error) {
		internalCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
		defer cancel()
		return nil, endpoint.client.SendTransaction(internalCtx, tx)
	})
	return err
}

// TransactionReceipt returns the receipt of a mined transaction, or an error
// while it is still pending.
func (c *Client) TransactionReceipt(ctx context.Context, hash common.Hash) (*gethtypes.Receipt, error) {
	res, err := c.retryAndCheckErr(func(endpoint *Web3Endpoint) (any, error) {
		internalCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
		defer cancel()
		return endpoint.client.TransactionReceipt(internalCtx, hash)
	})
	if err != nil {
		return nil, err
	}
	return res.(*gethtypes.Receipt), nil
}

// BalanceAt returns the native balance of the account.
func (c *Client) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	res, err := c.retryAndCheckErr(func(endpoint *Web3Endpoint) (any, error) {
		internalCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
		defer cancel()
		return endpoint.client.BalanceAt(internalCtx, account, blockNumber)
	})
	if err != nil {
		return nil, err
	}
	return res.(*big.Int), nil
}

// retryAndCheckErr retries fn on the current endpoint, then disables it and
// moves to the next until all endpoints for the chain have been tried.
// Permanent errors abort immediately.
func (c *Client) retryAndCheckErr(fn func(*Web3Endpoint) (any, error)) (any, error) {
	tried := make(map[string]bool)
	total := c.w3p.NumberOfEndpoints(c.chainID)
	if total == 0 {
		return nil, fmt.Errorf("no endpoints available for chain %d", c.chainID)
	}
	var lastErr error
	for attempts := 0; attempts < total; attempts++ {
		endpoint, err := c.w3p.Endpoint(c.chainID)
		if err != nil {
			return nil, fmt.Errorf("get endpoint for chain %d: %w", c.chainID, err)
		}
		if tried[endpoint.URI] {
			return nil, fmt.Errorf("endpoint rotation exhausted for chain %d: %w", c.chainID, lastErr)
		}
		tried[endpoint.URI] = true
		for retry := 0; retry < defaultRetries; retry++ {
			var res any
			res, err = fn(endpoint)
			if err == nil {
				return res, nil
			}
			if rpcErr := ParseError(err); rpcErr != nil {
				lastErr = fmt.Errorf("%w (code: %d, data: %s)", err, rpcErr.Code, rpcErr.Data)
			} else {
				lastErr = err
			}
			if IsPermanentError(err) {
				return nil, fmt.Errorf("permanent rpc error: %w", err)
			}
			if retry < defaultRetries-1 {
				time.Sleep(defaultRetrySleep)
			}
		}
		log.Warnw("endpoint failed after retries, switching",
			"chainId", c.chainID, "uri", endpoint.URI, "error", lastErr.Error())
		c.w3p.DisableEndpoint(c.chainID, endpoint.URI)
	}
	return nil, fmt.Errorf("all endpoints exhausted for chain %d: %w", c.chainID, lastErr)
}

// RPCError is the error shape returned by JSON-RPC providers.
type RPCError struct {
	Code    int           `json:"code"`
	Message string        `json:"message"`
	Data    hexutil.Bytes `json:"data"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("%s (code: %d, data: %s)", e.Message, e.Code, e.Data.String())
}

// ParseError extracts the provider error code and revert data when present.
func ParseError(err error) *RPCError {
	if err == nil {
		return nil
	}
	if e, ok := err.(*RPCError); ok {
		return e
	}
	out := &RPCError{Message: err.Error()}
	var rpcErr gethrpc.Error
	if errors.As(err, &rpcErr) {
		out.Code = rpcErr.ErrorCode()
		out.Message = rpcErr.Error()
	}
	var dataErr gethrpc.DataError
	if errors.As(err, &dataErr) {
		switch v := dataErr.ErrorData().(type) {
		case []byte:
			out.Data = hexutil.Bytes(v)
		case string:
			if b, derr := hexutil.Decode(v); derr == nil {
				out.Data = hexutil.Bytes(b)
			}
		}
	}
	return out
}
