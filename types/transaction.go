package types

import (
	"strings"
	"time"
)

// TransactStatus is the lifecycle status of a relayed transaction job.
// Statuses move monotonically queued -> pending -> (succeeded | failed);
// a job may also jump queued -> failed when it never reaches the chain.
type TransactStatus string

const (
	StatusQueued    TransactStatus = "queued"
	StatusPending   TransactStatus = "pending"
	StatusSucceeded TransactStatus = "succeeded"
	StatusFailed    TransactStatus = "failed"
)

// CanTransitionTo reports whether moving from s to next respects the
// monotonic lifecycle. Identical statuses are allowed (idempotent updates).
func (s TransactStatus) CanTransitionTo(next TransactStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case StatusQueued:
		return next == StatusPending || next == StatusSucceeded || next == StatusFailed
	case StatusPending:
		return next == StatusSucceeded || next == StatusFailed
	default:
		return false
	}
}

// TransactionJob is the durable record of one transact request and its
// on-chain outcome. Created when a request is accepted, mutated only by the
// owning consumer, never deleted.
type TransactionJob struct {
	ID              string         `json:"id"`
	ChainID         uint64         `json:"chain_id"`
	SpendType       SpendType      `json:"spend_type"`
	BridgeType      BridgeType     `json:"bridge_type"`
	Status          TransactStatus `json:"status"`
	PoolAddress     string         `json:"pool_address"`
	AssetSymbol     string         `json:"asset_symbol"`
	AssetDecimals   uint32         `json:"asset_decimals"`
	CircuitType     CircuitType    `json:"circuit_type"`
	Signature       string         `json:"signature"`
	Payload         []byte         `json:"-"` // raw contract_param JSON, kept for audit
	TransactionHash string         `json:"transaction_hash,omitempty"`
	ErrorMessage    string         `json:"error_message,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// TransactionUpdate is a partial update of a transaction job. Nil fields are
// left untouched.
type TransactionUpdate struct {
	Status          *TransactStatus
	TransactionHash *string
	ErrorMessage    *string
}

// RelayerAccount is the registry view of one configured signer account.
type RelayerAccount struct {
	ChainID               uint64   `json:"chain_id"`
	ChainAddress          string   `json:"chain_address"`
	Available             bool     `json:"available"`
	SupportedErc20Tokens  []string `json:"supported_erc20_tokens"` // lower-cased
	BalanceAlarmThreshold float64  `json:"balance_alarm_threshold"`
	BalanceCheckInterval  uint64   `json:"balance_check_interval_ms"`
	InsufficientBalances  bool     `json:"insufficient_balances"`
}

// SupportsErc20 reports whether the account serves the given ERC-20 symbol
// (case-insensitive).
func (a *RelayerAccount) SupportsErc20(symbol string) bool {
	for _, s := range a.SupportedErc20Tokens {
		if strings.EqualFold(s, symbol) {
			return true
		}
	}
	return false
}
