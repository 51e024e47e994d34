package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mystikonetwork/relayer/types"
)

// ResetAccounts replaces the accounts table with the given registry entries.
// Called once at startup so that the table always mirrors the configuration.
func (s *Storage) ResetAccounts(ctx context.Context, accounts []types.RelayerAccount) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin accounts reset: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `DELETE FROM accounts`); err != nil {
		return fmt.Errorf("clear accounts: %w", err)
	}
	for _, acc := range accounts {
		tokens, err := json.Marshal(acc.SupportedErc20Tokens)
		if err != nil {
			return fmt.Errorf("marshal tokens for %s: %w", acc.ChainAddress, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO accounts
			(chain_address, chain_id, available, supported_erc20_tokens,
			 balance_alarm_threshold, balance_check_interval_ms, insufficient_balances)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			acc.ChainAddress, acc.ChainID, acc.Available, string(tokens),
			acc.BalanceAlarmThreshold, acc.BalanceCheckInterval, acc.InsufficientBalances); err != nil {
			return fmt.Errorf("insert account %s: %w", acc.ChainAddress, err)
		}
	}
	return tx.Commit()
}

// FindAccountsByChainID returns the persisted accounts serving the chain.
func (s *Storage) FindAccountsByChainID(ctx context.Context, chainID uint64) ([]types.RelayerAccount, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT chain_address, chain_id, available,
		supported_erc20_tokens, balance_alarm_threshold, balance_check_interval_ms,
		insufficient_balances FROM accounts WHERE chain_id = ?`, chainID)
	if err != nil {
		return nil, fmt.Errorf("query accounts for chain %d: %w", chainID, err)
	}
	defer func() { _ = rows.Close() }()
	var accounts []types.RelayerAccount
	for rows.Next() {
		var (
			acc    types.RelayerAccount
			tokens string
		)
		if err := rows.Scan(&acc.ChainAddress, &acc.ChainID, &acc.Available, &tokens,
			&acc.BalanceAlarmThreshold, &acc.BalanceCheckInterval, &acc.InsufficientBalances); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		if err := json.Unmarshal([]byte(tokens), &acc.SupportedErc20Tokens); err != nil {
			return nil, fmt.Errorf("unmarshal tokens for %s: %w", acc.ChainAddress, err)
		}
		accounts = append(accounts, acc)
	}
	return accounts, rows.Err()
}

// SetInsufficientBalance flags or clears the low-balance marker for one
// account.
func (s *Storage) SetInsufficientBalance(ctx context.Context, chainID uint64, chainAddress string, insufficient bool) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET insufficient_balances = ? WHERE chain_id = ? AND chain_address = ?`,
		insufficient, chainID, chainAddress)
	if err != nil {
		return fmt.Errorf("set insufficient balance for %s: %w", chainAddress, err)
	}
	return nil
}
