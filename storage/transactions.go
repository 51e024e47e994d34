package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mystikonetwork/relayer/types"
)

const transactionColumns = `id, chain_id, spend_type, bridge_type, status, pool_address,
	asset_symbol, asset_decimals, circuit_type, signature, payload,
	transaction_hash, error_message, created_at, updated_at`

// CreateTransaction persists a new job for the given request with a fresh
// uuid and status queued.
func (s *Storage) CreateTransaction(ctx context.Context, data *types.TransactRequestData) (*types.TransactionJob, error) {
	payload, err := json.Marshal(&data.ContractParam)
	if err != nil {
		return nil, fmt.Errorf("marshal contract param: %w", err)
	}
	now := time.Now().UTC()
	job := &types.TransactionJob{
		ID:            uuid.NewString(),
		ChainID:       data.ChainID,
		SpendType:     data.SpendType,
		BridgeType:    data.BridgeType,
		Status:        types.StatusQueued,
		PoolAddress:   data.PoolAddress,
		AssetSymbol:   data.AssetSymbol,
		AssetDecimals: data.AssetDecimals,
		CircuitType:   data.CircuitType,
		Signature:     data.Signature,
		Payload:       payload,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.ChainID, string(job.SpendType), string(job.BridgeType), string(job.Status),
		job.PoolAddress, job.AssetSymbol, job.AssetDecimals, string(job.CircuitType),
		job.Signature, job.Payload, nullable(job.TransactionHash), nullable(job.ErrorMessage),
		job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert transaction %s: %w", job.ID, err)
	}
	return job, nil
}

// FindTransaction returns the job with the given id, or nil when unknown.
func (s *Storage) FindTransaction(ctx context.Context, id string) (*types.TransactionJob, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	job, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find transaction %s: %w", id, err)
	}
	return job, nil
}

// UpdateTransaction applies a partial update to the job with the given id and
// returns the updated row. A missing id is not an error: the update is a
// no-op and both return values are nil. A status change that would move the
// lifecycle backwards is rejected.
func (s *Storage) UpdateTransaction(ctx context.Context, id string, update types.TransactionUpdate) (*types.TransactionJob, error) {
	if update.Status != nil {
		var current string
		err := s.db.QueryRowContext(ctx,
			`SELECT status FROM transactions WHERE id = ?`, id).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read transaction %s status: %w", id, err)
		}
		if !types.TransactStatus(current).CanTransitionTo(*update.Status) {
			return nil, fmt.Errorf("illegal status transition %s -> %s for transaction %s",
				current, *update.Status, id)
		}
	}
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}
	if update.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*update.Status))
	}
	if update.TransactionHash != nil {
		sets = append(sets, "transaction_hash = ?")
		args = append(args, *update.TransactionHash)
	}
	if update.ErrorMessage != nil {
		sets = append(sets, "error_message = ?")
		args = append(args, *update.ErrorMessage)
	}
	args = append(args, id)
	res, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("update transaction %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, nil
	}
	return s.FindTransaction(ctx, id)
}

// IsRepeatedTransaction reports whether any non-failed job already carries
// the given signature.
func (s *Storage) IsRepeatedTransaction(ctx context.Context, signature string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM transactions WHERE signature = ? AND status != ?`,
		signature, string(types.StatusFailed)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check repeated signature: %w", err)
	}
	return n > 0, nil
}

func scanTransaction(row *sql.Row) (*types.TransactionJob, error) {
	var (
		job       types.TransactionJob
		spendType string
		bridge    string
		status    string
		circuit   string
		hash      sql.NullString
		errMsg    sql.NullString
	)
	err := row.Scan(&job.ID, &job.ChainID, &spendType, &bridge, &status,
		&job.PoolAddress, &job.AssetSymbol, &job.AssetDecimals, &circuit,
		&job.Signature, &job.Payload, &hash, &errMsg, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return nil, err
	}
	job.SpendType = types.SpendType(spendType)
	job.BridgeType = types.BridgeType(bridge)
	job.Status = types.TransactStatus(status)
	job.CircuitType = types.CircuitType(circuit)
	job.TransactionHash = hash.String
	job.ErrorMessage = errMsg.String
	return &job, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
