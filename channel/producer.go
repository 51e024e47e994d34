package channel

import (
	"context"
	"errors"
	"fmt"

	"github.com/mystikonetwork/relayer/log"
	"github.com/mystikonetwork/relayer/types"
)

// ErrQueueFull is returned when an account queue cannot accept more work.
var ErrQueueFull = errors.New("transaction queue is full")

// Producer persists a request as a queued job and hands it to the account's
// consumer. The enqueue never blocks: a full queue fails the job immediately
// so the client can retry elsewhere.
type Producer struct {
	account types.RelayerAccount
	queue   chan<- queueItem
	store   Store
}

// Account returns the relayer account this producer feeds.
func (p *Producer) Account() types.RelayerAccount {
	return p.account
}

// Send persists the request and enqueues it. When the queue is full the job
// is marked failed before the error is returned, so no queued record leaks.
func (p *Producer) Send(ctx context.Context, data *types.TransactRequestData) (*types.TransactionJob, error) {
	job, err := p.store.CreateTransaction(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}
	log.Infow("created transaction",
		"id", job.ID, "chainId", job.ChainID, "spendType", string(job.SpendType))
	select {
	case p.queue <- queueItem{id: job.ID, data: data}:
		log.Infow("sent transaction to queue",
			"id", job.ID, "chainId", job.ChainID, "spendType", string(job.SpendType))
		return job, nil
	default:
		failed := types.StatusFailed
		msg := ErrQueueFull.Error()
		if _, updateErr := p.store.UpdateTransaction(ctx, job.ID, types.TransactionUpdate{
			Status:       &failed,
			ErrorMessage: &msg,
		}); updateErr != nil {
			log.Errorw(updateErr, "failed to mark transaction as failed after queue rejection")
		}
		return nil, fmt.Errorf("enqueue transaction %s: %w", job.ID, ErrQueueFull)
	}
}
