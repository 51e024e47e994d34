// Package channel moves accepted transact requests from the API to the
// chain. Every configured account gets a bounded FIFO queue with a producer
// on the API side and a single consumer goroutine that signs and submits, so
// an account's nonces are always issued in order.
package channel

import (
	"context"
	"math/big"
	"math/rand"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gtypes "github.com/ethereum/go-ethereum/core/types"
	"golang.org/x/sync/errgroup"

	"github.com/mystikonetwork/relayer/pricing"
	"github.com/mystikonetwork/relayer/types"
	"github.com/mystikonetwork/relayer/web3/txmanager"
)

// DefaultQueueCapacity bounds each account queue.
const DefaultQueueCapacity = 50

// Store is the slice of the transaction store the channel needs.
type Store interface {
	CreateTransaction(ctx context.Context, data *types.TransactRequestData) (*types.TransactionJob, error)
	UpdateTransaction(ctx context.Context, id string, update types.TransactionUpdate) (*types.TransactionJob, error)
}

// TxManager prices, submits and confirms transactions for one account.
type TxManager interface {
	Address() common.Address
	Eip1559() bool
	GasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	Send(ctx context.Context, req txmanager.SendRequest) (common.Hash, error)
	Confirm(ctx context.Context, hash common.Hash) (*gtypes.Receipt, error)
}

// queueItem pairs a persisted job id with its request payload.
type queueItem struct {
	id   string
	data *types.TransactRequestData
}

// Binding declares one account channel: the registry builds a producer and a
// consumer around a shared queue for each binding.
type Binding struct {
	Account           types.RelayerAccount
	MainAssetSymbol   string
	MainAssetDecimals uint32
	TxManager         TxManager
}

// Registry owns every account channel and dispatches requests to them.
type Registry struct {
	producers []*Producer
	consumers []*Consumer

	mu   sync.Mutex
	rand *rand.Rand
}

// NewRegistry builds the producer/consumer pair for every binding. A
// queueCapacity of zero uses DefaultQueueCapacity.
func NewRegistry(store Store, oracle pricing.Oracle, queueCapacity int, bindings []Binding) *Registry {
	if queueCapacity <= 0 {
		queueCapacity = DefaultQueueCapacity
	}
	r := &Registry{rand: rand.New(rand.NewSource(rand.Int63()))}
	for _, b := range bindings {
		queue := make(chan queueItem, queueCapacity)
		r.producers = append(r.producers, &Producer{
			account: b.Account,
			queue:   queue,
			store:   store,
		})
		r.consumers = append(r.consumers, &Consumer{
			chainID:           b.Account.ChainID,
			mainAssetSymbol:   b.MainAssetSymbol,
			mainAssetDecimals: b.MainAssetDecimals,
			queue:             queue,
			store:             store,
			oracle:            oracle,
			txManager:         b.TxManager,
		})
	}
	return r
}

// Run launches every consumer and blocks until the context is canceled.
func (r *Registry) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, consumer := range r.consumers {
		g.Go(func() error {
			consumer.Run(ctx)
			return nil
		})
	}
	return g.Wait()
}

// SelectProducer picks one eligible producer for the request, uniformly at
// random. Eligible means: serving the chain, available, and for ERC-20
// assets, supporting the symbol (case-insensitive). Returns nil when no
// producer qualifies.
func (r *Registry) SelectProducer(chainID uint64, assetSymbol string, assetType types.AssetType) *Producer {
	var eligible []*Producer
	for _, p := range r.producers {
		if p.account.ChainID != chainID || !p.account.Available {
			continue
		}
		if assetType == types.AssetTypeErc20 && !p.account.SupportsErc20(assetSymbol) {
			continue
		}
		eligible = append(eligible, p)
	}
	if len(eligible) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return eligible[r.rand.Intn(len(eligible))]
}

// Producers returns every registered producer.
func (r *Registry) Producers() []*Producer {
	return r.producers
}
