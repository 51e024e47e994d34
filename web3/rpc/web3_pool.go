// Package rpc maintains a pool of JSON-RPC endpoints per chain and exposes a
// Client that retries calls across them, disabling endpoints that fail.
package rpc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
)

const dialTimeout = 10 * time.Second

// Web3Pool holds the endpoint iterators for every configured chain.
type Web3Pool struct {
	mtx       sync.RWMutex
	endpoints map[uint64]*Web3Iterator
}

// NewWeb3Pool creates an empty pool.
func NewWeb3Pool() *Web3Pool {
	return &Web3Pool{endpoints: make(map[uint64]*Web3Iterator)}
}

// AddEndpoint dials the given URI, discovers its chain id and registers the
// endpoint under it. Returns the chain id served by the endpoint.
func (p *Web3Pool) AddEndpoint(ctx context.Context, uri string) (uint64, error) {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	client, err := ethclient.DialContext(dialCtx, uri)
	if err != nil {
		return 0, fmt.Errorf("dial %s: %w", uri, err)
	}
	chainID, err := client.ChainID(dialCtx)
	if err != nil {
		client.Close()
		return 0, fmt.Errorf("get chain id from %s: %w", uri, err)
	}
	id := chainID.Uint64()
	endpoint := &Web3Endpoint{ChainID: id, URI: uri, client: client}
	p.mtx.Lock()
	defer p.mtx.Unlock()
	if it, ok := p.endpoints[id]; ok {
		it.Add(endpoint)
	} else {
		p.endpoints[id] = NewWeb3Iterator(endpoint)
	}
	return id, nil
}

// Client returns a load-balancing client bound to the given chain.
func (p *Web3Pool) Client(chainID uint64) (*Client, error) {
	p.mtx.RLock()
	defer p.mtx.RUnlock()
	if _, ok := p.endpoints[chainID]; !ok {
		return nil, fmt.Errorf("no endpoints registered for chain %d", chainID)
	}
	return &Client{w3p: p, chainID: chainID}, nil
}

// Endpoint returns the next endpoint in rotation for the chain.
func (p *Web3Pool) Endpoint(chainID uint64) (*Web3Endpoint, error) {
	p.mtx.RLock()
	it, ok := p.endpoints[chainID]
	p.mtx.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no endpoints registered for chain %d", chainID)
	}
	return it.Next()
}

// DisableEndpoint parks the endpoint with the given URI for the chain.
func (p *Web3Pool) DisableEndpoint(chainID uint64, uri string) {
	p.mtx.RLock()
	it, ok := p.endpoints[chainID]
	p.mtx.RUnlock()
	if ok {
		it.Disable(uri)
	}
}

// NumberOfEndpoints returns how many endpoints are in rotation for the chain.
func (p *Web3Pool) NumberOfEndpoints(chainID uint64) int {
	p.mtx.RLock()
	it, ok := p.endpoints[chainID]
	p.mtx.RUnlock()
	if !ok {
		return 0
	}
	return it.Available()
}

// Close closes every endpoint client in the pool.
func (p *Web3Pool) Close() {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	for _, it := range p.endpoints {
		it.mtx.Lock()
		for _, e := range append(it.available, it.disabled...) {
			e.client.Close()
		}
		it.mtx.Unlock()
	}
	p.endpoints = make(map[uint64]*Web3Iterator)
}
