package rpc

import (
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
)

// endpointCooldown is how long a failed endpoint stays out of rotation.
const endpointCooldown = 5 * time.Minute

// Web3Endpoint is one JSON-RPC provider for a chain.
type Web3Endpoint struct {
	ChainID    uint64
	URI        string
	client     *ethclient.Client
	disabledAt time.Time
}

// Web3Iterator hands out endpoints round-robin and parks failing ones until
// their cooldown expires. When every endpoint is down, the disabled ones are
// put back in rotation rather than returning nothing.
type Web3Iterator struct {
	nextIndex int
	available []*Web3Endpoint
	disabled  []*Web3Endpoint
	mtx       sync.Mutex
}

// NewWeb3Iterator creates an iterator over the given endpoints.
func NewWeb3Iterator(endpoints ...*Web3Endpoint) *Web3Iterator {
	return &Web3Iterator{available: endpoints}
}

// Available returns the number of endpoints currently in rotation.
func (it *Web3Iterator) Available() int {
	it.mtx.Lock()
	defer it.mtx.Unlock()
	return len(it.available)
}

// Add puts new endpoints into the rotation.
func (it *Web3Iterator) Add(endpoints ...*Web3Endpoint) {
	it.mtx.Lock()
	defer it.mtx.Unlock()
	it.available = append(it.available, endpoints...)
}

// Next returns the next endpoint in rotation, re-enabling any endpoint whose
// cooldown has expired first.
func (it *Web3Iterator) Next() (*Web3Endpoint, error) {
	it.mtx.Lock()
	defer it.mtx.Unlock()
	it.expireCooldowns()
	if len(it.available) == 0 {
		return nil, fmt.Errorf("no registered endpoints")
	}
	if it.nextIndex >= len(it.available) {
		it.nextIndex = 0
	}
	endpoint := it.available[it.nextIndex]
	it.nextIndex = (it.nextIndex + 1) % len(it.available)
	return endpoint, nil
}

// Disable parks the endpoint with the given URI. If this empties the
// rotation, every disabled endpoint is put back so callers always have
// something to try.
func (it *Web3Iterator) Disable(uri string) {
	it.mtx.Lock()
	defer it.mtx.Unlock()
	for i, e := range it.available {
		if e.URI == uri {
			e.disabledAt = time.Now()
			it.available = append(it.available[:i], it.available[i+1:]...)
			it.disabled = append(it.disabled, e)
			break
		}
	}
	if len(it.available) == 0 {
		for _, e := range it.disabled {
			e.disabledAt = time.Time{}
		}
		it.available, it.disabled = it.disabled, nil
		it.nextIndex = 0
	}
}

// expireCooldowns must be called with the mutex held.
func (it *Web3Iterator) expireCooldowns() {
	if len(it.disabled) == 0 {
		return
	}
	now := time.Now()
	var stillDisabled []*Web3Endpoint
	for _, e := range it.disabled {
		if now.Sub(e.disabledAt) >= endpointCooldown {
			e.disabledAt = time.Time{}
			it.available = append(it.available, e)
		} else {
			stillDisabled = append(stillDisabled, e)
		}
	}
	it.disabled = stillDisabled
}
