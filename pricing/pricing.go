// Package pricing converts token amounts between assets using market quotes.
// All conversions are integer math on raw amounts; prices are held as exact
// rationals and results truncate toward zero.
package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mystikonetwork/relayer/log"
)

// Oracle converts an amount of one asset into the equivalent amount of
// another, honoring the decimal precision of both sides.
type Oracle interface {
	Swap(ctx context.Context, fromSymbol string, fromDecimals uint32,
		amount *big.Int, toSymbol string, toDecimals uint32) (*big.Int, error)
}

const (
	defaultQuoteBaseUrl = "https://pro-api.coinmarketcap.com"
	quoteEndpoint       = "/v2/cryptocurrency/quotes/latest"
	defaultPriceTtl     = 5 * time.Minute
	quoteFetchTimeout   = 15 * time.Second
)

// TokenPrice is a CoinMarketCap-backed Oracle with a per-symbol quote cache.
type TokenPrice struct {
	apiKey  string
	baseURL string
	client  *http.Client
	ttl     time.Duration

	mu    sync.Mutex
	cache map[string]cachedQuote
}

type cachedQuote struct {
	price     *big.Rat
	fetchedAt time.Time
}

// TokenPriceOption customizes a TokenPrice.
type TokenPriceOption func(*TokenPrice)

// WithBaseURL points the oracle at an alternative quote endpoint.
func WithBaseURL(url string) TokenPriceOption {
	return func(t *TokenPrice) { t.baseURL = strings.TrimRight(url, "/") }
}

// WithTTL overrides how long a fetched quote is reused.
func WithTTL(ttl time.Duration) TokenPriceOption {
	return func(t *TokenPrice) { t.ttl = ttl }
}

// NewTokenPrice builds an Oracle using the given CoinMarketCap API key.
func NewTokenPrice(apiKey string, opts ...TokenPriceOption) *TokenPrice {
	t := &TokenPrice{
		apiKey:  apiKey,
		baseURL: defaultQuoteBaseUrl,
		client:  &http.Client{Timeout: quoteFetchTimeout},
		ttl:     defaultPriceTtl,
		cache:   map[string]cachedQuote{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Swap converts amount from one asset into another. Same-symbol swaps skip
// the quote lookup and only adjust for the decimal delta.
func (t *TokenPrice) Swap(ctx context.Context, fromSymbol string, fromDecimals uint32,
	amount *big.Int, toSymbol string, toDecimals uint32) (*big.Int, error) {
	if amount == nil {
		return nil, fmt.Errorf("swap amount must not be nil")
	}
	ratio := new(big.Rat).SetInt64(1)
	if !strings.EqualFold(fromSymbol, toSymbol) {
		fromPrice, err := t.price(ctx, fromSymbol)
		if err != nil {
			return nil, err
		}
		toPrice, err := t.price(ctx, toSymbol)
		if err != nil {
			return nil, err
		}
		if toPrice.Sign() == 0 {
			return nil, fmt.Errorf("zero price for %s", toSymbol)
		}
		ratio.Quo(fromPrice, toPrice)
	}
	result := new(big.Rat).SetInt(amount)
	result.Mul(result, ratio)
	result.Mul(result, new(big.Rat).SetInt(pow10(toDecimals)))
	result.Quo(result, new(big.Rat).SetInt(pow10(fromDecimals)))
	return new(big.Int).Quo(result.Num(), result.Denom()), nil
}

// price returns the USD quote for symbol, fetching when the cached quote is
// missing or stale.
func (t *TokenPrice) price(ctx context.Context, symbol string) (*big.Rat, error) {
	key := strings.ToUpper(symbol)
	t.mu.Lock()
	defer t.mu.Unlock()
	if q, ok := t.cache[key]; ok && time.Since(q.fetchedAt) < t.ttl {
		return q.price, nil
	}
	price, err := t.fetchPrice(ctx, key)
	if err != nil {
		// Serve a stale quote rather than failing the whole submission.
		if q, ok := t.cache[key]; ok {
			log.Warnw("price fetch failed, using stale quote", "symbol", key, "error", err.Error())
			return q.price, nil
		}
		return nil, err
	}
	t.cache[key] = cachedQuote{price: price, fetchedAt: time.Now()}
	return price, nil
}

type quoteResponse struct {
	Status struct {
		ErrorCode    int    `json:"error_code"`
		ErrorMessage string `json:"error_message"`
	} `json:"status"`
	Data map[string][]struct {
		Quote map[string]struct {
			Price json.Number `json:"price"`
		} `json:"quote"`
	} `json:"data"`
}

func (t *TokenPrice) fetchPrice(ctx context.Context, symbol string) (*big.Rat, error) {
	url := fmt.Sprintf("%s%s?symbol=%s", t.baseURL, quoteEndpoint, symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-CMC_PRO_API_KEY", t.apiKey)
	req.Header.Set("Accept", "application/json")
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch quote for %s: %w", symbol, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch quote for %s: unexpected status %s", symbol, resp.Status)
	}
	var out quoteResponse
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode quote for %s: %w", symbol, err)
	}
	if out.Status.ErrorCode != 0 {
		return nil, fmt.Errorf("quote service error for %s: %s", symbol, out.Status.ErrorMessage)
	}
	entries, ok := out.Data[symbol]
	if !ok || len(entries) == 0 {
		return nil, fmt.Errorf("no quote for symbol %s", symbol)
	}
	usd, ok := entries[0].Quote["USD"]
	if !ok {
		return nil, fmt.Errorf("no USD quote for symbol %s", symbol)
	}
	price, ok := new(big.Rat).SetString(usd.Price.String())
	if !ok {
		return nil, fmt.Errorf("invalid price %q for symbol %s", usd.Price, symbol)
	}
	if price.Sign() <= 0 {
		return nil, fmt.Errorf("non-positive price for symbol %s", symbol)
	}
	return price, nil
}

func pow10(n uint32) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
