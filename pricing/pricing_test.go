package pricing

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

func quoteServer(t *testing.T, prices map[string]string, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		symbol := r.URL.Query().Get("symbol")
		price, ok := prices[symbol]
		if !ok {
			fmt.Fprintf(w, `{"status":{"error_code":400,"error_message":"unknown symbol"},"data":{}}`)
			return
		}
		fmt.Fprintf(w, `{"status":{"error_code":0},"data":{%q:[{"quote":{"USD":{"price":%s}}}]}}`,
			symbol, price)
	}))
}

func TestSwapAcrossAssets(t *testing.T) {
	c := qt.New(t)
	srv := quoteServer(t, map[string]string{"ETH": "2000", "USDT": "1"}, nil)
	defer srv.Close()
	oracle := NewTokenPrice("test-key", WithBaseURL(srv.URL))

	// 0.5 ETH (18 decimals) at 2000 USD -> 1000 USDT (6 decimals).
	amount, _ := new(big.Int).SetString("500000000000000000", 10)
	got, err := oracle.Swap(context.Background(), "ETH", 18, amount, "USDT", 6)
	c.Assert(err, qt.IsNil)
	c.Assert(got.String(), qt.Equals, "1000000000")

	// The reverse direction.
	got, err = oracle.Swap(context.Background(), "USDT", 6, big.NewInt(1000000000), "ETH", 18)
	c.Assert(err, qt.IsNil)
	c.Assert(got.String(), qt.Equals, "500000000000000000")
}

func TestSwapSameSymbolScalesDecimals(t *testing.T) {
	c := qt.New(t)
	// No server: same-symbol swaps never hit the quote endpoint.
	oracle := NewTokenPrice("test-key", WithBaseURL("http://127.0.0.1:1"))

	got, err := oracle.Swap(context.Background(), "usdt", 6, big.NewInt(1500000), "USDT", 18)
	c.Assert(err, qt.IsNil)
	c.Assert(got.String(), qt.Equals, "1500000000000000000")

	got, err = oracle.Swap(context.Background(), "ETH", 18, big.NewInt(1999999999999), "eth", 6)
	c.Assert(err, qt.IsNil)
	c.Assert(got.String(), qt.Equals, "1") // truncates toward zero
}

func TestSwapTruncates(t *testing.T) {
	c := qt.New(t)
	srv := quoteServer(t, map[string]string{"AAA": "3", "BBB": "7"}, nil)
	defer srv.Close()
	oracle := NewTokenPrice("test-key", WithBaseURL(srv.URL))

	// 10 * 3/7 = 4.28... -> 4
	got, err := oracle.Swap(context.Background(), "AAA", 6, big.NewInt(10), "BBB", 6)
	c.Assert(err, qt.IsNil)
	c.Assert(got.String(), qt.Equals, "4")
}

func TestQuoteCache(t *testing.T) {
	c := qt.New(t)
	var hits atomic.Int64
	srv := quoteServer(t, map[string]string{"ETH": "2000", "USDT": "1"}, &hits)
	defer srv.Close()
	oracle := NewTokenPrice("test-key", WithBaseURL(srv.URL), WithTTL(time.Hour))

	for range 3 {
		_, err := oracle.Swap(context.Background(), "ETH", 18, big.NewInt(1e18), "USDT", 6)
		c.Assert(err, qt.IsNil)
	}
	// One fetch per symbol regardless of how many swaps ran.
	c.Assert(hits.Load(), qt.Equals, int64(2))
}

func TestUnknownSymbol(t *testing.T) {
	c := qt.New(t)
	srv := quoteServer(t, map[string]string{"ETH": "2000"}, nil)
	defer srv.Close()
	oracle := NewTokenPrice("test-key", WithBaseURL(srv.URL))

	_, err := oracle.Swap(context.Background(), "ETH", 18, big.NewInt(1), "NOPE", 6)
	c.Assert(err, qt.IsNotNil)
	c.Assert(strings.Contains(err.Error(), "NOPE"), qt.IsTrue)
}
