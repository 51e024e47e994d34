// Package api implements the relayer's HTTP surface: the handshake, the
// legacy v1 endpoints and the v2 endpoints, all answering with the
// {code, data, message} envelope.
package api

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mystikonetwork/relayer/channel"
	"github.com/mystikonetwork/relayer/config"
	"github.com/mystikonetwork/relayer/internal"
	"github.com/mystikonetwork/relayer/log"
	"github.com/mystikonetwork/relayer/pricing"
	"github.com/mystikonetwork/relayer/types"
)

// Store is the slice of the transaction store the handlers need.
type Store interface {
	FindTransaction(ctx context.Context, id string) (*types.TransactionJob, error)
	IsRepeatedTransaction(ctx context.Context, signature string) (bool, error)
	FindAccountsByChainID(ctx context.Context, chainID uint64) ([]types.RelayerAccount, error)
}

// Dispatcher selects the producer that will carry a request.
type Dispatcher interface {
	SelectProducer(chainID uint64, assetSymbol string, assetType types.AssetType) *channel.Producer
}

// GasPriceFunc quotes the current gas price for a chain.
type GasPriceFunc func(ctx context.Context, chainID uint64) (*big.Int, error)

// APIConfig carries everything the HTTP layer depends on.
type APIConfig struct {
	ApiVersions   []string
	ServerConfig  *config.ServerConfig
	RelayerConfig *config.RelayerConfig
	MystikoConfig *config.MystikoConfig
	Store         Store
	Registry      Dispatcher
	Oracle        pricing.Oracle
	GasPrice      GasPriceFunc
}

// API is the relayer HTTP server.
type API struct {
	router      *chi.Mux
	apiVersions []string
	serverCfg   *config.ServerConfig
	relayerCfg  *config.RelayerConfig
	mystikoCfg  *config.MystikoConfig
	store       Store
	registry    Dispatcher
	oracle      pricing.Oracle
	gasPrice    GasPriceFunc
}

// New builds the API router. Serving is left to the caller.
func New(conf *APIConfig) (*API, error) {
	if conf == nil {
		return nil, fmt.Errorf("missing API configuration")
	}
	if conf.Store == nil || conf.Registry == nil {
		return nil, fmt.Errorf("missing store or registry instance")
	}
	a := &API{
		apiVersions: conf.ApiVersions,
		serverCfg:   conf.ServerConfig,
		relayerCfg:  conf.RelayerConfig,
		mystikoCfg:  conf.MystikoConfig,
		store:       conf.Store,
		registry:    conf.Registry,
		oracle:      conf.Oracle,
		gasPrice:    conf.GasPrice,
	}
	a.initRouter()
	return a, nil
}

// Router returns the chi router, also used by tests.
func (a *API) Router() *chi.Mux {
	return a.router
}

func (a *API) initRouter() {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"*"},
	}))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Throttle(100))
	r.Use(middleware.Timeout(300 * time.Second))

	log.Infow("register handler", "endpoint", "/handshake", "method", "GET")
	r.Get("/handshake", a.handshake)

	if slices.Contains(a.apiVersions, "v1") {
		log.Infow("register handler", "endpoint", "/status", "method", "POST")
		r.Post("/status", a.chainStatusV1)
		log.Infow("register handler", "endpoint", "/jobs/{id}", "method", "GET")
		r.Get("/jobs/{id}", a.jobStatusV1)
		log.Infow("register handler", "endpoint", "/transact", "method", "POST")
		r.Post("/transact", a.transactV1)
	}

	r.Route("/api/v2", func(r chi.Router) {
		log.Infow("register handler", "endpoint", "/api/v2/info", "method", "POST")
		r.Post("/info", a.info)
		log.Infow("register handler", "endpoint", "/api/v2/transact", "method", "POST")
		r.Post("/transact", a.transact)
		log.Infow("register handler", "endpoint", "/api/v2/transaction/status/{id}", "method", "GET")
		r.Get("/transaction/status/{id}", a.transactionStatus)
	})
	a.router = r
}

// handshake reports the server version and the enabled API versions.
func (a *API) handshake(w http.ResponseWriter, _ *http.Request) {
	httpWriteJSON(w, HandshakeResponse{
		PackageVersion: internal.Version,
		ApiVersion:     a.apiVersions,
	})
}
