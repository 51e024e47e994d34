// Package service assembles the relayer: it loads the external
// configurations, opens the store, dials the chain providers, builds the
// per-account transaction channels and serves the HTTP API.
package service

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mystikonetwork/relayer/api"
	"github.com/mystikonetwork/relayer/channel"
	"github.com/mystikonetwork/relayer/config"
	"github.com/mystikonetwork/relayer/log"
	"github.com/mystikonetwork/relayer/pricing"
	"github.com/mystikonetwork/relayer/storage"
	"github.com/mystikonetwork/relayer/types"
	"github.com/mystikonetwork/relayer/web3/rpc"
	"github.com/mystikonetwork/relayer/web3/txmanager"
)

const httpShutdownTimeout = 10 * time.Second

// account pairs a registered relayer account with the manager that signs for
// it, for the channel bindings and the balance watcher.
type account struct {
	info      types.RelayerAccount
	config    config.AccountConfig
	txManager *txmanager.TxManager
}

// Service is the fully wired relayer.
type Service struct {
	serverCfg  *config.ServerConfig
	relayerCfg *config.RelayerConfig
	mystikoCfg *config.MystikoConfig

	storage  *storage.Storage
	web3pool *rpc.Web3Pool
	oracle   pricing.Oracle
	registry *channel.Registry
	api      *api.API

	accounts []*account
	// one manager per chain, for API gas price quotes
	chainManagers map[uint64]*txmanager.TxManager
}

// New wires a Service from the server configuration. Everything that can
// fail at startup fails here: config fetching, account validation, provider
// dialing and key parsing.
func New(ctx context.Context, serverCfg *config.ServerConfig) (*Service, error) {
	s := &Service{
		serverCfg:     serverCfg,
		web3pool:      rpc.NewWeb3Pool(),
		chainManagers: make(map[uint64]*txmanager.TxManager),
	}
	if err := s.loadExternalConfigs(ctx); err != nil {
		return nil, err
	}
	if err := serverCfg.Validate(s.relayerCfg); err != nil {
		return nil, fmt.Errorf("validate accounts against relayer config: %w", err)
	}

	db, err := storage.New(serverCfg.Settings.SqliteDbPath)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	s.storage = db

	s.oracle = pricing.NewTokenPrice(serverCfg.Settings.CoinMarketCapApiKey)

	if err := s.setupAccounts(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	var bindings []channel.Binding
	for _, acc := range s.accounts {
		chainCfg := s.mystikoCfg.FindChain(acc.info.ChainID)
		bindings = append(bindings, channel.Binding{
			Account:           acc.info,
			MainAssetSymbol:   chainCfg.AssetSymbol,
			MainAssetDecimals: chainCfg.AssetDecimals,
			TxManager:         acc.txManager,
		})
	}
	s.registry = channel.NewRegistry(db, s.oracle, channel.DefaultQueueCapacity, bindings)
	log.Infow("channel registry ready", "producers", len(s.registry.Producers()))

	a, err := api.New(&api.APIConfig{
		ApiVersions:   serverCfg.Settings.ApiVersion,
		ServerConfig:  serverCfg,
		RelayerConfig: s.relayerCfg,
		MystikoConfig: s.mystikoCfg,
		Store:         db,
		Registry:      s.registry,
		Oracle:        s.oracle,
		GasPrice:      s.gasPrice,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("build API: %w", err)
	}
	s.api = a
	return s, nil
}

// loadExternalConfigs fetches the relayer and mystiko configurations
// concurrently.
func (s *Service) loadExternalConfigs(ctx context.Context) error {
	opts := &s.serverCfg.Options
	network := s.serverCfg.Settings.NetworkType
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cfg, err := config.LoadRelayerConfig(ctx, opts, network)
		if err != nil {
			return err
		}
		s.relayerCfg = cfg
		return nil
	})
	g.Go(func() error {
		cfg, err := config.LoadMystikoConfig(ctx, opts, network)
		if err != nil {
			return err
		}
		s.mystikoCfg = cfg
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	log.Infow("loaded external configs",
		"relayerConfigVersion", s.relayerCfg.Version,
		"mystikoConfigVersion", s.mystikoCfg.Version)
	return nil
}

// setupAccounts parses every signer key, dials the providers of every chain
// an account serves, builds the per-account transaction managers and resets
// the account registry in the store.
func (s *Service) setupAccounts(ctx context.Context) error {
	var records []types.RelayerAccount
	for i, accountCfg := range s.serverCfg.Accounts {
		chainCfg := s.mystikoCfg.FindChain(accountCfg.ChainID)
		if chainCfg == nil {
			return fmt.Errorf("accounts[%d]: chain id %d not found in mystiko config", i, accountCfg.ChainID)
		}
		if err := s.dialProviders(ctx, chainCfg); err != nil {
			return err
		}
		cli, err := s.web3pool.Client(accountCfg.ChainID)
		if err != nil {
			return err
		}
		signer, err := txmanager.NewSigner(accountCfg.PrivateKey)
		if err != nil {
			return fmt.Errorf("accounts[%d]: parse private key: %w", i, err)
		}
		tm, err := txmanager.New(cli, signer, txmanager.Config{
			ChainID: new(big.Int).SetUint64(accountCfg.ChainID),
			Eip1559: chainCfg.IsEip1559(),
		})
		if err != nil {
			return fmt.Errorf("accounts[%d]: build tx manager: %w", i, err)
		}
		if _, ok := s.chainManagers[accountCfg.ChainID]; !ok {
			s.chainManagers[accountCfg.ChainID] = tm
		}

		tokens := make([]string, len(accountCfg.SupportedErc20Tokens))
		for j, token := range accountCfg.SupportedErc20Tokens {
			tokens[j] = strings.ToLower(token)
		}
		info := types.RelayerAccount{
			ChainID:               accountCfg.ChainID,
			ChainAddress:          signer.Address().Hex(),
			Available:             accountCfg.IsAvailable(),
			SupportedErc20Tokens:  tokens,
			BalanceAlarmThreshold: accountCfg.BalanceAlarmThreshold,
			BalanceCheckInterval:  accountCfg.BalanceCheckInterval,
		}
		records = append(records, info)
		s.accounts = append(s.accounts, &account{info: info, config: accountCfg, txManager: tm})
		log.Infow("registered relayer account",
			"chainId", info.ChainID,
			"address", info.ChainAddress,
			"available", info.Available,
			"erc20Tokens", strings.Join(tokens, ","))
	}
	if err := s.storage.ResetAccounts(ctx, records); err != nil {
		return fmt.Errorf("reset accounts: %w", err)
	}
	return nil
}

// dialProviders registers every provider of the chain in the web3 pool. At
// least one provider must be reachable.
func (s *Service) dialProviders(ctx context.Context, chainCfg *config.ChainConfig) error {
	if s.web3pool.NumberOfEndpoints(chainCfg.ChainID) > 0 {
		return nil
	}
	for _, provider := range chainCfg.Providers {
		chainID, err := s.web3pool.AddEndpoint(ctx, provider.Url)
		if err != nil {
			log.Warnw("failed to add web3 endpoint",
				"url", provider.Url, "error", err.Error())
			continue
		}
		if chainID != chainCfg.ChainID {
			return fmt.Errorf("provider %s serves chain %d, expected %d",
				provider.Url, chainID, chainCfg.ChainID)
		}
	}
	if s.web3pool.NumberOfEndpoints(chainCfg.ChainID) == 0 {
		return fmt.Errorf("no reachable providers for chain %d", chainCfg.ChainID)
	}
	return nil
}

// gasPrice quotes the current gas price for a chain using that chain's
// transaction manager.
func (s *Service) gasPrice(ctx context.Context, chainID uint64) (*big.Int, error) {
	tm, ok := s.chainManagers[chainID]
	if !ok {
		return nil, fmt.Errorf("no account serves chain %d", chainID)
	}
	return tm.GasPrice(ctx)
}

// Run serves the API and the account channels until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.serverCfg.Settings.Host, s.serverCfg.Settings.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: s.api.Router(),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.registry.Run(ctx)
	})
	for _, acc := range s.accounts {
		g.Go(func() error {
			s.watchBalance(ctx, acc)
			return nil
		})
	}
	g.Go(func() error {
		log.Infow("starting HTTP server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	err := g.Wait()
	s.web3pool.Close()
	if closeErr := s.storage.Close(); closeErr != nil {
		log.Warnw("failed to close storage", "error", closeErr.Error())
	}
	return err
}
