// mystiko-relayer runs the transaction relayer: it accepts shielded-pool
// transact requests over HTTP, prices them, and submits them on chain with
// the configured signer accounts.
package main

import (
	"context"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/mystikonetwork/relayer/config"
	"github.com/mystikonetwork/relayer/internal"
	"github.com/mystikonetwork/relayer/log"
	"github.com/mystikonetwork/relayer/service"
)

func main() {
	pflag.StringP("config", "c", "", "path to the TOML server configuration file")
	pflag.String("log-level", "", "log level override (debug, info, warn, error)")
	pflag.String("log-output", "stdout", "log output (stdout, stderr or file path)")
	pflag.Parse()

	v := viper.New()
	v.SetEnvPrefix(config.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(pflag.CommandLine); err != nil {
		panic(err)
	}

	serverCfg, err := config.LoadServerConfig(v.GetString("config"))
	if err != nil {
		log.Fatalf("failed to load server config: %v", err)
	}
	logLevel := serverCfg.Settings.LogLevel
	if override := v.GetString("log-level"); override != "" {
		logLevel = override
	}
	log.Init(logLevel, v.GetString("log-output"))
	log.Infow("starting mystiko relayer",
		"version", internal.Version,
		"network", string(serverCfg.Settings.NetworkType),
		"apiVersions", strings.Join(serverCfg.Settings.ApiVersion, ","))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := service.New(ctx, serverCfg)
	if err != nil {
		log.Fatalf("failed to build relayer service: %v", err)
	}
	if err := svc.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("relayer service stopped: %v", err)
	}
	log.Info("relayer service stopped")
}
