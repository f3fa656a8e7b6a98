package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goodnatureofminers/stealthwatch-backend/internal/metrics"
	"github.com/goodnatureofminers/stealthwatch-backend/internal/stealth/ethereum"
	"github.com/goodnatureofminers/stealthwatch-backend/internal/stealth/model"
	"github.com/goodnatureofminers/stealthwatch-backend/internal/stealth/service/scanner"
	"github.com/goodnatureofminers/stealthwatch-backend/internal/stealth/service/scheduler"
	"github.com/goodnatureofminers/stealthwatch-backend/pkg/safe"
	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type config struct {
	RPCURL      string        `long:"rpc-url" env:"STEALTH_SCANNER_RPC_URL" description:"Ethereum JSON-RPC URL" required:"true"`
	Network     model.Network `long:"network" env:"STEALTH_SCANNER_NETWORK" description:"network name" default:"sepolia"`
	RPS         int           `long:"rps" env:"STEALTH_SCANNER_RPS" description:"max RPC requests per second, 0 disables throttling" default:"10"`
	Announcer   string        `long:"announcer" env:"STEALTH_SCANNER_ANNOUNCER" description:"announcer contract address"`
	ChunkSize   int           `long:"chunk-size" env:"STEALTH_SCANNER_CHUNK_SIZE" description:"blocks per log query" default:"2000"`
	Lookback    int           `long:"lookback" env:"STEALTH_SCANNER_LOOKBACK" description:"blocks scanned behind head on first run" default:"10000"`
	Interval    time.Duration `long:"interval" env:"STEALTH_SCANNER_INTERVAL" description:"pause between scan rounds" default:"5m"`
	Workers     int           `long:"workers" env:"STEALTH_SCANNER_WORKERS" description:"owners scanned concurrently" default:"4"`
	MetricsAddr string        `long:"metrics-addr" env:"STEALTH_SCANNER_METRICS_ADDR" description:"address for metrics server" default:":2112"`

	Keystores []string `long:"keystore" env:"STEALTH_SCANNER_KEYSTORES" env-delim:"," description:"keystore file, repeatable" required:"true"`
	Password  string   `long:"keystore-password" env:"STEALTH_KEYSTORE_PASSWORD" description:"keystore password, prompted when empty"`

	Store         string `long:"store" env:"STEALTH_SCANNER_STORE" description:"persistence backend" choice:"clickhouse" choice:"redis" default:"clickhouse"`
	ClickhouseDSN string `long:"clickhouse-dsn" env:"STEALTH_SCANNER_CLICKHOUSE_DSN" description:"ClickHouse DSN"`
	RedisAddr     string `long:"redis-addr" env:"STEALTH_SCANNER_REDIS_ADDR" description:"Redis address" default:"127.0.0.1:6379"`
	RedisPassword string `long:"redis-password" env:"STEALTH_SCANNER_REDIS_PASSWORD" description:"Redis password"`
	RedisDB       int    `long:"redis-db" env:"STEALTH_SCANNER_REDIS_DB" description:"Redis database"`

	SMTPAddr     string   `long:"smtp-addr" env:"STEALTH_SCANNER_SMTP_ADDR" description:"SMTP relay host:port, email notifications are off when empty"`
	SMTPUser     string   `long:"smtp-user" env:"STEALTH_SCANNER_SMTP_USER" description:"SMTP username"`
	SMTPPassword string   `long:"smtp-password" env:"STEALTH_SCANNER_SMTP_PASSWORD" description:"SMTP password"`
	MailFrom     string   `long:"mail-from" env:"STEALTH_SCANNER_MAIL_FROM" description:"notification sender address"`
	MailTo       []string `long:"mail-to" env:"STEALTH_SCANNER_MAIL_TO" env-delim:"," description:"notification recipient, repeatable"`
}

func main() {
	cfg := config{}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic("can't initialize zap logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync()
	}()

	if _, err := flags.ParseArgs(&cfg, os.Args); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		logger.Fatal("failed to parse flags", zap.Error(err))
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("stealth scanner failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config, logger *zap.Logger) error {
	engineCfg, err := engineConfig(cfg)
	if err != nil {
		return err
	}

	owners, err := loadOwners(cfg.Keystores, cfg.Password, cfg.Network)
	if err != nil {
		return err
	}

	startMetricsServer(ctx, cfg.MetricsAddr, logger)

	node, err := ethereum.Dial(ctx, cfg.RPCURL)
	if err != nil {
		return err
	}
	defer node.Close()

	client := ethereum.NewClient(node, metrics.NewRPCClient(cfg.Network), cfg.RPS)
	if err := client.VerifyNetwork(ctx, cfg.Network); err != nil {
		return err
	}

	store, closeStore, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("failed to close store", zap.Error(err))
		}
	}()

	engines := make([]scheduler.Engine, 0, len(owners))
	for _, o := range owners {
		notifier, err := newNotifier(cfg, o.name, logger)
		if err != nil {
			return err
		}
		ownerCfg := engineCfg
		ownerCfg.Owner = o.name
		engine, err := scanner.NewEngine(
			ownerCfg,
			o.keys,
			client,
			client,
			client,
			store,
			notifier,
			metrics.NewScanner(cfg.Network, o.name),
			logger,
		)
		if err != nil {
			return fmt.Errorf("init engine for %s: %w", o.name, err)
		}
		engines = append(engines, engine)
	}

	sched, err := scheduler.New(engines, cfg.Interval, cfg.Workers, logger)
	if err != nil {
		return err
	}
	return sched.Run(ctx)
}

func engineConfig(cfg config) (scanner.Config, error) {
	if _, err := cfg.Network.ChainID(); err != nil {
		return scanner.Config{}, err
	}
	chunkSize, err := safe.PositiveUint64(cfg.ChunkSize)
	if err != nil {
		return scanner.Config{}, fmt.Errorf("chunk size: %w", err)
	}
	lookback, err := safe.PositiveUint64(cfg.Lookback)
	if err != nil {
		return scanner.Config{}, fmt.Errorf("lookback: %w", err)
	}

	engineCfg := scanner.Config{
		Network:   cfg.Network,
		ChunkSize: chunkSize,
		Lookback:  lookback,
	}
	if cfg.Announcer != "" {
		if !common.IsHexAddress(cfg.Announcer) {
			return scanner.Config{}, fmt.Errorf("invalid announcer address %q", cfg.Announcer)
		}
		engineCfg.Announcer = common.HexToAddress(cfg.Announcer)
	}
	return engineCfg, nil
}

func startMetricsServer(ctx context.Context, addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("starting metrics server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown metrics server", zap.Error(err))
		}
	}()
}
