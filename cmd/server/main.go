package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/rtavares/brickvault-backend/internal/adapter/chain"
	httpadapter "github.com/rtavares/brickvault-backend/internal/adapter/http"
	"github.com/rtavares/brickvault-backend/internal/adapter/repository/memory"
	"github.com/rtavares/brickvault-backend/internal/adapter/repository/postgres"
	"github.com/rtavares/brickvault-backend/internal/domain"
	"github.com/rtavares/brickvault-backend/internal/usecase/governance"
	"github.com/rtavares/brickvault-backend/internal/usecase/investment"
	"github.com/rtavares/brickvault-backend/internal/usecase/marketplace"
	"github.com/rtavares/brickvault-backend/internal/usecase/portfolio"
	"github.com/rtavares/brickvault-backend/internal/usecase/registry"
	"github.com/rtavares/brickvault-backend/internal/usecase/rent"
	"github.com/rtavares/brickvault-backend/internal/usecase/sweeper"
	"github.com/rtavares/brickvault-backend/pkg/config"
	"github.com/rtavares/brickvault-backend/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to YAML config file")
	inMemory := flag.Bool("in-memory", false, "run against an in-memory ledger instead of Postgres")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("failed to load config")
	}

	log := logger.NewWithConfig(cfg.Logger)

	ledger, cleanup, err := newLedger(cfg, *inMemory, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open ledger store")
	}
	defer cleanup()

	gateway := newChainGateway(cfg, log)

	initialBalance, err := decimal.NewFromString(cfg.Ledger.InitialAccountBalanceUSD)
	if err != nil {
		log.Fatal().Err(err).
			Str("value", cfg.Ledger.InitialAccountBalanceUSD).
			Msg("invalid initial account balance")
	}

	registrySvc := registry.NewService(ledger, gateway, initialBalance, log)
	investmentSvc := investment.NewService(ledger, gateway, log)
	marketplaceSvc := marketplace.NewService(ledger, gateway, log)
	governanceSvc := governance.NewService(ledger, log)
	rentSvc := rent.NewService(ledger, log)
	portfolioSvc := portfolio.NewService(ledger, log)

	handler := httpadapter.NewHandler(
		registrySvc, investmentSvc, marketplaceSvc, governanceSvc, rentSvc, portfolioSvc, log)

	scheduler := cron.New()
	windowSweeper := sweeper.New(ledger, log)
	if _, err := scheduler.AddFunc(cfg.Sweeper.Schedule, func() {
		if err := windowSweeper.Run(context.Background()); err != nil {
			log.Error().Err(err).Msg("proposal window sweep failed")
		}
	}); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.Sweeper.Schedule).Msg("invalid sweeper schedule")
	}
	scheduler.Start()

	addr := net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(server, scheduler, log)
}

// newLedger opens the transactional store backing all settlement. The
// in-memory store exists for local development and demos where a database
// is not worth the setup.
func newLedger(cfg *config.Config, inMemory bool, log zerolog.Logger) (domain.Ledger, func(), error) {
	if inMemory {
		log.Warn().Msg("running with in-memory ledger, state will not survive restarts")
		return memory.NewStore(), func() {}, nil
	}

	db, err := postgres.Connect(cfg.Database.DSN())
	if err != nil {
		return nil, nil, err
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)

	log.Info().
		Str("host", cfg.Database.Host).
		Str("database", cfg.Database.DBName).
		Msg("connected to postgres")
	return postgres.NewStore(db), func() { _ = db.Close() }, nil
}

// newChainGateway selects the mirror backend. Settlement never depends on
// the chain being reachable, so a misconfigured gateway degrades to noop
// rather than failing startup.
func newChainGateway(cfg *config.Config, log zerolog.Logger) domain.ChainGateway {
	if !cfg.Chain.Enabled {
		log.Info().Msg("chain mirroring disabled")
		return chain.NewNoop()
	}

	gateway, err := chain.NewSolanaGateway(
		cfg.Chain.RPCURL,
		cfg.Chain.FeePayerKey,
		cfg.Chain.GasAirdropLamports,
		time.Duration(cfg.Chain.CommitTimeoutS)*time.Second,
		log,
	)
	if err != nil {
		log.Error().Err(err).Msg("chain gateway misconfigured, falling back to noop")
		return chain.NewNoop()
	}

	log.Info().Str("rpc_url", cfg.Chain.RPCURL).Msg("solana chain mirroring enabled")
	return gateway
}

// waitForShutdown blocks until SIGTERM or SIGINT, then drains in-flight
// requests before exiting.
func waitForShutdown(server *http.Server, scheduler *cron.Cron, log zerolog.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("shutting down")

	cronCtx := scheduler.Stop()
	<-cronCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("http server shutdown failed")
	}
	log.Info().Msg("server stopped")
}
