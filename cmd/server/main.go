package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"neuriax/internal/config"
	"neuriax/internal/infra"
	"neuriax/internal/repository"
	"neuriax/internal/router"
	"neuriax/internal/service"
	"neuriax/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

func main() {
	// Structured logger — dev: pretty, prod: JSON
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Composition root: the worker pool and the background sweep get full
	// access to infrastructure here, not through the HTTP layer.
	mailer := infra.NewMailer(cfg)
	invoiceRepo := repository.NewInvoiceRepository(db)
	dispatcher := worker.NewDispatcher(rdb)

	worker.StartWorkerPool(ctx, rdb, worker.Handlers{
		Email: worker.NewEmailWorker(invoiceRepo, mailer),
	}, cfg.WorkerPoolSize)
	worker.StartOverdueSweep(ctx, invoiceRepo, time.Duration(cfg.OverdueSweepSeconds)*time.Second)

	// Card charges are verified through the gateway sidecar behind a circuit
	// breaker so a downed sidecar degrades fast instead of hanging requests.
	var gateway service.ChargeConfirmer
	if cfg.GatewayURL != "" {
		gateway = newGuardedGateway(infra.NewGatewayClient(cfg.GatewayURL), infra.NewBreaker("payment-gateway", infra.DefaultBreakerConfig()))
	}

	r := router.New(cfg, db, rdb, gateway, dispatcher)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("neuriax backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}

// guardedGateway runs every confirmation through the circuit breaker.
type guardedGateway struct {
	client *infra.GatewayClient
	cb     *infra.Breaker
}

func newGuardedGateway(client *infra.GatewayClient, cb *infra.Breaker) *guardedGateway {
	return &guardedGateway{client: client, cb: cb}
}

func (g *guardedGateway) ConfirmCharge(ctx context.Context, reference string, amount decimal.Decimal, currency string) error {
	return g.cb.Do(func() error {
		return g.client.ConfirmCharge(ctx, reference, amount, currency)
	})
}
