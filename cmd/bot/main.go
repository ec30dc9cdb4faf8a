package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"coindrift/internal/account"
	"coindrift/internal/backtest"
	"coindrift/internal/bot"
	"coindrift/internal/cache"
	"coindrift/internal/config"
	"coindrift/internal/db"
	"coindrift/internal/decision"
	"coindrift/internal/domain"
	"coindrift/internal/handler"
	"coindrift/internal/job"
	"coindrift/internal/metrics"
	"coindrift/internal/provider"
	"coindrift/internal/repository"
	"coindrift/internal/service"
	"coindrift/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"
)

var (
	loadEnvFunc            = godotenv.Load
	loadConfigFunc         = config.Load
	initPostgresFunc       = db.InitPostgres
	initRedisFunc          = cache.InitRedis
	initTracerFunc         = tracing.InitTracer
	newCandleRepoFunc      = repository.NewCandleRepository
	newTradeRepoFunc       = repository.NewTradeRepository
	newMetricsFunc         = metrics.New
	newPublicClientFunc    = provider.NewPublicClient
	newTradeServiceFunc    = service.NewTradeService
	newTickPollerFunc      = job.NewTickPoller
	startPollerFunc        = func(p *job.TickPoller, ctx context.Context) { go p.Start(ctx) }
	startTickerStreamFunc  = func(s *provider.TickerStream, ctx context.Context) { go s.Run(ctx) }
	startTelegramBotFunc   = bot.StartTelegramBot
	runSimulationFunc      = runSimulation
	newHandlerFunc         = handler.New
	newRouterFunc          = gin.Default
	setupSignalNotify      = ossignal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

func main() {
	loadEnvFunc()

	cfg := loadConfigFunc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	initPostgresFunc(ctx, cfg.DatabaseURL)
	initRedisFunc(ctx, cfg.RedisURL)

	if cfg.OTLPEndpoint != "" {
		os.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTLPEndpoint)
	}
	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	engine := decision.NewEngine(cfg.Thresholds)
	source := newPublicClientFunc(cfg.ExchangeAPIURL)

	if cfg.Sim {
		if err := runSimulationFunc(ctx, cfg, tracer, source, engine); err != nil {
			log.Fatalf("simulation failed: %v", err)
		}
		return
	}

	candleRepo := newCandleRepoFunc(db.Pool, tracer)
	tradeRepo := newTradeRepoFunc(db.Pool, tracer)

	deps := service.TradeServiceDeps{
		Metrics:  newMetricsFunc(nil),
		Recorder: account.NewTracker(cfg.TrackerCSVPath),
	}
	if db.Pool != nil {
		if err := candleRepo.RunMigrations(ctx); err != nil {
			log.Fatalf("failed to run candle migrations: %v", err)
		}
		if err := tradeRepo.RunMigrations(ctx); err != nil {
			log.Fatalf("failed to run trade migrations: %v", err)
		}
		deps.CandleStore = candleRepo
		deps.TradeStore = tradeRepo
	}
	if cache.Client != nil {
		deps.StateStore = cache.NewStateStore(cache.Client)
	}

	var exchange *account.Client
	if cfg.Live {
		exchange = account.NewClient(cfg.ExchangeAPIURL, account.Credentials{
			Key:        cfg.ExchangeKey,
			Secret:     cfg.ExchangeSecret,
			Passphrase: cfg.ExchangePassphrase,
		})
		deps.Executor = account.NewExecutor(exchange)
	}

	svc := newTradeServiceFunc(tracer, cfg.Market, cfg.Granularity, source, engine, deps)
	svc.SetVerbose(cfg.Verbose)
	seedPosition(ctx, cfg, svc, exchange)

	if dispatcher := startTelegramBotFunc(cfg.TelegramBotToken, cfg.Market, cfg.Granularity, source, source, svc, tradeLister(tradeRepo)); dispatcher != nil {
		svc.SetNotifier(dispatcher)
	}

	stream := provider.NewTickerStream("", cfg.Market)
	startTickerStreamFunc(stream, ctx)
	go func() {
		for upd := range stream.Updates() {
			svc.SetPriceHint(upd.Price)
		}
	}()

	poller := newTickPollerFunc(tracer, svc, time.Duration(cfg.PollSecs)*time.Second)
	startPollerFunc(poller, ctx)

	h := newHandlerFunc(tracer, cfg.Market, cfg.Granularity, svc, candleLister(candleRepo), tradeLister(tradeRepo))

	r := newRouterFunc()
	r.Use(otelgin.Middleware("coindrift"))
	h.RegisterRoutes(r)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: r,
	}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}

// seedPosition decides where the bot starts: live runs probe the exchange
// account, everything else restores persisted state when available.
func seedPosition(ctx context.Context, cfg *config.Config, svc *service.TradeService, exchange *account.Client) {
	if cfg.Live && exchange != nil {
		action, err := account.ProbePosition(ctx, exchange, cfg.Market)
		if err != nil {
			log.Fatalf("failed to probe account position: %v", err)
		}
		lastBuy := 0.0
		if action == domain.ActionBuy {
			lastBuy, err = account.LastBuyPrice(ctx, exchange, cfg.Market)
			if err != nil {
				log.Printf("failed to resolve last buy price: %v", err)
			}
		}
		svc.SeedPosition(action, lastBuy)
		log.Printf("Seeded position from exchange: %s", action)
		return
	}

	restored, err := svc.Restore(ctx)
	if err != nil {
		log.Printf("failed to restore persisted state: %v", err)
	} else if restored {
		log.Println("Restored persisted decision state")
	}
}

// runSimulation replays historical candles through the decision engine and
// prints the summary.
func runSimulation(ctx context.Context, cfg *config.Config, tracer trace.Tracer, source *provider.PublicClient, engine *decision.Engine) error {
	runner := backtest.NewRunner(tracer, cfg.Market, cfg.Granularity, source, engine, cfg.SimSpeed)
	runner.SetVerbose(cfg.Verbose)

	res, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	for _, line := range res.Summary() {
		log.Println(line)
	}
	return nil
}

// tradeLister and candleLister keep a nil repository from reaching the
// handler as a non-nil interface.
func tradeLister(repo *repository.TradeRepository) handler.TradeLister {
	if db.Pool == nil {
		return nil
	}
	return repo
}

func candleLister(repo *repository.CandleRepository) handler.CandleLister {
	if db.Pool == nil {
		return nil
	}
	return repo
}
