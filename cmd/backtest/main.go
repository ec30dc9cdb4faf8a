package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"coindrift/internal/backtest"
	"coindrift/internal/config"
	"coindrift/internal/db"
	"coindrift/internal/decision"
	"coindrift/internal/domain"
	"coindrift/internal/provider"
	"coindrift/internal/repository"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel/trace"
)

var loadEnvFunc = godotenv.Load

type options struct {
	market      string
	granularity int
	speed       string
	verbose     bool
}

func main() {
	loadEnvFunc()

	cfg := config.Load()
	opts, err := parseOptions(os.Args[1:], cfg)
	if err != nil {
		log.Fatalf("parse options: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	tracer := trace.NewNoopTracerProvider().Tracer("backtest")
	source := provider.NewPublicClient(cfg.ExchangeAPIURL)
	engine := decision.NewEngine(cfg.Thresholds)

	runner := backtest.NewRunner(tracer, opts.market, opts.granularity, source, engine, opts.speed)
	runner.SetVerbose(opts.verbose)

	db.InitPostgres(ctx, cfg.DatabaseURL)

	log.Printf("starting simulation: market=%s granularity=%d speed=%s", opts.market, opts.granularity, opts.speed)

	res, err := runner.Run(ctx)
	if err != nil {
		log.Fatalf("simulation failed: %v", err)
	}
	for _, line := range res.Summary() {
		fmt.Println(line)
	}

	if db.Pool != nil {
		repo := repository.NewSimulationRepository(db.Pool, tracer)
		if err := repo.RunMigrations(ctx); err != nil {
			log.Fatalf("failed to run simulation migrations: %v", err)
		}
		id, err := repo.SaveResult(ctx, res)
		if err != nil {
			log.Fatalf("failed to save simulation result: %v", err)
		}
		log.Printf("saved simulation result %d", id)
	}
}

func parseOptions(args []string, cfg *config.Config) (options, error) {
	fs := flag.NewFlagSet("backtest", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	market := fs.String("market", cfg.Market, "market to simulate, e.g. BTC-GBP")
	granularity := fs.Int("granularity", cfg.Granularity, "candle interval in seconds")
	speed := fs.String("speed", defaultSpeed(cfg), "simulation speed: slow, fast, slow-sample, or fast-sample")
	verbose := fs.Bool("verbose", cfg.Verbose, "print the status line for every simulated tick")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	opts := options{
		market:      strings.ToUpper(strings.TrimSpace(*market)),
		granularity: *granularity,
		speed:       strings.ToLower(strings.TrimSpace(*speed)),
		verbose:     *verbose,
	}
	if !domain.ValidMarket(opts.market) {
		return options{}, fmt.Errorf("unsupported market %q", opts.market)
	}
	if !domain.ValidGranularity(opts.granularity) {
		return options{}, fmt.Errorf("unsupported granularity %d", opts.granularity)
	}
	if !validSpeed(opts.speed) {
		return options{}, fmt.Errorf("unsupported speed %q", opts.speed)
	}
	return opts, nil
}

func defaultSpeed(cfg *config.Config) string {
	if cfg.SimSpeed != "" {
		return cfg.SimSpeed
	}
	return "fast"
}

func validSpeed(speed string) bool {
	for _, s := range config.SimSpeeds {
		if s == speed {
			return true
		}
	}
	return false
}
