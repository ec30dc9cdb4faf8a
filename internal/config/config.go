package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"coindrift/internal/domain"
)

// SimSpeeds are the supported simulation pacing modes.
var SimSpeeds = []string{"slow", "fast", "slow-sample", "fast-sample"}

type Config struct {
	Market      string
	Granularity int

	Live     bool
	Sim      bool
	SimSpeed string
	Verbose  bool

	Thresholds domain.Thresholds
	PollSecs   int

	DatabaseURL      string
	RedisURL         string
	TelegramBotToken string

	ExchangeAPIURL     string
	ExchangeKey        string
	ExchangeSecret     string
	ExchangePassphrase string
	TrackerCSVPath     string
	HTTPPort           int
	OTLPEndpoint       string

	SSHAddr        string
	SSHHostKeyPath string
}

func Load() *Config {
	cfg := &Config{
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		TelegramBotToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		ExchangeAPIURL:     os.Getenv("EXCHANGE_API_URL"),
		ExchangeKey:        os.Getenv("EXCHANGE_API_KEY"),
		ExchangeSecret:     os.Getenv("EXCHANGE_API_SECRET"),
		ExchangePassphrase: os.Getenv("EXCHANGE_API_PASSPHRASE"),
		OTLPEndpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if cfg.DatabaseURL == "" {
		log.Println("Warning: DATABASE_URL not set, candle and trade history will not persist")
	}
	if cfg.RedisURL == "" {
		log.Println("Warning: REDIS_URL not set, defaulting to localhost:6379")
		cfg.RedisURL = "localhost:6379"
	}
	if cfg.TelegramBotToken == "" {
		log.Println("Warning: TELEGRAM_BOT_TOKEN not set")
	}

	cfg.Market = strings.ToUpper(strings.TrimSpace(os.Getenv("MARKET")))
	if cfg.Market == "" {
		cfg.Market = "BTC-GBP"
	}
	if !domain.ValidMarket(cfg.Market) {
		log.Fatalf("invalid market %q: base %v, quote %v",
			cfg.Market, domain.SupportedBaseAssets, domain.SupportedQuoteAssets)
	}

	cfg.Granularity = 3600
	if v := strings.TrimSpace(os.Getenv("GRANULARITY")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || !domain.ValidGranularity(n) {
			log.Fatalf("invalid granularity %q: options %v", v, domain.SupportedGranularities)
		}
		cfg.Granularity = n
	}

	cfg.Live = strings.EqualFold(strings.TrimSpace(os.Getenv("LIVE")), "true")

	cfg.SimSpeed = strings.ToLower(strings.TrimSpace(os.Getenv("SIM")))
	if cfg.SimSpeed != "" {
		if !validSimSpeed(cfg.SimSpeed) {
			log.Printf("Warning: unsupported SIM=%q, disabling simulation", cfg.SimSpeed)
			cfg.SimSpeed = ""
		} else {
			cfg.Sim = true
			// a simulation never trades live funds
			cfg.Live = false
		}
	}

	cfg.Verbose = strings.EqualFold(strings.TrimSpace(os.Getenv("VERBOSE")), "true")

	// Failsafe bounds: upper in (0,100], lower in [-100,0). Out-of-range
	// values leave the bound disabled, matching the 0 sentinel.
	if v := strings.TrimSpace(os.Getenv("SELL_UPPER_PCNT")); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n > 0 && n <= 100 {
			cfg.Thresholds.UpperPct = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("SELL_LOWER_PCNT")); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n >= -100 && n < 0 {
			cfg.Thresholds.LowerPct = n
		}
	}

	cfg.PollSecs = 300
	if v := strings.TrimSpace(os.Getenv("POLL_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PollSecs = n
		}
	}

	cfg.HTTPPort = 8080
	if v := strings.TrimSpace(os.Getenv("HTTP_PORT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HTTPPort = n
		}
	}

	cfg.TrackerCSVPath = strings.TrimSpace(os.Getenv("TRACKER_CSV_PATH"))
	if cfg.TrackerCSVPath == "" {
		cfg.TrackerCSVPath = "tracker.csv"
	}

	cfg.SSHAddr = strings.TrimSpace(os.Getenv("DASHBOARD_SSH_ADDR"))
	if cfg.SSHAddr == "" {
		cfg.SSHAddr = ":2222"
	}
	cfg.SSHHostKeyPath = strings.TrimSpace(os.Getenv("DASHBOARD_HOST_KEY"))
	if cfg.SSHHostKeyPath == "" {
		cfg.SSHHostKeyPath = ".ssh/coindrift_ed25519"
	}

	if cfg.ExchangeAPIURL == "" {
		cfg.ExchangeAPIURL = "https://api.exchange.coinbase.com"
	}
	if cfg.Live && (cfg.ExchangeKey == "" || cfg.ExchangeSecret == "" || cfg.ExchangePassphrase == "") {
		log.Fatal("LIVE=true requires EXCHANGE_API_KEY, EXCHANGE_API_SECRET and EXCHANGE_API_PASSPHRASE")
	}

	return cfg
}

func validSimSpeed(speed string) bool {
	for _, s := range SimSpeeds {
		if s == speed {
			return true
		}
	}
	return false
}
