package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"coindrift/internal/cache"
	"coindrift/internal/config"
	"coindrift/internal/db"
	"coindrift/internal/provider"
	"coindrift/internal/repository"
	"coindrift/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/activeterm"
	bm "github.com/charmbracelet/wish/bubbletea"
	wishlog "github.com/charmbracelet/wish/logging"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel/trace"
	gossh "golang.org/x/crypto/ssh"
)

// UserStore is the subset of the SSH user repository the dashboard needs.
type UserStore interface {
	FindByFingerprint(ctx context.Context, fingerprint string) (*repository.SSHUser, error)
	UpdateLastLogin(ctx context.Context, id int64) error
	AddUser(ctx context.Context, username, publicKey, fingerprint string) (int64, error)
}

var (
	loadEnvFunc       = godotenv.Load
	loadConfigFunc    = config.Load
	initPostgresFunc  = db.InitPostgres
	initRedisFunc     = cache.InitRedis
	runProgramFunc    = func(p *tea.Program) error { _, err := p.Run(); return err }
	listenAndServe    = func(srv *ssh.Server) error { return srv.ListenAndServe() }
	shutdownSSHServer = func(srv *ssh.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
	setupSignalNotify = ossignal.Notify
	waitForSignalFunc = func(quit <-chan os.Signal) { <-quit }
)

type options struct {
	serve     bool
	authorize string
	keyPath   string
}

func parseOptions(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("dashboard", flag.ContinueOnError)
	fs.BoolVar(&opts.serve, "serve", false, "serve the dashboard over SSH instead of the local terminal")
	fs.StringVar(&opts.authorize, "authorize", "", "authorize a user for SSH access and exit")
	fs.StringVar(&opts.keyPath, "key", "", "authorized_keys style public key file for -authorize")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.authorize != "" && opts.keyPath == "" {
		return opts, fmt.Errorf("-authorize requires -key")
	}
	return opts, nil
}

func main() {
	loadEnvFunc()

	opts, err := parseOptions(os.Args[1:])
	if err != nil {
		log.Fatalf("invalid options: %v", err)
	}

	cfg := loadConfigFunc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	initPostgresFunc(ctx, cfg.DatabaseURL)
	initRedisFunc(ctx, cfg.RedisURL)

	tracer := trace.NewNoopTracerProvider().Tracer("dashboard")

	var users UserStore
	if db.Pool != nil {
		userRepo := repository.NewSSHUserRepository(db.Pool, tracer)
		if err := userRepo.RunMigrations(ctx); err != nil {
			log.Fatalf("failed to run ssh user migrations: %v", err)
		}
		users = userRepo
	}

	if opts.authorize != "" {
		if err := authorizeUser(ctx, users, opts.authorize, opts.keyPath); err != nil {
			log.Fatalf("failed to authorize user: %v", err)
		}
		return
	}

	svc := tui.Services{
		Market:      cfg.Market,
		Granularity: cfg.Granularity,
		Price:       provider.NewPublicClient(cfg.ExchangeAPIURL),
	}
	if cache.Client != nil {
		svc.Status = cache.NewStateStore(cache.Client)
	}
	if db.Pool != nil {
		svc.Trades = repository.NewTradeRepository(db.Pool, tracer)
		svc.Simulations = repository.NewSimulationRepository(db.Pool, tracer)
	}

	if !opts.serve {
		m := tui.NewAppModel(svc)
		if err := runProgramFunc(tea.NewProgram(m, tea.WithAltScreen())); err != nil {
			log.Fatalf("dashboard exited: %v", err)
		}
		return
	}

	if users == nil {
		log.Fatal("serving over SSH requires DATABASE_URL for key authorization")
	}

	srv, err := newSSHServer(cfg, svc, users)
	if err != nil {
		log.Fatalf("failed to create ssh server: %v", err)
	}

	go func() {
		log.Printf("Serving dashboard on %s", cfg.SSHAddr)
		if err := listenAndServe(srv); err != nil && err != ssh.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownSSHServer(srv, shutdownCtx); err != nil {
		log.Printf("ssh server shutdown: %v", err)
	}
}

func newSSHServer(cfg *config.Config, svc tui.Services, users UserStore) (*ssh.Server, error) {
	return wish.NewServer(
		wish.WithAddress(cfg.SSHAddr),
		wish.WithHostKeyPath(cfg.SSHHostKeyPath),
		wish.WithPublicKeyAuth(func(sctx ssh.Context, key ssh.PublicKey) bool {
			fp := gossh.FingerprintSHA256(key)
			user, err := users.FindByFingerprint(sctx, fp)
			if err != nil {
				log.Printf("key lookup failed for %s: %v", fp, err)
				return false
			}
			if user == nil {
				return false
			}
			sctx.SetValue("dashboard-user", user.Username)
			if err := users.UpdateLastLogin(sctx, user.ID); err != nil {
				log.Printf("failed to record login for %s: %v", user.Username, err)
			}
			return true
		}),
		wish.WithMiddleware(
			bm.Middleware(teaHandler(svc)),
			activeterm.Middleware(),
			wishlog.Middleware(),
		),
	)
}

// teaHandler builds a per-session model sized to the client terminal.
func teaHandler(svc tui.Services) bm.Handler {
	return func(s ssh.Session) (tea.Model, []tea.ProgramOption) {
		sessionSvc := svc
		if name, ok := s.Context().Value("dashboard-user").(string); ok {
			sessionSvc.Username = name
		}
		pty, _, _ := s.Pty()
		m := tui.NewAppModel(sessionSvc)
		m.SetSize(pty.Window.Width, pty.Window.Height)
		return m, []tea.ProgramOption{tea.WithAltScreen()}
	}
}

// authorizeUser registers a public key so its owner can log in over SSH.
func authorizeUser(ctx context.Context, users UserStore, username, keyPath string) error {
	if users == nil {
		return fmt.Errorf("authorizing users requires DATABASE_URL")
	}
	raw, err := os.ReadFile(keyPath)
	if err != nil {
		return fmt.Errorf("read key file: %w", err)
	}
	key, _, _, _, err := gossh.ParseAuthorizedKey(raw)
	if err != nil {
		return fmt.Errorf("parse public key: %w", err)
	}
	id, err := users.AddUser(ctx, username, string(gossh.MarshalAuthorizedKey(key)), gossh.FingerprintSHA256(key))
	if err != nil {
		return err
	}
	log.Printf("authorized %s (id %d)", username, id)
	return nil
}
