package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erazemk/vodnik/internal/account"
	"github.com/erazemk/vodnik/internal/api"
	"github.com/erazemk/vodnik/internal/config"
	"github.com/erazemk/vodnik/internal/favorites"
	"github.com/erazemk/vodnik/internal/metrics"
	"github.com/erazemk/vodnik/internal/search"
	"github.com/erazemk/vodnik/internal/ticketmaster"
)

var errHelp = errors.New("help requested")

// commonFlags are shared by every command. Set flags override the environment.
type commonFlags struct {
	envFile string
	backend string
	logPath string
	color   bool
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.envFile, "env", ".env", "")
	fs.StringVar(&c.envFile, "e", ".env", "")
	fs.StringVar(&c.backend, "backend", "", "")
	fs.StringVar(&c.backend, "b", "", "")
	fs.StringVar(&c.logPath, "log", "", "")
	fs.StringVar(&c.logPath, "l", "", "")
	fs.BoolVar(&c.color, "color", false, "")
}

// load reads configuration, applies flag overrides and installs the logger.
func (c *commonFlags) load(fs *flag.FlagSet) (*config.Config, func(), error) {
	cfg, err := config.Load(c.envFile)
	if err != nil {
		return nil, nil, err
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if c.backend != "" {
		cfg.Backend = c.backend
	}
	if c.logPath != "" {
		cfg.LogPath = c.logPath
	}
	if set["color"] {
		cfg.LogColor = c.color
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	closeLog, err := setupLogger(cfg.LogPath, cfg.SlogLevel(), cfg.LogColor)
	if err != nil {
		return nil, nil, err
	}
	if closeLog == nil {
		closeLog = func() {}
	}
	if cfg.EnvFile != "" {
		slog.Info("loaded environment file", "path", cfg.EnvFile)
	}
	return cfg, closeLog, nil
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return errHelp
		}
		return err
	}
	if fs.NArg() > 0 {
		fs.Usage()
		return fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}
	return nil
}

func cmdServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)

	var common commonFlags
	common.register(fs)

	var addr string
	fs.StringVar(&addr, "addr", "", "")
	fs.StringVar(&addr, "a", "", "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: vodnik serve [flags]

Flags:
  -a, -addr <host:port>   listen address (default: $VODNIK_ADDR or :8080)
  -b, -backend <name>     sqlite, redis, postgres or dynamodb (default: $VODNIK_BACKEND or sqlite)
  -e, -env <path>         environment file to load if present (default: .env)
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
      -color              coloured console logs
  -h, -help               show this help and exit
`)
	}

	if err := parseFlags(fs, args); err != nil {
		return err
	}

	cfg, closeLog, err := common.load(fs)
	if err != nil {
		return err
	}
	defer closeLog()
	if addr != "" {
		cfg.Addr = addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := openBackend(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening %s backend: %w", cfg.Backend, err)
	}
	defer func() {
		slog.Info("closing backend", "backend", cfg.Backend)
		if err := backend.Close(); err != nil {
			slog.Error("closing backend", "error", err)
		}
	}()
	slog.Info("backend ready", "backend", cfg.Backend)

	secret, err := jwtSecret(ctx, cfg, backend)
	if err != nil {
		return fmt.Errorf("getting JWT secret: %w", err)
	}

	if cfg.TicketmasterAPIKey == "" {
		slog.Warn("ticketmaster api key not set, searches will fail", "env", "TICKETMASTER_API_KEY")
	}
	m := metrics.New()
	provider := ticketmaster.New(ticketmaster.Config{
		BaseURL: cfg.TicketmasterURL,
		APIKey:  cfg.TicketmasterAPIKey,
		Radius:  cfg.TicketmasterRadius,
	})

	handler := api.NewRouter(api.Deps{
		Accounts:    account.NewQuery(backend),
		Favorites:   favorites.NewService(backend),
		Search:      search.New(provider, backend, m),
		Metrics:     m,
		JWTSecret:   secret,
		TokenTTL:    cfg.TokenTTL,
		CORSOrigins: cfg.CORSOrigins,
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", cfg.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
