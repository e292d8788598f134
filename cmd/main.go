package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/echelon/internal/adapters/oracle"
	"github.com/okian/echelon/internal/adapters/repository"
	app "github.com/okian/echelon/internal/app"
	"github.com/okian/echelon/internal/config"
	"github.com/okian/echelon/internal/domain/upgrade"
	"github.com/okian/echelon/pkg/logger"
	"github.com/okian/echelon/pkg/metrics"
)

// Metrics server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if cfg.MetricsAddr != "" {
		go serveMetrics(ctx, cfg.MetricsAddr)
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "recompute failed", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	store, err := repository.New(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn(ctx, "closing database", logger.Error(err))
		}
	}()

	rules := upgrade.DefaultRules()
	if cfg.RulesFile != "" {
		if rules, err = upgrade.LoadRulesFile(cfg.RulesFile); err != nil {
			return err
		}
	}

	oracleOpts := []oracle.Option{}
	if cfg.OracleBaseURL != "" {
		fetcher := oracle.NewHTTPFetcher(cfg.OracleBaseURL,
			oracle.WithHTTPClient(&http.Client{
				Timeout: time.Duration(cfg.OracleTimeoutMS) * time.Millisecond,
			}))
		oracleOpts = append(oracleOpts, oracle.WithFetcher(fetcher))
	}

	svc, err := app.New(store,
		app.WithLogger(log),
		app.WithRules(rules),
		app.WithOracle(oracle.NewService(store, oracleOpts...)),
	)
	if err != nil {
		return err
	}

	for _, discipline := range cfg.Disciplines {
		if err := svc.Recalculate(ctx, discipline); err != nil {
			return err
		}

		pending, err := svc.SummarizeUpgrades(ctx, discipline)
		if err != nil {
			return err
		}
		for _, p := range pending {
			log.Info(ctx, "upgrade pending",
				logger.String("discipline", discipline),
				logger.String("name", p.FirstName+" "+p.LastName),
				logger.String("categories", p.Categories.String()),
				logger.Int("points", p.Sum),
				logger.Date("last_race", p.LastRaceDate))
		}
	}
	return nil
}

func serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Get().Warn(ctx, "metrics server stopped", logger.Error(err))
	}
}
