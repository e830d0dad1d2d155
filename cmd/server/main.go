package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/klauspost/compress/gzhttp"

	"github.com/csg33k/visits-dashboard/internal/adapters/pdf"
	"github.com/csg33k/visits-dashboard/internal/adapters/plotchart"
	"github.com/csg33k/visits-dashboard/internal/adapters/redisstore"
	"github.com/csg33k/visits-dashboard/internal/adapters/reportapi"
	sqliteadapter "github.com/csg33k/visits-dashboard/internal/adapters/sqlite"
	"github.com/csg33k/visits-dashboard/internal/auth"
	"github.com/csg33k/visits-dashboard/internal/config"
	"github.com/csg33k/visits-dashboard/internal/dashboard"
	"github.com/csg33k/visits-dashboard/internal/handlers"
	"github.com/csg33k/visits-dashboard/internal/ports"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		slog.Warn("error loading .env file", "err", err)
	}
	cfg, err := config.Load(os.Getenv)
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("failed to open session store: %v", err)
	}
	defer store.Close()

	api := reportapi.New(cfg.APIBaseURL, cfg.APITimeout, logger.With("component", "reportapi"))
	registry := dashboard.NewRegistry(api, plotchart.NewFactory(), dashboard.Columns{
		Summary: cfg.Site.Columns.Summary,
		Raw:     cfg.Site.Columns.Raw,
	}, logger)
	go registry.RunSweeper(ctx, time.Minute, cfg.SessionIdle)

	sessions := auth.NewSessions(store, cfg.SessionTTL, cfg.SecureCookies, logger)
	if cfg.PDFFont == "" && !pdf.Printable(cfg.Site.Title) {
		logger.Warn("PDF_FONT is not set; snapshot reports print Latin placeholders for Arabic text")
	}
	h := handlers.New(api, sessions, registry, cfg.Site, pdf.Generator{FontPath: cfg.PDFFont}, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           gzhttp.GzipHandler(h.Routes()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", "err", err)
		}
	}()

	logger.Info("visits dashboard running", "addr", "http://localhost:"+cfg.Port, "api", cfg.APIBaseURL, "sessions", cfg.SessionBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
	logger.Info("server stopped")
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// openStore opens the configured credential store. The sqlite store also
// gets a background purge of expired rows; redis expires keys itself.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ports.CredentialStore, error) {
	if cfg.SessionBackend == config.BackendRedis {
		logger.Info("session store", "backend", "redis", "addr", cfg.RedisAddr)
		rs, err := redisstore.New(ctx, redisstore.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.SessionTTL,
		})
		if err != nil {
			return nil, err
		}
		return rs, nil
	}

	repo, err := sqliteadapter.New(cfg.DBPath, cfg.SessionTTL)
	if err != nil {
		return nil, err
	}
	logger.Info("session store", "backend", "sqlite", "db", cfg.DBPath)
	go func() {
		t := time.NewTicker(15 * time.Minute)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if n, err := repo.PurgeExpired(ctx); err != nil {
					logger.Warn("purge expired credentials", "err", err)
				} else if n > 0 {
					logger.Info("purged expired credentials", "removed", n)
				}
			}
		}
	}()
	return repo, nil
}
