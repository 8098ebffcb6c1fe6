// Package main implements the kortreist API server.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/andyarntsen-alt/kortreist/engine/aggregate"
	"github.com/andyarntsen-alt/kortreist/engine/analyze"
	"github.com/andyarntsen-alt/kortreist/engine/source/bondensmarked"
	"github.com/andyarntsen-alt/kortreist/engine/source/hanen"
	"github.com/andyarntsen-alt/kortreist/engine/source/overpass"
	"github.com/andyarntsen-alt/kortreist/pkg/metrics"
	"github.com/andyarntsen-alt/kortreist/pkg/mid"
)

// Config holds all environment-based configuration.
type Config struct {
	Port             string
	CORSOrigin       string
	OverpassURL      string
	BondensMarkedURL string
	HanenURL         string
	OverpassTTL      time.Duration
	ScrapeTTL        time.Duration
	HanenTTL         time.Duration
	AggregateTTL     time.Duration
	// AnalyzeAPIKey enables the analyze endpoint. Optional: when empty the
	// endpoint answers 503 and everything else works normally.
	AnalyzeAPIKey string
	AnalyzeURL    string
}

func loadConfig() Config {
	return Config{
		Port:             envOr("PORT", "8080"),
		CORSOrigin:       envOr("CORS_ORIGIN", "*"),
		OverpassURL:      envOr("OVERPASS_URL", overpass.DefaultURL),
		BondensMarkedURL: envOr("BONDENSMARKED_URL", bondensmarked.DefaultBaseURL),
		HanenURL:         envOr("HANEN_URL", hanen.DefaultURL),
		OverpassTTL:      envDur("OVERPASS_TTL", overpass.DefaultTTL),
		ScrapeTTL:        envDur("BONDENSMARKED_TTL", bondensmarked.DefaultTTL),
		HanenTTL:         envDur("HANEN_TTL", hanen.DefaultTTL),
		AggregateTTL:     envDur("AGGREGATE_TTL", aggregate.DefaultTTL),
		AnalyzeAPIKey:    os.Getenv("ANALYZE_API_KEY"),
		AnalyzeURL:       envOr("ANALYZE_URL", analyze.DefaultURL),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDur(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := metrics.New()

	// --- Source adapters, in merge priority order ---
	hanenAdapter := hanen.New(hanen.Config{
		URL:    cfg.HanenURL,
		TTL:    cfg.HanenTTL,
		Logger: logger,
	})
	bmAdapter := bondensmarked.New(bondensmarked.Config{
		BaseURL: cfg.BondensMarkedURL,
		TTL:     cfg.ScrapeTTL,
		Logger:  logger,
	})
	osmAdapter := overpass.New(overpass.Config{
		URL:    cfg.OverpassURL,
		TTL:    cfg.OverpassTTL,
		Logger: logger,
	})

	agg := aggregate.New(
		aggregate.Config{TTL: cfg.AggregateTTL, Logger: logger, Metrics: reg},
		hanenAdapter, bmAdapter, osmAdapter,
	)

	// --- Optional analyze capability ---
	var analyzer *analyze.Client
	if cfg.AnalyzeAPIKey != "" {
		analyzer = analyze.New(analyze.Config{
			APIKey: cfg.AnalyzeAPIKey,
			URL:    cfg.AnalyzeURL,
			Logger: logger,
		})
	} else {
		logger.Info("analyze endpoint disabled: no ANALYZE_API_KEY")
	}

	// --- Build HTTP server ---
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("GET /api/categories", handleCategories)
	mux.HandleFunc("GET /api/producers", handleProducers(agg))
	mux.HandleFunc("GET /api/producers/{id}", handleProducer(agg))
	mux.HandleFunc("POST /api/analyze", handleAnalyze(analyzer, logger))
	mux.Handle("GET /metrics", reg.Handler())

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.RequestID(),
		mid.Logger(logger),
		mid.CORS(cfg.CORSOrigin),
		mid.OTel("kortreist-api"),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful shutdown ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}
