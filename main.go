package main

import (
	"context"
	"log" // Use standard log only for fatal errors before the logger is set up
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"signalSimBot/config"
	"signalSimBot/internal/adapters/aiparser"
	"signalSimBot/internal/adapters/binanceclient"
	"signalSimBot/internal/adapters/linesource"
	"signalSimBot/internal/adapters/logger"
	"signalSimBot/internal/adapters/memdedup"
	"signalSimBot/internal/adapters/redisdedup"
	"signalSimBot/internal/adapters/sqlite"
	"signalSimBot/internal/app"
	"signalSimBot/internal/detector"
	"signalSimBot/internal/dispatch"
	"signalSimBot/internal/engine"
	"signalSimBot/internal/metrics"
	"signalSimBot/internal/parser"
	"signalSimBot/internal/ports"
)

func main() {
	ctx := context.Background()

	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	// 2. Initialize Logger
	appLogger := logger.New(logger.Config{Level: cfg.LogLevel, Console: cfg.LogConsole})
	appLogger.Info(ctx, "Logger initialized", map[string]interface{}{"level": cfg.LogLevel})

	// 3. Initialize Repository (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath:      cfg.DBPath,
		Logger:      appLogger,
		DedupWindow: cfg.DedupWindow,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize database repository")
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(ctx, err, "Error closing database repository")
		}
	}()
	appLogger.Info(ctx, "Database repository initialized")

	// 4. Pick the fingerprint store backend
	var fingerprints ports.FingerprintStore
	switch cfg.DedupBackend {
	case "redis":
		store, err := redisdedup.New(ctx, redisdedup.Config{
			Addr:   cfg.RedisAddr,
			Window: cfg.DedupWindow,
		})
		if err != nil {
			appLogger.Error(ctx, err, "FATAL: Failed to connect to Redis fingerprint store")
			log.Fatalf("FATAL: Failed to connect to Redis fingerprint store: %v", err)
		}
		defer func() {
			if err := store.Close(); err != nil {
				appLogger.Error(ctx, err, "Error closing Redis fingerprint store")
			}
		}()
		fingerprints = store
	case "sqlite":
		fingerprints = repo
	default:
		fingerprints = memdedup.New(cfg.DedupWindow, cfg.MaxFingerprints)
	}
	appLogger.Info(ctx, "Fingerprint store initialized", map[string]interface{}{"backend": cfg.DedupBackend})

	// 5. Initialize Price Feed (Binance Adapter)
	feed, err := binanceclient.New(binanceclient.Config{
		APIKey:     cfg.BinanceAPIKey,
		SecretKey:  cfg.BinanceSecretKey,
		UseTestnet: cfg.BinanceTestnet,
		Logger:     appLogger,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize Binance price feed")
		log.Fatalf("FATAL: Failed to initialize Binance price feed: %v", err)
	}

	// 6. Optional AI parser escalation
	var ai ports.AIParser
	if cfg.AIEnabled() {
		client, err := aiparser.New(aiparser.Config{
			BaseURL: cfg.AIBaseURL,
			APIKey:  cfg.AIAPIKey,
			Model:   cfg.AIModel,
			Timeout: cfg.AITimeout,
			Logger:  appLogger,
		})
		if err != nil {
			appLogger.Error(ctx, err, "FATAL: Failed to initialize AI parsing client")
			log.Fatalf("FATAL: Failed to initialize AI parsing client: %v", err)
		}
		ai = client
		appLogger.Info(ctx, "AI parser escalation enabled", map[string]interface{}{"model": cfg.AIModel})
	} else {
		appLogger.Info(ctx, "AI parser escalation disabled (no API key)")
	}

	// 7. Metrics
	registry := prometheus.NewRegistry()
	recorder := metrics.New(registry)
	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				appLogger.Error(ctx, err, "Metrics endpoint failed", map[string]interface{}{"addr": cfg.MetricsAddr})
			}
		}()
		appLogger.Info(ctx, "Metrics endpoint listening", map[string]interface{}{"addr": cfg.MetricsAddr})
	}

	// 8. Initialize Dispatcher
	dispatcher, err := dispatch.New(dispatch.Config{
		AITimeout: cfg.AITimeout,
	}, dispatch.Deps{
		Logger:       appLogger,
		Parsers:      parser.DefaultParsers(),
		Detector:     detector.New(),
		Fingerprints: fingerprints,
		AI:           ai,
		Signals:      repo,
		Metrics:      recorder,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize dispatcher")
		log.Fatalf("FATAL: Failed to initialize dispatcher: %v", err)
	}

	// 9. Initialize Simulation Engine
	simEngine, err := engine.New(engine.Config{
		PollInterval:    cfg.PollInterval,
		EntryTimeout:    cfg.EntryTimeout,
		EntryTolerance:  cfg.EntryTolerance,
		DefaultLeverage: cfg.DefaultLeverage,
	}, appLogger, feed, repo, repo, recorder)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize simulation engine")
		log.Fatalf("FATAL: Failed to initialize simulation engine: %v", err)
	}

	// 10. Initialize Application Service and run
	source := linesource.New(os.Stdin, "stdin")
	service, err := app.NewSignalService(app.Config{
		DefaultSizeUSD:  cfg.DefaultSizeUSD,
		DefaultLeverage: cfg.DefaultLeverage,
	}, appLogger, source, dispatcher, simEngine)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize signal service")
		log.Fatalf("FATAL: Failed to initialize signal service: %v", err)
	}

	if err := service.Start(ctx); err != nil {
		appLogger.Error(ctx, err, "Signal service exited with error")
		log.Fatalf("FATAL: Signal service exited with error: %v", err)
	}
	appLogger.Info(ctx, "Application finished gracefully.")
}
