// Package main runs the VibeSense heart-rate ingest service.
// The service accepts raw heart-rate samples per user, stabilizes them into
// hysteresis-gated readings, derives mood suggestions for music selection,
// and exposes preferences, health, stats and Prometheus endpoints.
package main

import (
	"context"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"vibesense-service/internal/cache"
	"vibesense-service/internal/handlers"
	"vibesense-service/internal/service"
	"vibesense-service/internal/stabilizer"
	"vibesense-service/internal/store"
	"vibesense-service/internal/stream"
	"vibesense-service/internal/suggest"
)

// Config holds the service configuration.
type Config struct {
	ServerAddr    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	NatsURL       string
	DBPath        string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	IdleTimeout   time.Duration
	Stabilizer    stabilizer.Config
}

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg := loadConfig()
	logger.Info("starting vibesense service", zap.String("addr", cfg.ServerAddr))

	svc, err := service.New(cfg.Stabilizer, logger)
	if err != nil {
		logger.Fatal("invalid stabilizer config", zap.Error(err))
	}
	suggester := suggest.NewService(logger)

	prefs, err := store.Open(cfg.DBPath)
	if err != nil {
		logger.Fatal("failed to open preferences store", zap.Error(err), zap.String("path", cfg.DBPath))
	}
	defer prefs.Close()

	// Redis is optional: retry a few times, then run without the cache.
	var readingCache *cache.ReadingCache
	for i := 0; i < 5; i++ {
		readingCache, err = cache.NewReadingCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err == nil {
			logger.Info("connected to redis", zap.String("addr", cfg.RedisAddr))
			break
		}
		logger.Warn("redis connection attempt failed", zap.Int("attempt", i+1), zap.Error(err))
		if i < 4 {
			time.Sleep(time.Duration(i+1) * time.Second)
		}
	}
	if err != nil {
		logger.Warn("running without redis cache", zap.Error(err))
		readingCache = nil
	}

	// NATS is optional as well.
	var publisher *stream.Publisher
	if cfg.NatsURL != "" {
		conn, err := stream.Connect(cfg.NatsURL)
		if err != nil {
			logger.Warn("running without nats publisher", zap.Error(err))
		} else {
			publisher = stream.NewPublisher(conn, logger)
			logger.Info("connected to nats", zap.String("url", cfg.NatsURL))
		}
	}

	handler := handlers.New(svc, suggester, prefs, readingCache, publisher, logger)

	router := mux.NewRouter()
	router.HandleFunc("/ingest", handler.IngestHandler).Methods("POST")
	router.HandleFunc("/ingest/batch", handler.IngestBatchHandler).Methods("POST")
	router.HandleFunc("/state/latest", handler.LatestHandler).Methods("GET")
	router.HandleFunc("/state/recent", handler.RecentHandler).Methods("GET")
	router.HandleFunc("/state/reset", handler.ResetHandler).Methods("POST")
	router.HandleFunc("/suggestion", handler.SuggestionHandler).Methods("GET")
	router.HandleFunc("/preferences", handler.UpdatePreferencesHandler).Methods("POST")
	router.HandleFunc("/preferences", handler.GetPreferencesHandler).Methods("GET")
	router.HandleFunc("/health", handler.HealthHandler).Methods("GET")
	router.HandleFunc("/stats", handler.StatsHandler).Methods("GET")

	router.Handle("/prometheus", promhttp.Handler())
	router.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)

	router.Use(loggingMiddleware(logger))

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server listening", zap.String("addr", cfg.ServerAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-stop
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if publisher != nil {
		publisher.Close()
	}
	if readingCache != nil {
		readingCache.Close()
	}
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("server stopped")
}

// newLogger builds a production logger, or a development one when
// LOG_MODE=dev.
func newLogger() *zap.Logger {
	var logger *zap.Logger
	var err error
	if os.Getenv("LOG_MODE") == "dev" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return logger
}

// loadConfig reads configuration from environment variables.
func loadConfig() Config {
	return Config{
		ServerAddr:    getEnv("SERVER_ADDR", ":8765"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		NatsURL:       getEnv("NATS_URL", ""),
		DBPath:        getEnv("DB_PATH", "./data/vibesense.db"),
		ReadTimeout:   15 * time.Second,
		WriteTimeout:  15 * time.Second,
		IdleTimeout:   60 * time.Second,
		Stabilizer: stabilizer.Config{
			WindowSize:   getEnvInt("WINDOW_SIZE", stabilizer.DefaultWindowSize),
			MinDelta:     getEnvFloat("MIN_DELTA", stabilizer.DefaultMinDelta),
			MinSpacing:   getEnvDuration("MIN_SPACING", stabilizer.DefaultMinSpacing),
			MinZoneDwell: getEnvDuration("MIN_ZONE_DWELL", stabilizer.DefaultMinZoneDwell),
			FastDelta:    getEnvFloat("FAST_DELTA", stabilizer.DefaultFastDelta),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// loggingMiddleware logs each request with its duration.
func loggingMiddleware(logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Duration("duration", time.Since(start)))
		})
	}
}
