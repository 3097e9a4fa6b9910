package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/slidewise/slidewise/internal/config"
	"github.com/slidewise/slidewise/internal/db"
	dbFile "github.com/slidewise/slidewise/internal/db/file"
	dbRedis "github.com/slidewise/slidewise/internal/db/redis"
	"github.com/slidewise/slidewise/internal/domain"
	domlicense "github.com/slidewise/slidewise/internal/domain/license"
	logpkg "github.com/slidewise/slidewise/internal/logger"
	"github.com/slidewise/slidewise/internal/metrics"
	"github.com/slidewise/slidewise/internal/repository/embcache"
	"github.com/slidewise/slidewise/internal/repository/querycache"
	"github.com/slidewise/slidewise/internal/slidestore"
	"github.com/slidewise/slidewise/internal/transport/httpapi"
	openaiTransport "github.com/slidewise/slidewise/internal/transport/openai"
	answeruc "github.com/slidewise/slidewise/internal/usecase/answer"
	licenseuc "github.com/slidewise/slidewise/internal/usecase/license"
	retrieveuc "github.com/slidewise/slidewise/internal/usecase/retrieve"
	scoreuc "github.com/slidewise/slidewise/internal/usecase/score"
	"github.com/slidewise/slidewise/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting slidewise API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
	)

	// Create cache store based on driver
	var store db.Store
	switch cfg.Database.Driver {
	case "redis":
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
	case "file":
		store, err = dbFile.NewStore(cfg.Database.Path)
	default:
		logger.Fatal("Unknown database driver", zap.String("driver", cfg.Database.Driver))
	}
	if err != nil {
		logger.Fatal("Failed to create cache store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Cache store not ready", zap.Error(err))
	}
	logger.Info("Connected to cache store")

	// Register domain metrics explicitly (HTTP metrics register via init())
	metrics.Register()

	// Load the extracted slide corpus
	slides, err := slidestore.Load(cfg.Content.SlidesPath, cfg.Content.EmbeddingsPath, logger)
	if err != nil {
		logger.Fatal("Failed to load slide corpus", zap.Error(err))
	}
	logger.Info("Slide corpus loaded",
		zap.Int("slides", slides.Len()),
		zap.Bool("embeddings", slides.HasEmbeddings()),
	)

	// Build embedder chain: OpenAI -> Cached
	var embedder domain.Embedder = openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Timeout:    time.Duration(cfg.Embedding.TimeoutSec) * time.Second,
		Logger:     logger,
	})
	embedder = embcache.New(embedder, store, cfg.Database.KeyPrefix, metrics.EmbeddingCacheTotal, logger)

	completer := openaiTransport.NewCompleter(&openaiTransport.CompleterConfig{
		APIKey:      cfg.Completion.APIKey,
		BaseURL:     cfg.Completion.BaseURL,
		Model:       cfg.Completion.Model,
		MaxTokens:   cfg.Completion.MaxTokens,
		Temperature: cfg.Completion.Temperature,
		Timeout:     time.Duration(cfg.Completion.TimeoutSec) * time.Second,
		Logger:      logger,
	})

	// License knowledge comes from config
	tiers := make(domlicense.Order, len(cfg.License.Tiers))
	for i, t := range cfg.License.Tiers {
		tiers[i] = domlicense.Tier(t)
	}
	defaults := make(map[string]map[domlicense.Tier]bool, len(cfg.License.FeatureDefaults))
	for feature, byTier := range cfg.License.FeatureDefaults {
		m := make(map[domlicense.Tier]bool, len(byTier))
		for tier, included := range byTier {
			m[domlicense.Tier(tier)] = included
		}
		defaults[feature] = m
	}

	classifier := licenseuc.NewClassifier(cfg.License.Features, cfg.License.FallbackFeature)
	parser := licenseuc.NewParser(tiers, cfg.License.Features)
	inferencer := licenseuc.NewInferencer(tiers, cfg.License.Synonyms, defaults)
	analyzer := licenseuc.NewAnalyzer(parser, inferencer)

	// Important-term vocabulary: products, features, tiers
	vocabulary := make([]string, 0, len(cfg.License.Products)+len(cfg.License.Features)+len(cfg.License.Tiers))
	vocabulary = append(vocabulary, cfg.License.Products...)
	vocabulary = append(vocabulary, cfg.License.Features...)
	vocabulary = append(vocabulary, cfg.License.Tiers...)

	keywordScorer := scoreuc.NewKeywordScorer(vocabulary)
	semanticScorer := scoreuc.NewSemanticScorer(embedder, slides, logger)

	retriever := retrieveuc.New(
		slides, keywordScorer, semanticScorer, classifier,
		cfg.Retrieval.Semantic, cfg.License.Tiers,
	)

	resultCache := querycache.New(
		store, cfg.Database.KeyPrefix,
		time.Duration(cfg.Cache.TTLHours*float64(time.Hour)),
		metrics.QueryCacheTotal, logger,
	)

	answerer := answeruc.New(retriever, classifier, analyzer, completer, resultCache)

	server := httpapi.NewServer(
		answerer, retriever, classifier, analyzer, resultCache,
		slides, cfg.Retrieval.MaxQueryLength, logger,
	)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	server.Routes(r)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
