// cmd/harvester/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"resto-harvester/internal/common/aws"
	"resto-harvester/internal/common/config"
	"resto-harvester/internal/common/database"
	httpclient "resto-harvester/internal/common/http"
	"resto-harvester/internal/common/logger"
	"resto-harvester/internal/common/observability"
	"resto-harvester/internal/export"
	"resto-harvester/internal/harvest/listings"
	"resto-harvester/internal/harvest/menus"
	"resto-harvester/internal/harvest/reviews"
	"resto-harvester/internal/harvest/source"
	"resto-harvester/internal/notify"
	"resto-harvester/internal/runner"
	"resto-harvester/internal/search"
	"resto-harvester/internal/store"
	"resto-harvester/pkg/registry"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting harvester...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("harvester")
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		// Test the connection with context
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	repo := store.NewRepository(pg, log, cfg.Database.Postgres.Table, cfg.Harvest.UpsertBatchSize)

	// --- Init Source Client ---
	httpClient := httpclient.NewClient(
		config.GetDuration(cfg.Source.RequestTimeout),
		cfg.Source.RatePerSecond,
		cfg.Source.RateBurst,
		cfg.Source.UserAgent,
	)
	src := source.NewClient(httpClient, obs, log, source.Options{
		BaseURL:        cfg.Source.BaseURL,
		ReviewPageSize: cfg.Harvest.ReviewPageSize,
	})

	feedSchema, err := registry.Default().Compile("review-feed")
	if err != nil {
		zapLog.Fatal("review feed schema failed to compile", zap.Error(err))
	}

	// --- Harvest Passes ---
	var enumerator runner.ListingEnumerator
	if config.IsHarvesterEnabled(cfg, "listings") {
		enumerator = listings.NewEnumerator(src, log, listings.Options{
			PageSize:    cfg.Harvest.ListingPageSize,
			MaxListings: cfg.Harvest.MaxListings,
			ErrorCutoff: cfg.Harvest.ListingErrorCutoff,
		})
	}

	reviewsCfg := config.GetHarvesterConfig(cfg, "reviews")
	reviewHarvester := reviews.NewHarvester(src, feedSchema, log, reviews.Options{
		PageSize:    cfg.Harvest.ReviewPageSize,
		Concurrency: reviewsCfg.Concurrency,
	})

	var menuHarvester runner.MenuHarvester
	if config.IsHarvesterEnabled(cfg, "menus") {
		menuHarvester = menus.NewHarvester(src, log, cfg.Source.BaseURL)
	}

	// --- Init Export Pipeline (GCS + Redis dedup) ---
	var sink runner.ReviewSink
	if cfg.Export.Enabled {
		var redis *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			redis, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			// Test the connection with context
			return redis.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")

		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer redis.Close()
		zapLog.Info("Redis connected successfully")

		writer, err := export.NewGCSWriter(ctx, cfg.Export.Bucket)
		if err != nil {
			zapLog.Fatal("gcs writer failed", zap.Error(err))
		}
		defer writer.Close()

		sink = export.NewExporter(
			writer,
			export.NewRedisDeduper(redis, cfg.Export.DedupPrefix),
			log,
			export.Options{
				KeyTemplate: cfg.Export.KeyTemplate,
				ChunkSize:   cfg.Export.ChunkSize,
			},
		)
		zapLog.Info("Export pipeline initialized", zap.String("bucket", cfg.Export.Bucket))
	}

	// --- Init Search Indexer ---
	var indexer runner.ReviewIndexer
	if cfg.Search.Enabled {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			// Test the connection
			return esClient.Ping()
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		zapLog.Info("Elasticsearch connected successfully")

		indexer = search.NewIndexer(esClient, log, cfg.Search.Index)
	}

	// --- Init Run Notifier ---
	var notifier runner.Notifier
	if cfg.Notifications.Email.Enabled || cfg.Notifications.SMS.Enabled {
		var email notify.EmailSender
		var sms notify.SMSSender

		if cfg.Notifications.Email.Enabled {
			ses, err := aws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
			if err != nil {
				zapLog.Fatal("ses client failed", zap.Error(err))
			}
			email = ses
		}
		if cfg.Notifications.SMS.Enabled {
			sns, err := aws.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
			if err != nil {
				zapLog.Fatal("sns client failed", zap.Error(err))
			}
			sms = sns
		}
		notifier = notify.NewNotifier(email, sms, log, cfg.Notifications)
	}

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening on :8080")
		if err := http.ListenAndServe(":8080", nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	r := runner.New(
		enumerator, src, reviewHarvester, menuHarvester,
		repo, sink, indexer, notifier,
		log,
		runner.Options{
			Concurrency:  reviewsCfg.Concurrency,
			HarvestMenus: config.IsHarvesterEnabled(cfg, "menus"),
		},
	)

	for _, location := range cfg.Harvest.Locations {
		if ctx.Err() != nil {
			zapLog.Info("Shutdown signal received, stopping harvest")
			break
		}

		zapLog.Info("Harvesting location", zap.String("location", location))
		if err := r.HarvestLocation(ctx, location); err != nil {
			zapLog.Error("Location pass failed",
				zap.String("location", location),
				zap.Error(err),
			)
		}
	}

	zapLog.Info("Harvester stopped gracefully")
}
