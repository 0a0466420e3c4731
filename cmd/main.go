package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/segmentio/kafka-go"

	"artfolio/internal/blobstore"
	"artfolio/internal/cleanup"
	"artfolio/internal/imgcache"
	"artfolio/internal/models"
	"artfolio/internal/pipeline"
	"artfolio/internal/server"
	"artfolio/internal/storage"
)

const configFile = "config.yaml"

func newBlobStore(cfg *models.Config) (blobstore.Store, error) {
	if cfg.StorageMode == "s3" {
		return blobstore.NewMinio(
			cfg.S3.Endpoint,
			cfg.S3.AccessKey,
			cfg.S3.SecretKey,
			cfg.S3.Region,
			cfg.S3.Bucket,
			cfg.UploadDir,
			cfg.S3.UseSSL,
		)
	}
	return blobstore.NewLocal(cfg.StoragePath), nil
}

func main() {
	cfg, err := models.LoadConfig(configFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.Environment,
		})
		if err != nil {
			log.Fatalf("sentry.Init: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	db, err := storage.NewStorage(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to init storage: %v", err)
	}
	defer db.Close()

	store, err := newBlobStore(cfg)
	if err != nil {
		log.Fatalf("failed to init blob storage: %v", err)
	}

	cache, err := imgcache.New(store, cfg.Cache.Capacity, cfg.Cache.TTL())
	if err != nil {
		log.Fatalf("failed to init image cache: %v", err)
	}

	// Kafka producer for background object removal
	producer := kafka.NewWriter(kafka.WriterConfig{
		Brokers: []string{cfg.KafkaBroker},
		Topic:   cfg.KafkaTopic,
	})

	pipe := pipeline.New(store, cfg.BaseURL, cleanup.NewProducer(producer))

	// Start cleanup consumer in background
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		consumer := kafka.NewReader(kafka.ReaderConfig{
			Brokers: []string{cfg.KafkaBroker},
			Topic:   cfg.KafkaTopic,
			GroupID: "image-cleanup-group",
		})
		defer consumer.Close()

		for {
			msg, err := consumer.ReadMessage(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				log.Printf("error reading cleanup message: %v", err)
				continue
			}
			if err := cleanup.Process(ctx, msg.Value, store); err != nil {
				log.Printf("error processing cleanup job: %v", err)
			}
		}
	}()

	srv := server.NewServer(cfg, db, pipe, cache)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to start server: %v", err)
		}
	}()
	log.Printf("listening on %s", cfg.ServerAddr)

	// Graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
	producer.Close()
}
