package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"go.temporal.io/sdk/client"

	"gdoc/internal/config"
	"gdoc/internal/events"
	"gdoc/internal/storage"
)

// event-handler starts a review workflow for every document file written to the bucket.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if !cfg.UsesMinio() {
		log.Fatalf("event-handler requires MINIO_ACCESS_KEY and MINIO_SECRET_KEY")
	}

	blob, err := storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL, cfg.MinioBucket)
	if err != nil {
		log.Fatalf("connect minio: %v", err)
	}

	temporalClient, err := client.Dial(client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
	})
	if err != nil {
		log.Fatalf("connect temporal: %v", err)
	}
	defer temporalClient.Close()

	starter := &events.ReviewStarter{
		Client:           temporalClient,
		TaskQueue:        cfg.TemporalTaskQueue,
		WorkflowIDPrefix: cfg.WorkflowIDPrefix,
		Timeout:          15 * time.Second,
	}
	source := events.NewMinioUploadEventSource(blob.Client(), blob.Bucket(), "", "")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("event-handler listening bucket=%s task_queue=%s", blob.Bucket(), cfg.TemporalTaskQueue)
	if err := source.Run(ctx, starter.Handle); err != nil {
		log.Fatalf("event-handler stopped: %v", err)
	}
	log.Printf("event-handler stopped")
}
