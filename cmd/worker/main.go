package main

import (
	"context"
	"log"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"gdoc/internal/config"
	"gdoc/internal/openai"
	"gdoc/internal/service"
	"gdoc/internal/storage"
	appTemporal "gdoc/internal/temporal"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.StorageDriver != config.StorageDriverPostgres {
		log.Fatalf("worker requires STORAGE_DRIVER=%s", config.StorageDriverPostgres)
	}

	store, err := storage.NewPostgresStore(cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatalf("ensure schema: %v", err)
	}

	blob, err := storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL, cfg.MinioBucket)
	if err != nil {
		log.Fatalf("connect minio: %v", err)
	}

	if cfg.OpenAIAPIKey == "" {
		log.Printf("OPENAI_API_KEY not set, field extraction will be skipped")
	}
	llm := openai.NewHTTPClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL,
		openai.WithTimeout(time.Duration(cfg.OpenAITimeoutSec)*time.Second))

	temporalClient, err := client.Dial(client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
	})
	if err != nil {
		log.Fatalf("connect temporal: %v", err)
	}
	defer temporalClient.Close()

	activities := &appTemporal.Activities{
		Docs:           service.NewDocumentService(store, blob, cfg.PublicBaseURL+cfg.APIPrefix),
		Blob:           blob,
		LLM:            llm,
		OpenAIModel:    cfg.OpenAIModel,
		OpenAITimeout:  time.Duration(cfg.OpenAITimeoutSec) * time.Second,
		OpenAIMaxRetry: 3,
	}

	w := worker.New(temporalClient, cfg.TemporalTaskQueue, worker.Options{})
	w.RegisterWorkflowWithOptions(appTemporal.DocumentReviewWorkflow, workflow.RegisterOptions{Name: appTemporal.DocumentReviewWorkflowName})
	w.RegisterActivity(activities.ExtractTextActivity)
	w.RegisterActivity(activities.ExtractFieldsWithOpenAIActivity)
	w.RegisterActivity(activities.EvaluateSemaphoreActivity)
	w.RegisterActivity(activities.MarkInReviewActivity)
	w.RegisterActivity(activities.ApplyReviewActivity)

	log.Printf("worker running on task queue %s", cfg.TemporalTaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker stopped with error: %v", err)
	}
}
