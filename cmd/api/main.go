package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.temporal.io/sdk/client"

	"gdoc/internal/api"
	"gdoc/internal/config"
	"gdoc/internal/service"
	"gdoc/internal/storage"
	appTemporal "gdoc/internal/temporal"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	store, closeStore := openStore(ctx, cfg)
	defer closeStore()

	var blob service.BlobStore = storage.NewMemoryBlobStore()
	if cfg.UsesMinio() {
		minioStore, err := storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL, cfg.MinioBucket)
		if err != nil {
			log.Fatalf("connect minio: %v", err)
		}
		blob = minioStore
	} else {
		log.Printf("minio credentials not set, keeping uploaded files in memory")
	}

	ids := service.NewIDGenerator(time.Now)
	docs := service.NewDocumentService(store, blob, cfg.PublicBaseURL+cfg.APIPrefix)
	services := api.Services{
		Documents:     docs,
		Convocatorias: service.NewConvocatoriaService(store, store, store, ids),
		Postulantes:   service.NewPostulanteService(store, store, ids),
		Dashboard:     service.NewDashboardService(store, store, store),
		Portal:        service.NewPortalService(store, store, docs),
		Store:         store,
	}

	if cfg.ReviewMode == config.ReviewModeWorkflow {
		temporalClient, err := client.Dial(client.Options{
			HostPort:  cfg.TemporalAddress,
			Namespace: cfg.TemporalNamespace,
		})
		if err != nil {
			log.Fatalf("connect temporal: %v", err)
		}
		defer temporalClient.Close()
		services.Reviews = appTemporal.NewReviewDispatcher(temporalClient, cfg.WorkflowIDPrefix, docs)
	}

	h := api.NewHandler(cfg, services)
	router := api.NewRouter(h, cfg.APIPrefix)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("api listening on :%s prefix=%s storage=%s review_mode=%s", cfg.HTTPPort, cfg.APIPrefix, cfg.StorageDriver, cfg.ReviewMode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}

func openStore(ctx context.Context, cfg config.Config) (service.Repository, func()) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		store := storage.NewMemoryStore()
		if cfg.SeedDemoData {
			if err := storage.Seed(ctx, store); err != nil {
				log.Fatalf("seed demo data: %v", err)
			}
		}
		return store, func() {}
	}

	store, err := storage.NewPostgresStore(cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	if err := store.Ping(ctx); err != nil {
		log.Fatalf("postgres ping: %v", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatalf("ensure schema: %v", err)
	}
	if cfg.SeedDemoData {
		existing, err := store.ListConvocatorias(ctx)
		if err != nil {
			log.Fatalf("check demo data: %v", err)
		}
		if len(existing) == 0 {
			if err := storage.Seed(ctx, store); err != nil {
				log.Fatalf("seed demo data: %v", err)
			}
		}
	}
	return store, func() { _ = store.Close() }
}
