package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	defaultHTTPPort        = "8080"
	defaultAPIPrefix       = "/api"
	defaultTemporalAddress = "localhost:7233"
	defaultTemporalNS      = "default"
	defaultTaskQueue       = "gdoc-review-task-queue"
	defaultOpenAIModel     = "gpt-4o-mini"
	defaultOpenAITimeout   = 30
	defaultMinioEndpoint   = "localhost:9000"
	defaultMinioBucket     = "gdoc-documentos"
	defaultPageSize        = 20

	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"

	ReviewModeWorkflow = "workflow"
	ReviewModeDirect   = "direct"
)

type Config struct {
	HTTPPort           string
	APIPrefix          string
	PublicBaseURL      string
	StorageDriver      string
	PostgresDSN        string
	SeedDemoData       bool
	TemporalAddress    string
	TemporalNamespace  string
	TemporalTaskQueue  string
	ReviewMode         string
	OpenAIAPIKey       string
	OpenAIModel        string
	OpenAIBaseURL      string
	OpenAITimeoutSec   int
	MinioEndpoint      string
	MinioAccessKey     string
	MinioSecretKey     string
	MinioBucket        string
	MinioUseSSL        bool
	WorkflowIDPrefix   string
	AllowedUploadBytes int64
	PageSize           int
}

// Load reads a .env file when present and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		HTTPPort:           getenv("HTTP_PORT", defaultHTTPPort),
		APIPrefix:          getenv("API_PREFIX", defaultAPIPrefix),
		StorageDriver:      strings.ToLower(getenv("STORAGE_DRIVER", StorageDriverPostgres)),
		PostgresDSN:        os.Getenv("POSTGRES_DSN"),
		SeedDemoData:       getenvBool("SEED_DEMO_DATA", false),
		TemporalAddress:    getenv("TEMPORAL_ADDRESS", defaultTemporalAddress),
		TemporalNamespace:  getenv("TEMPORAL_NAMESPACE", defaultTemporalNS),
		TemporalTaskQueue:  getenv("TEMPORAL_TASK_QUEUE", defaultTaskQueue),
		ReviewMode:         strings.ToLower(getenv("REVIEW_MODE", ReviewModeWorkflow)),
		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:        getenv("OPENAI_MODEL", defaultOpenAIModel),
		OpenAIBaseURL:      os.Getenv("OPENAI_BASE_URL"),
		OpenAITimeoutSec:   getenvInt("OPENAI_TIMEOUT_SEC", defaultOpenAITimeout),
		MinioEndpoint:      getenv("MINIO_ENDPOINT", defaultMinioEndpoint),
		MinioAccessKey:     os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey:     os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:        getenv("MINIO_BUCKET", defaultMinioBucket),
		MinioUseSSL:        getenvBool("MINIO_USE_SSL", false),
		WorkflowIDPrefix:   getenv("WORKFLOW_ID_PREFIX", "gdoc-review"),
		AllowedUploadBytes: int64(getenvInt("MAX_UPLOAD_BYTES", 10*1024*1024)),
		PageSize:           getenvInt("PAGE_SIZE", defaultPageSize),
	}
	cfg.APIPrefix = "/" + strings.Trim(cfg.APIPrefix, "/")
	cfg.PublicBaseURL = strings.TrimRight(getenv("PUBLIC_BASE_URL", "http://localhost:"+cfg.HTTPPort), "/")

	switch cfg.StorageDriver {
	case StorageDriverPostgres:
		if cfg.PostgresDSN == "" {
			return Config{}, fmt.Errorf("POSTGRES_DSN is required")
		}
	case StorageDriverMemory:
	default:
		return Config{}, fmt.Errorf("unsupported STORAGE_DRIVER %q", cfg.StorageDriver)
	}

	switch cfg.ReviewMode {
	case ReviewModeWorkflow, ReviewModeDirect:
	default:
		return Config{}, fmt.Errorf("unsupported REVIEW_MODE %q", cfg.ReviewMode)
	}

	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}

	return cfg, nil
}

// UsesMinio reports whether object storage credentials were configured.
func (c Config) UsesMinio() bool {
	return c.MinioAccessKey != "" && c.MinioSecretKey != ""
}

func getenv(key string, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
