package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMemoryDefaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("API_PREFIX", "api/")
	t.Setenv("PAGE_SIZE", "nope")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, StorageDriverMemory, cfg.StorageDriver)
	require.Equal(t, "/api", cfg.APIPrefix)
	require.Equal(t, 20, cfg.PageSize)
	require.Equal(t, ReviewModeWorkflow, cfg.ReviewMode)
	require.Equal(t, int64(10*1024*1024), cfg.AllowedUploadBytes)
	require.Equal(t, "gdoc-review", cfg.WorkflowIDPrefix)
	require.False(t, cfg.UsesMinio())
}

func TestLoadRequiresDSNForPostgres(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("POSTGRES_DSN", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsUnknownModes(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("REVIEW_MODE", "manual")

	_, err := Load()
	require.ErrorContains(t, err, "REVIEW_MODE")

	t.Setenv("REVIEW_MODE", "direct")
	t.Setenv("STORAGE_DRIVER", "sqlite")
	_, err = Load()
	require.ErrorContains(t, err, "STORAGE_DRIVER")
}
