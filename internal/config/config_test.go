package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFromEnv_Defaults(t *testing.T) {
	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 15, cfg.Extract.FrameInterval)
	assert.Equal(t, 5, cfg.Extract.MinFrames)
	assert.Equal(t, 100, cfg.Extract.MaxFrames)
	assert.Equal(t, 224, cfg.Extract.ImageSize)
	assert.Equal(t, 512, cfg.Extract.Dimension)
	assert.Equal(t, "cosine", cfg.Index.Metric)
	assert.InDelta(t, 0.8, cfg.Index.SimilarityThreshold, 1e-9)
	assert.Equal(t, 5, cfg.Index.TopK)
	assert.Equal(t, 4, cfg.Batch.Workers)
}

func TestNewFromEnv_EnvOverrides(t *testing.T) {
	t.Setenv("FRAME_INTERVAL", "30")
	t.Setenv("SIMILARITY_THRESHOLD", "0.92")
	t.Setenv("METRIC_TYPE", "l2")
	t.Setenv("BATCH_WORKERS", "8")

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Extract.FrameInterval)
	assert.InDelta(t, 0.92, cfg.Index.SimilarityThreshold, 1e-9)
	assert.Equal(t, "l2", cfg.Index.Metric)
	assert.Equal(t, 8, cfg.Batch.Workers)
}

func TestNewFromEnv_RejectsInvalid(t *testing.T) {
	cases := map[string]struct {
		key   string
		value string
	}{
		"zero interval":      {"FRAME_INTERVAL", "0"},
		"min above max":      {"MIN_FRAMES", "500"},
		"bad metric":         {"METRIC_TYPE", "hamming"},
		"threshold above 1":  {"SIMILARITY_THRESHOLD", "1.5"},
		"zero dimension":     {"DIMENSION", "0"},
		"negative workers":   {"BATCH_WORKERS", "-1"},
		"ratio out of range": {"MIN_VALID_FRAME_RATIO", "2"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			_, err := NewFromEnv()
			require.Error(t, err)
		})
	}
}

func TestNewFromEnv_Options(t *testing.T) {
	cfg, err := NewFromEnv(func(c *Config) {
		c.Index.SimilarityThreshold = 0.9
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.9, cfg.Index.SimilarityThreshold, 1e-9)
}

func TestPostgresURL(t *testing.T) {
	c := IndexConfig{
		PostgresHost: "db", PostgresPort: "5433",
		PostgresUser: "u", PostgresPassword: "p", PostgresDB: "vp",
	}
	assert.Equal(t, "postgres://u:p@db:5433/vp", c.PostgresURL())
}
