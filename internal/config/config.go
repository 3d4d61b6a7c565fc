package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration, built once at startup and
// passed into every component constructor.
//
// Environment Variables:
// Extraction:
// - FRAME_INTERVAL: sample every Nth frame (default: 15)
// - MIN_FRAMES: minimum sampled frames per video (default: 5)
// - MAX_FRAMES: maximum sampled frames per video (default: 100)
// - IMAGE_SIZE: square resize target before feature computation (default: 224)
// - DIMENSION: fingerprint vector length (default: 512)
// - MIN_VALID_FRAME_RATIO: minimum fraction of sampled frames that must yield
//   descriptors before the video fails (default: 0.5)
//
// Index:
// - METRIC_TYPE: "cosine" or "l2" (default: cosine)
// - SIMILARITY_THRESHOLD: duplicate threshold in [0,1] (default: 0.8)
// - TOP_K: neighbors fetched per query (default: 5)
// - POSTGRES_HOST / POSTGRES_PORT / POSTGRES_USER / POSTGRES_PASSWORD /
//   POSTGRES_DB: vector index connection
//
// Batch:
// - BATCH_WORKERS: concurrent pipeline workers (default: 4)
// - ITEM_TIMEOUT: per-item deadline in seconds (default: 300)
// - CHECKPOINT_DB: sqlite checkpoint path (default: data/checkpoint.db)
// - DOWNLOAD_DIR: temp directory for fetched videos (default: temp_videos)
// - BATCH_CRON: schedule for the watch command (default: 0 3 * * *)
type Config struct {
	Extract ExtractConfig `json:"extract"`
	Index   IndexConfig   `json:"index"`
	Batch   BatchConfig   `json:"batch"`
}

type ExtractConfig struct {
	FrameInterval      int     `json:"frame_interval"`
	MinFrames          int     `json:"min_frames"`
	MaxFrames          int     `json:"max_frames"`
	ImageSize          int     `json:"image_size"`
	Dimension          int     `json:"dimension"`
	MinValidFrameRatio float64 `json:"min_valid_frame_ratio"`
}

type IndexConfig struct {
	Metric              string  `json:"metric"`
	SimilarityThreshold float64 `json:"similarity_threshold"`
	TopK                int     `json:"top_k"`

	PostgresHost     string `json:"postgres_host"`
	PostgresPort     string `json:"postgres_port"`
	PostgresUser     string `json:"postgres_user"`
	PostgresPassword string `json:"-"`
	PostgresDB       string `json:"postgres_db"`
}

type BatchConfig struct {
	Workers      int           `json:"workers"`
	ItemTimeout  time.Duration `json:"item_timeout"`
	CheckpointDB string        `json:"checkpoint_db"`
	DownloadDir  string        `json:"download_dir"`
	CronExpr     string        `json:"cron_expr"`
}

// Option is a function type for configuring Config
type Option func(*Config)

// NewFromEnv creates a new Config instance with values from environment
// variables and options. A .env file is honored when present.
func NewFromEnv(opts ...Option) (*Config, error) {
	_ = godotenv.Load()

	config := &Config{
		Extract: ExtractConfig{
			FrameInterval:      getEnvInt("FRAME_INTERVAL", 15),
			MinFrames:          getEnvInt("MIN_FRAMES", 5),
			MaxFrames:          getEnvInt("MAX_FRAMES", 100),
			ImageSize:          getEnvInt("IMAGE_SIZE", 224),
			Dimension:          getEnvInt("DIMENSION", 512),
			MinValidFrameRatio: getEnvFloat("MIN_VALID_FRAME_RATIO", 0.5),
		},
		Index: IndexConfig{
			Metric:              getEnvString("METRIC_TYPE", "cosine"),
			SimilarityThreshold: getEnvFloat("SIMILARITY_THRESHOLD", 0.8),
			TopK:                getEnvInt("TOP_K", 5),
			PostgresHost:        getEnvString("POSTGRES_HOST", "localhost"),
			PostgresPort:        getEnvString("POSTGRES_PORT", "5432"),
			PostgresUser:        getEnvString("POSTGRES_USER", "postgres"),
			PostgresPassword:    getEnvString("POSTGRES_PASSWORD", ""),
			PostgresDB:          getEnvString("POSTGRES_DB", "vidprint"),
		},
		Batch: BatchConfig{
			Workers:      getEnvInt("BATCH_WORKERS", 4),
			ItemTimeout:  time.Duration(getEnvInt("ITEM_TIMEOUT", 300)) * time.Second,
			CheckpointDB: getEnvString("CHECKPOINT_DB", "data/checkpoint.db"),
			DownloadDir:  getEnvString("DOWNLOAD_DIR", "temp_videos"),
			CronExpr:     getEnvString("BATCH_CRON", "0 3 * * *"),
		},
	}

	for _, opt := range opts {
		opt(config)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.Extract.FrameInterval < 1 {
		return fmt.Errorf("FRAME_INTERVAL must be >= 1, got %d", c.Extract.FrameInterval)
	}
	if c.Extract.MinFrames < 1 {
		return fmt.Errorf("MIN_FRAMES must be >= 1, got %d", c.Extract.MinFrames)
	}
	if c.Extract.MinFrames > c.Extract.MaxFrames {
		return fmt.Errorf("MIN_FRAMES (%d) must not exceed MAX_FRAMES (%d)",
			c.Extract.MinFrames, c.Extract.MaxFrames)
	}
	if c.Extract.ImageSize < 1 {
		return fmt.Errorf("IMAGE_SIZE must be >= 1, got %d", c.Extract.ImageSize)
	}
	if c.Extract.Dimension < 1 {
		return fmt.Errorf("DIMENSION must be >= 1, got %d", c.Extract.Dimension)
	}
	if c.Extract.MinValidFrameRatio < 0 || c.Extract.MinValidFrameRatio > 1 {
		return fmt.Errorf("MIN_VALID_FRAME_RATIO must be in [0,1], got %g", c.Extract.MinValidFrameRatio)
	}
	if c.Index.Metric != "cosine" && c.Index.Metric != "l2" {
		return fmt.Errorf("METRIC_TYPE must be cosine or l2, got %q", c.Index.Metric)
	}
	if c.Index.SimilarityThreshold < 0 || c.Index.SimilarityThreshold > 1 {
		return fmt.Errorf("SIMILARITY_THRESHOLD must be in [0,1], got %g", c.Index.SimilarityThreshold)
	}
	if c.Index.TopK < 1 {
		return fmt.Errorf("TOP_K must be >= 1, got %d", c.Index.TopK)
	}
	if c.Batch.Workers < 1 {
		return fmt.Errorf("BATCH_WORKERS must be >= 1, got %d", c.Batch.Workers)
	}
	return nil
}

// PostgresURL builds the pgx connection string for the vector index.
func (c IndexConfig) PostgresURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		c.PostgresUser, c.PostgresPassword, c.PostgresHost, c.PostgresPort, c.PostgresDB)
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat gets a float value from environment variables with default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
