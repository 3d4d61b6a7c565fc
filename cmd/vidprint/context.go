package main

import (
	"context"
	"log/slog"
	"time"

	"vidprint/internal/config"
	"vidprint/internal/logging"
	"vidprint/internal/media"
	"vidprint/internal/service"
	"vidprint/internal/vectorindex"
)

const downloadTimeout = 10 * time.Minute

// commandContext lazily builds the shared runtime pieces so commands only
// pay for what they use.
type commandContext struct {
	logLevel *string

	cfg    *config.Config
	logger *slog.Logger
}

func newCommandContext(logLevel *string) *commandContext {
	return &commandContext{logLevel: logLevel}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.NewFromEnv()
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	c.logger = logging.New(*c.logLevel)
	return cfg, nil
}

// newService connects the full pipeline against the Postgres index. The
// returned closer releases the connection pool.
func (c *commandContext) newService(ctx context.Context) (*service.Service, func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}

	metric, err := vectorindex.ParseMetric(cfg.Index.Metric)
	if err != nil {
		return nil, nil, err
	}
	index, err := vectorindex.NewPostgres(ctx, cfg.Index.PostgresURL(), cfg.Extract.Dimension, metric, c.logger)
	if err != nil {
		return nil, nil, err
	}

	svc := service.New(
		*cfg,
		c.logger,
		index,
		media.NewDownloader(cfg.Batch.DownloadDir, downloadTimeout),
		media.Probe,
		media.NewFrameSource(cfg.Extract.ImageSize),
	)
	return svc, index.Close, nil
}
