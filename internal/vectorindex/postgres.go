package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"vidprint/internal/errs"
)

// Postgres is the pgvector-backed Index implementation.
type Postgres struct {
	pool   *pgxpool.Pool
	dim    int
	metric Metric
	logger *slog.Logger
}

// NewPostgres connects to the database, verifies connectivity, and ensures
// the schema exists.
func NewPostgres(ctx context.Context, url string, dim int, metric Metric, logger *slog.Logger) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, errs.Wrap(errs.KindIndex, "connect to postgres", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errs.Wrap(errs.KindIndex, "ping postgres", err)
	}
	p := &Postgres{pool: pool, dim: dim, metric: metric, logger: logger}
	if err := p.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) initSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS videos (
			id BIGSERIAL PRIMARY KEY,
			source TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL DEFAULT '',
			width INT NOT NULL DEFAULT 0,
			height INT NOT NULL DEFAULT 0,
			duration DOUBLE PRECISION NOT NULL DEFAULT 0,
			frame_count INT NOT NULL DEFAULT 0,
			fingerprint vector(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, p.dim),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS videos_fingerprint_idx
			ON videos USING ivfflat (fingerprint %s) WITH (lists = 100)`, p.opClass()),
	}
	for _, stmt := range stmts {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return errs.Wrap(errs.KindIndex, "init schema", err)
		}
	}
	p.logger.Debug("vector index schema ready", "dim", p.dim, "metric", p.metric)
	return nil
}

func (p *Postgres) opClass() string {
	if p.metric == MetricL2 {
		return "vector_l2_ops"
	}
	return "vector_cosine_ops"
}

func (p *Postgres) operator() string {
	if p.metric == MetricL2 {
		return "<->"
	}
	return "<=>"
}

func (p *Postgres) prepare(fingerprint []float32) ([]float32, error) {
	if len(fingerprint) != p.dim {
		return nil, errs.New(errs.KindIndex, fmt.Sprintf("fingerprint has %d dims, index expects %d", len(fingerprint), p.dim))
	}
	if p.metric == MetricCosine {
		return Normalize(fingerprint), nil
	}
	return fingerprint, nil
}

func (p *Postgres) Insert(ctx context.Context, meta VideoMeta, fingerprint []float32) (int64, error) {
	fp, err := p.prepare(fingerprint)
	if err != nil {
		return 0, err
	}
	var id int64
	err = p.pool.QueryRow(ctx, `
		INSERT INTO videos (source, title, width, height, duration, frame_count, fingerprint)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (source) DO UPDATE SET
			title = EXCLUDED.title,
			width = EXCLUDED.width,
			height = EXCLUDED.height,
			duration = EXCLUDED.duration,
			frame_count = EXCLUDED.frame_count,
			fingerprint = EXCLUDED.fingerprint
		RETURNING id`,
		meta.Source, meta.Title, meta.Width, meta.Height, meta.Duration, meta.FrameCount,
		pgvector.NewVector(fp),
	).Scan(&id)
	if err != nil {
		return 0, errs.Wrap(errs.KindIndex, "insert fingerprint", err)
	}
	return id, nil
}

func (p *Postgres) Search(ctx context.Context, fingerprint []float32, topK int) ([]Match, error) {
	fp, err := p.prepare(fingerprint)
	if err != nil {
		return nil, err
	}
	if topK <= 0 {
		return nil, nil
	}
	op := p.operator()
	query := fmt.Sprintf(`
		SELECT id, source, title, width, height, duration, frame_count, created_at,
			fingerprint %s $1 AS distance
		FROM videos
		ORDER BY fingerprint %s $1
		LIMIT $2`, op, op)
	rows, err := p.pool.Query(ctx, query, pgvector.NewVector(fp), topK)
	if err != nil {
		return nil, errs.Wrap(errs.KindIndex, "search fingerprints", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		var distance float64
		if err := rows.Scan(
			&m.Video.ID, &m.Video.Source, &m.Video.Title,
			&m.Video.Width, &m.Video.Height, &m.Video.Duration,
			&m.Video.FrameCount, &m.Video.CreatedAt, &distance,
		); err != nil {
			return nil, errs.Wrap(errs.KindIndex, "scan search row", err)
		}
		m.Distance = distance
		m.Similarity = p.metric.Similarity(distance)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.KindIndex, "iterate search rows", err)
	}
	return matches, nil
}

// Neighbors returns the topK closest videos to an already indexed one,
// excluding the video itself.
func (p *Postgres) Neighbors(ctx context.Context, id int64, topK int) ([]Match, error) {
	if topK <= 0 {
		return nil, nil
	}
	op := p.operator()
	query := fmt.Sprintf(`
		SELECT v.id, v.source, v.title, v.width, v.height, v.duration, v.frame_count, v.created_at,
			v.fingerprint %s q.fingerprint AS distance
		FROM videos v, (SELECT fingerprint FROM videos WHERE id = $1) q
		WHERE v.id <> $1
		ORDER BY v.fingerprint %s q.fingerprint
		LIMIT $2`, op, op)
	rows, err := p.pool.Query(ctx, query, id, topK)
	if err != nil {
		return nil, errs.Wrap(errs.KindIndex, "search neighbors", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		var distance float64
		if err := rows.Scan(
			&m.Video.ID, &m.Video.Source, &m.Video.Title,
			&m.Video.Width, &m.Video.Height, &m.Video.Duration,
			&m.Video.FrameCount, &m.Video.CreatedAt, &distance,
		); err != nil {
			return nil, errs.Wrap(errs.KindIndex, "scan neighbor row", err)
		}
		m.Distance = distance
		m.Similarity = p.metric.Similarity(distance)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.KindIndex, "iterate neighbor rows", err)
	}
	return matches, nil
}

func (p *Postgres) Get(ctx context.Context, id int64) (*VideoMeta, error) {
	var meta VideoMeta
	err := p.pool.QueryRow(ctx, `
		SELECT id, source, title, width, height, duration, frame_count, created_at
		FROM videos WHERE id = $1`, id,
	).Scan(
		&meta.ID, &meta.Source, &meta.Title,
		&meta.Width, &meta.Height, &meta.Duration,
		&meta.FrameCount, &meta.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.KindIndex, "get video", err)
	}
	return &meta, nil
}

func (p *Postgres) Delete(ctx context.Context, id int64) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM videos WHERE id = $1`, id); err != nil {
		return errs.Wrap(errs.KindIndex, "delete video", err)
	}
	return nil
}

func (p *Postgres) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := p.pool.QueryRow(ctx, `SELECT count(*) FROM videos`).Scan(&n); err != nil {
		return 0, errs.Wrap(errs.KindIndex, "count videos", err)
	}
	return n, nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}
