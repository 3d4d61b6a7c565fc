// Package checkpoint persists per-item batch progress so interrupted runs
// resume where they stopped.
package checkpoint

import (
	"context"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"database/sql"

	_ "modernc.org/sqlite"

	"vidprint/internal/errs"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Status is the terminal state recorded for one batch item.
type Status string

const (
	StatusProcessed Status = "processed"
	StatusFailed    Status = "failed"
)

// Item is the durable record of one source within one run.
type Item struct {
	RunID     string
	Source    string
	Status    Status
	Reason    string
	VideoID   int64
	Attempts  int
	UpdatedAt time.Time
}

type Store struct {
	db *sql.DB
}

func New(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errs.New(errs.KindCheckpoint, "db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errs.Wrap(errs.KindCheckpoint, "create db directory", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errs.Wrap(errs.KindCheckpoint, "open sqlite", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &Store{db: db}
	if err := store.init(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return errs.Wrap(errs.KindCheckpoint, "set WAL mode", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		return errs.Wrap(errs.KindCheckpoint, "set busy timeout", err)
	}
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		return errs.Wrap(errs.KindCheckpoint, "create schema_migrations", err)
	}

	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return errs.Wrap(errs.KindCheckpoint, "read migrations", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version := migrationVersion(entry.Name())
		if version <= 0 {
			continue
		}
		var exists int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&exists); err != nil {
			return errs.Wrap(errs.KindCheckpoint, fmt.Sprintf("check migration %s", entry.Name()), err)
		}
		if exists > 0 {
			continue
		}
		content, err := migrationFiles.ReadFile(filepath.Join("migrations", entry.Name()))
		if err != nil {
			return errs.Wrap(errs.KindCheckpoint, fmt.Sprintf("read migration %s", entry.Name()), err)
		}
		if _, err := s.db.ExecContext(ctx, string(content)); err != nil {
			return errs.Wrap(errs.KindCheckpoint, fmt.Sprintf("apply migration %s", entry.Name()), err)
		}
		if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			return errs.Wrap(errs.KindCheckpoint, fmt.Sprintf("record migration %s", entry.Name()), err)
		}
	}
	return nil
}

// migrationVersion extracts the leading integer from a migration filename (e.g. "0001_init.sql" → 1).
func migrationVersion(name string) int {
	for i, c := range name {
		if c < '0' || c > '9' {
			if i == 0 {
				return 0
			}
			n, _ := strconv.Atoi(name[:i])
			return n
		}
	}
	n, _ := strconv.Atoi(name)
	return n
}

// Upsert records the outcome for one item. Re-running an item overwrites its
// previous record.
func (s *Store) Upsert(ctx context.Context, item Item) error {
	if item.RunID == "" || item.Source == "" {
		return errs.New(errs.KindCheckpoint, "run id and source are required")
	}
	updatedAt := item.UpdatedAt.UTC()
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO run_items (run_id, source, status, reason, video_id, attempts, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(run_id, source) DO UPDATE SET
			status=excluded.status,
			reason=excluded.reason,
			video_id=excluded.video_id,
			attempts=excluded.attempts,
			updated_at=excluded.updated_at`,
		item.RunID,
		item.Source,
		string(item.Status),
		item.Reason,
		item.VideoID,
		item.Attempts,
		updatedAt,
	)
	if err != nil {
		return errs.Wrap(errs.KindCheckpoint, fmt.Sprintf("upsert item %s", item.Source), err)
	}
	return nil
}

// Load returns all recorded items of a run keyed by source.
func (s *Store) Load(ctx context.Context, runID string) (map[string]Item, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT run_id, source, status, reason, video_id, attempts, updated_at
		 FROM run_items
		 WHERE run_id = ?
		 ORDER BY source ASC`,
		runID,
	)
	if err != nil {
		return nil, errs.Wrap(errs.KindCheckpoint, "load run items", err)
	}
	defer rows.Close()

	ret := make(map[string]Item)
	for rows.Next() {
		var item Item
		var status string
		if err := rows.Scan(
			&item.RunID,
			&item.Source,
			&status,
			&item.Reason,
			&item.VideoID,
			&item.Attempts,
			&item.UpdatedAt,
		); err != nil {
			return nil, errs.Wrap(errs.KindCheckpoint, "scan run item", err)
		}
		item.Status = Status(status)
		ret[item.Source] = item
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.KindCheckpoint, "iterate run items", err)
	}
	return ret, nil
}

// DeleteRun drops all records of a run so it can be replayed from scratch.
func (s *Store) DeleteRun(ctx context.Context, runID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM run_items WHERE run_id = ?`, runID); err != nil {
		return errs.Wrap(errs.KindCheckpoint, "delete run", err)
	}
	return nil
}
