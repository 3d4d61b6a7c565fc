package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"vidprint/internal/checkpoint"
	"vidprint/internal/dedup"
	"vidprint/internal/errs"
	"vidprint/internal/report"
	"vidprint/internal/vectorindex"
)

// Pipeline is the single-video operation the orchestrator fans out.
type Pipeline interface {
	Add(ctx context.Context, source, title string) (vectorindex.VideoMeta, error)
}

type Orchestrator struct {
	pipeline    Pipeline
	index       vectorindex.Index
	store       *checkpoint.Store
	logger      *slog.Logger
	workers     int
	itemTimeout time.Duration
	threshold   float64
	topK        int
}

func NewOrchestrator(
	pipeline Pipeline,
	index vectorindex.Index,
	store *checkpoint.Store,
	logger *slog.Logger,
	workers int,
	itemTimeout time.Duration,
	threshold float64,
	topK int,
) *Orchestrator {
	if workers < 1 {
		workers = 1
	}
	return &Orchestrator{
		pipeline:    pipeline,
		index:       index,
		store:       store,
		logger:      logger,
		workers:     workers,
		itemTimeout: itemTimeout,
		threshold:   threshold,
		topK:        topK,
	}
}

// Run processes every source, then clusters the indexed videos into
// duplicate groups. A failing item is recorded and never aborts the run.
// Re-running with the same runID skips items already processed and retries
// previous failures.
func (o *Orchestrator) Run(ctx context.Context, runID string, sources []string) (report.Report, error) {
	startedAt := time.Now().UTC()

	prior, err := o.store.Load(ctx, runID)
	if err != nil {
		return report.Report{}, err
	}

	var (
		mu           sync.Mutex
		processedIDs []int64
		failures     []report.Failure
		skipped      int
	)

	items := dedupe(sources)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)

	for _, source := range items {
		if item, ok := prior[source]; ok && item.Status == checkpoint.StatusProcessed {
			o.logger.Debug("skipping checkpointed item", "run", runID, "source", source)
			mu.Lock()
			processedIDs = append(processedIDs, item.VideoID)
			skipped++
			mu.Unlock()
			continue
		}
		attempts := prior[source].Attempts

		source := source
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			meta, err := o.processOne(gctx, source)
			if err != nil {
				// a batch-level cancel leaves the item unrecorded so the
				// next run retries it
				if gctx.Err() != nil {
					return gctx.Err()
				}
				o.logger.Warn("item failed", "run", runID, "source", source, "error", err)
				mu.Lock()
				failures = append(failures, report.Failure{Source: source, Reason: err.Error()})
				mu.Unlock()
				// losing progress tracking corrupts resumability, so a
				// checkpoint write failure aborts the whole run
				return o.store.Upsert(ctx, checkpoint.Item{
					RunID:    runID,
					Source:   source,
					Status:   checkpoint.StatusFailed,
					Reason:   err.Error(),
					Attempts: attempts + 1,
				})
			}
			mu.Lock()
			processedIDs = append(processedIDs, meta.ID)
			mu.Unlock()
			return o.store.Upsert(ctx, checkpoint.Item{
				RunID:    runID,
				Source:   source,
				Status:   checkpoint.StatusProcessed,
				VideoID:  meta.ID,
				Attempts: attempts + 1,
			})
		})
	}

	if err := g.Wait(); err != nil {
		return report.Report{}, err
	}

	groups, err := o.cluster(ctx, processedIDs)
	if err != nil {
		return report.Report{}, err
	}

	rep := report.Build(
		runID,
		startedAt,
		time.Now().UTC(),
		len(items),
		len(processedIDs),
		skipped,
		len(failures),
		groups,
		failures,
	)
	o.logger.Info("batch run finished",
		"run", runID,
		"total", rep.Total,
		"processed", rep.Processed,
		"skipped", rep.Skipped,
		"failed", rep.Failed,
		"groups", len(rep.Groups),
	)
	return rep, nil
}

// processOne runs the pipeline for one source under the per-item deadline.
func (o *Orchestrator) processOne(ctx context.Context, source string) (vectorindex.VideoMeta, error) {
	itemCtx := ctx
	if o.itemTimeout > 0 {
		var cancel context.CancelFunc
		itemCtx, cancel = context.WithTimeout(ctx, o.itemTimeout)
		defer cancel()
	}
	meta, err := o.pipeline.Add(itemCtx, source, "")
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return vectorindex.VideoMeta{}, errs.Wrap(errs.KindTimeout,
				fmt.Sprintf("item deadline %s exceeded", o.itemTimeout), err)
		}
		return vectorindex.VideoMeta{}, err
	}
	return meta, nil
}

// cluster builds similarity edges from neighbor queries over the processed
// videos and groups them.
func (o *Orchestrator) cluster(ctx context.Context, ids []int64) ([]dedup.Group, error) {
	var videos []dedup.Video
	var edges []dedup.Edge

	// worker completion order is racy; index ids ascending so the
	// earliest-seen tie-break stays deterministic
	sorted := make([]int64, len(ids))
	copy(sorted, ids)
	slices.Sort(sorted)

	for seen, id := range sorted {
		meta, err := o.index.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if meta == nil {
			continue
		}
		videos = append(videos, dedup.Video{
			ID:       meta.ID,
			Source:   meta.Source,
			Title:    meta.Title,
			Width:    meta.Width,
			Height:   meta.Height,
			Duration: meta.Duration,
			Seen:     seen,
		})

		matches, err := o.index.Neighbors(ctx, id, o.topK)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			edges = append(edges, dedup.Edge{A: id, B: m.Video.ID, Score: m.Similarity})
		}
	}

	return dedup.NewClusterer(o.threshold).Cluster(videos, edges), nil
}

func dedupe(sources []string) []string {
	seen := make(map[string]bool, len(sources))
	out := make([]string, 0, len(sources))
	for _, s := range sources {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
