// Package service wires acquisition, frame decoding, feature extraction, and
// the vector index into the end-to-end fingerprinting operations.
package service

import (
	"context"
	"fmt"
	"image"
	"log/slog"

	"vidprint/internal/config"
	"vidprint/internal/errs"
	"vidprint/internal/fingerprint"
	"vidprint/internal/media"
	"vidprint/internal/vectorindex"
)

// Fetcher resolves a source (URL or local path) to a local file.
type Fetcher interface {
	Fetch(ctx context.Context, source string) (string, func(), error)
}

// Prober reads stream metadata from a local file.
type Prober func(path string) (media.Info, error)

// FrameDecoder decodes the frames at the given indices from a local file.
type FrameDecoder interface {
	FramesAt(ctx context.Context, path string, indices []int) ([]image.Image, error)
}

// Fingerprint is the computed signature of one video plus the metadata
// gathered while computing it.
type Fingerprint struct {
	Vector        []float32
	Meta          vectorindex.VideoMeta
	SampledFrames int
	ValidFrames   int
}

type Service struct {
	cfg        config.Config
	logger     *slog.Logger
	index      vectorindex.Index
	fetcher    Fetcher
	probe      Prober
	frames     FrameDecoder
	extractor  *fingerprint.Extractor
	projection *fingerprint.Projection
	metric     vectorindex.Metric
}

func New(
	cfg config.Config,
	logger *slog.Logger,
	index vectorindex.Index,
	fetcher Fetcher,
	probe Prober,
	frames FrameDecoder,
) *Service {
	metric, err := vectorindex.ParseMetric(cfg.Index.Metric)
	if err != nil {
		metric = vectorindex.MetricCosine
	}
	return &Service{
		cfg:        cfg,
		logger:     logger,
		index:      index,
		fetcher:    fetcher,
		probe:      probe,
		frames:     frames,
		extractor:  fingerprint.NewExtractor(cfg.Extract.ImageSize),
		projection: fingerprint.NewProjection(2*fingerprint.DescriptorLen, cfg.Extract.Dimension),
		metric:     metric,
	}
}

// Fingerprint runs the full pipeline for one source: acquire, probe, sample,
// decode, describe, aggregate. Individual frames that fail description are
// tolerated up to the configured valid-frame ratio.
func (s *Service) Fingerprint(ctx context.Context, source string) (*Fingerprint, error) {
	path, cleanup, err := s.fetcher.Fetch(ctx, source)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	info, err := s.probe(path)
	if err != nil {
		return nil, err
	}

	indices := fingerprint.SampleIndices(
		info.FrameCount,
		s.cfg.Extract.FrameInterval,
		s.cfg.Extract.MinFrames,
		s.cfg.Extract.MaxFrames,
	)
	if len(indices) == 0 {
		return nil, errs.New(errs.KindDecode, fmt.Sprintf("%s has no frames to sample", source))
	}

	frames, err := s.frames.FramesAt(ctx, path, indices)
	if err != nil {
		return nil, err
	}

	descs := make([]fingerprint.Descriptor, 0, len(frames))
	for i, frame := range frames {
		desc, err := s.extractor.Describe(frame)
		if err != nil {
			// the decoder may return fewer frames than requested, so the
			// source frame number is not knowable here; log the position
			// within the decoded sequence
			s.logger.Warn("frame description failed",
				"source", source, "frame", i, "error", err)
			continue
		}
		descs = append(descs, desc)
	}

	valid := len(descs)
	if float64(valid) < s.cfg.Extract.MinValidFrameRatio*float64(len(indices)) || valid == 0 {
		return nil, errs.New(errs.KindExtraction,
			fmt.Sprintf("%s: only %d of %d sampled frames yielded descriptors", source, valid, len(indices)))
	}

	vector, err := fingerprint.Aggregate(descs, s.projection)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("fingerprint computed",
		"source", source,
		"sampled", len(indices),
		"valid", valid,
		"dimension", len(vector),
	)

	return &Fingerprint{
		Vector: vector,
		Meta: vectorindex.VideoMeta{
			Source:     source,
			Width:      info.Width,
			Height:     info.Height,
			Duration:   info.Duration,
			FrameCount: info.FrameCount,
		},
		SampledFrames: len(indices),
		ValidFrames:   valid,
	}, nil
}

// Add fingerprints a source and stores it in the index. Re-adding the same
// source updates the stored record and keeps its ID.
func (s *Service) Add(ctx context.Context, source, title string) (vectorindex.VideoMeta, error) {
	fp, err := s.Fingerprint(ctx, source)
	if err != nil {
		return vectorindex.VideoMeta{}, err
	}
	fp.Meta.Title = title

	id, err := s.index.Insert(ctx, fp.Meta, fp.Vector)
	if err != nil {
		return vectorindex.VideoMeta{}, err
	}
	fp.Meta.ID = id

	s.logger.Info("video indexed", "id", id, "source", source)
	return fp.Meta, nil
}

// Search fingerprints a source and returns its topK nearest indexed videos.
// The source itself is excluded when it is already indexed.
func (s *Service) Search(ctx context.Context, source string, topK int) ([]vectorindex.Match, error) {
	fp, err := s.Fingerprint(ctx, source)
	if err != nil {
		return nil, err
	}
	matches, err := s.index.Search(ctx, fp.Vector, topK+1)
	if err != nil {
		return nil, err
	}
	out := matches[:0]
	for _, m := range matches {
		if m.Video.Source == source {
			continue
		}
		out = append(out, m)
	}
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

// Compare fingerprints two sources and returns their similarity in [0,1]
// without touching the index.
func (s *Service) Compare(ctx context.Context, a, b string) (float64, error) {
	fpA, err := s.Fingerprint(ctx, a)
	if err != nil {
		return 0, err
	}
	fpB, err := s.Fingerprint(ctx, b)
	if err != nil {
		return 0, err
	}
	va, vb := fpA.Vector, fpB.Vector
	if s.metric == vectorindex.MetricCosine {
		va = vectorindex.Normalize(va)
		vb = vectorindex.Normalize(vb)
	}
	return s.metric.Similarity(s.metric.Distance(va, vb)), nil
}

// Stats summarizes the index and the active extraction settings.
type Stats struct {
	Videos    int64   `json:"videos"`
	Dimension int     `json:"dimension"`
	Metric    string  `json:"metric"`
	Threshold float64 `json:"threshold"`
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	n, err := s.index.Count(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Videos:    n,
		Dimension: s.projection.OutDim(),
		Metric:    string(s.metric),
		Threshold: s.cfg.Index.SimilarityThreshold,
	}, nil
}

// Delete removes one video from the index.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.index.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("video deleted", "id", id)
	return nil
}

// Index exposes the underlying vector index for collaborators that need
// neighbor queries.
func (s *Service) Index() vectorindex.Index { return s.index }
