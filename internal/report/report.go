// Package report summarizes a batch run: counts, failures, and the duplicate
// groups found.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"vidprint/internal/dedup"
)

// Failure records one item that could not be processed.
type Failure struct {
	Source string `json:"source"`
	Reason string `json:"reason"`
}

// Member is one video inside a duplicate group.
type Member struct {
	ID             int64   `json:"id"`
	Source         string  `json:"source"`
	Title          string  `json:"title,omitempty"`
	Similarity     float64 `json:"similarity"`
	Representative bool    `json:"representative"`
}

// Group is one set of mutually similar videos.
type Group struct {
	Members []Member `json:"members"`
}

// Report is the full outcome of a batch run.
type Report struct {
	RunID         string    `json:"run_id"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	Total         int       `json:"total"`
	Processed     int       `json:"processed"`
	Skipped       int       `json:"skipped"`
	Failed        int       `json:"failed"`
	DuplicateRate float64   `json:"duplicate_rate"`
	Groups        []Group   `json:"groups"`
	Failures      []Failure `json:"failures,omitempty"`
}

// Build assembles a report from clustering output. The duplicate rate is the
// fraction of successfully processed videos that landed in a group.
func Build(runID string, startedAt, finishedAt time.Time, total, processed, skipped, failed int, groups []dedup.Group, failures []Failure) Report {
	r := Report{
		RunID:      runID,
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
		Total:      total,
		Processed:  processed,
		Skipped:    skipped,
		Failed:     failed,
		Failures:   failures,
	}

	duplicates := 0
	for _, g := range groups {
		duplicates += len(g.Members)
		rg := Group{Members: make([]Member, 0, len(g.Members))}
		for _, m := range g.Members {
			rg.Members = append(rg.Members, Member{
				ID:             m.Video.ID,
				Source:         m.Video.Source,
				Title:          m.Video.Title,
				Similarity:     m.Similarity,
				Representative: m.Representative,
			})
		}
		r.Groups = append(r.Groups, rg)
	}
	if processed > 0 {
		r.DuplicateRate = float64(duplicates) / float64(processed)
	}
	return r
}

// WriteJSON saves the report to path, creating or truncating the file.
func (r Report) WriteJSON(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
