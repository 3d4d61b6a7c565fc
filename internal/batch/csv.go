// Package batch runs the fingerprint pipeline over many sources with
// bounded concurrency, durable per-item checkpoints, and a final duplicate
// report.
package batch

import (
	"encoding/csv"
	"io"
	"strings"

	"vidprint/internal/errs"
	"vidprint/internal/media"
)

// ReadSources extracts video sources from CSV input. A header row naming a
// url/link/source column selects that column; otherwise the first column of
// the first row that looks like a URL wins, falling back to column zero.
// Duplicate sources are dropped, keeping first occurrence order.
func ReadSources(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, errs.Wrap(errs.KindAcquisition, "parse csv", err)
	}
	if len(records) == 0 {
		return nil, errs.New(errs.KindAcquisition, "csv input is empty")
	}

	col, start := detectColumn(records[0])

	seen := make(map[string]bool)
	var sources []string
	for _, rec := range records[start:] {
		if col >= len(rec) {
			continue
		}
		s := strings.TrimSpace(rec[col])
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		sources = append(sources, s)
	}
	if len(sources) == 0 {
		return nil, errs.New(errs.KindAcquisition, "csv input has no sources")
	}
	return sources, nil
}

func detectColumn(first []string) (col, start int) {
	for i, cell := range first {
		switch strings.ToLower(strings.TrimSpace(cell)) {
		case "url", "link", "source", "video_url", "video":
			return i, 1
		}
	}
	for i, cell := range first {
		if media.IsURL(strings.TrimSpace(cell)) {
			return i, 0
		}
	}
	return 0, 0
}
