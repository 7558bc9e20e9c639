// Package rowsource loads annotation source records from tabular input
// files. CSV is the primary format; TSV and XLSX sheets are accepted too
// since that is what labeling teams actually export.
package rowsource

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/yourorg/cvat-tasks/internal/iopkg"
	"github.com/yourorg/cvat-tasks/internal/metrics"
	"github.com/yourorg/cvat-tasks/internal/types"
)

// ErrMissingColumn reports a required header column absent from the input.
var ErrMissingColumn = errors.New("required column missing")

// Required header columns, matched case-insensitively.
const (
	colID     = "id"
	colURL    = "url"
	colLabels = "labels"
)

// Options controls loading behavior.
type Options struct {
	// SkipDuplicateIDs drops rows whose ID was already seen, using a
	// disk-backed set so multi-million-row sheets don't live in memory twice.
	SkipDuplicateIDs bool
	// ScratchDir holds the dedupe set; defaults to the OS temp dir.
	ScratchDir string
	Logger     *zap.Logger
}

// Load reads all source records from uri (file://, bare path, or s3://).
// It fails if the file cannot be opened or a required column is missing.
// Malformed URLs and empty label strings pass through untouched; empty
// Labels cells are logged at warn level rather than rejected.
func Load(uri string, opts Options) ([]types.SourceRecord, types.LoadStats, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	rc, _, err := iopkg.Open(uri)
	if err != nil {
		return nil, types.LoadStats{}, fmt.Errorf("open input %s: %w", uri, err)
	}
	defer rc.Close()

	var rows [][]string
	switch strings.ToLower(path.Ext(strings.TrimPrefix(uri, "file://"))) {
	case ".xlsx":
		rows, err = readXLSX(rc)
	case ".tsv":
		rows, err = readDelimited(rc, '\t')
	default:
		rows, err = readCSV(rc)
	}
	if err != nil {
		return nil, types.LoadStats{}, fmt.Errorf("parse input %s: %w", uri, err)
	}
	if len(rows) == 0 {
		return nil, types.LoadStats{}, fmt.Errorf("input %s: %w: empty file", uri, ErrMissingColumn)
	}

	idx, err := mapHeader(rows[0])
	if err != nil {
		return nil, types.LoadStats{}, fmt.Errorf("input %s: %w", uri, err)
	}

	var seen seenSet = noSeen{}
	if opts.SkipDuplicateIDs {
		bs, err := newBadgerSeen(opts.ScratchDir)
		if err != nil {
			return nil, types.LoadStats{}, fmt.Errorf("dedupe set: %w", err)
		}
		defer bs.close()
		seen = bs
	}

	var stats types.LoadStats
	records := make([]types.SourceRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := types.SourceRecord{
			ID:        strings.TrimSpace(cell(row, idx.id)),
			ImageURL:  strings.TrimSpace(cell(row, idx.url)),
			RawLabels: cell(row, idx.labels),
		}
		if rec.ID == "" {
			stats.SkippedEmpty++
			continue
		}
		first, err := seen.add(rec.ID)
		if err != nil {
			return nil, types.LoadStats{}, fmt.Errorf("dedupe set: %w", err)
		}
		if !first {
			stats.SkippedDup++
			log.Debug("duplicate ID skipped", zap.String("id", rec.ID))
			continue
		}
		if strings.TrimSpace(rec.RawLabels) == "" {
			// Passed through (it becomes one empty-named label downstream),
			// but worth flagging: usually a broken export.
			log.Warn("row has empty Labels cell", zap.String("id", rec.ID))
		}
		records = append(records, rec)
	}
	stats.Rows = len(records)
	metrics.RowsLoaded.Add(float64(stats.Rows))

	log.Info("loaded input sheet",
		zap.String("uri", uri),
		zap.Int("rows", stats.Rows),
		zap.Int("skipped_empty", stats.SkippedEmpty),
		zap.Int("skipped_dup", stats.SkippedDup))
	return records, stats, nil
}

type headerIndex struct {
	id, url, labels int
}

func mapHeader(header []string) (headerIndex, error) {
	idx := headerIndex{id: -1, url: -1, labels: -1}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case colID:
			idx.id = i
		case colURL:
			idx.url = i
		case colLabels:
			idx.labels = i
		}
	}
	switch {
	case idx.id < 0:
		return idx, fmt.Errorf("%w: ID", ErrMissingColumn)
	case idx.url < 0:
		return idx, fmt.Errorf("%w: URL", ErrMissingColumn)
	case idx.labels < 0:
		return idx, fmt.Errorf("%w: Labels", ErrMissingColumn)
	}
	return idx, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

func readCSV(r io.Reader) ([][]string, error) {
	br := bufio.NewReader(r)
	sample, _ := br.Peek(4096)
	return readDelimited(br, detectDelimiter(sample))
}

func readDelimited(r io.Reader, delim rune) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	var rows [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(rec) == 0 {
			continue
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

func detectDelimiter(b []byte) rune {
	cComma := bytes.Count(b, []byte{','})
	cTab := bytes.Count(b, []byte{'\t'})
	cSemi := bytes.Count(b, []byte{';'})
	if cTab > cComma && cTab > cSemi {
		return '\t'
	}
	if cSemi > cComma {
		return ';'
	}
	return ','
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	return f.GetRows(sheets[0])
}
