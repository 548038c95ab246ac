package pipeline

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"medbill/internal"
	"medbill/internal/config"
	"medbill/internal/llm"
	"medbill/internal/storage"
)

// ProcessingService drives the whole transformation: definitions are
// processed strictly one at a time, in row order, and a single row's
// extraction failure is contained as a skip.
type ProcessingService struct {
	db        *storage.DB
	cfg       config.Config
	extractor *Extractor
	pacer     *llm.Pacer
}

func NewProcessingService(db *storage.DB, cfg config.Config, completer llm.Completer) *ProcessingService {
	return &ProcessingService{
		db:        db,
		cfg:       cfg,
		extractor: NewExtractor(completer),
		pacer:     llm.NewPacer(time.Duration(cfg.RowDelayMs) * time.Millisecond),
	}
}

// ImportSource parses one input document and stores its definition rows,
// deduplicated by content hash. With force set, re-importing an unchanged
// file replaces its definitions and clears prior processing state;
// otherwise an already-processed file is left alone.
func (s *ProcessingService) ImportSource(path string, format internal.SourceFormat, force bool) (internal.SourceRow, int, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return internal.SourceRow{}, 0, err
	}

	defs, err := ParseDefinitions(format, blob)
	if err != nil {
		return internal.SourceRow{}, 0, err
	}

	hash := sha256.Sum256(blob)
	source, err := s.db.UpsertSource(path, string(format), hex.EncodeToString(hash[:]), "imported")
	if err != nil {
		return internal.SourceRow{}, 0, err
	}
	if !force && source.Status != "imported" {
		return source, 0, nil
	}

	if err := s.db.ReplaceDefinitions(source.ID, defs); err != nil {
		return internal.SourceRow{}, 0, err
	}
	if err := s.db.UpdateSourceStatus(source.ID, "imported"); err != nil {
		return internal.SourceRow{}, 0, err
	}
	source.Status = "imported"

	return source, len(defs), nil
}

// ProcessSource extracts every definition of one source and stores the
// fanned-out billing rows.
func (s *ProcessingService) ProcessSource(ctx context.Context, sourceID int) (internal.RunCounts, error) {
	start := time.Now()

	defs, err := s.db.ListDefinitionsBySource(sourceID)
	if err != nil {
		return internal.RunCounts{}, err
	}

	counts := internal.RunCounts{Definitions: len(defs)}
	for _, def := range defs {
		emitted, err := s.processDefinition(ctx, def, &counts)
		if err != nil {
			return counts, err
		}
		counts.RowsEmitted += emitted

		s.pacer.WaitTurn()
	}

	if err := s.db.UpdateSourceStatus(sourceID, "processed"); err != nil {
		return counts, err
	}
	timings := map[string]float64{"totalMs": float64(time.Since(start).Milliseconds())}
	_ = s.db.InsertRun(traceID(), sourceID, timings, counts)

	return counts, nil
}

// processDefinition handles a single row. Extraction failures and empty
// records are recorded and skipped; only storage errors propagate.
func (s *ProcessingService) processDefinition(ctx context.Context, def internal.DefinitionRow, counts *internal.RunCounts) (int, error) {
	fmt.Printf("Processing: %s\n", def.ServiceCategory)

	outcome := s.extractor.Extract(ctx, def.Definition)

	errMsg := ""
	switch outcome.Status {
	case internal.ExtractionError:
		errMsg = outcome.Err.Error()
		fmt.Printf("warn: extraction failed for row %d: %v\n", def.RowNo, outcome.Err)
		counts.Failed++
	case internal.ExtractionEmpty:
		fmt.Printf("warn: skipping row %d: empty extraction\n", def.RowNo)
		counts.Skipped++
	case internal.ExtractionOK:
		counts.Extracted++
	}

	extractionID, err := s.db.InsertExtraction(def.ID, outcome.Status, outcome.Raw, outcome.Record, errMsg)
	if err != nil {
		return 0, err
	}

	if outcome.Status != internal.ExtractionOK {
		return 0, nil
	}

	rows := BuildBillingRows(def.ServiceCategory, outcome.Record)
	if err := s.db.InsertBillingRows(extractionID, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// ProcessPending processes imported sources oldest first, up to limit.
func (s *ProcessingService) ProcessPending(ctx context.Context, limit int) (int, internal.RunCounts, error) {
	pending, err := s.db.ListSourcesByStatus("imported", limit)
	if err != nil {
		return 0, internal.RunCounts{}, err
	}

	total := internal.RunCounts{}
	processed := 0
	for _, source := range pending {
		counts, err := s.ProcessSource(ctx, source.ID)
		if err != nil {
			return processed, total, err
		}
		processed++
		total.Definitions += counts.Definitions
		total.Extracted += counts.Extracted
		total.Skipped += counts.Skipped
		total.Failed += counts.Failed
		total.RowsEmitted += counts.RowsEmitted
	}
	return processed, total, nil
}

// RunOnce is the one-shot path: import a document, process every row and
// export the billing table. An empty result still writes a sheet with the
// declared columns.
func (s *ProcessingService) RunOnce(ctx context.Context, format internal.SourceFormat, inputPath, outputPath string) (internal.RunCounts, error) {
	source, _, err := s.ImportSource(inputPath, format, true)
	if err != nil {
		return internal.RunCounts{}, err
	}

	counts, err := s.ProcessSource(ctx, source.ID)
	if err != nil {
		return counts, err
	}

	rows, err := s.db.GetBillingRowsBySource(source.ID)
	if err != nil {
		return counts, err
	}
	if err := ExportRowsToXLSX(rows, outputPath); err != nil {
		return counts, err
	}

	if err := s.db.UpdateSourceStatus(source.ID, "exported"); err != nil {
		return counts, err
	}
	return counts, nil
}

func traceID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("run-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}
