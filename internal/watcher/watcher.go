package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"medbill/internal"
	"medbill/internal/config"
	"medbill/internal/llm"
	"medbill/internal/pipeline"
	"medbill/internal/storage"
	"medbill/internal/util"
)

// Service polls an inbox directory for new definition documents and runs
// them through import, processing and export. Already-seen files are
// recognized by content hash, so a cycle can rescan the whole directory.
type Service struct {
	db        *storage.DB
	cfg       config.Config
	processor *pipeline.ProcessingService
}

func NewService(db *storage.DB, cfg config.Config, completer llm.Completer) *Service {
	return &Service{
		db:        db,
		cfg:       cfg,
		processor: pipeline.NewProcessingService(db, cfg, completer),
	}
}

func (s *Service) Run(ctx context.Context) error {
	for {
		if err := s.runCycle(ctx); err != nil {
			fmt.Printf("watch cycle error: %v\n", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Duration(s.cfg.WatchIntervalSec) * time.Second):
		}
	}
}

func (s *Service) runCycle(ctx context.Context) error {
	imported, err := s.importNew()
	if err != nil {
		return err
	}

	processed, counts, err := s.processor.ProcessPending(ctx, s.cfg.WatchProcessBatch)
	if err != nil {
		return err
	}

	if s.cfg.WatchAutoExport {
		if err := s.exportProcessed(); err != nil {
			return err
		}
	}

	fmt.Printf("watch cycle done imported=%d processed=%d rows=%d\n", imported, processed, counts.RowsEmitted)
	return nil
}

func (s *Service) importNew() (int, error) {
	entries, err := os.ReadDir(s.cfg.WatchInboxDir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	imported := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		format, ok := formatForFile(entry.Name())
		if !ok {
			continue
		}

		path := filepath.Join(s.cfg.WatchInboxDir, entry.Name())
		source, defs, err := s.processor.ImportSource(path, format, false)
		if err != nil {
			fmt.Printf("warn: import failed for %s: %v\n", path, err)
			continue
		}
		if source.Status != "imported" {
			// Content hash already seen and processed earlier.
			continue
		}
		imported++
		fmt.Printf("imported %s rows=%d sourceId=%d\n", entry.Name(), defs, source.ID)
	}
	return imported, nil
}

func (s *Service) exportProcessed() error {
	sources, err := s.db.ListSourcesByStatus("processed", 200)
	if err != nil {
		return err
	}

	for _, source := range sources {
		rows, err := s.db.GetBillingRowsBySource(source.ID)
		if err != nil {
			return err
		}

		filename := fmt.Sprintf("%d_%s.xlsx", source.ID, util.SanitizeFilename(strings.TrimSuffix(filepath.Base(source.Path), filepath.Ext(source.Path))))
		outputPath := filepath.Join(s.cfg.OutputDir, "watch", filename)
		if err := pipeline.ExportRowsToXLSX(rows, outputPath); err != nil {
			return err
		}
		_ = s.db.UpdateSourceStatus(source.ID, "exported")
	}
	return nil
}

func formatForFile(name string) (internal.SourceFormat, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xls":
		return internal.FormatXLSX, true
	case ".html", ".htm":
		return internal.FormatHTML, true
	case ".pdf":
		return internal.FormatPDF, true
	default:
		return "", false
	}
}
