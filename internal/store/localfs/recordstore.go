package localfs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// RecordStore keeps record collections as XLSX workbooks. The collection
// id is the workbook path; new collections are created under dir.
type RecordStore struct {
	dir    string
	logger *slog.Logger
}

func NewRecordStore(dir string, logger *slog.Logger) *RecordStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordStore{dir: dir, logger: logger}
}

// sheetOf extracts the sheet title from an A1 range like "Sheet1!A:K".
func sheetOf(a1Range string) string {
	if i := strings.Index(a1Range, "!"); i >= 0 {
		return a1Range[:i]
	}
	return a1Range
}

func (s *RecordStore) AppendRows(_ context.Context, collectionID, a1Range string, rows [][]any) (int, error) {
	f, err := excelize.OpenFile(collectionID)
	if err != nil {
		return 0, fmt.Errorf("open workbook %s: %w", collectionID, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			s.logger.Warn("localfs.workbook.close_error", "path", collectionID, "error", cerr)
		}
	}()

	sheet := sheetOf(a1Range)
	if idx, _ := f.GetSheetIndex(sheet); idx == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return 0, fmt.Errorf("create sheet %s: %w", sheet, err)
		}
	}

	existing, err := f.GetRows(sheet)
	if err != nil {
		return 0, fmt.Errorf("read sheet %s: %w", sheet, err)
	}

	cells := 0
	for i, row := range rows {
		for j, v := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, len(existing)+i+1)
			if err != nil {
				return cells, err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return cells, fmt.Errorf("write cell %s: %w", cell, err)
			}
			cells++
		}
	}
	if err := f.Save(); err != nil {
		return 0, fmt.Errorf("save workbook %s: %w", collectionID, err)
	}
	s.logger.Debug("localfs.append.ok", "path", collectionID, "sheet", sheet, "rows", len(rows), "cells", cells)
	return cells, nil
}

func (s *RecordStore) CreateCollection(_ context.Context, title, sheetTitle string) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("ensure dir %s: %w", s.dir, err)
	}
	f := excelize.NewFile()
	if sheetTitle != "" && sheetTitle != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheetTitle); err != nil {
			return "", fmt.Errorf("rename sheet: %w", err)
		}
	}
	name := title
	if !strings.HasSuffix(strings.ToLower(name), ".xlsx") {
		name += ".xlsx"
	}
	path := filepath.Join(s.dir, name)
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("create workbook %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		s.logger.Warn("localfs.workbook.close_error", "path", path, "error", err)
	}
	s.logger.Debug("localfs.create.ok", "path", path)
	return path, nil
}
