// Package errsink records unexpected errors to a durable error-log
// collection, with a local append-only file as the bottom of the
// error-handling chain.
package errsink

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"time"

	"github.com/tallyops/invoice-ingest/constants"
	"github.com/tallyops/invoice-ingest/internal/common"
	"github.com/tallyops/invoice-ingest/internal/store"
)

// Sink is the process-wide error recording capability.
type Sink interface {
	Record(ctx context.Context, origin string, err error)
}

// SheetSink appends error rows to a record collection and falls back to a
// local file when that append fails. Fallback failures are swallowed.
type SheetSink struct {
	records      store.RecordStore
	collectionID string
	fallbackPath string
	loc          *time.Location
	logger       *slog.Logger
}

func NewSheetSink(records store.RecordStore, collectionID, fallbackPath string, loc *time.Location, logger *slog.Logger) *SheetSink {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &SheetSink{
		records:      records,
		collectionID: collectionID,
		fallbackPath: fallbackPath,
		loc:          loc,
		logger:       logger,
	}
}

func (s *SheetSink) Record(ctx context.Context, origin string, err error) {
	if err == nil {
		return
	}
	now := time.Now()
	row := []any{
		common.LogTimestamp(now, s.loc),
		origin,
		err.Error(),
		fmt.Sprintf("%T", err),
		string(debug.Stack()),
	}
	if _, aerr := s.records.AppendRows(ctx, s.collectionID, constants.ErrorLogRange, [][]any{row}); aerr != nil {
		s.logger.Error("errsink.append_failed", "origin", origin, "error", aerr)
		s.fallback(now, origin, err, aerr)
		return
	}
	s.logger.Info("errsink.recorded", "origin", origin, "error", err)
}

func (s *SheetSink) fallback(now time.Time, origin string, orig, appendErr error) {
	f, err := os.OpenFile(s.fallbackPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		s.logger.Error("errsink.fallback_open_failed", "path", s.fallbackPath, "error", err)
		return
	}
	defer func() {
		_ = f.Close()
	}()
	line := fmt.Sprintf("%s - %s: %v (log append failed: %v)\n",
		now.Format(time.RFC3339), origin, orig, appendErr)
	if _, err := f.WriteString(line); err != nil {
		s.logger.Error("errsink.fallback_write_failed", "path", s.fallbackPath, "error", err)
	}
}

// Noop discards all records. Useful for tests and dry runs.
type Noop struct{}

func (Noop) Record(context.Context, string, error) {}
