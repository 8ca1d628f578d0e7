package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tallyops/invoice-ingest/constants"
	"github.com/tallyops/invoice-ingest/internal/common"
	"github.com/tallyops/invoice-ingest/internal/errsink"
	"github.com/tallyops/invoice-ingest/internal/store"
)

// SweepStats summarizes one folder sweep.
type SweepStats struct {
	Listed    int
	Skipped   int
	Succeeded int
	Failed    int
	Errored   int
}

// Runner sweeps unprocessed folders and feeds each item through the
// processor, one at a time, in listing order. System errors are reported
// to the sink and the sweep continues with the next item.
type Runner struct {
	files  store.FileStore
	proc   *Processor
	ledger Ledger
	sink   errsink.Sink
	logger *slog.Logger
}

func NewRunner(files store.FileStore, proc *Processor, ledger Ledger, sink errsink.Sink, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if sink == nil {
		sink = errsink.Noop{}
	}
	return &Runner{files: files, proc: proc, ledger: ledger, sink: sink, logger: logger}
}

// SweepFolder processes every unconsumed item under folderID.
func (r *Runner) SweepFolder(ctx context.Context, folderID string) (SweepStats, error) {
	var stats SweepStats

	files, err := r.files.List(ctx, folderID)
	if err != nil {
		err = fmt.Errorf("list folder %s: %w", folderID, err)
		r.sink.Record(ctx, "pipeline.sweep", err)
		return stats, err
	}
	stats.Listed = len(files)
	r.logger.Info("sweep.start",
		"folder_id", folderID, "state", string(constants.FolderUnprocessed), "count", len(files))

	for _, f := range files {
		if r.ledger != nil {
			outcome, seen, lerr := r.ledger.Seen(ctx, f.ID)
			if lerr != nil {
				r.logger.Warn("sweep.ledger.lookup_failed", "item_id", f.ID, "error", lerr)
			} else if seen {
				r.logger.Info("sweep.item.skipped", "item_id", f.ID, "outcome", outcome)
				stats.Skipped++
				continue
			}
		}

		item := SourceItem{ID: f.ID, Name: f.Name, OriginFolder: folderID}
		rec, perr := r.proc.Process(ctx, item)
		if perr != nil {
			// Persistence errors were already recorded with their
			// originating operation name.
			if !common.HasCode(perr, common.CodePersistence) {
				r.sink.Record(ctx, "pipeline.process", perr)
			}
			r.logger.Error("sweep.item.error", "item_id", f.ID, "error", perr)
			stats.Errored++
			continue
		}
		switch rec.Outcome {
		case OutcomeSuccess:
			stats.Succeeded++
		case OutcomeFailed:
			stats.Failed++
		}
	}

	r.logger.Info("sweep.done",
		"folder_id", folderID,
		"listed", stats.Listed, "skipped", stats.Skipped,
		"succeeded", stats.Succeeded, "failed", stats.Failed, "errored", stats.Errored)
	return stats, nil
}
