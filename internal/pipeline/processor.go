// Package pipeline owns the document-to-structured-record sequence:
// fetch, extract, normalize, parse, persist, relocate, log. All failure
// classification and the file/record state transition live here.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tallyops/invoice-ingest/constants"
	"github.com/tallyops/invoice-ingest/internal/common"
	"github.com/tallyops/invoice-ingest/internal/errsink"
	"github.com/tallyops/invoice-ingest/internal/extract"
	"github.com/tallyops/invoice-ingest/internal/llm"
	"github.com/tallyops/invoice-ingest/internal/store"
)

// SourceItem is one unit of work discovered in an unprocessed folder.
type SourceItem struct {
	ID           string
	Name         string
	OriginFolder string
}

// Outcome classifies a terminal processing result.
type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFailed  Outcome = "FAILED"
)

// ProcessingRecord is the durable result of processing one SourceItem.
// On success CollectionID/CollectionLink reference the new per-invoice
// collection; on failure RawOutput carries the unparsed normalizer text
// for postmortem.
type ProcessingRecord struct {
	ItemID         string
	ItemName       string
	Timestamp      time.Time
	Duration       time.Duration
	SourceTag      constants.SourceTag
	Usage          llm.TokenUsage
	Outcome        Outcome
	CollectionID   string
	CollectionLink string
	RawOutput      string
}

// Extractor runs a document through text extraction to completion.
// extract.Poller implements it.
type Extractor interface {
	Extract(ctx context.Context, content []byte) (extract.ExtractionResult, error)
}

// Ledger records terminal outcomes per item. May be nil.
type Ledger interface {
	Seen(ctx context.Context, itemID string) (string, bool, error)
	Record(ctx context.Context, itemID, name, outcome, resultRef string) error
}

// Config holds the collection and folder targets for persistence.
type Config struct {
	MasterCollectionID string
	LogCollectionID    string
	ProcessedFolderID  string
	FailedFolderID     string
	OutputFolderID     string
	// SourceTags maps unprocessed folder ids to "email"/"upload".
	SourceTags map[string]string
	Location   *time.Location
}

type Processor struct {
	cfg        Config
	files      store.FileStore
	records    store.RecordStore
	extractor  Extractor
	normalizer llm.ContentNormalizer
	sink       errsink.Sink
	ledger     Ledger
	logger     *slog.Logger
}

func NewProcessor(
	cfg Config,
	files store.FileStore,
	records store.RecordStore,
	ex Extractor,
	norm llm.ContentNormalizer,
	sink errsink.Sink,
	ledger Ledger,
	logger *slog.Logger,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if sink == nil {
		sink = errsink.Noop{}
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Processor{
		cfg:        cfg,
		files:      files,
		records:    records,
		extractor:  ex,
		normalizer: norm,
		sink:       sink,
		ledger:     ledger,
		logger:     logger,
	}
}

// Process runs one item through the whole pipeline. A returned error is a
// system error (fetch/extract/normalize/persist); a parse failure is a
// normal Failed outcome with its own bookkeeping, not an error.
func (p *Processor) Process(ctx context.Context, item SourceItem) (ProcessingRecord, error) {
	start := time.Now()
	trace := uuid.New().String()
	log := p.logger.With("trace_id", trace, "item_id", item.ID, "name", item.Name)

	// Fetch content and metadata up front. Metadata failure is classified
	// here so the failure-log path below always has name/link bound.
	content, err := p.files.GetBytes(ctx, item.ID)
	if err != nil {
		log.Error("pipeline.fetch.failed", "error", err)
		return ProcessingRecord{}, common.FetchError("get bytes", err)
	}
	meta, err := p.files.GetMetadata(ctx, item.ID)
	if err != nil {
		log.Error("pipeline.fetch.failed", "error", err)
		return ProcessingRecord{}, common.FetchError("get metadata", err)
	}
	if meta.Name == "" {
		meta.Name = item.Name
	}

	res, err := p.extractor.Extract(ctx, content)
	if err != nil {
		log.Error("pipeline.extract.failed", "error", err)
		return ProcessingRecord{}, err
	}
	log.Info("pipeline.extract.ok", "pages", res.Pages, "text_len", len(res.Text))

	out, err := p.normalizer.Complete(ctx, res.Text, llm.NormalizeInstruction)
	if err != nil {
		log.Error("pipeline.normalize.failed", "error", err)
		return ProcessingRecord{}, common.NormalizationError("complete", err)
	}
	log.Info("pipeline.normalize.ok",
		"input_tokens", out.Usage.Input, "output_tokens", out.Usage.Output)

	rec := ProcessingRecord{
		ItemID:    item.ID,
		ItemName:  meta.Name,
		Timestamp: start,
		SourceTag: p.sourceTag(item.OriginFolder),
		Usage:     out.Usage,
		RawOutput: out.Text,
	}

	rows, perr := ParseRows(out.Text)
	if perr != nil {
		if !errors.Is(perr, ErrNoData) {
			log.Warn("pipeline.parse.failed", "error", perr)
		}
		rec.Outcome = OutcomeFailed
		rec.Duration = time.Since(start)
		if err := p.persistFailure(ctx, item, meta, rec); err != nil {
			return ProcessingRecord{}, err
		}
		log.Info("pipeline.item.failed",
			"state", string(constants.FolderFailed), "elapsed_ms", rec.Duration.Milliseconds())
		return rec, nil
	}

	rec.Outcome = OutcomeSuccess
	if err := p.persistSuccess(ctx, item, meta, &rec, rows); err != nil {
		return ProcessingRecord{}, err
	}
	rec.Duration = time.Since(start)
	log.Info("pipeline.item.ok",
		"rows", len(rows), "collection_id", rec.CollectionID,
		"state", string(constants.FolderProcessed),
		"elapsed_ms", rec.Duration.Milliseconds())
	return rec, nil
}

// persistSuccess applies the success sequence: master append, per-invoice
// collection with header, move collection to output, move source file to
// processed, success log row. Unexpected failures go to the sink and leave
// the source file where it is.
func (p *Processor) persistSuccess(ctx context.Context, item SourceItem, meta store.File, rec *ProcessingRecord, rows [][]string) error {
	payload := rowsToAny(rows)

	if _, err := p.records.AppendRows(ctx, p.cfg.MasterCollectionID, constants.DataRange, payload); err != nil {
		return p.unexpected(ctx, "pipeline.append_master", err)
	}

	newID, err := p.records.CreateCollection(ctx, meta.Name, constants.DefaultSheetTitle)
	if err != nil {
		return p.unexpected(ctx, "pipeline.create_collection", err)
	}
	if _, err := p.records.AppendRows(ctx, newID, constants.DataRange, headerRow()); err != nil {
		return p.unexpected(ctx, "pipeline.append_header", err)
	}
	if _, err := p.records.AppendRows(ctx, newID, constants.DataRange, payload); err != nil {
		return p.unexpected(ctx, "pipeline.append_rows", err)
	}

	// Metadata first: some stores (localfs) rekey a file when it moves.
	newMeta, err := p.files.GetMetadata(ctx, newID)
	if err != nil {
		return p.unexpected(ctx, "pipeline.collection_metadata", err)
	}
	rec.CollectionID = newMeta.ID
	rec.CollectionLink = newMeta.Link
	if err := p.files.Move(ctx, newID, "root", p.cfg.OutputFolderID); err != nil {
		return p.unexpected(ctx, "pipeline.move_collection", err)
	}
	p.logger.Debug("pipeline.collection.moved",
		"collection_id", newID, "state", string(constants.FolderOutput))

	if err := p.files.Move(ctx, item.ID, item.OriginFolder, p.cfg.ProcessedFolderID); err != nil {
		return p.unexpected(ctx, "pipeline.move_processed", err)
	}

	row := []any{
		common.LogTimestamp(rec.Timestamp, p.cfg.Location),
		meta.Name,
		item.ID,
		meta.Link,
		rec.CollectionLink,
		rec.Usage.Input,
		rec.Usage.Output,
		rec.Usage.Total,
		string(rec.SourceTag),
		time.Since(rec.Timestamp).Seconds(),
	}
	if _, err := p.records.AppendRows(ctx, p.cfg.LogCollectionID, constants.SuccessLogRange, [][]any{row}); err != nil {
		return p.unexpected(ctx, "pipeline.append_success_log", err)
	}

	p.recordLedger(ctx, item, rec)
	return nil
}

// persistFailure applies the parse-failure sequence: move source file to
// the failed folder and append a failure log row carrying the raw
// normalizer output.
func (p *Processor) persistFailure(ctx context.Context, item SourceItem, meta store.File, rec ProcessingRecord) error {
	if err := p.files.Move(ctx, item.ID, item.OriginFolder, p.cfg.FailedFolderID); err != nil {
		return p.unexpected(ctx, "pipeline.move_failed", err)
	}

	row := []any{
		common.LogTimestamp(rec.Timestamp, p.cfg.Location),
		meta.Name,
		item.ID,
		meta.Link,
		rec.RawOutput,
		rec.Usage.Input,
		rec.Usage.Output,
		rec.Usage.Total,
		string(rec.SourceTag),
		time.Since(rec.Timestamp).Seconds(),
	}
	if _, err := p.records.AppendRows(ctx, p.cfg.LogCollectionID, constants.FailureLogRange, [][]any{row}); err != nil {
		return p.unexpected(ctx, "pipeline.append_failure_log", err)
	}

	p.recordLedger(ctx, item, &rec)
	return nil
}

// unexpected reports a persistence error to the sink and wraps it. The
// item is deliberately left where it is: ambiguous failures do not move
// files.
func (p *Processor) unexpected(ctx context.Context, origin string, err error) error {
	p.sink.Record(ctx, origin, err)
	return common.PersistenceError(origin, err)
}

func (p *Processor) recordLedger(ctx context.Context, item SourceItem, rec *ProcessingRecord) {
	if p.ledger == nil {
		return
	}
	if err := p.ledger.Record(ctx, item.ID, rec.ItemName, string(rec.Outcome), rec.CollectionID); err != nil {
		p.logger.Warn("pipeline.ledger.record_failed", "item_id", item.ID, "error", err)
	}
}

func (p *Processor) sourceTag(originFolder string) constants.SourceTag {
	if tag, ok := p.cfg.SourceTags[originFolder]; ok {
		switch constants.SourceTag(tag) {
		case constants.SourceEmail:
			return constants.SourceEmail
		case constants.SourceUpload:
			return constants.SourceUpload
		}
	}
	return constants.DefaultSourceTag
}
