package intake

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tallyops/invoice-ingest/constants"
	"github.com/tallyops/invoice-ingest/internal/common"
	"github.com/tallyops/invoice-ingest/internal/errsink"
	"github.com/tallyops/invoice-ingest/internal/store"
)

// Config holds the deposit target and the intake-log collection.
type Config struct {
	DepositFolderID string
	LogCollectionID string
	Location        *time.Location
}

// Intake walks unconsumed messages and deposits each attachment into the
// shared unprocessed folder. A failing attachment never aborts its
// siblings or the message-level mark; each message is visited at most
// once across runs.
type Intake struct {
	cfg     Config
	mail    MailSource
	files   store.FileStore
	records store.RecordStore
	sink    errsink.Sink
	logger  *slog.Logger
}

func New(cfg Config, mail MailSource, files store.FileStore, records store.RecordStore, sink errsink.Sink, logger *slog.Logger) *Intake {
	if logger == nil {
		logger = slog.Default()
	}
	if sink == nil {
		sink = errsink.Noop{}
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Intake{cfg: cfg, mail: mail, files: files, records: records, sink: sink, logger: logger}
}

// Run processes all pending messages and returns the number of
// attachments deposited.
func (i *Intake) Run(ctx context.Context) (int, error) {
	if err := i.mail.EnsureProcessedMarker(ctx); err != nil {
		return 0, fmt.Errorf("ensure processed marker: %w", err)
	}

	msgs, err := i.mail.ListUnprocessed(ctx)
	if err != nil {
		return 0, fmt.Errorf("list unprocessed messages: %w", err)
	}
	if len(msgs) == 0 {
		i.logger.Info("intake.no_messages")
		return 0, nil
	}

	deposited := 0
	for _, msg := range msgs {
		for _, att := range msg.Attachments {
			if err := i.deposit(ctx, msg, att); err != nil {
				i.sink.Record(ctx, "intake.attachment",
					common.IntakeAttachmentError(fmt.Sprintf("message %s attachment %s", msg.ID, att.Filename), err))
				i.logger.Error("intake.attachment.failed",
					"message_id", msg.ID, "filename", att.Filename, "error", err)
				continue
			}
			deposited++
			i.logger.Info("intake.attachment.ok", "message_id", msg.ID, "filename", att.Filename)
		}

		// Mark regardless of individual attachment failures: at-most-once
		// per message, best-effort delivery.
		if err := i.mail.MarkProcessed(ctx, msg.ID); err != nil {
			i.sink.Record(ctx, "intake.mark_processed", err)
			i.logger.Error("intake.mark.failed", "message_id", msg.ID, "error", err)
			continue
		}
		i.logger.Info("intake.message.done", "message_id", msg.ID, "attachments", len(msg.Attachments))
	}
	return deposited, nil
}

func (i *Intake) deposit(ctx context.Context, msg Message, att AttachmentRef) error {
	data, err := i.mail.GetAttachment(ctx, msg.ID, att.ID)
	if err != nil {
		return fmt.Errorf("get attachment: %w", err)
	}

	file, err := i.files.Create(ctx, att.Filename, i.cfg.DepositFolderID, data)
	if err != nil {
		return fmt.Errorf("deposit file: %w", err)
	}

	row := []any{
		common.LogTimestamp(time.Now(), i.cfg.Location),
		att.Filename,
		file.ID,
		file.Link,
		msg.Sender,
		msg.Subject,
	}
	if _, err := i.records.AppendRows(ctx, i.cfg.LogCollectionID, constants.IntakeLogRange, [][]any{row}); err != nil {
		return fmt.Errorf("append intake log: %w", err)
	}
	return nil
}
