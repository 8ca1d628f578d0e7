// invoice-batch runs the full ingestion pass: mail attachment intake,
// then a sweep of every unprocessed folder. It is a batch job, not a
// server; all capabilities are constructed once per run and passed in.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/oauth2"

	"github.com/tallyops/invoice-ingest/constants"
	"github.com/tallyops/invoice-ingest/internal/common"
	"github.com/tallyops/invoice-ingest/internal/errsink"
	"github.com/tallyops/invoice-ingest/internal/extract"
	"github.com/tallyops/invoice-ingest/internal/extract/azure"
	"github.com/tallyops/invoice-ingest/internal/intake"
	"github.com/tallyops/invoice-ingest/internal/ledger"
	"github.com/tallyops/invoice-ingest/internal/llm/openai"
	"github.com/tallyops/invoice-ingest/internal/pipeline"
	"github.com/tallyops/invoice-ingest/internal/store"
	"github.com/tallyops/invoice-ingest/internal/store/gdrive"
	"github.com/tallyops/invoice-ingest/internal/store/gsheets"
	"github.com/tallyops/invoice-ingest/internal/store/localfs"
)

func main() {
	var (
		localDir   = flag.String("local", "", "run against a local directory tree instead of Drive/Sheets")
		skipIntake = flag.Bool("skip-intake", false, "skip the mail attachment intake phase")
		envFile    = flag.String("env", ".env", "path to env file (ignored if missing)")
	)
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "load env file: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	ctx := context.Background()

	if err := run(ctx, cfg, *localDir, *skipIntake, logger); err != nil {
		logger.Error("batch.failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *common.Config, localDir string, skipIntake bool, logger *slog.Logger) error {
	loc := cfg.Location()

	led, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		return err
	}

	extractor := extract.NewPoller(
		extract.PollConfig{Interval: cfg.Pipeline.PollInterval, MaxAttempts: cfg.Pipeline.MaxPollAttempts},
		azure.NewClient(azure.Config{Endpoint: cfg.Azure.Endpoint, Key: cfg.Azure.Key, Timeout: cfg.Azure.Timeout}, logger),
		logger,
	)
	normalizer := openai.NewClient(openai.Config{
		Model:       cfg.LLM.Model,
		APIKey:      cfg.LLM.APIKey,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, logger)

	if localDir != "" {
		return runLocal(ctx, cfg, localDir, extractor, normalizer, led, loc, logger)
	}
	return runGoogle(ctx, cfg, skipIntake, extractor, normalizer, led, loc, logger)
}

func runGoogle(ctx context.Context, cfg *common.Config, skipIntake bool, extractor pipeline.Extractor, normalizer *openai.Client, led *ledger.Ledger, loc *time.Location, logger *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	client, err := googleClient(ctx, cfg.Google.TokenFile)
	if err != nil {
		return common.WrapError(err, "google client")
	}
	files, err := gdrive.NewFileStore(ctx, client, logger)
	if err != nil {
		return err
	}
	records, err := gsheets.NewRecordStore(ctx, client, logger)
	if err != nil {
		return err
	}

	sink := errsink.NewSheetSink(records, cfg.Google.ErrorLogSheetID, cfg.Ledger.FallbackLog, loc, logger)

	if !skipIntake {
		mail, err := intake.NewGmailSource(ctx, client, logger)
		if err != nil {
			return err
		}
		in := intake.New(intake.Config{
			DepositFolderID: cfg.Google.GmailFolderID,
			LogCollectionID: cfg.Google.IntakeLogSheetID,
			Location:        loc,
		}, mail, files, records, sink, logger)
		n, err := in.Run(ctx)
		if err != nil {
			// Report once at the outermost boundary and keep going: a
			// broken mailbox should not block files already deposited.
			sink.Record(ctx, "intake.run", err)
			logger.Error("intake.failed", "error", err)
		} else {
			logger.Info("intake.done", "deposited", n)
		}
	}

	folderMap, err := cfg.LoadFolderMap()
	if err != nil {
		return err
	}
	proc := pipeline.NewProcessor(pipeline.Config{
		MasterCollectionID: cfg.Google.MainSheetID,
		LogCollectionID:    cfg.Google.DriveLogSheetID,
		ProcessedFolderID:  cfg.Google.ProcessedFolderID,
		FailedFolderID:     cfg.Google.FailedFolderID,
		OutputFolderID:     cfg.Google.OutputFolderID,
		SourceTags:         folderMap,
		Location:           loc,
	}, files, records, extractor, normalizer, sink, led, logger)
	runner := pipeline.NewRunner(files, proc, led, sink, logger)

	var sweepErr error
	for _, folder := range []string{cfg.Google.InputFolderID, cfg.Google.GmailFolderID} {
		if _, err := runner.SweepFolder(ctx, folder); err != nil {
			logger.Error("sweep.failed", "folder_id", folder, "error", err)
			sweepErr = err
		}
	}
	return sweepErr
}

func runLocal(ctx context.Context, cfg *common.Config, root string, extractor pipeline.Extractor, normalizer *openai.Client, led *ledger.Ledger, loc *time.Location, logger *slog.Logger) error {
	files := localfs.NewFileStore(logger)
	records := localfs.NewRecordStore(filepath.Join(root, "workbooks"), logger)

	unprocessed := filepath.Join(root, "unprocessed")
	processed := filepath.Join(root, "processed")
	failed := filepath.Join(root, "failed")
	output := filepath.Join(root, "output")
	for _, dir := range []string{unprocessed, processed, failed, output} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ensure dir %s: %w", dir, err)
		}
	}

	master, err := ensureWorkbook(ctx, records, filepath.Join(root, "workbooks", "master.xlsx"), "master")
	if err != nil {
		return err
	}
	logbook, err := ensureWorkbook(ctx, records, filepath.Join(root, "workbooks", "log.xlsx"), "log")
	if err != nil {
		return err
	}
	errlog, err := ensureWorkbook(ctx, records, filepath.Join(root, "workbooks", "errors.xlsx"), "errors")
	if err != nil {
		return err
	}

	sink := errsink.NewSheetSink(records, errlog, cfg.Ledger.FallbackLog, loc, logger)

	proc := pipeline.NewProcessor(pipeline.Config{
		MasterCollectionID: master,
		LogCollectionID:    logbook,
		ProcessedFolderID:  processed,
		FailedFolderID:     failed,
		OutputFolderID:     output,
		SourceTags:         map[string]string{unprocessed: string(constants.SourceUpload)},
		Location:           loc,
	}, files, records, extractor, normalizer, sink, led, logger)
	runner := pipeline.NewRunner(files, proc, led, sink, logger)

	_, err = runner.SweepFolder(ctx, unprocessed)
	return err
}

// ensureWorkbook creates the workbook once; reruns reuse the existing one.
func ensureWorkbook(ctx context.Context, records store.RecordStore, path, title string) (string, error) {
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	return records.CreateCollection(ctx, title, constants.DefaultSheetTitle)
}

// googleClient builds an authenticated HTTP client from a cached oauth
// token. Token acquisition itself happens outside this program.
func googleClient(ctx context.Context, tokenFile string) (*http.Client, error) {
	b, err := os.ReadFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("read token file: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(b, &tok); err != nil {
		return nil, fmt.Errorf("parse token file: %w", err)
	}
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&tok)), nil
}
