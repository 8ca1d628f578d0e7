package extract

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tallyops/invoice-ingest/internal/common"
)

// PollState tracks the extraction operation state machine:
// Pending -> {Pending, Complete, TimedOut, Errored}.
type PollState int

const (
	StatePending PollState = iota
	StateComplete
	StateTimedOut
	StateErrored
)

func (s PollState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateComplete:
		return "complete"
	case StateTimedOut:
		return "timed_out"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// PollConfig bounds the poll loop.
type PollConfig struct {
	Interval    time.Duration // wait between attempts, default 15s
	MaxAttempts int           // default 5
}

// Poller runs a TextExtractor's begin/poll cycle to completion within the
// configured attempt budget.
type Poller struct {
	cfg       PollConfig
	extractor TextExtractor
	logger    *slog.Logger
}

func NewPoller(cfg PollConfig, tx TextExtractor, logger *slog.Logger) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{cfg: cfg, extractor: tx, logger: logger}
}

// Extract submits content and polls until the operation completes. The
// final attempt's error is terminal; running out of attempts while the
// operation is still pending is a timeout.
func (p *Poller) Extract(ctx context.Context, content []byte) (ExtractionResult, error) {
	start := time.Now()

	handle, err := p.extractor.BeginAnalysis(ctx, content)
	if err != nil {
		return ExtractionResult{}, common.ExtractionError("begin analysis", err)
	}

	state := StatePending
	var lastErr error
	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		select {
		case <-time.After(p.cfg.Interval):
		case <-ctx.Done():
			return ExtractionResult{}, common.ExtractionError("poll canceled", ctx.Err())
		}

		res, done, err := p.extractor.Poll(ctx, handle)
		switch {
		case err != nil:
			lastErr = err
			p.logger.Warn("extract.poll.attempt_failed",
				"attempt", attempt, "max_attempts", p.cfg.MaxAttempts, "error", err)
			if attempt == p.cfg.MaxAttempts {
				state = StateErrored
			}
		case done:
			state = StateComplete
			res.Duration = time.Since(start)
			p.logger.Info("extract.poll.complete",
				"attempts", attempt, "pages", res.Pages, "elapsed_ms", res.Duration.Milliseconds())
			return res, nil
		default:
			p.logger.Debug("extract.poll.pending", "attempt", attempt, "max_attempts", p.cfg.MaxAttempts)
		}
	}

	if state == StateErrored {
		return ExtractionResult{}, common.ExtractionError(
			fmt.Sprintf("failed after %d attempts", p.cfg.MaxAttempts), lastErr)
	}
	return ExtractionResult{}, common.ExtractionTimeoutError(
		fmt.Sprintf("operation still %s after %d attempts", state, p.cfg.MaxAttempts), nil)
}
