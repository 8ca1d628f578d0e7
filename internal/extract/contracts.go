// Package extract defines the text-extraction capability and the bounded
// poll loop that drives its asynchronous analysis operations.
package extract

import (
	"context"
	"time"
)

// TextExtractor is the document-analysis capability: submit bytes, then
// poll the returned handle until the operation completes.
type TextExtractor interface {
	// BeginAnalysis submits content and returns an opaque operation handle.
	BeginAnalysis(ctx context.Context, content []byte) (string, error)
	// Poll checks an operation. done is false while the operation is still
	// running; a non-nil error means the attempt failed.
	Poll(ctx context.Context, handle string) (ExtractionResult, bool, error)
}

// ExtractionResult is page-ordered extracted text. Text joins pages as
// "Page N: ..." lines.
type ExtractionResult struct {
	Text     string
	Pages    int
	Duration time.Duration
}
