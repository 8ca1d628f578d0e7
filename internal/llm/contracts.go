// Package llm defines the content-normalizer capability: extracted text in,
// tabular row payload out.
package llm

import "context"

// TokenUsage is the normalizer's token accounting for one completion.
type TokenUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
	Total  int `json:"total"`
}

// NormalizerOutput is the raw completion text plus usage. Text is expected
// to be a JSON list of rows or the "no data" sentinel; interpreting it is
// the pipeline's job.
type NormalizerOutput struct {
	Text  string
	Usage TokenUsage
}

// ContentNormalizer is the interface the pipeline depends on.
type ContentNormalizer interface {
	Complete(ctx context.Context, systemContext, instruction string) (NormalizerOutput, error)
}
