// Package openai implements llm.ContentNormalizer using chat/completions.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tallyops/invoice-ingest/internal/llm"
)

// Complete sends the extracted document text as the system message and the
// fixed instruction as the user message, mirroring how the normalizer
// contract frames the task.
func (c *Client) Complete(ctx context.Context, systemContext, instruction string) (llm.NormalizerOutput, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Info("llm.complete.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"context_len", len(systemContext),
	)

	body := map[string]any{
		"model":       c.cfg.Model,
		"temperature": c.cfg.Temperature,
		"messages": []map[string]any{
			{"role": "system", "content": systemContext},
			{"role": "user", "content": instruction},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, httpErr := c.post(ctx, endpoint, body)
	if httpErr != nil {
		c.logger.Error("llm.complete.http_error",
			"req_id", rid, "error", httpErr,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.NormalizerOutput{}, httpErr
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.logger.Error("llm.complete.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.NormalizerOutput{}, fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		c.logger.Error("llm.complete.no_choices",
			"req_id", rid, "raw", string(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.NormalizerOutput{}, fmt.Errorf("no choices in openai response")
	}

	out := llm.NormalizerOutput{
		Text: strings.TrimSpace(cc.Choices[0].Message.Content),
		Usage: llm.TokenUsage{
			Input:  cc.Usage.PromptTokens,
			Output: cc.Usage.CompletionTokens,
			Total:  cc.Usage.PromptTokens + cc.Usage.CompletionTokens,
		},
	}
	c.logger.Info("llm.complete.ok",
		"req_id", rid,
		"output_len", len(out.Text),
		"input_tokens", out.Usage.Input,
		"output_tokens", out.Usage.Output,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

func (c *Client) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai http error: %w", err)
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			c.logger.Warn("openai response body close error", "error", err)
		}
	}(resp.Body)

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("read openai response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("openai status %d: %s", resp.StatusCode, buf.String())
	}
	return buf.Bytes(), nil
}
