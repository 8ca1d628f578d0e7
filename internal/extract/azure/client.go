// Package azure implements extract.TextExtractor against the Azure
// Document Intelligence REST API (prebuilt-document model).
package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tallyops/invoice-ingest/internal/extract"
)

const (
	apiVersion  = "2023-07-31"
	analyzePath = "/formrecognizer/documentModels/prebuilt-document:analyze"
)

// Config for the Azure client.
type Config struct {
	Endpoint string // e.g. https://<resource>.cognitiveservices.azure.com
	Key      string
	Timeout  time.Duration // http client timeout
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// BeginAnalysis submits the document. The returned handle is the
// Operation-Location URL Azure hands back on 202.
func (c *Client) BeginAnalysis(ctx context.Context, content []byte) (string, error) {
	url := strings.TrimRight(c.cfg.Endpoint, "/") + analyzePath + "?api-version=" + apiVersion
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(content))
	if err != nil {
		return "", err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.Key)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("azure http error: %w", err)
	}
	defer c.closeBody(resp.Body)

	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("azure status %d: %s", resp.StatusCode, string(body))
	}
	loc := resp.Header.Get("Operation-Location")
	if loc == "" {
		return "", fmt.Errorf("azure response missing Operation-Location")
	}
	c.logger.Debug("azure.analyze.accepted", "bytes", len(content))
	return loc, nil
}

// analyzeResponse is the subset of the operation result we consume.
type analyzeResponse struct {
	Status        string `json:"status"`
	Error         *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	AnalyzeResult *struct {
		Pages []struct {
			PageNumber int `json:"pageNumber"`
			Lines      []struct {
				Content string `json:"content"`
			} `json:"lines"`
		} `json:"pages"`
	} `json:"analyzeResult"`
}

// Poll checks the operation. done is false while Azure reports
// notStarted/running.
func (c *Client) Poll(ctx context.Context, handle string) (extract.ExtractionResult, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, handle, nil)
	if err != nil {
		return extract.ExtractionResult{}, false, err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.Key)

	resp, err := c.http.Do(req)
	if err != nil {
		return extract.ExtractionResult{}, false, fmt.Errorf("azure http error: %w", err)
	}
	defer c.closeBody(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return extract.ExtractionResult{}, false, fmt.Errorf("azure status %d: %s", resp.StatusCode, string(body))
	}

	var ar analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return extract.ExtractionResult{}, false, fmt.Errorf("decode azure response: %w", err)
	}

	switch ar.Status {
	case "succeeded":
		return pageText(ar), true, nil
	case "failed":
		msg := "analysis failed"
		if ar.Error != nil {
			msg = fmt.Sprintf("analysis failed: %s: %s", ar.Error.Code, ar.Error.Message)
		}
		return extract.ExtractionResult{}, false, fmt.Errorf("%s", msg)
	default: // notStarted, running
		return extract.ExtractionResult{}, false, nil
	}
}

func pageText(ar analyzeResponse) extract.ExtractionResult {
	if ar.AnalyzeResult == nil {
		return extract.ExtractionResult{}
	}
	var b strings.Builder
	for i, page := range ar.AnalyzeResult.Pages {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Page %d: ", page.PageNumber)
		for j, line := range page.Lines {
			if j > 0 {
				b.WriteString(" ")
			}
			b.WriteString(line.Content)
		}
	}
	return extract.ExtractionResult{Text: b.String(), Pages: len(ar.AnalyzeResult.Pages)}
}

func (c *Client) closeBody(body io.ReadCloser) {
	if err := body.Close(); err != nil {
		c.logger.Warn("azure response body close error", "error", err)
	}
}
