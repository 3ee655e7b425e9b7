package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ydkdan6/poly-com-ai/pkg/logger"
)

// ErrMalformedResponse means the model answered 2xx but without a usable candidate text
var ErrMalformedResponse = errors.New("gemini response has no candidate text")

// maxErrorBody bounds how much of an error body is kept for logging
const maxErrorBody = 4 << 10

// GeminiConfig selects the endpoint and model
type GeminiConfig struct {
	BaseURL string
	Model   string
	// Timeout of zero means the client never gives up on its own
	Timeout time.Duration
}

// GeminiClient calls the generateContent endpoint of the Generative Language API
type GeminiClient struct {
	client   *http.Client
	endpoint string
	log      *logger.Logger
}

// NewGeminiClient creates a client for cfg.Model
func NewGeminiClient(cfg GeminiConfig, log *logger.Logger) *GeminiClient {
	return &GeminiClient{
		client:   &http.Client{Timeout: cfg.Timeout},
		endpoint: fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(cfg.BaseURL, "/"), cfg.Model),
		log:      log,
	}
}

// GenerateText sends req and returns the first candidate's text.
// A non-2xx answer yields *UpstreamError; an unusable 2xx body yields ErrMalformedResponse.
func (c *GeminiClient) GenerateText(ctx context.Context, apiKey string, req GenerateContentRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("error marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-goog-api-key", apiKey)

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.log.Error("Gemini API error",
			"status", resp.StatusCode,
			"body", string(errBody),
			"latency_ms", time.Since(start).Milliseconds(),
		)
		return "", &UpstreamError{StatusCode: resp.StatusCode, Body: string(errBody)}
	}

	var parsed GenerateContentResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		c.log.Warn("Gemini response is not valid JSON", "error", err.Error())
		return "", ErrMalformedResponse
	}

	text, ok := parsed.FirstText()
	if !ok {
		c.log.Warn("Gemini response has no candidate text", "candidates", len(parsed.Candidates))
		return "", ErrMalformedResponse
	}

	c.log.Debug("Gemini response received",
		"candidates", len(parsed.Candidates),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}
