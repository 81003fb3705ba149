// File: internal/llmclient/gemini_client.go
// Description: The optional summarizer collaborator. A thin Gemini API client
// with retry; callers treat its output as decoration and its errors as
// inline notes, never as stage failures.
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/obsidiansec/bountyhound/api/schemas"
	"github.com/obsidiansec/bountyhound/internal/config"
)

// maxFindingsInPrompt caps how many findings are described to the model; the
// summary does not get better past this point, only slower and pricier.
const maxFindingsInPrompt = 20

// GeminiClient implements schemas.Summarizer against the Gemini generateContent API.
type GeminiClient struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
}

// -- Gemini API request/response structures (internal to this file) --

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
}

// NewGeminiClient initializes the client from configuration.
func NewGeminiClient(cfg config.LLMConfig, logger *zap.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf(
			"https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent", cfg.Model)
	}

	timeout := cfg.APITimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &GeminiClient{
		apiKey:     cfg.APIKey,
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("llm_client.gemini"),
	}, nil
}

// NewFromConfig returns a Summarizer when the feature is enabled, nil when it
// is not. A nil Summarizer disables narrative enrichment downstream.
func NewFromConfig(cfg config.LLMConfig, logger *zap.Logger) (schemas.Summarizer, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	return NewGeminiClient(cfg, logger)
}

// Summarize sends the findings digest plus instructions to the API and
// returns the generated text. Retries transient failures with exponential
// backoff bounded by the caller's context.
func (c *GeminiClient) Summarize(ctx context.Context, findings []schemas.Finding, instructions string) (string, error) {
	payload, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: buildPrompt(findings, instructions)}},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request payload: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 90 * time.Second
	b.MaxInterval = 15 * time.Second

	var out string
	operation := func() error {
		text, err := c.generate(ctx, payload)
		if err != nil {
			return err
		}
		out = text
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return "", fmt.Errorf("summarizer request failed: %w", err)
	}
	return out, nil
}

// generate performs one API round trip.
func (c *GeminiClient) generate(ctx context.Context, payload []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		// fallthrough to decode
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		// Transient; let backoff retry it.
		return "", fmt.Errorf("gemini API returned HTTP %d", resp.StatusCode)
	default:
		return "", backoff.Permanent(fmt.Errorf("gemini API returned HTTP %d", resp.StatusCode))
	}

	var decoded geminiResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", backoff.Permanent(fmt.Errorf("failed to decode gemini response: %w", err))
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return "", backoff.Permanent(fmt.Errorf("gemini response contained no candidates"))
	}

	c.logger.Debug("Summarizer call complete",
		zap.String("finish_reason", decoded.Candidates[0].FinishReason))
	return strings.TrimSpace(decoded.Candidates[0].Content.Parts[0].Text), nil
}

// buildPrompt renders a compact findings digest for the model.
func buildPrompt(findings []schemas.Finding, instructions string) string {
	var sb strings.Builder
	sb.WriteString(instructions)
	sb.WriteString("\n\nFindings:\n")

	n := len(findings)
	if n > maxFindingsInPrompt {
		n = maxFindingsInPrompt
	}
	for _, f := range findings[:n] {
		fmt.Fprintf(&sb, "- [%s] %s at %s", f.Severity, f.Type, f.URL)
		if f.Parameter != "" {
			fmt.Fprintf(&sb, " (parameter %s)", f.Parameter)
		}
		fmt.Fprintf(&sb, ": %s\n", f.Evidence)
	}
	if len(findings) > n {
		fmt.Fprintf(&sb, "...and %d more findings omitted.\n", len(findings)-n)
	}
	return sb.String()
}
