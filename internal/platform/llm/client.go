package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Shreekar11/insura-ai-sub003/internal/platform/httpx"
	"github.com/Shreekar11/insura-ai-sub003/internal/platform/llm/jsonx"
	"github.com/Shreekar11/insura-ai-sub003/internal/platform/logger"
)

// GenerationConfig carries per-call generation knobs.
type GenerationConfig struct {
	Temperature     float64
	MaxOutputTokens int
	JSONResponse    bool
}

// Client is the only LLM capability the pipeline depends on: generate text or
// a structured JSON object from a system+user prompt. Provider wiring
// (OpenRouter, Gemini, Ollama) stays behind this interface.
type Client interface {
	GenerateText(ctx context.Context, system string, user string) (string, error)
	GenerateJSON(ctx context.Context, system string, user string, schemaName string, schema map[string]any) (map[string]any, error)
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client

	maxRetries  int
	temperature float64
}

// NewClient builds an OpenRouter/OpenAI-compatible chat-completions client
// from env. The API key is a construction-time requirement.
func NewClient(log *logger.Logger) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	apiKey := strings.TrimSpace(os.Getenv("LLM_API_KEY"))
	if apiKey == "" {
		apiKey = strings.TrimSpace(os.Getenv("OPENROUTER_API_KEY"))
	}
	if apiKey == "" {
		return nil, fmt.Errorf("missing LLM_API_KEY")
	}

	baseURL := strings.TrimSpace(os.Getenv("LLM_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	model := strings.TrimSpace(os.Getenv("LLM_MODEL"))
	if model == "" {
		model = "google/gemini-2.5-flash"
	}

	timeoutSec := 120
	if v := os.Getenv("LLM_TIMEOUT_SECONDS"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed > 0 {
			timeoutSec = parsed
		}
	}
	// Local Ollama-backed models answer slowly; give them more room.
	if strings.Contains(baseURL, "localhost") || strings.Contains(baseURL, "11434") {
		if timeoutSec < 300 {
			timeoutSec = 300
		}
	}

	maxRetries := 3
	if v := os.Getenv("LLM_MAX_RETRIES"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed >= 0 {
			maxRetries = parsed
		}
	}

	return &client{
		log:         log.With("service", "LLMClient"),
		baseURL:     baseURL,
		apiKey:      apiKey,
		model:       model,
		httpClient:  &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		maxRetries:  maxRetries,
		temperature: 0.1,
	}, nil
}

type llmHTTPError struct {
	StatusCode int
	Body       string
}

func (e *llmHTTPError) Error() string {
	return fmt.Sprintf("llm http %d: %s", e.StatusCode, e.Body)
}

func (e *llmHTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	Temperature    float64        `json:"temperature"`
	MaxTokens      int            `json:"max_tokens,omitempty"`
	ResponseFormat map[string]any `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *client) doOnce(ctx context.Context, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/chat/completions", &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}

	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &llmHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

// do runs the request with bounded exponential backoff. Retries cover
// timeouts, 5xx and empty responses only; a parseable-but-wrong response is
// the caller's problem, not a retry condition.
func (c *client) do(ctx context.Context, body any) (string, error) {
	backoff := 1 * time.Second

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		resp, raw, err := c.doOnce(ctx, body)
		if err == nil {
			var out chatResponse
			if uErr := json.Unmarshal(raw, &out); uErr != nil {
				return "", fmt.Errorf("llm decode error: %w", uErr)
			}
			if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
				err = fmt.Errorf("llm empty response")
			} else {
				return out.Choices[0].Message.Content, nil
			}
		}

		retryable := httpx.IsRetryableError(err) || strings.Contains(err.Error(), "empty response")
		if !retryable || attempt == c.maxRetries {
			return "", err
		}

		sleepFor := httpx.RetryAfterDuration(resp, backoff, 15*time.Second)
		sleepFor = httpx.JitterSleep(sleepFor)

		c.log.Warn("LLM request retrying",
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)

		time.Sleep(sleepFor)
		backoff *= 2
	}

	return "", fmt.Errorf("unreachable retry loop")
}

func (c *client) GenerateText(ctx context.Context, system string, user string) (string, error) {
	req := chatRequest{
		Model:       c.model,
		Temperature: c.temperature,
	}
	req.Messages = []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}
	return c.do(ctx, req)
}

func (c *client) GenerateJSON(ctx context.Context, system string, user string, schemaName string, schema map[string]any) (map[string]any, error) {
	req := chatRequest{
		Model:          c.model,
		Temperature:    c.temperature,
		ResponseFormat: map[string]any{"type": "json_object"},
	}
	req.Messages = []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}

	raw, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}

	obj, strategy, perr := jsonx.ParseObject(raw)
	if perr != nil {
		// Callers with a single must-have field can still rescue it from the
		// raw output via jsonx.ExtractStringField.
		return nil, fmt.Errorf("llm json parse (%s): %w", schemaName, &jsonx.ParseError{Raw: raw, Err: perr})
	}
	if strategy != jsonx.StrategyDirect {
		c.log.Debug("LLM JSON needed lenient parsing", "schema", schemaName, "strategy", string(strategy))
	}

	if schema != nil {
		if verr := jsonx.ValidateSchema(schema, obj); verr != nil {
			// Schema drift is diagnostic, not fatal: callers drop offending
			// records field by field.
			c.log.Warn("LLM JSON failed schema validation (continuing)", "schema", schemaName, "error", verr)
		}
	}
	return obj, nil
}
