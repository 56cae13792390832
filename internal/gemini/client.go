package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// DefaultModels is the free-tier-safe priority chain: tried in order until
// one produces a completion.
var DefaultModels = []string{
	"gemini-3-flash",
	"gemini-3-flash-preview",
	"gemini-2.5-flash",
	"gemini-2.5-flash-lite",
}

// Client calls the Gemini generateContent API with an ordered model fallback
// chain. Rate-limited and retired models are skipped; any other API error
// aborts the chain.
type Client struct {
	apiKey    string
	models    []string
	baseURL   string
	client    *http.Client
	logger    *slog.Logger
	rateWait time.Duration
}

func NewClient(apiKey string, models []string, logger *slog.Logger) *Client {
	if len(models) == 0 {
		models = DefaultModels
	}
	return &Client{
		apiKey:   apiKey,
		models:   models,
		baseURL:  defaultBaseURL,
		client:   &http.Client{Timeout: 60 * time.Second},
		logger:   logger,
		rateWait: time.Second,
	}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type request struct {
	Contents []content `json:"contents"`
}

type response struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// apiError carries the HTTP status so the fallback chain can classify it.
type apiError struct {
	statusCode int
	status     string
	message    string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("api error %d: %s — %s", e.statusCode, e.status, e.message)
}

// Generate runs the prompt through the model priority chain and returns the
// first completion. A 429 pauses briefly and moves to the next model, a 404
// (retired model) moves on immediately, any other API error is terminal.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error

	for _, model := range c.models {
		text, err := c.generateOnce(ctx, model, prompt)
		if err == nil {
			return strings.TrimSpace(text), nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		var ae *apiError
		if !errors.As(err, &ae) {
			// Network-level failure: the next model hits the same host,
			// so trying it is pointless.
			return "", err
		}
		switch ae.statusCode {
		case http.StatusTooManyRequests:
			c.logger.Warn("model rate limited, falling back", "model", model)
			select {
			case <-time.After(c.rateWait):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		case http.StatusNotFound:
			c.logger.Warn("model unavailable, falling back", "model", model)
		default:
			return "", err
		}
	}

	return "", fmt.Errorf("all models exhausted: %w", lastErr)
}

func (c *Client) generateOnce(ctx context.Context, model, prompt string) (string, error) {
	body, err := json.Marshal(request{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("api call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Message != "" {
			return "", &apiError{statusCode: resp.StatusCode, status: errResp.Error.Status, message: errResp.Error.Message}
		}
		return "", &apiError{statusCode: resp.StatusCode, status: resp.Status, message: string(respBody)}
	}

	var apiResp response
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if len(apiResp.Candidates) == 0 || len(apiResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response content")
	}

	return apiResp.Candidates[0].Content.Parts[0].Text, nil
}
