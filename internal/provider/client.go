package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"cortex-backtest/internal/metrics"
)

// Stance is the analyzer's market call.
type Stance string

const (
	StanceBullish Stance = "BULLISH"
	StanceBearish Stance = "BEARISH"
	StanceNeutral Stance = "NEUTRAL"
)

// Snapshot is the compact market state sent to the analyzer.
type Snapshot struct {
	Symbol       string
	CurrentPrice float64
	Change1Pct   float64 // last-candle change, percent
	Change7Pct   float64 // seven-candle change, percent
	Sentiment    float64
}

// Signal is the analyzer's parsed verdict.
type Signal struct {
	Stance     Stance  `json:"signal"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// ProviderError represents an error from the analyzer API.
type ProviderError struct {
	StatusCode int
	Code       string
	Message    string
	RetryAfter string // for rate limit errors
}

func (e *ProviderError) Error() string {
	return e.Message
}

const (
	DefaultBaseURL = "https://api.openai.com"
	DefaultModel   = "gpt-4o-mini"

	defaultTimeout           = 30 * time.Second
	defaultRequestsPerMinute = 30
)

// ClientConfig configures the analyzer client. Zero fields fall back to
// the defaults above.
type ClientConfig struct {
	APIKey            string
	BaseURL           string
	Model             string
	Timeout           time.Duration
	RequestsPerMinute float64
}

// Client calls an OpenAI-compatible chat-completions endpoint for market
// analysis. Requests are rate limited and guarded by a circuit breaker
// so a misbehaving provider cannot stall a whole backtest sweep.
type Client struct {
	apiKey  string
	baseURL string
	model   string
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

func NewClient(cfg ClientConfig) (*Client, error) {
	if err := validateAPIKey(cfg.APIKey); err != nil {
		return nil, err
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = defaultRequestsPerMinute
	}

	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerMinute/60.0), 1),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "analyzer",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		}),
	}, nil
}

func (c *Client) Model() string { return c.model }

// Analyze asks the provider for a trading signal on the snapshot.
func (c *Client) Analyze(ctx context.Context, snap Snapshot) (Signal, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Signal{}, fmt.Errorf("rate limiter: %w", err)
	}

	metrics.Default.ProviderCalls.Inc()
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.complete(ctx, buildPrompt(snap))
	})
	if err != nil {
		metrics.Default.ProviderErrors.WithLabelValues(errorKind(err)).Inc()
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return Signal{}, &ProviderError{
				Code:    "CIRCUIT_OPEN",
				Message: "analyzer circuit open after repeated failures",
			}
		}
		return Signal{}, err
	}

	return parseSignal(out.(string)), nil
}

// complete performs one chat-completions round trip and returns the raw
// assistant text.
func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0.1,
		MaxTokens:   200,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	url := c.baseURL + "/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(start)
	if err != nil {
		log.Warn().Err(err).Dur("duration", duration).Str("model", c.model).Msg("analyzer request failed")
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	log.Debug().
		Int("status", resp.StatusCode).
		Dur("duration", duration).
		Str("model", c.model).
		Msg("analyzer response")

	switch resp.StatusCode {
	case http.StatusOK:
		// Success, continue
	case http.StatusForbidden:
		return "", &ProviderError{
			StatusCode: resp.StatusCode,
			Code:       "PERMISSION_DENIED",
			Message:    "API key lacks permission for this model",
		}
	case http.StatusTooManyRequests:
		retryAfter := resp.Header.Get("Retry-After")
		return "", &ProviderError{
			StatusCode: resp.StatusCode,
			Code:       "RATE_LIMIT_EXCEEDED",
			Message:    fmt.Sprintf("Rate limit exceeded. Retry after: %s", retryAfter),
			RetryAfter: retryAfter,
		}
	case http.StatusUnauthorized:
		return "", &ProviderError{
			StatusCode: resp.StatusCode,
			Code:       "UNAUTHORIZED",
			Message:    "Unauthorized: Invalid API key",
		}
	default:
		return "", &ProviderError{
			StatusCode: resp.StatusCode,
			Code:       "API_ERROR",
			Message:    fmt.Sprintf("API returned status %d: %s", resp.StatusCode, resp.Status),
		}
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", &ProviderError{
			StatusCode: resp.StatusCode,
			Code:       "EMPTY_RESPONSE",
			Message:    "response contained no choices",
		}
	}
	return parsed.Choices[0].Message.Content, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func buildPrompt(snap Snapshot) string {
	return fmt.Sprintf(`You are a crypto market analyst. Analyze the following data and provide a trading signal.

MARKET DATA:
- Current price: $%.2f
- 24h change: %+.2f%%
- 7d change: %+.2f%%
- Pre-computed sentiment score: %.2f (range: -1 bearish to +1 bullish)

Respond ONLY with a JSON object:
{"signal": "BULLISH" or "BEARISH" or "NEUTRAL", "confidence": 0.0-1.0, "reasoning": "brief explanation"}`,
		snap.CurrentPrice, snap.Change1Pct, snap.Change7Pct, snap.Sentiment)
}

// parseSignal extracts the JSON object from the model's reply. Models
// tend to wrap it in prose, so it takes the outermost braces rather than
// requiring clean JSON. Anything unparseable is a low-confidence NEUTRAL.
func parseSignal(text string) Signal {
	neutral := Signal{Stance: StanceNeutral, Confidence: 0.3}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return neutral
	}

	raw := struct {
		Signal     string  `json:"signal"`
		Confidence float64 `json:"confidence"`
		Reasoning  string  `json:"reasoning"`
	}{Confidence: 0.5}
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return neutral
	}

	stance := Stance(strings.ToUpper(strings.TrimSpace(raw.Signal)))
	if stance == "" {
		stance = StanceNeutral
	}
	return Signal{Stance: stance, Confidence: raw.Confidence, Reasoning: raw.Reasoning}
}

// errorKind buckets failures for the provider error counter.
func errorKind(err error) string {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "circuit_open"
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return strings.ToLower(pe.Code)
	}
	return "transport"
}

// validateAPIKey rejects obviously bad keys before any request is made.
func validateAPIKey(key string) error {
	if key == "" {
		return &ProviderError{
			Code:    "MISSING_API_KEY",
			Message: "API key is required",
		}
	}
	if len(key) < 10 {
		return &ProviderError{
			Code:    "INVALID_API_KEY_FORMAT",
			Message: "API key appears to be invalid (too short)",
		}
	}
	return nil
}
