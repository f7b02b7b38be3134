package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/wellcheck/wellcheck/pkg/bilingual"
)

const defaultModel = "gpt-4o-mini"

// Config configures the OpenAI-compatible client.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client calls an OpenAI-compatible chat completions endpoint.
type Client struct {
	http     *resty.Client
	endpoint string
	model    string
	validate *validator.Validate
	logger   zerolog.Logger
}

// New returns a Client, or Disabled when no API key is configured.
func New(cfg Config, logger zerolog.Logger) Analyzer {
	if strings.TrimSpace(cfg.APIKey) == "" {
		logger.Info().Msg("no LLM API key configured, AI analysis disabled")
		return Disabled{}
	}
	return NewClient(cfg, logger)
}

// NewClient creates a Client regardless of whether a key is set.
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	http := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetAuthToken(cfg.APIKey)
	return &Client{
		http:     http,
		endpoint: normalizeEndpoint(cfg.BaseURL),
		model:    model,
		validate: validator.New(),
		logger:   logger.With().Str("component", "analysis").Logger(),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Temperature    float64           `json:"temperature"`
	Messages       []chatMessage     `json:"messages"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Analyze asks the model for one language's analysis. Cancelling ctx
// abandons the call.
func (c *Client) Analyze(ctx context.Context, req Request, loc bilingual.Locale) (*Payload, error) {
	body := chatRequest{
		Model:       c.model,
		Temperature: 0.3,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt(loc)},
			{Role: "user", Content: userPrompt(req, loc)},
		},
		ResponseFormat: map[string]string{"type": "json_object"},
	}

	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode(), truncate(resp.String(), 200))
	}

	var cc chatResponse
	if err := json.Unmarshal(resp.Body(), &cc); err != nil {
		return nil, fmt.Errorf("%w: decode completion: %v", ErrUpstream, err)
	}
	if len(cc.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices", ErrUpstream)
	}

	p, err := c.parse(cc.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	c.logger.Debug().
		Str("category", req.Category.ID).
		Str("locale", loc.String()).
		Dur("elapsed", time.Since(start)).
		Msg("analysis generated")
	return p, nil
}

func (c *Client) parse(content string) (*Payload, error) {
	content = stripFence(content)
	var p Payload
	if err := json.Unmarshal([]byte(content), &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchema, err)
	}
	p.RiskLevel = strings.ToLower(strings.TrimSpace(p.RiskLevel))
	if err := c.validate.Struct(p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchema, err)
	}
	return &p, nil
}

// stripFence removes a markdown code fence some models wrap JSON in.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func normalizeEndpoint(base string) string {
	endpoint := strings.TrimRight(strings.TrimSpace(base), "/")
	if endpoint == "" {
		endpoint = "https://api.openai.com"
	}
	switch {
	case strings.HasSuffix(endpoint, "/chat/completions"):
		return endpoint
	case strings.HasSuffix(endpoint, "/v1"):
		return endpoint + "/chat/completions"
	default:
		return endpoint + "/v1/chat/completions"
	}
}
