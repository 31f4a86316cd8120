package ai

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"couplebot/internal/scheduler"
	"couplebot/pkg/logx"
)

const systemPrompt = "You are a helpful assistant that generates loving messages for couples."

// Client generates message text through an Ollama-compatible server.
type Client struct {
	client  *api.Client
	timeout time.Duration
	log     logx.Logger
}

type Config struct {
	BaseURL        string
	RequestTimeout time.Duration // per-call bound; defaults to 30s
}

func New(cfg Config, log logx.Logger) (*Client, error) {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		// If the env-based client fails, build one from the configured base URL.
		parsed, parseErr := url.Parse(cfg.BaseURL)
		if parseErr != nil {
			return nil, fmt.Errorf("invalid ai base URL: %w", parseErr)
		}
		client = api.NewClient(parsed, nil)
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{client: client, timeout: cfg.RequestTimeout, log: log}, nil
}

// Generate produces one message. It makes exactly one model call; retries are
// the caller's concern (the scheduler substitutes a fallback instead).
func (c *Client) Generate(ctx context.Context, req scheduler.GenerateRequest) (string, error) {
	model := strings.TrimSpace(req.Settings.Model)
	if model == "" {
		return "", errors.New("ai model is not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	options := map[string]any{
		"temperature": req.Settings.Temperature,
	}
	if req.Settings.MaxTokens > 0 {
		options["num_predict"] = req.Settings.MaxTokens
	}

	greq := &api.GenerateRequest{
		Model:   model,
		System:  systemPrompt,
		Prompt:  BuildPrompt(req),
		Stream:  new(bool), // false
		Options: options,
	}

	start := time.Now()
	var full strings.Builder
	err := c.client.Generate(ctx, greq, func(resp api.GenerateResponse) error {
		full.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("generate %s: %w", req.Intent, err)
	}

	text := strings.TrimSpace(full.String())
	if text == "" {
		return "", errors.New("model returned empty message")
	}
	c.log.Debug("message generated",
		logx.String("intent", req.Intent), logx.String("model", model),
		logx.Duration("took", time.Since(start)))
	return text, nil
}
