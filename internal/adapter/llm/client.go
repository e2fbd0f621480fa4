// Package llm adapts an OpenAI-compatible chat completion API to the
// assistant port.
package llm

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/sirupsen/logrus"

	"healthlog/internal/domain"
)

const (
	// DefaultBaseURL is the DeepSeek endpoint, which speaks the OpenAI protocol.
	DefaultBaseURL = "https://api.deepseek.com"
	// DefaultModel is used when Config.Model is empty.
	DefaultModel = "deepseek-chat"
)

var thinkTagRegex = regexp.MustCompile(`(?s)<think>.*?</think>`)

// Config configures the completion client.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int64
}

// Client sends single-turn prompts to the chat completions endpoint.
type Client struct {
	api openai.Client
	cfg Config
	log logrus.FieldLogger
}

var _ domain.Completer = (*Client)(nil)

// New returns a Client for cfg. The API key is required.
func New(cfg Config, log logrus.FieldLogger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("llm: api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	api := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithMaxRetries(0),
	)
	return &Client{api: api, cfg: cfg, log: log}, nil
}

// Complete sends prompt as a single user message and returns the first
// choice's text with any reasoning block removed.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:    c.cfg.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
	}
	if c.cfg.Temperature > 0 {
		params.Temperature = openai.Float(c.cfg.Temperature)
	}
	if c.cfg.MaxTokens > 0 {
		params.MaxTokens = openai.Int(c.cfg.MaxTokens)
	}

	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("failed to get completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no response from model")
	}

	c.log.WithFields(logrus.Fields{
		"model":             resp.Model,
		"completion_tokens": resp.Usage.CompletionTokens,
	}).Debug("completion received")

	return strings.TrimSpace(thinkTagRegex.ReplaceAllString(resp.Choices[0].Message.Content, "")), nil
}
