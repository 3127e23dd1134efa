package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

const (
	DefaultModel   = openai.GPT4oMini
	DefaultTimeout = 45 * time.Second

	analysisTemperature = 0.2
)

// ErrEmptyCompletion is returned when the completion carries no choices or content
var ErrEmptyCompletion = errors.New("completion returned no content")

// CompletionRequest is one chat call: a system instruction, a user prompt and a sampling temperature
type CompletionRequest struct {
	System      string
	Prompt      string
	Temperature float32
	JSON        bool
}

// Completer is the text-completion capability consumed by the AI strategy
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// OpenAIConfig configures the OpenAI-compatible completion client
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// OpenAICompleter calls the chat completions endpoint
type OpenAICompleter struct {
	client *openai.Client
	model  string
}

// NewOpenAICompleter returns nil when no API key is configured
func NewOpenAICompleter(cfg OpenAIConfig) *OpenAICompleter {
	if cfg.APIKey == "" {
		return nil
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	config.HTTPClient = &http.Client{
		Timeout: cfg.Timeout,
	}

	logrus.Infof("OpenAI completer initialized (model: %s, timeout: %v)", cfg.Model, cfg.Timeout)

	return &OpenAICompleter{
		client: openai.NewClientWithConfig(config),
		model:  cfg.Model,
	}
}

// Complete sends one chat completion and returns the first choice's content
func (c *OpenAICompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	temperature := req.Temperature
	if temperature == 0 {
		// The client omits a zero temperature, which the API treats as its default
		temperature = math.SmallestNonzeroFloat32
	}

	request := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		Temperature: temperature,
	}
	if req.JSON {
		request.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return "", fmt.Errorf("chat completion failed after %v: %w", time.Since(start), err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyCompletion
	}

	logrus.WithFields(logrus.Fields{
		"model":         c.model,
		"finish_reason": resp.Choices[0].FinishReason,
		"elapsed":       time.Since(start).String(),
	}).Debug("Chat completion received")

	return content, nil
}
