// Package llm adapts an OpenAI-compatible chat model to domain.Summarizer via langchaingo.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/aisearch/internal/domain"
)

// DefaultInputLimit is the character prefix the model sees. Longer input is cut, not chunked.
const DefaultInputLimit = 1024

// Config holds the summarizer endpoint settings.
type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	InputLimit int
	Logger     *zap.Logger
}

// Summarizer generates bounded-length summaries with a chat model.
type Summarizer struct {
	model      llms.Model
	inputLimit int
	logger     *zap.Logger
}

// NewSummarizer connects to an OpenAI-compatible chat endpoint.
func NewSummarizer(cfg *Config) (*Summarizer, error) {
	token := cfg.APIKey
	if token == "" {
		// local servers ignore auth but the client insists on a token
		token = "none"
	}
	opts := []openai.Option{
		openai.WithToken(token),
		openai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("init summarizer client: %w", err)
	}
	return New(client, cfg.InputLimit, cfg.Logger), nil
}

// New wraps an existing model.
func New(model llms.Model, inputLimit int, logger *zap.Logger) *Summarizer {
	if inputLimit <= 0 {
		inputLimit = DefaultInputLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Summarizer{model: model, inputLimit: inputLimit, logger: logger}
}

// Summarize implements domain.Summarizer. maxLen and minLen are word bounds passed to the model.
func (s *Summarizer) Summarize(ctx context.Context, text string, maxLen, minLen int) (string, error) {
	text = truncate(strings.TrimSpace(text), s.inputLimit)
	if text == "" {
		return "", domain.BadInput("empty text")
	}
	if minLen > maxLen {
		minLen = maxLen
	}

	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt(maxLen, minLen)),
		llms.TextParts(llms.ChatMessageTypeHuman, text),
	}

	resp, err := s.model.GenerateContent(ctx, content,
		llms.WithTemperature(0),
		llms.WithMaxTokens(maxLen*2),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("summarize: %w", domain.ErrTimeout)
		}
		return "", fmt.Errorf("summarize: %w: %w", domain.ErrServiceUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("summarize: no choices returned: %w", domain.ErrServiceUnavailable)
	}

	out := strings.TrimSpace(resp.Choices[0].Content)
	if out == "" {
		return "", fmt.Errorf("summarize: empty completion: %w", domain.ErrServiceUnavailable)
	}
	s.logger.Debug("summary generated",
		zap.Int("input_chars", len(text)),
		zap.Int("output_words", len(strings.Fields(out))),
	)
	return out, nil
}

// HealthCheck sends a one-token probe.
func (s *Summarizer) HealthCheck(ctx context.Context) error {
	_, err := s.model.GenerateContent(ctx,
		[]llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, "ping")},
		llms.WithMaxTokens(1),
	)
	if err != nil {
		return fmt.Errorf("summarizer probe: %w", err)
	}
	return nil
}

func systemPrompt(maxLen, minLen int) string {
	return fmt.Sprintf("Summarize the user's text in plain prose. "+
		"Use between %d and %d words. "+
		"Do not add facts that are not in the text. "+
		"Reply with the summary only.", minLen, maxLen)
}

// truncate cuts s to at most limit runes.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
