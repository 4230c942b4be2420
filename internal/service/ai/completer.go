package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"iracgo/internal/config"
	"iracgo/internal/models"
)

const defaultTimeout = 30 * time.Second

// Completer sends a rendered prompt to the configured chat model and returns the analysis.
type Completer struct {
	chatModel model.BaseChatModel
	modelName string
	timeout   time.Duration
}

// NewCompleter builds the chat model for cfg.Completion.Provider.
func NewCompleter(ctx context.Context, cfg *config.Config) (*Completer, error) {
	if cfg == nil {
		return nil, errors.New("config required")
	}
	chatModel, err := newChatModel(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewCompleterWithModel(chatModel, cfg.Completion.Model, time.Duration(cfg.Completion.TimeoutSeconds)*time.Second), nil
}

// NewCompleterWithModel wraps an already constructed chat model.
func NewCompleterWithModel(chatModel model.BaseChatModel, modelName string, timeout time.Duration) *Completer {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Completer{chatModel: chatModel, modelName: modelName, timeout: timeout}
}

func newChatModel(ctx context.Context, cfg *config.Config) (model.BaseChatModel, error) {
	prov := cfg.Provider()
	maxTokens := cfg.Completion.MaxTokens
	temperature := cfg.Completion.Temperature
	modelName := cfg.Completion.Model

	var (
		chatModel model.BaseChatModel
		err       error
	)
	switch cfg.Completion.Provider {
	case config.ProviderOpenAI:
		chatModel, err = openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL:     prov.BaseURL,
			APIKey:      prov.APIKey,
			Model:       modelName,
			MaxTokens:   &maxTokens,
			Temperature: &temperature,
		})
	case config.ProviderGemini:
		client, cerr := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:      prov.APIKey,
			Backend:     genai.BackendGeminiAPI,
			HTTPOptions: genai.HTTPOptions{BaseURL: prov.BaseURL},
		})
		if cerr != nil {
			return nil, fmt.Errorf("init gemini client: %w", cerr)
		}
		chatModel, err = gemini.NewChatModel(ctx, &gemini.Config{
			Client:      client,
			Model:       modelName,
			MaxTokens:   &maxTokens,
			Temperature: &temperature,
		})
	case config.ProviderClaude:
		var baseURL *string
		if prov.BaseURL != "" {
			baseURL = &prov.BaseURL
		}
		chatModel, err = claude.NewChatModel(ctx, &claude.Config{
			APIKey:      prov.APIKey,
			BaseURL:     baseURL,
			Model:       modelName,
			MaxTokens:   maxTokens,
			Temperature: &temperature,
		})
	default:
		return nil, fmt.Errorf("invalid provider: %s", cfg.Completion.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s chat model: %w", cfg.Completion.Provider, err)
	}
	return chatModel, nil
}

// Model reports the configured model identifier.
func (c *Completer) Model() string {
	return c.modelName
}

// Complete runs one non-streaming generation.
// The call ignores cancellation of ctx and is bounded by the completion timeout instead.
func (c *Completer) Complete(ctx context.Context, messages []*schema.Message) (*models.Summary, error) {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	msg, err := c.chatModel.Generate(callCtx, messages)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		return nil, classify(err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return nil, ErrEmptyResponse
	}

	summary := &models.Summary{
		Analysis: msg.Content,
		Model:    c.modelName,
	}
	if msg.ResponseMeta != nil && msg.ResponseMeta.Usage != nil {
		u := msg.ResponseMeta.Usage
		summary.Usage = &models.Usage{
			PromptTokens:     u.PromptTokens,
			CompletionTokens: u.CompletionTokens,
			TotalTokens:      u.TotalTokens,
		}
	}
	return summary, nil
}
