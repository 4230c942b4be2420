package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	goopenai "github.com/meguminnnnnnnnn/go-openai"
	"google.golang.org/genai"

	"iracgo/internal/config"
)

type stubChatModel struct {
	reply    *schema.Message
	err      error
	delay    time.Duration
	calls    int
	lastMsgs []*schema.Message
	ctxErr   error
}

func (s *stubChatModel) Generate(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	s.calls++
	s.lastMsgs = input
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			s.ctxErr = ctx.Err()
			return nil, ctx.Err()
		}
	}
	s.ctxErr = ctx.Err()
	return s.reply, s.err
}

func (s *stubChatModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

func userPrompt() []*schema.Message {
	return []*schema.Message{schema.SystemMessage("sys"), schema.UserMessage("analyze")}
}

func TestCompleteSuccess(t *testing.T) {
	stub := &stubChatModel{reply: &schema.Message{
		Role:    schema.Assistant,
		Content: "### ISSUE\nWhether...",
		ResponseMeta: &schema.ResponseMeta{Usage: &schema.TokenUsage{
			PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150,
		}},
	}}
	c := NewCompleterWithModel(stub, "gpt-3.5-turbo", time.Second)

	summary, err := c.Complete(context.Background(), userPrompt())
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if summary.Analysis != "### ISSUE\nWhether..." || summary.Model != "gpt-3.5-turbo" {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.Usage == nil || summary.Usage.TotalTokens != 150 || summary.Usage.PromptTokens != 100 {
		t.Fatalf("usage not mapped: %+v", summary.Usage)
	}
	if len(stub.lastMsgs) != 2 {
		t.Fatalf("messages not forwarded")
	}
}

func TestCompleteWithoutUsage(t *testing.T) {
	stub := &stubChatModel{reply: schema.AssistantMessage("done", nil)}
	summary, err := NewCompleterWithModel(stub, "m", time.Second).Complete(context.Background(), userPrompt())
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if summary.Usage != nil {
		t.Fatalf("expected nil usage, got %+v", summary.Usage)
	}
}

func TestCompleteEmptyResponse(t *testing.T) {
	for name, reply := range map[string]*schema.Message{
		"nil":        nil,
		"blank":      schema.AssistantMessage("  \n", nil),
		"no content": {Role: schema.Assistant},
	} {
		t.Run(name, func(t *testing.T) {
			stub := &stubChatModel{reply: reply}
			_, err := NewCompleterWithModel(stub, "m", time.Second).Complete(context.Background(), userPrompt())
			if !errors.Is(err, ErrEmptyResponse) || !errors.Is(err, ErrService) {
				t.Fatalf("expected empty response service error, got %v", err)
			}
		})
	}
}

func TestCompleteClassifiesProviderErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"openai unauthorized", &openai.APIError{HTTPStatusCode: http.StatusUnauthorized, Message: "bad key"}, ErrAuthentication},
		{"openai forbidden wrapped", fmt.Errorf("create chat completion: %w", &openai.APIError{HTTPStatusCode: http.StatusForbidden}), ErrAuthentication},
		{"openai rate limit", &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests}, ErrRateLimited},
		{"openai request error", &goopenai.RequestError{HTTPStatusCode: http.StatusBadGateway, Err: errors.New("bad gateway")}, ErrService},
		{"gemini unauthorized", genai.APIError{Code: http.StatusUnauthorized, Message: "API key not valid"}, ErrAuthentication},
		{"gemini quota", &genai.APIError{Code: http.StatusTooManyRequests}, ErrRateLimited},
		{"unknown", errors.New("connection reset"), ErrService},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stub := &stubChatModel{err: tc.err}
			_, err := NewCompleterWithModel(stub, "m", time.Second).Complete(context.Background(), userPrompt())
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if !strings.Contains(err.Error(), tc.err.Error()) {
				t.Fatalf("original error lost: %v", err)
			}
		})
	}
}

func TestCompleteTimeout(t *testing.T) {
	stub := &stubChatModel{delay: time.Second}
	_, err := NewCompleterWithModel(stub, "m", 20*time.Millisecond).Complete(context.Background(), userPrompt())
	if !errors.Is(err, ErrTimeout) || !errors.Is(err, ErrService) {
		t.Fatalf("expected timeout service error, got %v", err)
	}
}

func TestCompleteIgnoresCallerCancellation(t *testing.T) {
	stub := &stubChatModel{reply: schema.AssistantMessage("ok", nil), delay: 10 * time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewCompleterWithModel(stub, "m", time.Second).Complete(ctx, userPrompt()); err != nil {
		t.Fatalf("complete after caller cancel: %v", err)
	}
	if stub.ctxErr != nil {
		t.Fatalf("completion context should not inherit cancellation, got %v", stub.ctxErr)
	}
}

func TestNewCompleterBuildsOpenAI(t *testing.T) {
	cfg := config.Default()
	cfg.Completion.Model = "gpt-3.5-turbo"
	cfg.Providers[config.ProviderOpenAI] = config.ProviderConfig{APIKey: "sk-test"}

	c, err := NewCompleter(context.Background(), cfg)
	if err != nil {
		t.Fatalf("new completer: %v", err)
	}
	if c.Model() != "gpt-3.5-turbo" {
		t.Fatalf("unexpected model %q", c.Model())
	}
}

// providerServer answers every request with status and an error body shaped like the provider's.
func providerServer(t *testing.T, provider string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		var body string
		switch provider {
		case config.ProviderOpenAI:
			body = fmt.Sprintf(`{"error":{"message":"upstream said %d","type":"invalid_request_error","code":"err_%d"}}`, status, status)
		case config.ProviderClaude:
			w.Header().Set("x-should-retry", "false")
			body = fmt.Sprintf(`{"type":"error","error":{"type":"api_error","message":"upstream said %d"}}`, status)
		case config.ProviderGemini:
			body = fmt.Sprintf(`{"error":{"code":%d,"message":"upstream said %d","status":"ERROR"}}`, status, status)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCompleteClassifiesProviderHTTPFailures(t *testing.T) {
	statuses := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrAuthentication},
		{http.StatusTooManyRequests, ErrRateLimited},
		{http.StatusInternalServerError, ErrService},
	}
	for _, provider := range []string{config.ProviderOpenAI, config.ProviderClaude, config.ProviderGemini} {
		for _, st := range statuses {
			t.Run(fmt.Sprintf("%s %d", provider, st.status), func(t *testing.T) {
				srv := providerServer(t, provider, st.status)
				cfg := config.Default()
				cfg.Completion.Provider = provider
				cfg.Completion.Model = "test-model"
				cfg.Completion.TimeoutSeconds = 10
				cfg.Providers[provider] = config.ProviderConfig{APIKey: "test-key", BaseURL: srv.URL}

				c, err := NewCompleter(context.Background(), cfg)
				if err != nil {
					t.Fatalf("new completer: %v", err)
				}
				_, err = c.Complete(context.Background(), userPrompt())
				if !errors.Is(err, st.want) {
					t.Fatalf("expected %v, got %v", st.want, err)
				}
				if st.want == ErrService && (errors.Is(err, ErrAuthentication) || errors.Is(err, ErrRateLimited)) {
					t.Fatalf("server error misclassified: %v", err)
				}
				if !strings.Contains(err.Error(), fmt.Sprintf("upstream said %d", st.status)) {
					t.Fatalf("provider message lost: %v", err)
				}
			})
		}
	}
}

func TestNewCompleterRejectsUnknownProvider(t *testing.T) {
	cfg := config.Default()
	cfg.Completion.Provider = "cohere"
	if _, err := NewCompleter(context.Background(), cfg); err == nil {
		t.Fatalf("expected invalid provider error")
	}
}
