package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/cloudwego/eino-ext/components/model/openai"
	goopenai "github.com/meguminnnnnnnnn/go-openai"
	"google.golang.org/genai"
)

var (
	// ErrService covers every provider failure that is not an auth or quota problem.
	ErrService = errors.New("completion service error")
	// ErrAuthentication means the provider rejected the configured credential.
	ErrAuthentication = errors.New("completion provider rejected credentials")
	// ErrRateLimited means the provider refused the call because of quota or rate.
	ErrRateLimited = errors.New("completion provider rate limit exceeded")

	ErrTimeout       = fmt.Errorf("%w: request timed out", ErrService)
	ErrEmptyResponse = fmt.Errorf("%w: empty response", ErrService)
)

// classify maps a provider error onto one of the sentinel kinds, keeping the original in the chain.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrService) || errors.Is(err, ErrAuthentication) || errors.Is(err, ErrRateLimited) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	switch statusCode(err) {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %w", ErrAuthentication, err)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", ErrRateLimited, err)
	default:
		return fmt.Errorf("%w: %w", ErrService, err)
	}
}

// statusCode digs the HTTP status out of whichever provider SDK produced err. Zero when unknown.
func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	// non-JSON error bodies are passed through unconverted
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	var claudeErr *anthropic.Error
	if errors.As(err, &claudeErr) {
		return claudeErr.StatusCode
	}
	var geminiErr genai.APIError
	if errors.As(err, &geminiErr) {
		return geminiErr.Code
	}
	var geminiPtr *genai.APIError
	if errors.As(err, &geminiPtr) {
		return geminiPtr.Code
	}
	return 0
}
