package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GeminiClient produces JSON completions with Google Gemini.
type GeminiClient struct {
	client *genai.Client
	model  string
	config *ClientConfig
}

// NewGeminiClient creates a Gemini client for the given model. Calls are
// retried and timed out according to config.
func NewGeminiClient(ctx context.Context, apiKey, model string, config *ClientConfig) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if config == nil {
		config = DefaultClientConfig()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{client: client, model: model, config: config}, nil
}

// GenerateJSON sends system as the system instruction and user as the only
// user turn, at temperature 0, asking for an application/json response.
func (c *GeminiClient) GenerateJSON(ctx context.Context, system, user string) (string, error) {
	model := c.client.GenerativeModel(c.model)
	model.SetTemperature(0)
	model.ResponseMIMEType = "application/json"
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}

	var resp *genai.GenerateContentResponse
	err := Retry(ctx, c.config.RetryPolicy(), IsRetryable, func(ctx context.Context) error {
		attemptCtx := ctx
		if c.config.Timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, c.config.Timeout)
			defer cancel()
		}

		r, callErr := model.GenerateContent(attemptCtx, genai.Text(user))
		if callErr != nil {
			return classifyGeminiError(ctx, callErr)
		}
		resp = r
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	return extractGeminiText(resp)
}

// Close releases resources held by the client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// classifyGeminiError maps a failed GenerateContent call onto the same error
// kinds Client.Complete uses. Errors that are neither API statuses nor
// transport failures are returned unchanged and are not retried.
func classifyGeminiError(parent context.Context, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		kind := KindFatalHTTP
		if isRetryableStatus(apiErr.Code) {
			kind = KindRetryableHTTP
		}
		return &ClientError{Kind: kind, Message: "Gemini request failed", StatusCode: apiErr.Code, Err: err}
	}

	var netErr net.Error
	var urlErr *url.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) || errors.As(err, &urlErr) {
		return classifyTransportError(parent, err)
	}
	return err
}

func extractGeminiText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}
	return strings.Join(parts, ""), nil
}
