package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"go.uber.org/zap"
)

// Message is one entry of a chat-style conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest describes a single chat completion call.
// Optional fields are omitted from the request body when nil.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	Temperature *float64
	MaxTokens   *int
	Extra       map[string]any
}

// CompletionResult holds a successful response.
type CompletionResult struct {
	ResponseJSON map[string]any
	RawBody      []byte
	// Content is the first choice's message content, nil when the response
	// does not carry one.
	Content *string
}

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	endpoint   string
	apiKey     string
	config     *ClientConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client (tests, custom transports).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger attaches a logger for retry diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a completion client for endpoint authenticated with apiKey.
func NewClient(endpoint, apiKey string, config *ClientConfig, opts ...Option) *Client {
	if config == nil {
		config = DefaultClientConfig()
	}
	c := &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		config:     config,
		httpClient: &http.Client{},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete sends req, retrying transport failures and retryable statuses
// according to the client's retry policy.
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	body, err := buildRequestBody(req)
	if err != nil {
		return nil, err
	}

	var result *CompletionResult
	attempt := 0
	err = Retry(ctx, c.config.RetryPolicy(), c.shouldRetry(ctx), func(ctx context.Context) error {
		attempt++
		res, callErr := c.do(ctx, body)
		if callErr != nil {
			c.logger.Debug("completion attempt failed",
				zap.Int("attempt", attempt),
				zap.String("model", req.Model),
				zap.Error(callErr))
			return callErr
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// shouldRetry never retries once the caller's own context is done.
func (c *Client) shouldRetry(parent context.Context) func(error) bool {
	return func(err error) bool {
		if parent.Err() != nil {
			return false
		}
		return IsRetryable(err)
	}
}

func (c *Client) do(ctx context.Context, body []byte) (*CompletionResult, error) {
	attemptCtx := ctx
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp.StatusCode, raw)
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil || payload == nil {
		return nil, &ClientError{
			Kind:       KindMalformedResponse,
			Message:    "LLM response is not a JSON object",
			StatusCode: resp.StatusCode,
			Err:        err,
		}
	}

	return &CompletionResult{
		ResponseJSON: payload,
		RawBody:      raw,
		Content:      ExtractFirstContent(payload),
	}, nil
}

func buildRequestBody(req CompletionRequest) ([]byte, error) {
	body := map[string]any{
		"model":    req.Model,
		"messages": req.Messages,
	}
	if req.Temperature != nil {
		body["temperature"] = *req.Temperature
	}
	if req.MaxTokens != nil {
		body["max_tokens"] = *req.MaxTokens
	}
	for k, v := range req.Extra {
		body[k] = v
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal completion request: %w", err)
	}
	return data, nil
}

// classifyTransportError maps a failed round trip onto an error kind. A done
// parent context is returned unchanged so the retry driver stops.
func classifyTransportError(parent context.Context, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &ClientError{Kind: KindTimeout, Message: "LLM request timed out", Err: err}
	}
	return &ClientError{Kind: KindTransport, Message: "LLM request failed", Err: err}
}

func statusError(statusCode int, raw []byte) *ClientError {
	var responseJSON map[string]any
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err == nil {
		if obj, ok := decoded.(map[string]any); ok {
			responseJSON = obj
		} else {
			responseJSON = map[string]any{"raw": decoded}
		}
	}

	kind := KindFatalHTTP
	if isRetryableStatus(statusCode) {
		kind = KindRetryableHTTP
	}
	return &ClientError{
		Kind:         kind,
		Message:      "LLM request failed",
		StatusCode:   statusCode,
		ResponseJSON: responseJSON,
	}
}

// ExtractFirstContent returns choices[0].message.content as text, or nil if
// any level of that path is missing.
func ExtractFirstContent(payload map[string]any) *string {
	choices, ok := payload["choices"].([]any)
	if !ok || len(choices) == 0 {
		return nil
	}
	first, ok := choices[0].(map[string]any)
	if !ok {
		return nil
	}
	message, ok := first["message"].(map[string]any)
	if !ok {
		return nil
	}
	content, exists := message["content"]
	if !exists || content == nil {
		return nil
	}

	var text string
	switch v := content.(type) {
	case string:
		text = v
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			text = fmt.Sprint(v)
		} else {
			text = string(encoded)
		}
	}
	return &text
}
