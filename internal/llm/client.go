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
	"net/url"
	"time"
)

// JSONRequest holds the parameters for a JSON-mode generation call.
type JSONRequest struct {
	Op                  string // label for observability, e.g. "plan", "rectify"
	SystemPrompt        string
	UserPrompt          string
	Schema              json.RawMessage // strict JSON schema; nil skips json_schema mode
	SchemaName          string
	Temperature         *float64 // nil uses config default
	MaxTokens           int      // 0 uses config default
	ContinueIfTruncated bool
	TotalDays           int // expected day count, used to phrase continuation; 0 if unknown
}

// JSONResult holds the raw outcome of a JSON-mode generation call.
// Text may be spliced from a truncation continuation.
type JSONResult struct {
	Text         string
	FinishReason string
	TokensUsed   int
	Model        string
}

// Client provides JSON-mode access to a chat-completions endpoint.
type Client interface {
	GenerateJSON(ctx context.Context, req JSONRequest) (*JSONResult, error)

	// Enabled reports whether the client has credentials to make calls.
	Enabled() bool
}

// openAIClient implements Client against an OpenAI-compatible
// /chat/completions API.
type openAIClient struct {
	cfg      Config
	http     *http.Client
	observer Observer
}

// NewOpenAIClient creates a Client that talks to an OpenAI-compatible endpoint.
func NewOpenAIClient(cfg Config, observer Observer) Client {
	if observer == nil {
		observer = NoopObserver{}
	}
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: 5 * time.Second,
		}).DialContext,
	}
	if cfg.ProxyURL != "" {
		if proxyURL, err := url.Parse(cfg.ProxyURL); err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}
	return &openAIClient{
		cfg:      cfg,
		http:     &http.Client{Transport: transport},
		observer: observer,
	}
}

func (c *openAIClient) Enabled() bool {
	return c.cfg.Enabled()
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the JSON body sent to POST /chat/completions.
type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat json.RawMessage `json:"response_format,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

func (c *openAIClient) GenerateJSON(ctx context.Context, req JSONRequest) (*JSONResult, error) {
	if !c.cfg.Enabled() {
		return nil, ErrDisabled
	}

	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.TimeoutMs)*time.Millisecond)
	defer cancel()

	result, err := c.generateOnce(ctx, req, req.UserPrompt)
	if err != nil {
		c.observeFailure(req.Op, start, err)
		return nil, err
	}

	if result.FinishReason == "length" && req.ContinueIfTruncated {
		result = c.continueTruncated(ctx, req, result)
	}

	c.observer.OnCallComplete(CallEvent{
		Op:           req.Op,
		Model:        result.Model,
		LatencyMs:    time.Since(start).Milliseconds(),
		Success:      true,
		FinishReason: result.FinishReason,
		TokensUsed:   result.TokensUsed,
	})
	return result, nil
}

// generateOnce performs a single logical completion, degrading the response
// format from json_schema to json_object to plain text when the endpoint
// rejects the stricter mode.
func (c *openAIClient) generateOnce(ctx context.Context, req JSONRequest, userPrompt string) (*JSONResult, error) {
	temp := c.cfg.Temperature
	if req.Temperature != nil {
		temp = *req.Temperature
	}
	maxTokens := c.cfg.MaxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}

	var messages []chatMessage
	if req.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: userPrompt})

	var lastErr error
	for _, format := range c.responseFormats(req) {
		body := chatRequest{
			Model:          c.cfg.Model,
			Messages:       messages,
			Temperature:    temp,
			MaxTokens:      maxTokens,
			ResponseFormat: format,
		}
		resp, status, err := c.doRequest(ctx, body)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		// Only a 400 means the endpoint rejected the response format;
		// anything else is not fixed by degrading the mode.
		if status != http.StatusBadRequest {
			break
		}
	}

	if ctx.Err() != nil {
		return nil, ErrTimeout
	}
	if isConnectionError(lastErr) {
		return nil, ErrUnavailable
	}
	return nil, lastErr
}

// responseFormats returns the response_format ladder for a request.
func (c *openAIClient) responseFormats(req JSONRequest) []json.RawMessage {
	var formats []json.RawMessage
	if len(req.Schema) > 0 {
		name := req.SchemaName
		if name == "" {
			name = "response"
		}
		schemaFormat, err := json.Marshal(map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   name,
				"strict": true,
				"schema": json.RawMessage(req.Schema),
			},
		})
		if err == nil {
			formats = append(formats, schemaFormat)
		}
	}
	formats = append(formats, json.RawMessage(`{"type":"json_object"}`))
	formats = append(formats, nil)
	return formats
}

func (c *openAIClient) doRequest(ctx context.Context, body chatRequest) (*JSONResult, int, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, 0, fmt.Errorf("marshaling request: %w", err)
	}

	endpoint := c.cfg.BaseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, 0, err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, httpResp.StatusCode, fmt.Errorf("reading response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, httpResp.StatusCode, fmt.Errorf("%w: status %d: %s",
			ErrBadStatus, httpResp.StatusCode, truncateForError(respBody))
	}

	var resp chatResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, httpResp.StatusCode, fmt.Errorf("decoding response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, httpResp.StatusCode, fmt.Errorf("%w: no choices in response", ErrInvalidOutput)
	}

	return &JSONResult{
		Text:         resp.Choices[0].Message.Content,
		FinishReason: resp.Choices[0].FinishReason,
		TokensUsed:   resp.Usage.TotalTokens,
		Model:        resp.Model,
	}, httpResp.StatusCode, nil
}

func (c *openAIClient) observeFailure(op string, start time.Time, err error) {
	c.observer.OnCallComplete(CallEvent{
		Op:        op,
		Model:     c.cfg.Model,
		LatencyMs: time.Since(start).Milliseconds(),
		Success:   false,
		ErrorCode: errorCode(err),
	})
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var netErr *net.OpError
	return errors.As(err, &netErr)
}

func errorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout):
		return "TIMEOUT"
	case errors.Is(err, ErrUnavailable):
		return "UNAVAILABLE"
	case errors.Is(err, ErrBadStatus):
		return "BAD_STATUS"
	case errors.Is(err, ErrInvalidOutput):
		return "INVALID_OUTPUT"
	case errors.Is(err, ErrDisabled):
		return "DISABLED"
	default:
		return "UNKNOWN"
	}
}

func truncateForError(b []byte) string {
	const max = 200
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
