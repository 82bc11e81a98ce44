// Package perplexity wraps the Perplexity chat-completions API and
// normalizes the citation list returned alongside answers.
package perplexity

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.perplexity.ai"
	defaultModel   = "sonar"
)

// Client performs chat completions against the Perplexity API.
type Client interface {
	ChatCompletion(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error)
	FetchCitations(ctx context.Context, queryText string) ([]string, error)
}

// ChatCompletionRequest is the request body for POST /chat/completions.
type ChatCompletionRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

// Message represents a single message in the conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionResponse is the response from POST /chat/completions.
// Citations and Sources are alternative field names for the same payload;
// which one appears depends on the model and API version, so both are kept
// raw and decoded leniently.
type ChatCompletionResponse struct {
	ID        string          `json:"id"`
	Choices   []Choice        `json:"choices"`
	Citations json.RawMessage `json:"citations,omitempty"`
	Sources   json.RawMessage `json:"sources,omitempty"`
	Usage     Usage           `json:"usage"`
}

// Choice is a single completion choice.
type Choice struct {
	Index   int     `json:"index"`
	Message Message `json:"message"`
}

// Usage reports token consumption.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithModel overrides the default model.
func WithModel(model string) Option {
	return func(c *httpClient) {
		if model != "" {
			c.model = model
		}
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit throttles API calls to rps requests per second.
// Zero or negative disables client-side throttling.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		} else {
			c.limiter = nil
		}
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	model   string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Perplexity API client with a 30s request timeout.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		model:   defaultModel,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) ChatCompletion(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error) {
	if req.Model == "" {
		req.Model = c.model
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "perplexity: rate limit")
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "perplexity: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "perplexity: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "perplexity: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "perplexity: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("perplexity: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var result ChatCompletionResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "perplexity: unmarshal response")
	}

	return &result, nil
}

// FetchCitations sends queryText as the sole user message and returns the
// normalized citation URL list. A response without a recognizable citations
// field, or with one that is not an array of strings, yields an empty list
// rather than an error: missing citation metadata is common and must not
// abort a verification run.
func (c *httpClient) FetchCitations(ctx context.Context, queryText string) ([]string, error) {
	resp, err := c.ChatCompletion(ctx, ChatCompletionRequest{
		Messages: []Message{{Role: "user", Content: queryText}},
	})
	if err != nil {
		return nil, err
	}
	return normalizeCitations(resp), nil
}

// normalizeCitations extracts the citation list from a response, preferring
// the "citations" field over "sources". Malformed values decode to empty.
func normalizeCitations(resp *ChatCompletionResponse) []string {
	raw := resp.Citations
	if len(raw) == 0 {
		raw = resp.Sources
	}
	if len(raw) == 0 {
		zap.L().Debug("perplexity: response has no citations field", zap.String("id", resp.ID))
		return []string{}
	}

	var urls []string
	if err := json.Unmarshal(raw, &urls); err != nil {
		zap.L().Debug("perplexity: citations field is not a string array",
			zap.String("id", resp.ID),
			zap.Error(err),
		)
		return []string{}
	}
	if urls == nil {
		urls = []string{}
	}
	return urls
}
