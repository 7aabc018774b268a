package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"bridge/api/internal/screenplay"
)

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("ai service not configured")

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

func New(baseURL, apiKey, model string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Configured reports whether the client can make requests.
func (c *Client) Configured() bool {
	return c != nil && c.apiKey != ""
}

// Message is a single chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) complete(ctx context.Context, messages []Message, maxTokens int) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call chat completions: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read chat response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil && parsed.Error.Message != "" {
			return "", fmt.Errorf("chat completions status %d: %s", resp.StatusCode, parsed.Error.Message)
		}
		return "", fmt.Errorf("chat completions status %d", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("chat completions returned no choices")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// SynthesizeBridge generates a transition scene between two existing
// scenes. It satisfies screenplay.Synthesizer.
func (c *Client) SynthesizeBridge(ctx context.Context, req screenplay.BridgeRequest) (string, error) {
	return c.complete(ctx, []Message{
		{Role: "system", Content: bridgeSystemPrompt},
		{Role: "user", Content: bridgePrompt(req)},
	}, 1500)
}

// EnhanceScene rewrites a scene with a specific focus. Unknown
// enhancement types fall back to a general polish.
func (c *Client) EnhanceScene(ctx context.Context, content, enhancementType string, characters []string, scriptContext string) (string, error) {
	return c.complete(ctx, []Message{
		{Role: "system", Content: enhanceSystemPrompt},
		{Role: "user", Content: enhancePrompt(content, enhancementType, characters, scriptContext)},
	}, 1500)
}

var suggestionSplit = regexp.MustCompile(`\d+\.\s|\n\n`)

// SceneSuggestions asks for 3-5 concrete improvements to a scene and
// returns them as individual paragraphs.
func (c *Client) SceneSuggestions(ctx context.Context, content string, characters []string) ([]string, error) {
	raw, err := c.complete(ctx, []Message{
		{Role: "system", Content: suggestionsSystemPrompt},
		{Role: "user", Content: suggestionsPrompt(content, characters)},
	}, 1000)
	if err != nil {
		return nil, err
	}

	parts := suggestionSplit.Split(raw, -1)
	suggestions := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			suggestions = append(suggestions, trimmed)
		}
	}
	return suggestions, nil
}

// Chat answers a free-form writing question with prior turns as
// context.
func (c *Client) Chat(ctx context.Context, message string, history []Message) (string, error) {
	messages := make([]Message, 0, len(history)+2)
	messages = append(messages, Message{Role: "system", Content: chatSystemPrompt})
	messages = append(messages, history...)
	messages = append(messages, Message{Role: "user", Content: message})
	return c.complete(ctx, messages, 1000)
}
