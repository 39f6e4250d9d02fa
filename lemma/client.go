package lemma

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	defaultBaseURL = "https://api.moonshot.cn/v1"
	defaultModel   = "moonshot-v1-8k"
)

// Client normalizes word forms to dictionary lemmas through an
// OpenAI-compatible chat API
type Client struct {
	client *openai.Client
	model  string
}

// NewClient creates a new lemma client
func NewClient(apiKey, baseURL, model string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if model == "" {
		model = defaultModel
	}

	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL

	return &Client{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

const systemPrompt = `You are a morphological normalizer. Given a single word, reply with its dictionary form (lemma) in the same language, lowercase. Reply with exactly one word and nothing else.`

// Lemmatize returns the dictionary form of a word. The reply must be a
// single token; anything else is treated as a miss and the input word is
// returned unchanged.
func (c *Client) Lemmatize(ctx context.Context, word, langHint string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	user := word
	if langHint != "" {
		user = fmt.Sprintf("%s (language: %s)", word, langHint)
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: 0.0, // Deterministic output required
		MaxTokens:   20,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}

	reply := strings.ToLower(strings.TrimSpace(resp.Choices[0].Message.Content))
	if reply == "" || strings.ContainsAny(reply, " \t\n") {
		// Model did not return a single token; keep the original form
		return word, nil
	}
	return reply, nil
}
