package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// Client is a client for OpenAI-compatible chat completions APIs.
type Client struct {
	BaseURL string
	Model   string
	client  *openai.Client
	opts    settings
}

// NewClient creates a new LLM client.
// An empty baseURL targets the public OpenAI API.
func NewClient(baseURL, apiKey, model string, opts ...Option) *Client {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if s.httpClient != nil {
		cfg.HTTPClient = s.httpClient
	}

	return &Client{
		BaseURL: cfg.BaseURL,
		Model:   model,
		client:  openai.NewClientWithConfig(cfg),
		opts:    s,
	}
}

// Complete sends a system instruction and a user prompt and returns the first choice.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.ChatWithMessages(ctx, []Message{
		{Role: RoleSystem, Content: systemPrompt},
		{Role: RoleUser, Content: userPrompt},
	}, ChatParams{})
}

// ChatWithMessages sends a chat completion request with an explicit message list.
func (c *Client) ChatWithMessages(ctx context.Context, messages []Message, params ChatParams) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("no messages to send")
	}

	model := params.Model
	if model == "" {
		model = c.Model
	}

	req := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    make([]openai.ChatCompletionMessage, len(messages)),
		MaxTokens:   params.MaxTokens,
		Temperature: params.Temperature,
	}
	for i, msg := range messages {
		req.Messages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	var reply string
	err := c.opts.call(ctx, "chat completion", func(ctx context.Context) error {
		resp, err := c.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return fmt.Errorf("create chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("no choices returned")
		}
		reply = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", err
	}

	return reply, nil
}
