// Package llm provides the external text-generation collaborators: the
// answer-synthesis client and the chat-backed relevance oracle. Retrieval
// never depends on these beyond the narrow interfaces.
package llm

import (
	"context"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

// Client synthesizes prose from retrieved passages. Each method maps to a
// separately configurable model.
type Client interface {
	Answer(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	Summarize(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	Extract(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Models selects the chat model per generation mode.
type Models struct {
	Answer  string
	Summary string
	Extract string
}

// OpenAIClient implements Client over the OpenAI chat API.
type OpenAIClient struct {
	client *openai.Client
	models Models
}

// NewOpenAIClient creates a client using OPENAI_API_KEY from the environment.
func NewOpenAIClient(models Models) (*OpenAIClient, error) {
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is not set")
	}
	return &OpenAIClient{
		client: openai.NewClient(key),
		models: models,
	}, nil
}

func (c *OpenAIClient) chat(ctx context.Context, model, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// Answer generates an answer with the answer model.
func (c *OpenAIClient) Answer(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.chat(ctx, c.models.Answer, systemPrompt, userPrompt)
}

// Summarize generates a summary with the summary model.
func (c *OpenAIClient) Summarize(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.chat(ctx, c.models.Summary, systemPrompt, userPrompt)
}

// Extract generates key points with the extract model.
func (c *OpenAIClient) Extract(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.chat(ctx, c.models.Extract, systemPrompt, userPrompt)
}
