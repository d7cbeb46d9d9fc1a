package llm

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const oracleSystemPrompt = "You are a helper that judges RELEVANCE only. " +
	"You are given a user question and a text passage. " +
	"Reply ONLY with a number between 0 and 1 where 0 = completely irrelevant " +
	"and 1 = extremely relevant."

// ChatOracle scores query/passage relevance with a small chat model. The
// prompt is kept minimal to keep per-pair latency down.
type ChatOracle struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewChatOracle creates an oracle backed by the given chat model, using
// OPENAI_API_KEY from the environment.
func NewChatOracle(model string, logger *zap.Logger) (*ChatOracle, error) {
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is not set")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatOracle{
		client: openai.NewClient(key),
		model:  model,
		logger: logger,
	}, nil
}

// Score asks the model for a relevance score in [0,1]. A response that does
// not parse as a float degrades to 0.0 with a log line; only transport
// failures are returned as errors.
func (o *ChatOracle) Score(ctx context.Context, query, text string) (float64, error) {
	userPrompt := fmt.Sprintf("Question:\n%s\n\nText:\n%s\n\nReply ONLY with a number between 0 and 1, e.g. 0.83", query, text)
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: oracleSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: 0,
		MaxTokens:   4,
	})
	if err != nil {
		return 0, fmt.Errorf("relevance score: %w", err)
	}
	raw := ""
	if len(resp.Choices) > 0 {
		raw = strings.TrimSpace(resp.Choices[0].Message.Content)
	}
	return ParseScore(raw, o.logger), nil
}

// ParseScore parses a relevance score, tolerating a decimal comma, and clamps
// it to [0,1]. Unparsable input yields 0.0 and a log line, never an error.
func ParseScore(raw string, logger *zap.Logger) float64 {
	value, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		if logger != nil {
			logger.Warn("malformed relevance score, defaulting to 0",
				zap.String("raw", raw))
		}
		return 0
	}
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
