package llm

import (
	"context"
	"fmt"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/agenthands/shelfcheck/internal/core/model"
)

type ClaudeJudge struct {
	client *anthropic.Client
	model  string
}

func NewClaudeJudge(apiKey string, model string, baseURL string) *ClaudeJudge {
	var opts []anthropic.ClientOption
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}

	return &ClaudeJudge{
		client: anthropic.NewClient(apiKey, opts...),
		model:  model,
	}
}

func (c *ClaudeJudge) Invoke(ctx context.Context, payload model.InvocationPayload) (model.JudgeResponse, error) {
	temperature := float32(payload.Temperature)
	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:       anthropic.Model(c.model),
		System:      payload.System,
		Messages:    claudeMessages(payload),
		MaxTokens:   payload.MaxTokens,
		Temperature: &temperature,
	})
	if err != nil {
		return model.JudgeResponse{}, err
	}

	for _, content := range resp.Content {
		if content.Text != nil {
			return model.JudgeResponse{
				ID:         resp.ID,
				Model:      string(resp.Model),
				StopReason: string(resp.StopReason),
				Usage: model.TokenUsage{
					InputTokens:  resp.Usage.InputTokens,
					OutputTokens: resp.Usage.OutputTokens,
				},
				Text: *content.Text,
			}, nil
		}
	}
	return model.JudgeResponse{}, fmt.Errorf("no response content")
}

func claudeMessages(payload model.InvocationPayload) []anthropic.Message {
	messages := make([]anthropic.Message, 0, len(payload.Messages))
	for _, m := range payload.Messages {
		content := make([]anthropic.MessageContent, 0, len(m.Content))
		for _, block := range m.Content {
			switch {
			case block.Type == model.BlockTypeImage && block.Source != nil:
				content = append(content, anthropic.NewImageMessageContent(
					anthropic.NewMessageContentSource(
						anthropic.MessagesContentSourceTypeBase64,
						block.Source.MediaType,
						block.Source.Data,
					),
				))
			case block.Type == model.BlockTypeText:
				content = append(content, anthropic.NewTextMessageContent(block.Text))
			}
		}
		messages = append(messages, anthropic.Message{Role: anthropic.ChatRole(m.Role), Content: content})
	}
	return messages
}
