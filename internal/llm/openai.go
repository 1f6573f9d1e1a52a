package llm

import (
	"context"
	"fmt"
	"math"

	"github.com/sashabaranov/go-openai"

	"github.com/agenthands/shelfcheck/internal/core/model"
)

type OpenAIJudge struct {
	client *openai.Client
	model  string
}

func NewOpenAIJudge(apiKey string, model string, baseURL string) *OpenAIJudge {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	client := openai.NewClientWithConfig(config)
	return &OpenAIJudge{
		client: client,
		model:  model,
	}
}

func (c *OpenAIJudge) Invoke(ctx context.Context, payload model.InvocationPayload) (model.JudgeResponse, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    openAIMessages(payload),
		MaxTokens:   payload.MaxTokens,
		Temperature: openAITemperature(payload.Temperature),
	}
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return model.JudgeResponse{}, err
	}
	if len(resp.Choices) == 0 {
		return model.JudgeResponse{}, fmt.Errorf("no response choices")
	}

	return model.JudgeResponse{
		ID:         resp.ID,
		Model:      firstNonEmpty(resp.Model, c.model),
		StopReason: string(resp.Choices[0].FinishReason),
		Usage: model.TokenUsage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
		Text: resp.Choices[0].Message.Content,
	}, nil
}

// openAITemperature maps 0 to the smallest positive float32. The request field
// is omitempty, so a literal 0 would fall back to the server default of 1.
func openAITemperature(t float64) float32 {
	if t <= 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}

// openAIMessages turns image blocks into data URLs.
func openAIMessages(payload model.InvocationPayload) []openai.ChatCompletionMessage {
	var messages []openai.ChatCompletionMessage
	if payload.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: payload.System,
		})
	}

	for _, m := range payload.Messages {
		parts := make([]openai.ChatMessagePart, 0, len(m.Content))
		for _, block := range m.Content {
			switch {
			case block.Type == model.BlockTypeImage && block.Source != nil:
				parts = append(parts, openai.ChatMessagePart{
					Type: openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{
						URL:    fmt.Sprintf("data:%s;base64,%s", block.Source.MediaType, block.Source.Data),
						Detail: openai.ImageURLDetailAuto,
					},
				})
			case block.Type == model.BlockTypeText:
				parts = append(parts, openai.ChatMessagePart{
					Type: openai.ChatMessagePartTypeText,
					Text: block.Text,
				})
			}
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:         m.Role,
			MultiContent: parts,
		})
	}
	return messages
}
