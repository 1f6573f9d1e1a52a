package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/agenthands/shelfcheck/internal/core/model"
)

type GeminiJudge struct {
	client *genai.Client
	model  string
}

func NewGeminiJudge(ctx context.Context, apiKey string, model string) (*GeminiJudge, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &GeminiJudge{
		client: client,
		model:  model,
	}, nil
}

func (c *GeminiJudge) Close() error {
	return c.client.Close()
}

func (c *GeminiJudge) Invoke(ctx context.Context, payload model.InvocationPayload) (model.JudgeResponse, error) {
	parts, err := geminiParts(payload)
	if err != nil {
		return model.JudgeResponse{}, err
	}

	gm := c.client.GenerativeModel(c.model)
	if payload.System != "" {
		gm.SystemInstruction = genai.NewUserContent(genai.Text(payload.System))
	}
	gm.SetTemperature(float32(payload.Temperature))
	if payload.MaxTokens > 0 {
		gm.SetMaxOutputTokens(int32(payload.MaxTokens))
	}

	resp, err := gm.GenerateContent(ctx, parts...)
	if err != nil {
		return model.JudgeResponse{}, err
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return model.JudgeResponse{}, fmt.Errorf("no response candidates or content")
	}

	candidate := resp.Candidates[0]
	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text.WriteString(string(txt))
		}
	}

	out := model.JudgeResponse{
		Model:      c.model,
		StopReason: candidate.FinishReason.String(),
		Text:       text.String(),
	}
	if resp.UsageMetadata != nil {
		out.Usage = model.TokenUsage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	return out, nil
}

// geminiParts flattens the payload messages into parts, decoding inline
// images back into blobs.
func geminiParts(payload model.InvocationPayload) ([]genai.Part, error) {
	var parts []genai.Part
	for _, m := range payload.Messages {
		for _, block := range m.Content {
			switch {
			case block.Type == model.BlockTypeImage && block.Source != nil:
				data, err := base64.StdEncoding.DecodeString(block.Source.Data)
				if err != nil {
					return nil, fmt.Errorf("failed to decode image block: %w", err)
				}
				parts = append(parts, genai.Blob{MIMEType: block.Source.MediaType, Data: data})
			case block.Type == model.BlockTypeText:
				parts = append(parts, genai.Text(block.Text))
			}
		}
	}
	return parts, nil
}
