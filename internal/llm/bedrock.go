package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/agenthands/shelfcheck/internal/core/model"
)

// BedrockAPI is the subset of the Bedrock runtime client used here.
type BedrockAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockJudge posts the payload verbatim as an Anthropic messages body.
type BedrockJudge struct {
	client  BedrockAPI
	modelID string
}

func NewBedrockJudge(cfg aws.Config, modelID string) *BedrockJudge {
	return &BedrockJudge{client: bedrockruntime.NewFromConfig(cfg), modelID: modelID}
}

func NewBedrockJudgeWithClient(client BedrockAPI, modelID string) *BedrockJudge {
	return &BedrockJudge{client: client, modelID: modelID}
}

type bedrockResponse struct {
	ID         string `json:"id"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Content    []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage model.TokenUsage `json:"usage"`
}

func (j *BedrockJudge) Invoke(ctx context.Context, payload model.InvocationPayload) (model.JudgeResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return model.JudgeResponse{}, fmt.Errorf("failed to encode bedrock payload: %w", err)
	}

	out, err := j.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(j.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return model.JudgeResponse{}, fmt.Errorf("failed to invoke bedrock model %s: %w", j.modelID, err)
	}

	var resp bedrockResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return model.JudgeResponse{}, fmt.Errorf("failed to decode bedrock response: %w", err)
	}

	for _, c := range resp.Content {
		if c.Type == model.BlockTypeText {
			return model.JudgeResponse{
				ID:         resp.ID,
				Model:      firstNonEmpty(resp.Model, j.modelID),
				StopReason: resp.StopReason,
				Usage:      resp.Usage,
				Text:       c.Text,
			}, nil
		}
	}
	return model.JudgeResponse{}, fmt.Errorf("no text content in bedrock response")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
